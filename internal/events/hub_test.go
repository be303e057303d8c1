// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package events

import (
	"strings"
	"testing"
	"time"
)

// TestHub_PublishToSession verifies delivery is scoped to one session.
func TestHub_PublishToSession(t *testing.T) {
	h := NewHub()
	mine, unsubMine := h.Subscribe("s1")
	defer unsubMine()
	theirs, unsubTheirs := h.Subscribe("s2")
	defer unsubTheirs()

	h.Publish("s1", Event{Type: TypeChecked, Data: map[string]int{"unread": 3}})

	select {
	case frame := <-mine:
		s := string(frame)
		if !strings.HasPrefix(s, "event: monitor.checked\ndata: {") || !strings.HasSuffix(s, "\n\n") {
			t.Errorf("frame = %q", s)
		}
		if !strings.Contains(s, `"unread":3`) {
			t.Errorf("frame missing data: %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	select {
	case frame := <-theirs:
		t.Errorf("other session received %q", frame)
	default:
	}
}

// TestHub_SlowSubscriberDrops verifies Publish never blocks.
func TestHub_SlowSubscriberDrops(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe("s1")
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			h.Publish("s1", Event{Type: TypeChecked})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
}

// TestHub_Unsubscribe verifies cleanup and idempotence.
func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()
	ch, unsub := h.Subscribe("s1")
	if h.Subscribers("s1") != 1 {
		t.Fatalf("subscribers = %d, want 1", h.Subscribers("s1"))
	}

	unsub()
	unsub()

	if h.Subscribers("s1") != 0 {
		t.Errorf("subscribers = %d, want 0", h.Subscribers("s1"))
	}
	if _, ok := <-ch; ok {
		t.Error("channel not closed")
	}

	h.Publish("s1", Event{Type: TypeStopped})
}

type recordingPublisher struct {
	got []Event
}

func (r *recordingPublisher) Publish(_ string, ev Event) { r.got = append(r.got, ev) }

func TestTee(t *testing.T) {
	a, b := &recordingPublisher{}, &recordingPublisher{}
	p := Tee(a, nil, b)

	p.Publish("s1", Event{Type: TypeReplied})

	if len(a.got) != 1 || len(b.got) != 1 {
		t.Fatalf("deliveries = %d, %d; want 1, 1", len(a.got), len(b.got))
	}
	if a.got[0].Time.IsZero() || !a.got[0].Time.Equal(b.got[0].Time) {
		t.Errorf("both publishers should see the same stamped time: %v vs %v", a.got[0].Time, b.got[0].Time)
	}
}
