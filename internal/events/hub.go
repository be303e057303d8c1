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

// Package events fans monitor activity out to server-sent event streams,
// one topic per browser session.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Event types published by the inbox monitor.
const (
	TypeChecked = "monitor.checked"
	TypeReplied = "monitor.replied"
	TypeFailed  = "monitor.failed"
	TypeStopped = "monitor.stopped"
)

const subscriberBuffer = 16

// Event is one notification. Data must be JSON-encodable.
type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data,omitempty"`
}

// Hub holds subscribers per session. Slow subscribers miss events rather
// than block publishers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan []byte]struct{})}
}

// Subscribe registers a stream for session. The returned func unsubscribes
// and closes the channel.
func (h *Hub) Subscribe(session string) (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	if _, ok := h.subs[session]; !ok {
		h.subs[session] = make(map[chan []byte]struct{})
	}
	h.subs[session][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if subscribers, ok := h.subs[session]; ok {
				delete(subscribers, ch)
				if len(subscribers) == 0 {
					delete(h.subs, session)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish sends ev to every subscriber of session as an SSE frame.
func (h *Hub) Publish(session string, ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	frame, err := Frame(ev)
	if err != nil {
		slog.Error("failed to encode event", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[session] {
		select {
		case ch <- frame:
		default:
			slog.Debug("dropping event for slow subscriber", "type", ev.Type)
		}
	}
}

// Publisher accepts events for a session.
type Publisher interface {
	Publish(session string, ev Event)
}

type tee []Publisher

func (t tee) Publish(session string, ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	for _, p := range t {
		p.Publish(session, ev)
	}
}

// Tee returns a Publisher that forwards every event to each of ps in order.
// Nil entries are skipped.
func Tee(ps ...Publisher) Publisher {
	var t tee
	for _, p := range ps {
		if p != nil {
			t = append(t, p)
		}
	}
	return t
}

// Subscribers reports how many streams are open for session.
func (h *Hub) Subscribers(session string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[session])
}

// Frame renders ev in text/event-stream format.
func Frame(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, data)), nil
}
