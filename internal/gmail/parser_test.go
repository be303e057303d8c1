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

package gmail

import (
	"encoding/base64"
	"testing"

	"google.golang.org/api/gmail/v1"
)

func gmailHeader(name, value string) *gmail.MessagePartHeader {
	return &gmail.MessagePartHeader{Name: name, Value: value}
}

// TestHeaderLookup verifies case-insensitive matching and first-wins.
func TestHeaderLookup(t *testing.T) {
	headers := []*gmail.MessagePartHeader{
		gmailHeader("SUBJECT", "first"),
		gmailHeader("subject", "second"),
		gmailHeader("Message-Id", "<id@x>"),
	}

	if got := header(headers, "Subject"); got != "first" {
		t.Errorf("Subject = %q, want first", got)
	}
	if got := header(headers, "message-id"); got != "<id@x>" {
		t.Errorf("Message-ID = %q", got)
	}
	if got := header(headers, "References"); got != "" {
		t.Errorf("References = %q, want empty", got)
	}
}

// TestResolveBody covers the fallback chain and the accepted encodings.
func TestResolveBody(t *testing.T) {
	text := "Hi?>> ünïcode"

	tests := []struct {
		name string
		msg  *gmail.Message
		want string
	}{
		{
			name: "text part url unpadded",
			msg: &gmail.Message{Snippet: "snip", Payload: &gmail.MessagePart{Parts: []*gmail.MessagePart{
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: "PGI-"}},
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString([]byte(text))}},
			}}},
			want: text,
		},
		{
			name: "text part standard padded",
			msg: &gmail.Message{Payload: &gmail.MessagePart{Parts: []*gmail.MessagePart{
				{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: base64.StdEncoding.EncodeToString([]byte(text))}},
			}}},
			want: text,
		},
		{
			name: "empty text part falls to payload body",
			msg: &gmail.Message{Payload: &gmail.MessagePart{
				Body:  &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("top level"))},
				Parts: []*gmail.MessagePart{{MimeType: "text/plain", Body: &gmail.MessagePartBody{}}},
			}},
			want: "top level",
		},
		{
			name: "single part payload",
			msg: &gmail.Message{Payload: &gmail.MessagePart{
				MimeType: "text/plain",
				Body:     &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("plain"))},
			}},
			want: "plain",
		},
		{
			name: "html only falls to snippet",
			msg: &gmail.Message{Snippet: "the snippet", Payload: &gmail.MessagePart{Parts: []*gmail.MessagePart{
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: "PGI-"}},
			}}},
			want: "the snippet",
		},
		{
			name: "undecodable falls to snippet",
			msg: &gmail.Message{Snippet: "fallback", Payload: &gmail.MessagePart{
				Body: &gmail.MessagePartBody{Data: "!!!not base64!!!"},
			}},
			want: "fallback",
		},
		{
			name: "no payload",
			msg:  &gmail.Message{Snippet: "only snippet"},
			want: "only snippet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveBody(tt.msg); got != tt.want {
				t.Errorf("resolveBody = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestFormatInternalDate verifies millisecond parsing.
func TestFormatInternalDate(t *testing.T) {
	if got := formatInternalDate(0); got != "" {
		t.Errorf("zero = %q, want empty", got)
	}
	if got := formatInternalDate(1700000000123); got != "2023-11-14T22:13:20Z" {
		t.Errorf("got %q", got)
	}
}
