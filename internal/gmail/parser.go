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
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
)

// header returns the first header matching name, case-insensitively.
func header(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func payloadHeaders(msg *gmail.Message) []*gmail.MessagePartHeader {
	if msg.Payload == nil {
		return nil
	}
	return msg.Payload.Headers
}

func summaryFromMessage(msg *gmail.Message) models.EmailSummary {
	headers := payloadHeaders(msg)

	subject := header(headers, "Subject")
	if subject == "" {
		subject = models.NoSubject
	}

	return models.EmailSummary{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		From:     header(headers, "From"),
		Subject:  subject,
		Snippet:  msg.Snippet,
		Date:     formatInternalDate(msg.InternalDate),
		Status:   models.StatusNeedsAttention,
	}
}

func detailFromMessage(msg *gmail.Message) models.EmailDetail {
	headers := payloadHeaders(msg)

	return models.EmailDetail{
		ID:         msg.Id,
		ThreadID:   msg.ThreadId,
		From:       header(headers, "From"),
		Subject:    header(headers, "Subject"),
		Body:       resolveBody(msg),
		Snippet:    msg.Snippet,
		MessageID:  header(headers, "Message-ID"),
		References: header(headers, "References"),
	}
}

// resolveBody prefers the first text/plain part, then the payload body, then
// the snippet.
func resolveBody(msg *gmail.Message) string {
	p := msg.Payload
	if p == nil {
		return msg.Snippet
	}

	for _, part := range p.Parts {
		if part.MimeType != "text/plain" {
			continue
		}
		if part.Body != nil && part.Body.Data != "" {
			if text, ok := decodeData(part.Body.Data, msg.Id); ok {
				return text
			}
		}
		break
	}

	if p.Body != nil && p.Body.Data != "" {
		if text, ok := decodeData(p.Body.Data, msg.Id); ok {
			return text
		}
	}

	return msg.Snippet
}

var toURLAlphabet = strings.NewReplacer("+", "-", "/", "_", "\r", "", "\n", "")

// decodeData accepts base64url or standard base64, padded or not.
func decodeData(data, messageID string) (string, bool) {
	normalized := strings.TrimRight(toURLAlphabet.Replace(data), "=")
	b, err := base64.RawURLEncoding.DecodeString(normalized)
	if err != nil {
		slog.Warn("undecodable body data, falling back", "message_id", messageID, "error", err)
		return "", false
	}
	return string(b), true
}

// formatInternalDate renders Gmail's epoch-millisecond receive time.
func formatInternalDate(ms int64) string {
	if ms <= 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
