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

// Package reply builds threaded RFC 5322 replies and sends them through the
// mail gateway.
package reply

import (
	"encoding/base64"
	"strings"
)

const (
	replyPrefix = "Re:"
	crlf        = "\r\n"
)

// ReplySubject prefixes "Re: " unless subject already starts with the
// literal, case-sensitive "Re:".
func ReplySubject(subject string) string {
	if strings.HasPrefix(subject, replyPrefix) {
		return subject
	}
	return replyPrefix + " " + subject
}

// BuildMessage assembles a plain-text reply. References falls back to
// inReplyTo when the original carried none.
func BuildMessage(to, subject, body, inReplyTo, references string) []byte {
	if references == "" {
		references = inReplyTo
	}

	lines := []string{
		"To: " + to,
		"Subject: " + ReplySubject(subject),
		"In-Reply-To: " + inReplyTo,
		"References: " + references,
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}
	return []byte(strings.Join(lines, crlf))
}

var urlAlphabet = strings.NewReplacer("+", "-", "/", "_")

// Encode produces the raw field Gmail expects: base64 with the URL alphabet
// and no padding.
func Encode(msg []byte) string {
	std := base64.StdEncoding.EncodeToString(msg)
	return strings.TrimRight(urlAlphabet.Replace(std), "=")
}
