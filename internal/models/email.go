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

// Package models defines the data structures shared across the reply assistant.
package models

import "time"

// Status is the client-local classification of an unread message.
type Status string

const (
	StatusNeedsAttention Status = "needs-attention"
	StatusDraft          Status = "draft"
	StatusAutoReplied    Status = "auto-replied"
)

// NoSubject is shown when a message carries no Subject header.
const NoSubject = "(No Subject)"

// Credentials holds the OAuth bearer artifacts for one browser session.
type Credentials struct {
	SessionID    string    `json:"-"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	Expiry       time.Time `json:"expiry"`
}

// Valid reports whether an access token is present. It says nothing about
// whether the provider still accepts it.
func (c Credentials) Valid() bool {
	return c.AccessToken != ""
}

// EmailSummary is one row of the unread list.
type EmailSummary struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
	Snippet  string `json:"snippet"`
	Date     string `json:"date"`
	Status   Status `json:"status"`
	Draft    string `json:"draft,omitempty"`
}

// EmailDetail is a single fetched message with the fields needed to compose
// and thread a reply.
type EmailDetail struct {
	ID         string `json:"id"`
	ThreadID   string `json:"threadId"`
	From       string `json:"from"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Snippet    string `json:"snippet"`
	MessageID  string `json:"messageId"`
	References string `json:"references"`
}

// SentReply records a reply that went out through the provider.
type SentReply struct {
	Account    string    `json:"account"`
	MessageID  string    `json:"messageId"`
	ThreadID   string    `json:"threadId"`
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Auto       bool      `json:"auto"`
	MarkedRead bool      `json:"markedRead"`
	SentAt     time.Time `json:"sentAt"`
}
