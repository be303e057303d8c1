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

// Package gmailtest runs an in-process stand-in for the Gmail REST endpoints
// the gateway uses.
package gmailtest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"google.golang.org/api/gmail/v1"
)

// SentMessage is one recorded send call.
type SentMessage struct {
	Raw      string
	ThreadID string
}

// Server is a fake Gmail API. Messages carrying the UNREAD label are listed
// in insertion order.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	token    string
	address  string
	messages []*gmail.Message
	delays   map[string]time.Duration
	failures map[string]int
	sent     []SentMessage
	modified []string
	gets     int
}

// NewServer starts a fake that accepts only the given bearer token. It is
// closed when the test finishes.
func NewServer(t testing.TB, token string) *Server {
	t.Helper()

	s := &Server{
		token:    token,
		address:  "me@example.com",
		delays:   make(map[string]time.Duration),
		failures: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /gmail/v1/users/{user}/messages", s.handleList)
	mux.HandleFunc("GET /gmail/v1/users/{user}/messages/{id}", s.handleGet)
	mux.HandleFunc("POST /gmail/v1/users/{user}/messages/send", s.handleSend)
	mux.HandleFunc("POST /gmail/v1/users/{user}/messages/{id}/modify", s.handleModify)
	mux.HandleFunc("GET /gmail/v1/users/{user}/profile", s.handleProfile)

	s.Server = httptest.NewServer(s.authorize(mux))
	t.Cleanup(s.Close)
	return s
}

// Endpoint is the base URL to hand to gmail.NewGateway.
func (s *Server) Endpoint() string {
	return s.URL + "/"
}

// AddMessage appends a message to the mailbox.
func (s *Server) AddMessage(m *gmail.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, m)
}

// SetDelay makes fetching message id take at least d.
func (s *Server) SetDelay(id string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[id] = d
}

// Fail makes every call of the named operation ("list", "get", "send",
// "modify", "profile") answer with status.
func (s *Server) Fail(op string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = status
}

// SetToken changes the accepted bearer token.
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Sent returns the recorded send calls.
func (s *Server) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sent)
}

// Modified returns the ids whose UNREAD label was removed.
func (s *Server) Modified() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.modified)
}

// Gets returns how many single-message fetches were served.
func (s *Server) Gets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		want := "Bearer " + s.token
		s.mu.Unlock()

		if r.Header.Get("Authorization") != want {
			writeError(w, http.StatusUnauthorized, "Invalid Credentials")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) failure(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[op]
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if code := s.failure("list"); code != 0 {
		writeError(w, code, "list failed")
		return
	}

	s.mu.Lock()
	resp := &gmail.ListMessagesResponse{}
	for _, m := range s.messages {
		if slices.Contains(m.LabelIds, "UNREAD") {
			resp.Messages = append(resp.Messages, &gmail.Message{Id: m.Id, ThreadId: m.ThreadId})
		}
	}
	s.mu.Unlock()

	resp.ResultSizeEstimate = int64(len(resp.Messages))
	writeJSON(w, resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	s.gets++
	delay := s.delays[id]
	var msg *gmail.Message
	if found := s.find(id); found != nil {
		cp := *found
		cp.LabelIds = slices.Clone(found.LabelIds)
		msg = &cp
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if code := s.failure("get"); code != 0 {
		writeError(w, code, "get failed")
		return
	}
	if msg == nil {
		writeError(w, http.StatusNotFound, "Requested entity was not found.")
		return
	}
	writeJSON(w, msg)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if code := s.failure("send"); code != 0 {
		writeError(w, code, "send failed")
		return
	}

	var m gmail.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	s.sent = append(s.sent, SentMessage{Raw: m.Raw, ThreadID: m.ThreadId})
	n := len(s.sent)
	s.mu.Unlock()

	writeJSON(w, &gmail.Message{Id: fmt.Sprintf("sent-%d", n), ThreadId: m.ThreadId})
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	if code := s.failure("modify"); code != 0 {
		writeError(w, code, "modify failed")
		return
	}

	id := r.PathValue("id")
	var req gmail.ModifyMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.find(id)
	if msg == nil {
		writeError(w, http.StatusNotFound, "Requested entity was not found.")
		return
	}
	msg.LabelIds = slices.DeleteFunc(slices.Clone(msg.LabelIds), func(l string) bool {
		return slices.Contains(req.RemoveLabelIds, l)
	})
	s.modified = append(s.modified, id)
	writeJSON(w, &gmail.Message{Id: msg.Id, ThreadId: msg.ThreadId, LabelIds: msg.LabelIds})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if code := s.failure("profile"); code != 0 {
		writeError(w, code, "profile failed")
		return
	}
	s.mu.Lock()
	addr := s.address
	s.mu.Unlock()
	writeJSON(w, &gmail.Profile{EmailAddress: addr})
}

// find must be called with s.mu held.
func (s *Server) find(id string) *gmail.Message {
	for _, m := range s.messages {
		if m.Id == id {
			return m
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

// Message builds an unread message with a single text/plain part.
func Message(id, threadID, from, subject, body string, receivedMs int64) *gmail.Message {
	headers := []*gmail.MessagePartHeader{
		{Name: "From", Value: from},
		{Name: "Message-ID", Value: "<" + id + "@mail.example.com>"},
	}
	if subject != "" {
		headers = append(headers, &gmail.MessagePartHeader{Name: "Subject", Value: subject})
	}

	return &gmail.Message{
		Id:           id,
		ThreadId:     threadID,
		LabelIds:     []string{"UNREAD", "INBOX"},
		Snippet:      snippet(body),
		InternalDate: receivedMs,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers:  headers,
			Parts: []*gmail.MessagePart{
				{
					MimeType: "text/plain",
					Body:     &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte(body))},
				},
				{
					MimeType: "text/html",
					Body:     &gmail.MessagePartBody{Data: base64.URLEncoding.EncodeToString([]byte("<p>" + body + "</p>"))},
				},
			},
		},
	}
}

func snippet(body string) string {
	if len(body) > 40 {
		return body[:40]
	}
	return body
}
