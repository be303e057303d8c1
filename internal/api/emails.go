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

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/monitor"
)

type generateDraftRequest struct {
	EmailID string `json:"emailId"`
	Context string `json:"context"`
}

type sendReplyRequest struct {
	EmailID  string `json:"emailId"`
	ThreadID string `json:"threadId"`
	Draft    string `json:"draft"`
}

type monitorRequest struct {
	Enabled   bool    `json:"enabled"`
	AutoReply bool    `json:"autoReply"`
	Interval  float64 `json:"interval"`
	Context   string  `json:"context"`
}

type monitorResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Enabled   bool   `json:"enabled"`
	AutoReply bool   `json:"autoReply"`
	Interval  int    `json:"interval"`
}

func (s *Server) handleListEmails(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	emails, err := s.assistant.ListEmails(r.Context(), creds)
	if err != nil {
		writeOpError(w, r, err, "Failed to fetch emails")
		return
	}
	if emails == nil {
		emails = []models.EmailSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"emails": emails})
}

func (s *Server) handleGenerateDraft(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req generateDraftRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.EmailID) == "" {
		writeError(w, http.StatusBadRequest, "emailId is required")
		return
	}

	draft, err := s.assistant.GenerateDraft(r.Context(), creds, req.EmailID, req.Context, r.Header.Get("x-api-key"))
	if err != nil {
		writeOpError(w, r, err, "Failed to generate draft")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"draft":  draft,
		"status": models.StatusDraft,
	})
}

func (s *Server) handleSendReply(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	var req sendReplyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.EmailID) == "" || strings.TrimSpace(req.Draft) == "" {
		writeError(w, http.StatusBadRequest, "emailId and draft are required")
		return
	}

	res, err := s.assistant.SendReply(r.Context(), creds, req.EmailID, req.ThreadID, req.Draft)
	if err != nil {
		writeOpError(w, r, err, "Failed to send reply")
		return
	}

	resp := map[string]any{
		"success":    true,
		"status":     models.StatusAutoReplied,
		"markedRead": res.MarkedRead,
	}
	if res.MarkReadErr != nil {
		resp["warning"] = "Reply sent but the original could not be marked as read"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConfigureMonitor(w http.ResponseWriter, r *http.Request) {
	var req monitorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Interval < 0 {
		writeError(w, http.StatusBadRequest, "interval must be positive")
		return
	}
	if req.Interval > monitor.MaxInterval.Minutes() {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("interval must be at most %d minutes", int(monitor.MaxInterval.Minutes())))
		return
	}

	creds, err := s.sessions.Load(r)
	if err != nil && req.Enabled {
		writeOpError(w, r, err, "Failed to configure monitoring")
		return
	}

	settings, err := s.assistant.ConfigureMonitor(creds, monitor.Settings{
		Enabled:   req.Enabled,
		AutoReply: req.AutoReply,
		Interval:  time.Duration(req.Interval * float64(time.Minute)),
		Context:   req.Context,
	})
	if err != nil {
		writeOpError(w, r, err, "Failed to configure monitoring")
		return
	}

	writeJSON(w, http.StatusOK, monitorBody(settings))
}

func (s *Server) handleMonitorStatus(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	settings, running := s.assistant.Monitor().Status(creds.SessionID)
	if !running {
		settings = s.assistant.Monitor().Normalize(monitor.Settings{})
	}
	writeJSON(w, http.StatusOK, monitorBody(settings))
}

func monitorBody(s monitor.Settings) monitorResponse {
	minutes := int(s.Interval / time.Minute)
	state := "disabled"
	if s.Enabled {
		state = "enabled"
	}
	return monitorResponse{
		Success:   true,
		Message:   fmt.Sprintf("Monitoring %s. Auto-reply: %t. Checking every %d minutes.", state, s.AutoReply, minutes),
		Enabled:   s.Enabled,
		AutoReply: s.AutoReply,
		Interval:  minutes,
	}
}

func (s *Server) handleReplies(w http.ResponseWriter, r *http.Request) {
	creds, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	replies, err := s.assistant.RecentReplies(r.Context(), creds, limit)
	if err != nil {
		writeOpError(w, r, err, "Failed to load reply history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"replies": replies})
}
