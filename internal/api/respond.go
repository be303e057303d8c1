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
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
)

const (
	msgNotAuthenticated = "Not authenticated"
	msgNoAPIKey         = "Language model API key not provided"
	msgInvalidJSON      = "invalid JSON"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeOpError maps an operation error onto a status code. Only the generic
// fallback message reaches the client; the error itself is logged.
func writeOpError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrNoSession):
		writeError(w, http.StatusUnauthorized, msgNotAuthenticated)
	case errors.Is(err, models.ErrNoAPIKey):
		writeError(w, http.StatusBadRequest, msgNoAPIKey)
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// decodeBody reads a JSON request body into v, answering 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	return true
}

// requireSession loads credentials or answers 401.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (models.Credentials, bool) {
	creds, err := s.sessions.Load(r)
	if err != nil {
		if !errors.Is(err, models.ErrNoSession) {
			slog.Error("session lookup failed", "error", err)
		}
		writeError(w, http.StatusUnauthorized, msgNotAuthenticated)
		return models.Credentials{}, false
	}
	return creds, true
}
