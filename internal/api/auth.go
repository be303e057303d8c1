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
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/oauth"
)

const (
	stateCookie = "oauth_state"
	stateMaxAge = 600
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := oauth.NewState()
	if err != nil {
		slog.Error("failed to create oauth state", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"url": s.assistant.LoginURL(state)})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("code")
	if code == "" {
		redirectWithError(w, r, "no_code")
		return
	}

	if c, err := r.Cookie(stateCookie); err == nil && c.Value != "" {
		http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth", MaxAge: -1, HttpOnly: true, Secure: s.secure})
		if q.Get("state") != c.Value {
			slog.Warn("oauth state mismatch on callback")
			redirectWithError(w, r, "invalid_state")
			return
		}
	}

	creds, err := s.assistant.CompleteLogin(r.Context(), code)
	if err != nil {
		slog.Error("oauth callback failed", "error", err)
		redirectWithError(w, r, "auth_failed")
		return
	}

	if err := s.sessions.Save(w, r, creds); err != nil {
		slog.Error("failed to save session", "error", err)
		redirectWithError(w, r, "auth_failed")
		return
	}

	slog.Info("user authenticated", "has_refresh_token", creds.RefreshToken != "")
	http.Redirect(w, r, "/", http.StatusFound)
}

func redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/?error="+url.QueryEscape(code), http.StatusFound)
}

// handleStatus reports whether an access token is held. The token is not
// validated with Google.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	_, err := s.sessions.Load(r)
	if err != nil && !errors.Is(err, models.ErrNoSession) {
		slog.Error("session lookup failed", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": err == nil})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if creds, err := s.sessions.Load(r); err == nil {
		s.assistant.Logout(creds)
	}
	if err := s.sessions.Clear(w, r); err != nil {
		slog.Error("failed to clear session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
