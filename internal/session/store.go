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

// Package session keeps the OAuth credentials of one browser session. Handlers
// receive a Store and never touch cookies directly.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
)

const (
	// RefreshRetention is the fixed local lifetime of a refresh token.
	RefreshRetention = 30 * 24 * time.Hour

	// DefaultAccessLifetime applies when credentials carry no expiry.
	DefaultAccessLifetime = time.Hour
)

// ErrPartialCredentials is returned by Save when no access token is present.
var ErrPartialCredentials = errors.New("refusing to save credentials without access token")

// Store loads and persists credentials for the session behind a request.
type Store interface {
	// Load returns the session's credentials or models.ErrNoSession.
	Load(r *http.Request) (models.Credentials, error)
	// Save stores credentials and writes whatever cookies the backend needs.
	Save(w http.ResponseWriter, r *http.Request, c models.Credentials) error
	// Clear forgets the session.
	Clear(w http.ResponseWriter, r *http.Request) error
}

// accessMaxAge converts an absolute expiry into a cookie Max-Age.
func accessMaxAge(expiry, now time.Time) int {
	if expiry.IsZero() {
		return int(DefaultAccessLifetime.Seconds())
	}
	secs := int(expiry.Sub(now).Seconds())
	if secs <= 0 {
		return int(DefaultAccessLifetime.Seconds())
	}
	return secs
}

func newCookie(name, value string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func expireCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, newCookie(name, "", -1, secure))
}
