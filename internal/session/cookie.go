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

package session

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
	// ExpiryCookie carries the access token expiry as Unix seconds.
	ExpiryCookie = "access_expiry"
)

// CookieStore keeps both tokens and the access expiry in HttpOnly cookies.
// The browser expires the access cookie at the provider expiry, so presence
// means "not yet expired locally". Nothing is validated against the provider.
type CookieStore struct {
	secure bool
	now    func() time.Time
}

// NewCookieStore creates a cookie-backed store. secure marks cookies Secure
// and should be set in production.
func NewCookieStore(secure bool) *CookieStore {
	return &CookieStore{secure: secure, now: time.Now}
}

func (s *CookieStore) Load(r *http.Request) (models.Credentials, error) {
	access, err := r.Cookie(AccessCookie)
	if err != nil || access.Value == "" {
		return models.Credentials{}, models.ErrNoSession
	}

	creds := models.Credentials{
		SessionID:   cookieSessionID(access.Value),
		AccessToken: access.Value,
	}
	if exp, err := r.Cookie(ExpiryCookie); err == nil {
		// An unreadable expiry leaves Expiry zero; the browser still drops
		// the access cookie on time.
		if secs, err := strconv.ParseInt(exp.Value, 10, 64); err == nil {
			creds.Expiry = time.Unix(secs, 0).UTC()
			if !s.now().Before(creds.Expiry) {
				return models.Credentials{}, models.ErrNoSession
			}
		}
	}
	if refresh, err := r.Cookie(RefreshCookie); err == nil {
		creds.RefreshToken = refresh.Value
	}
	return creds, nil
}

func (s *CookieStore) Save(w http.ResponseWriter, _ *http.Request, c models.Credentials) error {
	if !c.Valid() {
		return fmt.Errorf("save session: %w", ErrPartialCredentials)
	}

	now := s.now()
	maxAge := accessMaxAge(c.Expiry, now)
	expiry := now.Add(time.Duration(maxAge) * time.Second)

	http.SetCookie(w, newCookie(AccessCookie, c.AccessToken, maxAge, s.secure))
	http.SetCookie(w, newCookie(ExpiryCookie, strconv.FormatInt(expiry.Unix(), 10), maxAge, s.secure))
	if c.RefreshToken != "" {
		http.SetCookie(w, newCookie(RefreshCookie, c.RefreshToken, int(RefreshRetention.Seconds()), s.secure))
	}
	return nil
}

func (s *CookieStore) Clear(w http.ResponseWriter, _ *http.Request) error {
	expireCookie(w, AccessCookie, s.secure)
	expireCookie(w, ExpiryCookie, s.secure)
	expireCookie(w, RefreshCookie, s.secure)
	return nil
}

// cookieSessionID derives a stable identifier from the access token so the
// token itself never appears in logs or map keys.
func cookieSessionID(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return hex.EncodeToString(sum[:8])
}
