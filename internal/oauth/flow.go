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

// Package oauth drives the Google authorization-code flow that gates every
// mail operation: it builds the consent URL and exchanges the returned code
// for session credentials.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/config"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
)

// DefaultTokenLifetime applies when the token endpoint omits expires_in.
const DefaultTokenLifetime = 3600 * time.Second

// Scopes is the fixed scope set requested on every login.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailSendScope,
	gmail.GmailModifyScope,
}

// Flow builds authorization URLs and exchanges codes for one OAuth client.
type Flow struct {
	oauth *oauth2.Config
	now   func() time.Time
}

// NewFlow creates a flow for the configured Google OAuth client.
func NewFlow(cfg *config.Config) *Flow {
	endpoint := google.Endpoint
	if cfg.Google.AuthURL != "" {
		endpoint.AuthURL = cfg.Google.AuthURL
	}
	if cfg.Google.TokenURL != "" {
		endpoint.TokenURL = cfg.Google.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &Flow{
		oauth: &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.RedirectURL(),
			Scopes:       Scopes,
			Endpoint:     endpoint,
		},
		now: time.Now,
	}
}

// BuildAuthorizationURL returns the consent URL. access_type=offline and
// prompt=consent force a refresh token on every login. The result depends
// only on configuration and state.
func (f *Flow) BuildAuthorizationURL(state string) string {
	return f.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for credentials. Any failure,
// including a response without access_token, wraps models.ErrAuthExchange.
// The provider payload is logged, never returned.
func (f *Flow) ExchangeCode(ctx context.Context, code string) (models.Credentials, error) {
	if code == "" {
		return models.Credentials{}, fmt.Errorf("%w: empty code", models.ErrAuthExchange)
	}

	tok, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			slog.Warn("token endpoint rejected code exchange",
				"status", re.Response.StatusCode,
				"error_code", re.ErrorCode,
			)
		} else {
			slog.Warn("code exchange failed", "error", err)
		}
		return models.Credentials{}, fmt.Errorf("%w: %v", models.ErrAuthExchange, err)
	}

	if tok.AccessToken == "" {
		return models.Credentials{}, fmt.Errorf("%w: no access token received", models.ErrAuthExchange)
	}

	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = f.now().Add(DefaultTokenLifetime)
	}

	return models.Credentials{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       expiry,
	}, nil
}

// NewState returns a random CSRF state value for the consent redirect.
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
