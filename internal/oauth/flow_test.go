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

package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/config"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
)

func testConfig(tokenURL string) *config.Config {
	return &config.Config{
		BaseURL: "http://localhost:3000",
		Google: config.GoogleConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			TokenURL:     tokenURL,
		},
	}
}

// TestProperty_AuthorizationURLScopes checks that every generated URL carries
// exactly the three fixed scopes plus offline access and forced consent,
// whatever the client id and base URL.
func TestProperty_AuthorizationURLScopes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	want := append([]string(nil), Scopes...)
	sort.Strings(want)

	properties.Property("fixed_scopes_offline_consent", prop.ForAll(
		func(clientID, host, state string) bool {
			cfg := &config.Config{
				BaseURL: "https://" + host + ".example.com",
				Google:  config.GoogleConfig{ClientID: clientID, ClientSecret: "x"},
			}
			raw := NewFlow(cfg).BuildAuthorizationURL(state)

			u, err := url.Parse(raw)
			if err != nil {
				return false
			}
			q := u.Query()

			got := strings.Fields(q.Get("scope"))
			sort.Strings(got)
			if strings.Join(got, " ") != strings.Join(want, " ") {
				return false
			}
			return q.Get("access_type") == "offline" &&
				q.Get("prompt") == "consent" &&
				q.Get("response_type") == "code" &&
				q.Get("client_id") == clientID &&
				q.Get("redirect_uri") == cfg.BaseURL+"/auth/callback"
		},
		gen.AlphaString(),
		gen.Identifier(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestBuildAuthorizationURL_Deterministic verifies the URL is a pure function
// of configuration and state.
func TestBuildAuthorizationURL_Deterministic(t *testing.T) {
	f := NewFlow(testConfig(""))
	a := f.BuildAuthorizationURL("state-1")
	b := f.BuildAuthorizationURL("state-1")
	if a != b {
		t.Errorf("URLs differ:\n%s\n%s", a, b)
	}
	if !strings.HasPrefix(a, "https://accounts.google.com/o/oauth2/") {
		t.Errorf("unexpected auth endpoint: %s", a)
	}
}

// tokenServer records the form posted to the token endpoint.
type tokenServer struct {
	mu    sync.Mutex
	forms []url.Values
	body  string
	code  int
}

func (ts *tokenServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	ts.mu.Lock()
	ts.forms = append(ts.forms, r.PostForm)
	ts.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if ts.code != 0 {
		w.WriteHeader(ts.code)
	}
	w.Write([]byte(ts.body))
}

// TestExchangeCode_Success verifies the posted form and the credential mapping.
func TestExchangeCode_Success(t *testing.T) {
	ts := &tokenServer{body: `{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":120}`}
	server := httptest.NewServer(ts)
	defer server.Close()

	f := NewFlow(testConfig(server.URL))
	before := time.Now()

	creds, err := f.ExchangeCode(context.Background(), "code-xyz")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}

	if creds.AccessToken != "at-1" || creds.RefreshToken != "rt-1" {
		t.Errorf("credentials = %+v", creds)
	}
	if d := creds.Expiry.Sub(before); d < 110*time.Second || d > 130*time.Second {
		t.Errorf("expiry in %v, want ~120s", d)
	}

	if len(ts.forms) != 1 {
		t.Fatalf("token endpoint called %d times, want 1", len(ts.forms))
	}
	form := ts.forms[0]
	checks := map[string]string{
		"grant_type":    "authorization_code",
		"code":          "code-xyz",
		"client_id":     "client-id",
		"client_secret": "client-secret",
		"redirect_uri":  "http://localhost:3000/auth/callback",
	}
	for k, v := range checks {
		if form.Get(k) != v {
			t.Errorf("form[%s] = %q, want %q", k, form.Get(k), v)
		}
	}
}

// TestExchangeCode_DefaultExpiry verifies the 3600s fallback.
func TestExchangeCode_DefaultExpiry(t *testing.T) {
	ts := &tokenServer{body: `{"access_token":"at-2","token_type":"Bearer"}`}
	server := httptest.NewServer(ts)
	defer server.Close()

	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFlow(testConfig(server.URL))
	f.now = func() time.Time { return fixed }

	creds, err := f.ExchangeCode(context.Background(), "code")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if !creds.Expiry.Equal(fixed.Add(time.Hour)) {
		t.Errorf("expiry = %v, want %v", creds.Expiry, fixed.Add(time.Hour))
	}
	if creds.RefreshToken != "" {
		t.Errorf("refresh token = %q, want empty", creds.RefreshToken)
	}
}

// TestExchangeCode_Failures verifies that every failure maps to
// ErrAuthExchange and yields empty credentials.
func TestExchangeCode_Failures(t *testing.T) {
	tests := []struct {
		name string
		code string
		ts   *tokenServer
	}{
		{name: "missing access token", code: "c", ts: &tokenServer{body: `{"token_type":"Bearer","expires_in":3600}`}},
		{name: "provider error", code: "c", ts: &tokenServer{code: http.StatusBadRequest, body: `{"error":"invalid_grant"}`}},
		{name: "empty code", code: "", ts: &tokenServer{body: `{"access_token":"never"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.ts)
			defer server.Close()

			creds, err := NewFlow(testConfig(server.URL)).ExchangeCode(context.Background(), tt.code)
			if !errors.Is(err, models.ErrAuthExchange) {
				t.Fatalf("err = %v, want ErrAuthExchange", err)
			}
			if creds.Valid() || creds.RefreshToken != "" {
				t.Errorf("partial credentials returned: %+v", creds)
			}
		})
	}
}

// TestNewState verifies states are random and URL-safe.
func TestNewState(t *testing.T) {
	s1, err := NewState()
	if err != nil {
		t.Fatalf("NewState: %v", err)
	}
	s2, _ := NewState()
	if s1 == s2 {
		t.Error("two states should differ")
	}
	if strings.ContainsAny(s1, "+/=") {
		t.Errorf("state %q is not base64url", s1)
	}
}
