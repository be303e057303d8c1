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

package draft

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/config"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
)

// messagesServer stands in for the Anthropic Messages API.
type messagesServer struct {
	mu       sync.Mutex
	requests []messagesRequest
	headers  []http.Header
	status   int
	response string
}

func (m *messagesServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req messagesRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.headers = append(m.headers, r.Header.Clone())
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if m.status != 0 {
		w.WriteHeader(m.status)
	}
	w.Write([]byte(m.response))
}

func (m *messagesServer) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func testEmail() models.EmailDetail {
	return models.EmailDetail{
		ID:      "m1",
		From:    "carol@example.com",
		Subject: "Meeting moved",
		Body:    "Can we meet Thursday instead?",
	}
}

func newTestComposer(t *testing.T, ms *messagesServer, defaultKey string) *Composer {
	t.Helper()
	srv := httptest.NewServer(ms)
	t.Cleanup(srv.Close)
	return NewComposer(NewAnthropic(srv.URL, "", time.Second), defaultKey, 0)
}

// TestGenerate_Text verifies the request shape and the returned text.
func TestGenerate_Text(t *testing.T) {
	ms := &messagesServer{response: `{"content":[{"type":"text","text":"Thursday works."}]}`}
	c := newTestComposer(t, ms, "")

	draft, err := c.Generate(context.Background(), testEmail(), "", "sk-request")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if draft != "Thursday works." {
		t.Errorf("draft = %q", draft)
	}

	if ms.calls() != 1 {
		t.Fatalf("calls = %d, want 1", ms.calls())
	}
	req, h := ms.requests[0], ms.headers[0]
	if req.MaxTokens != 1024 {
		t.Errorf("max_tokens = %d, want 1024", req.MaxTokens)
	}
	if req.Model != defaultAnthropicModel {
		t.Errorf("model = %q", req.Model)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Fatalf("messages = %+v", req.Messages)
	}
	if !strings.Contains(req.Messages[0].Content, "Context/Instructions: "+DefaultInstruction) {
		t.Errorf("prompt missing default instruction:\n%s", req.Messages[0].Content)
	}
	if h.Get("x-api-key") != "sk-request" {
		t.Errorf("x-api-key = %q", h.Get("x-api-key"))
	}
	if h.Get("anthropic-version") != anthropicVersion {
		t.Errorf("anthropic-version = %q", h.Get("anthropic-version"))
	}
}

// TestGenerate_NonTextYieldsEmpty verifies a non-text first block or empty
// content gives an empty draft without error.
func TestGenerate_NonTextYieldsEmpty(t *testing.T) {
	responses := map[string]string{
		"tool use first": `{"content":[{"type":"tool_use","id":"x","name":"f","input":{}},{"type":"text","text":"later"}]}`,
		"empty content":  `{"content":[]}`,
	}

	for name, resp := range responses {
		t.Run(name, func(t *testing.T) {
			c := newTestComposer(t, &messagesServer{response: resp}, "sk-config")

			draft, err := c.Generate(context.Background(), testEmail(), "be brief", "")
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if draft != "" {
				t.Errorf("draft = %q, want empty", draft)
			}
		})
	}
}

// TestGenerate_KeyResolution verifies request keys win, config keys are the
// fallback and a missing key fails before any network call.
func TestGenerate_KeyResolution(t *testing.T) {
	ok := `{"content":[{"type":"text","text":"ok"}]}`

	ms := &messagesServer{response: ok}
	c := newTestComposer(t, ms, "sk-config")
	if _, err := c.Generate(context.Background(), testEmail(), "", "  "); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := ms.headers[0].Get("x-api-key"); got != "sk-config" {
		t.Errorf("x-api-key = %q, want config key", got)
	}

	if _, err := c.Generate(context.Background(), testEmail(), "", "sk-request"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := ms.headers[1].Get("x-api-key"); got != "sk-request" {
		t.Errorf("x-api-key = %q, want request key", got)
	}

	ms = &messagesServer{response: ok}
	c = newTestComposer(t, ms, "")
	_, err := c.Generate(context.Background(), testEmail(), "", "")
	if !errors.Is(err, models.ErrNoAPIKey) {
		t.Fatalf("err = %v, want ErrNoAPIKey", err)
	}
	if !errors.Is(err, models.ErrMissingCredential) {
		t.Error("ErrNoAPIKey should be a missing credential")
	}
	if ms.calls() != 0 {
		t.Errorf("network calls = %d, want 0", ms.calls())
	}
}

// TestGenerate_ProviderError verifies HTTP failures are returned.
func TestGenerate_ProviderError(t *testing.T) {
	ms := &messagesServer{
		status:   http.StatusUnauthorized,
		response: `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
	}
	c := newTestComposer(t, ms, "sk-bad")

	_, err := c.Generate(context.Background(), testEmail(), "", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "authentication_error") {
		t.Errorf("err = %v", err)
	}
	if errors.Is(err, models.ErrMissingCredential) {
		t.Error("provider rejection is not a missing credential")
	}
}

// TestBuildPrompt embeds every field verbatim.
func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(testEmail(), "Decline politely.")

	for _, want := range []string{
		"Context/Instructions: Decline politely.",
		"Email From: carol@example.com",
		"Subject: Meeting moved",
		"Email Body:\nCan we meet Thursday instead?",
		"Only output the reply text itself",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(p, DefaultInstruction) {
		t.Error("default instruction used despite explicit context")
	}
}

// TestNewProvider selects by name.
func TestNewProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantErr  bool
	}{
		{provider: config.ProviderAnthropic, want: "anthropic"},
		{provider: config.ProviderOpenAI, want: "openai"},
		{provider: "", want: "anthropic"},
		{provider: "cohere", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := NewProvider(config.LLMConfig{Provider: tt.provider})
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewProvider: %v", err)
			}
			if p.Name() != tt.want {
				t.Errorf("Name = %q, want %q", p.Name(), tt.want)
			}
		})
	}
}
