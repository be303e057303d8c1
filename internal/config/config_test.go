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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"CONFIG_PATH", "ENVIRONMENT", "BASE_URL", "PORT", "LOG_LEVEL",
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GMAIL_ENDPOINT",
	"LLM_PROVIDER", "LLM_API_KEY", "ANTHROPIC_API_KEY", "LLM_MODEL", "LLM_BASE_URL",
	"SESSION_BACKEND", "REDIS_URL", "EVENTS_QUEUE", "HISTORY_DRIVER", "HISTORY_DSN",
}

// clearEnv blanks every variable Load consults so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestLoad_YAMLWithExpansion verifies ${VAR} expansion and defaults.
func TestLoad_YAMLWithExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_SECRET", "s3cret")
	t.Setenv("CONFIG_PATH", writeConfig(t, `
base_url: https://mail.example.com/
environment: production
google:
  client_id: client-123
  client_secret: ${TEST_SECRET}
llm:
  provider: OpenAI
  model: gpt-4o
history:
  driver: sqlite
  dsn: /tmp/history.db
`))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Google.ClientSecret != "s3cret" {
		t.Errorf("ClientSecret = %q, want s3cret", cfg.Google.ClientSecret)
	}
	if cfg.BaseURL != "https://mail.example.com" {
		t.Errorf("BaseURL = %q, trailing slash should be trimmed", cfg.BaseURL)
	}
	if cfg.RedirectURL() != "https://mail.example.com/auth/callback" {
		t.Errorf("RedirectURL = %q", cfg.RedirectURL())
	}
	if !cfg.Production {
		t.Error("Production = false, want true")
	}
	if cfg.LLM.Provider != ProviderOpenAI {
		t.Errorf("LLM.Provider = %q, want openai", cfg.LLM.Provider)
	}
	if cfg.LLM.MaxTokens != 1024 {
		t.Errorf("LLM.MaxTokens = %d, want 1024", cfg.LLM.MaxTokens)
	}
	if cfg.SessionBackend != SessionCookie {
		t.Errorf("SessionBackend = %q, want cookie", cfg.SessionBackend)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.Monitor.DefaultInterval != 5*time.Minute {
		t.Errorf("Monitor.DefaultInterval = %v, want 5m", cfg.Monitor.DefaultInterval)
	}
}

// TestLoad_EnvOnly verifies that a missing config file falls back to env vars.
func TestLoad_EnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("PORT", "8081")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "sk-ant" {
		t.Errorf("LLM.APIKey = %q, want sk-ant", cfg.LLM.APIKey)
	}
	if cfg.Port != 8081 {
		t.Errorf("Port = %d, want 8081", cfg.Port)
	}
	if cfg.Production {
		t.Error("Production should default to false")
	}
}

// TestLoad_FailsFast verifies that required fields are never silently blanked.
func TestLoad_FailsFast(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "no client credentials",
			env:     map[string]string{},
			wantErr: "google.client_id",
		},
		{
			name: "redis backend without url",
			env: map[string]string{
				"GOOGLE_CLIENT_ID": "id", "GOOGLE_CLIENT_SECRET": "s",
				"SESSION_BACKEND": "redis",
			},
			wantErr: "requires redis.url",
		},
		{
			name: "events queue without redis",
			env: map[string]string{
				"GOOGLE_CLIENT_ID": "id", "GOOGLE_CLIENT_SECRET": "s",
				"EVENTS_QUEUE": "replydesk:events",
			},
			wantErr: "events.queue requires redis.url",
		},
		{
			name: "postgres without dsn",
			env: map[string]string{
				"GOOGLE_CLIENT_ID": "id", "GOOGLE_CLIENT_SECRET": "s",
				"HISTORY_DRIVER": "postgres",
			},
			wantErr: "requires history.dsn",
		},
		{
			name: "unknown provider",
			env: map[string]string{
				"GOOGLE_CLIENT_ID": "id", "GOOGLE_CLIENT_SECRET": "s",
				"LLM_PROVIDER": "parrot",
			},
			wantErr: "unknown llm provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

// TestLoad_InvalidYAML verifies parse errors are reported.
func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", writeConfig(t, "google: [unclosed"))

	if _, err := Load(); err == nil {
		t.Fatal("expected YAML parse error")
	}
}

func TestRead_SkipsValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_PATH", writeConfig(t, "llm:\n  provider: openai\n  model: gpt-4o-mini\n"))

	if _, err := Load(); err == nil {
		t.Fatal("Load should reject missing client credentials")
	}
	cfg, err := Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if cfg.LLM.Provider != ProviderOpenAI || cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
}
