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

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SessionCookie = "cookie"
	SessionRedis  = "redis"

	HistoryNone     = ""
	HistoryPostgres = "postgres"
	HistorySQLite   = "sqlite"

	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// GoogleConfig holds the OAuth client registered with Google.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	// GmailEndpoint overrides the Gmail API base URL (emulators, tests).
	GmailEndpoint string
	// AuthURL and TokenURL override the Google OAuth endpoints.
	AuthURL  string
	TokenURL string
}

// LLMConfig selects and configures the draft provider.
type LLMConfig struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// MonitorConfig bounds the background inbox monitor.
type MonitorConfig struct {
	DefaultInterval time.Duration
	MinInterval     time.Duration
	DedupTTL        time.Duration
}

// Config holds all configuration for the reply assistant.
type Config struct {
	BaseURL    string
	Port       int
	Production bool
	LogLevel   string

	Google  GoogleConfig
	LLM     LLMConfig
	Monitor MonitorConfig

	SessionBackend string
	RedisURL       string
	// EventsQueue, when set, mirrors monitor events onto this Redis list.
	EventsQueue string

	HistoryDriver string
	HistoryDSN    string
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	BaseURL     string `yaml:"base_url"`
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	Google      struct {
		ClientID      string `yaml:"client_id"`
		ClientSecret  string `yaml:"client_secret"`
		GmailEndpoint string `yaml:"gmail_endpoint"`
		AuthURL       string `yaml:"auth_url"`
		TokenURL      string `yaml:"token_url"`
	} `yaml:"google"`
	LLM struct {
		Provider  string `yaml:"provider"`
		APIKey    string `yaml:"api_key"`
		Model     string `yaml:"model"`
		BaseURL   string `yaml:"base_url"`
		MaxTokens int    `yaml:"max_tokens"`
		Timeout   string `yaml:"timeout"`
	} `yaml:"llm"`
	Session struct {
		Backend string `yaml:"backend"`
	} `yaml:"session"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Events struct {
		Queue string `yaml:"queue"`
	} `yaml:"events"`
	History struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"history"`
	Monitor struct {
		DefaultInterval string `yaml:"default_interval"`
		MinInterval     string `yaml:"min_interval"`
		DedupTTL        string `yaml:"dedup_ttl"`
	} `yaml:"monitor"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// applies environment overrides. A missing config file is not an error.
// The result is validated once; callers should exit on error.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for tools that need only part of the
// configuration.
func Read() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "config.yaml")

	var raw rawConfig
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	return fromRaw(raw), nil
}

func fromRaw(raw rawConfig) *Config {
	environment := firstNonEmpty(os.Getenv("ENVIRONMENT"), raw.Environment, "development")

	cfg := &Config{
		BaseURL:    strings.TrimSuffix(firstNonEmpty(os.Getenv("BASE_URL"), raw.BaseURL, "http://localhost:3000"), "/"),
		Port:       envOrDefaultInt("PORT", orInt(raw.Port, 3000)),
		Production: strings.EqualFold(environment, "production"),
		LogLevel:   strings.ToLower(firstNonEmpty(os.Getenv("LOG_LEVEL"), raw.LogLevel, "info")),
		Google: GoogleConfig{
			ClientID:      firstNonEmpty(os.Getenv("GOOGLE_CLIENT_ID"), raw.Google.ClientID),
			ClientSecret:  firstNonEmpty(os.Getenv("GOOGLE_CLIENT_SECRET"), raw.Google.ClientSecret),
			GmailEndpoint: firstNonEmpty(os.Getenv("GMAIL_ENDPOINT"), raw.Google.GmailEndpoint),
			AuthURL:       raw.Google.AuthURL,
			TokenURL:      raw.Google.TokenURL,
		},
		LLM: LLMConfig{
			Provider:  strings.ToLower(firstNonEmpty(os.Getenv("LLM_PROVIDER"), raw.LLM.Provider, ProviderAnthropic)),
			APIKey:    firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("ANTHROPIC_API_KEY"), raw.LLM.APIKey),
			Model:     firstNonEmpty(os.Getenv("LLM_MODEL"), raw.LLM.Model),
			BaseURL:   firstNonEmpty(os.Getenv("LLM_BASE_URL"), raw.LLM.BaseURL),
			MaxTokens: orInt(raw.LLM.MaxTokens, 1024),
			Timeout:   parseDurationOr(raw.LLM.Timeout, 60*time.Second),
		},
		Monitor: MonitorConfig{
			DefaultInterval: parseDurationOr(raw.Monitor.DefaultInterval, 5*time.Minute),
			MinInterval:     parseDurationOr(raw.Monitor.MinInterval, time.Minute),
			DedupTTL:        parseDurationOr(raw.Monitor.DedupTTL, 7*24*time.Hour),
		},
		SessionBackend: strings.ToLower(firstNonEmpty(os.Getenv("SESSION_BACKEND"), raw.Session.Backend, SessionCookie)),
		RedisURL:       firstNonEmpty(os.Getenv("REDIS_URL"), raw.Redis.URL),
		EventsQueue:    firstNonEmpty(os.Getenv("EVENTS_QUEUE"), raw.Events.Queue),
		HistoryDriver:  strings.ToLower(firstNonEmpty(os.Getenv("HISTORY_DRIVER"), raw.History.Driver)),
		HistoryDSN:     firstNonEmpty(os.Getenv("HISTORY_DSN"), raw.History.DSN),
	}

	return cfg
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	var missing []string
	if c.Google.ClientID == "" {
		missing = append(missing, "google.client_id (GOOGLE_CLIENT_ID)")
	}
	if c.Google.ClientSecret == "" {
		missing = append(missing, "google.client_secret (GOOGLE_CLIENT_SECRET)")
	}
	if c.BaseURL == "" {
		missing = append(missing, "base_url (BASE_URL)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	switch c.SessionBackend {
	case SessionCookie:
	case SessionRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("session backend %q requires redis.url (REDIS_URL)", c.SessionBackend)
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.SessionBackend)
	}

	if c.EventsQueue != "" && c.RedisURL == "" {
		return fmt.Errorf("events.queue requires redis.url (REDIS_URL)")
	}

	switch c.HistoryDriver {
	case HistoryNone:
	case HistoryPostgres, HistorySQLite:
		if c.HistoryDriver == HistoryPostgres && c.HistoryDSN == "" {
			return fmt.Errorf("history driver %q requires history.dsn (HISTORY_DSN)", c.HistoryDriver)
		}
	default:
		return fmt.Errorf("unknown history driver %q", c.HistoryDriver)
	}

	switch c.LLM.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Monitor.MinInterval <= 0 || c.Monitor.DefaultInterval < c.Monitor.MinInterval {
		return fmt.Errorf("monitor default_interval %s must be >= min_interval %s",
			c.Monitor.DefaultInterval, c.Monitor.MinInterval)
	}
	return nil
}

// RedirectURL is the OAuth callback registered with Google.
func (c *Config) RedirectURL() string {
	return c.BaseURL + "/auth/callback"
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func parseDurationOr(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return fallback
}

func orInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
