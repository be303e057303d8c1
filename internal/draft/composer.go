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

// Package draft asks a language model for a reply to one email.
package draft

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/config"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
)

const (
	// DefaultInstruction is used when the caller supplies no context.
	DefaultInstruction = "Be professional and helpful."

	// DefaultMaxTokens caps the length of a generated reply.
	DefaultMaxTokens = 1024
)

// Provider performs a single completion. It returns "" with a nil error when
// the model answered with something other than text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, apiKey, prompt string, maxTokens int) (string, error)
}

// NewProvider selects the provider named in the configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic, "":
		return NewAnthropic(cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// Composer builds the prompt and resolves which API key to use.
type Composer struct {
	provider   Provider
	defaultKey string
	maxTokens  int
}

// NewComposer creates a composer. defaultKey is the process-wide key used
// when a request carries none; it may be empty.
func NewComposer(provider Provider, defaultKey string, maxTokens int) *Composer {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Composer{
		provider:   provider,
		defaultKey: defaultKey,
		maxTokens:  maxTokens,
	}
}

// Generate drafts a reply to email. A per-request apiKey wins over the
// configured one. With neither, it fails with models.ErrNoAPIKey before any
// network call.
func (c *Composer) Generate(ctx context.Context, email models.EmailDetail, instruction, apiKey string) (string, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		key = c.defaultKey
	}
	if key == "" {
		return "", models.ErrNoAPIKey
	}

	text, err := c.provider.Complete(ctx, key, BuildPrompt(email, instruction), c.maxTokens)
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", c.provider.Name(), err)
	}
	if text == "" {
		slog.Warn("model returned no text block", "provider", c.provider.Name(), "message_id", email.ID)
	}
	return text, nil
}

// HasKey reports whether Generate would find an API key.
func (c *Composer) HasKey(apiKey string) bool {
	return strings.TrimSpace(apiKey) != "" || c.defaultKey != ""
}

// BuildPrompt embeds the instruction and the email verbatim.
func BuildPrompt(email models.EmailDetail, instruction string) string {
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}

	var sb strings.Builder
	sb.WriteString("You are an email assistant. Generate a professional reply to this email.\n\n")
	sb.WriteString("Context/Instructions: ")
	sb.WriteString(instruction)
	sb.WriteString("\n\nEmail From: ")
	sb.WriteString(email.From)
	sb.WriteString("\nSubject: ")
	sb.WriteString(email.Subject)
	sb.WriteString("\n\nEmail Body:\n")
	sb.WriteString(email.Body)
	sb.WriteString("\n\nGenerate a clear, professional reply. Only output the reply text itself, no subject line or signatures.")
	return sb.String()
}
