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

// ReplyDesk triage
//
// One-shot CLI that lists unread Gmail messages for an access token and,
// with -draft, prints a generated reply for each. Nothing is sent.
//
// Usage:
//
//	go run ./cmd/triage/ [-token ya29...] [-draft] [-instruction "Keep it short."]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/config"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/draft"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/gmail"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
)

// draftConcurrency bounds parallel completion requests.
const draftConcurrency = 4

func main() {
	// Logs go to stderr so stdout stays readable.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	tokenFlag := flag.String("token", "", "Gmail OAuth access token (default $GMAIL_ACCESS_TOKEN)")
	draftFlag := flag.Bool("draft", false, "Generate a reply draft for each unread message")
	instructionFlag := flag.String("instruction", draft.DefaultInstruction, "Instruction passed to the language model")
	timeoutFlag := flag.Duration("timeout", 5*time.Minute, "Overall deadline")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	token := strings.TrimSpace(*tokenFlag)
	if token == "" {
		token = strings.TrimSpace(os.Getenv("GMAIL_ACCESS_TOKEN"))
	}
	if token == "" {
		fmt.Fprintf(os.Stderr, "Error: -token or GMAIL_ACCESS_TOKEN is required\n\n")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Read()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeoutFlag)
	defer cancel()

	t := &triage{
		mail:        gmail.NewGateway(cfg.Google.GmailEndpoint),
		instruction: *instructionFlag,
		out:         os.Stdout,
	}
	if *draftFlag {
		provider, err := draft.NewProvider(cfg.LLM)
		if err != nil {
			slog.Error("failed to configure draft provider", "error", err)
			os.Exit(1)
		}
		t.composer = draft.NewComposer(provider, cfg.LLM.APIKey, cfg.LLM.MaxTokens)
	}

	if err := t.run(ctx, token); err != nil {
		if gmail.IsUnauthorized(err) {
			fmt.Fprintln(os.Stderr, "Error: access token rejected by Gmail")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

type mailbox interface {
	ListUnread(ctx context.Context, token string) ([]models.EmailSummary, error)
	FetchDetail(ctx context.Context, token, id string) (models.EmailDetail, error)
}

type drafter interface {
	Generate(ctx context.Context, email models.EmailDetail, instruction, apiKey string) (string, error)
}

type triage struct {
	mail        mailbox
	composer    drafter
	instruction string
	out         io.Writer
}

// run lists unread mail and prints it, with drafts when a composer is set.
// A failed draft is reported inline and does not abort the others.
func (t *triage) run(ctx context.Context, token string) error {
	emails, err := t.mail.ListUnread(ctx, token)
	if err != nil {
		return err
	}
	if len(emails) == 0 {
		fmt.Fprintln(t.out, "No unread messages.")
		return nil
	}

	drafts := make([]string, len(emails))
	if t.composer != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(draftConcurrency)
		for i, e := range emails {
			g.Go(func() error {
				detail, err := t.mail.FetchDetail(gctx, token, e.ID)
				if err == nil {
					drafts[i], err = t.composer.Generate(gctx, detail, t.instruction, "")
				}
				if errors.Is(err, models.ErrNoAPIKey) {
					return err
				}
				if err != nil {
					slog.Warn("draft failed", "message_id", e.ID, "error", err)
					drafts[i] = "(draft failed: " + err.Error() + ")"
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("generate drafts: %w", err)
		}
	}

	for i, e := range emails {
		fmt.Fprintf(t.out, "[%d] %s\n    From:    %s\n    Subject: %s\n", i+1, e.ID, e.From, e.Subject)
		if e.Date != "" {
			fmt.Fprintf(t.out, "    Date:    %s\n", e.Date)
		}
		if e.Snippet != "" {
			fmt.Fprintf(t.out, "    %s\n", e.Snippet)
		}
		if t.composer != nil {
			fmt.Fprintf(t.out, "    --- draft ---\n%s\n", indent(drafts[i], "    "))
		}
		fmt.Fprintln(t.out)
	}
	return nil
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
