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

// Package workflow joins the OAuth flow, mail gateway, draft composer and
// reply sender into the operations the HTTP surface exposes.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/dedup"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/history"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/monitor"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/oauth"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/reply"
)

// Mailbox is the mail gateway.
type Mailbox interface {
	ListUnread(ctx context.Context, token string) ([]models.EmailSummary, error)
	FetchDetail(ctx context.Context, token, id string) (models.EmailDetail, error)
	Send(ctx context.Context, token, threadID, raw string) error
	MarkRead(ctx context.Context, token, id string) error
	Profile(ctx context.Context, token string) (string, error)
}

// Drafter produces reply drafts.
type Drafter interface {
	Generate(ctx context.Context, email models.EmailDetail, instruction, apiKey string) (string, error)
	HasKey(apiKey string) bool
}

// Deps wires an Assistant.
type Deps struct {
	Flow      *oauth.Flow
	Mailbox   Mailbox
	Drafter   Drafter
	History   history.Store
	Filter    dedup.Filter
	Publisher monitor.Publisher

	DefaultInterval time.Duration
	MinInterval     time.Duration
}

// Assistant runs every user-facing operation. All of them except the login
// URL require credentials with an access token.
type Assistant struct {
	flow    *oauth.Flow
	mail    Mailbox
	drafter Drafter
	sender  *reply.Sender
	history history.Store
	monitor *monitor.Manager
}

// New creates an Assistant and its inbox monitor.
func New(d Deps) *Assistant {
	if d.History == nil {
		d.History = history.NopStore{}
	}

	a := &Assistant{
		flow:    d.Flow,
		mail:    d.Mailbox,
		drafter: d.Drafter,
		sender:  reply.NewSender(d.Mailbox),
		history: d.History,
	}
	a.monitor = monitor.NewManager(monitor.Config{
		Inbox:           d.Mailbox,
		Replier:         a,
		Filter:          d.Filter,
		Publisher:       d.Publisher,
		DefaultInterval: d.DefaultInterval,
		MinInterval:     d.MinInterval,
	})
	return a
}

// Monitor exposes the inbox monitor.
func (a *Assistant) Monitor() *monitor.Manager {
	return a.monitor
}

// Close stops every monitor job.
func (a *Assistant) Close() {
	a.monitor.Stop()
}

// LoginURL returns the consent URL for state.
func (a *Assistant) LoginURL(state string) string {
	return a.flow.BuildAuthorizationURL(state)
}

// CompleteLogin exchanges an authorization code.
func (a *Assistant) CompleteLogin(ctx context.Context, code string) (models.Credentials, error) {
	return a.flow.ExchangeCode(ctx, code)
}

// Logout stops the session's monitor.
func (a *Assistant) Logout(creds models.Credentials) {
	a.monitor.Disable(creds.SessionID)
}

// ListEmails returns the unread list.
func (a *Assistant) ListEmails(ctx context.Context, creds models.Credentials) ([]models.EmailSummary, error) {
	if !creds.Valid() {
		return nil, models.ErrNoSession
	}
	return a.mail.ListUnread(ctx, creds.AccessToken)
}

// GenerateDraft fetches a message and drafts a reply. The API key check runs
// before the fetch so a missing key never costs a provider call.
func (a *Assistant) GenerateDraft(ctx context.Context, creds models.Credentials, emailID, instruction, apiKey string) (string, error) {
	if !creds.Valid() {
		return "", models.ErrNoSession
	}
	if !a.drafter.HasKey(apiKey) {
		return "", models.ErrNoAPIKey
	}

	email, err := a.mail.FetchDetail(ctx, creds.AccessToken, emailID)
	if err != nil {
		return "", err
	}
	return a.drafter.Generate(ctx, email, instruction, apiKey)
}

// SendReply sends draft as a reply to emailID and records it.
func (a *Assistant) SendReply(ctx context.Context, creds models.Credentials, emailID, threadID, draft string) (reply.Result, error) {
	if !creds.Valid() {
		return reply.Result{}, models.ErrNoSession
	}

	res, err := a.sender.Reply(ctx, creds.AccessToken, emailID, threadID, draft)
	if err != nil {
		return reply.Result{}, err
	}
	a.record(ctx, creds.AccessToken, emailID, res, false)
	return res, nil
}

// AutoReply drafts with the configured key and sends. It is called by the
// inbox monitor with the token captured when the monitor was enabled.
func (a *Assistant) AutoReply(ctx context.Context, token string, email models.EmailSummary, instruction string) (reply.Result, error) {
	detail, err := a.mail.FetchDetail(ctx, token, email.ID)
	if err != nil {
		return reply.Result{}, err
	}

	draft, err := a.drafter.Generate(ctx, detail, instruction, "")
	if err != nil {
		return reply.Result{}, err
	}
	if strings.TrimSpace(draft) == "" {
		return reply.Result{}, fmt.Errorf("message %s: empty draft: %w", email.ID, monitor.ErrSkipped)
	}

	res, err := a.sender.Reply(ctx, token, email.ID, email.ThreadID, draft)
	if err != nil {
		return reply.Result{}, err
	}
	a.record(ctx, token, email.ID, res, true)
	return res, nil
}

// ConfigureMonitor applies monitor settings for the session. Auto-reply
// needs the process-wide API key because jobs outlive the request.
func (a *Assistant) ConfigureMonitor(creds models.Credentials, s monitor.Settings) (monitor.Settings, error) {
	if s.Enabled && !creds.Valid() {
		return s, models.ErrNoSession
	}
	if s.Enabled && s.AutoReply && !a.drafter.HasKey("") {
		return s, models.ErrNoAPIKey
	}
	return a.monitor.Configure(creds.SessionID, creds, s)
}

// RecentReplies lists what was sent from this mailbox.
func (a *Assistant) RecentReplies(ctx context.Context, creds models.Credentials, limit int) ([]models.SentReply, error) {
	if !creds.Valid() {
		return nil, models.ErrNoSession
	}

	account, err := a.mail.Profile(ctx, creds.AccessToken)
	if err != nil {
		return nil, err
	}
	replies, err := a.history.ListRecent(ctx, account, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return replies, nil
}

// record stores a sent reply. Failures are logged; the reply already went out.
func (a *Assistant) record(ctx context.Context, token, emailID string, res reply.Result, auto bool) {
	if _, off := a.history.(history.NopStore); off {
		return
	}
	account, err := a.mail.Profile(ctx, token)
	if err != nil {
		slog.Warn("could not resolve mailbox for history", "message_id", emailID, "error", err)
		return
	}

	err = a.history.Record(ctx, models.SentReply{
		Account:    account,
		MessageID:  emailID,
		ThreadID:   res.ThreadID,
		To:         res.To,
		Subject:    res.Subject,
		Auto:       auto,
		MarkedRead: res.MarkedRead,
		SentAt:     time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("failed to record sent reply", "message_id", emailID, "error", err)
	}
}
