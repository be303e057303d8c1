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

// Package monitor runs the optional background inbox check. Each browser
// session gets at most one job: a ticker loop that lists unread mail and,
// when auto-reply is on, answers each new message once.
//
// A job only ever uses the access token it was configured with. It stops
// itself when that token expires or Gmail rejects it; there is no refresh.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/dedup"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/events"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/gmail"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/reply"
)

// ErrSkipped tells the monitor a message was deliberately not answered,
// for example because the model produced an empty draft.
var ErrSkipped = errors.New("auto-reply skipped")

// Inbox lists unread mail.
type Inbox interface {
	ListUnread(ctx context.Context, token string) ([]models.EmailSummary, error)
}

// AutoReplier drafts and sends a reply to one message.
type AutoReplier interface {
	AutoReply(ctx context.Context, token string, email models.EmailSummary, instruction string) (reply.Result, error)
}

// Publisher receives monitor activity.
type Publisher interface {
	Publish(session string, ev events.Event)
}

// MaxInterval caps the time between checks.
const MaxInterval = 24 * time.Hour

// Settings is what a client asks for.
type Settings struct {
	Enabled   bool          `json:"enabled"`
	AutoReply bool          `json:"autoReply"`
	Interval  time.Duration `json:"-"`
	Context   string        `json:"context,omitempty"`
}

// Config wires a Manager.
type Config struct {
	Inbox           Inbox
	Replier         AutoReplier
	Filter          dedup.Filter
	Publisher       Publisher
	DefaultInterval time.Duration
	MinInterval     time.Duration
}

type job struct {
	settings Settings
	cancel   context.CancelFunc
}

// Manager owns every session's job.
type Manager struct {
	inbox           Inbox
	replier         AutoReplier
	filter          dedup.Filter
	pub             Publisher
	defaultInterval time.Duration
	minInterval     time.Duration

	baseCtx    context.Context
	cancelBase context.CancelFunc

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

// NewManager creates a manager with no running jobs.
func NewManager(cfg Config) *Manager {
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = 5 * time.Minute
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = time.Minute
	}
	if cfg.Filter == nil {
		cfg.Filter = dedup.NewMemoryFilter(dedup.DefaultTTL)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		inbox:           cfg.Inbox,
		replier:         cfg.Replier,
		filter:          cfg.Filter,
		pub:             cfg.Publisher,
		defaultInterval: cfg.DefaultInterval,
		minInterval:     cfg.MinInterval,
		baseCtx:         ctx,
		cancelBase:      cancel,
		jobs:            make(map[string]*job),
	}
}

// Normalize applies the default, minimum and maximum interval.
func (m *Manager) Normalize(s Settings) Settings {
	if s.Interval <= 0 {
		s.Interval = m.defaultInterval
	}
	if s.Interval < m.minInterval {
		s.Interval = m.minInterval
	}
	if s.Interval > MaxInterval {
		s.Interval = MaxInterval
	}
	return s
}

// Configure starts, restarts or stops the session's job and returns the
// settings in effect.
func (m *Manager) Configure(session string, creds models.Credentials, s Settings) (Settings, error) {
	s = m.Normalize(s)

	if !s.Enabled {
		m.Disable(session)
		return s, nil
	}
	if !creds.Valid() {
		return s, models.ErrNoSession
	}
	if session == "" {
		return s, fmt.Errorf("configure monitor: empty session id")
	}

	ctx, cancel := context.WithCancel(m.baseCtx)
	j := &job{settings: s, cancel: cancel}

	m.mu.Lock()
	if old, ok := m.jobs[session]; ok {
		old.cancel()
	}
	m.jobs[session] = j
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(ctx, session, creds, j)
	return s, nil
}

// Disable stops the session's job if one is running.
func (m *Manager) Disable(session string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[session]; ok {
		j.cancel()
		delete(m.jobs, session)
	}
}

// Status returns the settings of the session's running job.
func (m *Manager) Status(session string) (Settings, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[session]
	if !ok {
		return Settings{}, false
	}
	return j.settings, true
}

// Active reports how many jobs are running.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Stop cancels every job and waits for them to exit.
func (m *Manager) Stop() {
	m.cancelBase()
	m.wg.Wait()

	m.mu.Lock()
	m.jobs = make(map[string]*job)
	m.mu.Unlock()
}

// release removes j from the map unless it was already replaced.
func (m *Manager) release(session string, j *job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.jobs[session]; ok && cur == j {
		delete(m.jobs, session)
	}
	j.cancel()
}

func (m *Manager) run(ctx context.Context, session string, creds models.Credentials, j *job) {
	defer m.wg.Done()

	slog.Info("inbox monitor starting",
		"session", session,
		"interval", j.settings.Interval,
		"auto_reply", j.settings.AutoReply,
	)

	var expired <-chan time.Time
	if !creds.Expiry.IsZero() {
		timer := time.NewTimer(time.Until(creds.Expiry))
		defer timer.Stop()
		expired = timer.C
	}

	if m.check(ctx, session, creds.AccessToken, j.settings) {
		m.release(session, j)
		return
	}

	ticker := time.NewTicker(j.settings.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("inbox monitor stopping", "session", session)
			return
		case <-expired:
			m.stopped(session, "access token expired")
			m.release(session, j)
			return
		case <-ticker.C:
			if m.check(ctx, session, creds.AccessToken, j.settings) {
				m.release(session, j)
				return
			}
		}
	}
}

// check runs one tick. It reports true when the job must stop.
func (m *Manager) check(ctx context.Context, session, token string, s Settings) bool {
	unread, err := m.inbox.ListUnread(ctx, token)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		if gmail.IsUnauthorized(err) {
			m.stopped(session, "access token rejected")
			return true
		}
		slog.Error("monitor check failed", "session", session, "error", err)
		m.publish(session, events.TypeFailed, map[string]string{"error": "failed to fetch emails"})
		return false
	}

	m.publish(session, events.TypeChecked, map[string]int{"unread": len(unread)})

	if !s.AutoReply {
		return false
	}

	for _, email := range unread {
		if ctx.Err() != nil {
			return false
		}
		if stop := m.autoReply(ctx, session, token, email, s.Context); stop {
			return true
		}
	}
	return false
}

func (m *Manager) autoReply(ctx context.Context, session, token string, email models.EmailSummary, instruction string) bool {
	key := "autoreply:" + email.ID

	isNew, err := m.filter.IsNew(ctx, key)
	if err != nil {
		slog.Error("dedup check failed", "message_id", email.ID, "error", err)
		return false
	}
	if !isNew {
		return false
	}

	res, err := m.replier.AutoReply(ctx, token, email, instruction)
	switch {
	case err == nil:
	case errors.Is(err, ErrSkipped):
		slog.Info("auto-reply skipped", "message_id", email.ID, "reason", err)
		return false
	case ctx.Err() != nil:
		m.forget(key)
		return false
	case gmail.IsUnauthorized(err):
		m.forget(key)
		m.stopped(session, "access token rejected")
		return true
	default:
		slog.Error("auto-reply failed", "message_id", email.ID, "error", err)
		m.publish(session, events.TypeFailed, map[string]string{
			"emailId": email.ID,
			"error":   "failed to send reply",
		})
		return false
	}

	slog.Info("auto-reply sent", "message_id", email.ID, "marked_read", res.MarkedRead)
	m.publish(session, events.TypeReplied, map[string]any{
		"emailId":    email.ID,
		"threadId":   res.ThreadID,
		"to":         res.To,
		"subject":    res.Subject,
		"markedRead": res.MarkedRead,
	})
	return false
}

// forget releases a claim for a message that was never answered.
func (m *Manager) forget(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.filter.Forget(ctx, key); err != nil {
		slog.Warn("failed to release dedup key", "key", key, "error", err)
	}
}

func (m *Manager) stopped(session, reason string) {
	slog.Info("inbox monitor stopped", "session", session, "reason", reason)
	m.publish(session, events.TypeStopped, map[string]string{"reason": reason})
}

func (m *Manager) publish(session, typ string, data any) {
	if m.pub == nil {
		return
	}
	m.pub.Publish(session, events.Event{Type: typ, Data: data})
}
