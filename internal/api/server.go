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

// Package api exposes the reply assistant over HTTP. Each route maps onto
// one workflow operation; session credentials come from an injected
// session.Store.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/events"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/session"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/workflow"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Options wires a Server.
type Options struct {
	Assistant *workflow.Assistant
	Sessions  session.Store
	Hub       *events.Hub
	// Secure marks the oauth_state cookie Secure.
	Secure bool
	Checks map[string]HealthCheck
}

// Server holds the route handlers.
type Server struct {
	assistant *workflow.Assistant
	sessions  session.Store
	hub       *events.Hub
	secure    bool
	checks    map[string]HealthCheck
}

// NewServer creates the HTTP surface.
func NewServer(o Options) *Server {
	if o.Hub == nil {
		o.Hub = events.NewHub()
	}
	return &Server{
		assistant: o.Assistant,
		sessions:  o.Sessions,
		hub:       o.Hub,
		secure:    o.Secure,
		checks:    o.Checks,
	}
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /auth/login", s.handleLogin)
	mux.HandleFunc("GET /auth/callback", s.handleCallback)
	mux.HandleFunc("GET /auth/status", s.handleStatus)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)

	mux.HandleFunc("GET /emails", s.handleListEmails)
	mux.HandleFunc("POST /emails/generate-draft", s.handleGenerateDraft)
	mux.HandleFunc("POST /emails/send-reply", s.handleSendReply)
	mux.HandleFunc("POST /emails/monitor", s.handleConfigureMonitor)
	mux.HandleFunc("GET /emails/monitor", s.handleMonitorStatus)
	mux.HandleFunc("GET /emails/replies", s.handleReplies)

	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /health", s.handleHealth)

	return logRequests(mux)
}

// Serve starts the HTTP server on the given port. The ready channel is
// closed once the listener is bound. The server shuts down when ctx is
// cancelled; done is closed after in-flight requests have drained.
func Serve(ctx context.Context, port int, handler http.Handler) (ready, done <-chan struct{}, err error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, nil, fmt.Errorf("bind http port %d: %w", port, err)
	}
	r, d := serveListener(ctx, ln, handler)
	return r, d, nil
}

func serveListener(ctx context.Context, ln net.Listener, handler http.Handler) (<-chan struct{}, <-chan struct{}) {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ready := make(chan struct{})
	served := make(chan struct{})
	done := make(chan struct{})

	go func() {
		slog.Info("http server listening", "addr", ln.Addr().String())
		close(ready)
		if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
		close(served)
	}()

	go func() {
		defer close(done)
		select {
		case <-served:
			return
		case <-ctx.Done():
		}
		slog.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("graceful shutdown incomplete", "error", err)
			server.Close()
		}
		<-served
	}()

	return ready, done
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
