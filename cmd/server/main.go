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

// ReplyDesk server
//
// Entry point for the Gmail reply assistant. It:
//  1. Loads configuration from .env, config.yaml and the environment
//  2. Connects to Redis and the reply history database when configured
//  3. Wires the Gmail gateway, draft provider and inbox monitor
//  4. Serves the HTTP API and the monitor event stream
//  5. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/api"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/config"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/dedup"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/draft"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/events"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/gmail"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/history"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/oauth"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/queue"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/session"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/workflow"
)

func main() {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("starting reply assistant",
		"base_url", cfg.BaseURL,
		"llm_provider", cfg.LLM.Provider,
		"session_backend", cfg.SessionBackend,
		"history_driver", cfg.HistoryDriver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	checks := make(map[string]api.HealthCheck)

	// --- Connect to Redis (optional) ---
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		slog.Info("connected to Redis")
	}

	// --- Session Store ---
	var sessions session.Store
	switch cfg.SessionBackend {
	case config.SessionRedis:
		rs := session.NewRedisStore(rdb, cfg.Production)
		checks["sessions"] = rs.Ping
		sessions = rs
	default:
		sessions = session.NewCookieStore(cfg.Production)
	}

	// --- Dedup Filter ---
	var filter dedup.Filter
	if rdb != nil {
		filter = dedup.NewRedisFilter(rdb, cfg.Monitor.DedupTTL)
	} else {
		filter = dedup.NewMemoryFilter(cfg.Monitor.DedupTTL)
	}

	// --- Reply History ---
	store, err := history.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open reply history", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// --- Draft Provider ---
	provider, err := draft.NewProvider(cfg.LLM)
	if err != nil {
		slog.Error("failed to configure draft provider", "error", err)
		os.Exit(1)
	}
	if cfg.LLM.APIKey == "" {
		slog.Warn("no default language model key configured; clients must send x-api-key and auto-reply is disabled")
	}

	// --- Event Fan-out ---
	hub := events.NewHub()
	sinks := []events.Publisher{hub}
	if cfg.EventsQueue != "" {
		q := queue.NewPublisher(rdb, cfg.EventsQueue)
		checks["events_queue"] = q.Ping
		sinks = append(sinks, q)
		slog.Info("mirroring monitor events to redis", "queue", cfg.EventsQueue)
	}

	assistant := workflow.New(workflow.Deps{
		Flow:            oauth.NewFlow(cfg),
		Mailbox:         gmail.NewGateway(cfg.Google.GmailEndpoint),
		Drafter:         draft.NewComposer(provider, cfg.LLM.APIKey, cfg.LLM.MaxTokens),
		History:         store,
		Filter:          filter,
		Publisher:       events.Tee(sinks...),
		DefaultInterval: cfg.Monitor.DefaultInterval,
		MinInterval:     cfg.Monitor.MinInterval,
	})

	server := api.NewServer(api.Options{
		Assistant: assistant,
		Sessions:  sessions,
		Hub:       hub,
		Secure:    cfg.Production,
		Checks:    checks,
	})

	ready, done, err := api.Serve(ctx, cfg.Port, server.Handler())
	if err != nil {
		slog.Error("failed to start http server", "error", err)
		os.Exit(1)
	}
	<-ready
	slog.Info("reply assistant listening", "port", cfg.Port, "callback", cfg.RedirectURL())

	select {
	case <-ctx.Done():
		slog.Info("received shutdown signal")
	case <-done:
		slog.Error("http server exited unexpectedly")
	}

	// In-flight requests drain before monitors stop, and monitors stop
	// before the history store and Redis client close.
	<-done
	assistant.Close()
	slog.Info("reply assistant stopped")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
