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

// Package history records replies that went out so the UI can show what the
// assistant sent, including monitor auto-replies.
package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/config"
	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
)

// DefaultLimit bounds ListRecent when the caller passes no limit.
const DefaultLimit = 50

// Store persists sent replies.
type Store interface {
	Record(ctx context.Context, r models.SentReply) error
	ListRecent(ctx context.Context, account string, limit int) ([]models.SentReply, error)
	Close()
}

// Open returns the store selected by the configured driver. With no driver,
// history is disabled and a NopStore is returned.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.HistoryDriver {
	case config.HistoryNone:
		return NopStore{}, nil
	case config.HistoryPostgres:
		return openPostgres(ctx, cfg.HistoryDSN)
	case config.HistorySQLite:
		s, err := OpenSQLite(ctx, cfg.HistoryDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.HistoryDriver)
	}
}

// openPostgres connects a pool and prepares the schema. The pool is closed
// on any failure.
func openPostgres(ctx context.Context, dsn string) (Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := NewPostgresStore(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return DefaultLimit
	}
	return limit
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Record(context.Context, models.SentReply) error { return nil }

func (NopStore) ListRecent(context.Context, string, int) ([]models.SentReply, error) {
	return []models.SentReply{}, nil
}

func (NopStore) Close() {}
