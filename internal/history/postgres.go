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

package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
)

// PostgresStore keeps history in a sent_replies table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a history store backed by the given Postgres pool.
// It ensures the sent_replies table exists on creation.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}
	slog.Info("history store initialised", "driver", "postgres")
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sent_replies (
			id          BIGSERIAL PRIMARY KEY,
			account     TEXT NOT NULL,
			message_id  TEXT NOT NULL,
			thread_id   TEXT NOT NULL,
			to_address  TEXT NOT NULL,
			subject     TEXT NOT NULL,
			auto        BOOLEAN NOT NULL DEFAULT FALSE,
			marked_read BOOLEAN NOT NULL DEFAULT FALSE,
			sent_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_replies_account_sent ON sent_replies(account, sent_at DESC);
	`)
	return err
}

// Record inserts one sent reply.
func (s *PostgresStore) Record(ctx context.Context, r models.SentReply) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sent_replies
			(account, message_id, thread_id, to_address, subject, auto, marked_read, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.Account, r.MessageID, r.ThreadID, r.To, r.Subject, r.Auto, r.MarkedRead, r.SentAt)
	if err != nil {
		return fmt.Errorf("insert sent reply: %w", err)
	}
	return nil
}

// ListRecent returns the newest replies for an account.
func (s *PostgresStore) ListRecent(ctx context.Context, account string, limit int) ([]models.SentReply, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT account, message_id, thread_id, to_address, subject, auto, marked_read, sent_at
		FROM sent_replies
		WHERE account = $1
		ORDER BY sent_at DESC, id DESC
		LIMIT $2
	`, account, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query sent replies: %w", err)
	}
	defer rows.Close()
	return collectReplies(rows)
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// collectReplies scans multiple rows into a slice.
func collectReplies(rows pgx.Rows) ([]models.SentReply, error) {
	replies := []models.SentReply{}
	for rows.Next() {
		var r models.SentReply
		if err := rows.Scan(
			&r.Account, &r.MessageID, &r.ThreadID, &r.To, &r.Subject,
			&r.Auto, &r.MarkedRead, &r.SentAt,
		); err != nil {
			return nil, err
		}
		replies = append(replies, r)
	}
	return replies, rows.Err()
}
