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
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
)

// SQLiteStore keeps history in a local file. An empty path means in-memory.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := strings.TrimSpace(path)
	inMemory := dsn == "" || dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if !inMemory {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}
	slog.Info("history store initialised", "driver", "sqlite", "in_memory", inMemory)
	return s, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sent_replies (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			account     TEXT NOT NULL,
			message_id  TEXT NOT NULL,
			thread_id   TEXT NOT NULL,
			to_address  TEXT NOT NULL,
			subject     TEXT NOT NULL,
			auto        INTEGER NOT NULL DEFAULT 0,
			marked_read INTEGER NOT NULL DEFAULT 0,
			sent_at     INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_replies_account_sent ON sent_replies(account, sent_at);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Record(ctx context.Context, r models.SentReply) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO sent_replies
		(account, message_id, thread_id, to_address, subject, auto, marked_read, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		r.Account, r.MessageID, r.ThreadID, r.To, r.Subject, r.Auto, r.MarkedRead, r.SentAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert sent reply: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListRecent(ctx context.Context, account string, limit int) ([]models.SentReply, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT account, message_id, thread_id, to_address, subject, auto, marked_read, sent_at
		FROM sent_replies
		WHERE account = ?
		ORDER BY sent_at DESC, id DESC
		LIMIT ?;`, account, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query sent replies: %w", err)
	}
	defer rows.Close()

	replies := []models.SentReply{}
	for rows.Next() {
		var (
			r      models.SentReply
			sentAt int64
		)
		if err := rows.Scan(&r.Account, &r.MessageID, &r.ThreadID, &r.To, &r.Subject, &r.Auto, &r.MarkedRead, &sentAt); err != nil {
			return nil, fmt.Errorf("scan sent reply: %w", err)
		}
		r.SentAt = time.UnixMilli(sentAt).UTC()
		replies = append(replies, r)
	}
	return replies, rows.Err()
}

func (s *SQLiteStore) Close() {
	s.db.Close()
}
