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

// Package queue mirrors monitor events onto a Redis list so other processes
// can consume auto-reply activity. Consumers pop with BRPOP.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/events"
)

// publishTimeout bounds one LPUSH; Publish is called from monitor loops.
const publishTimeout = 2 * time.Second

// Publisher pushes events to a Redis list.
type Publisher struct {
	rdb       *redis.Client
	queueName string
}

// NewPublisher creates a new Redis publisher targeting the specified list.
func NewPublisher(rdb *redis.Client, queueName string) *Publisher {
	return &Publisher{
		rdb:       rdb,
		queueName: queueName,
	}
}

// Message is the JSON envelope stored in the list.
type Message struct {
	ID      string    `json:"id"`
	Session string    `json:"session"`
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
	Data    any       `json:"data,omitempty"`
}

// Push serialises ev and pushes it to the list.
func (p *Publisher) Push(ctx context.Context, session string, ev events.Event) (string, error) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}
	msg := Message{
		ID:      uuid.New().String(),
		Session: session,
		Type:    ev.Type,
		Time:    ev.Time,
		Data:    ev.Data,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	// LPUSH so BRPOP consumers read oldest first.
	if err := p.rdb.LPush(ctx, p.queueName, body).Err(); err != nil {
		return "", fmt.Errorf("redis LPUSH: %w", err)
	}
	return msg.ID, nil
}

// Publish implements events.Publisher. Failures are logged and dropped.
func (p *Publisher) Publish(session string, ev events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	id, err := p.Push(ctx, session, ev)
	if err != nil {
		slog.Warn("failed to queue event",
			"type", ev.Type,
			"queue", p.queueName,
			"error", err,
		)
		return
	}
	slog.Debug("queued event", "id", id, "type", ev.Type, "queue", p.queueName)
}

// Ping checks the Redis connection.
func (p *Publisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.rdb.Ping(ctx).Err()
}
