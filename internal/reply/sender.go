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

package reply

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
)

// Mailer is the subset of the mail gateway a Sender needs.
type Mailer interface {
	FetchDetail(ctx context.Context, token, id string) (models.EmailDetail, error)
	Send(ctx context.Context, token, threadID, raw string) error
	MarkRead(ctx context.Context, token, id string) error
}

// Result describes a reply that was sent. MarkReadErr is set when the
// original could not be marked read afterwards.
type Result struct {
	To          string
	Subject     string
	ThreadID    string
	MarkedRead  bool
	MarkReadErr error
}

// Sender turns a draft into a threaded reply.
type Sender struct {
	mailer Mailer
}

// NewSender creates a reply sender.
func NewSender(mailer Mailer) *Sender {
	return &Sender{mailer: mailer}
}

// Reply fetches the original, sends draft into its thread and then marks the
// original read. A failed send returns an error and leaves the original
// untouched. A failed mark-read does not fail the reply; it is reported in
// the Result.
func (s *Sender) Reply(ctx context.Context, token, emailID, threadID, draft string) (Result, error) {
	original, err := s.mailer.FetchDetail(ctx, token, emailID)
	if err != nil {
		return Result{}, fmt.Errorf("fetch original: %w", err)
	}

	if threadID == "" {
		threadID = original.ThreadID
	}

	msg := BuildMessage(original.From, original.Subject, draft, original.MessageID, original.References)
	if err := s.mailer.Send(ctx, token, threadID, Encode(msg)); err != nil {
		return Result{}, err
	}

	res := Result{
		To:       original.From,
		Subject:  ReplySubject(original.Subject),
		ThreadID: threadID,
	}

	if err := s.mailer.MarkRead(ctx, token, emailID); err != nil {
		slog.Warn("reply sent but original not marked read",
			"message_id", emailID,
			"error", err,
		)
		res.MarkReadErr = err
		return res, nil
	}

	res.MarkedRead = true
	return res, nil
}
