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

// Package gmail provides the mail gateway: listing unread messages, fetching
// one message, sending a raw reply and clearing the UNREAD label, all through
// the Gmail REST API with a per-call bearer token.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
)

const (
	// UserID addresses the mailbox that owns the bearer token.
	UserID = "me"

	// UnreadQuery and MaxUnread bound the unread listing.
	UnreadQuery = "is:unread"
	MaxUnread   = 20

	unreadLabel = "UNREAD"

	defaultFetchConcurrency = 10
)

// Gateway talks to Gmail on behalf of whichever token a call carries.
type Gateway struct {
	endpoint    string
	concurrency int
}

// NewGateway creates a gateway. An empty endpoint means the public Gmail API;
// tests and emulators pass their own base URL.
func NewGateway(endpoint string) *Gateway {
	if endpoint != "" && !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return &Gateway{
		endpoint:    endpoint,
		concurrency: defaultFetchConcurrency,
	}
}

// service builds a Gmail client authenticated with a static bearer token.
// The token is never refreshed.
func (g *Gateway) service(ctx context.Context, token string) (*gmail.Service, error) {
	if token == "" {
		return nil, models.ErrNoSession
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return svc, nil
}

// ListUnread returns up to MaxUnread unread messages in the provider's
// listing order. Details are fetched concurrently; each result is written to
// its listing position. Any failure fails the whole call.
func (g *Gateway) ListUnread(ctx context.Context, token string) ([]models.EmailSummary, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Users.Messages.List(UserID).
		Q(UnreadQuery).
		MaxResults(MaxUnread).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: list unread: %w", models.ErrFetch, err)
	}

	summaries := make([]models.EmailSummary, len(resp.Messages))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, ref := range resp.Messages {
		eg.Go(func() error {
			msg, err := svc.Users.Messages.Get(UserID, ref.Id).
				Format("metadata").
				MetadataHeaders("From", "Subject").
				Context(egCtx).
				Do()
			if err != nil {
				return fmt.Errorf("%w: get message %s: %w", models.ErrFetch, ref.Id, err)
			}
			summaries[i] = summaryFromMessage(msg)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("listed unread messages", "count", len(summaries))
	return summaries, nil
}

// FetchDetail retrieves one message with its body and threading headers.
func (g *Gateway) FetchDetail(ctx context.Context, token, id string) (models.EmailDetail, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return models.EmailDetail{}, err
	}

	msg, err := svc.Users.Messages.Get(UserID, id).Format("full").Context(ctx).Do()
	if err != nil {
		return models.EmailDetail{}, fmt.Errorf("%w: get message %s: %w", models.ErrFetch, id, err)
	}
	return detailFromMessage(msg), nil
}

// Send submits an already encoded RFC 5322 message into threadID.
func (g *Gateway) Send(ctx context.Context, token, threadID, raw string) error {
	svc, err := g.service(ctx, token)
	if err != nil {
		return err
	}

	sent, err := svc.Users.Messages.Send(UserID, &gmail.Message{
		Raw:      raw,
		ThreadId: threadID,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrSend, err)
	}

	slog.Info("reply sent", "thread_id", threadID, "sent_id", sent.Id)
	return nil
}

// MarkRead removes the UNREAD label from a message.
func (g *Gateway) MarkRead(ctx context.Context, token, id string) error {
	svc, err := g.service(ctx, token)
	if err != nil {
		return err
	}

	_, err = svc.Users.Messages.Modify(UserID, id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{unreadLabel},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: message %s: %w", models.ErrMarkRead, id, err)
	}
	return nil
}

// Profile returns the mailbox address the token belongs to.
func (g *Gateway) Profile(ctx context.Context, token string) (string, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return "", err
	}

	p, err := svc.Users.GetProfile(UserID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: get profile: %w", models.ErrFetch, err)
	}
	return p.EmailAddress, nil
}

// IsUnauthorized reports whether Gmail rejected the bearer token.
func IsUnauthorized(err error) bool {
	if errors.Is(err, models.ErrNoSession) {
		return true
	}
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized
}
