// Package gmail wraps the Gmail API calls the pipeline needs: listing
// matching messages, fetching full payloads, and marking them read.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/larez/mailsift/internal/parser"
)

const (
	maxAttempts    = 5
	initialBackoff = time.Second

	// Gmail caps page size at 500; we never need more per page.
	maxPageSize = 500
)

// Client is an authenticated Gmail API client scoped to the current user.
type Client struct {
	svc *gmailapi.Service
}

// NewClient builds a Gmail client from an OAuth2 token source.
func NewClient(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &Client{svc: svc}, nil
}

// ListMessages returns the ids of messages matching the search query, up to
// max, following result pages as needed.
func (c *Client) ListMessages(ctx context.Context, query string, max int64) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		pageSize := max - int64(len(ids))
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		call := c.svc.Users.Messages.List("me").Q(query).MaxResults(pageSize).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var resp *gmailapi.ListMessagesResponse
		err := withRetry(ctx, "list messages", func() error {
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
			if int64(len(ids)) >= max {
				return ids, nil
			}
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			return ids, nil
		}
	}
}

// GetMessage fetches the full message and converts it into the extraction
// engine's shape.
func (c *Client) GetMessage(ctx context.Context, id string) (*parser.Message, error) {
	var msg *gmailapi.Message
	err := withRetry(ctx, "get message "+id, func() error {
		var err error
		msg, err = c.svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", id, err)
	}
	return convertMessage(msg), nil
}

// MarkRead removes the UNREAD label from a processed message.
func (c *Client) MarkRead(ctx context.Context, id string) error {
	req := &gmailapi.ModifyMessageRequest{RemoveLabelIds: []string{"UNREAD"}}
	err := withRetry(ctx, "mark read "+id, func() error {
		_, err := c.svc.Users.Messages.Modify("me", id, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to mark message %s as read: %w", id, err)
	}
	return nil
}

func convertMessage(m *gmailapi.Message) *parser.Message {
	out := &parser.Message{ID: m.Id, ThreadID: m.ThreadId}
	if m.Payload != nil {
		out.Headers = convertHeaders(m.Payload.Headers)
		out.Payload = convertPart(m.Payload)
	}
	return out
}

func convertHeaders(headers []*gmailapi.MessagePartHeader) []parser.Header {
	out := make([]parser.Header, 0, len(headers))
	for _, h := range headers {
		if h != nil {
			out = append(out, parser.Header{Name: h.Name, Value: h.Value})
		}
	}
	return out
}

func convertPart(p *gmailapi.MessagePart) *parser.Part {
	if p == nil {
		return nil
	}

	part := &parser.Part{MimeType: p.MimeType}
	if p.Body != nil && p.Body.Data != "" {
		part.Body = &parser.Body{Data: p.Body.Data}
	}
	for _, child := range p.Parts {
		if converted := convertPart(child); converted != nil {
			part.Parts = append(part.Parts, converted)
		}
	}
	return part
}

// withRetry retries the call with exponential backoff on rate-limit and
// transient server errors.
func withRetry(ctx context.Context, desc string, fn func() error) error {
	delay := initialBackoff
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || attempt >= maxAttempts || !retryable(err) {
			return err
		}

		log.Printf("Gmail %s failed (attempt %d): %v, retrying in %s", desc, attempt, err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
}

func retryable(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case 429, 500, 503:
		return true
	}
	return false
}
