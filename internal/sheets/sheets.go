// Package sheets appends extracted rows to a Google Sheet and keeps its
// header row in line with the configured rule set.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const (
	maxAttempts    = 5
	initialBackoff = time.Second
)

// Client is an authenticated Sheets API client bound to one spreadsheet tab.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	sheetName     string
}

// NewClient builds a Sheets client from an OAuth2 token source.
func NewClient(ctx context.Context, ts oauth2.TokenSource, spreadsheetID, sheetName string) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is not configured")
	}

	svc, err := sheetsapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// EnsureHeader writes the header row when row 1 of the sheet is empty or
// blank. An existing header is left untouched.
func (c *Client) EnsureHeader(ctx context.Context, header []string) error {
	rangeName := fmt.Sprintf("%s!A1:Z1", c.sheetName)

	var resp *sheetsapi.ValueRange
	err := withRetry(ctx, "read header", func() error {
		var err error
		resp, err = c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rangeName).
			MajorDimension("ROWS").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to read header row: %w", err)
	}

	if len(resp.Values) > 0 && rowHasContent(resp.Values[0]) {
		return nil
	}

	row := make([]interface{}, len(header))
	for i, name := range header {
		row[i] = name
	}
	body := &sheetsapi.ValueRange{Values: [][]interface{}{row}}

	err = withRetry(ctx, "write header", func() error {
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rangeName, body).
			ValueInputOption("RAW").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	log.Printf("Wrote header row to sheet %s", c.sheetName)
	return nil
}

// AppendRows appends the rows below the existing content of the sheet.
func (c *Client) AppendRows(ctx context.Context, rows [][]interface{}) error {
	if len(rows) == 0 {
		log.Printf("No rows to append, skipping API call")
		return nil
	}

	rangeName := fmt.Sprintf("%s!A1", c.sheetName)
	body := &sheetsapi.ValueRange{Values: rows}

	err := withRetry(ctx, "append rows", func() error {
		_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rangeName, body).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to append %d rows: %w", len(rows), err)
	}

	log.Printf("Appended %d rows to sheet %s", len(rows), c.sheetName)
	return nil
}

func rowHasContent(row []interface{}) bool {
	for _, cell := range row {
		if s, ok := cell.(string); ok && strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
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

		log.Printf("Sheets %s failed (attempt %d): %v, retrying in %s", desc, attempt, err, delay)
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
