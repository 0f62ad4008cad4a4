// Package pipeline runs the end-to-end flow: list matching messages, parse
// and extract fields, append rows to the sheet, then record and mark the
// processed messages.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/google/uuid"

	"github.com/larez/mailsift/internal/parser"
	"github.com/larez/mailsift/internal/rules"
	"github.com/larez/mailsift/internal/sheets"
	"github.com/larez/mailsift/internal/store"
)

// Source lists and fetches the messages to process.
type Source interface {
	ListMessages(ctx context.Context, query string, max int64) ([]string, error)
	GetMessage(ctx context.Context, id string) (*parser.Message, error)
	MarkRead(ctx context.Context, id string) error
}

// Sink persists extracted rows.
type Sink interface {
	EnsureHeader(ctx context.Context, header []string) error
	AppendRows(ctx context.Context, rows [][]interface{}) error
}

// Options configures a pipeline run.
type Options struct {
	Source   Source
	Sink     Sink // may be nil when DryRun is set
	Store    *store.Store
	Rules    rules.Set
	Keywords []string
	Query    string
	Max      int64

	// DryRun parses and logs rows without appending, recording, or marking
	// anything.
	DryRun bool

	// Concurrency bounds the parse worker pool; zero means one worker per CPU.
	Concurrency int
}

// Result contains statistics about one pipeline run.
type Result struct {
	RunID    string
	Listed   int
	Skipped  int
	Parsed   int
	Failed   int
	Appended int
}

// Pipeline wires the collaborators for repeated runs.
type Pipeline struct {
	opts Options
}

// New validates the options and returns a runnable pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("pipeline needs a message source")
	}
	if opts.Sink == nil && !opts.DryRun {
		return nil, fmt.Errorf("pipeline needs a sink unless running dry")
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = runtime.NumCPU()
	}
	if opts.Max < 1 {
		opts.Max = 10
	}
	return &Pipeline{opts: opts}, nil
}

// Run executes one pass over the matching messages.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	header := sheets.FinalHeader(p.opts.Rules)

	log.Printf("Starting run %s (query=%q, max=%d)", result.RunID, p.opts.Query, p.opts.Max)

	if !p.opts.DryRun {
		// A header failure is logged but does not stop the run; appending
		// still lands rows in the right columns of an existing sheet.
		if err := p.opts.Sink.EnsureHeader(ctx, header); err != nil {
			log.Printf("Failed to verify header row: %v, continuing", err)
		}
	}

	ids, err := p.opts.Source.ListMessages(ctx, p.opts.Query, p.opts.Max)
	if err != nil {
		return result, fmt.Errorf("failed to list messages: %w", err)
	}
	result.Listed = len(ids)

	ids = p.filterProcessed(ids, result)
	if len(ids) == 0 {
		log.Printf("Run %s: no new messages to process", result.RunID)
		return result, nil
	}

	parsed := p.parseAll(ctx, ids, result)

	rows := make([][]interface{}, 0, len(parsed))
	kept := make([]*parser.ParsedEmail, 0, len(parsed))
	for _, pe := range parsed {
		if pe == nil {
			continue
		}
		rows = append(rows, sheets.BuildRow(pe, header))
		kept = append(kept, pe)
	}
	result.Parsed = len(kept)

	if p.opts.DryRun {
		for i, row := range rows {
			log.Printf("Run %s row %d: %v", result.RunID, i+1, row)
		}
		log.Printf("Run %s (dry): %d listed, %d skipped, %d parsed, %d failed",
			result.RunID, result.Listed, result.Skipped, result.Parsed, result.Failed)
		return result, nil
	}

	if len(rows) == 0 {
		log.Printf("Run %s: no rows generated", result.RunID)
		return result, nil
	}

	// Do not mark anything read when the append failed; the next run will
	// pick the same messages up again.
	if err := p.opts.Sink.AppendRows(ctx, rows); err != nil {
		return result, fmt.Errorf("failed to append rows: %w", err)
	}
	result.Appended = len(rows)

	p.finish(ctx, kept, result.RunID)

	log.Printf("Run %s complete: %d listed, %d skipped, %d parsed, %d failed, %d appended",
		result.RunID, result.Listed, result.Skipped, result.Parsed, result.Failed, result.Appended)
	return result, nil
}

// filterProcessed drops ids the ledger has already seen.
func (p *Pipeline) filterProcessed(ids []string, result *Result) []string {
	if p.opts.Store == nil {
		return ids
	}

	fresh := make([]string, 0, len(ids))
	for _, id := range ids {
		done, err := p.opts.Store.IsProcessed(id)
		if err != nil {
			log.Printf("Failed to check ledger for %s: %v", id, err)
		}
		if done {
			result.Skipped++
			continue
		}
		fresh = append(fresh, id)
	}
	return fresh
}

// parseAll fetches and parses the messages with a bounded worker pool,
// preserving input order in the result slice. Extraction itself shares no
// mutable state, so messages parse independently.
func (p *Pipeline) parseAll(ctx context.Context, ids []string, result *Result) []*parser.ParsedEmail {
	parsed := make([]*parser.ParsedEmail, len(ids))
	var failed sync.Map

	indexChan := make(chan int, len(ids))

	var wg sync.WaitGroup
	for w := 0; w < p.opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexChan {
				msg, err := p.opts.Source.GetMessage(ctx, ids[i])
				if err != nil {
					log.Printf("Failed to fetch message %s: %v", ids[i], err)
					failed.Store(i, struct{}{})
					continue
				}
				parsed[i] = parser.ParseMessage(msg, p.opts.Rules, p.opts.Keywords)
			}
		}()
	}

	for i := range ids {
		indexChan <- i
	}
	close(indexChan)
	wg.Wait()

	failed.Range(func(_, _ interface{}) bool {
		result.Failed++
		return true
	})
	return parsed
}

// finish records appended messages in the ledger and marks them read.
// Failures here are logged and skipped; the append already succeeded.
func (p *Pipeline) finish(ctx context.Context, parsed []*parser.ParsedEmail, runID string) {
	for _, pe := range parsed {
		if pe.MessageID == "" {
			continue
		}
		if p.opts.Store != nil {
			if err := p.opts.Store.MarkProcessed(pe.MessageID, runID, pe.Subject); err != nil {
				log.Printf("Failed to record message %s: %v", pe.MessageID, err)
			}
		}
		if err := p.opts.Source.MarkRead(ctx, pe.MessageID); err != nil {
			log.Printf("Failed to mark message %s as read: %v", pe.MessageID, err)
		}
	}
}
