package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	gmailapi "google.golang.org/api/gmail/v1"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/larez/mailsift/internal/auth"
	"github.com/larez/mailsift/internal/config"
	"github.com/larez/mailsift/internal/gmail"
	"github.com/larez/mailsift/internal/pipeline"
	"github.com/larez/mailsift/internal/sheets"
	"github.com/larez/mailsift/internal/store"
)

func main() {
	rulesPath := flag.String("rules", "", "path to a YAML rule file (default: built-in rules)")
	dryRun := flag.Bool("dry-run", false, "parse and log rows without writing to the sheet")
	emlDir := flag.String("eml", "", "process .eml files from this directory instead of Gmail")
	maxResults := flag.Int64("max", 0, "override MAX_RESULTS for this run")
	flag.Parse()

	cfg := config.FromEnv()
	if *rulesPath != "" {
		cfg.RulesFile = *rulesPath
	}
	if *maxResults > 0 {
		cfg.MaxResults = *maxResults
	}

	set, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		log.Fatalf("Failed to load rules: %v", err)
	}
	log.Printf("Loaded %d extraction rules", set.Len())

	ledger, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open processed-message ledger: %v", err)
	}
	defer ledger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var src pipeline.Source
	var sink pipeline.Sink

	needSheets := !*dryRun
	needGmail := *emlDir == ""

	if *emlDir != "" {
		src = pipeline.NewLocalSource(*emlDir)
		if cfg.SpreadsheetID == "" {
			// Local runs without a configured sheet are implicitly dry.
			*dryRun = true
			needSheets = false
		}
	}

	if needGmail || needSheets {
		scopes := []string{}
		if needGmail {
			scopes = append(scopes, gmailapi.GmailModifyScope)
		}
		if needSheets {
			scopes = append(scopes, sheetsapi.SpreadsheetsScope)
		}

		ts, err := auth.TokenSource(ctx, cfg.ClientSecretFile, cfg.TokenFile, scopes...)
		if err != nil {
			log.Fatalf("Failed to initialize credentials: %v", err)
		}

		if needGmail {
			client, err := gmail.NewClient(ctx, ts)
			if err != nil {
				log.Fatalf("Failed to create Gmail client: %v", err)
			}
			src = client
		}
		if needSheets {
			client, err := sheets.NewClient(ctx, ts, cfg.SpreadsheetID, cfg.SheetName)
			if err != nil {
				log.Fatalf("Failed to create Sheets client: %v", err)
			}
			sink = client
		}
	}

	p, err := pipeline.New(pipeline.Options{
		Source:   src,
		Sink:     sink,
		Store:    ledger,
		Rules:    set,
		Keywords: cfg.Keywords(),
		Query:    cfg.SearchQuery,
		Max:      cfg.MaxResults,
		DryRun:   *dryRun,
	})
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	result, err := p.Run(ctx)
	if err != nil {
		log.Fatalf("Pipeline run failed: %v", err)
	}

	log.Printf("Done: %d listed, %d skipped, %d parsed, %d failed, %d appended",
		result.Listed, result.Skipped, result.Parsed, result.Failed, result.Appended)
}
