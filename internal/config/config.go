// Package config loads application settings from the environment and the
// extraction rule file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/larez/mailsift/internal/rules"
)

// Config holds application configuration
type Config struct {
	// OAuth client credentials
	ClientSecretFile string
	TokenFile        string

	// Google Sheet information
	SpreadsheetID string
	SheetName     string

	// Gmail/processing settings
	MaxResults       int64
	SearchQuery      string
	PriorityKeywords string

	// Extraction rule file (empty means the built-in default set)
	RulesFile string

	// Processed-message ledger
	DBPath string
}

// FromEnv returns configuration from environment variables with defaults.
func FromEnv() *Config {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	dataDir := filepath.Join(homeDir, ".mailsift")

	return &Config{
		ClientSecretFile: envOr("CLIENT_SECRET_FILE", "client_secret.json"),
		TokenFile:        envOr("TOKEN_FILE", filepath.Join(dataDir, "token.json")),
		SpreadsheetID:    os.Getenv("SPREADSHEET_ID"),
		SheetName:        envOr("SHEET_NAME", "Emails"),
		MaxResults:       envInt("MAX_RESULTS", 10),
		SearchQuery:      envOr("GMAIL_SEARCH_QUERY", "is:unread"),
		PriorityKeywords: os.Getenv("HIGH_PRIORITY_KEYWORDS"),
		RulesFile:        os.Getenv("RULES_FILE"),
		DBPath:           envOr("DB_PATH", filepath.Join(dataDir, "processed.db")),
	}
}

// Keywords splits the configured high-priority keyword string on commas,
// trimming whitespace and discarding empty entries.
func (c *Config) Keywords() []string {
	var keywords []string
	for _, kw := range strings.Split(c.PriorityKeywords, ",") {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// LoadRules reads a YAML rule file into a validated rule set. An empty path
// yields the built-in default set.
func LoadRules(path string) (rules.Set, error) {
	if path == "" {
		return rules.Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return rules.Set{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	var list []rules.Rule
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return rules.Set{}, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	set, err := rules.NewSet(list)
	if err != nil {
		return rules.Set{}, fmt.Errorf("invalid rules in %s: %w", path, err)
	}
	return set, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
