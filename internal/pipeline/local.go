package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/larez/mailsift/internal/parser"
)

// LocalSource feeds .eml files from a directory through the pipeline instead
// of the Gmail API. Useful for exercising a rule file against saved messages
// before pointing the pipeline at a live mailbox.
type LocalSource struct {
	root string
}

// NewLocalSource returns a source over the .eml files under root.
func NewLocalSource(root string) *LocalSource {
	return &LocalSource{root: root}
}

// ListMessages returns the .eml file paths under the root in sorted order,
// capped at max. The query is ignored; local files have no mailbox labels.
func (s *LocalSource) ListMessages(_ context.Context, _ string, max int64) ([]string, error) {
	var files []string

	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".eml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", s.root, err)
	}

	sort.Strings(files)
	if int64(len(files)) > max {
		files = files[:max]
	}
	return files, nil
}

// GetMessage parses the .eml file at the given path.
func (s *LocalSource) GetMessage(_ context.Context, path string) (*parser.Message, error) {
	return parser.ReadEMLFile(path)
}

// MarkRead is a no-op for local files.
func (s *LocalSource) MarkRead(context.Context, string) error {
	return nil
}
