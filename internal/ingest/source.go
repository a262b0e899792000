// Package ingest produces normalized postings from external job boards.
// Sources are thin I/O edges: they fetch, clean and map, while the store
// owns deduplication.
package ingest

import (
	"context"
	"regexp"
	"strings"

	"github.com/spigell/jobpilot/internal/jobs"
)

// Source fetches raw postings from one platform. A source failure is a
// per-source event; the ingest stage logs it and moves on.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]*jobs.Posting, error)
}

var (
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CleanHTML strips residual HTML tags from description text and collapses
// whitespace.
func CleanHTML(text string) string {
	clean := tagRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(clean, " "))
}
