package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spigell/jobpilot/internal/jobs"
)

const filePlatform = "file"

// File imports postings from a local JSON dump, for seeding a database or
// replaying an exported batch. The dump is an array of posting objects.
type File struct {
	Path string
}

func NewFile(path string) *File {
	return &File{Path: path}
}

func (f *File) Name() string { return filePlatform }

type filePosting struct {
	Platform    string `json:"platform"`
	PlatformID  string `json:"platform_id"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	URL         string `json:"url"`
	Description string `json:"description"`
	PostedAt    string `json:"posted_at"`
}

func (f *File) Fetch(_ context.Context) ([]*jobs.Posting, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading dump %s: %w", f.Path, err)
	}

	var entries []filePosting
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parsing dump %s: %w", f.Path, err)
	}

	postings := make([]*jobs.Posting, 0, len(entries))
	for _, entry := range entries {
		if entry.Title == "" || entry.Company == "" {
			continue
		}

		platform := entry.Platform
		if platform == "" {
			platform = filePlatform
		}

		postings = append(postings, &jobs.Posting{
			Platform:    platform,
			PlatformID:  entry.PlatformID,
			Title:       entry.Title,
			Company:     entry.Company,
			URL:         entry.URL,
			Description: CleanHTML(entry.Description),
			PostedAt:    entry.PostedAt,
		})
	}

	return postings, nil
}
