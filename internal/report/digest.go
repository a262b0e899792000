package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/jobs"
	"github.com/spigell/jobpilot/internal/store"
)

const (
	// DefaultMinScore is the match score below which a posting is not worth
	// reporting.
	DefaultMinScore = 0.6

	// hotScore marks the strongest matches in the digest.
	hotScore = 0.8

	maxDigestEntries = 10

	analyzedLookback = 50
)

// Entry is one reportable posting with its parsed match score.
type Entry struct {
	ID      int64
	Title   string
	Company string
	URL     string
	Score   float64
}

// Reporter assembles and sends the digest of analyzed postings.
type Reporter struct {
	store    *store.Store
	telegram *Telegram
	minScore float64
	logger   *zap.Logger

	now func() time.Time
}

func NewReporter(st *store.Store, telegram *Telegram, minScore float64, logger *zap.Logger) *Reporter {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}

	return &Reporter{
		store:    st,
		telegram: telegram,
		minScore: minScore,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sends the digest for the most recent analyzed postings. An empty
// digest sends nothing.
func (r *Reporter) Run(ctx context.Context) error {
	postings, err := r.store.AnalyzedJobs(analyzedLookback)
	if err != nil {
		return err
	}

	entries := CollectEntries(postings, r.minScore, r.logger)
	if len(entries) == 0 {
		r.logger.Info("no postings above the score threshold, skipping digest")
		return nil
	}

	message := BuildMessage(entries, r.now())

	r.logger.Info("sending digest",
		zap.Int("matches", len(entries)),
		zap.Float64("min_score", r.minScore),
	)

	return r.telegram.SendMessage(ctx, message)
}

// CollectEntries parses the stored analysis of each posting and keeps those
// scoring at or above minScore, sorted by descending score. Unparseable
// analyses are logged and skipped.
func CollectEntries(postings []*jobs.Posting, minScore float64, logger *zap.Logger) []Entry {
	var entries []Entry

	for _, p := range postings {
		req, err := jobs.ParseRequirement(p.Analysis)
		if err != nil {
			logger.Warn("skipping posting with unparseable analysis",
				zap.Int64("id", p.ID),
				zap.Error(err),
			)
			continue
		}

		if req.MatchScore < minScore {
			continue
		}

		entries = append(entries, Entry{
			ID:      p.ID,
			Title:   p.Title,
			Company: p.Company,
			URL:     p.URL,
			Score:   req.MatchScore,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	return entries
}

// BuildMessage renders the Markdown digest. Caps the listing at
// maxDigestEntries but reports the full match count in the header.
func BuildMessage(entries []Entry, now time.Time) string {
	top := entries
	if len(top) > maxDigestEntries {
		top = top[:maxDigestEntries]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 *Job digest (%s)*\n\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "🎯 Found *%d* strong matches\n\n", len(entries))

	for i, e := range top {
		icon := "✨"
		if e.Score >= hotScore {
			icon = "🔥"
		}
		fmt.Fprintf(&b, "%d. %s *%.2f* | [%s](%s)\n", i+1, icon, e.Score, e.Title, e.URL)
		fmt.Fprintf(&b, "   🏢 %s\n\n", e.Company)
	}

	b.WriteString("💪 Good luck, apply directly from the links.")

	return b.String()
}
