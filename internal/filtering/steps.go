package filtering

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/ai"
	"github.com/spigell/jobpilot/internal/jobs"
)

// postedAtLayouts covers the timestamp formats seen across platforms.
// time.Parse tolerates fractional seconds the layout does not spell out, so
// microsecond variants of these need no layouts of their own.
var postedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

type ageStep struct {
	maxAge time.Duration
	now    func() time.Time
}

func newAgeStep(maxAgeDays int) *ageStep {
	return &ageStep{
		maxAge: time.Duration(maxAgeDays) * 24 * time.Hour,
		now:    time.Now,
	}
}

func (s *ageStep) Name() string { return "age" }

// Decide rejects postings older than the configured threshold. Missing or
// unparseable timestamps pass: unknown age is never disqualifying.
func (s *ageStep) Decide(_ context.Context, p *jobs.Posting) (Decision, error) {
	if s.maxAge <= 0 {
		return Decision{}, nil
	}

	posted, ok := parsePostedAt(p.PostedAt)
	if !ok {
		return Decision{}, nil
	}

	if s.now().UTC().Sub(posted) > s.maxAge {
		return Decision{
			Match:     true,
			Relevance: jobs.RelevanceIrrelevant,
			Reason:    "posting is older than the configured maximum age",
		}, nil
	}

	return Decision{}, nil
}

func parsePostedAt(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	for _, layout := range postedAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

type keywordStep struct {
	exclude []string
}

func newKeywordStep(exclude []string) *keywordStep {
	lowered := make([]string, 0, len(exclude))
	for _, kw := range exclude {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &keywordStep{exclude: lowered}
}

func (s *keywordStep) Name() string { return "title_keywords" }

// Decide rejects postings whose title contains an exclusion term,
// case-insensitive substring match.
func (s *keywordStep) Decide(_ context.Context, p *jobs.Posting) (Decision, error) {
	title := strings.ToLower(p.Title)
	for _, kw := range s.exclude {
		if strings.Contains(title, kw) {
			return Decision{
				Match:     true,
				Relevance: jobs.RelevanceIrrelevant,
				Reason:    "title matches exclusion keyword " + kw,
			}, nil
		}
	}

	return Decision{}, nil
}

type classifierStep struct {
	classifier ai.Classifier
	include    []string
	logger     *zap.Logger
}

func newClassifierStep(classifier ai.Classifier, include []string, logger *zap.Logger) *classifierStep {
	lowered := make([]string, 0, len(include))
	for _, kw := range include {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &classifierStep{classifier: classifier, include: lowered, logger: logger}
}

func (s *classifierStep) Name() string { return "classifier" }

// Decide asks the external classifier and always produces a decision. When
// the call fails the step falls back to a conservative heuristic: accept only
// titles carrying an inclusion keyword, and record that a fallback fired.
func (s *classifierStep) Decide(ctx context.Context, p *jobs.Posting) (Decision, error) {
	verdict, err := s.classifier.Classify(ctx, p.Title, p.Company)
	if err != nil {
		s.logger.Warn("classifier call failed, using keyword fallback",
			zap.String("title", p.Title),
			zap.Error(err),
		)
		return s.fallback(p), nil
	}

	relevance := jobs.RelevanceIrrelevant
	if verdict.Relevant {
		relevance = jobs.RelevanceRelevant
	}

	return Decision{Match: true, Relevance: relevance, Reason: verdict.Reason}, nil
}

func (s *classifierStep) fallback(p *jobs.Posting) Decision {
	title := strings.ToLower(p.Title)
	for _, kw := range s.include {
		if strings.Contains(title, kw) {
			return Decision{
				Match:     true,
				Relevance: jobs.RelevanceRelevant,
				Reason:    "classifier failed, title matches fallback keyword " + kw,
				Fallback:  true,
			}
		}
	}

	return Decision{
		Match:     true,
		Relevance: jobs.RelevanceIrrelevant,
		Reason:    "classifier failed, no fallback keyword matched",
		Fallback:  true,
	}
}
