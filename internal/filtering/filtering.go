// Package filtering implements the two-tier relevance decision for new
// postings: cheap deterministic rules first, the external classifier only for
// the ambiguous remainder.
package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/ai"
	"github.com/spigell/jobpilot/internal/jobs"
)

// Decision is the outcome of a single step for one posting. Match reports
// whether the step decided; when false the next step runs.
type Decision struct {
	Match     bool
	Relevance jobs.Relevance
	Reason    string
	// Fallback is set when the decision came from the conservative keyword
	// heuristic after a classifier failure.
	Fallback bool
}

// Step examines one posting and either decides its relevance or passes.
type Step interface {
	Name() string
	Decide(ctx context.Context, p *jobs.Posting) (Decision, error)
}

// Config contains the filter vocabulary and thresholds.
type Config struct {
	MaxAgeDays int
	// ExcludeKeywords rule out a posting when found in its title.
	ExcludeKeywords []string
	// IncludeKeywords conservatively keep a posting when the classifier is
	// unavailable.
	IncludeKeywords []string
}

// Pipeline runs the ordered steps. The final classifier step always decides,
// so Decide never returns an undecided posting.
type Pipeline struct {
	steps  []Step
	logger *zap.Logger
}

// New builds the standard step sequence: age rule, title exclusion rule,
// classifier with keyword fallback. It rejects vocabularies where a term is
// both excluded and fallback-included, since such a posting would be
// rule-rejected or fallback-accepted depending on classifier availability.
func New(cfg *Config, classifier ai.Classifier, logger *zap.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("filter config is required")
	}

	for _, exclude := range cfg.ExcludeKeywords {
		for _, include := range cfg.IncludeKeywords {
			if strings.EqualFold(strings.TrimSpace(exclude), strings.TrimSpace(include)) {
				return nil, fmt.Errorf("keyword %q is both excluded and fallback-included", exclude)
			}
		}
	}

	steps := []Step{
		newAgeStep(cfg.MaxAgeDays),
		newKeywordStep(cfg.ExcludeKeywords),
		newClassifierStep(classifier, cfg.IncludeKeywords, logger),
	}

	return &Pipeline{steps: steps, logger: logger}, nil
}

// Decide runs the posting through the steps and returns the first decision.
func (f *Pipeline) Decide(ctx context.Context, p *jobs.Posting) (Decision, error) {
	for _, step := range f.steps {
		decision, err := step.Decide(ctx, p)
		if err != nil {
			return Decision{}, fmt.Errorf("%s: %w", step.Name(), err)
		}
		if !decision.Match {
			continue
		}

		f.logger.Debug("filter step decided",
			zap.String("step", step.Name()),
			zap.String("title", p.Title),
			zap.String("relevance", string(decision.Relevance)),
			zap.String("reason", decision.Reason),
		)

		return decision, nil
	}

	// The classifier step always matches; reaching here means the pipeline
	// was built without it.
	return Decision{}, fmt.Errorf("no filter step decided posting %q", p.Title)
}
