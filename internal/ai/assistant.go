// Package ai declares the external model capabilities the pipeline depends
// on. Every capability is fallible and blocking; the batch loops own the
// retry/skip policy and can be tested with deterministic fakes.
package ai

import (
	"context"
	"errors"

	"github.com/spigell/jobpilot/internal/jobs"
)

// ErrShortDescription is returned by extractors when the description text is
// below the minimum length worth an external call.
var ErrShortDescription = errors.New("description too short for extraction")

// Verdict is a relevance judgment for one posting.
type Verdict struct {
	Relevant bool
	Reason   string
}

// Classifier judges whether a posting is worth analyzing, from its title and
// company alone.
type Classifier interface {
	Classify(ctx context.Context, title, company string) (*Verdict, error)
}

// Extractor turns a free-text job description into a structured requirement
// record. candidateContext is a short summary of the candidate used for the
// match score.
type Extractor interface {
	Extract(ctx context.Context, description, candidateContext string) (*jobs.Requirement, error)
}

// Embedder maps texts to fixed-dimension vectors. Implementations must
// return one vector per input, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// Rewriter adjusts a resume bullet toward the target skills without
// inventing facts.
type Rewriter interface {
	Rewrite(ctx context.Context, bullet string, skills []string) (string, error)
}
