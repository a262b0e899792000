// Package match ranks candidate bullets against a posting's extracted
// requirements. Small-N exact nearest neighbor: tens to low hundreds of
// bullets, so correctness and simplicity beat any index.
package match

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/ai"
	"github.com/spigell/jobpilot/internal/jobs"
	"github.com/spigell/jobpilot/internal/profile"
)

const (
	// DefaultTopN is the number of bullets surfaced per posting.
	DefaultTopN = 6

	// maxSkillRunes caps each skill in the query so a pathological
	// description-length "skill" cannot dominate the embedding.
	maxSkillRunes = 50

	// epsilon guards the cosine denominator against zero vectors.
	epsilon = 1e-9
)

type Engine struct {
	embedder ai.Embedder
	topN     int
	logger   *zap.Logger
}

func New(embedder ai.Embedder, topN int, logger *zap.Logger) *Engine {
	if topN <= 0 {
		topN = DefaultTopN
	}

	return &Engine{embedder: embedder, topN: topN, logger: logger}
}

// Match returns the bullets most relevant to the requirement, ordered by
// descending cosine similarity with scores attached. When the requirement
// carries no usable signal it degrades to the first topN bullets in original
// order, unscored. Embedding failures are returned to the caller, which
// leaves the posting retryable.
func (e *Engine) Match(ctx context.Context, bullets []profile.Bullet, req *jobs.Requirement) ([]profile.Bullet, error) {
	if len(bullets) == 0 {
		return nil, nil
	}

	query := BuildQuery(req)
	if query == "" {
		e.logger.Warn("requirement carries no skill or domain signal, returning bullets in original order")
		return firstN(bullets, e.topN), nil
	}

	texts := make([]string, 0, len(bullets)+1)
	for _, b := range bullets {
		texts = append(texts, b.Text)
	}
	texts = append(texts, query)

	embeddings, err := e.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding bullets: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(texts))
	}

	queryVec := embeddings[len(embeddings)-1]
	scores := make([]float64, len(bullets))
	for i := range bullets {
		scores[i] = Cosine(embeddings[i], queryVec)
	}

	// Stable sort: ties keep original bullet order.
	order := make([]int, len(bullets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	n := min(e.topN, len(bullets))
	ranked := make([]profile.Bullet, 0, n)
	for _, idx := range order[:n] {
		b := bullets[idx]
		b.Similarity = scores[idx]
		b.Scored = true
		ranked = append(ranked, b)
	}

	e.logger.Debug("matching completed",
		zap.String("query", query),
		zap.Int("bullets", len(bullets)),
		zap.Float64("top_score", ranked[0].Similarity),
		zap.Float64("cutoff_score", ranked[len(ranked)-1].Similarity),
	)

	return ranked, nil
}

// BuildQuery concatenates the requirement's domain with its hard skills into
// a single embedding query. Returns "" when there is no usable signal.
func BuildQuery(req *jobs.Requirement) string {
	if req == nil {
		return ""
	}

	skills := make([]string, 0, len(req.HardSkills))
	for _, skill := range req.HardSkills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		if runes := []rune(skill); len(runes) > maxSkillRunes {
			skill = string(runes[:maxSkillRunes])
		}
		skills = append(skills, skill)
	}

	domain := strings.TrimSpace(req.Domain)
	if domain == "" && len(skills) == 0 {
		return ""
	}

	return domain + ": " + strings.Join(skills, ", ")
}

// Cosine computes the cosine similarity of two vectors, normalizing each to
// unit length with an epsilon guard against zero vectors. Result is in
// [-1, 1] for non-zero inputs, 0 against a zero vector.
func Cosine(a, b []float64) float64 {
	n := min(len(a), len(b))

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, v := range a {
		normA += v * v
	}
	for _, v := range b {
		normB += v * v
	}

	return dot / ((math.Sqrt(normA) + epsilon) * (math.Sqrt(normB) + epsilon))
}

func firstN(bullets []profile.Bullet, n int) []profile.Bullet {
	if n > len(bullets) {
		n = len(bullets)
	}
	out := make([]profile.Bullet, n)
	copy(out, bullets[:n])
	return out
}
