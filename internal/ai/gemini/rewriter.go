package gemini

import (
	"context"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/ai"
)

//go:embed rewrite_prompt.md
var rewritePromptTemplate string

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Rewriter tunes individual resume bullets toward the target skills. It is
// best-effort: any failure or implausible output falls back to the original
// bullet.
type Rewriter struct {
	generator contentGenerator
	logger    *zap.Logger
}

func NewRewriter(generator contentGenerator, logger *zap.Logger) *Rewriter {
	return &Rewriter{generator: generator, logger: logger}
}

var _ ai.Rewriter = (*Rewriter)(nil)

func (r *Rewriter) Rewrite(ctx context.Context, bullet string, skills []string) (string, error) {
	if len(skills) == 0 {
		return bullet, nil
	}

	prompt := strings.ReplaceAll(rewritePromptTemplate, "{{SKILLS}}", strings.Join(skills, ", "))
	prompt = strings.ReplaceAll(prompt, "{{ORIGINAL}}", bullet)

	raw, err := r.generator.GenerateContent(ctx, prompt)
	if err != nil {
		r.logger.Warn("bullet rewrite failed, keeping original", zap.Error(err))
		return bullet, nil
	}

	rewritten := strings.Trim(strings.TrimSpace(raw), `"'`)

	// Sanity bounds: a rewrite that collapses or balloons is a model
	// hallucination, not an improvement.
	if len(rewritten) <= 20 || len(rewritten) >= len(bullet)*3 {
		return bullet, nil
	}

	return rewritten, nil
}
