package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/ai"
	"github.com/spigell/jobpilot/internal/jobs"
	"github.com/spigell/jobpilot/internal/utils"
)

// jsonGenerator is the slice of Client the prompt wrappers need; tests
// substitute a stub.
type jsonGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, temperature float32) (string, error)
}

//go:embed classifier_prompt.md
var classifierPromptTemplate string

const defaultMaxLogLength = 200

// Classifier judges posting relevance from title and company with a bounded
// Gemini prompt.
type Classifier struct {
	generator jsonGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewClassifier(generator jsonGenerator, logger *zap.Logger, maxLogLength int) *Classifier {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Classifier{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

var _ ai.Classifier = (*Classifier)(nil)

func (c *Classifier) Classify(ctx context.Context, title, company string) (*ai.Verdict, error) {
	prompt := strings.ReplaceAll(classifierPromptTemplate, "{{TITLE}}", title)
	prompt = strings.ReplaceAll(prompt, "{{COMPANY}}", company)

	c.logger.Debug("gemini classify request",
		zap.String("title", title),
		zap.String("company", company),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
	)

	raw, err := c.generator.GenerateJSON(ctx, prompt, 0)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("gemini classify response",
		zap.String("title", title),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)

	return parseVerdict(raw)
}

func parseVerdict(raw string) (*ai.Verdict, error) {
	cleaned := jobs.ExtractJSON(raw)

	var data struct {
		IsRelevant bool   `json:"is_relevant"`
		Reason     string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse classifier response: %w", err)
	}

	reason := strings.TrimSpace(data.Reason)
	if reason == "" {
		reason = "no reason provided"
	}

	return &ai.Verdict{Relevant: data.IsRelevant, Reason: reason}, nil
}
