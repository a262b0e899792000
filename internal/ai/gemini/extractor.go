package gemini

import (
	"context"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/ai"
	"github.com/spigell/jobpilot/internal/jobs"
	"github.com/spigell/jobpilot/internal/utils"
)

//go:embed extractor_prompt.md
var extractorPromptTemplate string

const (
	// minDescriptionRunes gates the external call: texts below this carry no
	// extractable signal and are rejected locally.
	minDescriptionRunes = 50
	// maxDescriptionRunes truncates oversized descriptions before prompting.
	maxDescriptionRunes = 8000

	extractionTemperature = 0.1
)

// Extractor turns job descriptions into structured requirement records.
type Extractor struct {
	generator jsonGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewExtractor(generator jsonGenerator, logger *zap.Logger, maxLogLength int) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Extractor{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

var _ ai.Extractor = (*Extractor)(nil)

func (e *Extractor) Extract(ctx context.Context, description, candidateContext string) (*jobs.Requirement, error) {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) < minDescriptionRunes {
		return nil, ai.ErrShortDescription
	}

	if runes := []rune(description); len(runes) > maxDescriptionRunes {
		description = string(runes[:maxDescriptionRunes])
	}

	if strings.TrimSpace(candidateContext) == "" {
		candidateContext = "not provided"
	}

	prompt := strings.ReplaceAll(extractorPromptTemplate, "{{CANDIDATE_CONTEXT}}", candidateContext)
	prompt = strings.ReplaceAll(prompt, "{{DESCRIPTION}}", description)

	e.logger.Debug("gemini extract request",
		zap.Int("description_length", utf8.RuneCountInString(description)),
	)

	raw, err := e.generator.GenerateJSON(ctx, prompt, extractionTemperature)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("gemini extract response",
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	return jobs.ParseRequirement(raw)
}
