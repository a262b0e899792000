package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/spigell/jobpilot/internal/ai"
	"github.com/spigell/jobpilot/internal/ai/gemini"
	"github.com/spigell/jobpilot/internal/filtering"
	"github.com/spigell/jobpilot/internal/ingest"
	"github.com/spigell/jobpilot/internal/match"
	"github.com/spigell/jobpilot/internal/pipeline"
	"github.com/spigell/jobpilot/internal/profile"
	"github.com/spigell/jobpilot/internal/render"
	"github.com/spigell/jobpilot/internal/report"
	"github.com/spigell/jobpilot/internal/secrets"
)

const (
	defaultMaxAgeDays = 14

	// defaultBatchDelay paces successive external calls within a batch.
	defaultBatchDelay = 200 * time.Millisecond
)

func (r *runtime) pipeline() *pipeline.Pipeline {
	delay := defaultBatchDelay
	if r.config.Filter != nil && r.config.Filter.Delay > 0 {
		delay = r.config.Filter.Delay
	}

	return pipeline.New(r.store, delay, r.logger)
}

// sources builds the configured ingest sources. At least one must be
// configured for the ingest verb to do anything.
func (r *runtime) sources() []ingest.Source {
	var sources []ingest.Source

	if r.config.Search != nil && r.config.Search.TheHub != nil {
		hub := r.config.Search.TheHub
		sources = append(sources, ingest.NewTheHub(hub.URL, hub.Keywords, hub.Params, r.logger))
	}

	if r.config.Search != nil && r.config.Search.Dump != "" {
		sources = append(sources, ingest.NewFile(r.config.Search.Dump))
	}

	return sources
}

func (r *runtime) geminiClient(ctx context.Context) (*gemini.Client, error) {
	cfg := r.geminiConfig()

	keyFile := strings.TrimSpace(cfg.APIKeyFile)
	if keyFile == "" {
		keyFile = strings.TrimSpace(viper.GetString("ai.gemini.api-key-file"))
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: keyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	return gemini.NewClient(ctx, apiKey, cfg.Model, cfg.EmbeddingModel)
}

func (r *runtime) geminiConfig() *GeminiConfig {
	if r.config.AI != nil && r.config.AI.Gemini != nil {
		return r.config.AI.Gemini
	}
	return &GeminiConfig{}
}

func (r *runtime) filterConfig() *filtering.Config {
	cfg := &filtering.Config{MaxAgeDays: defaultMaxAgeDays}

	if r.config.Filter != nil {
		if r.config.Filter.MaxAgeDays > 0 {
			cfg.MaxAgeDays = r.config.Filter.MaxAgeDays
		}
		cfg.ExcludeKeywords = r.config.Filter.ExcludeKeywords
		cfg.IncludeKeywords = r.config.Filter.IncludeKeywords
	}

	return cfg
}

func (r *runtime) filterPipeline(ctx context.Context) (*filtering.Pipeline, error) {
	client, err := r.geminiClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("building gemini client: %w", err)
	}

	classifier := gemini.NewClassifier(client, r.logger, r.geminiConfig().MaxLogLength)

	return filtering.New(r.filterConfig(), classifier, r.logger)
}

func (r *runtime) loadProfile() (*profile.Profile, error) {
	return profile.Load(r.config.Profile)
}

func (r *runtime) matchEngine(embedder ai.Embedder) *match.Engine {
	topN := match.DefaultTopN
	if r.config.Match != nil && r.config.Match.TopN > 0 {
		topN = r.config.Match.TopN
	}

	return match.New(embedder, topN, r.logger)
}

func (r *runtime) renderer(ctx context.Context) (*render.Renderer, error) {
	client, err := r.geminiClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("building gemini client: %w", err)
	}

	var rewriter ai.Rewriter
	if r.config.Match != nil && r.config.Match.Rewrite {
		rewriter = gemini.NewRewriter(client, r.logger)
	}

	return render.New(&render.Config{
		TemplatePath: r.config.Template,
		OutputDir:    r.config.OutputDir,
		TectonicCmd:  r.config.TectonicCmd,
	}, r.matchEngine(client), rewriter, r.logger)
}

func (r *runtime) telegram() (*report.Telegram, error) {
	var tokenFile, chatID string
	if r.config.Report != nil && r.config.Report.Telegram != nil {
		tokenFile = r.config.Report.Telegram.TokenFile
		chatID = r.config.Report.Telegram.ChatID
	}
	if tokenFile == "" {
		tokenFile = strings.TrimSpace(viper.GetString("report.telegram.token-file"))
	}
	if chatID == "" {
		chatID = strings.TrimSpace(viper.GetString("report.telegram.chat-id"))
	}

	var token string
	if tokenFile != "" {
		loaded, err := secrets.Load(secrets.Source{
			Name: "telegram bot token",
			File: tokenFile,
		})
		if err != nil {
			return nil, err
		}
		token = loaded
	}

	return report.NewTelegram(token, chatID, r.logger), nil
}

func (r *runtime) reporter() (*report.Reporter, error) {
	telegram, err := r.telegram()
	if err != nil {
		return nil, err
	}

	minScore := report.DefaultMinScore
	if r.config.Report != nil && r.config.Report.MinScore > 0 {
		minScore = r.config.Report.MinScore
	}

	return report.NewReporter(r.store, telegram, minScore, r.logger), nil
}

// candidateContext summarizes the profile for extraction prompts: who the
// candidate is and what they know, in a couple of lines.
func candidateContext(prof *profile.Profile) string {
	var lines []string

	for _, key := range []string{"summary", "headline", "name"} {
		if v := strings.TrimSpace(prof.Personal[key]); v != "" {
			lines = append(lines, v)
			break
		}
	}

	for _, edu := range prof.Education {
		lines = append(lines, fmt.Sprintf("%s, %s", edu.Degree, edu.School))
	}

	if skills := prof.SkillSummary(); skills != "" {
		lines = append(lines, "Skills: "+skills)
	}

	return strings.Join(lines, "\n")
}
