package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/ai/gemini"
	"github.com/spigell/jobpilot/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Extract structured requirements for relevant postings",
	Run: func(_ *cobra.Command, _ []string) {
		r := setup()
		defer r.close()

		if err := analyzeBatch(context.Background(), r, r.pipeline()); err != nil {
			r.logger.Fatal("analysis failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func analyzeBatch(ctx context.Context, r *runtime, p *pipeline.Pipeline) error {
	prof, err := r.loadProfile()
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}

	client, err := r.geminiClient(ctx)
	if err != nil {
		return fmt.Errorf("building gemini client: %w", err)
	}

	extractor := gemini.NewExtractor(client, r.logger, r.geminiConfig().MaxLogLength)

	_, err = p.Analyze(ctx, extractor, candidateContext(prof))
	return err
}
