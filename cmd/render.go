package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Build tailored resume PDFs for analyzed postings",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()

		r := setup()
		defer r.close()

		prof, err := r.loadProfile()
		if err != nil {
			r.logger.Fatal("loading profile", zap.String("path", r.config.Profile), zap.Error(err))
		}

		renderer, err := r.renderer(ctx)
		if err != nil {
			r.logger.Fatal("building the renderer", zap.Error(err))
		}

		if _, err := r.pipeline().Render(ctx, renderer, prof); err != nil {
			r.logger.Fatal("rendering failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
}
