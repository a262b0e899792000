package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Score unscored postings for relevance",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()

		r := setup()
		defer r.close()

		fp, err := r.filterPipeline(ctx)
		if err != nil {
			r.logger.Fatal("building the filter pipeline", zap.Error(err))
		}

		if _, err := r.pipeline().Filter(ctx, fp); err != nil {
			r.logger.Fatal("filtering failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(filterCmd)
}
