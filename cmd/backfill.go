package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/ingest"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Refetch truncated linkedin job descriptions",
	Run: func(_ *cobra.Command, _ []string) {
		r := setup()
		defer r.close()

		if _, err := r.pipeline().Backfill(context.Background(), newBackfiller(r)); err != nil {
			r.logger.Fatal("backfill failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}

func newBackfiller(r *runtime) *ingest.Backfiller {
	return ingest.NewBackfiller(r.logger)
}
