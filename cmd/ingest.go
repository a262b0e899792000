package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch postings from the configured sources into the database",
	Run: func(_ *cobra.Command, _ []string) {
		r := setup()
		defer r.close()

		sources := r.sources()
		if len(sources) == 0 {
			r.logger.Fatal("no ingest sources configured", zap.String("hint", "set search.thehub or search.dump in the configuration file"))
		}

		if _, err := r.pipeline().Ingest(context.Background(), sources...); err != nil {
			r.logger.Fatal("ingest failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
