package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: ingest, filter, backfill and analyze",
	Run: func(_ *cobra.Command, _ []string) {
		run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run() {
	ctx := context.Background()

	r := setup()
	defer r.close()

	r.logger.Info("starting the jobpilot pipeline", zap.String("version", version))

	p := r.pipeline()

	sources := r.sources()
	if len(sources) == 0 {
		r.logger.Fatal("no ingest sources configured", zap.String("hint", "set search.thehub or search.dump in the configuration file"))
	}

	if _, err := p.Ingest(ctx, sources...); err != nil {
		r.logger.Fatal("ingest failed", zap.Error(err))
	}

	fp, err := r.filterPipeline(ctx)
	if err != nil {
		r.logger.Fatal("building the filter pipeline", zap.Error(err))
	}

	if _, err := p.Filter(ctx, fp); err != nil {
		r.logger.Fatal("filtering failed", zap.Error(err))
	}

	if _, err := p.Backfill(ctx, newBackfiller(r)); err != nil {
		r.logger.Fatal("backfill failed", zap.Error(err))
	}

	if err := analyzeBatch(ctx, r, p); err != nil {
		r.logger.Fatal("analysis failed", zap.Error(err))
	}

	r.logger.Info("pipeline finished")
}
