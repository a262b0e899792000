package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Send a Telegram digest of the best analyzed postings",
	Run: func(_ *cobra.Command, _ []string) {
		r := setup()
		defer r.close()

		reporter, err := r.reporter()
		if err != nil {
			r.logger.Fatal("building the reporter", zap.Error(err))
		}

		if err := reporter.Run(context.Background()); err != nil {
			r.logger.Fatal("sending the digest", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
