package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show posting counts by status and relevance",
	Run: func(_ *cobra.Command, _ []string) {
		r := setup()
		defer r.close()

		statuses, err := r.store.StatusCounts()
		if err != nil {
			r.logger.Fatal("reading status counts", zap.Error(err))
		}

		relevances, err := r.store.RelevanceCounts()
		if err != nil {
			r.logger.Fatal("reading relevance counts", zap.Error(err))
		}

		fmt.Println("\n=== Postings by status ===")
		printCounts(statuses)
		fmt.Println("\n=== Postings by relevance ===")
		printCounts(relevances)
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func printCounts(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fmt.Printf("  %s: %d\n", key, counts[key])
	}
}
