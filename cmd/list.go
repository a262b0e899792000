package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/jobs"
	"github.com/spigell/jobpilot/internal/utils"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List relevant postings, or postings in a given status",
	Run: func(cmd *cobra.Command, _ []string) {
		r := setup()
		defer r.close()

		var (
			postings []*jobs.Posting
			err      error
			label    string
		)

		if status := cmd.Flag("status").Value.String(); status != "" {
			label = fmt.Sprintf("status %q", status)
			postings, err = r.store.JobsByStatus(jobs.Status(status))
		} else {
			label = "relevance \"relevant\""
			postings, err = r.store.RelevantJobs()
		}
		if err != nil {
			r.logger.Fatal("listing postings", zap.Error(err))
		}

		if len(postings) == 0 {
			fmt.Printf("no postings with %s\n", label)
			return
		}

		for _, p := range postings {
			line := fmt.Sprintf("%d [%s/%s/%s] %s @ %s", p.ID, p.Platform, p.Status, p.Relevance, p.Title, p.Company)
			if p.URL != "" {
				line += " " + p.URL
			}
			fmt.Println(utils.TruncateForLog(line, 160))
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("status", "s", "", "list postings in this status instead (new, filtered, analyzed, generated, skipped)")
}
