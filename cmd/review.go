package cmd

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/jobs"
)

const (
	promptYes  = "Yes"
	promptNo   = "No"
	promptDone = "done"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Walk through relevant postings and mark the ones to drop as skipped",
	Run: func(_ *cobra.Command, _ []string) {
		r := setup()
		defer r.close()

		if err := review(r); err != nil {
			r.logger.Fatal("review failed", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func review(r *runtime) error {
	for {
		postings, err := r.store.RelevantJobs()
		if err != nil {
			return err
		}

		if len(postings) == 0 {
			r.logger.Info("no relevant postings left to review")
			return nil
		}

		items := make([]string, 0, len(postings)+1)
		for _, p := range postings {
			items = append(items, fmt.Sprintf("%d %s / %s / %s", p.ID, p.Title, p.Company, p.URL))
		}

		postingPrompt := promptui.Select{
			Label: "Choose a posting to skip and press ENTER",
			Items: append(items, promptDone),
		}

		_, selected, err := postingPrompt.Run()
		if err != nil {
			return err
		}

		if selected == promptDone {
			return nil
		}

		id := strings.Split(selected, " ")[0]
		posting := findByLabelID(postings, id)
		if posting == nil {
			return fmt.Errorf("there is no such posting id %s", id)
		}

		confirm := promptui.Select{
			Label: fmt.Sprintf("Mark %q as skipped?", posting.Title),
			Items: []string{promptYes, promptNo},
		}

		_, answer, err := confirm.Run()
		if err != nil {
			return err
		}

		if answer != promptYes {
			continue
		}

		if err := r.store.UpdateStatus(posting.ID, jobs.StatusSkipped); err != nil {
			return err
		}

		r.logger.Info("posting skipped",
			zap.Int64("id", posting.ID),
			zap.String("title", posting.Title),
			zap.String("company", posting.Company),
		)
	}
}

func findByLabelID(postings []*jobs.Posting, id string) *jobs.Posting {
	for _, p := range postings {
		if fmt.Sprintf("%d", p.ID) == id {
			return p
		}
	}
	return nil
}
