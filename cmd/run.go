package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/review"
	"github.com/joescharf/revu/internal/store"
)

var runCommitSHA string

var runCmd = &cobra.Command{
	Use:   "run <owner/repo#number>",
	Short: "Run a review for one pull request synchronously",
	Long: `Run the full review pipeline for one pull request and wait for it
to finish. The repository must already be tracked with auto review
enabled.

Example:
  revu run acme/widgets#42 --sha 3f2a91c`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRun(args[0])
	},
}

func init() {
	runCmd.Flags().StringVar(&runCommitSHA, "sha", "", "Head commit SHA of the pull request (required)")
	_ = runCmd.MarkFlagRequired("sha")
	rootCmd.AddCommand(runCmd)
}

// parsePRRef parses owner/repo#number.
func parsePRRef(ref string) (fullName string, number int, err error) {
	fullName, numStr, found := strings.Cut(ref, "#")
	if !found {
		return "", 0, fmt.Errorf("invalid pull request reference %q (expected owner/repo#number)", ref)
	}
	if _, _, err := splitFullName(fullName); err != nil {
		return "", 0, err
	}
	number, err = strconv.Atoi(numStr)
	if err != nil || number < 1 {
		return "", 0, fmt.Errorf("invalid pull request number %q", numStr)
	}
	return fullName, number, nil
}

func runRun(ref string) error {
	fullName, number, err := parsePRRef(ref)
	if err != nil {
		return err
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	repo, err := s.GetRepositoryByFullName(ctx, fullName)
	if err != nil {
		return fmt.Errorf("repository not tracked: %s", fullName)
	}

	gh, err := newGitHubClient()
	if err != nil {
		return err
	}
	analyzer, err := newAnalyzer()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would review %s#%d at %s", fullName, number, runCommitSHA)
		return nil
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))
	pipeline := review.NewPipeline(s, gh, analyzer, reviewConfig(), logger)

	event := &models.WebhookEvent{
		Event:             "pull_request",
		Action:            "opened",
		RepoGitHubID:      repo.GitHubID,
		RepoOwner:         repo.Owner,
		RepoName:          repo.Name,
		RepoFullName:      repo.FullName,
		PullRequestNumber: number,
		HeadSHA:           runCommitSHA,
		InstallationID:    repo.InstallationID,
	}

	ui.Info("Reviewing %s#%d at %s", fullName, number, shortSHA(runCommitSHA))
	if err := pipeline.Run(ctx, event); err != nil {
		return err
	}

	reviews, err := s.ListReviews(ctx, store.ReviewListFilter{RepositoryID: repo.ID, Limit: 1})
	if err != nil || len(reviews) == 0 {
		ui.Success("Review finished")
		return nil
	}
	latest := reviews[0]
	ui.Success("Review %s: %d findings", latest.ID, len(latest.Findings))
	return reviewsShowRun(latest.ID)
}
