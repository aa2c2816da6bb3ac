package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/output"
	"github.com/joescharf/revu/internal/store"
)

var (
	reviewsRepo   string
	reviewsStatus string
	reviewsLimit  int
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "List and inspect recorded reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsListRun()
	},
}

var reviewsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reviews, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsListRun()
	},
}

var reviewsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one review with all findings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsShowRun(args[0])
	},
}

var reviewsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recorded reviews",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewsStatsRun()
	},
}

func init() {
	reviewsListCmd.Flags().StringVar(&reviewsRepo, "repo", "", "Filter by repository full name (owner/repo)")
	reviewsListCmd.Flags().StringVar(&reviewsStatus, "status", "", "Filter by status: pending, completed, failed")
	reviewsListCmd.Flags().IntVar(&reviewsLimit, "limit", 20, "Maximum number of reviews to show")

	reviewsCmd.AddCommand(reviewsListCmd)
	reviewsCmd.AddCommand(reviewsShowCmd)
	reviewsCmd.AddCommand(reviewsStatsCmd)
	rootCmd.AddCommand(reviewsCmd)
}

func reviewsListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filter := store.ReviewListFilter{
		Status: models.ReviewStatus(reviewsStatus),
		Limit:  reviewsLimit,
	}
	if reviewsRepo != "" {
		repo, err := s.GetRepositoryByFullName(ctx, reviewsRepo)
		if err != nil {
			return fmt.Errorf("repository not tracked: %s", reviewsRepo)
		}
		filter.RepositoryID = repo.ID
	}

	reviews, err := s.ListReviews(ctx, filter)
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		ui.Info("No reviews recorded")
		return nil
	}

	// Resolve repository names once for display.
	repoNames := make(map[string]string)
	repos, err := s.ListRepositories(ctx)
	if err != nil {
		return err
	}
	for _, r := range repos {
		repoNames[r.ID] = r.FullName
	}

	table := ui.Table([]string{"ID", "Repository", "PR", "Commit", "Status", "Score", "Findings", "Analyzed"})
	for _, r := range reviews {
		score := "-"
		if r.QualityScore != nil {
			score = output.ScoreColor(*r.QualityScore)
		}
		analyzed := "-"
		if r.AnalyzedAt != nil {
			analyzed = r.AnalyzedAt.Local().Format("2006-01-02 15:04")
		}
		table.Append([]string{
			r.ID,
			repoNames[r.RepositoryID],
			fmt.Sprintf("#%d", r.PullRequestNumber),
			shortSHA(r.CommitSHA),
			output.StatusColor(string(r.Status)),
			score,
			fmt.Sprintf("%d", len(r.Findings)),
			analyzed,
		})
	}
	return table.Render()
}

func reviewsShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	review, err := s.GetReview(ctx, id)
	if err != nil {
		return fmt.Errorf("review not found: %s", id)
	}

	repoName := review.RepositoryID
	if repo, err := s.GetRepository(ctx, review.RepositoryID); err == nil {
		repoName = repo.FullName
	}

	fmt.Fprintf(ui.Out, "Review %s\n", output.Cyan(review.ID))
	fmt.Fprintf(ui.Out, "  Repository:  %s\n", repoName)
	fmt.Fprintf(ui.Out, "  Pull request: #%d at %s\n", review.PullRequestNumber, shortSHA(review.CommitSHA))
	fmt.Fprintf(ui.Out, "  Status:      %s\n", output.StatusColor(string(review.Status)))
	if review.QualityScore != nil {
		fmt.Fprintf(ui.Out, "  Quality:     %s\n", output.ScoreColor(*review.QualityScore))
	}
	if review.AnalyzedAt != nil {
		fmt.Fprintf(ui.Out, "  Analyzed:    %s\n", review.AnalyzedAt.Local().Format(time.RFC1123))
	}
	fmt.Fprintln(ui.Out)

	if len(review.Findings) == 0 {
		ui.Info("No findings")
		return nil
	}

	table := ui.Table([]string{"Kind", "Severity", "File", "Line", "Message"})
	for _, f := range review.Findings {
		line := "-"
		if f.Line > 0 {
			line = fmt.Sprintf("%d", f.Line)
		}
		table.Append([]string{
			string(f.Kind),
			output.SeverityColor(string(f.Severity)),
			f.FilePath,
			line,
			f.Message,
		})
	}
	return table.Render()
}

func reviewsStatsRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	stats, err := s.ReviewStats(context.Background())
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "Total reviews: %d\n", stats.Total)
	for _, status := range []models.ReviewStatus{models.ReviewStatusPending, models.ReviewStatusCompleted, models.ReviewStatusFailed} {
		if n := stats.ByStatus[status]; n > 0 {
			fmt.Fprintf(ui.Out, "  %-10s %d\n", output.StatusColor(string(status)), n)
		}
	}
	if stats.MeanQualityScore != nil {
		fmt.Fprintf(ui.Out, "Mean quality score: %s\n", output.ScoreColor(*stats.MeanQualityScore))
	}
	if len(stats.FindingsByKind) > 0 {
		fmt.Fprintln(ui.Out, "Findings:")
		for _, kind := range []models.FindingKind{models.FindingKindQuality, models.FindingKindSecurity, models.FindingKindPerformance} {
			if n := stats.FindingsByKind[kind]; n > 0 {
				fmt.Fprintf(ui.Out, "  %-12s %d\n", string(kind), n)
			}
		}
	}
	return nil
}

// shortSHA truncates a commit hash for display.
func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
