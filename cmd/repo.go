package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/revu/internal/models"
	"github.com/joescharf/revu/internal/output"
)

var (
	repoGitHubID       string
	repoInstallationID int64
	repoDisabled       bool
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage tracked repositories",
	Long: `Manage the repositories revu reviews.

Only tracked repositories with automatic review enabled get their
pull requests analyzed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoListRun()
	},
}

var repoAddCmd = &cobra.Command{
	Use:   "add <owner/repo>",
	Short: "Track a repository for automatic review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoAddRun(args[0])
	},
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked repositories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoListRun()
	},
}

var repoEnableCmd = &cobra.Command{
	Use:   "enable <owner/repo>",
	Short: "Enable automatic review for a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoSetEnabledRun(args[0], true)
	},
}

var repoDisableCmd = &cobra.Command{
	Use:   "disable <owner/repo>",
	Short: "Disable automatic review for a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoSetEnabledRun(args[0], false)
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove <owner/repo>",
	Short: "Stop tracking a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return repoRemoveRun(args[0])
	},
}

func init() {
	repoAddCmd.Flags().StringVar(&repoGitHubID, "github-id", "", "GitHub's numeric repository id")
	repoAddCmd.Flags().Int64Var(&repoInstallationID, "installation-id", 0, "GitHub App installation id")
	repoAddCmd.Flags().BoolVar(&repoDisabled, "disabled", false, "Track without enabling automatic review")

	repoCmd.AddCommand(repoAddCmd)
	repoCmd.AddCommand(repoListCmd)
	repoCmd.AddCommand(repoEnableCmd)
	repoCmd.AddCommand(repoDisableCmd)
	repoCmd.AddCommand(repoRemoveCmd)
	rootCmd.AddCommand(repoCmd)
}

// splitFullName splits owner/repo, validating both halves are present.
func splitFullName(fullName string) (owner, name string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository name %q (expected owner/repo)", fullName)
	}
	return parts[0], parts[1], nil
}

func repoAddRun(fullName string) error {
	owner, name, err := splitFullName(fullName)
	if err != nil {
		return err
	}
	if repoGitHubID == "" {
		return fmt.Errorf("--github-id is required")
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if dryRun {
		ui.DryRunMsg("Would track repository: %s", fullName)
		return nil
	}

	repo := &models.Repository{
		GitHubID:          repoGitHubID,
		Owner:             owner,
		Name:              name,
		FullName:          fullName,
		InstallationID:    repoInstallationID,
		AutoReviewEnabled: !repoDisabled,
	}
	if err := s.CreateRepository(ctx, repo); err != nil {
		return fmt.Errorf("track repository: %w", err)
	}

	ui.Success("Tracking %s (auto review %s)", fullName, enabledWord(repo.AutoReviewEnabled))
	return nil
}

func repoListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	repos, err := s.ListRepositories(context.Background())
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		ui.Info("No repositories tracked. Add one with: revu repo add <owner/repo> --github-id <id>")
		return nil
	}

	table := ui.Table([]string{"Repository", "GitHub ID", "Installation", "Auto Review"})
	for _, r := range repos {
		auto := output.Red("off")
		if r.AutoReviewEnabled {
			auto = output.Green("on")
		}
		table.Append([]string{r.FullName, r.GitHubID, fmt.Sprintf("%d", r.InstallationID), auto})
	}
	return table.Render()
}

func repoSetEnabledRun(fullName string, enabled bool) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	repo, err := s.GetRepositoryByFullName(ctx, fullName)
	if err != nil {
		return fmt.Errorf("repository not tracked: %s", fullName)
	}

	if dryRun {
		ui.DryRunMsg("Would set auto review %s for %s", enabledWord(enabled), fullName)
		return nil
	}

	repo.AutoReviewEnabled = enabled
	if err := s.UpdateRepository(ctx, repo); err != nil {
		return err
	}
	ui.Success("Auto review %s for %s", enabledWord(enabled), fullName)
	return nil
}

func repoRemoveRun(fullName string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	repo, err := s.GetRepositoryByFullName(ctx, fullName)
	if err != nil {
		return fmt.Errorf("repository not tracked: %s", fullName)
	}

	if dryRun {
		ui.DryRunMsg("Would stop tracking %s", fullName)
		return nil
	}

	if err := s.DeleteRepository(ctx, repo.ID); err != nil {
		return err
	}
	ui.Success("Stopped tracking %s", fullName)
	return nil
}

func enabledWord(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
