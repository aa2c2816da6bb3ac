package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joescharf/revu/internal/output"
	"github.com/joescharf/revu/internal/review"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a local source file without touching GitHub",
	Long: `Run the quality, security, and performance analyzers over a local
file and print the findings. Nothing is recorded or published.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyzeRun(args[0])
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func analyzeRun(path string) error {
	if !review.Supported(path) {
		return fmt.Errorf("unsupported file type: %s", path)
	}

	code, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(code) == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}

	analyzer, err := newAnalyzer()
	if err != nil {
		return err
	}

	// Store and GitHub are not needed for a one-off local analysis.
	pipeline := review.NewPipeline(nil, nil, analyzer, reviewConfig(), nil)

	ui.Info("Analyzing %s", path)
	findings, score := pipeline.AnalyzeContent(context.Background(), string(code), path)

	if score != nil {
		fmt.Fprintf(ui.Out, "Quality score: %s\n", output.ScoreColor(*score))
	}
	if len(findings) == 0 {
		ui.Success("No findings")
		return nil
	}

	table := ui.Table([]string{"Kind", "Severity", "Line", "Message"})
	for _, f := range findings {
		line := "-"
		if f.Line > 0 {
			line = fmt.Sprintf("%d", f.Line)
		}
		table.Append([]string{string(f.Kind), output.SeverityColor(string(f.Severity)), line, f.Message})
	}
	return table.Render()
}
