package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/revu/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for Claude Code integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This allows Claude Code to query revu natively for tracked
repositories and recorded reviews. Configure in Claude Code with:

  {
    "mcpServers": {
      "revu": { "command": "revu", "args": ["mcp"] }
    }
  }

Available tools: revu_list_repositories, revu_set_auto_review,
revu_list_reviews, revu_get_review, revu_review_stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		return mcp.NewServer(s).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
