package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/joescharf/revu/internal/github"
	"github.com/joescharf/revu/internal/llm"
	"github.com/joescharf/revu/internal/review"
)

// newGitHubClient builds a GitHub client from config. App credentials
// (app_id + private_key_path) take precedence over a personal token.
func newGitHubClient() (*github.Client, error) {
	timeout := 30 * time.Second

	appID := viper.GetString("github.app_id")
	keyPath := viper.GetString("github.private_key_path")
	if appID != "" && keyPath != "" {
		pem, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		return github.NewAppClient(appID, pem, timeout)
	}

	token := viper.GetString("github.token")
	if token == "" {
		return nil, fmt.Errorf("no GitHub credentials configured (set github.app_id + github.private_key_path, or github.token)")
	}
	return github.NewTokenClient(token, timeout), nil
}

// newAnalyzer builds the LLM analyzer from config.
func newAnalyzer() (*llm.Client, error) {
	apiKey := viper.GetString("anthropic.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no Anthropic API key configured (set anthropic.api_key or ANTHROPIC_API_KEY)")
	}
	return llm.NewClient(apiKey, viper.GetString("anthropic.model")), nil
}

// reviewConfig reads the pipeline tuning knobs from config.
func reviewConfig() review.Config {
	cfg := review.DefaultConfig()
	if d := viper.GetDuration("review.call_timeout"); d > 0 {
		cfg.CallTimeout = d
	}
	if n := viper.GetInt("review.max_file_bytes"); n > 0 {
		cfg.MaxFileBytes = n
	}
	return cfg
}
