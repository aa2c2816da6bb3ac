package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/revu/internal/api"
	"github.com/joescharf/revu/internal/review"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the webhook and API server",
	Long: `Start the HTTP server that receives GitHub webhooks and serves the REST API.

By default it listens on port 8080. Use --port to change it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func serveRun() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	s, err := getStore()
	if err != nil {
		return err
	}

	gh, err := newGitHubClient()
	if err != nil {
		return err
	}
	analyzer, err := newAnalyzer()
	if err != nil {
		return err
	}

	pipeline := review.NewPipeline(s, gh, analyzer, reviewConfig(), logger)
	engine := review.NewEngine(pipeline, viper.GetInt("review.queue_size"))

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	engine.Start(ctx, viper.GetInt("review.workers"))

	server := api.NewServer(s, engine, pipeline, viper.GetString("github.webhook_secret"))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", viper.GetInt("port")),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("http shutdown", "error", err)
	}
	engine.Stop()
	return nil
}

func logLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
