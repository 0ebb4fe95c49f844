package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/mordilloSan/go-logger/logger"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-index/internal/index"
	"github.com/kozaktomas/photo-index/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves the index, search, face and feedback endpoints over HTTP.
Indexing runs can be started through the API and their progress
streamed as server-sent events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		host := mustGetString(cmd, "host")
		port := mustGetInt(cmd, "port")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := buildComponents(ctx)
		if err != nil {
			return err
		}

		// Keep the in-memory similarity graph fresh after each completed run.
		// With a database store the ranking happens in pgvector instead.
		if app.hnsw != nil {
			app.indexer.AddObserver(func(p index.Progress) {
				if p.Status != index.StatusComplete {
					return
				}
				app.hnsw.Rebuild(app.indexer.Entries())
				if path := app.cfg.Index.HNSWIndexPath; path != "" {
					if err := app.hnsw.Save(path); err != nil {
						logger.Warnf("Failed to save similarity index: %v", err)
					}
				}
			})
		}

		server := web.NewServer(ctx, app.cfg, host, port,
			app.indexer, app.searcher, app.feedback, app.similar, app.clusterer)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("host", "0.0.0.0", "Host interface to bind")
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}
