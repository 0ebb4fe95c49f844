package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/mordilloSan/go-logger/logger"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-index/internal/index"
)

var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Index a directory and keep it indexed as files change",
	Long: `Runs a full index of the directory, then watches it for file
changes and applies them incrementally until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := buildComponents(ctx)
		if err != nil {
			return err
		}

		ignore := mustGetStringSlice(cmd, "ignore")
		if err := app.indexer.Run(ctx, args[0], true, ignore); err != nil {
			return err
		}
		logger.Infof("Initial index complete, watching %s for changes", args[0])

		watcher := index.NewWatcher(app.indexer, ignore)
		if err := watcher.Watch(ctx, args[0]); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringSlice("ignore", nil, "Glob patterns to exclude (repeatable)")
	rootCmd.AddCommand(watchCmd)
}
