package cmd

import (
	"fmt"
	"os"

	"github.com/mordilloSan/go-logger/logger"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kozaktomas/photo-index/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index [directory]",
	Short: "Index a directory of photos and documents",
	Long: `Walks the given directory, extracts searchable features from every
supported file and writes a snapshot of the result. Face descriptors
found in images are grouped into identity clusters as a side effect.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive := mustGetBool(cmd, "recursive")
		ignore := mustGetStringSlice(cmd, "ignore")

		ctx := cmd.Context()
		app, err := buildComponents(ctx)
		if err != nil {
			return err
		}

		var bar *progressbar.ProgressBar
		if term.IsTerminal(int(os.Stderr.Fd())) {
			app.indexer.AddObserver(func(p index.Progress) {
				switch p.Status {
				case index.StatusIndexing:
					if bar == nil {
						bar = progressbar.NewOptions(p.Total,
							progressbar.OptionSetDescription("Indexing"),
							progressbar.OptionShowCount(),
							progressbar.OptionShowIts(),
							progressbar.OptionSetItsString("files"),
							progressbar.OptionShowElapsedTimeOnFinish(),
							progressbar.OptionSetPredictTime(true),
							progressbar.OptionFullWidth(),
						)
					}
					_ = bar.Set(p.Processed)
				case index.StatusComplete:
					if bar != nil {
						_ = bar.Finish()
					}
				}
			})
		} else {
			app.indexer.AddObserver(func(p index.Progress) {
				if p.Status == index.StatusIndexing {
					logger.Debugf("Indexing %s (%d/%d)", p.CurrentFile, p.Processed, p.Total)
				}
			})
		}

		if err := app.indexer.Run(ctx, args[0], recursive, ignore); err != nil {
			return err
		}

		stats := app.indexer.Stats()
		fmt.Printf("\nIndexed %d files (%s)\n", stats.TotalFiles, formatBytes(stats.TotalSize))
		for fileType, count := range stats.FileTypes {
			fmt.Printf("  %-10s %d\n", fileType, count)
		}

		if app.hnsw != nil && app.cfg.Index.HNSWIndexPath != "" {
			app.hnsw.Rebuild(app.indexer.Entries())
			if err := app.hnsw.Save(app.cfg.Index.HNSWIndexPath); err != nil {
				logger.Warnf("Failed to save similarity index: %v", err)
			}
		}
		return nil
	},
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

func init() {
	indexCmd.Flags().BoolP("recursive", "r", true, "Descend into subdirectories")
	indexCmd.Flags().StringSlice("ignore", nil, "Glob patterns to exclude (repeatable)")
	rootCmd.AddCommand(indexCmd)
}
