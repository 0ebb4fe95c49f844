package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show statistics about the current index",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildComponents(cmd.Context())
		if err != nil {
			return err
		}

		stats := app.indexer.Stats()
		fmt.Printf("Files indexed: %d\n", stats.TotalFiles)
		fmt.Printf("Total size:    %s\n", formatBytes(stats.TotalSize))

		types := make([]string, 0, len(stats.FileTypes))
		for t := range stats.FileTypes {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Printf("  %-10s %d\n", t, stats.FileTypes[t])
		}

		entities := app.indexer.Entities()
		fmt.Printf("Faces found:   %v\n", entities.Faces)
		fmt.Printf("Animals found: %v\n", entities.Animals)
		fmt.Printf("Face clusters: %d\n", len(app.clusterer.List()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
