package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-index/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the index by meaning",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildComponents(cmd.Context())
		if err != nil {
			return err
		}

		resp := app.searcher.Search(cmd.Context(), search.Request{
			Query:      args[0],
			Limit:      mustGetInt(cmd, "limit"),
			Offset:     mustGetInt(cmd, "offset"),
			Confidence: mustGetFloat64(cmd, "confidence"),
			FileTypes:  mustGetStringSlice(cmd, "types"),
		})

		if len(resp.Results) == 0 {
			fmt.Println("No results.")
			return nil
		}
		for _, r := range resp.Results {
			marker := " "
			if r.Confirmed {
				marker = "*"
			}
			fmt.Printf("%s %.2f  %-18s %s\n", marker, r.Score, r.FileID, r.Path)
		}
		if resp.HasMore {
			fmt.Printf("\n%d results shown, more available (threshold %.2f)\n", len(resp.Results), resp.Threshold)
		}
		return nil
	},
}

var similarCmd = &cobra.Command{
	Use:   "similar <file-id>",
	Short: "Find files similar to an indexed file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildComponents(cmd.Context())
		if err != nil {
			return err
		}

		results, err := app.similar.Similar(args[0], mustGetInt(cmd, "limit"))
		if err != nil {
			return err
		}
		for _, r := range results {
			path := r.FileID
			if record, ok := app.indexer.Get(r.FileID); ok {
				path = record.Path
			}
			fmt.Printf("%.2f  %-18s %s\n", r.Score, r.FileID, path)
		}
		return nil
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <confirm|reject> <query> <file-id>",
	Short: "Record relevance feedback for a search result",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildComponents(cmd.Context())
		if err != nil {
			return err
		}

		switch args[0] {
		case "confirm":
			return app.feedback.Confirm(args[1], args[2])
		case "reject":
			return app.feedback.Reject(args[1], args[2])
		default:
			return fmt.Errorf("unknown feedback action %q, expected confirm or reject", args[0])
		}
	},
}

func init() {
	searchCmd.Flags().Int("limit", 20, "Maximum number of results")
	searchCmd.Flags().Int("offset", 0, "Number of results to skip")
	searchCmd.Flags().Float64("confidence", 0.5, "Minimum relevance score between 0 and 1")
	searchCmd.Flags().StringSlice("types", nil, "Restrict results to file extensions (jpg, txt, ...)")
	similarCmd.Flags().Int("limit", 10, "Maximum number of results")
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(feedbackCmd)
}
