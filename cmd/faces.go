package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "Manage face identity clusters",
}

var facesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List face clusters ordered by image count",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildComponents(cmd.Context())
		if err != nil {
			return err
		}

		showHidden := mustGetBool(cmd, "hidden")
		clusters := app.clusterer.List()
		if len(clusters) == 0 {
			fmt.Println("No face clusters yet, run an index first.")
			return nil
		}
		for _, c := range clusters {
			if c.Hidden && !showHidden {
				continue
			}
			label := c.Label
			if c.Hidden {
				label += " (hidden)"
			}
			fmt.Printf("%s  %-20s %d faces in %d images\n", c.ID, label, c.FaceCount, c.ImageCount())
		}
		return nil
	},
}

var facesLabelCmd = &cobra.Command{
	Use:   "label <cluster-id> <name>",
	Short: "Assign a name to a face cluster",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildComponents(cmd.Context())
		if err != nil {
			return err
		}
		return app.clusterer.SetLabel(args[0], args[1])
	},
}

var facesHideCmd = &cobra.Command{
	Use:   "hide <cluster-id>",
	Short: "Hide a face cluster from listings and search",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildComponents(cmd.Context())
		if err != nil {
			return err
		}
		return app.clusterer.SetHidden(args[0], true)
	},
}

var facesShowCmd = &cobra.Command{
	Use:   "show <cluster-id>",
	Short: "Unhide a face cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildComponents(cmd.Context())
		if err != nil {
			return err
		}
		return app.clusterer.SetHidden(args[0], false)
	},
}

func init() {
	facesListCmd.Flags().Bool("hidden", false, "Include hidden clusters")
	facesCmd.AddCommand(facesListCmd)
	facesCmd.AddCommand(facesLabelCmd)
	facesCmd.AddCommand(facesHideCmd)
	facesCmd.AddCommand(facesShowCmd)
	rootCmd.AddCommand(facesCmd)
}
