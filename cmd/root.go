package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mordilloSan/go-logger/logger"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "photo-index",
	Short: "A semantic index for local photos and documents",
	Long: `Photo Index walks local directories, extracts text embeddings, object
labels and face descriptors from their files, and makes the result
searchable by meaning. Faces are grouped into identities that can be
named and hidden.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	levels := []logger.Level{logger.InfoLevel, logger.WarnLevel, logger.ErrorLevel}
	if verbose {
		levels = logger.AllLevels()
	}
	logger.Init(logger.Config{Levels: levels})
}
