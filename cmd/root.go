// Package cmd wires the command-line interface for beatgrid.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/probeat/beatgrid/logging"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "beatgrid",
	Short: "Convert audio into step-sequencer patterns",
	Long: `beatgrid analyzes an audio file and produces an 88-track
step-sequencer pattern: tempo detection, constant-Q pitch analysis and
per-step peak picking, or adaptation of an external transcription model's
note events.`,
}

// Execute runs the root command
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newLogger builds the CLI's diagnostics sink honoring the verbose flag
func newLogger() logging.Logger {
	logger := logging.NewDefaultLogger()
	if verbose {
		logger.SetLevel(logging.DebugLevel)
	}
	return logger
}
