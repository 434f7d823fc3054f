package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/poserisk/internal/config"
)

// NewRootCmd creates the root command for poserisk.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poserisk",
		Short: "Injury risk estimation from movement video",
		Long: `poserisk estimates the injury risk of a movement from video.

It tracks hip, knee and shoulder angles over a window of frames, scores the
window with a sequence model and explains the score. Explanations come from
a configured text-generation endpoint or, when none is available, from
built-in rules.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", config.LogFormatText, "Log format on stderr: text or json")

	cmd.AddCommand(NewAnalyzeCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
