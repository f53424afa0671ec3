// Package main implements the phasebench CLI: a thin front-end over
// internal/engine's Phased Evaluation Engine. It owns workspace/task
// flags, logger setup, and the interactive polling loop; all
// evaluation semantics live in internal/engine.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"phasebench/internal/logging"
)

var (
	verbose      bool
	workspaceDir string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "phasebench",
	Short: "phasebench - phased evaluation engine for benchmark tasks",
	Long: `phasebench evaluates agent-submitted Go solutions against a cumulative,
phase-based rule set, exchanging candidate source and feedback through a
file-based workspace mailbox.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		ws := workspaceDir
		if ws == "" {
			ws, _ = os.Getwd()
		}
		if err := logging.Initialize(ws); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to initialize file logging: %v\n", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "workspace", "w", "", "Workspace directory (default: current)")

	runCmd.Flags().String("task", "", "Path to the task directory (required)")
	runCmd.Flags().String("agent-id", "", "Agent identifier (default: a generated uuid)")
	runCmd.Flags().Duration("poll-interval", time.Second, "Polling fallback interval when fsnotify is unavailable")
	runCmd.Flags().Bool("single", false, "Evaluate the current solution file once and exit, instead of watching for changes")
	runCmd.MarkFlagRequired("task")

	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
