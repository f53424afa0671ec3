package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"phasebench/internal/engine"
	"phasebench/internal/metrics"
	"phasebench/internal/sandbox"
	"phasebench/internal/task"
	"phasebench/internal/workspace"
)

// candidateExt is the file extension the Workspace Protocol's mailbox
// expects the agent to write candidate source under. Fixed to "go"
// because phasebench's candidates are Go source interpreted via yaegi
// (see the candidate-language design note in the repository's design
// notes), not a parameter of the task itself.
const candidateExt = "go"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a phased evaluation session against a task",
	RunE:  runSession,
}

func runSession(cmd *cobra.Command, args []string) error {
	taskDir, _ := cmd.Flags().GetString("task")
	agentID, _ := cmd.Flags().GetString("agent-id")
	pollInterval, _ := cmd.Flags().GetDuration("poll-interval")
	single, _ := cmd.Flags().GetBool("single")

	if agentID == "" {
		agentID = uuid.NewString()
	}

	ws := workspaceDir
	if ws == "" {
		var err error
		ws, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve workspace: %w", err)
		}
	}

	logger.Info("loading task", zap.String("task_dir", taskDir))
	loaded, err := task.Load(taskDir)
	if err != nil {
		logger.Error("task load failed", zap.Error(err))
		return fmt.Errorf("load task: %w", err)
	}

	mailbox := workspace.New(ws, candidateExt)
	collector := metrics.NewCollector(loaded.Task.ID, agentID)
	session, err := engine.NewSession(loaded.Task, loaded.Evaluator, loaded.Tests, sandbox.New(), collector, mailbox, agentID)
	if err != nil {
		logger.Error("session start failed", zap.Error(err))
		return fmt.Errorf("start session: %w", err)
	}
	logger.Info("session started",
		zap.String("task_id", loaded.Task.ID),
		zap.String("agent_id", agentID),
		zap.Int("phases", len(loaded.Task.Phases)),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if single {
		source, err := mailbox.ReadSolution()
		if err != nil {
			logger.Error("read solution failed", zap.Error(err))
			return fmt.Errorf("read solution: %w", err)
		}
		fb, err := session.Attempt(source)
		if err != nil {
			logger.Error("attempt failed", zap.Error(err))
			return fmt.Errorf("attempt: %w", err)
		}
		logger.Info("single-shot attempt recorded", zap.String("status", string(fb.Status)))
		return emitReport(session)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go listenForQuit(ctx, cancel)

	watcher := workspace.NewWatcher(mailbox, pollInterval)
	watcher.Seed()

	logger.Info("watching for solution changes", zap.String("path", mailbox.SolutionPath()), zap.Duration("poll_interval", pollInterval))
	fmt.Printf("Waiting for solution in: %s\n", mailbox.SolutionPath())
	fmt.Println("Type 'q' + Enter or press Ctrl+C to quit")

	for !session.Done() {
		source, err := watcher.WaitForChange(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("session cancelled, reporting as-is")
				break // cancelled: fall through and report the session as it stands
			}
			logger.Error("watch failed", zap.Error(err))
			return fmt.Errorf("watch solution file: %w", err)
		}
		fb, err := session.Attempt(source)
		if err != nil {
			logger.Error("attempt failed", zap.Error(err))
			return fmt.Errorf("attempt: %w", err)
		}
		logger.Info("attempt recorded", zap.Int("phase", session.CurrentPhaseID()), zap.String("status", string(fb.Status)))
	}

	logger.Info("session finished", zap.String("terminal_reason", session.TerminalReason()))
	return emitReport(session)
}

// listenForQuit mirrors the original interactive runner's background stdin
// listener: a bare "q" line cancels ctx, which unblocks the watch loop the
// same way a cancelled command context does.
func listenForQuit(ctx context.Context, cancel context.CancelFunc) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if strings.EqualFold(strings.TrimSpace(scanner.Text()), "q") {
			logger.Info("quit requested via stdin")
			fmt.Println("\nQuit requested. Stopping session.")
			cancel()
			return
		}
	}
}

func emitReport(session *engine.Session) error {
	reporter := metrics.NewReporter(os.Stdout, "console")
	return reporter.Report(session.Report())
}
