package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rafabd1/cmd-ai/internal/agent"
	"github.com/rafabd1/cmd-ai/internal/config"
	"github.com/rafabd1/cmd-ai/internal/logging"
	"github.com/rafabd1/cmd-ai/internal/memory"
	"github.com/rafabd1/cmd-ai/internal/task"
	"github.com/rafabd1/cmd-ai/internal/tui"
)

var (
	// Global flags
	configMenu  bool
	showHistory bool
	configFile  string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "cmd-ai [query...]",
	Short: "Ask a local LLM for shell commands and optionally run them",
	Long: `cmd-ai sends a question to a local Ollama model, prints the answer,
extracts the shell command from it and asks before running it.

Run without arguments to start the interactive prompt.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().BoolVar(&configMenu, "config", false, "Configure the tool")
	rootCmd.Flags().BoolVar(&showHistory, "history", false, "Show command history")
	rootCmd.PersistentFlags().StringVar(&configFile, "config-file", "", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	// A missing .env is normal.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(out, tui.WarnStyle.Render(fmt.Sprintf("Warning: could not load .env: %v", err)))
	}

	paths := config.DefaultPaths(configFile)
	cfg, warn := config.Load(paths.Config)
	if warn != nil {
		fmt.Fprintln(out, tui.WarnStyle.Render(fmt.Sprintf("Warning: %v", warn)))
	}

	logger, err := logging.New(cfg.Log.File, cfg.Log.Level, verbose)
	if err != nil {
		fmt.Fprintln(out, tui.WarnStyle.Render(fmt.Sprintf("Warning: logging disabled: %v", err)))
		logger = zap.NewNop()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting", zap.String("config", paths.Config), zap.String("model", cfg.Model), zap.String("exec_mode", cfg.ExecMode()))
	if warn != nil {
		logger.Warn("configuration fallback", zap.Error(warn))
	}

	history := memory.NewStore(paths.History, cfg.HistoryLimit)
	if err := history.Load(); err != nil {
		logger.Warn("history fallback", zap.Error(err))
		fmt.Fprintln(out, tui.WarnStyle.Render(fmt.Sprintf("Warning: %v", err)))
	}

	lines := tui.NewLineHistory(paths.Readline)
	if err := lines.Load(); err != nil {
		logger.Debug("input history not loaded", zap.Error(err))
	}
	prompter := tui.NewPrompter(os.Stdin, out, lines)

	a, err := agent.New(agent.Options{
		Config:  cfg,
		Paths:   paths,
		History: history,
		UI:      prompter,
		Out:     out,
		Logger:  logger,
		Manager: task.NewManager(task.Options{
			Shell:    cfg.Exec.Shell,
			Terminal: out,
			Logger:   logger,
		}),
	})
	if err != nil {
		logger.Error("failed to create agent", zap.Error(err))
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	switch {
	case configMenu:
		err = a.Configure(ctx)
	case showHistory:
		err = a.ShowHistory(ctx)
	case len(args) > 0:
		err = a.OneShot(ctx, strings.Join(args, " "))
	default:
		err = a.Interactive(ctx)
	}

	if err != nil && ctx.Err() != nil {
		fmt.Fprintln(out, "\nExiting...")
		return nil
	}
	if err != nil {
		logger.Error("run finished with error", zap.Error(err))
		fmt.Fprintln(out, tui.ErrorStyle.Render(fmt.Sprintf("Error: %v", err)))
	}
	return err
}
