package agent

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rafabd1/cmd-ai/internal/commands"
	"github.com/rafabd1/cmd-ai/internal/config"
	"github.com/rafabd1/cmd-ai/internal/llm"
	"github.com/rafabd1/cmd-ai/internal/memory"
	"github.com/rafabd1/cmd-ai/internal/task"
	"github.com/rafabd1/cmd-ai/internal/tui"
	"github.com/rafabd1/cmd-ai/internal/types"
	"github.com/rafabd1/cmd-ai/pkg/extract"
)

const (
	replPrompt    = "cmd-ai>"
	thinkingLabel = "Thinking..."
	confirmPrompt = "Execute?"
)

// UI is the terminal surface the agent talks to.
type UI interface {
	commands.Prompter
	ReadLine(ctx context.Context, prompt string) (string, error)
	Confirm(ctx context.Context, question string) (bool, error)
	Spin(ctx context.Context, label string, work func(context.Context) (string, error)) (string, error)
	Markdown(text string) string
	SaveHistory() error
}

// Options carries the agent's dependencies.
type Options struct {
	Config  *config.Config
	Paths   config.Paths
	History *memory.Store
	UI      UI
	Out     io.Writer
	Logger  *zap.Logger
	// NewClient builds the LLM client for a configuration. Defaults to llm.NewClient.
	NewClient func(*config.Config) llm.Client
	// Manager runs confirmed commands. Defaults to a task manager using the
	// configured shell.
	Manager task.ExecutionManager
}

// Agent runs the question -> answer -> extract -> confirm -> execute loop.
type Agent struct {
	mu        sync.RWMutex
	cfg       *config.Config
	client    llm.Client
	newClient func(*config.Config) llm.Client

	paths    config.Paths
	history  *memory.Store
	registry *commands.Registry
	manager  task.ExecutionManager
	ui       UI
	out      io.Writer
	logger   *zap.Logger

	eventsDone chan struct{}
}

// New creates an agent and registers the built-in !commands.
func New(opts Options) (*Agent, error) {
	if opts.Config == nil || opts.History == nil || opts.UI == nil || opts.Out == nil {
		return nil, errors.New("agent requires config, history, ui and output")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	newClient := opts.NewClient
	if newClient == nil {
		newClient = func(cfg *config.Config) llm.Client { return llm.NewClient(cfg, logger) }
	}
	manager := opts.Manager
	if manager == nil {
		manager = task.NewManager(task.Options{
			Shell:    opts.Config.Exec.Shell,
			Terminal: opts.Out,
			Logger:   logger,
		})
	}

	a := &Agent{
		cfg:        opts.Config,
		client:     newClient(opts.Config),
		newClient:  newClient,
		paths:      opts.Paths,
		history:    opts.History,
		registry:   commands.NewRegistry(),
		manager:    manager,
		ui:         opts.UI,
		out:        opts.Out,
		logger:     logger,
		eventsDone: make(chan struct{}),
	}

	builtins := []commands.Command{
		&commands.HelpCmd{Registry: a.registry, Config: a.Config},
		&commands.ConfigCmd{Config: a.Config, Path: a.paths.Config, Prompter: a.ui, OnChange: a.setConfig},
		&commands.HistoryCmd{Store: a.history},
		&commands.ClearCmd{Store: a.history},
		&commands.TaskCmd{Manager: func() task.ExecutionManager { return a.manager }},
		&commands.QuitCmd{},
	}
	for _, cmd := range builtins {
		if err := a.registry.Register(cmd); err != nil {
			return nil, errors.Wrapf(err, "failed to register command %s", cmd.Name())
		}
	}

	go a.logTaskEvents()
	return a, nil
}

// Config returns the configuration currently in effect.
func (a *Agent) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

func (a *Agent) setConfig(cfg *config.Config) {
	client := a.newClient(cfg)
	a.mu.Lock()
	a.cfg = cfg
	a.client = client
	a.mu.Unlock()
	a.logger.Info("configuration updated", zap.String("model", cfg.Model), zap.String("url", cfg.URL), zap.Bool("auto_run_prompt", cfg.AutoRun()))
}

func (a *Agent) llmClient() llm.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.client
}

// Registry exposes the !command registry.
func (a *Agent) Registry() *commands.Registry {
	return a.registry
}

// Close stops the execution manager and waits for its event log to drain.
func (a *Agent) Close() error {
	err := a.manager.Stop()
	<-a.eventsDone
	return err
}

func (a *Agent) logTaskEvents() {
	defer close(a.eventsDone)
	for ev := range a.manager.Events() {
		fields := []zap.Field{
			zap.String("task", ev.TaskID),
			zap.String("command", ev.Command),
			zap.String("status", string(ev.Status)),
		}
		if ev.EventType == task.EventCompleted {
			fields = append(fields, zap.Int("exit_code", ev.ExitCode), zap.Duration("duration", ev.Duration))
		}
		if ev.Error != nil {
			fields = append(fields, zap.Error(ev.Error))
		}
		a.logger.Info("task "+ev.EventType, fields...)
	}
}

// ProcessInput handles one REPL line. It returns false when the session
// should end. Errors are returned only when the context was cancelled.
func (a *Agent) ProcessInput(ctx context.Context, line string) (bool, error) {
	input := strings.TrimSpace(line)
	if input == "" {
		return true, nil
	}

	if commands.IsCommand(input) {
		err := a.registry.Dispatch(ctx, input, a.out)
		switch {
		case errors.Is(err, commands.ErrExitRequested):
			return false, nil
		case err != nil && ctx.Err() != nil:
			return true, ctx.Err()
		case err != nil:
			a.logger.Warn("command failed", zap.String("input", input), zap.Error(err))
			a.printError(err)
		}
		return true, nil
	}

	if err := a.Ask(ctx, input); err != nil {
		return true, err
	}
	return true, nil
}

// Ask sends query to the model, prints the reply, records it, and offers to
// run the command found in it.
func (a *Agent) Ask(ctx context.Context, query string) error {
	cfg := a.Config()
	client := a.llmClient()
	messages := a.buildMessages(cfg, query)

	a.logger.Info("query", zap.String("model", cfg.Model), zap.Int("messages", len(messages)))
	response, err := a.ui.Spin(ctx, thinkingLabel, func(ctx context.Context) (string, error) {
		return client.Chat(ctx, messages)
	})
	failed := err != nil
	if failed {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.logger.Warn("llm request failed", zap.Error(err))
		response = llm.FailureText(err)
	}

	fmt.Fprintf(a.out, "\n%s\n\n", a.ui.Markdown(response))

	a.history.Append(query, response)
	if err := a.history.Save(); err != nil {
		a.logger.Warn("history not saved", zap.Error(err))
		a.printWarning(fmt.Sprintf("Warning: %v", err))
	}

	// Failure text is recorded but never offered for execution.
	if failed || !cfg.AutoRun() {
		return nil
	}
	return a.offerCommand(ctx, extract.Command(response))
}

func (a *Agent) offerCommand(ctx context.Context, command string) error {
	if command == "" {
		a.printWarning("No command found in the response.")
		return nil
	}

	fmt.Fprintln(a.out, tui.Rule())
	fmt.Fprintln(a.out, tui.WarnStyle.Render("Extracted command: ")+tui.CommandStyle.Render(command))

	ok, err := a.ui.Confirm(ctx, confirmPrompt)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, tui.ErrInterrupted) {
			a.logger.Warn("confirmation failed", zap.Error(err))
		}
		ok = false
	}
	if !ok {
		a.printWarning("Command not executed.")
		return nil
	}

	fmt.Fprintln(a.out, tui.Rule())
	return a.runCommand(ctx, command)
}

// buildMessages assembles the system prompt, the recent exchanges and the
// new question.
func (a *Agent) buildMessages(cfg *config.Config, query string) []types.Message {
	msgs := []types.Message{{Role: types.RoleSystem, Content: cfg.PromptPrefix}}
	msgs = append(msgs, a.history.Messages(cfg.ContextExchanges)...)
	return append(msgs, types.Message{Role: types.RoleUser, Content: query})
}

func (a *Agent) runCommand(ctx context.Context, command string) error {
	cfg := a.Config()
	interactive := cfg.ExecMode() == config.ExecModePty

	fmt.Fprintln(a.out, tui.WarnStyle.Render("Executing: ")+tui.CommandStyle.Render(command))
	id, err := a.manager.SubmitTask(ctx, command, interactive)
	if err != nil {
		a.printError(errors.Wrap(err, "error executing command"))
		return nil
	}

	result, err := a.manager.Wait(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.printError(errors.Wrap(err, "error executing command"))
		return nil
	}

	if !interactive {
		if out := result.Stdout.String(); out != "" {
			fmt.Fprint(a.out, ensureNewline(out))
		}
		if errOut := result.Stderr.String(); errOut != "" {
			fmt.Fprint(a.out, tui.ErrorStyle.Render(strings.TrimRight(errOut, "\n"))+"\n")
		}
	}

	switch {
	case result.Status == task.StatusCancelled:
		a.printWarning("Command cancelled.")
	case result.Error != nil:
		a.printError(errors.Wrap(result.Error, "error executing command"))
	case result.ExitCode != 0:
		fmt.Fprintln(a.out, tui.ErrorStyle.Render(fmt.Sprintf("Command failed with exit code %d", result.ExitCode)))
	}
	return nil
}

// Interactive runs the REPL until !quit, end of input or an interrupt.
func (a *Agent) Interactive(ctx context.Context) error {
	cfg := a.Config()
	fmt.Fprintln(a.out, tui.Panel("Welcome",
		"Command AI - Ask for bash commands (type "+commands.Prefix+"help for help)\nUsing model: "+tui.CommandStyle.Render(cfg.Model)))

	defer func() {
		if err := a.ui.SaveHistory(); err != nil {
			a.logger.Warn("input history not saved", zap.Error(err))
		}
	}()

	for {
		line, err := a.ui.ReadLine(ctx, replPrompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, tui.ErrInterrupted) || ctx.Err() != nil {
				fmt.Fprintln(a.out, "\nExiting...")
				return nil
			}
			return errors.Wrap(err, "failed to read input")
		}

		cont, err := a.ProcessInput(ctx, line)
		if err != nil {
			fmt.Fprintln(a.out, "\nExiting...")
			return nil
		}
		if !cont {
			return nil
		}
	}
}

// OneShot answers a single question passed on the command line.
func (a *Agent) OneShot(ctx context.Context, query string) error {
	return a.Ask(ctx, strings.TrimSpace(query))
}

// Configure runs the configuration menu.
func (a *Agent) Configure(ctx context.Context) error {
	return a.registry.Dispatch(ctx, commands.Prefix+"config", a.out)
}

// ShowHistory prints the recent history table.
func (a *Agent) ShowHistory(ctx context.Context) error {
	return a.registry.Dispatch(ctx, commands.Prefix+"history", a.out)
}

func (a *Agent) printError(err error) {
	fmt.Fprintln(a.out, tui.ErrorStyle.Render("Error: "+err.Error()))
}

func (a *Agent) printWarning(msg string) {
	fmt.Fprintln(a.out, tui.WarnStyle.Render(msg))
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
