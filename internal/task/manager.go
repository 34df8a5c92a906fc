package task

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rafabd1/cmd-ai/internal/terminal"
	"github.com/rafabd1/cmd-ai/pkg/utils"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusRunning   TaskStatus = "running"
	StatusSuccess   TaskStatus = "success"
	StatusFailed    TaskStatus = "failed"
	StatusCancelled TaskStatus = "cancelled"
)

// Event types sent on the events channel.
const (
	EventStarted   = "started"
	EventCompleted = "completed"
)

// ErrTaskNotFound is returned for unknown task IDs.
var ErrTaskNotFound = errors.New("task not found")

// Task is one shell command run by the manager.
type Task struct {
	ID            string
	CommandString string
	IsInteractive bool
	Status        TaskStatus
	StartTime     time.Time
	EndTime       time.Time
	ExitCode      int
	Stdout        *bytes.Buffer // capture mode only
	Stderr        *bytes.Buffer // capture mode only
	Error         error         // execution failure, not a non-zero exit

	ctx        context.Context
	cancelFunc context.CancelFunc
	cmd        *exec.Cmd
	pty        terminal.Controller
	done       chan struct{}
	mu         sync.RWMutex
}

// Finished reports whether the task reached a terminal state.
func (t *Task) Finished() bool {
	return t.Status == StatusSuccess || t.Status == StatusFailed || t.Status == StatusCancelled
}

// TaskEvent notifies listeners about a task state change.
type TaskEvent struct {
	TaskID    string
	EventType string
	Status    TaskStatus
	Command   string
	ExitCode  int
	Duration  time.Duration
	Error     error
}

// ExecutionManager runs shell commands and tracks their state.
type ExecutionManager interface {
	// SubmitTask starts command and returns its task ID. Interactive tasks run
	// inside a pty with output mirrored to the manager's terminal writer.
	SubmitTask(ctx context.Context, command string, interactive bool) (string, error)

	// Wait blocks until the task finishes or ctx is done.
	Wait(ctx context.Context, taskID string) (*Task, error)

	// GetTaskStatus returns a snapshot of the task.
	GetTaskStatus(taskID string) (*Task, error)

	// ListTasks returns snapshots of every task, oldest first.
	ListTasks() []*Task

	// SendSignalToTask delivers an OS signal to the task's process.
	SendSignalToTask(taskID string, sig os.Signal) error

	// CancelTask stops a pending or running task.
	CancelTask(taskID string) error

	// Events returns the channel of task notifications. It is closed by Stop.
	Events() <-chan TaskEvent

	// GetRunningTasksSummary describes the tasks currently running.
	GetRunningTasksSummary() string

	// Stop cancels remaining tasks and releases resources.
	Stop() error
}

// Options configure a manager.
type Options struct {
	// Shell runs every command as `shell -c command`. Empty means auto-detect.
	Shell string
	// Terminal receives the output of interactive tasks.
	Terminal io.Writer
	Logger   *zap.Logger
}

type manager struct {
	tasks     map[string]*Task
	tasksMu   sync.RWMutex
	eventChan chan TaskEvent
	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	shell     string
	terminal  io.Writer
	logger    *zap.Logger
}

// NewManager creates an ExecutionManager.
func NewManager(opts Options) ExecutionManager {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := opts.Terminal
	if out == nil {
		out = os.Stdout
	}
	return &manager{
		tasks:     make(map[string]*Task),
		eventChan: make(chan TaskEvent, 32),
		stopChan:  make(chan struct{}),
		shell:     terminal.ResolveShell(opts.Shell),
		terminal:  out,
		logger:    logger,
	}
}

func (m *manager) Events() <-chan TaskEvent {
	return m.eventChan
}

func (m *manager) Stop() error {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		m.tasksMu.RLock()
		for _, t := range m.tasks {
			t.cancelFunc()
		}
		m.tasksMu.RUnlock()
		m.wg.Wait()
		close(m.eventChan)
	})
	return nil
}

func (m *manager) SubmitTask(ctx context.Context, command string, interactive bool) (string, error) {
	if strings.TrimSpace(command) == "" {
		return "", errors.New("empty command")
	}
	select {
	case <-m.stopChan:
		return "", errors.New("execution manager stopped")
	default:
	}

	taskCtx, cancelFunc := context.WithCancel(ctx)
	newTask := &Task{
		ID:            uuid.New().String(),
		CommandString: command,
		IsInteractive: interactive,
		Status:        StatusPending,
		StartTime:     time.Now(),
		Stdout:        new(bytes.Buffer),
		Stderr:        new(bytes.Buffer),
		ctx:           taskCtx,
		cancelFunc:    cancelFunc,
		done:          make(chan struct{}),
	}

	m.tasksMu.Lock()
	m.tasks[newTask.ID] = newTask
	m.tasksMu.Unlock()

	m.wg.Add(1)
	go m.run(newTask)

	return newTask.ID, nil
}

func (m *manager) run(t *Task) {
	defer m.wg.Done()
	defer close(t.done)
	defer t.cancelFunc()

	t.mu.Lock()
	if t.ctx.Err() != nil {
		t.Status = StatusCancelled
		t.EndTime = time.Now()
		t.mu.Unlock()
		m.sendEvent(m.completedEvent(t))
		return
	}
	t.Status = StatusRunning
	t.StartTime = time.Now()
	t.mu.Unlock()

	m.sendEvent(TaskEvent{TaskID: t.ID, EventType: EventStarted, Status: StatusRunning, Command: t.CommandString})
	m.logger.Debug("task started", zap.String("task", t.ID), zap.String("command", t.CommandString), zap.Bool("interactive", t.IsInteractive))

	var exitCode int
	var err error
	if t.IsInteractive {
		exitCode, err = m.runInteractive(t)
	} else {
		exitCode, err = m.runCaptured(t)
	}

	t.mu.Lock()
	t.EndTime = time.Now()
	t.ExitCode = exitCode
	switch {
	case t.ctx.Err() != nil:
		t.Status = StatusCancelled
		t.Error = t.ctx.Err()
	case err != nil:
		t.Status = StatusFailed
		t.Error = err
	case exitCode != 0:
		t.Status = StatusFailed
	default:
		t.Status = StatusSuccess
	}
	event := m.completedEvent(t)
	t.mu.Unlock()

	m.logger.Debug("task finished", zap.String("task", t.ID), zap.String("status", string(event.Status)), zap.Int("exit_code", event.ExitCode), zap.Duration("duration", event.Duration))
	m.sendEvent(event)
}

func (m *manager) completedEvent(t *Task) TaskEvent {
	return TaskEvent{
		TaskID:    t.ID,
		EventType: EventCompleted,
		Status:    t.Status,
		Command:   t.CommandString,
		ExitCode:  t.ExitCode,
		Duration:  t.EndTime.Sub(t.StartTime),
		Error:     t.Error,
	}
}

// runCaptured runs the command with stdout and stderr collected separately.
func (m *manager) runCaptured(t *Task) (int, error) {
	cmd := exec.CommandContext(t.ctx, m.shell, terminal.ShellArgs(t.CommandString)...)
	cmd.Stdout = t.Stdout
	cmd.Stderr = t.Stderr
	// Grandchildren can keep the pipes open after a cancelled shell dies.
	cmd.WaitDelay = 2 * time.Second

	t.mu.Lock()
	t.cmd = cmd
	t.mu.Unlock()

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, errors.Wrapf(err, "failed to run %q", utils.Truncate(t.CommandString, 60))
}

// runInteractive runs the command inside a pty so it sees a real terminal.
func (m *manager) runInteractive(t *Task) (int, error) {
	ctrl, err := terminal.StartCommand(t.ctx, m.shell, t.CommandString, m.terminal, m.logger)
	if err != nil {
		return -1, err
	}
	t.mu.Lock()
	t.pty = ctrl
	t.mu.Unlock()

	return ctrl.Wait()
}

// sendEvent delivers an event without ever blocking a task goroutine.
func (m *manager) sendEvent(event TaskEvent) {
	select {
	case m.eventChan <- event:
	default:
		m.logger.Debug("task event dropped", zap.String("task", event.TaskID), zap.String("event", event.EventType))
	}
}

func (m *manager) lookup(taskID string) (*Task, error) {
	m.tasksMu.RLock()
	defer m.tasksMu.RUnlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return nil, errors.Wrapf(ErrTaskNotFound, "task %q", taskID)
	}
	return t, nil
}

func (m *manager) Wait(ctx context.Context, taskID string) (*Task, error) {
	t, err := m.lookup(taskID)
	if err != nil {
		return nil, err
	}
	select {
	case <-t.done:
		return m.GetTaskStatus(taskID)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *manager) GetTaskStatus(taskID string) (*Task, error) {
	t, err := m.lookup(taskID)
	if err != nil {
		return nil, err
	}
	return t.snapshot(), nil
}

func (m *manager) ListTasks() []*Task {
	m.tasksMu.RLock()
	list := make([]*Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		list = append(list, t.snapshot())
	}
	m.tasksMu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].StartTime.Before(list[j].StartTime) })
	return list
}

func (t *Task) snapshot() *Task {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cp := &Task{
		ID:            t.ID,
		CommandString: t.CommandString,
		IsInteractive: t.IsInteractive,
		Status:        t.Status,
		StartTime:     t.StartTime,
		EndTime:       t.EndTime,
		ExitCode:      t.ExitCode,
		Stdout:        new(bytes.Buffer),
		Stderr:        new(bytes.Buffer),
		Error:         t.Error,
	}
	// Buffers are only written by the command while running.
	if t.Finished() {
		cp.Stdout.Write(t.Stdout.Bytes())
		cp.Stderr.Write(t.Stderr.Bytes())
	}
	return cp
}

func (m *manager) SendSignalToTask(taskID string, sig os.Signal) error {
	t, err := m.lookup(taskID)
	if err != nil {
		return err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	switch {
	case t.IsInteractive && t.pty != nil:
		return t.pty.SendSignal(sig)
	case !t.IsInteractive && t.cmd != nil && t.cmd.Process != nil:
		return t.cmd.Process.Signal(sig)
	default:
		return fmt.Errorf("cannot send signal to task %q: process not running", taskID)
	}
}

func (m *manager) CancelTask(taskID string) error {
	t, err := m.lookup(taskID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Status != StatusRunning && t.Status != StatusPending {
		return fmt.Errorf("task %q is not in a cancellable state (%s)", taskID, t.Status)
	}
	// The task goroutine records the final state once the process exits.
	t.cancelFunc()
	return nil
}

func (m *manager) GetRunningTasksSummary() string {
	m.tasksMu.RLock()
	defer m.tasksMu.RUnlock()

	var running []string
	for id, t := range m.tasks {
		t.mu.RLock()
		status, cmd := t.Status, t.CommandString
		t.mu.RUnlock()

		if status == StatusRunning {
			running = append(running, fmt.Sprintf("[%s: %s]", id, utils.Truncate(cmd, 40)))
		}
	}
	if len(running) == 0 {
		return ""
	}
	return fmt.Sprintf("Running Tasks: %s", strings.Join(running, ", "))
}
