package terminal

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// drainTimeout bounds how long Wait keeps reading after the command exits.
// Background children can hold the pty open indefinitely.
const drainTimeout = 2 * time.Second

// Controller runs a single command inside a pseudo-terminal.
type Controller interface {
	// Start launches shell with args attached to a new pty.
	Start(ctx context.Context, shell string, args ...string) error
	// Wait blocks until the command exits and its output has been copied.
	Wait() (int, error)
	// Resize informs the pty about a change in the window size.
	Resize(rows, cols uint16) error
	// SendSignal delivers sig to the running command.
	SendSignal(sig os.Signal) error
	// Stop kills the command and releases the pty.
	Stop() error
	// SetOutput sets the destination writer for the command's output.
	SetOutput(output io.Writer)
}

// PtyController implements Controller with creack/pty.
type PtyController struct {
	mu      sync.RWMutex
	ptyFile *os.File
	cmd     *exec.Cmd
	monitor *Monitor
	output  io.Writer
	stdin   *os.File
	logger  *zap.Logger
	stopped bool
}

// NewPtyController creates an idle controller.
func NewPtyController(logger *zap.Logger) *PtyController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PtyController{logger: logger}
}

// SetOutput sets the destination writer, also on a running monitor.
func (c *PtyController) SetOutput(output io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.output = output
	if c.monitor != nil {
		c.monitor.SetOutput(output)
	}
}

// SetInput makes the command read from in instead of the pty. Must be
// called before Start.
func (c *PtyController) SetInput(in *os.File) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stdin = in
}

// Start launches shell with args inside a new pty.
func (c *PtyController) Start(ctx context.Context, shell string, args ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cmd != nil {
		return errors.New("terminal controller already started")
	}
	if shell == "" {
		shell = ResolveShell("")
	}

	cmd := exec.CommandContext(ctx, shell, args...)
	ptyF, err := startInPty(cmd, c.stdin)
	if err != nil {
		return errors.Wrap(err, "failed to start pty")
	}

	c.cmd = cmd
	c.ptyFile = ptyF
	c.stopped = false
	c.monitor = NewMonitor(ptyF, c.output, c.logger)
	c.monitor.Start()

	c.logger.Debug("pty started", zap.String("shell", shell), zap.Int("pid", cmd.Process.Pid))
	return nil
}

// Wait blocks until the command exits and returns its exit code. The error
// is non-nil only when the command could not be waited on normally, such as
// after context cancellation.
func (c *PtyController) Wait() (int, error) {
	c.mu.RLock()
	cmd, monitor := c.cmd, c.monitor
	c.mu.RUnlock()
	if cmd == nil {
		return -1, errors.New("terminal not started")
	}

	waitErr := cmd.Wait()

	select {
	case <-monitor.Done():
	case <-time.After(drainTimeout):
		c.logger.Debug("pty still open after exit, closing")
	}
	c.closePty()
	<-monitor.Done()

	if waitErr == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) && exitErr.ExitCode() >= 0 {
		return exitErr.ExitCode(), nil
	}
	return -1, errors.Wrap(waitErr, "command did not exit cleanly")
}

func (c *PtyController) closePty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	if c.ptyFile != nil {
		_ = c.ptyFile.Close()
		c.ptyFile = nil
	}
}

// InheritSize copies the window size of the given terminal onto the pty.
func (c *PtyController) InheritSize(from *os.File) error {
	c.mu.RLock()
	ptyF := c.ptyFile
	c.mu.RUnlock()
	if ptyF == nil {
		return errors.New("terminal not started")
	}
	return inheritSize(from, ptyF)
}

// Resize informs the pty about a change in the window size.
func (c *PtyController) Resize(rows, cols uint16) error {
	c.mu.RLock()
	ptyF := c.ptyFile
	c.mu.RUnlock()
	if ptyF == nil {
		return errors.New("terminal not started")
	}
	return setSize(ptyF, rows, cols)
}

// SendSignal sends sig to the command. A process that already finished is
// not an error.
func (c *PtyController) SendSignal(sig os.Signal) error {
	c.mu.RLock()
	cmd := c.cmd
	c.mu.RUnlock()
	if cmd == nil || cmd.Process == nil {
		return errors.New("terminal process not running")
	}
	if err := cmd.Process.Signal(sig); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return errors.Wrapf(err, "failed to send signal %v", sig)
	}
	return nil
}

// Stop closes the pty and kills the command if it is still running.
func (c *PtyController) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil
	}
	c.stopped = true

	var firstErr error
	if c.ptyFile != nil {
		if err := c.ptyFile.Close(); err != nil {
			firstErr = errors.Wrap(err, "failed to close pty")
		}
		c.ptyFile = nil
	}
	if c.cmd != nil && c.cmd.Process != nil {
		if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			if firstErr == nil {
				firstErr = errors.Wrap(err, "failed to kill process")
			} else {
				c.logger.Debug("additional error during stop", zap.Error(err))
			}
		}
	}
	return firstErr
}

// StartCommand runs command through shell inside a pty, mirroring output to
// out. When the process has an interactive terminal the pty takes its size
// and the command reads the user's stdin directly. Call Wait on the returned
// controller for the exit code.
func StartCommand(ctx context.Context, shell, command string, out io.Writer, logger *zap.Logger) (*PtyController, error) {
	c := NewPtyController(logger)
	c.SetOutput(out)
	if isatty.IsTerminal(os.Stdin.Fd()) {
		c.SetInput(os.Stdin)
	}
	if err := c.Start(ctx, ResolveShell(shell), ShellArgs(command)...); err != nil {
		return nil, err
	}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		if err := c.InheritSize(os.Stdout); err != nil {
			c.logger.Debug("could not size pty", zap.Error(err))
		}
	}
	return c, nil
}
