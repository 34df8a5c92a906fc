package terminal

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"github.com/pkg/errors"
)

// startInPty starts cmd with its output attached to a new pseudo-terminal and
// returns the master side. When stdin is set the child reads from it instead
// of the pty, which lets line input from the user's terminal reach it.
func startInPty(cmd *exec.Cmd, stdin *os.File) (*os.File, error) {
	if stdin != nil {
		cmd.Stdin = stdin
	}
	return pty.Start(cmd)
}

// inheritSize copies the window size of from onto the pty master.
func inheritSize(from, ptyFile *os.File) error {
	return pty.InheritSize(from, ptyFile)
}

func setSize(ptyFile *os.File, rows, cols uint16) error {
	return pty.Setsize(ptyFile, &pty.Winsize{Rows: rows, Cols: cols})
}

// isPtyClosed reports the error Linux returns when reading a master whose
// slave side has no more open descriptors.
func isPtyClosed(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	return errors.Is(err, syscall.EIO) || errors.Is(err, os.ErrClosed)
}
