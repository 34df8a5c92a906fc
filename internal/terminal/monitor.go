package terminal

import (
	"io"
	"sync"

	"go.uber.org/zap"
)

// Monitor copies everything read from a pty master to a writer until the
// pty reports EOF or is closed.
type Monitor struct {
	src    io.Reader
	output io.Writer // can be swapped while running
	mu     sync.Mutex
	done   chan struct{}
	logger *zap.Logger
}

// NewMonitor creates a monitor for src. A nil output discards the data.
func NewMonitor(src io.Reader, output io.Writer, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		src:    src,
		output: output,
		done:   make(chan struct{}),
		logger: logger,
	}
}

// SetOutput changes the destination writer. Safe for concurrent use.
func (m *Monitor) SetOutput(output io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.output = output
}

// Start begins copying in a separate goroutine.
func (m *Monitor) Start() {
	go m.run()
}

// Done is closed once the copy loop has returned.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

func (m *Monitor) run() {
	defer close(m.done)
	buf := make([]byte, 32*1024)
	for {
		n, err := m.src.Read(buf)
		if n > 0 {
			m.mu.Lock()
			output := m.output
			m.mu.Unlock()

			if output != nil {
				if _, writeErr := output.Write(buf[:n]); writeErr != nil {
					m.logger.Debug("pty output write failed", zap.Error(writeErr))
				}
			}
		}
		if err != nil {
			if err != io.EOF && !isPtyClosed(err) {
				m.logger.Debug("pty read failed", zap.Error(err))
			}
			return
		}
	}
}
