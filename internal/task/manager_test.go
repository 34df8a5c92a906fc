package task

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestManager(t *testing.T, out *lockedBuffer) ExecutionManager {
	t.Helper()
	m := NewManager(Options{Shell: "/bin/sh", Terminal: out})
	t.Cleanup(func() { _ = m.Stop() })
	return m
}

func waitTask(t *testing.T, m ExecutionManager, id string) *Task {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	task, err := m.Wait(ctx, id)
	require.NoError(t, err)
	return task
}

func TestCapturedTaskSeparatesStreams(t *testing.T) {
	m := newTestManager(t, &lockedBuffer{})

	id, err := m.SubmitTask(context.Background(), "echo out; echo err >&2", false)
	require.NoError(t, err)

	task := waitTask(t, m, id)
	assert.Equal(t, StatusSuccess, task.Status)
	assert.Equal(t, 0, task.ExitCode)
	assert.Equal(t, "out\n", task.Stdout.String())
	assert.Equal(t, "err\n", task.Stderr.String())
	assert.NoError(t, task.Error)
	assert.False(t, task.EndTime.Before(task.StartTime))
}

func TestCapturedTaskNonZeroExit(t *testing.T) {
	m := newTestManager(t, &lockedBuffer{})

	id, err := m.SubmitTask(context.Background(), "echo nope >&2; exit 2", false)
	require.NoError(t, err)

	task := waitTask(t, m, id)
	assert.Equal(t, StatusFailed, task.Status)
	assert.Equal(t, 2, task.ExitCode)
	assert.Equal(t, "nope\n", task.Stderr.String())
	assert.NoError(t, task.Error)
}

func TestShellFeaturesAvailable(t *testing.T) {
	m := newTestManager(t, &lockedBuffer{})

	id, err := m.SubmitTask(context.Background(), "printf 'a\\nb\\nc\\n' | wc -l | tr -d ' '", false)
	require.NoError(t, err)
	assert.Equal(t, "3\n", waitTask(t, m, id).Stdout.String())
}

func TestCancelTask(t *testing.T) {
	m := newTestManager(t, &lockedBuffer{})

	id, err := m.SubmitTask(context.Background(), "sleep 10", false)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		s, err := m.GetTaskStatus(id)
		return err == nil && s.Status == StatusRunning
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, m.CancelTask(id))
	task := waitTask(t, m, id)
	assert.Equal(t, StatusCancelled, task.Status)
	assert.Error(t, m.CancelTask(id))
}

func TestEventsReportLifecycle(t *testing.T) {
	m := newTestManager(t, &lockedBuffer{})

	id, err := m.SubmitTask(context.Background(), "true", false)
	require.NoError(t, err)
	waitTask(t, m, id)

	var got []TaskEvent
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-m.Events():
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("expected two events, got %d", len(got))
		}
	}
	assert.Equal(t, EventStarted, got[0].EventType)
	assert.Equal(t, EventCompleted, got[1].EventType)
	assert.Equal(t, StatusSuccess, got[1].Status)
	assert.Equal(t, id, got[1].TaskID)
	assert.Equal(t, "true", got[1].Command)
}

func TestUnknownTask(t *testing.T) {
	m := newTestManager(t, &lockedBuffer{})

	_, err := m.GetTaskStatus("missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = m.Wait(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.ErrorIs(t, m.CancelTask("missing"), ErrTaskNotFound)
}

func TestSubmitRejectsEmptyCommand(t *testing.T) {
	m := newTestManager(t, &lockedBuffer{})
	_, err := m.SubmitTask(context.Background(), "   ", false)
	assert.Error(t, err)
}

func TestStopClosesEventsAndRejectsWork(t *testing.T) {
	m := NewManager(Options{Shell: "/bin/sh"})
	_, err := m.SubmitTask(context.Background(), "sleep 10", false)
	require.NoError(t, err)

	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())

	for range m.Events() {
	}
	_, err = m.SubmitTask(context.Background(), "true", false)
	assert.Error(t, err)
}

func TestListTasksOldestFirst(t *testing.T) {
	m := newTestManager(t, &lockedBuffer{})
	assert.Empty(t, m.ListTasks())

	first, err := m.SubmitTask(context.Background(), "echo one", false)
	require.NoError(t, err)
	waitTask(t, m, first)
	second, err := m.SubmitTask(context.Background(), "exit 4", false)
	require.NoError(t, err)
	waitTask(t, m, second)

	tasks := m.ListTasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, first, tasks[0].ID)
	assert.Equal(t, "one\n", tasks[0].Stdout.String())
	assert.Equal(t, second, tasks[1].ID)
	assert.Equal(t, 4, tasks[1].ExitCode)
}

func TestRunningTasksSummary(t *testing.T) {
	m := newTestManager(t, &lockedBuffer{})
	assert.Empty(t, m.GetRunningTasksSummary())

	id, err := m.SubmitTask(context.Background(), "sleep 10", false)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return m.GetRunningTasksSummary() != ""
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, m.GetRunningTasksSummary(), "sleep 10")
	require.NoError(t, m.CancelTask(id))
}

func TestInteractiveTaskMirrorsOutput(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pseudo-terminals unavailable: %v", err)
	}
	_ = tty.Close()
	_ = ptmx.Close()

	out := &lockedBuffer{}
	m := newTestManager(t, out)

	id, err := m.SubmitTask(context.Background(), "echo interactive; exit 4", true)
	require.NoError(t, err)

	task := waitTask(t, m, id)
	assert.Equal(t, StatusFailed, task.Status)
	assert.Equal(t, 4, task.ExitCode)
	assert.Contains(t, out.String(), "interactive")
	assert.Empty(t, task.Stdout.String())
}
