package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafabd1/cmd-ai/internal/config"
	"github.com/rafabd1/cmd-ai/internal/memory"
	"github.com/rafabd1/cmd-ai/internal/task"
)

type scriptedPrompter struct {
	answers []string
	asked   []string
}

func (p *scriptedPrompter) Prompt(_ context.Context, question, def string) (string, error) {
	p.asked = append(p.asked, question)
	if len(p.answers) == 0 {
		return "", io.EOF
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	if a == "" {
		return def, nil
	}
	return a, nil
}

type recordingCmd struct {
	name string
	args []string
}

func (c *recordingCmd) Name() string        { return c.name }
func (c *recordingCmd) Description() string { return "records its arguments" }
func (c *recordingCmd) Execute(_ context.Context, args []string, _ io.Writer) error {
	c.args = args
	return nil
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&QuitCmd{}))
	assert.Error(t, r.Register(&QuitCmd{}))
}

func TestRegistryGetAllSorted(t *testing.T) {
	r := NewRegistry()
	for _, cmd := range []Command{&QuitCmd{}, &ClearCmd{}, &HistoryCmd{}} {
		require.NoError(t, r.Register(cmd))
	}
	var names []string
	for _, cmd := range r.GetAll() {
		names = append(names, cmd.Name())
	}
	assert.Equal(t, []string{"clear", "history", "quit"}, names)
}

func TestDispatch(t *testing.T) {
	r := NewRegistry()
	rec := &recordingCmd{name: "echo"}
	require.NoError(t, r.Register(rec))
	require.NoError(t, r.Register(&QuitCmd{}))

	var out bytes.Buffer
	require.NoError(t, r.Dispatch(context.Background(), "  !ECHO a b ", &out))
	assert.Equal(t, []string{"a", "b"}, rec.args)

	out.Reset()
	require.NoError(t, r.Dispatch(context.Background(), "!nope", &out))
	assert.Contains(t, out.String(), "Unknown command: !nope")

	out.Reset()
	require.NoError(t, r.Dispatch(context.Background(), "!", &out))
	assert.Contains(t, out.String(), "Unknown command")

	out.Reset()
	err := r.Dispatch(context.Background(), "!quit", &out)
	assert.ErrorIs(t, err, ErrExitRequested)
	assert.Contains(t, out.String(), "Goodbye!")
}

func TestIsCommand(t *testing.T) {
	assert.True(t, IsCommand("!help"))
	assert.True(t, IsCommand("  !history"))
	assert.False(t, IsCommand("how do I use ! in bash"))
}

func TestHelpListsCommandsAndStatus(t *testing.T) {
	cfg := config.Default()
	r := NewRegistry()
	help := &HelpCmd{Registry: r, Config: func() *config.Config { return cfg }}
	for _, cmd := range []Command{help, &QuitCmd{}, &ClearCmd{}} {
		require.NoError(t, r.Register(cmd))
	}

	var out bytes.Buffer
	require.NoError(t, help.Execute(context.Background(), nil, &out))
	for _, want := range []string{"!help", "!quit", "!clear", "Exit the tool", "currently", "enabled", "How can I extract a tar.gz file?"} {
		assert.Contains(t, out.String(), want)
	}
	assert.NotContains(t, out.String(), "not enabled")

	cfg.SetAutoRun(false)
	out.Reset()
	require.NoError(t, help.Execute(context.Background(), nil, &out))
	assert.Contains(t, out.String(), "not enabled")
}

func TestHistoryCommand(t *testing.T) {
	store := memory.NewStore(filepath.Join(t.TempDir(), "h.json"), 20)
	cmd := &HistoryCmd{Store: store}

	var out bytes.Buffer
	require.NoError(t, cmd.Execute(context.Background(), nil, &out))
	assert.Contains(t, out.String(), "No command history found.")

	for i := 0; i < 12; i++ {
		store.Append("query-"+string(rune('a'+i)), "resp")
	}
	out.Reset()
	require.NoError(t, cmd.Execute(context.Background(), nil, &out))
	assert.Contains(t, out.String(), "Command History")
	assert.Contains(t, out.String(), "query-l")
	assert.Contains(t, out.String(), "query-c")
	assert.NotContains(t, out.String(), "query-b")
}

func TestClearCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.json")
	store := memory.NewStore(path, 20)
	store.Append("q", "r")

	var out bytes.Buffer
	require.NoError(t, (&ClearCmd{Store: store}).Execute(context.Background(), nil, &out))
	assert.Contains(t, out.String(), "History cleared.")
	assert.Equal(t, 0, store.Len())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func newConfigCmd(t *testing.T, answers ...string) (*ConfigCmd, *config.Config, string, *[]*config.Config) {
	t.Helper()
	cfg := config.Default()
	path := filepath.Join(t.TempDir(), "cfg.json")
	var changes []*config.Config
	cmd := &ConfigCmd{
		Config:   func() *config.Config { return cfg },
		Path:     path,
		Prompter: &scriptedPrompter{answers: answers},
		OnChange: func(c *config.Config) { changes = append(changes, c) },
	}
	return cmd, cfg, path, &changes
}

func readConfigFile(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestConfigChangeModel(t *testing.T) {
	cmd, cfg, path, changes := newConfigCmd(t, "1", "llama3")

	var out bytes.Buffer
	require.NoError(t, cmd.Execute(context.Background(), nil, &out))
	assert.Contains(t, out.String(), "Configuration saved.")
	assert.Equal(t, "llama3", readConfigFile(t, path)["model"])
	require.Len(t, *changes, 1)
	assert.Equal(t, "llama3", (*changes)[0].Model)
	// The live config is replaced through OnChange, never mutated in place.
	assert.Equal(t, config.DefaultModel, cfg.Model)
}

func TestConfigChangeURLTrimsSlash(t *testing.T) {
	cmd, _, path, _ := newConfigCmd(t, "2", "http://gpu:11434/api/")

	require.NoError(t, cmd.Execute(context.Background(), nil, &bytes.Buffer{}))
	assert.Equal(t, "http://gpu:11434/api", readConfigFile(t, path)["url"])
}

func TestConfigChangePrompt(t *testing.T) {
	cmd, _, path, _ := newConfigCmd(t, "3", "Answer with one command.")

	var out bytes.Buffer
	require.NoError(t, cmd.Execute(context.Background(), nil, &out))
	assert.Contains(t, out.String(), "Current prompt prefix:")
	assert.Equal(t, "Answer with one command.", readConfigFile(t, path)["prompt_prefix"])
}

func TestConfigToggleRunPrompt(t *testing.T) {
	cmd, _, path, changes := newConfigCmd(t, "4")

	var out bytes.Buffer
	require.NoError(t, cmd.Execute(context.Background(), nil, &out))
	assert.Contains(t, out.String(), "Run command prompt disabled.")
	assert.Equal(t, false, readConfigFile(t, path)["auto_run_prompt"])
	require.Len(t, *changes, 1)
	assert.False(t, (*changes)[0].AutoRun())
}

func TestConfigNoChanges(t *testing.T) {
	for name, answers := range map[string][]string{
		"save and exit":   {"5"},
		"default choice":  {""},
		"same model kept": {"1", ""},
	} {
		t.Run(name, func(t *testing.T) {
			cmd, _, path, changes := newConfigCmd(t, answers...)

			var out bytes.Buffer
			require.NoError(t, cmd.Execute(context.Background(), nil, &out))
			assert.Contains(t, out.String(), "No changes made to configuration.")
			assert.Empty(t, *changes)
			_, err := os.Stat(path)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestConfigInvalidChoice(t *testing.T) {
	cmd, _, path, changes := newConfigCmd(t, "9")

	var out bytes.Buffer
	require.NoError(t, cmd.Execute(context.Background(), nil, &out))
	assert.Contains(t, out.String(), "Invalid choice. Configuration not saved.")
	assert.Empty(t, *changes)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestConfigPromptError(t *testing.T) {
	cmd, _, _, _ := newConfigCmd(t)
	err := cmd.Execute(context.Background(), nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, io.EOF)
}

func TestConfigSaveFailure(t *testing.T) {
	cmd, _, _, changes := newConfigCmd(t, "4")
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	cmd.Path = filepath.Join(blocker, "cfg.json")

	err := cmd.Execute(context.Background(), nil, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration not saved")
	assert.Empty(t, *changes)
}

func newTaskCmd(t *testing.T) (*TaskCmd, task.ExecutionManager) {
	t.Helper()
	m := task.NewManager(task.Options{Shell: "/bin/sh", Terminal: io.Discard})
	t.Cleanup(func() { _ = m.Stop() })
	return &TaskCmd{Manager: func() task.ExecutionManager { return m }}, m
}

func runTask(t *testing.T, m task.ExecutionManager, command string) string {
	t.Helper()
	id, err := m.SubmitTask(context.Background(), command, false)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = m.Wait(ctx, id)
	require.NoError(t, err)
	return id
}

func TestTaskCommandList(t *testing.T) {
	cmd, m := newTaskCmd(t)

	var out bytes.Buffer
	require.NoError(t, cmd.Execute(context.Background(), nil, &out))
	assert.Contains(t, out.String(), "No commands executed this session.")

	id := runTask(t, m, "echo listed")
	out.Reset()
	require.NoError(t, cmd.Execute(context.Background(), nil, &out))
	assert.Contains(t, out.String(), "Session Commands")
	assert.Contains(t, out.String(), id[:8])
	assert.Contains(t, out.String(), "echo listed")
	assert.Contains(t, out.String(), "success")
}

func TestTaskCommandStatus(t *testing.T) {
	cmd, m := newTaskCmd(t)
	id := runTask(t, m, "echo visible; echo broken >&2; exit 5")

	var out bytes.Buffer
	require.NoError(t, cmd.Execute(context.Background(), []string{"status", id[:6]}, &out))
	assert.Contains(t, out.String(), "Task "+id)
	assert.Contains(t, out.String(), "Exit Code: 5")
	assert.Contains(t, out.String(), "visible")
	assert.Contains(t, out.String(), "broken")

	out.Reset()
	require.NoError(t, cmd.Execute(context.Background(), []string{"status", "zzzz"}, &out))
	assert.Contains(t, out.String(), "not found")

	out.Reset()
	require.NoError(t, cmd.Execute(context.Background(), []string{"status"}, &out))
	assert.Contains(t, out.String(), "Usage: !task status <id>")

	out.Reset()
	require.NoError(t, cmd.Execute(context.Background(), []string{"kill"}, &out))
	assert.Contains(t, out.String(), "Unknown task subcommand: kill")
}
