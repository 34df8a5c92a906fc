package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Registry holds the registered !commands.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Command),
	}
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := cmd.Name()
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("command '%s' already registered", name)
	}
	r.commands[name] = cmd
	return nil
}

// Get returns a command by its name.
func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, exists := r.commands[name]
	return cmd, exists
}

// GetAll returns all registered commands sorted by name.
func (r *Registry) GetAll() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmds := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name() < cmds[j].Name() })
	return cmds
}

// IsCommand reports whether an input line should be dispatched to the registry.
func IsCommand(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), Prefix)
}

// Dispatch runs the command named on line (e.g. "!history"). Unknown names
// print a hint instead of failing.
func (r *Registry) Dispatch(ctx context.Context, line string, output io.Writer) error {
	parts := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), Prefix))
	if len(parts) == 0 {
		fmt.Fprintf(output, "Unknown command: %s. Type %shelp for available commands.\n", Prefix, Prefix)
		return nil
	}
	name := strings.ToLower(parts[0])

	cmd, exists := r.Get(name)
	if !exists {
		fmt.Fprintf(output, "Unknown command: %s%s. Type %shelp for available commands.\n", Prefix, name, Prefix)
		return nil
	}
	return cmd.Execute(ctx, parts[1:], output)
}
