package terminal

import (
	"os"
	"os/exec"
	"strings"
)

const fallbackShell = "/bin/sh"

// ResolveShell returns the interpreter used to run generated commands.
// An explicit setting wins. Otherwise bash is preferred since the prompt asks
// the model for bash, then $SHELL, then /bin/sh.
func ResolveShell(configured string) string {
	if s := strings.TrimSpace(configured); s != "" {
		return s
	}
	if bash, err := exec.LookPath("bash"); err == nil {
		return bash
	}
	if s := strings.TrimSpace(os.Getenv("SHELL")); s != "" {
		return s
	}
	return fallbackShell
}

// ShellArgs returns the argument list that makes shell run command.
func ShellArgs(command string) []string {
	return []string{"-c", command}
}
