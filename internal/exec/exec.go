// Package exec runs external check commands for the healing cycle. The
// runner is an interface so workflows can be tested without spawning
// processes.
package exec

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// maxDiagnostic caps how much command output is fed back into a repair
// prompt. Check runners can produce megabytes of output; the tail is
// where test failures usually are.
const maxDiagnostic = 4096

// CommandRunner runs external commands.
type CommandRunner interface {
	// Run executes a command and returns combined stdout/stderr output.
	// The working directory is set to workDir if non-empty.
	Run(ctx context.Context, workDir string, name string, args ...string) (output []byte, err error)

	// RunShell executes a shell command through "sh -c".
	RunShell(ctx context.Context, workDir string, command string) (output []byte, err error)
}

// Runner implements CommandRunner using os/exec.
type Runner struct{}

// NewRunner creates a Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run executes a command and returns combined stdout/stderr output.
func (r *Runner) Run(ctx context.Context, workDir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if workDir != "" {
		cmd.Dir = workDir
	}
	return cmd.CombinedOutput()
}

// RunShell executes a shell command through "sh -c".
func (r *Runner) RunShell(ctx context.Context, workDir string, command string) ([]byte, error) {
	return r.Run(ctx, workDir, "sh", "-c", command)
}

var _ CommandRunner = (*Runner)(nil)

// CheckCommand builds a validation function around a shell command: the
// command passing means the candidate heals the failure, and a failing
// command's output becomes the diagnostic for the next repair attempt.
func CheckCommand(runner CommandRunner, workDir, command string) func(ctx context.Context, candidate string) error {
	return func(ctx context.Context, _ string) error {
		output, err := runner.RunShell(ctx, workDir, command)
		if err == nil {
			return nil
		}
		return fmt.Errorf("check command failed: %s\n%s", err, tail(output))
	}
}

// tail returns the last maxDiagnostic bytes of output, trimmed.
func tail(output []byte) string {
	s := strings.TrimSpace(string(output))
	if len(s) > maxDiagnostic {
		s = s[len(s)-maxDiagnostic:]
	}
	return s
}
