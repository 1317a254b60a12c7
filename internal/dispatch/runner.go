package dispatch

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner abstracts external command execution for testability.
type CommandRunner interface {
	// Run executes the command with stdin piped in and returns its exit code.
	Run(ctx context.Context, command string, args []string, dir string, stdin string) (int, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, command string, args []string, dir string, stdin string) (int, error) {
	cmd := exec.CommandContext(ctx, command, args...) //nolint:gosec
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(stdin)
	// Commands that ignore SIGKILL-on-cancel get a short grace period before
	// Wait gives up on them.
	cmd.WaitDelay = 10 * time.Second

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), fmt.Errorf("command exited with code %d", exitErr.ExitCode())
	}
	return -1, err
}
