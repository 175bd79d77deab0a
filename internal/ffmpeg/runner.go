package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
)

// stderrTailLines is how many trailing stderr lines an ExitError keeps.
const stderrTailLines = 20

// Runner executes an external program and returns its stdout.
type Runner interface {
	Run(ctx context.Context, program string, args []string) ([]byte, error)
}

// ExitError reports a non-zero exit of a child process.
type ExitError struct {
	Program string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Program, e.Code)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Program, e.Code, e.Stderr)
}

// ExecRunner runs programs with os/exec. The process is killed when ctx is
// done.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, program string, args []string) ([]byte, error) {
	name := filepath.Base(program)

	cmd := exec.CommandContext(ctx, program, args...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", name, err)
	}

	slog.DebugContext(ctx, "process started", "program", name, "args", strings.Join(args, " "))

	tail := drainStderr(ctx, name, bufio.NewScanner(stderr))

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", name, context.Cause(ctx))
		}
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, &ExitError{Program: name, Code: ee.ExitCode(), Stderr: tail}
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return stdout.Bytes(), nil
}

// drainStderr logs stderr line-by-line at debug level and returns the last
// few lines.
func drainStderr(ctx context.Context, name string, scanner *bufio.Scanner) string {
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		slog.DebugContext(ctx, name, "line", line)
		lines = append(lines, line)
		if len(lines) > stderrTailLines {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		slog.WarnContext(ctx, "stderr scanner error", "program", name, "err", err)
	}
	return strings.Join(lines, "\n")
}
