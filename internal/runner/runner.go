// Package runner implements process supervision (spec.md §4.I): a
// simple runner that launches a program with a controlled
// environment and captured output, plus two runners that compose over
// it by wrapping the program in a host utility (Unix `time`, a
// syscall-tracing tool).
//
// Process launching and exit-status classification are grounded on
// mutagen's pkg/process (exit_code.go, attributes_posix.go) and its
// agent transport process launching (pkg/agent/transport/stream.go).
package runner

import (
	"context"
	"errors"
	"io"
	"os/exec"

	pkgerrors "github.com/pkg/errors"

	"artifactexec/internal/fsx"
	"artifactexec/internal/model"
)

// Invocation is everything a Runner needs to launch a program: the
// program path, its argument vector, and the environment variables
// installed for it (spec.md §4.I's "cleared environment, then exactly
// the task's environment variables").
type Invocation struct {
	Program   model.Program
	Arguments model.Arguments
	EnvVars   model.EnvVars
}

// Runner launches an Invocation rooted at fs, sending its output to
// stdout and stderr, and reports a non-nil error for any non-success
// exit.
type Runner interface {
	Run(ctx context.Context, fs *fsx.Filesystem, invocation Invocation, stdout, stderr io.Writer) error
}

// ExecutionError reports that a process exited without success. It
// carries the exit code so callers can distinguish, e.g., a missing
// executable bit (spec.md's scenario S4) from an ordinary program
// failure, without parsing error text.
type ExecutionError struct {
	Program  model.Program
	ExitCode int
	cause    error
}

func (e *ExecutionError) Error() string {
	if e.cause != nil {
		return pkgerrors.Wrapf(e.cause, "process %q", e.Program).Error()
	}
	return pkgerrors.Errorf("process %q exited with status %d", e.Program, e.ExitCode).Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.cause
}

// Simple is the base runner: it spawns the program directly with a
// clean environment, a null stdin, and the caller's stdout/stderr
// sinks (spec.md §4.I).
type Simple struct{}

// Run implements Runner.
func (Simple) Run(ctx context.Context, fs *fsx.Filesystem, invocation Invocation, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, string(invocation.Program), []string(invocation.Arguments)...)
	cmd.Dir = fs.Root()
	cmd.Env = envStrings(invocation.EnvVars)
	cmd.Stdin = nil
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExecutionError{
			Program:  invocation.Program,
			ExitCode: exitErr.ExitCode(),
			cause:    exitErr,
		}
	}
	// A failure to even start the process (e.g. a missing executable
	// bit, per scenario S4) surfaces as *exec.Error, not *exec.ExitError.
	// spec.md §7 classifies this as an execution error too, so it gets
	// the same ExecutionError treatment rather than an ordinary wrapped
	// error; there is no exit code to report.
	return &ExecutionError{
		Program:  invocation.Program,
		ExitCode: -1,
		cause:    err,
	}
}

func envStrings(vars model.EnvVars) []string {
	result := make([]string, 0, len(vars.Pairs))
	for _, pair := range vars.Pairs {
		result = append(result, pair.Key+"="+pair.Value)
	}
	return result
}

// Wrap composes a wrapping runner's invocation: the wrapper becomes
// the new program, its own flags come first, then the originally
// wrapped program is prepended to the argument vector ahead of its
// own arguments (spec.md §4.I's wrapper-composition rule). The caller
// is responsible for separately recording the original program as an
// input file, since this layer only builds the invocation to run.
func Wrap(wrapperPath string, wrapperArgs []string, inner Invocation) Invocation {
	args := make(model.Arguments, 0, len(wrapperArgs)+1+len(inner.Arguments))
	args = append(args, wrapperArgs...)
	args = append(args, string(inner.Program))
	args = append(args, inner.Arguments...)
	return Invocation{
		Program:   model.Program(wrapperPath),
		Arguments: args,
		EnvVars:   inner.EnvVars,
	}
}
