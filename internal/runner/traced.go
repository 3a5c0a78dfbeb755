package runner

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"

	"artifactexec/internal/fsx"
)

// Traced composes over Inner, wrapping the invocation in a
// filesystem-syscall-tracing tool invoked as `rwmd <trace-output> --`
// (spec.md §4.I). It is only meaningful on Linux, where such
// LD_PRELOAD-based tracers operate.
type Traced struct {
	Inner       Runner
	TracerPath  string
	TraceOutput string
}

// Run implements Runner.
func (t Traced) Run(ctx context.Context, fs *fsx.Filesystem, invocation Invocation, stdout, stderr io.Writer) error {
	wrapped := Wrap(t.TracerPath, []string{"rwmd", t.TraceOutput, "--"}, invocation)
	return t.Inner.Run(ctx, fs, wrapped, stdout, stderr)
}

// TraceOperation identifies the kind of filesystem syscall a trace
// line recorded.
type TraceOperation byte

const (
	TraceRead   TraceOperation = 'r'
	TraceWrite  TraceOperation = 'w'
	TraceMkdir  TraceOperation = 'm'
	TraceDelete TraceOperation = 'd'
)

// TraceEntry is a single parsed line of trace output: an operation and
// the absolute path it touched.
type TraceEntry struct {
	Operation TraceOperation
	Path      string
}

// ParseTraceOutput parses a trace log, one entry per line, each
// beginning with an operation letter followed by "|" and an absolute
// path.
func ParseTraceOutput(r io.Reader) ([]TraceEntry, error) {
	scanner := bufio.NewScanner(r)
	var entries []TraceEntry
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		op, path, ok := strings.Cut(line, "|")
		if !ok || len(op) != 1 {
			return nil, errors.Errorf("malformed trace line: %q", line)
		}
		entries = append(entries, TraceEntry{Operation: TraceOperation(op[0]), Path: path})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "unable to read trace output")
	}
	return entries, nil
}
