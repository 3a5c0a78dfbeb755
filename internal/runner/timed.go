package runner

import (
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"artifactexec/internal/fsx"
)

// timeOutputFormat is the format string passed to `time -f` (spec.md
// §6): a single JSON object recording wall, user, and kernel seconds.
const timeOutputFormat = `{"wall_clock_seconds":%e,"user_mode_seconds":%U,"kernel_mode_seconds":%S}`

// Timed composes over Inner, wrapping the invocation in the host
// `time` utility so that its wall/user/kernel timing lands in a file
// the caller can open afterward (spec.md §4.I).
type Timed struct {
	Inner           Runner
	TimeUtilityPath string
	OutputPath      string
}

// Run implements Runner.
func (t Timed) Run(ctx context.Context, fs *fsx.Filesystem, invocation Invocation, stdout, stderr io.Writer) error {
	wrapped := Wrap(t.TimeUtilityPath, []string{"-o", t.OutputPath, "-f", timeOutputFormat}, invocation)
	return t.Inner.Run(ctx, fs, wrapped, stdout, stderr)
}

// TimingRecord is the parsed content of a Timed run's output file
// (spec.md §6's JSON object).
type TimingRecord struct {
	WallSeconds   float64 `json:"wall_clock_seconds"`
	UserSeconds   float64 `json:"user_mode_seconds"`
	KernelSeconds float64 `json:"kernel_mode_seconds"`
}

// ParseTimingOutput parses the JSON object the `time` utility wrote
// under the format string Timed uses.
func ParseTimingOutput(r io.Reader) (TimingRecord, error) {
	var record TimingRecord
	if err := json.NewDecoder(r).Decode(&record); err != nil {
		return TimingRecord{}, errors.Wrap(err, "unable to parse timing output")
	}
	return record, nil
}
