package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"artifactexec/internal/fsx"
	"artifactexec/internal/model"
)

func writeShellScript(t *testing.T, root, relative, content string, mode os.FileMode) {
	t.Helper()
	full := filepath.Join(root, relative)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
}

func TestSimpleRunnerCapturesOutput(t *testing.T) {
	root := t.TempDir()
	script := "#!/bin/sh\nprintf 'Hello, stdout\\n'\nprintf 'Hello, stderr\\n' 1>&2\n"
	writeShellScript(t, root, "prog.sh", script, 0o755)

	fs, err := fsx.New(root)
	if err != nil {
		t.Fatal(err)
	}

	progPath, err := fs.AbsolutePath("prog.sh")
	if err != nil {
		t.Fatal(err)
	}
	var stdout, stderr bytes.Buffer
	invocation := Invocation{
		Program:   model.Program(progPath),
		Arguments: nil,
		EnvVars:   model.EnvVars{},
	}
	if err := (Simple{}).Run(context.Background(), fs, invocation, &stdout, &stderr); err != nil {
		t.Fatal(err)
	}
	if stdout.String() != "Hello, stdout\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if stderr.String() != "Hello, stderr\n" {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestSimpleRunnerMissingExecuteBit(t *testing.T) {
	root := t.TempDir()
	writeShellScript(t, root, "prog.sh", "#!/bin/sh\nexit 0\n", 0o644)

	fs, err := fsx.New(root)
	if err != nil {
		t.Fatal(err)
	}

	progPath, err := fs.AbsolutePath("prog.sh")
	if err != nil {
		t.Fatal(err)
	}
	invocation := Invocation{Program: model.Program(progPath)}
	var stdout, stderr bytes.Buffer
	err = (Simple{}).Run(context.Background(), fs, invocation, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected an execution error for a non-executable program")
	}
}

func TestParseTimingOutput(t *testing.T) {
	record, err := ParseTimingOutput(strings.NewReader(`{"wall_clock_seconds":1.5,"user_mode_seconds":0.5,"kernel_mode_seconds":0.25}`))
	if err != nil {
		t.Fatal(err)
	}
	if record.WallSeconds != 1.5 || record.UserSeconds != 0.5 || record.KernelSeconds != 0.25 {
		t.Errorf("unexpected record: %+v", record)
	}
}

func TestParseTraceOutput(t *testing.T) {
	entries, err := ParseTraceOutput(strings.NewReader("r|/tmp/a\nw|/tmp/b\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].Operation != TraceRead || entries[1].Operation != TraceWrite {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestWrapPrependsOriginalProgram(t *testing.T) {
	wrapped := Wrap("/usr/bin/time", []string{"-o", "out", "-f", "fmt"}, Invocation{
		Program:   "prog",
		Arguments: model.Arguments{"a", "b"},
	})
	if wrapped.Program != "/usr/bin/time" {
		t.Errorf("program = %q", wrapped.Program)
	}
	want := model.Arguments{"-o", "out", "-f", "fmt", "prog", "a", "b"}
	if len(wrapped.Arguments) != len(want) {
		t.Fatalf("got %v, want %v", wrapped.Arguments, want)
	}
	for i := range want {
		if wrapped.Arguments[i] != want[i] {
			t.Errorf("got %v, want %v", wrapped.Arguments, want)
		}
	}
}
