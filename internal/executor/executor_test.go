package executor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"artifactexec/internal/fsx"
	"artifactexec/internal/logging"
	"artifactexec/internal/model"
	"artifactexec/internal/runner"
)

type countingRunner struct {
	calls int
}

func (c *countingRunner) Run(_ context.Context, fs *fsx.Filesystem, invocation runner.Invocation, stdout, stderr io.Writer) error {
	c.calls++
	stdout.Write([]byte("ran\n"))
	return nil
}

func mustInputsConfig(t *testing.T) model.OutputsDescription {
	t.Helper()
	desc, err := model.NewOutputsDescription(nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return desc
}

func TestLoadOrExecuteHitsCacheWithoutRespawning(t *testing.T) {
	workRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(workRoot, "prog"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	workFS, err := fsx.New(workRoot)
	if err != nil {
		t.Fatal(err)
	}

	cacheFS, err := fsx.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	counter := &countingRunner{}
	log := logging.NewRoot(logging.LevelWarn)
	exec, err := Open(cacheFS, workFS, counter, log)
	if err != nil {
		t.Fatal(err)
	}
	defer exec.Close()

	envVars, err := model.NewEnvVarsFromConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	inputFiles, err := model.NewFileIdentitiesManifestFromConfig("sha256", nil)
	if err != nil {
		t.Fatal(err)
	}
	inputs := model.TaskInputs{
		EnvVars:    envVars,
		Program:    model.Program("prog"),
		Arguments:  nil,
		InputFiles: inputFiles,
		Outputs:    mustInputsConfig(t),
	}

	first, err := exec.LoadOrExecute(context.Background(), inputs)
	if err != nil {
		t.Fatal(err)
	}
	if counter.calls != 1 {
		t.Fatalf("expected one spawn, got %d", counter.calls)
	}

	second, err := exec.LoadOrExecute(context.Background(), inputs)
	if err != nil {
		t.Fatal(err)
	}
	if counter.calls != 1 {
		t.Fatalf("expected no additional spawn on cache hit, got %d calls", counter.calls)
	}
	if !second.InputsWithProgram.Equal(first.InputsWithProgram) {
		t.Error("expected identical task outputs on cache hit")
	}

	fp, err := Fingerprint(inputs)
	if err != nil {
		t.Fatal(err)
	}
	stdout, err := exec.Stdout(fp)
	if err != nil {
		t.Fatal(err)
	}
	defer stdout.Close()
	captured, err := io.ReadAll(stdout)
	if err != nil {
		t.Fatal(err)
	}
	if string(captured) != "ran\n" {
		t.Errorf("captured stdout = %q", captured)
	}
}

func TestLoadOrExecuteDetectsSchemeMismatch(t *testing.T) {
	workRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(workRoot, "prog"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	workFS, err := fsx.New(workRoot)
	if err != nil {
		t.Fatal(err)
	}
	cacheFS, err := fsx.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	log := logging.NewRoot(logging.LevelWarn)
	exec, err := Open(cacheFS, workFS, &countingRunner{}, log)
	if err != nil {
		t.Fatal(err)
	}
	defer exec.Close()

	envVars, err := model.NewEnvVarsFromConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	inputFiles, err := model.NewFileIdentitiesManifestFromConfig("sha256", nil)
	if err != nil {
		t.Fatal(err)
	}
	inputs := model.TaskInputs{
		EnvVars:    envVars,
		Program:    model.Program("prog"),
		InputFiles: inputFiles,
		Outputs:    mustInputsConfig(t),
	}

	outputs, err := exec.LoadOrExecute(context.Background(), inputs)
	if err != nil {
		t.Fatal(err)
	}
	fp, err := Fingerprint(inputs)
	if err != nil {
		t.Fatal(err)
	}

	corrupted := outputs
	corrupted.Scheme = "sha1"
	corruptedID, err := exec.blobs.WriteSmall(corrupted)
	if err != nil {
		t.Fatal(err)
	}
	if err := exec.outputsPointers.WriteRaw(fp, corruptedID); err != nil {
		t.Fatal(err)
	}

	if _, err := exec.LoadOrExecute(context.Background(), inputs); err == nil {
		t.Fatal("expected an integrity error for a scheme mismatch")
	}
}
