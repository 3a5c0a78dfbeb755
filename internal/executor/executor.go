// Package executor implements the cache's central state machine
// (spec.md §4.J): given canonical task inputs, compute a fingerprint,
// consult the outputs-pointer cache, and either replay a prior result
// or run the program and record one.
package executor

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"artifactexec/internal/blobstore"
	"artifactexec/internal/cacheindex"
	"artifactexec/internal/codec"
	"artifactexec/internal/fsx"
	"artifactexec/internal/identity"
	"artifactexec/internal/logging"
	"artifactexec/internal/model"
	"artifactexec/internal/project"
	"artifactexec/internal/runner"
	"artifactexec/internal/sysinfo"
)

// Directory and file names within a cache root, per spec.md §4.J/§6.
const (
	blobsDirectory            = "blobs"
	outputsPointersDirectory  = "inputs_to_outputs"
	stdoutsDirectory          = "inputs_to_stdouts"
	stderrsDirectory          = "inputs_to_stderrs"
	metadataPointersDirectory = "inputs_to_metadata"
	indexFileName             = "inputs.listing"
)

// Executor owns one cache root, the workspace filesystem tasks run
// against, and the runner used to populate the cache.
type Executor struct {
	cacheRoot        *fsx.Filesystem
	workRoot         *fsx.Filesystem
	blobs            *blobstore.Store
	outputsPointers  *blobstore.Pointers
	metadataPointers *blobstore.Pointers
	stdouts          *fsx.Filesystem
	stderrs          *fsx.Filesystem
	index            *cacheindex.Index
	run              runner.Runner
	log              *logging.Logger
	snapshotSystem   func() (model.System, error)
}

// Open constructs or loads an Executor over a cache root and a
// workspace root (the filesystem scope tasks execute against and
// whose files are hashed as inputs/outputs), creating the cache
// directory layout described in spec.md §4.J if it does not already
// exist, and loading the persisted index.
func Open(cacheRoot, workRoot *fsx.Filesystem, run runner.Runner, log *logging.Logger) (*Executor, error) {
	blobsFS, err := cacheRoot.Sub(blobsDirectory)
	if err != nil {
		return nil, err
	}
	outputsFS, err := cacheRoot.Sub(outputsPointersDirectory)
	if err != nil {
		return nil, err
	}
	metadataFS, err := cacheRoot.Sub(metadataPointersDirectory)
	if err != nil {
		return nil, err
	}
	stdoutsFS, err := cacheRoot.Sub(stdoutsDirectory)
	if err != nil {
		return nil, err
	}
	stderrsFS, err := cacheRoot.Sub(stderrsDirectory)
	if err != nil {
		return nil, err
	}
	for _, fs := range []*fsx.Filesystem{blobsFS, outputsFS, metadataFS, stdoutsFS, stderrsFS} {
		if err := fs.MkdirAll("."); err != nil {
			return nil, err
		}
	}

	index, err := cacheindex.Open(cacheRoot, indexFileName, log)
	if err != nil {
		return nil, err
	}

	return &Executor{
		cacheRoot:        cacheRoot,
		workRoot:         workRoot,
		blobs:            blobstore.New(blobsFS),
		outputsPointers:  blobstore.NewPointers(outputsFS),
		metadataPointers: blobstore.NewPointers(metadataFS),
		stdouts:          stdoutsFS,
		stderrs:          stderrsFS,
		index:            index,
		run:              run,
		log:              log,
		snapshotSystem:   sysinfo.Snapshot,
	}, nil
}

// Close flushes the index on a best-effort basis (spec.md §4.H, §9's
// write-on-scope-exit note) and should be deferred by callers.
func (e *Executor) Close() {
	e.index.FlushBestEffort()
}

// Stdout opens the captured standard output recorded for fp, whether
// it was captured just now or by a prior force-execute. Replaying it
// is how a CLI caller shows a cache hit's output to the user.
func (e *Executor) Stdout(fp identity.Identity) (io.ReadCloser, error) {
	return e.stdouts.OpenRead(fp.String())
}

// Stderr opens the captured standard error recorded for fp.
func (e *Executor) Stderr(fp identity.Identity) (io.ReadCloser, error) {
	return e.stderrs.OpenRead(fp.String())
}

// Fingerprint computes the identity of the canonical serialization of
// inputs, which is the task's fingerprint (spec.md §4.J).
func Fingerprint(inputs model.TaskInputs) (identity.Identity, error) {
	encoded, err := codec.ToString(inputs)
	if err != nil {
		return identity.Identity{}, err
	}
	return identity.IdentifyFileContent("task inputs", []byte(encoded))
}

// LoadOrExecute computes inputs' fingerprint and returns the cached
// Task Outputs if present, otherwise runs the program and records one
// (spec.md §4.J).
func (e *Executor) LoadOrExecute(ctx context.Context, inputs model.TaskInputs) (model.TaskOutputs, error) {
	fp, err := Fingerprint(inputs)
	if err != nil {
		return model.TaskOutputs{}, err
	}
	if outputs, ok, err := e.lookupOutputs(fp); err != nil {
		return model.TaskOutputs{}, err
	} else if ok {
		return outputs, nil
	}
	return e.ForceExecute(ctx, inputs, fp)
}

// LoadOrExecuteIdentity is LoadOrExecute's identity-addressed
// counterpart: the fingerprint is given directly, and on a miss the
// canonical inputs are recovered from their already-stored blob
// (spec.md §4.J).
func (e *Executor) LoadOrExecuteIdentity(ctx context.Context, fp identity.Identity) (model.TaskOutputs, error) {
	if outputs, ok, err := e.lookupOutputs(fp); err != nil {
		return model.TaskOutputs{}, err
	} else if ok {
		return outputs, nil
	}
	return e.ForceExecuteIdentity(ctx, fp)
}

// ForceExecuteIdentity deserializes the inputs blob stored under fp
// and delegates to ForceExecute.
func (e *Executor) ForceExecuteIdentity(ctx context.Context, fp identity.Identity) (model.TaskOutputs, error) {
	var inputs model.TaskInputs
	if err := e.blobs.Read(fp, &inputs); err != nil {
		return model.TaskOutputs{}, err
	}
	return e.ForceExecute(ctx, inputs, fp)
}

func (e *Executor) lookupOutputs(fp identity.Identity) (model.TaskOutputs, bool, error) {
	outputsID, ok, err := e.outputsPointers.Lookup(fp)
	if err != nil {
		return model.TaskOutputs{}, false, err
	}
	if !ok {
		return model.TaskOutputs{}, false, nil
	}
	var outputs model.TaskOutputs
	if err := e.blobs.Read(outputsID, &outputs); err != nil {
		return model.TaskOutputs{}, false, err
	}
	if outputs.Scheme != identity.Scheme {
		return model.TaskOutputs{}, false, model.NewIntegrityError(
			"cached task outputs were recorded under identity scheme " +
				outputs.Scheme + ", but the cache is now running under " + identity.Scheme)
	}
	return outputs, true, nil
}

// ForceExecute unconditionally runs the program described by inputs
// and records its outputs under fp, following the seven-step
// procedure of spec.md §4.J.
func (e *Executor) ForceExecute(ctx context.Context, inputs model.TaskInputs, fp identity.Identity) (model.TaskOutputs, error) {
	runID := uuid.NewString()
	e.log.Debugf("run %s: executing fingerprint %s", runID, fp)

	if _, err := e.blobs.WriteSmall(inputs); err != nil {
		return model.TaskOutputs{}, err
	}

	stdoutWriter, err := e.stdouts.OpenWrite(fp.String())
	if err != nil {
		return model.TaskOutputs{}, err
	}
	defer stdoutWriter.Close()
	stderrWriter, err := e.stderrs.OpenWrite(fp.String())
	if err != nil {
		return model.TaskOutputs{}, err
	}
	defer stderrWriter.Close()

	invocation := runner.Invocation{
		Program:   inputs.Program,
		Arguments: inputs.Arguments,
		EnvVars:   inputs.EnvVars,
	}
	startedAt := time.Now()
	runErr := e.run.Run(ctx, e.workRoot, invocation, stdoutWriter, stderrWriter)
	duration := time.Since(startedAt)
	if runErr != nil {
		return model.TaskOutputs{}, runErr
	}

	inputPaths := make([]string, len(inputs.InputFiles.Entries))
	for i, entry := range inputs.InputFiles.Entries {
		inputPaths[i] = entry.Path
	}
	inputManifest, err := model.NewFilesManifestFromConfig(inputPaths)
	if err != nil {
		return model.TaskOutputs{}, err
	}

	outputPaths, err := project.Project(inputManifest, inputs.Outputs)
	if err != nil {
		return model.TaskOutputs{}, err
	}

	outputEntries := make([]model.FileIdentity, 0, len(outputPaths))
	for _, path := range outputPaths {
		id, err := identity.IdentifyFile(e.workRoot, path)
		if err != nil {
			// A projected path is a candidate, not a guarantee: the
			// program need not have produced every path a transform
			// pipeline could derive. Record it unidentified rather than
			// aborting the whole execution (spec.md §3's "None identity"
			// case for an absent/unreadable declared path).
			outputEntries = append(outputEntries, model.FileIdentity{Path: path, Identity: nil})
			continue
		}
		outputEntries = append(outputEntries, model.FileIdentity{Path: path, Identity: &id})
	}
	outputFiles, err := model.NewFileIdentitiesManifestFromConfig(identity.Scheme, outputEntries)
	if err != nil {
		return model.TaskOutputs{}, err
	}

	programID, err := identity.IdentifyFile(e.workRoot, string(inputs.Program))
	if err != nil {
		return model.TaskOutputs{}, err
	}
	inputsWithProgramEntries := append([]model.FileIdentity(nil), inputs.InputFiles.Entries...)
	inputsWithProgramEntries = append(inputsWithProgramEntries, model.FileIdentity{Path: string(inputs.Program), Identity: &programID})
	inputsWithProgram, err := model.NewFileIdentitiesManifestFromConfig(identity.Scheme, inputsWithProgramEntries)
	if err != nil {
		return model.TaskOutputs{}, err
	}

	outputs := model.TaskOutputs{
		Scheme:            identity.Scheme,
		InputsWithProgram: inputsWithProgram,
		OutputFiles:       outputFiles,
	}
	outputsID, err := e.blobs.WriteSmall(outputs)
	if err != nil {
		return model.TaskOutputs{}, err
	}
	if err := e.outputsPointers.WriteRaw(fp, outputsID); err != nil {
		return model.TaskOutputs{}, err
	}

	system, err := e.snapshotSystem()
	if err != nil {
		return model.TaskOutputs{}, err
	}
	metadata := model.Metadata{
		TimestampNs:         startedAt.UnixNano(),
		ExecutionDurationNs: model.DurationNsFromDuration(duration),
		System:              system,
	}
	metadataID, err := e.blobs.WriteSmall(metadata)
	if err != nil {
		return model.TaskOutputs{}, err
	}
	if err := e.metadataPointers.WriteRaw(fp, metadataID); err != nil {
		return model.TaskOutputs{}, err
	}

	e.index.Put(fp)
	if err := e.index.Flush(); err != nil {
		return model.TaskOutputs{}, err
	}

	e.log.Debugf("run %s: recorded outputs %s", runID, outputsID)
	return outputs, nil
}
