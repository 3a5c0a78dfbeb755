package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"artifactexec/internal/codec"
	"artifactexec/internal/discovery"
	"artifactexec/internal/executor"
	"artifactexec/internal/fsx"
	"artifactexec/internal/identity"
	"artifactexec/internal/model"
	"artifactexec/internal/runner"
)

func executeMain(command *cobra.Command, arguments []string) error {
	log, err := rootLogger()
	if err != nil {
		return err
	}

	cacheDirectory, err := filepath.Abs(rootConfiguration.cacheDirectory)
	if err != nil {
		return errors.Wrap(err, "unable to resolve cache directory")
	}
	cacheRoot, err := fsx.New(cacheDirectory)
	if err != nil {
		return err
	}
	if err := cacheRoot.MkdirAll("."); err != nil {
		return errors.Wrap(err, "unable to create cache directory")
	}

	workDirectory, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "unable to determine working directory")
	}
	workRoot, err := fsx.New(workDirectory)
	if err != nil {
		return err
	}

	envVars, err := loadEnvironmentFile(executeConfiguration.environment)
	if err != nil {
		return err
	}

	inputsConfig, err := loadInputsConfig(executeConfiguration.inputs)
	if err != nil {
		return err
	}

	outputsDescription, err := loadOutputsDescription(executeConfiguration.outputs)
	if err != nil {
		return err
	}

	discovered, err := discovery.Discover(workRoot, inputsConfig)
	if err != nil {
		return errors.Wrap(err, "unable to discover task inputs")
	}

	inputEntries := make([]model.FileIdentity, len(discovered.Paths))
	for i, path := range discovered.Paths {
		id, err := identity.IdentifyFile(workRoot, path)
		if err != nil {
			return errors.Wrapf(err, "unable to identify input %q", path)
		}
		inputEntries[i] = model.FileIdentity{Path: path, Identity: &id}
	}
	inputFiles, err := model.NewFileIdentitiesManifestFromConfig(identity.Scheme, inputEntries)
	if err != nil {
		return err
	}

	exec, err := executor.Open(cacheRoot, workRoot, buildRunner(), log)
	if err != nil {
		return errors.Wrap(err, "unable to open cache")
	}
	defer exec.Close()

	inputs := model.TaskInputs{
		EnvVars:    envVars,
		Program:    model.Program(executeConfiguration.program),
		Arguments:  model.Arguments(arguments),
		InputFiles: inputFiles,
		Outputs:    outputsDescription,
	}

	if _, err := exec.LoadOrExecute(context.Background(), inputs); err != nil {
		return errors.Wrap(err, "execution failed")
	}

	fp, err := executor.Fingerprint(inputs)
	if err != nil {
		return err
	}
	if err := replay(exec.Stdout, fp, os.Stdout); err != nil {
		return err
	}
	if err := replay(exec.Stderr, fp, os.Stderr); err != nil {
		return err
	}

	return nil
}

// replay copies a captured output stream (whichever one open returns)
// to destination, whether it was produced by this invocation or a
// prior one that populated the cache.
func replay(open func(identity.Identity) (io.ReadCloser, error), fp identity.Identity, destination io.Writer) error {
	reader, err := open(fp)
	if err != nil {
		return errors.Wrap(err, "unable to open captured output")
	}
	defer reader.Close()
	if _, err := io.Copy(destination, reader); err != nil {
		return errors.Wrap(err, "unable to replay captured output")
	}
	return nil
}

// buildRunner composes the runner chain selected by the optional
// --timing-output/--trace-output flags (spec.md §3's supplemental
// runner-selection flags, §4.I for the wrapping order). Each wrapping
// runner rewrites the invocation before handing it to its Inner, so
// the innermost wrapper's utility becomes the outermost process. Timed
// sits inside Traced so that the time utility launches the tracer and
// its measurement includes tracing overhead when both are requested.
func buildRunner() runner.Runner {
	var run runner.Runner = runner.Simple{}
	if executeConfiguration.timingOutput != "" {
		run = runner.Timed{
			Inner:           run,
			TimeUtilityPath: executeConfiguration.timeUtilityPath,
			OutputPath:      executeConfiguration.timingOutput,
		}
	}
	if executeConfiguration.traceOutput != "" {
		run = runner.Traced{
			Inner:       run,
			TracerPath:  executeConfiguration.tracerPath,
			TraceOutput: executeConfiguration.traceOutput,
		}
	}
	return run
}

// loadInputsConfig decodes and validates the --inputs file (spec.md
// §6: "canonical-model config serialized in the codec's text format").
func loadInputsConfig(path string) (*discovery.InputsConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open inputs file %q", path)
	}
	defer file.Close()

	var cfg discovery.InputsConfig
	if err := codec.FromReader(file, &cfg); err != nil {
		return nil, errors.Wrapf(err, "unable to parse inputs file %q", path)
	}
	return discovery.NewInputsConfig(cfg)
}

// loadOutputsDescription decodes the --outputs file and forces every
// regular expression it contains to compile up front, so a malformed
// pattern is reported before the program runs rather than mid-force-
// execute.
func loadOutputsDescription(path string) (model.OutputsDescription, error) {
	file, err := os.Open(path)
	if err != nil {
		return model.OutputsDescription{}, errors.Wrapf(err, "unable to open outputs file %q", path)
	}
	defer file.Close()

	var desc model.OutputsDescription
	if err := codec.FromReader(file, &desc); err != nil {
		return model.OutputsDescription{}, errors.Wrapf(err, "unable to parse outputs file %q", path)
	}
	for i := range desc.ExcludeMatches {
		if _, err := desc.ExcludeMatches[i].Regexp(); err != nil {
			return model.OutputsDescription{}, err
		}
	}
	for _, sequence := range desc.IncludeMatchTransforms {
		for i := range sequence.Stages {
			if _, err := sequence.Stages[i].Regexp(); err != nil {
				return model.OutputsDescription{}, err
			}
		}
	}
	return desc, nil
}

var executeCommand = &cobra.Command{
	Use:           "execute",
	Short:         "Run a task, serving a cached result when available",
	RunE:          executeMain,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var executeConfiguration struct {
	// program is the path to the executable to launch.
	program string
	// environment is the path to a KEY=VALUE environment file.
	environment string
	// inputs is the path to the inputs-config JSON file.
	inputs string
	// outputs is the path to the outputs-description JSON file.
	outputs string
	// timingOutput, if set, wraps execution in the time utility runner
	// and writes its record to this path.
	timingOutput string
	// traceOutput, if set, wraps execution in the syscall-tracing
	// runner and writes its log to this path.
	traceOutput string
	// timeUtilityPath is the time utility invoked when timingOutput is
	// set.
	timeUtilityPath string
	// tracerPath is the syscall tracer invoked when traceOutput is set.
	tracerPath string
}

func init() {
	flags := executeCommand.Flags()
	flags.SortFlags = false

	flags.StringVar(&executeConfiguration.program, "program", "", "Path to the executable to run")
	flags.StringVar(&executeConfiguration.environment, "environment", "", "Path to a KEY=VALUE environment file")
	flags.StringVar(&executeConfiguration.inputs, "inputs", "", "Path to the inputs-config JSON file")
	flags.StringVar(&executeConfiguration.outputs, "outputs", "", "Path to the outputs-description JSON file")
	for _, name := range []string{"program", "environment", "inputs", "outputs"} {
		executeCommand.MarkFlagRequired(name)
	}

	flags.StringVar(&executeConfiguration.timingOutput, "timing-output", "", "Record wall/user/kernel timing to this file")
	flags.StringVar(&executeConfiguration.traceOutput, "trace-output", "", "Record a filesystem syscall trace to this file")
	flags.StringVar(&executeConfiguration.timeUtilityPath, "time-utility-path", "time", "Path to the time utility")
	flags.StringVar(&executeConfiguration.tracerPath, "tracer-path", "rwmd", "Path to the syscall-tracing tool")
}
