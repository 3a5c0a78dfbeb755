// Package cli implements the ae binary's command tree (spec.md §6),
// grounded on the teacher's cmd/mutagen layout: a root command with
// persistent global flags and one subcommand per operation, shared
// fatal-error reporting, and a leveled logger threaded down from the
// root flags.
package cli

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"artifactexec/internal/logging"
)

// RootCommand is the ae binary's root command.
var RootCommand = &cobra.Command{
	Use:           "ae",
	Short:         "ae is a content-addressed cache for deterministic process executions",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var rootConfiguration struct {
	// logLevel is the name of the configured log level.
	logLevel string
	// cacheDirectory is the cache root the executor reads and writes.
	cacheDirectory string
}

func init() {
	flags := RootCommand.PersistentFlags()
	flags.StringVar(&rootConfiguration.logLevel, "log-level", "warn", "Set the log level (trace|debug|info|warn|error)")
	flags.StringVar(&rootConfiguration.cacheDirectory, "cache-directory", "./ae-cache", "Set the cache directory")

	// Disable Cobra's alphabetical command sorting and its mousetrap
	// check, matching the teacher's root command setup.
	cobra.EnableCommandSorting = false
	cobra.MousetrapHelpText = ""

	RootCommand.AddCommand(executeCommand)
}

// rootLogger constructs the leveled logger described by --log-level.
func rootLogger() (*logging.Logger, error) {
	level, ok := logging.NameToLevel(rootConfiguration.logLevel)
	if !ok {
		return nil, errors.Errorf("unknown log level: %q", rootConfiguration.logLevel)
	}
	return logging.NewRoot(level), nil
}
