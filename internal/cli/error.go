package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Warning prints a warning message to standard error.
func Warning(message string) {
	fmt.Fprintln(color.Error, color.YellowString("Warning:"), message)
}

// Error prints an error message to standard error.
func Error(err error) {
	fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
}

// Fatal prints an error message to standard error and terminates the
// process with a non-zero exit code, per spec.md §6's "non-zero exit
// status on any error".
func Fatal(err error) {
	Error(err)
	os.Exit(1)
}
