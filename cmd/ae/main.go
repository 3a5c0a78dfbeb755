package main

import (
	"io"
	"log"

	"artifactexec/internal/cli"
)

func init() {
	// Silence the default logger in favor of internal/logging.
	log.SetOutput(io.Discard)
}

func main() {
	if err := cli.RootCommand.Execute(); err != nil {
		cli.Fatal(err)
	}
}
