package cli

import (
	"bufio"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"artifactexec/internal/model"
)

// loadEnvironmentFile parses an environment file in the format
// described in spec.md §6: one KEY=VALUE assignment per line, blank
// lines ignored, the first "=" splitting key from value (so a value
// may itself contain "="). godotenv supplies the tolerant value
// parsing (quoting, escaping); duplicate keys, which godotenv
// silently resolves last-write-wins, are rejected explicitly here
// since the canonical model treats a duplicate key as a configuration
// error regardless of where it was loaded from.
func loadEnvironmentFile(path string) (model.EnvVars, error) {
	file, err := os.Open(path)
	if err != nil {
		return model.EnvVars{}, errors.Wrapf(err, "unable to open environment file %q", path)
	}
	defer file.Close()

	var keysInOrder []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, _, ok := strings.Cut(line, "=")
		if !ok {
			return model.EnvVars{}, errors.Errorf("malformed environment file line: %q", line)
		}
		key = strings.TrimSpace(key)
		if seen[key] {
			return model.EnvVars{}, errors.Errorf("duplicate environment variable key %q in %q", key, path)
		}
		seen[key] = true
		keysInOrder = append(keysInOrder, key)
	}
	if err := scanner.Err(); err != nil {
		return model.EnvVars{}, errors.Wrapf(err, "unable to read environment file %q", path)
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return model.EnvVars{}, errors.Wrapf(err, "unable to parse environment file %q", path)
	}

	pairs := make([]model.EnvVar, 0, len(keysInOrder))
	for _, key := range keysInOrder {
		pairs = append(pairs, model.EnvVar{Key: key, Value: values[key]})
	}
	return model.NewEnvVarsFromConfig(pairs)
}
