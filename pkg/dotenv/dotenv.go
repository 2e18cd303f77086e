// Package dotenv loads environment files into the process environment.
package dotenv

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/joho/godotenv"
)

// Load reads each file in order and sets its variables. Existing variables
// are kept unless overwrite is set; with overwrite, later files win over
// earlier ones.
func Load(paths []string, overwrite bool) error {
	for _, path := range paths {
		vars, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("failed to read env file %s: %w", path, err)
		}

		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		set := 0
		for _, k := range keys {
			if _, exists := os.LookupEnv(k); exists && !overwrite {
				slog.Debug("keeping existing environment variable", "name", k, "file", path)
				continue
			}
			if err := os.Setenv(k, vars[k]); err != nil {
				return fmt.Errorf("failed to set %s from %s: %w", k, path, err)
			}
			set++
		}
		slog.Debug("loaded env file", "path", path, "variables", len(vars), "set", set)
	}
	return nil
}
