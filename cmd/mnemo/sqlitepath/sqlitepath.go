// Package sqlitepath resolves the mnemo SQLite database path from flags,
// environment variables and well-known locations.
package sqlitepath

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

func ResolveSQLitePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("MNEMO_SQLITE")); envPath != "" {
		return envPath, nil
	}
	if envPath := strings.TrimSpace(os.Getenv("MNEMO_DB")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range sqliteCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", errors.New("could not find mnemo SQLite database; pass --sqlite")
}

func sqliteCandidates() []string {
	candidates := []string{
		"mnemo.db",
		"mnemo.sqlite",
		filepath.Join(".mnemo", "mnemo.db"),
		filepath.Join(".mnemo", "mnemo.sqlite"),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append([]string{
			filepath.Join(home, ".mnemo", "mnemo.db"),
			filepath.Join(home, ".mnemo", "mnemo.sqlite"),
		}, candidates...)
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append([]string{
			filepath.Join(xdgHome, "mnemo", "mnemo.db"),
			filepath.Join(xdgHome, "mnemo", "mnemo.sqlite"),
		}, candidates...)
	}

	return candidates
}
