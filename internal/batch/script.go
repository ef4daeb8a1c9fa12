package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FindScalerScript resolves an external rescale helper through an ordered
// chain: explicit override, then alongside the running executable, then the
// base folder, then the working directory. First existing match wins.
func FindScalerScript(override, baseDir, scriptName string) (string, error) {
	if override != "" {
		if _, err := os.Stat(override); err == nil {
			return override, nil
		}
		return "", fmt.Errorf("scaler script not found at explicit path: %s", override)
	}

	var searched []string
	if exe, err := os.Executable(); err == nil {
		searched = append(searched, filepath.Join(filepath.Dir(exe), scriptName))
	}
	searched = append(searched, filepath.Join(baseDir, scriptName))
	if cwd, err := os.Getwd(); err == nil {
		searched = append(searched, filepath.Join(cwd, scriptName))
	}

	for _, candidate := range searched {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("scaler script %s not found, searched: %s",
		scriptName, strings.Join(searched, ", "))
}
