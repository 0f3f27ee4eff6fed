package cli

import (
	"fmt"
	"os"
	"path/filepath"
)

// ResolveOutDir creates dirPath if needed and returns its absolute path.
func ResolveOutDir(dirPath string) (string, error) {
	if dirPath == "" {
		return "", fmt.Errorf("output directory is empty")
	}
	info, err := os.Stat(dirPath)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dirPath, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("access output directory: %w", err)
	case !info.IsDir():
		return "", fmt.Errorf("%s is not a directory", dirPath)
	}

	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return dirPath, nil
	}
	return absPath, nil
}
