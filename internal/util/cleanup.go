package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// CleanupFolder deletes the files directly inside folder and then folder
// itself. Nested directories are not descended into, so a folder holding
// one makes the final remove fail.
func CleanupFolder(folder string) error {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return fmt.Errorf("cleanup %s: %w", folder, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		full := filepath.Join(folder, e.Name())
		if err := os.Remove(full); err != nil {
			return fmt.Errorf("cleanup %s: %w", full, err)
		}
	}

	if err := os.Remove(folder); err != nil {
		return fmt.Errorf("cleanup %s: %w", folder, err)
	}

	return nil
}
