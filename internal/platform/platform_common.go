package platform

import (
	"fmt"
	"os"
)

// EnsureDirectories creates the given directories if they don't exist
func EnsureDirectories(dirs ...string) error {
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("platform: create %s: %w", dir, err)
		}
	}
	return nil
}
