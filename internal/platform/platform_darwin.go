//go:build darwin
// +build darwin

package platform

import (
	"os/exec"

	"bcdice-irc/internal/constants"
)

// OpenFolder opens a folder in Finder
func OpenFolder(path string) error {
	return exec.Command("open", path).Start()
}

// OpenURL opens a URL in the default browser
func OpenURL(url string) error {
	return exec.Command("open", url).Start()
}

// GetProcessNameForCheck returns the process name to check for running instances
func GetProcessNameForCheck() string {
	return constants.ProcessNameUnix
}
