//go:build windows
// +build windows

package platform

import (
	"os/exec"

	"bcdice-irc/internal/constants"
)

// OpenFolder opens a folder in Explorer
func OpenFolder(path string) error {
	return exec.Command("explorer", path).Start()
}

// OpenURL opens a URL in the default browser
func OpenURL(url string) error {
	return exec.Command("explorer", url).Start()
}

// GetProcessNameForCheck returns the process name to check for running instances
func GetProcessNameForCheck() string {
	return constants.ProcessNameWindows
}
