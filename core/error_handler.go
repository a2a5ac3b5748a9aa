package core

import (
	"errors"
	"fmt"
	"log"

	"bcdice-irc/internal/dialogs"
)

// ShowConnectionError reports a failed or lost connection to the user.
func (ac *AppController) ShowConnectionError(err error) {
	if err == nil {
		return
	}
	if ac.hasUI() {
		message := fmt.Sprintf("%s\n\nPlease check:\n1. Hostname and port\n2. Network connection or SOCKS5 proxy\n3. Logs for details", DescribeConnectionError(err))
		dialogs.ShowError(ac.UIService.MainWindow, errors.New(message))
	}
	log.Printf("ConnectionError: %v", err)
}

// ShowTransientStatus shows a short-lived status message, such as the
// result of saving presets.
func (ac *AppController) ShowTransientStatus(message string) {
	ac.StateService.SetTransientStatus(message, 0)
	log.Printf("Status: %s", message)
	if ac.ShowTransientStatusFunc != nil {
		ac.ShowTransientStatusFunc(message)
	}
}
