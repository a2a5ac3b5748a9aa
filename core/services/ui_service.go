package services

import (
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"

	"bcdice-irc/core/state"
	"bcdice-irc/internal/constants"
)

// UIService manages the Fyne application, its main window and tray state.
type UIService struct {
	Application fyne.App
	MainWindow  fyne.Window

	// Icon Resources
	AppIconData       fyne.Resource
	IdleIconData      fyne.Resource
	ConnectedIconData fyne.Resource
	ErrorIconData     fyne.Resource

	// Callbacks for UI logic
	UpdateTrayMenuFunc func()
	ShowConnectionFunc func()
}

// NewUIService creates the Fyne application.
func NewUIService() *UIService {
	ui := &UIService{
		AppIconData:       theme.MediaRecordIcon(),
		IdleIconData:      theme.RadioButtonIcon(),
		ConnectedIconData: theme.RadioButtonCheckedIcon(),
		ErrorIconData:     theme.ErrorIcon(),
	}

	log.Println("UIService: Initializing Fyne application...")
	ui.Application = app.NewWithID(constants.AppID)
	ui.Application.SetIcon(ui.AppIconData)

	switch constants.AppTheme {
	case "dark":
		ui.Application.Settings().SetTheme(theme.DarkTheme())
	case "light":
		ui.Application.Settings().SetTheme(theme.LightTheme())
	default:
		ui.Application.Settings().SetTheme(theme.DefaultTheme())
	}

	ui.UpdateTrayMenuFunc = func() { log.Println("UpdateTrayMenuFunc handler is not set yet.") }
	ui.ShowConnectionFunc = func() { log.Println("ShowConnectionFunc handler is not set yet.") }

	return ui
}

// UpdateTrayIcon shows the connection state in the system tray.
// It must be called on the Fyne main thread.
func (ui *UIService) UpdateTrayIcon(s *state.State, failed bool) {
	desk, ok := ui.Application.(desktop.App)
	if !ok {
		return
	}

	icon := ui.IdleIconData
	switch {
	case s == state.Connected:
		icon = ui.ConnectedIconData
	case failed && s == state.Disconnected:
		icon = ui.ErrorIconData
	}
	desk.SetSystemTrayIcon(icon)
}

// ShowMainWindow shows and focuses the main window on the connection tab.
func (ui *UIService) ShowMainWindow() {
	if ui.MainWindow == nil {
		return
	}
	ui.ShowConnectionFunc()
	ui.MainWindow.Show()
	ui.MainWindow.RequestFocus()
}

// QuitApplication quits the Fyne application.
func (ui *UIService) QuitApplication() {
	if ui.Application != nil {
		ui.Application.Quit()
	}
}
