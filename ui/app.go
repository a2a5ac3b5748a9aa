// Package ui builds the main window of the desktop front end.
package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"

	"bcdice-irc/core"
)

// App is the tabbed content of the main window.
type App struct {
	tabs       *container.AppTabs
	connection *container.TabItem
}

// NewApp builds the Connection, Help and Diagnostics tabs. Connection is
// selected on startup.
func NewApp(window fyne.Window, controller *core.AppController) *App {
	helpContent, refreshHelp := CreateHelpTab(controller, window)

	app := &App{
		connection: container.NewTabItemWithIcon("Connection", theme.HomeIcon(),
			CreateConnectionTab(controller, window)),
	}
	help := container.NewTabItemWithIcon("Help", theme.HelpIcon(), helpContent)
	app.tabs = container.NewAppTabs(
		app.connection,
		help,
		container.NewTabItemWithIcon("Diagnostics", theme.InfoIcon(),
			CreateDiagnosticsTab(controller, window)),
	)

	// The form can change the rule set without a RuleSetChanged event.
	app.tabs.OnSelected = func(item *container.TabItem) {
		if item == help {
			refreshHelp()
		}
	}
	return app
}

func (a *App) Content() fyne.CanvasObject {
	return a.tabs
}

// ShowConnection brings the connection form to the front.
func (a *App) ShowConnection() {
	a.tabs.Select(a.connection)
}
