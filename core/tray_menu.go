package core

import (
	"runtime"

	"fyne.io/fyne/v2"

	"bcdice-irc/core/state"
	"bcdice-irc/internal/constants"
	"bcdice-irc/internal/debuglog"
)

// CreateTrayMenu creates the system tray menu with a preset submenu.
func (ac *AppController) CreateTrayMenu() *fyne.Menu {
	menuItems := []*fyne.MenuItem{}

	// macOS: separator at top to fix menu positioning
	if runtime.GOOS == "darwin" {
		menuItems = append(menuItems, fyne.NewMenuItemSeparator())
	}

	menuItems = append(menuItems,
		fyne.NewMenuItem("Open", func() {
			if ac.UIService != nil {
				ac.UIService.ShowMainWindow()
			}
		}),
		fyne.NewMenuItemSeparator(),
	)

	menuItems = ac.addConnectionMenuItems(menuItems)

	menuItems = append(menuItems, fyne.NewMenuItem("Quit", ac.Quit))

	return fyne.NewMenu(constants.AppName, menuItems...)
}

// addConnectionMenuItems adds the preset submenu and the Disconnect item.
func (ac *AppController) addConnectionMenuItems(menuItems []*fyne.MenuItem) []*fyne.MenuItem {
	current := ac.Machine.Current()

	connectItem := fyne.NewMenuItem("Connect", nil)
	connectItem.ChildMenu = ac.buildPresetSubmenu(current == state.Disconnected)
	connectItem.Disabled = current != state.Disconnected

	disconnectItem := fyne.NewMenuItem(state.DisconnectLabel, func() {
		if err := ac.Disconnect(); err != nil {
			debuglog.WarnLog("CreateTrayMenu: %v", err)
		}
	})
	disconnectItem.Disabled = current != state.Connected

	return append(menuItems, connectItem, disconnectItem, fyne.NewMenuItemSeparator())
}

// buildPresetSubmenu lists the presets, marking the last selected one.
func (ac *AppController) buildPresetSubmenu(enabled bool) *fyne.Menu {
	names := ac.PresetStore.Names()
	selected := ac.PresetStore.LastSelected()

	items := make([]*fyne.MenuItem, 0, len(names))
	for i, name := range names {
		presetName := name
		item := fyne.NewMenuItem(presetName, func() {
			if err := ac.ConnectPreset(presetName); err != nil {
				debuglog.ErrorLog("CreateTrayMenu: failed to connect with %s: %v", presetName, err)
				ac.ShowConnectionError(err)
			}
		})
		item.Checked = i == selected
		item.Disabled = !enabled
		items = append(items, item)
	}
	return fyne.NewMenu("Connect", items...)
}
