package ui

import (
	"context"
	"fmt"
	"log"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"bcdice-irc/core"
	"bcdice-irc/internal/dialogs"
	"bcdice-irc/internal/platform"
)

const stunTimeout = 5 * time.Second

// CreateDiagnosticsTab creates and returns the content for the "Diagnostics" tab.
func CreateDiagnosticsTab(ac *core.AppController, window fyne.Window) fyne.CanvasObject {
	endpointEntry := widget.NewEntry()
	endpointEntry.SetPlaceHolder("irc.example.net:6667")
	if cfg, ok := ac.PresetStore.LastSelectedPreset(); ok {
		endpointEntry.SetText(cfg.Endpoint())
	}
	ac.PresetsChanged.Subscribe(func(core.PresetsChange) {
		if cfg, ok := ac.PresetStore.LastSelectedPreset(); ok {
			endpointEntry.SetText(cfg.Endpoint())
		}
	})

	tcpButton := widget.NewButton("Check IRC Server", func() {
		endpoint := endpointEntry.Text
		runCheck(window, "Server Check", func() (string, error) {
			elapsed, err := core.CheckTCP(context.Background(), endpoint, ac.Settings.ConnectTimeout)
			if err != nil {
				return "", fmt.Errorf("%s: %w", endpoint, err)
			}
			return fmt.Sprintf("%s is reachable (TCP handshake %s)", endpoint, elapsed.Round(time.Millisecond)), nil
		})
	})

	stunButton := widget.NewButton("Check STUN", func() {
		server := ac.Settings.STUNServer
		runCheck(window, "STUN Check", func() (string, error) {
			ip, err := core.CheckSTUN(server, stunTimeout)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Your External IP: %s\n(determined via [UDP]%s)", ip, server), nil
		})
	})

	openBrowserButton := func(label, url string) fyne.CanvasObject {
		return widget.NewButton(label, func() {
			if err := platform.OpenURL(url); err != nil {
				log.Printf("diagnosticsTab: Failed to open URL %s: %v", url, err)
				dialogs.ShowError(window, err)
			}
		})
	}

	return container.NewVBox(
		widget.NewLabel("Diagnostics"),
		container.NewBorder(nil, nil, nil, tcpButton, endpointEntry),
		stunButton,
		widget.NewSeparator(),
		widget.NewLabel("IP Check Services:"),
		openBrowserButton("WhatIsMyIPAddress", "https://whatismyipaddress.com"),
		openBrowserButton("SpeedTest", "https://www.speedtest.net/"),
	)
}

// runCheck shows a wait dialog while check runs in the background, then its result.
func runCheck(window fyne.Window, title string, check func() (string, error)) {
	waitDialog := dialog.NewCustomWithoutButtons(title, widget.NewLabel("Checking, please wait..."), window)
	waitDialog.Show()

	go func() {
		result, err := check()
		fyne.Do(func() {
			waitDialog.Hide()
			if err != nil {
				log.Printf("diagnosticsTab: %s failed: %v", title, err)
				dialogs.ShowError(window, err)
				return
			}
			log.Printf("diagnosticsTab: %s: %s", title, result)
			dialogs.ShowCustom(window, title, "Close", widget.NewLabel(result))
		})
	}()
}
