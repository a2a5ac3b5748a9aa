package ui

import (
	"fmt"
	"log"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"bcdice-irc/core"
	"bcdice-irc/core/state"
	"bcdice-irc/internal/constants"
	"bcdice-irc/internal/dialogs"
	"bcdice-irc/internal/platform"
)

const (
	bcdiceURL    = "https://bcdice.org"
	bcdiceIRCURL = "https://github.com/bcdice/bcdice-irc"
)

// helpTab shows the help message of the active rule set and version information.
type helpTab struct {
	ac      *core.AppController
	window  fyne.Window
	title   *widget.Label
	message *widget.Label
}

// CreateHelpTab creates the content for the "Help" tab. The returned
// function re-reads the active rule set and must run on the main thread.
func CreateHelpTab(ac *core.AppController, window fyne.Window) (fyne.CanvasObject, func()) {
	h := &helpTab{
		ac:      ac,
		window:  window,
		title:   widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		message: widget.NewLabel(""),
	}
	h.message.Wrapping = fyne.TextWrapWord
	h.message.TextStyle = fyne.TextStyle{Monospace: true}

	ac.Machine.RuleSetChanged.Subscribe(func(state.RuleSetChange) { h.refresh() })
	h.refresh()

	logsButton := widget.NewButton("📁 Open Logs Folder", func() {
		h.openFolder(ac.FileService.LogDir)
	})
	presetsButton := widget.NewButton("⚙️ Open Presets Folder", func() {
		h.openFolder(filepath.Dir(ac.FileService.PresetsPath))
	})

	versionLabel := widget.NewLabel(fmt.Sprintf("📦 %s %s / BCDice %s",
		constants.AppName, constants.AppVersion, ac.Engine.Version()))
	versionLabel.Alignment = fyne.TextAlignCenter

	links := container.NewHBox(
		layout.NewSpacer(),
		h.link("🎲 BCDice", bcdiceURL),
		widget.NewLabel(" | "),
		h.link("🐙 GitHub Repository", bcdiceIRCURL),
		layout.NewSpacer(),
	)

	footer := container.NewVBox(
		widget.NewSeparator(),
		container.NewGridWithColumns(2, logsButton, presetsButton),
		versionLabel,
		links,
	)
	return container.NewBorder(h.title, footer, nil, nil, container.NewVScroll(h.message)), h.refresh
}

func (h *helpTab) refresh() {
	id := h.ac.Machine.RuleSetID()
	info, ok := h.ac.Catalog.Lookup(id)
	if !ok {
		h.title.SetText(id)
		h.message.SetText("")
		return
	}
	h.title.SetText(fmt.Sprintf("%s (%s)", info.Name, info.ID))
	h.message.SetText(info.Help)
}

func (h *helpTab) openFolder(path string) {
	if err := platform.OpenFolder(path); err != nil {
		log.Printf("helpTab: Failed to open folder %s: %v", path, err)
		dialogs.ShowError(h.window, err)
	}
}

func (h *helpTab) link(text, url string) *widget.Hyperlink {
	l := widget.NewHyperlink(text, nil)
	_ = l.SetURLFromString(url)
	l.OnTapped = func() {
		if err := platform.OpenURL(url); err != nil {
			log.Printf("helpTab: Failed to open link %s: %v", url, err)
			dialogs.ShowError(h.window, err)
		}
	}
	return l
}
