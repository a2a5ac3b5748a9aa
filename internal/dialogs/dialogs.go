// Package dialogs shows fyne dialogs from any goroutine.
package dialogs

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
)

// ShowError shows an error dialog. It does nothing without a window.
func ShowError(window fyne.Window, err error) {
	if window == nil || err == nil {
		return
	}
	fyne.Do(func() {
		dialog.ShowError(err, window)
	})
}

// ShowInfo shows an information dialog to the user
func ShowInfo(window fyne.Window, title, message string) {
	if window == nil {
		return
	}
	fyne.Do(func() {
		dialog.ShowInformation(title, message, window)
	})
}

// ShowCustom shows a dialog with custom content and a single dismiss button.
func ShowCustom(window fyne.Window, title, dismiss string, content fyne.CanvasObject) {
	if window == nil {
		return
	}
	fyne.Do(func() {
		dialog.ShowCustom(title, dismiss, content, window)
	})
}

// ShowConfirm asks a yes/no question; onConfirm receives the answer.
func ShowConfirm(window fyne.Window, title, message string, onConfirm func(bool)) {
	if window == nil {
		return
	}
	fyne.Do(func() {
		dialog.ShowConfirm(title, message, onConfirm, window)
	})
}
