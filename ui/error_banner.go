package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"bcdice-irc/core"
)

// connectionErrorBanner shows why the last connection attempt failed.
// It is hidden until Report is called and can be dismissed by the user.
type connectionErrorBanner struct {
	box     *fyne.Container
	message *widget.Label
}

func newConnectionErrorBanner() *connectionErrorBanner {
	b := &connectionErrorBanner{
		message: widget.NewLabel(""),
	}
	b.message.Wrapping = fyne.TextWrapWord
	b.message.Importance = widget.DangerImportance

	dismiss := widget.NewButtonWithIcon("", theme.CancelIcon(), b.Clear)
	dismiss.Importance = widget.LowImportance

	b.box = container.NewBorder(nil, widget.NewSeparator(),
		widget.NewIcon(theme.ErrorIcon()), dismiss, b.message)
	b.box.Hide()
	return b
}

func (b *connectionErrorBanner) Object() fyne.CanvasObject {
	return b.box
}

// Report shows err in the banner. A nil error clears it.
func (b *connectionErrorBanner) Report(err error) {
	if err == nil {
		b.Clear()
		return
	}
	b.message.SetText(core.DescribeConnectionError(err))
	b.box.Show()
}

func (b *connectionErrorBanner) Clear() {
	b.message.SetText("")
	b.box.Hide()
}

func (b *connectionErrorBanner) Visible() bool {
	return b.box.Visible()
}
