package ui

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"bcdice-irc/core"
	"bcdice-irc/core/config"
	"bcdice-irc/core/services"
	"bcdice-irc/core/state"
	"bcdice-irc/internal/dialogs"
)

// connectionTab is the connection form: preset management, connection
// fields, the rule-set selector and the Connect/Disconnect button.
type connectionTab struct {
	ac     *core.AppController
	window fyne.Window

	presetSelect   *widget.Select
	nameEntry      *widget.Entry
	saveButton     *widget.Button
	deleteButton   *widget.Button
	hostEntry      *widget.Entry
	portEntry      *widget.Entry
	passwordCheck  *widget.Check
	passwordEntry  *widget.Entry
	encodingSelect *widget.Select
	nickEntry      *widget.Entry
	channelEntry   *widget.Entry
	quitEntry      *widget.Entry
	ruleSetSelect  *widget.Select

	connectButton *widget.Button
	statusLabel   *widget.Label
	banner        *connectionErrorBanner

	// shown is the state the widgets currently reflect.
	shown *state.State
	// filling suppresses change handlers while the form is updated programmatically.
	filling bool
}

// CreateConnectionTab creates and returns the content for the "Connection" tab.
func CreateConnectionTab(ac *core.AppController, window fyne.Window) fyne.CanvasObject {
	t, content := newConnectionTab(ac, window)
	ac.ShowTransientStatusFunc = t.showTransientStatus
	return content
}

func newConnectionTab(ac *core.AppController, window fyne.Window) (*connectionTab, fyne.CanvasObject) {
	t := &connectionTab{ac: ac, window: window, shown: ac.Machine.Current()}
	content := t.build()

	if cfg, ok := ac.PresetStore.LastSelectedPreset(); ok {
		t.fillForm(cfg)
	} else {
		t.fillForm(config.DefaultConnectionConfig())
	}
	t.onPresetsChanged(core.PresetsChange{
		Names:        ac.PresetStore.Names(),
		LastSelected: ac.PresetStore.LastSelected(),
	})
	t.applyState(ac.Machine.Current())
	t.refreshStatus()

	ac.Machine.StateChanged.Subscribe(t.onStateChanged)
	ac.Machine.RuleSetChanged.Subscribe(t.onRuleSetChanged)
	ac.PresetsChanged.Subscribe(t.onPresetsChanged)
	return t, content
}

func (t *connectionTab) build() fyne.CanvasObject {
	t.presetSelect = widget.NewSelect(nil, t.onPresetSelected)
	t.presetSelect.PlaceHolder = "(no preset)"

	t.nameEntry = widget.NewEntry()
	t.nameEntry.SetPlaceHolder("Preset name")
	t.nameEntry.OnChanged = func(string) { t.refreshPresetButtons() }

	t.saveButton = widget.NewButton("Save", t.onSave)
	t.deleteButton = widget.NewButton("Delete", t.onDelete)

	t.hostEntry = widget.NewEntry()
	t.hostEntry.SetPlaceHolder("irc.example.net")
	t.portEntry = widget.NewEntry()
	t.portEntry.SetPlaceHolder("6667")

	t.passwordEntry = widget.NewPasswordEntry()
	t.passwordCheck = widget.NewCheck("Use password", func(checked bool) {
		setEnabled(t.passwordEntry, checked && !t.passwordCheck.Disabled())
	})

	labels := make([]string, 0, len(config.Encodings()))
	for _, e := range config.Encodings() {
		labels = append(labels, e.Label())
	}
	t.encodingSelect = widget.NewSelect(labels, nil)

	t.nickEntry = widget.NewEntry()
	t.channelEntry = widget.NewEntry()
	t.channelEntry.SetPlaceHolder("#channel")
	t.quitEntry = widget.NewEntry()

	t.ruleSetSelect = widget.NewSelect(t.ac.Catalog.Names(), t.onRuleSetSelected)

	t.connectButton = widget.NewButton(state.ConnectLabel, t.onConnectTapped)
	t.connectButton.Importance = widget.HighImportance

	t.statusLabel = widget.NewLabel("")
	t.statusLabel.Wrapping = fyne.TextWrapWord

	t.banner = newConnectionErrorBanner()

	presetRow := container.NewBorder(nil, nil, nil,
		container.NewHBox(t.saveButton, t.deleteButton), t.nameEntry)

	form := widget.NewForm(
		widget.NewFormItem("Preset", t.presetSelect),
		widget.NewFormItem("Name", presetRow),
		widget.NewFormItem("Hostname", t.hostEntry),
		widget.NewFormItem("Port", t.portEntry),
		widget.NewFormItem("", t.passwordCheck),
		widget.NewFormItem("Password", t.passwordEntry),
		widget.NewFormItem("Encoding", t.encodingSelect),
		widget.NewFormItem("Nick", t.nickEntry),
		widget.NewFormItem("Channel", t.channelEntry),
		widget.NewFormItem("Quit message", t.quitEntry),
		widget.NewFormItem("Game system", t.ruleSetSelect),
	)

	return container.NewBorder(
		t.banner.Object(),
		container.NewVBox(widget.NewSeparator(), t.connectButton, t.statusLabel),
		nil, nil,
		container.NewVScroll(form),
	)
}

// fillForm shows cfg in the input fields.
func (t *connectionTab) fillForm(cfg config.ConnectionConfig) {
	t.filling = true
	defer func() { t.filling = false }()

	t.nameEntry.SetText(cfg.Name)
	t.hostEntry.SetText(cfg.Hostname)
	t.portEntry.SetText(strconv.Itoa(cfg.Port))
	t.passwordEntry.SetText(cfg.Password)
	t.passwordCheck.SetChecked(cfg.HasPassword())

	enc := cfg.Encoding
	if enc == nil {
		enc = config.EncodingUTF8
	}
	t.encodingSelect.SetSelected(enc.Label())

	t.nickEntry.SetText(cfg.Nick)
	t.channelEntry.SetText(cfg.Channel)
	t.quitEntry.SetText(cfg.QuitMessage)

	if info, err := t.ac.Catalog.Resolve(cfg.RuleSetID); err == nil {
		t.ruleSetSelect.SetSelected(info.Name)
	} else {
		t.ruleSetSelect.SetSelectedIndex(0)
	}
	t.refreshPresetButtons()
}

// readForm builds a configuration from the input fields.
func (t *connectionTab) readForm() (config.ConnectionConfig, error) {
	port, err := config.ParsePort(t.portEntry.Text)
	if err != nil {
		return config.ConnectionConfig{}, err
	}
	enc, err := config.EncodingByLabel(t.encodingSelect.Selected)
	if err != nil {
		return config.ConnectionConfig{}, err
	}

	cfg := config.ConnectionConfig{
		Name:        t.nameEntry.Text,
		Hostname:    t.hostEntry.Text,
		Port:        port,
		Encoding:    enc,
		Nick:        t.nickEntry.Text,
		Channel:     t.channelEntry.Text,
		QuitMessage: t.quitEntry.Text,
		RuleSetID:   t.selectedRuleSetID(),
	}
	if t.passwordCheck.Checked {
		cfg.Password = t.passwordEntry.Text
	}
	return cfg, nil
}

func (t *connectionTab) selectedRuleSetID() string {
	i := t.ruleSetSelect.SelectedIndex()
	list := t.ac.Catalog.List()
	if i < 0 || i >= len(list) {
		return config.DefaultRuleSetID
	}
	return list[i].ID
}

func (t *connectionTab) refreshPresetButtons() {
	action := t.ac.PresetStore.SaveAction(t.nameEntry.Text)
	t.saveButton.SetText(action.Label())

	formEnabled := t.shown.FieldEnabled(state.FieldPreset)
	setEnabled(t.saveButton, formEnabled && action.Enabled())
	setEnabled(t.deleteButton, formEnabled && t.ac.PresetStore.CanDelete(t.nameEntry.Text))
}

// applyState enables the inputs and the button the way s prescribes.
func (t *connectionTab) applyState(s *state.State) {
	t.shown = s
	fields := map[state.Field][]fyne.Disableable{
		state.FieldPreset:      {t.presetSelect, t.nameEntry},
		state.FieldHostname:    {t.hostEntry},
		state.FieldPort:        {t.portEntry},
		state.FieldPassword:    {t.passwordCheck},
		state.FieldEncoding:    {t.encodingSelect},
		state.FieldNick:        {t.nickEntry},
		state.FieldChannel:     {t.channelEntry},
		state.FieldQuitMessage: {t.quitEntry},
		state.FieldRuleSet:     {t.ruleSetSelect},
	}
	for field, widgets := range fields {
		for _, w := range widgets {
			setEnabled(w, s.FieldEnabled(field))
		}
	}
	setEnabled(t.passwordEntry, s.FieldEnabled(state.FieldPassword) && t.passwordCheck.Checked)

	t.connectButton.SetText(s.ButtonLabel)
	setEnabled(t.connectButton, s.ButtonEnabled)
	t.refreshPresetButtons()
}

func setEnabled(w fyne.Disableable, enabled bool) {
	if enabled {
		w.Enable()
	} else {
		w.Disable()
	}
}

// refreshStatus shows the transient message if one is live, else the connection status.
func (t *connectionTab) refreshStatus() {
	if msg := t.ac.StateService.TransientStatus(); msg != "" {
		t.statusLabel.SetText(msg)
	} else {
		t.statusLabel.SetText(t.ac.Machine.Status())
	}
	t.window.SetTitle(t.ac.Machine.Title())
}

func (t *connectionTab) showTransientStatus(message string) {
	t.statusLabel.SetText(message)
	time.AfterFunc(services.DefaultStatusTTL, func() {
		fyne.Do(t.refreshStatus)
	})
}

// --- event handlers ---

func (t *connectionTab) onStateChanged(c state.Change) {
	t.applyState(c.To)
	t.refreshStatus()

	switch {
	case c.Err != nil:
		t.banner.Report(c.Err)
	case c.To == state.Connecting:
		t.banner.Clear()
	}
}

func (t *connectionTab) onRuleSetChanged(c state.RuleSetChange) {
	t.filling = true
	t.ruleSetSelect.SetSelected(c.Name)
	t.filling = false
	if c.Refresh {
		t.refreshStatus()
	}
}

func (t *connectionTab) onPresetsChanged(c core.PresetsChange) {
	t.filling = true
	defer func() { t.filling = false }()

	t.presetSelect.Options = c.Names
	if c.LastSelected >= 0 && c.LastSelected < len(c.Names) {
		t.presetSelect.SetSelectedIndex(c.LastSelected)
	} else {
		t.presetSelect.ClearSelected()
	}
	t.presetSelect.Refresh()
	t.refreshPresetButtons()
}

func (t *connectionTab) onPresetSelected(name string) {
	if t.filling {
		return
	}
	i := t.ac.PresetStore.IndexOf(name)
	if i < 0 {
		return
	}
	cfg, err := t.ac.SelectPreset(i)
	if err != nil {
		log.Printf("connectionTab: select preset %q: %v", name, err)
		dialogs.ShowError(t.window, err)
		return
	}
	t.fillForm(cfg)
}

func (t *connectionTab) onRuleSetSelected(string) {
	if t.filling {
		return
	}
	if err := t.ac.SelectRuleSet(t.selectedRuleSetID()); err != nil {
		log.Printf("connectionTab: select rule set: %v", err)
	}
}

func (t *connectionTab) onSave() {
	cfg, err := t.readForm()
	if err != nil {
		dialogs.ShowError(t.window, err)
		return
	}
	res, err := t.ac.SavePreset(cfg)
	if err != nil {
		dialogs.ShowError(t.window, err)
		return
	}
	log.Printf("connectionTab: preset %q %s at %d", cfg.Name, res.Action, res.Index)
}

func (t *connectionTab) onDelete() {
	name := t.nameEntry.Text
	dialogs.ShowConfirm(t.window, "Delete preset", fmt.Sprintf("Delete preset %q?", name), func(ok bool) {
		if !ok {
			return
		}
		if _, err := t.ac.DeletePreset(name); err != nil {
			dialogs.ShowError(t.window, err)
			return
		}
		if cfg, ok := t.ac.PresetStore.LastSelectedPreset(); ok {
			t.fillForm(cfg)
		}
	})
}

func (t *connectionTab) onConnectTapped() {
	if t.ac.Machine.Current() != state.Disconnected {
		if err := t.ac.Disconnect(); err != nil {
			log.Printf("connectionTab: disconnect: %v", err)
		}
		return
	}

	cfg, err := t.readForm()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		dialogs.ShowError(t.window, err)
		return
	}
	if err := t.ac.Connect(cfg); err != nil && !errors.Is(err, state.ErrInvalidTransition) {
		dialogs.ShowError(t.window, err)
	}
}
