package core

import (
	"bcdice-irc/api"
	"bcdice-irc/core/services"
	"bcdice-irc/internal/constants"
)

// controlBackend serves the control API from request goroutines by
// running every state access on the scheduler.
type controlBackend struct {
	ac *AppController
}

// ControlBackend returns the api.Backend of this controller.
func (ac *AppController) ControlBackend() api.Backend {
	return controlBackend{ac: ac}
}

// StartAPIService starts the control service on bind.
// It may be called from any goroutine before the front end starts.
func (ac *AppController) StartAPIService(bind string) (*services.APIService, error) {
	svc := services.NewAPIService(bind, ac.ControlBackend())
	if err := svc.Start(); err != nil {
		return nil, err
	}
	ac.APIService = svc
	return svc, nil
}

func (b controlBackend) call(fn func()) error {
	if b.ac.closing.Load() {
		return api.ErrUnavailable
	}
	if !b.ac.Scheduler.DoAndWait(fn) {
		return api.ErrUnavailable
	}
	return nil
}

func (b controlBackend) Version() api.VersionInfo {
	return api.VersionInfo{
		BCDice:    b.ac.Engine.Version(),
		BCDiceIRC: constants.AppVersion,
	}
}

func (b controlBackend) DiceBots() []api.DiceBot {
	infos := b.ac.Catalog.List()
	out := make([]api.DiceBot, 0, len(infos))
	for _, info := range infos {
		out = append(out, api.DiceBot{ID: info.ID, Name: info.Name, HelpMessage: info.Help})
	}
	return out
}

func (b controlBackend) State() api.StateInfo {
	var info api.StateInfo
	err := b.call(func() {
		m := b.ac.Machine
		info = api.StateInfo{
			State:   m.Current().String(),
			Status:  m.Status(),
			Title:   m.Title(),
			RuleSet: m.RuleSetID(),
		}
		if cfg, ok := m.Active(); ok {
			info.Preset = cfg.Name
		}
		if err := m.LastError(); err != nil {
			info.Error = err.Error()
		}
	})
	if err != nil {
		return api.StateInfo{State: "unavailable", Status: err.Error(), Title: constants.AppName}
	}
	return info
}

func (b controlBackend) Presets() api.PresetList {
	var list api.PresetList
	if err := b.call(func() {
		list = api.PresetList{
			Presets:      b.ac.PresetStore.Names(),
			LastSelected: b.ac.PresetStore.LastSelected(),
		}
	}); err != nil {
		return api.PresetList{Presets: []string{}, LastSelected: -1}
	}
	return list
}

func (b controlBackend) Connect(preset string) error {
	var result error
	if err := b.call(func() { result = b.ac.ConnectPreset(preset) }); err != nil {
		return err
	}
	return result
}

func (b controlBackend) Disconnect() error {
	var result error
	if err := b.call(func() { result = b.ac.Disconnect() }); err != nil {
		return err
	}
	return result
}
