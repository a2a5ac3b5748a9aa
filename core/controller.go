// Package core ties the connection state machine, the mediator and the
// preset store to whichever front end drives the application.
package core

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"bcdice-irc/core/config"
	"bcdice-irc/core/dicebot"
	"bcdice-irc/core/ircbot"
	"bcdice-irc/core/mediator"
	"bcdice-irc/core/services"
	"bcdice-irc/core/state"
	"bcdice-irc/internal/debuglog"
	"bcdice-irc/internal/observer"
	"bcdice-irc/internal/settings"
)

// PresetsChange is published after the preset list or selection changed.
type PresetsChange struct {
	Names        []string
	LastSelected int
}

// Options customize NewAppController. Zero values select the defaults.
type Options struct {
	// ClientFactory builds network clients; the IRC bot by default.
	ClientFactory mediator.ClientFactory
	// Engine evaluates dice commands for the default client factory.
	Engine dicebot.Engine
}

// AppController - the main structure encapsulating all application state and logic.
//
// Except where noted, methods must be called on the Scheduler's execution context.
type AppController struct {
	Settings settings.Settings

	// --- Services ---
	FileService  *services.FileService
	StateService *services.StateService
	UIService    *services.UIService  // nil in headless mode
	APIService   *services.APIService // nil unless the control service runs

	// --- Connection core ---
	PresetStore *config.PresetStore
	Catalog     *dicebot.Catalog
	Engine      dicebot.Engine
	Machine     *state.Machine
	Mediator    *mediator.Mediator
	Scheduler   Scheduler

	PresetsChanged observer.Subject[PresetsChange]

	// --- Callbacks for UI logic ---
	ShowTransientStatusFunc func(message string)
	QuitFunc                func()

	closing      atomic.Bool
	shutdownOnce sync.Once
}

var _ mediator.FrontEnd = (*AppController)(nil)

// NewAppController loads the catalog and presets and starts the mediator.
func NewAppController(s settings.Settings, sched Scheduler, opts Options) (*AppController, error) {
	if sched == nil {
		return nil, errors.New("NewAppController: scheduler is required")
	}
	fs, err := services.NewFileService(s)
	if err != nil {
		return nil, err
	}

	ac := &AppController{
		Settings:     s,
		FileService:  fs,
		StateService: services.NewStateService(),
		Scheduler:    sched,
	}

	ac.Catalog = loadCatalog(s.CatalogPath)
	ac.Engine = opts.Engine
	if ac.Engine == nil {
		ac.Engine = dicebot.NullEngine{EngineVersion: ac.Catalog.EngineVersion()}
	}

	store, warnings := config.LoadPresetFile(s.PresetsPath)
	for _, w := range warnings {
		debuglog.WarnLog("NewAppController: preset file %s: %v", s.PresetsPath, w)
	}
	ac.PresetStore = store

	ruleSet := dicebot.GeneralID
	if p, ok := store.LastSelectedPreset(); ok {
		if info, err := ac.Catalog.Resolve(p.RuleSetID); err == nil {
			ruleSet = info.ID
		}
	}
	ac.Machine = state.NewMachine(ruleSet, ac.Catalog.NameOf)
	ac.Machine.StateChanged.Subscribe(ac.onStateChanged)

	factory := opts.ClientFactory
	if factory == nil {
		factory = ircbot.NewFactory(ircbot.Options{
			ConnectTimeout: s.ConnectTimeout,
			Proxy:          s.SOCKS5Proxy,
			Catalog:        ac.Catalog,
			Engine:         ac.Engine,
			Master:         ircbot.OnlyMaster(s.MasterNick),
		})
	}
	ac.Mediator = mediator.New(ac, factory)

	ac.ShowTransientStatusFunc = func(message string) {
		log.Printf("ShowTransientStatusFunc handler is not set yet. Message: %s", message)
	}
	ac.QuitFunc = func() { log.Println("QuitFunc handler is not set yet.") }

	ac.Mediator.Start()
	log.Printf("NewAppController: %d preset(s), %d rule set(s), engine %s",
		store.Len(), ac.Catalog.Len(), ac.Engine.Version())
	return ac, nil
}

func loadCatalog(path string) *dicebot.Catalog {
	if path == "" {
		return dicebot.DefaultCatalog()
	}
	c, err := dicebot.LoadCatalogFile(path)
	if err != nil {
		debuglog.WarnLog("loadCatalog: %v, using the built-in catalog", err)
		return dicebot.DefaultCatalog()
	}
	return c
}

func (ac *AppController) hasUI() bool {
	return ac.UIService != nil && ac.UIService.MainWindow != nil
}

// Connect starts a connection with cfg.
func (ac *AppController) Connect(cfg config.ConnectionConfig) error {
	if ac.closing.Load() {
		return errors.New("Connect: application is shutting down")
	}
	if info, err := ac.Catalog.Resolve(cfg.RuleSetID); err == nil {
		cfg.RuleSetID = info.ID
	} else {
		debuglog.WarnLog("Connect: %v, using %s", err, dicebot.GeneralID)
		cfg.RuleSetID = dicebot.GeneralID
	}
	snapshot, err := ac.Machine.RequestConnect(cfg)
	if err != nil {
		log.Printf("Connect: %v", err)
		return err
	}
	if !ac.Mediator.RequestConnect(snapshot) {
		err := errors.New("network client could not be started")
		_ = ac.Machine.ConnectFailed(err)
		return err
	}
	debuglog.InfoLog("Connect: %s as %s, rule set %s", snapshot.Endpoint(), snapshot.Nick, snapshot.RuleSetID)
	return nil
}

// ConnectPreset selects the named preset and connects with it.
func (ac *AppController) ConnectPreset(name string) error {
	cfg, err := ac.PresetStore.FetchByName(name)
	if err != nil {
		return err
	}
	if ac.Machine.Current() == state.Disconnected {
		ac.selectIndex(ac.PresetStore.IndexOf(name))
	}
	return ac.Connect(cfg)
}

// Disconnect asks the connected client to quit.
func (ac *AppController) Disconnect() error {
	if err := ac.Machine.RequestDisconnect(); err != nil {
		return err
	}
	if !ac.Mediator.RequestDisconnect() {
		log.Println("Disconnect: no network client to stop, waiting for its final report")
	}
	return nil
}

// SavePreset stores cfg under its name and writes the preset file.
// A failed write is reported as a transient status; the preset stays in memory.
func (ac *AppController) SavePreset(cfg config.ConnectionConfig) (config.PushResult, error) {
	res, err := ac.PresetStore.Push(cfg)
	if err != nil {
		return res, err
	}
	if ac.persistPresets() {
		ac.ShowTransientStatus(fmt.Sprintf("Preset %q saved", cfg.Name))
	}
	ac.publishPresets()
	return res, nil
}

// DeletePreset removes the named preset and writes the preset file.
func (ac *AppController) DeletePreset(name string) (int, error) {
	i, err := ac.PresetStore.Delete(name)
	if err != nil {
		return i, err
	}
	if ac.persistPresets() {
		ac.ShowTransientStatus(fmt.Sprintf("Preset %q deleted", name))
	}
	ac.publishPresets()
	return i, nil
}

// SelectPreset marks preset i as selected and returns it. -1 clears the selection.
func (ac *AppController) SelectPreset(i int) (config.ConnectionConfig, error) {
	if err := ac.PresetStore.SetLastSelected(i); err != nil {
		return config.ConnectionConfig{}, err
	}
	ac.persistPresets()
	ac.publishPresets()

	if i == config.NoSelection {
		return config.ConnectionConfig{}, nil
	}
	cfg, err := ac.PresetStore.FetchByIndex(i)
	if err != nil {
		return cfg, err
	}
	if ac.Machine.Current() == state.Disconnected {
		if info, err := ac.Catalog.Resolve(cfg.RuleSetID); err == nil {
			ac.Machine.SelectRuleSet(info.ID)
		}
	}
	return cfg, nil
}

func (ac *AppController) selectIndex(i int) {
	if i == ac.PresetStore.LastSelected() {
		return
	}
	if err := ac.PresetStore.SetLastSelected(i); err != nil {
		log.Printf("selectIndex: %v", err)
		return
	}
	ac.persistPresets()
	ac.publishPresets()
}

// SelectRuleSet changes the rule set chosen in the form. It is only allowed
// while disconnected; a connected bot changes it through its own commands.
func (ac *AppController) SelectRuleSet(id string) error {
	info, err := ac.Catalog.Resolve(id)
	if err != nil {
		return err
	}
	if ac.Machine.Current() != state.Disconnected {
		return fmt.Errorf("%w: rule set selection in state %s", state.ErrInvalidTransition, ac.Machine.Current())
	}
	ac.Machine.SelectRuleSet(info.ID)
	return nil
}

// persistPresets writes the preset file and reports whether it succeeded.
func (ac *AppController) persistPresets() bool {
	if err := config.SavePresetFile(ac.Settings.PresetsPath, ac.PresetStore); err != nil {
		log.Printf("persistPresets: %v", err)
		ac.ShowTransientStatus(fmt.Sprintf("Could not save presets: %v", err))
		return false
	}
	return true
}

func (ac *AppController) publishPresets() {
	debuglog.DebugLog("publishPresets: %d preset(s), selected %d", ac.PresetStore.Len(), ac.PresetStore.LastSelected())
	ac.PresetsChanged.Publish(PresetsChange{
		Names:        ac.PresetStore.Names(),
		LastSelected: ac.PresetStore.LastSelected(),
	})
}

// Shutdown stops any connection and the mediator. Later calls do nothing.
func (ac *AppController) Shutdown() {
	ac.shutdownOnce.Do(func() {
		ac.closing.Store(true)
		if ac.Machine.RequestQuit() == state.EffectShutdown {
			log.Println("Shutdown: stopping mediator...")
		}
		ac.Mediator.Shutdown()
		log.Println("Shutdown: done")
	})
}

// Quit shuts down the core and asks the front end to exit.
func (ac *AppController) Quit() {
	ac.Shutdown()
	ac.QuitFunc()
}

func (ac *AppController) onStateChanged(c state.Change) {
	if c.Effect == state.EffectShowError {
		ac.ShowConnectionError(c.Err)
	}
	if ac.UIService != nil {
		ac.UIService.UpdateTrayIcon(c.To, c.Err != nil)
		ac.UIService.UpdateTrayMenuFunc()
	}
}

// --- mediator.FrontEnd ---

// Do implements mediator.FrontEnd. It is safe for concurrent use.
func (ac *AppController) Do(fn func()) {
	ac.Scheduler.Do(fn)
}

// ClientConnected implements mediator.FrontEnd.
func (ac *AppController) ClientConnected() {
	if err := ac.Machine.ConnectSucceeded(); err != nil {
		log.Printf("ClientConnected: %v", err)
	}
}

// ClientStopped implements mediator.FrontEnd.
func (ac *AppController) ClientStopped() {
	if err := ac.Machine.ClientStopped(); err != nil {
		log.Printf("ClientStopped: %v", err)
	}
}

// ConnectionFailed implements mediator.FrontEnd.
func (ac *AppController) ConnectionFailed(err error) {
	if ferr := ac.Machine.ConnectFailed(err); ferr != nil {
		log.Printf("ConnectionFailed: %v (cause: %v)", ferr, err)
	}
}

// RuleSetChanged implements mediator.FrontEnd.
func (ac *AppController) RuleSetChanged(id string) {
	ac.Machine.ChangeRuleSet(id)
}
