package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPresetNotFound  = errors.New("preset not found")
	ErrIndexOutOfRange = errors.New("preset index out of range")
	ErrOnlyOnePreset   = errors.New("cannot delete the only remaining preset")
)

// NoSelection is the LastSelected value when no preset is selected.
const NoSelection = -1

// PushAction tells whether Push added a new preset or replaced one.
type PushAction int

const (
	PresetAppended PushAction = iota
	PresetUpdated
)

func (a PushAction) String() string {
	if a == PresetUpdated {
		return "updated"
	}
	return "appended"
}

// PushResult is returned by PresetStore.Push.
type PushResult struct {
	Action PushAction
	Index  int
}

// PresetStore is an ordered collection of connection presets with unique names.
// It is not safe for concurrent use; the front end owns it.
type PresetStore struct {
	presets      []ConnectionConfig
	lastSelected int
}

// NewPresetStore creates a store holding presets in order.
// Later duplicates of a name replace the earlier entry.
func NewPresetStore(presets ...ConnectionConfig) *PresetStore {
	s := &PresetStore{lastSelected: NoSelection}
	for _, p := range presets {
		if _, err := s.Push(p); err != nil {
			continue
		}
	}
	s.lastSelected = NoSelection
	return s
}

// NewDefaultPresetStore returns a store holding only the built-in preset, selected.
func NewDefaultPresetStore() *PresetStore {
	s := NewPresetStore(DefaultConnectionConfig())
	s.lastSelected = 0
	return s
}

func (s *PresetStore) Len() int {
	return len(s.presets)
}

// Names returns preset names in order.
func (s *PresetStore) Names() []string {
	names := make([]string, len(s.presets))
	for i, p := range s.presets {
		names[i] = p.Name
	}
	return names
}

// Presets returns a copy of all presets in order.
func (s *PresetStore) Presets() []ConnectionConfig {
	out := make([]ConnectionConfig, len(s.presets))
	copy(out, s.presets)
	return out
}

// IndexOf returns the index of the named preset or -1.
func (s *PresetStore) IndexOf(name string) int {
	for i, p := range s.presets {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Contains reports whether a preset with the given name exists.
func (s *PresetStore) Contains(name string) bool {
	return s.IndexOf(name) >= 0
}

func (s *PresetStore) FetchByIndex(i int) (ConnectionConfig, error) {
	if i < 0 || i >= len(s.presets) {
		return ConnectionConfig{}, fmt.Errorf("%w: %d (size %d)", ErrIndexOutOfRange, i, len(s.presets))
	}
	return s.presets[i], nil
}

func (s *PresetStore) FetchByName(name string) (ConnectionConfig, error) {
	i := s.IndexOf(name)
	if i < 0 {
		return ConnectionConfig{}, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	return s.presets[i], nil
}

// Push appends cfg when its name is new, or overwrites the preset of the same
// name in place. The pushed preset becomes the selected one.
func (s *PresetStore) Push(cfg ConnectionConfig) (PushResult, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return PushResult{}, ErrEmptyName
	}
	if cfg.Port < MinPort || cfg.Port > MaxPort {
		return PushResult{}, fmt.Errorf("%w: %d", ErrInvalidPort, cfg.Port)
	}
	if cfg.Encoding == nil {
		cfg.Encoding = EncodingUTF8
	}

	if i := s.IndexOf(cfg.Name); i >= 0 {
		s.presets[i] = cfg
		s.lastSelected = i
		return PushResult{Action: PresetUpdated, Index: i}, nil
	}

	s.presets = append(s.presets, cfg)
	s.lastSelected = len(s.presets) - 1
	return PushResult{Action: PresetAppended, Index: s.lastSelected}, nil
}

// Delete removes the named preset and returns its former index.
// The last remaining preset is never removed. Selection is cleared on success.
func (s *PresetStore) Delete(name string) (int, error) {
	i := s.IndexOf(name)
	if i < 0 {
		return -1, fmt.Errorf("%w: %q", ErrPresetNotFound, name)
	}
	if len(s.presets) <= 1 {
		return -1, ErrOnlyOnePreset
	}

	s.presets = append(s.presets[:i], s.presets[i+1:]...)
	s.lastSelected = NoSelection
	return i, nil
}

// LastSelected returns the selected index or NoSelection.
func (s *PresetStore) LastSelected() int {
	return s.lastSelected
}

// SetLastSelected accepts NoSelection or a valid index.
func (s *PresetStore) SetLastSelected(i int) error {
	if i < NoSelection || i >= len(s.presets) {
		return fmt.Errorf("%w: %d (size %d)", ErrIndexOutOfRange, i, len(s.presets))
	}
	s.lastSelected = i
	return nil
}

// LastSelectedPreset returns the selected preset, if any.
func (s *PresetStore) LastSelectedPreset() (ConnectionConfig, bool) {
	if s.lastSelected == NoSelection {
		return ConnectionConfig{}, false
	}
	return s.presets[s.lastSelected], true
}

// CanDelete reports whether Delete(name) would succeed.
func (s *PresetStore) CanDelete(name string) bool {
	return len(s.presets) > 1 && s.Contains(name)
}

// SaveState describes the preset save control for a name being edited.
type SaveState int

const (
	SaveStateInvalidName SaveState = iota
	SaveStateNew
	SaveStateExisting
)

// Label is the save button caption.
func (st SaveState) Label() string {
	if st == SaveStateExisting {
		return "Update"
	}
	return "Save"
}

// Enabled reports whether saving is allowed.
func (st SaveState) Enabled() bool {
	return st != SaveStateInvalidName
}

// SaveAction classifies what saving under name would do.
func (s *PresetStore) SaveAction(name string) SaveState {
	switch {
	case strings.TrimSpace(name) == "":
		return SaveStateInvalidName
	case s.Contains(name):
		return SaveStateExisting
	default:
		return SaveStateNew
	}
}
