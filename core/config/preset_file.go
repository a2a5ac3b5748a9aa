package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// presetFile is the on-disk YAML layout.
type presetFile struct {
	IndexLastSelected *int          `yaml:"index_last_selected"`
	Presets           []presetEntry `yaml:"presets"`
}

// rawPresetFile defers decoding of each field so a bad entry only costs itself.
type rawPresetFile struct {
	IndexLastSelected yaml.Node   `yaml:"index_last_selected"`
	Presets           []yaml.Node `yaml:"presets"`
}

type presetEntry struct {
	Name         string  `yaml:"name"`
	Hostname     string  `yaml:"hostname"`
	Port         int     `yaml:"port"`
	Password     *string `yaml:"password"`
	Encoding     string  `yaml:"encoding"`
	Nick         string  `yaml:"nick"`
	Channel      string  `yaml:"channel"`
	QuitMessage  string  `yaml:"quit_message"`
	GameSystemID string  `yaml:"game_system_id"`
}

func entryFromConfig(c ConnectionConfig) presetEntry {
	e := presetEntry{
		Name:         c.Name,
		Hostname:     c.Hostname,
		Port:         c.Port,
		Encoding:     EncodingUTF8.Name,
		Nick:         c.Nick,
		Channel:      c.Channel,
		QuitMessage:  c.QuitMessage,
		GameSystemID: c.RuleSetID,
	}
	if c.Encoding != nil {
		e.Encoding = c.Encoding.Name
	}
	if c.HasPassword() {
		pw := c.Password
		e.Password = &pw
	}
	return e
}

func (e presetEntry) toConfig() (ConnectionConfig, error) {
	if e.Name == "" {
		return ConnectionConfig{}, ErrEmptyName
	}
	if e.Port < MinPort || e.Port > MaxPort {
		return ConnectionConfig{}, fmt.Errorf("%w: %d", ErrInvalidPort, e.Port)
	}
	enc, err := EncodingByName(e.Encoding)
	if err != nil {
		return ConnectionConfig{}, err
	}

	c := ConnectionConfig{
		Name:        e.Name,
		Hostname:    e.Hostname,
		Port:        e.Port,
		Encoding:    enc,
		Nick:        e.Nick,
		Channel:     e.Channel,
		QuitMessage: e.QuitMessage,
		RuleSetID:   e.GameSystemID,
	}
	if e.Password != nil {
		c.Password = *e.Password
	}
	if c.RuleSetID == "" {
		c.RuleSetID = DefaultRuleSetID
	}
	return c, nil
}

// MarshalPresets renders the store in the preset file format.
func MarshalPresets(s *PresetStore) ([]byte, error) {
	doc := presetFile{Presets: make([]presetEntry, 0, s.Len())}
	if s.lastSelected != NoSelection {
		idx := s.lastSelected
		doc.IndexLastSelected = &idx
	}
	for _, p := range s.presets {
		doc.Presets = append(doc.Presets, entryFromConfig(p))
	}
	return yaml.Marshal(&doc)
}

// UnmarshalPresets builds a store from preset file data.
// Invalid entries are skipped and reported in warnings; an empty result falls
// back to the built-in default preset. An out-of-range selection becomes 0.
// err is non-nil only when data is not a YAML document of the expected shape,
// in which case the default store is still returned.
func UnmarshalPresets(data []byte) (store *PresetStore, warnings []error, err error) {
	var doc rawPresetFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return NewDefaultPresetStore(), nil, fmt.Errorf("parse preset file: %w", err)
	}

	store = NewPresetStore()
	for i, node := range doc.Presets {
		var e presetEntry
		if err := node.Decode(&e); err != nil {
			warnings = append(warnings, fmt.Errorf("preset #%d skipped: %w", i, err))
			continue
		}
		c, err := e.toConfig()
		if err != nil {
			warnings = append(warnings, fmt.Errorf("preset #%d (%q) skipped: %w", i, e.Name, err))
			continue
		}
		if store.Contains(c.Name) {
			warnings = append(warnings, fmt.Errorf("preset #%d (%q) skipped: duplicate name", i, e.Name))
			continue
		}
		if _, err := store.Push(c); err != nil {
			warnings = append(warnings, fmt.Errorf("preset #%d (%q) skipped: %w", i, e.Name, err))
		}
	}

	if store.Len() == 0 {
		return NewDefaultPresetStore(), warnings, nil
	}

	store.lastSelected = NoSelection
	if sel := doc.IndexLastSelected; sel.Kind != 0 && sel.Tag != "!!null" {
		var idx int
		err := sel.Decode(&idx)
		if err == nil {
			err = store.SetLastSelected(idx)
		}
		if err != nil {
			warnings = append(warnings, fmt.Errorf("index_last_selected: %w", err))
			store.lastSelected = 0
		}
	}
	return store, warnings, nil
}

// LoadPresetFile reads the preset file at path. It never fails: a missing,
// empty, or unreadable file yields the built-in default store, and every
// problem is logged and returned as a warning.
func LoadPresetFile(path string) (*PresetStore, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("LoadPresetFile: %s does not exist, using default preset", path)
			return NewDefaultPresetStore(), nil
		}
		log.Printf("LoadPresetFile: failed to read %s: %v", path, err)
		return NewDefaultPresetStore(), []error{err}
	}

	store, warnings, err := UnmarshalPresets(data)
	if err != nil {
		warnings = append(warnings, err)
	}
	for _, w := range warnings {
		log.Printf("LoadPresetFile: %s: %v", path, w)
	}
	log.Printf("LoadPresetFile: loaded %d preset(s) from %s", store.Len(), path)
	return store, warnings
}

// SavePresetFile writes the whole store to path, replacing the file atomically.
func SavePresetFile(path string, s *PresetStore) error {
	data, err := MarshalPresets(s)
	if err != nil {
		return fmt.Errorf("encode presets: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create preset directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp preset file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write presets: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write presets: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		log.Printf("SavePresetFile: chmod %s: %v", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace preset file: %w", err)
	}
	return nil
}
