// Package dicebot describes the rule sets of the external dice engine.
//
// A rule set is addressed only by its identifier; this package carries the
// display name and help text for each one and defines the boundary through
// which the engine evaluates chat lines.
package dicebot

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/muhammadmuzzammil1998/jsonc"
)

// GeneralID identifies the rule set that applies no game-specific commands.
const GeneralID = "DiceBot"

// ErrUnknownRuleSet is returned for identifiers missing from the catalog.
var ErrUnknownRuleSet = errors.New("unknown rule set")

//go:embed catalog.jsonc
var defaultCatalog []byte

// Info describes one rule set.
type Info struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Help string `json:"help"`
}

// Catalog is an immutable, ordered list of rule sets. The general rule set is always first.
type Catalog struct {
	engineVersion string
	infos         []Info
	byID          map[string]int
}

type catalogFile struct {
	EngineVersion string `json:"engine_version"`
	DiceBots      []Info `json:"dice_bots"`
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("dicebot: embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadCatalogFile reads a catalog from a JSON file that may contain comments.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule-set catalog: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes catalog data. Entries without an id are rejected.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &f); err != nil {
		return nil, fmt.Errorf("parse rule-set catalog: %w", err)
	}
	return NewCatalog(f.EngineVersion, f.DiceBots)
}

// NewCatalog builds a catalog. A general rule set is added when missing.
func NewCatalog(engineVersion string, infos []Info) (*Catalog, error) {
	c := &Catalog{engineVersion: engineVersion, byID: make(map[string]int, len(infos)+1)}
	c.infos = append(c.infos, Info{ID: GeneralID, Name: "DiceBot (no game system)"})

	for i, info := range infos {
		info.ID = strings.TrimSpace(info.ID)
		if info.ID == "" {
			return nil, fmt.Errorf("rule set #%d has no id", i)
		}
		if info.Name == "" {
			info.Name = info.ID
		}
		info.Help = strings.TrimSpace(info.Help)

		if info.ID == GeneralID {
			c.infos[0] = info
			continue
		}
		if _, dup := c.byID[info.ID]; dup {
			return nil, fmt.Errorf("rule set %q is listed twice", info.ID)
		}
		c.byID[info.ID] = len(c.infos)
		c.infos = append(c.infos, info)
	}
	c.byID[GeneralID] = 0
	return c, nil
}

// EngineVersion is the version of the dice engine the catalog describes.
func (c *Catalog) EngineVersion() string {
	return c.engineVersion
}

// List returns every rule set in display order.
func (c *Catalog) List() []Info {
	out := make([]Info, len(c.infos))
	copy(out, c.infos)
	return out
}

func (c *Catalog) Len() int {
	return len(c.infos)
}

// Lookup finds a rule set by exact id.
func (c *Catalog) Lookup(id string) (Info, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Info{}, false
	}
	return c.infos[i], true
}

// Resolve finds a rule set by id ignoring case, as typed in chat commands.
func (c *Catalog) Resolve(id string) (Info, error) {
	id = strings.TrimSpace(id)
	if info, ok := c.Lookup(id); ok {
		return info, nil
	}
	for _, info := range c.infos {
		if strings.EqualFold(info.ID, id) {
			return info, nil
		}
	}
	return Info{}, fmt.Errorf("%w: %q", ErrUnknownRuleSet, id)
}

// NameOf returns the display name of id, or id itself when unknown.
func (c *Catalog) NameOf(id string) string {
	if info, ok := c.Lookup(id); ok {
		return info.Name
	}
	return id
}

// IndexOf returns the position of id in List, or -1.
func (c *Catalog) IndexOf(id string) int {
	if i, ok := c.byID[id]; ok {
		return i
	}
	return -1
}

// Names returns the display names in List order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.infos))
	for i, info := range c.infos {
		names[i] = info.Name
	}
	return names
}
