package data

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/helluna/gridinv/internal/grid"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// ErrUnknownType is returned when a lookup names a type the catalog lacks.
var ErrUnknownType = errors.New("unknown item type")

// ItemInfo holds the template the grid needs for one item type.
type ItemInfo struct {
	Type      grid.ItemType
	Name      string
	Category  string // free-form grouping: weapon, armor, ammo, consumable...
	Width     int
	Height    int
	Stackable bool
	MaxStack  int
}

// Footprint returns the unrotated footprint.
func (i *ItemInfo) Footprint() grid.Footprint {
	return grid.Footprint{W: i.Width, H: i.Height}
}

// Rule returns the stacking rule.
func (i *ItemInfo) Rule() grid.StackRule {
	return grid.StackRule{Stackable: i.Stackable, MaxStack: i.MaxStack}
}

// Descriptor builds the grid descriptor for record id of this type.
func (i *ItemInfo) Descriptor(id grid.ItemID) grid.Item {
	return grid.Item{
		ID:        id,
		Type:      i.Type,
		Footprint: i.Footprint(),
		Rule:      i.Rule(),
	}
}

// ItemTable holds all item templates indexed by type tag.
type ItemTable struct {
	items map[grid.ItemType]*ItemInfo
}

// Get returns an item by type, or nil if not found. The tag is normalised
// the same way the loader normalises it.
func (t *ItemTable) Get(typ grid.ItemType) *ItemInfo {
	return t.items[NormalizeType(string(typ))]
}

// Lookup is Get with an error for unknown types.
func (t *ItemTable) Lookup(typ grid.ItemType) (*ItemInfo, error) {
	info := t.Get(typ)
	if info == nil {
		return nil, fmt.Errorf("lookup %q: %w", typ, ErrUnknownType)
	}
	return info, nil
}

// Count returns total loaded items.
func (t *ItemTable) Count() int {
	return len(t.items)
}

// Types lists every loaded type tag in sorted order.
func (t *ItemTable) Types() []grid.ItemType {
	out := make([]grid.ItemType, 0, len(t.items))
	for typ := range t.items {
		out = append(out, typ)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NormalizeType trims a tag and puts it in Unicode NFC so that visually
// identical tags compare equal under exact matching.
func NormalizeType(s string) grid.ItemType {
	return grid.ItemType(norm.NFC.String(strings.TrimSpace(s)))
}

type itemEntry struct {
	Type      string `yaml:"type"`
	Name      string `yaml:"name"`
	Category  string `yaml:"category"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Stackable bool   `yaml:"stackable"`
	MaxStack  int    `yaml:"max_stack"`
}

type itemListFile struct {
	Items []itemEntry `yaml:"items"`
}

// LoadItemTable loads the YAML item catalog at path.
func LoadItemTable(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	t, err := ParseItemTable(raw)
	if err != nil {
		return nil, fmt.Errorf("items %s: %w", path, err)
	}
	return t, nil
}

// ParseItemTable builds a table from catalog YAML.
func ParseItemTable(raw []byte) (*ItemTable, error) {
	var f itemListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse items: %w", err)
	}
	t := &ItemTable{items: make(map[grid.ItemType]*ItemInfo, len(f.Items))}
	for n := range f.Items {
		e := &f.Items[n]
		typ := NormalizeType(e.Type)
		if typ == "" {
			return nil, fmt.Errorf("item %d: empty type", n)
		}
		if _, dup := t.items[typ]; dup {
			return nil, fmt.Errorf("item %d: duplicate type %q", n, typ)
		}
		if e.Width < 1 || e.Height < 1 {
			return nil, fmt.Errorf("item %q: footprint %dx%d must be positive", typ, e.Width, e.Height)
		}
		maxStack := 1
		if e.Stackable {
			if e.MaxStack < 1 {
				return nil, fmt.Errorf("item %q: stackable with max_stack %d", typ, e.MaxStack)
			}
			maxStack = e.MaxStack
		}
		name := e.Name
		if name == "" {
			name = string(typ)
		}
		t.items[typ] = &ItemInfo{
			Type:      typ,
			Name:      name,
			Category:  e.Category,
			Width:     e.Width,
			Height:    e.Height,
			Stackable: e.Stackable,
			MaxStack:  maxStack,
		}
	}
	return t, nil
}
