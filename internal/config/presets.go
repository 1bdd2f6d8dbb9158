package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// ControlPreset is one named control value from the [controls] table.
type ControlPreset struct {
	Name  string
	Value any
}

// ControlPresets is the ordered content of a [controls] table. Keys are
// sorted so presets apply in a stable order between reloads.
type ControlPresets []ControlPreset

// LoadControlPresets reads the [controls] table of a TOML file. Values keep the
// types go-toml decodes them to (string, int64, float64, bool). A file without
// the table yields an empty slice.
func LoadControlPresets(path string) (ControlPresets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets %s: %w", path, err)
	}

	var raw struct {
		Controls map[string]any `toml:"controls"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse presets %s: %w", path, err)
	}

	names := make([]string, 0, len(raw.Controls))
	for name := range raw.Controls {
		names = append(names, name)
	}
	sort.Strings(names)

	presets := make(ControlPresets, 0, len(names))
	for _, name := range names {
		presets = append(presets, ControlPreset{Name: name, Value: raw.Controls[name]})
	}
	return presets, nil
}
