// Package presets ships the pipeline configurations of the bundled datasets
package presets

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"tabclean/domain/cleaning"
)

//go:embed *.yaml
var files embed.FS

// Names lists the bundled presets in lexical order
func Names() []string {
	entries, err := files.ReadDir(".")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Raw returns the YAML source of a preset
func Raw(name string) ([]byte, error) {
	data, err := files.ReadFile(name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Load parses and validates a preset
func Load(name string) (*cleaning.Config, error) {
	data, err := Raw(name)
	if err != nil {
		return nil, err
	}
	cfg, err := cleaning.ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("preset %s: %w", name, err)
	}
	return cfg, nil
}
