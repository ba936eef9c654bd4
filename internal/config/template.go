package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	yaml "gopkg.in/yaml.v3"

	"github.com/ferralda/mailsift/internal/types"
)

// Templates hold shared defaults that account configs opt into through
// meta.template. On merge the account's own values win.
var templates map[string]*types.Config

// LoadTemplates reads every *.yaml file in dir into the template set,
// keyed by filename without the extension.
func LoadTemplates(dir string) error {
	loaded := make(map[string]*types.Config)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", entry.Name(), err)
		}

		tpl := &types.Config{}
		if err := yaml.Unmarshal(data, tpl); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", entry.Name(), err)
		}

		loaded[strings.TrimSuffix(entry.Name(), ".yaml")] = tpl
	}

	templates = loaded
	return nil
}

// ApplyTemplate fills the zero-valued fields of cfg from the named
// template, leaving explicitly set values untouched.
func ApplyTemplate(cfg *types.Config, name string) error {
	tpl, ok := templates[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	// Merge onto a copy so the template itself is never mutated
	merged := &types.Config{}
	if err := mergo.Merge(merged, tpl); err != nil {
		return fmt.Errorf("failed to copy template %s: %w", name, err)
	}
	if err := mergo.Merge(merged, cfg, mergo.WithOverride); err != nil {
		return fmt.Errorf("failed to apply template %s: %w", name, err)
	}

	*cfg = *merged
	return nil
}
