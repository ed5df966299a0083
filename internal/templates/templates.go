// Package templates provides the embedded LLM prompt templates with user
// override support. Templates resolve in order:
// 1. User override: templatesDir/{name}.toml
// 2. Embedded default: internal/templates/{name}.toml
package templates

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed *.toml
var fs embed.FS

// Template is a named prompt pair sent to the model. Prompt carries a
// single %s placeholder for the content under analysis.
type Template struct {
	System string `toml:"system"` // System instruction framing the model's role
	Prompt string `toml:"prompt"` // User prompt with a %s content placeholder
}

// Get loads a template by name. A user override that exists but does not
// parse is an error rather than a silent fallback, so edits to override
// files surface at startup.
func Get(name string, templatesDir string) (*Template, error) {
	if templatesDir != "" {
		userPath := filepath.Join(templatesDir, name+".toml")
		if data, err := os.ReadFile(userPath); err == nil {
			tpl, err := parse(data)
			if err != nil {
				return nil, fmt.Errorf("template override '%s' is invalid: %w", userPath, err)
			}
			return tpl, nil
		}
	}

	data, err := fs.ReadFile(name + ".toml")
	if err != nil {
		return nil, fmt.Errorf("template '%s' not found (checked user override and embedded)", name)
	}
	return parse(data)
}

// ListEmbedded returns the names of all embedded templates
func ListEmbedded() ([]string, error) {
	entries, err := fs.ReadDir(".")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(entry.Name(), ".toml"); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

func parse(data []byte) (*Template, error) {
	var t Template
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if t.Prompt == "" {
		return nil, fmt.Errorf("template has no prompt")
	}
	return &t, nil
}
