package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"persona/internal/logging"
)

// Character is one persona card. Cards are YAML files in the
// characters directory, one file per character.
type Character struct {
	Name        string `yaml:"name" json:"name"`
	Background  string `yaml:"background" json:"background,omitempty"`
	Personality string `yaml:"personality" json:"personality,omitempty"`
	Greeting    string `yaml:"greeting" json:"greeting,omitempty"`
	// Prompt is the base system prompt; capability instructions are
	// appended to it at turn time.
	Prompt string `yaml:"prompt" json:"prompt,omitempty"`
}

// LoadCharacter reads one character card.
func LoadCharacter(path string) (*Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read character card: %w", err)
	}
	var c Character
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("character card %s is not valid YAML: %w", path, err)
	}
	if c.Name == "" {
		return nil, fmt.Errorf("character card %s has no name", path)
	}
	return &c, nil
}

// LoadCharacters reads every card in dir, keyed by character name.
// A missing directory yields an empty map, not an error.
func LoadCharacters(dir string) (map[string]*Character, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return map[string]*Character{}, nil
	}
	if err != nil {
		return nil, err
	}

	chars := map[string]*Character{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		c, err := LoadCharacter(filepath.Join(dir, e.Name()))
		if err != nil {
			logging.Store("skipping character card %s: %v", e.Name(), err)
			continue
		}
		chars[strings.ToLower(c.Name)] = c
	}

	names := make([]string, 0, len(chars))
	for n := range chars {
		names = append(names, n)
	}
	sort.Strings(names)
	logging.Store("loaded %d character cards: %s", len(chars), strings.Join(names, ", "))
	return chars, nil
}
