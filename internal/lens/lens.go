// Package lens loads the built-in analysis lenses and review profiles.
package lens

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed builtin/*.yaml profiles/*.yaml
var builtinFS embed.FS

// Rubric spells out what each severity level means for one lens.
type Rubric struct {
	Blocker string `yaml:"blocker"`
	High    string `yaml:"high"`
	Medium  string `yaml:"medium"`
	Low     string `yaml:"low"`
	Nit     string `yaml:"nit"`
}

// Lens is one independent analysis pass with its own prompt and rubric.
type Lens struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	SystemPrompt string `yaml:"system_prompt"`
	Rubric       Rubric `yaml:"severity_rubric"`
}

// Profile names a lens set plus an optional minimum severity.
type Profile struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Lenses      []string `yaml:"lenses"`
	MinSeverity string   `yaml:"min_severity"`
}

// DefaultLens is used when neither lenses nor a profile is requested.
const DefaultLens = "correctness"

// Load returns a built-in lens by ID.
func Load(id string) (*Lens, error) {
	data, err := builtinFS.ReadFile("builtin/" + id + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("lens.Load: unknown lens %q: %w", id, err)
	}
	var l Lens
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("lens.Load: parse %q: %w", id, err)
	}
	return &l, nil
}

// LoadAll resolves a list of lens IDs, rejecting duplicates.
func LoadAll(ids []string) ([]*Lens, error) {
	seen := make(map[string]bool, len(ids))
	lenses := make([]*Lens, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, fmt.Errorf("lens.LoadAll: duplicate lens %q", id)
		}
		seen[id] = true
		l, err := Load(id)
		if err != nil {
			return nil, err
		}
		lenses = append(lenses, l)
	}
	return lenses, nil
}

// LoadProfile returns a built-in profile by name.
func LoadProfile(name string) (*Profile, error) {
	data, err := builtinFS.ReadFile("profiles/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("lens.LoadProfile: unknown profile %q: %w", name, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("lens.LoadProfile: parse %q: %w", name, err)
	}
	return &p, nil
}

// List returns the IDs of all built-in lenses, sorted.
func List() ([]string, error) {
	return listDir("builtin")
}

// ListProfiles returns the names of all built-in profiles, sorted.
func ListProfiles() ([]string, error) {
	return listDir("profiles")
}

func listDir(dir string) ([]string, error) {
	entries, err := builtinFS.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if strings.HasSuffix(n, ".yaml") {
			names = append(names, strings.TrimSuffix(n, ".yaml"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// FormatRubric renders the severity rubric for inclusion in a prompt.
func FormatRubric(l *Lens) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Severity Rubric (%s)\n\n", l.Name)
	fmt.Fprintf(&b, "- blocker: %s\n", l.Rubric.Blocker)
	fmt.Fprintf(&b, "- high: %s\n", l.Rubric.High)
	fmt.Fprintf(&b, "- medium: %s\n", l.Rubric.Medium)
	fmt.Fprintf(&b, "- low: %s\n", l.Rubric.Low)
	fmt.Fprintf(&b, "- nit: %s\n", l.Rubric.Nit)
	return b.String()
}
