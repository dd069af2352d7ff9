// Package schedule holds the static boss table and the list view helpers
// (filtering and sorting) the dashboard renders every minute.
package schedule

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noahxzhu/bosswatch/internal/model"
)

//go:embed bosses.yaml
var builtinTable []byte

// Default returns the built-in boss table.
func Default() []model.Boss {
	bosses, err := Parse(builtinTable)
	if err != nil {
		panic(fmt.Sprintf("schedule: built-in table is invalid: %v", err))
	}
	return bosses
}

// LoadFile reads a YAML boss table from path. An empty path yields the built-in table.
func LoadFile(path string) ([]model.Boss, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedule file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML boss table.
func Parse(data []byte) ([]model.Boss, error) {
	var bosses []model.Boss
	if err := yaml.Unmarshal(data, &bosses); err != nil {
		return nil, fmt.Errorf("failed to parse schedule: %w", err)
	}
	if err := Validate(bosses); err != nil {
		return nil, err
	}
	return bosses, nil
}

// Validate checks every boss and requires a non-empty table.
func Validate(bosses []model.Boss) error {
	if len(bosses) == 0 {
		return fmt.Errorf("%w: schedule is empty", model.ErrInvalidBoss)
	}
	for i, b := range bosses {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("boss #%d: %w", i, err)
		}
	}
	return nil
}

// Names returns the distinct boss names in table order.
func Names(bosses []model.Boss) []string {
	seen := make(map[string]struct{}, len(bosses))
	var names []string
	for _, b := range bosses {
		if _, ok := seen[b.Name]; ok {
			continue
		}
		seen[b.Name] = struct{}{}
		names = append(names, b.Name)
	}
	return names
}

// Find returns every table entry whose name matches, case-insensitively.
func Find(bosses []model.Boss, name string) []model.Boss {
	var out []model.Boss
	for _, b := range bosses {
		if strings.EqualFold(b.Name, name) {
			out = append(out, b)
		}
	}
	return out
}
