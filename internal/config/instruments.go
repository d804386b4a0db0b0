package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// InstrumentDefinitions is the startup description of the tradable
// instruments: an id → symbol mapping plus the simple and composite
// definitions.
type InstrumentDefinitions struct {
	Mapping   map[string]string     `yaml:"mapping"`
	Simple    []SimpleDefinition    `yaml:"simple"`
	Composite []CompositeDefinition `yaml:"composite"`
}

// SimpleDefinition declares a simple instrument.
type SimpleDefinition struct {
	ID string `yaml:"id"`
}

// CompositeDefinition declares a composite instrument by the ids of its
// simple children.
type CompositeDefinition struct {
	ID       string   `yaml:"id"`
	Children []string `yaml:"children"`
}

// LoadInstruments reads and validates instrument definitions from a YAML
// file.
func LoadInstruments(path string) (*InstrumentDefinitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instruments file: %w", err)
	}
	defs, err := ParseInstruments(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// ParseInstruments decodes and validates instrument definitions. Unknown
// keys are rejected.
func ParseInstruments(data []byte) (*InstrumentDefinitions, error) {
	var defs InstrumentDefinitions
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&defs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse instruments: %w", err)
	}
	if err := defs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instruments: %w", err)
	}
	return &defs, nil
}

// Validate checks that ids are present and unique and that every
// composite child names a declared simple instrument. Composite structure
// (non-empty children) is left to the instrument registry.
func (d *InstrumentDefinitions) Validate() error {
	seen := make(map[string]bool, len(d.Simple)+len(d.Composite))
	simple := make(map[string]bool, len(d.Simple))

	for i, s := range d.Simple {
		if s.ID == "" {
			return fmt.Errorf("simple[%d]: id is missing", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate instrument id %q", s.ID)
		}
		seen[s.ID] = true
		simple[s.ID] = true
	}

	for i, c := range d.Composite {
		if c.ID == "" {
			return fmt.Errorf("composite[%d]: id is missing", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("duplicate instrument id %q", c.ID)
		}
		seen[c.ID] = true
		for _, child := range c.Children {
			if !simple[child] {
				return fmt.Errorf("composite %q: child %q is not a declared simple instrument", c.ID, child)
			}
		}
	}
	return nil
}

// Symbol returns the mapped symbol for id, or id itself when unmapped.
func (d *InstrumentDefinitions) Symbol(id string) string {
	if s, ok := d.Mapping[id]; ok && s != "" {
		return s
	}
	return id
}
