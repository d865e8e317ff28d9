// Package connector defines database connector plugins. A plugin names its
// dialect family and database/sql driver, and contributes the family's
// translation overrides and native type names during the startup load
// phase. LoadAll freezes the result into the registry used for
// translation.
package connector

import (
	"fmt"

	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/translate"
	"github.com/roach88/formulon/internal/translate/std"
)

// Plugin is one connector.
type Plugin struct {
	// Family is the dialect family the plugin serves.
	Family dialect.Family

	// DriverName is the database/sql driver registered by the plugin's
	// driver import.
	DriverName string

	// VersionQuery returns the server version as a single text column.
	VersionQuery string

	// Types maps formula types to the family's native names.
	Types std.TypeNames

	// Register adds the family's translation overrides. May be nil.
	Register func(b *translate.Builder) error
}

// Install adds the plugin's types and overrides to b.
func (p Plugin) Install(b *translate.Builder) error {
	if p.Types.Dialects.IsEmpty() {
		p.Types.Dialects = p.Family.All()
	}
	if !p.Family.All().Contains(p.Types.Dialects) {
		return fmt.Errorf("connector %s: type names registered outside the family (%s)", p.Family, p.Types.Dialects)
	}
	if err := p.Types.Register(b); err != nil {
		return fmt.Errorf("connector %s: %w", p.Family, err)
	}
	if p.Register != nil {
		if err := p.Register(b); err != nil {
			return fmt.Errorf("connector %s: %w", p.Family, err)
		}
	}
	return nil
}

// LoadAll registers the standard variants plus every plugin and freezes the
// registry. Two plugins for the same family are rejected.
func LoadAll(plugins ...Plugin) (*translate.Registry, error) {
	b := translate.NewBuilder()
	if err := std.Register(b); err != nil {
		return nil, fmt.Errorf("standard variants: %w", err)
	}
	seen := map[dialect.Family]bool{}
	for _, p := range plugins {
		if seen[p.Family] {
			return nil, fmt.Errorf("connector %s loaded twice", p.Family)
		}
		seen[p.Family] = true
		if err := p.Install(b); err != nil {
			return nil, err
		}
	}
	return b.Freeze()
}

// Find returns the plugin serving family f.
func Find(plugins []Plugin, f dialect.Family) (Plugin, bool) {
	for _, p := range plugins {
		if p.Family == f {
			return p, true
		}
	}
	return Plugin{}, false
}
