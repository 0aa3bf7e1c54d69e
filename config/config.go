// Package config implements the graph/volfile loader of SPEC_FULL.md
// §4.11: a minimal, viper-backed description of a translator graph —
// an ordered, leaves-first list of translator specs — that the core
// subsystems can be wired into a runnable graph from, for testing and
// for the cmd/xlatorfsd entrypoint. It does not attempt to replicate a
// production volume-management plane (SPEC_FULL §"NON-GOALS").
package config

import (
	"fmt"

	"github.com/spf13/viper"
	"github.com/xlatorfs/xlatorfs/stack"
	"github.com/xlatorfs/xlatorfs/xlator"
)

// TranslatorSpec names one node of the graph: its type (looked up in a
// Factory registry), its instance name, its option map, and the
// already-declared subvolumes (children) it sits above. Specs must
// appear leaves-first, matching spec.md §2's "dependency order".
type TranslatorSpec struct {
	Type       string            `mapstructure:"type"`
	Name       string            `mapstructure:"name"`
	Options    map[string]string `mapstructure:"options"`
	Subvolumes []string          `mapstructure:"subvolumes"`
}

// GraphSpec is the decoded document: an ordered translator list plus
// the name of the top-of-graph translator.
type GraphSpec struct {
	Translators []TranslatorSpec `mapstructure:"translators"`
	Top         string           `mapstructure:"top"`
}

// Load decodes a GraphSpec from v, which may have been populated from a
// file, environment variables, or flags — the point of building this on
// viper is that callers choose the source.
func Load(v *viper.Viper) (GraphSpec, error) {
	var spec GraphSpec
	if err := v.Unmarshal(&spec); err != nil {
		return GraphSpec{}, fmt.Errorf("config: decode graph spec: %w", err)
	}
	return spec, nil
}

// Factory constructs one translator instance given its name, options,
// already-built children, and the graph's shared frame engine.
type Factory func(name string, options map[string]string, children []xlator.Translator, engine *stack.Engine) (xlator.Translator, error)

// Registry maps a translator type name to its Factory.
type Registry map[string]Factory

// Build instantiates spec's graph against registry, validating that
// every subvolume reference resolves to an already-constructed
// translator (SPEC_FULL §4.11: "DAG, leaves first"). It wires parent
// links (Base.AddParent) on every child as it goes, and returns the
// top-of-graph translator.
func Build(spec GraphSpec, registry Registry, engine *stack.Engine) (xlator.Translator, error) {
	built := make(map[string]xlator.Translator, len(spec.Translators))

	for _, ts := range spec.Translators {
		factory, ok := registry[ts.Type]
		if !ok {
			return nil, fmt.Errorf("config: unknown translator type %q (for %q)", ts.Type, ts.Name)
		}
		if _, dup := built[ts.Name]; dup {
			return nil, fmt.Errorf("config: duplicate translator name %q", ts.Name)
		}

		children := make([]xlator.Translator, 0, len(ts.Subvolumes))
		for _, sub := range ts.Subvolumes {
			child, ok := built[sub]
			if !ok {
				return nil, fmt.Errorf("config: %q references subvolume %q before it is built (specs must be leaves-first)", ts.Name, sub)
			}
			children = append(children, child)
		}

		t, err := factory(ts.Name, ts.Options, children, engine)
		if err != nil {
			return nil, fmt.Errorf("config: build %q (%s): %w", ts.Name, ts.Type, err)
		}
		t.SetChildren(children)
		for _, child := range children {
			child.AddParent(t)
		}
		if err := t.Init(); err != nil {
			return nil, fmt.Errorf("config: init %q: %w", ts.Name, err)
		}
		built[ts.Name] = t
	}

	top, ok := built[spec.Top]
	if !ok {
		return nil, fmt.Errorf("config: top translator %q was not built", spec.Top)
	}
	return top, nil
}
