package main

import (
	"github.com/xlatorfs/xlatorfs/config"
	"github.com/xlatorfs/xlatorfs/logging"
	"github.com/xlatorfs/xlatorfs/metrics"
	"github.com/xlatorfs/xlatorfs/stack"
	"github.com/xlatorfs/xlatorfs/xlator"
)

// passthrough is a translator with no behavior of its own beyond
// xlator.Base's defaults (tail-wind every FOP to its first child). It
// exists so the composition root has at least one buildable translator
// type; real translators are out of scope for this core (spec.md §1).
type passthrough struct {
	xlator.Base
}

func newPassthrough(name string, _ map[string]string, children []xlator.Translator, engine *stack.Engine) (xlator.Translator, error) {
	p := &passthrough{Base: xlator.NewBase(name, engine)}
	p.Bind(p)
	return p, nil
}

// defaultRegistry is the set of translator types this daemon knows how
// to instantiate: the pass-through scaffold, and the RPC-client-backed
// "client" type that actually reaches a remote peer (clientxlator.go).
// Further translators (posix brick, afr, and so on) are registered by
// whatever imports this package as a library, not by the core itself.
func defaultRegistry(log *logging.Logger, m *metrics.Registry) config.Registry {
	return config.Registry{
		"passthrough": newPassthrough,
		"client":      newClientFactory(log, m),
	}
}
