// Package registry holds the static chain configuration table. The table is
// parsed once at startup and handed out as an immutable value so pollers and
// tests receive their chain descriptors by injection.
package registry

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AsetGithub/evm-lens-bot/internal/domain/model"
)

//go:embed chains.yaml
var chainsYAML []byte

type Registry struct {
	byChain map[model.Chain]model.ChainDescriptor
	order   []model.Chain
}

type chainsDoc struct {
	Chains []model.ChainDescriptor `yaml:"chains"`
}

// Load parses the embedded chain table.
func Load() (*Registry, error) {
	return Parse(chainsYAML)
}

// Parse builds a registry from a YAML document. Exported so tests can supply
// fixture tables.
func Parse(doc []byte) (*Registry, error) {
	var parsed chainsDoc
	if err := yaml.Unmarshal(doc, &parsed); err != nil {
		return nil, fmt.Errorf("parse chain registry: %w", err)
	}
	if len(parsed.Chains) == 0 {
		return nil, fmt.Errorf("chain registry is empty")
	}

	r := &Registry{byChain: make(map[model.Chain]model.ChainDescriptor, len(parsed.Chains))}
	for _, d := range parsed.Chains {
		if d.Chain == "" || d.RPCSubdomain == "" || d.NativeSymbol == "" {
			return nil, fmt.Errorf("chain registry entry %q is incomplete", d.Chain)
		}
		if _, dup := r.byChain[d.Chain]; dup {
			return nil, fmt.Errorf("duplicate chain registry entry %q", d.Chain)
		}
		for i, addr := range d.NativePlaceholders {
			d.NativePlaceholders[i] = strings.ToLower(addr)
		}
		r.byChain[d.Chain] = d
		r.order = append(r.order, d.Chain)
	}
	return r, nil
}

// Descriptor returns the descriptor for a chain.
func (r *Registry) Descriptor(chain model.Chain) (model.ChainDescriptor, bool) {
	d, ok := r.byChain[chain]
	return d, ok
}

// Chains returns all chain identifiers in declaration order.
func (r *Registry) Chains() []model.Chain {
	out := make([]model.Chain, len(r.order))
	copy(out, r.order)
	return out
}

// IsNativePlaceholder reports whether a token address aliases the chain's
// native asset. The comparison is on the lowercase form.
func (r *Registry) IsNativePlaceholder(chain model.Chain, tokenAddress string) bool {
	d, ok := r.byChain[chain]
	if !ok {
		return false
	}
	addr := strings.ToLower(strings.TrimSpace(tokenAddress))
	for _, p := range d.NativePlaceholders {
		if addr == p {
			return true
		}
	}
	return false
}
