package ledger

// AssetID is a dense numeric identifier for a registered collateral asset.
type AssetID uint16

// Asset is one approved collateral type. The registered set is built once
// at initialization and is immutable thereafter.
type Asset struct {
	ID     AssetID
	Symbol string
}

// Registry maps asset symbols to IDs. Registration happens exactly once,
// through NewRegistry; there is no add/remove after construction.
type Registry struct {
	assets   []Asset
	bySymbol map[string]AssetID
}

// NewRegistry builds the immutable asset registry from an ordered list of
// symbols. IDs are assigned densely starting at 1 so the zero AssetID is
// never a valid asset.
func NewRegistry(symbols []string) *Registry {
	r := &Registry{
		assets:   make([]Asset, 0, len(symbols)),
		bySymbol: make(map[string]AssetID, len(symbols)),
	}
	for i, sym := range symbols {
		id := AssetID(i + 1)
		r.assets = append(r.assets, Asset{ID: id, Symbol: sym})
		r.bySymbol[sym] = id
	}
	return r
}

// Lookup resolves a symbol to its AssetID.
func (r *Registry) Lookup(symbol string) (AssetID, bool) {
	id, ok := r.bySymbol[symbol]
	return id, ok
}

// Symbol resolves an AssetID back to its symbol.
func (r *Registry) Symbol(id AssetID) (string, bool) {
	idx := int(id) - 1
	if idx < 0 || idx >= len(r.assets) {
		return "", false
	}
	return r.assets[idx].Symbol, true
}

// Assets returns the registered assets in registration order.
func (r *Registry) Assets() []Asset {
	out := make([]Asset, len(r.assets))
	copy(out, r.assets)
	return out
}

// Len returns the number of registered assets.
func (r *Registry) Len() int {
	return len(r.assets)
}
