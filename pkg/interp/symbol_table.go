package interp

import (
	"sync"

	"github.com/gitrdm/godatalog/pkg/ram"
)

// SymbolTable is the process-wide bijective mapping between strings and
// domain indices. It is insertion-only and safe for concurrent
// insert-or-lookup; lookups never block each other.
type SymbolTable struct {
	mu      sync.RWMutex
	symbols []string
	index   map[string]ram.Domain
}

// NewSymbolTable returns an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{index: make(map[string]ram.Domain)}
}

// Lookup interns the symbol, returning its stable index.
func (t *SymbolTable) Lookup(symbol string) ram.Domain {
	t.mu.RLock()
	if idx, ok := t.index[symbol]; ok {
		t.mu.RUnlock()
		return idx
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := t.index[symbol]; ok {
		return idx
	}
	idx := ram.Domain(len(t.symbols))
	t.symbols = append(t.symbols, symbol)
	t.index[symbol] = idx
	return idx
}

// Resolve returns the symbol stored under the index; unknown indices
// resolve to the empty string.
func (t *SymbolTable) Resolve(idx ram.Domain) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if idx < 0 || int(idx) >= len(t.symbols) {
		return ""
	}
	return t.symbols[idx]
}

// Contains reports whether the symbol is interned.
func (t *SymbolTable) Contains(symbol string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.index[symbol]
	return ok
}

// Size returns the number of interned symbols.
func (t *SymbolTable) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.symbols)
}
