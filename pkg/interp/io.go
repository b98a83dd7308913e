package interp

import (
	"fmt"
	"sync"

	"github.com/gitrdm/godatalog/pkg/ram"
)

// IOAdapter is the boundary to the I/O collaborators: the executor asks it
// for input facts and hands it output facts and sizes. Values cross the
// boundary as Go values (int64, uint32, float32, string) decoded per the
// relation's attribute types; file formats are none of the core's business.
type IOAdapter interface {
	// LoadFacts returns the facts of an input relation.
	LoadFacts(relation string, params map[string]string) ([][]any, error)

	// StoreFacts receives the facts of an output relation.
	StoreFacts(relation string, params map[string]string, rows [][]any) error

	// PrintSize receives the size of a printsize relation.
	PrintSize(relation string, size int) error
}

// MemoryIO is an in-memory IOAdapter: inputs are seeded into Inputs before
// the run, outputs and sizes are collected for inspection afterwards.
type MemoryIO struct {
	mu      sync.Mutex
	Inputs  map[string][][]any
	Outputs map[string][][]any
	Sizes   map[string]int
}

// NewMemoryIO returns an empty in-memory adapter.
func NewMemoryIO() *MemoryIO {
	return &MemoryIO{
		Inputs:  make(map[string][][]any),
		Outputs: make(map[string][][]any),
		Sizes:   make(map[string]int),
	}
}

// AddInput seeds one input fact.
func (m *MemoryIO) AddInput(relation string, values ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Inputs[relation] = append(m.Inputs[relation], values)
}

// LoadFacts implements IOAdapter.
func (m *MemoryIO) LoadFacts(relation string, _ map[string]string) ([][]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Inputs[relation], nil
}

// StoreFacts implements IOAdapter.
func (m *MemoryIO) StoreFacts(relation string, _ map[string]string, rows [][]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Outputs[relation] = rows
	return nil
}

// PrintSize implements IOAdapter.
func (m *MemoryIO) PrintSize(relation string, size int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sizes[relation] = size
	return nil
}

// encodeValue converts one external value into the domain word of an
// attribute type.
func encodeValue(symbols *SymbolTable, typeName string, v any) (ram.Domain, error) {
	switch typeName {
	case "symbol":
		s, ok := v.(string)
		if !ok {
			return 0, fmt.Errorf("interp: expected string for symbol attribute, got %T", v)
		}
		return symbols.Lookup(s), nil
	case "float":
		switch f := v.(type) {
		case float32:
			return ram.FloatToDomain(f), nil
		case float64:
			return ram.FloatToDomain(float32(f)), nil
		}
		return 0, fmt.Errorf("interp: expected float for float attribute, got %T", v)
	case "unsigned":
		switch u := v.(type) {
		case uint32:
			return ram.UnsignedToDomain(u), nil
		case int:
			return ram.UnsignedToDomain(uint32(u)), nil
		}
		return 0, fmt.Errorf("interp: expected unsigned for unsigned attribute, got %T", v)
	default:
		switch n := v.(type) {
		case int:
			return ram.Domain(n), nil
		case int32:
			return ram.Domain(n), nil
		case int64:
			return ram.Domain(n), nil
		}
		return 0, fmt.Errorf("interp: expected integer for number attribute, got %T", v)
	}
}

// decodeValue converts one domain word back into the external value of an
// attribute type.
func decodeValue(symbols *SymbolTable, typeName string, d ram.Domain) any {
	switch typeName {
	case "symbol":
		return symbols.Resolve(d)
	case "float":
		return ram.DomainToFloat(d)
	case "unsigned":
		return ram.DomainToUnsigned(d)
	default:
		return int64(d)
	}
}
