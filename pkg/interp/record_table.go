package interp

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/gitrdm/godatalog/pkg/ram"
)

// NilRecord is the record identifier of the nil record.
const NilRecord = ram.Domain(0)

// RecordTable is the process-wide content-addressed store mapping tuples to
// record identifiers. It is insertion-only and safe for concurrent
// insert-or-lookup. Identifier 0 is reserved for nil.
type RecordTable struct {
	mu      sync.RWMutex
	records []Tuple
	index   map[uint64][]ram.Domain
}

// NewRecordTable returns an empty record table.
func NewRecordTable() *RecordTable {
	return &RecordTable{
		records: []Tuple{nil}, // slot 0 is the nil record
		index:   make(map[uint64][]ram.Domain),
	}
}

func recordHash(t Tuple) uint64 {
	h := xxhash.New()
	var buf [4]byte
	for _, v := range t {
		binary.LittleEndian.PutUint32(buf[:], uint32(v))
		_, _ = h.Write(buf[:])
	}
	// Arity disambiguates the empty tuple from absent entries.
	binary.LittleEndian.PutUint32(buf[:], uint32(len(t)))
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

func tuplesEqual(a, b Tuple) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Pack interns the tuple, returning its record identifier.
func (t *RecordTable) Pack(tuple Tuple) ram.Domain {
	h := recordHash(tuple)

	t.mu.RLock()
	for _, id := range t.index[h] {
		if tuplesEqual(t.records[id], tuple) {
			t.mu.RUnlock()
			return id
		}
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range t.index[h] {
		if tuplesEqual(t.records[id], tuple) {
			return id
		}
	}
	id := ram.Domain(len(t.records))
	t.records = append(t.records, CloneTuple(tuple))
	t.index[h] = append(t.index[h], id)
	return id
}

// Unpack returns the tuple stored under the identifier, or nil for the nil
// record and unknown identifiers.
func (t *RecordTable) Unpack(id ram.Domain, arity int) Tuple {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id <= 0 || int(id) >= len(t.records) {
		return nil
	}
	rec := t.records[id]
	if len(rec) != arity {
		return nil
	}
	return rec
}

// Size returns the number of interned records, the nil record included.
func (t *RecordTable) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}
