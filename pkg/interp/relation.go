package interp

import (
	"sync"

	"github.com/google/btree"

	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/ram"
)

// Relation is the type-erased handle over an arity-specific relation
// instance. Implementations support concurrent insert and concurrent read;
// iterators and views are per-worker and must not cross goroutines.
type Relation interface {
	// Name returns the relation's flat name.
	Name() string

	// Arity returns the tuple width.
	Arity() int

	// Insert adds a tuple, reporting whether it was new. Tuples beyond a
	// configured size bound are silently dropped.
	Insert(t Tuple) bool

	// Contains reports whether the tuple is present.
	Contains(t Tuple) bool

	// Size returns the current tuple count.
	Size() int

	// Purge removes all tuples.
	Purge()

	// Scan iterates all tuples in primary-index order; returning false from
	// fn stops the iteration early.
	Scan(fn func(Tuple) bool)

	// Partition splits the current contents into at most n disjoint chunks
	// for parallel scanning.
	Partition(n int) [][]Tuple

	// View creates a worker-local view over the index with the given id.
	View(index int) View

	// IndexCount returns the number of maintained indices.
	IndexCount() int

	// Swap exchanges contents with another relation of the same shape.
	Swap(other Relation)

	// Extend folds another relation's contents in; only equivalence
	// relations support semantics beyond plain copying.
	Extend(other Relation)
}

// View is a worker-local cursor over one index of a relation. Mutating the
// relation invalidates a view's cached position but never its correctness.
type View interface {
	// Contains reports whether the exact tuple is present.
	Contains(t Tuple) bool

	// ContainsRange reports whether any tuple lies within [low, high],
	// bounds inclusive per the index order.
	ContainsRange(low, high Tuple) bool

	// Range iterates the tuples within [low, high] in index order;
	// returning false from fn stops early.
	Range(low, high Tuple, fn func(Tuple) bool)
}

// btreeRelation stores tuples in one B-tree per index order. The first
// order is the primary index; inserts are deduplicated against it.
type btreeRelation struct {
	name      string
	arity     int
	limitSize int

	mu      sync.RWMutex
	orders  [][]int
	indexes []*btree.BTreeG[Tuple]
}

// NewBTreeRelation creates a relation maintaining one B-tree per lex order.
// At least one total order must be supplied. limitSize of zero means
// unbounded.
func NewBTreeRelation(name string, arity int, orders [][]int, limitSize int) Relation {
	if len(orders) == 0 {
		order := make([]int, arity)
		for i := range order {
			order[i] = i
		}
		orders = [][]int{order}
	}
	r := &btreeRelation{name: name, arity: arity, limitSize: limitSize, orders: orders}
	for _, order := range orders {
		order := order
		r.indexes = append(r.indexes, btree.NewG[Tuple](8, func(a, b Tuple) bool {
			return compareUnder(order, a, b) < 0
		}))
	}
	return r
}

func (r *btreeRelation) Name() string { return r.name }

func (r *btreeRelation) Arity() int { return r.arity }

func (r *btreeRelation) Insert(t Tuple) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limitSize > 0 && r.indexes[0].Len() >= r.limitSize {
		return false
	}
	if _, ok := r.indexes[0].Get(t); ok {
		return false
	}
	stored := CloneTuple(t)
	for _, idx := range r.indexes {
		idx.ReplaceOrInsert(stored)
	}
	return true
}

func (r *btreeRelation) Contains(t Tuple) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.indexes[0].Get(t)
	return ok
}

func (r *btreeRelation) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexes[0].Len()
}

func (r *btreeRelation) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, order := range r.orders {
		order := order
		r.indexes[i] = btree.NewG[Tuple](8, func(a, b Tuple) bool {
			return compareUnder(order, a, b) < 0
		})
	}
}

func (r *btreeRelation) Scan(fn func(Tuple) bool) {
	// Iterate over a snapshot so the nested operation may freely touch
	// relations, this one included.
	r.mu.RLock()
	snapshot := make([]Tuple, 0, r.indexes[0].Len())
	r.indexes[0].Ascend(func(t Tuple) bool {
		snapshot = append(snapshot, t)
		return true
	})
	r.mu.RUnlock()
	for _, t := range snapshot {
		if !fn(t) {
			return
		}
	}
}

func (r *btreeRelation) Partition(n int) [][]Tuple {
	var all []Tuple
	r.Scan(func(t Tuple) bool {
		all = append(all, t)
		return true
	})
	if n <= 1 || len(all) <= 1 {
		if len(all) == 0 {
			return nil
		}
		return [][]Tuple{all}
	}
	chunk := (len(all) + n - 1) / n
	var out [][]Tuple
	for start := 0; start < len(all); start += chunk {
		end := start + chunk
		if end > len(all) {
			end = len(all)
		}
		out = append(out, all[start:end])
	}
	return out
}

func (r *btreeRelation) IndexCount() int { return len(r.indexes) }

func (r *btreeRelation) View(index int) View {
	return &btreeView{rel: r, index: index}
}

func (r *btreeRelation) Swap(other Relation) {
	o := other.(*btreeRelation)
	r.mu.Lock()
	o.mu.Lock()
	r.indexes, o.indexes = o.indexes, r.indexes
	r.orders, o.orders = o.orders, r.orders
	o.mu.Unlock()
	r.mu.Unlock()
}

func (r *btreeRelation) Extend(other Relation) {
	other.Scan(func(t Tuple) bool {
		r.Insert(t)
		return true
	})
}

// btreeView reads one index of a btreeRelation. The view keeps no
// mutable iterator state beyond the b-tree's own cursors, so relation
// mutations between lookups stay safe.
type btreeView struct {
	rel   *btreeRelation
	index int
}

func (v *btreeView) order() []int { return v.rel.orders[v.index] }

func (v *btreeView) Contains(t Tuple) bool {
	v.rel.mu.RLock()
	defer v.rel.mu.RUnlock()
	_, ok := v.rel.indexes[v.index].Get(t)
	return ok
}

func (v *btreeView) ContainsRange(low, high Tuple) bool {
	found := false
	v.Range(low, high, func(Tuple) bool {
		found = true
		return false
	})
	return found
}

func (v *btreeView) Range(low, high Tuple, fn func(Tuple) bool) {
	order := v.order()
	v.rel.mu.RLock()
	defer v.rel.mu.RUnlock()
	v.rel.indexes[v.index].AscendGreaterOrEqual(low, func(t Tuple) bool {
		if compareUnder(order, t, high) > 0 {
			return false
		}
		return fn(t)
	})
}

// NewRelation creates the storage matching a RAM relation description.
// Equivalence relations force their arity-2 union-find representation.
func NewRelation(rel *ram.Relation, orders [][]int) Relation {
	if rel.Representation == ast.RepresentationEqRel && rel.Arity == 2 {
		return NewEqRelation(rel.Name)
	}
	return NewBTreeRelation(rel.Name, rel.Arity, orders, rel.LimitSize)
}
