package interp

import (
	"sort"
	"sync"

	"github.com/gitrdm/godatalog/pkg/ram"
)

// eqRelation stores an arity-2 equivalence relation as a union-find
// partition. Inserting (a,b) merges the classes of a and b; iteration and
// membership cover the full closure: every (x,y) with x and y in the same
// class.
//
// No repository in the reference corpus ships a disjoint-set container, so
// the structure is implemented here directly.
type eqRelation struct {
	name string

	mu     sync.RWMutex
	parent map[ram.Domain]ram.Domain
	rank   map[ram.Domain]int
}

// NewEqRelation creates an empty equivalence relation.
func NewEqRelation(name string) Relation {
	return &eqRelation{
		name:   name,
		parent: make(map[ram.Domain]ram.Domain),
		rank:   make(map[ram.Domain]int),
	}
}

func (r *eqRelation) Name() string { return r.name }

func (r *eqRelation) Arity() int { return 2 }

// find walks to the class root without path compression so read paths can
// share the lock.
func (r *eqRelation) find(x ram.Domain) ram.Domain {
	root := x
	for r.parent[root] != root {
		root = r.parent[root]
	}
	return root
}

func (r *eqRelation) ensure(x ram.Domain) {
	if _, ok := r.parent[x]; !ok {
		r.parent[x] = x
		r.rank[x] = 0
	}
}

func (r *eqRelation) Insert(t Tuple) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure(t[0])
	r.ensure(t[1])
	a, b := r.find(t[0]), r.find(t[1])
	if a == b {
		return false
	}
	if r.rank[a] < r.rank[b] {
		a, b = b, a
	}
	r.parent[b] = a
	if r.rank[a] == r.rank[b] {
		r.rank[a]++
	}
	return true
}

func (r *eqRelation) Contains(t Tuple) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.parent[t[0]]; !ok {
		return false
	}
	if _, ok := r.parent[t[1]]; !ok {
		return false
	}
	return r.find(t[0]) == r.find(t[1])
}

// classes returns the partition as sorted member lists.
func (r *eqRelation) classes() [][]ram.Domain {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byRoot := make(map[ram.Domain][]ram.Domain)
	for x := range r.parent {
		byRoot[r.find(x)] = append(byRoot[r.find(x)], x)
	}
	roots := make([]ram.Domain, 0, len(byRoot))
	for root := range byRoot {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	out := make([][]ram.Domain, 0, len(byRoot))
	for _, root := range roots {
		members := byRoot[root]
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		out = append(out, members)
	}
	return out
}

func (r *eqRelation) Size() int {
	n := 0
	for _, class := range r.classes() {
		n += len(class) * len(class)
	}
	return n
}

func (r *eqRelation) Purge() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parent = make(map[ram.Domain]ram.Domain)
	r.rank = make(map[ram.Domain]int)
}

func (r *eqRelation) Scan(fn func(Tuple) bool) {
	for _, class := range r.classes() {
		for _, x := range class {
			for _, y := range class {
				if !fn(Tuple{x, y}) {
					return
				}
			}
		}
	}
}

func (r *eqRelation) Partition(n int) [][]Tuple {
	var all []Tuple
	r.Scan(func(t Tuple) bool {
		all = append(all, CloneTuple(t))
		return true
	})
	if len(all) == 0 {
		return nil
	}
	if n <= 1 {
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

func (r *eqRelation) IndexCount() int { return 1 }

func (r *eqRelation) View(int) View { return &eqView{rel: r} }

func (r *eqRelation) Swap(other Relation) {
	o := other.(*eqRelation)
	r.mu.Lock()
	o.mu.Lock()
	r.parent, o.parent = o.parent, r.parent
	r.rank, o.rank = o.rank, r.rank
	o.mu.Unlock()
	r.mu.Unlock()
}

// Extend folds the other relation's partitioning into this one.
func (r *eqRelation) Extend(other Relation) {
	if o, ok := other.(*eqRelation); ok {
		pairs := make([]Tuple, 0)
		o.mu.RLock()
		for x := range o.parent {
			pairs = append(pairs, Tuple{x, o.find(x)})
		}
		o.mu.RUnlock()
		for _, p := range pairs {
			r.Insert(p)
		}
		return
	}
	other.Scan(func(t Tuple) bool {
		r.Insert(t)
		return true
	})
}

// eqView answers point and range queries against the partition. Range
// queries fall back to a filtered scan; the pair space of an equivalence
// class has no useful lexicographic prefix structure.
type eqView struct {
	rel *eqRelation
}

func (v *eqView) Contains(t Tuple) bool { return v.rel.Contains(t) }

func (v *eqView) ContainsRange(low, high Tuple) bool {
	found := false
	v.Range(low, high, func(Tuple) bool {
		found = true
		return false
	})
	return found
}

func (v *eqView) Range(low, high Tuple, fn func(Tuple) bool) {
	v.rel.Scan(func(t Tuple) bool {
		for i := range t {
			if t[i] < low[i] || t[i] > high[i] {
				return true
			}
		}
		return fn(t)
	})
}
