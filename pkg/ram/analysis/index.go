package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gitrdm/godatalog/pkg/ram"
)

// LexOrder is a sequence of attribute positions; an index sorts tuples
// lexicographically by these positions.
type LexOrder []int

func (o LexOrder) String() string {
	parts := make([]string, len(o))
	for i, p := range o {
		parts[i] = fmt.Sprint(p)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// IndexCluster is the per-relation result of index selection: the searches,
// the selected orders, and the mapping from each search to its order.
type IndexCluster struct {
	Searches []SearchSignature
	Orders   []LexOrder
	bySearch map[string]int
}

// OrderFor returns the index (into Orders) covering the given search, or -1
// for an unknown search.
func (c *IndexCluster) OrderFor(s SearchSignature) int {
	if idx, ok := c.bySearch[s.Key()]; ok {
		return idx
	}
	return -1
}

// bipartiteMap assigns each search a left and a right node id in the
// matching graph and maps ids back to searches.
type bipartiteMap struct {
	left  map[string]uint32
	right map[string]uint32
	back  map[uint32]SearchSignature
	next  uint32
}

func newBipartiteMap() *bipartiteMap {
	return &bipartiteMap{
		left:  make(map[string]uint32),
		right: make(map[string]uint32),
		back:  make(map[uint32]SearchSignature),
		next:  1,
	}
}

func (b *bipartiteMap) add(s SearchSignature) {
	key := s.Key()
	if _, ok := b.left[key]; ok {
		return
	}
	b.left[key] = b.next
	b.right[key] = b.next + 1
	b.back[b.next] = s
	b.back[b.next+1] = s
	b.next += 2
}

// MinIndexSelection computes the minimum index cover for one relation's
// search set.
func MinIndexSelection(searches []SearchSignature) *IndexCluster {
	cluster := &IndexCluster{bySearch: make(map[string]int)}
	if len(searches) == 0 {
		return cluster
	}

	// Deduplicate and order the searches for reproducibility.
	uniq := make(map[string]SearchSignature)
	for _, s := range searches {
		uniq[s.Key()] = s
	}
	keys := make([]string, 0, len(uniq))
	for k := range uniq {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make([]SearchSignature, len(keys))
	for i, k := range keys {
		ordered[i] = uniq[k]
	}
	cluster.Searches = ordered

	mapping := newBipartiteMap()
	for _, s := range ordered {
		mapping.add(s)
	}
	matching := newMaxMatching()
	for _, s := range ordered {
		for _, t := range ordered {
			if s.Key() != t.Key() && s.Precedes(t) {
				matching.addEdge(mapping.left[s.Key()], mapping.right[t.Key()])
			}
		}
	}
	match := matching.solve()

	// Chains: by Dilworth the chain count is |searches| - |matching|. A
	// chain starts at a search whose right node is unmatched (nothing
	// precedes into it) and follows matched left edges upward through ever
	// larger searches.
	var chains [][]SearchSignature
	for _, start := range keys {
		if _, ok := match[mapping.right[start]]; ok {
			continue
		}
		chain := []SearchSignature{uniq[start]}
		cur := start
		for {
			rightID, ok := match[mapping.left[cur]]
			if !ok {
				break
			}
			next := mapping.back[rightID]
			chain = append(chain, next)
			cur = next.Key()
		}
		chains = append(chains, chain)
	}

	// Each chain becomes one lexicographic order: walk the chain from the
	// smallest search, appending newly constrained equality positions first
	// and inequality positions last.
	for _, chain := range chains {
		var order LexOrder
		covered := NewSearchSignature(chain[0].Arity())
		for _, s := range chain {
			delta := s.Delta(covered)
			var backlog LexOrder
			for pos := 0; pos < delta.Arity(); pos++ {
				switch delta[pos] {
				case ConstraintEqual:
					order = append(order, pos)
				case ConstraintInequal:
					backlog = append(backlog, pos)
				}
			}
			order = append(order, backlog...)
			covered = s
		}
		orderIdx := len(cluster.Orders)
		cluster.Orders = append(cluster.Orders, order)
		for _, s := range chain {
			cluster.bySearch[s.Key()] = orderIdx
		}
	}
	return cluster
}

// IndexAnalysis maps every relation of a RAM program to its index cluster.
type IndexAnalysis struct {
	// Provenance disables inequality constraints in index signatures; the
	// widened existence checks of provenance mode cannot use them.
	Provenance bool

	clusters map[string]*IndexCluster
	searches map[string][]SearchSignature
}

// RunIndexAnalysis collects the search signatures of every indexed
// operation and existence check in the program and solves the minimum cover
// per relation.
func RunIndexAnalysis(p *ram.Program, provenance bool) *IndexAnalysis {
	a := &IndexAnalysis{
		Provenance: provenance,
		clusters:   make(map[string]*IndexCluster),
		searches:   make(map[string][]SearchSignature),
	}
	for name := range p.Relations {
		a.searches[name] = nil
	}

	collect := func(stmt ram.Statement) {
		if stmt == nil {
			return
		}
		ram.Walk(stmt, func(n ram.Node) {
			switch node := n.(type) {
			case *ram.IndexScan:
				a.addSearch(p, node.Relation, PatternSignature(node.Pattern))
			case *ram.IndexIfExists:
				a.addSearch(p, node.Relation, PatternSignature(node.Pattern))
			case *ram.IndexAggregate:
				a.addSearch(p, node.Relation, PatternSignature(node.Pattern))
			case *ram.ExistenceCheck:
				a.addSearch(p, node.Relation, ValuesSignature(node.Values))
			case *ram.ProvenanceExistenceCheck:
				a.addSearch(p, node.Relation, ProvenanceSignature(node.Values))
			}
		})
	}
	collect(p.Main)
	for _, name := range p.SubroutineNames() {
		collect(p.Subroutines[name])
	}

	for name, searches := range a.searches {
		rel := p.Relation(name)
		kept := make([]SearchSignature, 0, len(searches))
		for _, s := range searches {
			if !s.Empty() {
				kept = append(kept, s)
			}
		}
		// Every relation carries at least its total order so full scans and
		// total existence checks have an index to run on.
		if len(kept) == 0 {
			kept = append(kept, FullSignature(rel.Arity))
		}
		a.clusters[name] = MinIndexSelection(kept)
		// Extend every produced order to a total order over the attributes.
		for i, order := range a.clusters[name].Orders {
			a.clusters[name].Orders[i] = completeOrder(order, rel.Arity)
		}
	}
	return a
}

func (a *IndexAnalysis) addSearch(p *ram.Program, relation string, sig SearchSignature) {
	if a.Provenance {
		for i, c := range sig {
			if c == ConstraintInequal {
				sig[i] = ConstraintNone
			}
		}
	}
	a.searches[relation] = append(a.searches[relation], sig)
}

// PatternSignature derives the search signature of a range pattern:
// identical bounds constrain by equality, differing bounds by inequality,
// undefined bounds not at all.
func PatternSignature(pattern ram.RangePattern) SearchSignature {
	sig := NewSearchSignature(len(pattern.Lower))
	for i := range pattern.Lower {
		_, lowUndef := pattern.Lower[i].(*ram.UndefValue)
		_, highUndef := pattern.Upper[i].(*ram.UndefValue)
		switch {
		case lowUndef && highUndef:
			sig[i] = ConstraintNone
		case !lowUndef && !highUndef && pattern.Lower[i].Equal(pattern.Upper[i]):
			sig[i] = ConstraintEqual
		default:
			sig[i] = ConstraintInequal
		}
	}
	return sig
}

// ValuesSignature derives the signature of an existence check's pattern.
func ValuesSignature(values []ram.Expression) SearchSignature {
	sig := NewSearchSignature(len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		if _, undef := v.(*ram.UndefValue); !undef {
			sig[i] = ConstraintEqual
		}
	}
	return sig
}

// ProvenanceSignature is ValuesSignature with the trailing rule- and
// level-number attributes left unconstrained.
func ProvenanceSignature(values []ram.Expression) SearchSignature {
	sig := ValuesSignature(values)
	if len(sig) >= 2 {
		sig[len(sig)-1] = ConstraintNone
		sig[len(sig)-2] = ConstraintNone
	}
	return sig
}

// completeOrder extends a partial lex order to a permutation of 0..arity-1.
func completeOrder(order LexOrder, arity int) LexOrder {
	seen := make([]bool, arity)
	out := make(LexOrder, 0, arity)
	for _, p := range order {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	for p := 0; p < arity; p++ {
		if !seen[p] {
			out = append(out, p)
		}
	}
	return out
}

// Cluster returns the index cluster of a relation.
func (a *IndexAnalysis) Cluster(relation string) *IndexCluster {
	return a.clusters[relation]
}

func (a *IndexAnalysis) String() string {
	names := make([]string, 0, len(a.clusters))
	for name := range a.clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, name := range names {
		cluster := a.clusters[name]
		fmt.Fprintf(&sb, "%s:\n", name)
		for _, s := range cluster.Searches {
			fmt.Fprintf(&sb, "\tsearch %s -> order %s\n", s, cluster.Orders[cluster.OrderFor(s)])
		}
	}
	return sb.String()
}
