// Package graph provides a generic, ordered, labelled, directed graph used by
// the dependency analyses of the compiler middle-end.
//
// The graph is parameterised by a comparable vertex type together with an
// explicit total order on vertices. The order makes every traversal and every
// listing deterministic, which the analyses rely on for reproducible
// schedules and debug output.
//
// The representation keeps a vertex set plus forward and reverse adjacency
// maps, giving O(deg) successor and predecessor queries.
package graph

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// Graph is a directed graph over vertices of type V. A Graph must be created
// with New or NewWith; the zero value is not usable.
type Graph[V comparable] struct {
	less  func(a, b V) bool
	verts map[V]struct{}
	succ  map[V]map[V]struct{}
	pred  map[V]map[V]struct{}
}

// New creates an empty graph over a naturally ordered vertex type.
func New[V constraints.Ordered]() *Graph[V] {
	return NewWith[V](func(a, b V) bool { return a < b })
}

// NewWith creates an empty graph using the given total order on vertices.
// The order only affects iteration, never connectivity.
func NewWith[V comparable](less func(a, b V) bool) *Graph[V] {
	return &Graph[V]{
		less:  less,
		verts: make(map[V]struct{}),
		succ:  make(map[V]map[V]struct{}),
		pred:  make(map[V]map[V]struct{}),
	}
}

// InsertVertex adds a vertex to the graph. Inserting an existing vertex is a
// no-op.
func (g *Graph[V]) InsertVertex(v V) {
	if _, ok := g.verts[v]; ok {
		return
	}
	g.verts[v] = struct{}{}
	g.succ[v] = make(map[V]struct{})
	g.pred[v] = make(map[V]struct{})
}

// InsertEdge adds the edge from -> to, inserting both endpoints if absent.
func (g *Graph[V]) InsertEdge(from, to V) {
	g.InsertVertex(from)
	g.InsertVertex(to)
	g.succ[from][to] = struct{}{}
	g.pred[to][from] = struct{}{}
}

// Contains reports whether the vertex is in the graph.
func (g *Graph[V]) Contains(v V) bool {
	_, ok := g.verts[v]
	return ok
}

// ContainsEdge reports whether the edge from -> to is in the graph.
func (g *Graph[V]) ContainsEdge(from, to V) bool {
	if s, ok := g.succ[from]; ok {
		_, ok2 := s[to]
		return ok2
	}
	return false
}

// Size returns the number of vertices.
func (g *Graph[V]) Size() int {
	return len(g.verts)
}

func (g *Graph[V]) sorted(set map[V]struct{}) []V {
	out := make([]V, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return g.less(out[i], out[j]) })
	return out
}

// Vertices returns all vertices in the graph's total order.
func (g *Graph[V]) Vertices() []V {
	return g.sorted(g.verts)
}

// Successors returns the direct successors of v in order.
func (g *Graph[V]) Successors(v V) []V {
	return g.sorted(g.succ[v])
}

// Predecessors returns the direct predecessors of v in order.
func (g *Graph[V]) Predecessors(v V) []V {
	return g.sorted(g.pred[v])
}

// Reaches reports whether there is a directed path from u to v. Every vertex
// reaches itself.
func (g *Graph[V]) Reaches(u, v V) bool {
	if u == v {
		return g.Contains(u)
	}
	found := false
	g.Visit(u, func(w V) {
		if w == v {
			found = true
		}
	})
	return found
}

// Visit performs a depth-first traversal from v, invoking fn once for every
// reachable vertex, v included. Vertices are expanded in the graph's order.
func (g *Graph[V]) Visit(v V, fn func(V)) {
	if !g.Contains(v) {
		return
	}
	seen := make(map[V]struct{})
	g.visit(v, seen, fn)
}

func (g *Graph[V]) visit(v V, seen map[V]struct{}, fn func(V)) {
	if _, ok := seen[v]; ok {
		return
	}
	seen[v] = struct{}{}
	fn(v)
	for _, s := range g.Successors(v) {
		g.visit(s, seen, fn)
	}
}

// Clique returns, in order, all vertices w such that v reaches w and w
// reaches v, i.e. the members of the strongly connected component of v found
// by pairwise mutual reachability.
func (g *Graph[V]) Clique(v V) []V {
	var out []V
	for _, w := range g.Vertices() {
		if g.Reaches(v, w) && g.Reaches(w, v) {
			out = append(out, w)
		}
	}
	return out
}
