package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	"github.com/gitrdm/godatalog/pkg/ast"
)

const sccName = "scc-graph"

// SCCGraph is the DAG of strongly connected components over the precedence
// graph, computed with Gabow's linear-time algorithm. An SCC is recursive
// unless it has exactly one member with no self-loop.
type SCCGraph struct {
	prec *PrecedenceGraph

	relationSCC map[*ast.Relation]int
	members     [][]*ast.Relation
	succ        []map[int]struct{}
	pred        []map[int]struct{}
}

// SCCsOf returns the cached SCC decomposition of the unit.
func SCCsOf(tu *ast.TranslationUnit) *SCCGraph {
	return tu.Analysis(sccName, func() ast.Analysis {
		return &SCCGraph{}
	}).(*SCCGraph)
}

// Name implements ast.Analysis.
func (s *SCCGraph) Name() string { return sccName }

// Run implements ast.Analysis.
func (s *SCCGraph) Run(tu *ast.TranslationUnit) {
	s.prec = PrecedenceOf(tu)
	s.relationSCC = make(map[*ast.Relation]int)
	s.members = nil

	// Gabow's algorithm: two stacks, preorder numbering, components emitted
	// when the path stack's top equals the current root.
	state := &gabowState{
		graph:    s.prec,
		preorder: make(map[*ast.Relation]int),
		sccOf:    s.relationSCC,
	}
	for _, rel := range tu.Program.Relations {
		state.preorder[rel] = -1
		s.relationSCC[rel] = -1
	}
	for _, rel := range tu.Program.Relations {
		if state.preorder[rel] == -1 {
			state.strongConnect(rel)
		}
	}

	n := state.numSCCs
	s.members = make([][]*ast.Relation, n)
	s.succ = make([]map[int]struct{}, n)
	s.pred = make([]map[int]struct{}, n)
	for i := 0; i < n; i++ {
		s.succ[i] = make(map[int]struct{})
		s.pred[i] = make(map[int]struct{})
	}
	for _, rel := range tu.Program.Relations {
		s.members[s.relationSCC[rel]] = append(s.members[s.relationSCC[rel]], rel)
	}
	for _, u := range tu.Program.Relations {
		for _, v := range s.prec.Graph().Predecessors(u) {
			sccU, sccV := s.relationSCC[u], s.relationSCC[v]
			if sccU != sccV {
				s.pred[sccU][sccV] = struct{}{}
				s.succ[sccV][sccU] = struct{}{}
			}
		}
	}
}

type gabowState struct {
	graph    *PrecedenceGraph
	preorder map[*ast.Relation]int
	sccOf    map[*ast.Relation]int
	counter  int
	numSCCs  int
	s        []*ast.Relation
	p        []*ast.Relation
}

func (g *gabowState) strongConnect(w *ast.Relation) {
	g.preorder[w] = g.counter
	g.counter++
	g.s = append(g.s, w)
	g.p = append(g.p, w)

	for _, t := range g.graph.Graph().Predecessors(w) {
		if g.preorder[t] == -1 {
			g.strongConnect(t)
		} else if g.sccOf[t] == -1 {
			for g.preorder[g.p[len(g.p)-1]] > g.preorder[t] {
				g.p = g.p[:len(g.p)-1]
			}
		}
	}

	if g.p[len(g.p)-1] != w {
		return
	}
	g.p = g.p[:len(g.p)-1]

	for {
		v := g.s[len(g.s)-1]
		g.s = g.s[:len(g.s)-1]
		g.sccOf[v] = g.numSCCs
		if v == w {
			break
		}
	}
	g.numSCCs++
}

// NumSCCs returns the number of components.
func (s *SCCGraph) NumSCCs() int { return len(s.members) }

// SCCOf returns the component index of a relation, or -1 for an unknown
// relation.
func (s *SCCGraph) SCCOf(rel *ast.Relation) int {
	if idx, ok := s.relationSCC[rel]; ok {
		return idx
	}
	return -1
}

// Members returns the relations of a component sorted by name.
func (s *SCCGraph) Members(scc int) []*ast.Relation {
	out := make([]*ast.Relation, len(s.members[scc]))
	copy(out, s.members[scc])
	sort.Slice(out, func(i, j int) bool { return out[i].Name.Compare(out[j].Name) < 0 })
	return out
}

func sortedSet(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Successors returns the component indices directly depending on scc.
func (s *SCCGraph) Successors(scc int) []int { return sortedSet(s.succ[scc]) }

// Predecessors returns the component indices scc directly depends on.
func (s *SCCGraph) Predecessors(scc int) []int { return sortedSet(s.pred[scc]) }

// Recursive reports whether the component needs fixpoint evaluation: it has
// more than one member or its single member has a self-loop.
func (s *SCCGraph) Recursive(scc int) bool {
	if len(s.members[scc]) > 1 {
		return true
	}
	rel := s.members[scc][0]
	return s.prec.Graph().ContainsEdge(rel, rel)
}

// String renders the SCC DAG as a DOT digraph for the debug report.
func (s *SCCGraph) String() string {
	dg := dot.NewGraph(dot.Directed)
	nodes := make([]dot.Node, s.NumSCCs())
	for i := 0; i < s.NumSCCs(); i++ {
		names := make([]string, 0, len(s.members[i]))
		for _, rel := range s.Members(i) {
			names = append(names, rel.Name.String())
		}
		nodes[i] = dg.Node(fmt.Sprintf("scc_%d", i)).Label(strings.Join(names, ",\n"))
	}
	for i := 0; i < s.NumSCCs(); i++ {
		for _, succ := range s.Successors(i) {
			dg.Edge(nodes[i], nodes[succ])
		}
	}
	return dg.String()
}
