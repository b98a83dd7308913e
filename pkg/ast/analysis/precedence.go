package analysis

import (
	"github.com/emicklei/dot"

	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/graph"
)

const precedenceName = "precedence-graph"

// PrecedenceGraph is the dependency graph over relations: an edge u -> v
// exists iff some clause defining v references u in its body or in an atom
// embedded in a head argument.
type PrecedenceGraph struct {
	g *graph.Graph[*ast.Relation]
}

// PrecedenceOf returns the cached precedence graph of the unit.
func PrecedenceOf(tu *ast.TranslationUnit) *PrecedenceGraph {
	return tu.Analysis(precedenceName, func() ast.Analysis {
		return &PrecedenceGraph{}
	}).(*PrecedenceGraph)
}

// Name implements ast.Analysis.
func (p *PrecedenceGraph) Name() string { return precedenceName }

// Run implements ast.Analysis.
func (p *PrecedenceGraph) Run(tu *ast.TranslationUnit) {
	details := DetailsOf(tu)
	p.g = graph.NewWith[*ast.Relation](func(a, b *ast.Relation) bool {
		return a.Name.Compare(b.Name) < 0
	})
	for _, rel := range tu.Program.Relations {
		p.g.InsertVertex(rel)
		for _, clause := range details.Clauses(rel.Name) {
			for _, lit := range clause.Body {
				ast.ForEach[*ast.Atom](lit, func(atom *ast.Atom) {
					if src := details.Relation(atom.Name); src != nil {
						p.g.InsertEdge(src, rel)
					}
				})
			}
			// Atoms can also hide inside head arguments.
			for _, arg := range clause.Head.Args {
				ast.ForEach[*ast.Atom](arg, func(atom *ast.Atom) {
					if src := details.Relation(atom.Name); src != nil {
						p.g.InsertEdge(src, rel)
					}
				})
			}
		}
	}
}

// Graph exposes the underlying relation graph.
func (p *PrecedenceGraph) Graph() *graph.Graph[*ast.Relation] {
	return p.g
}

// String renders the graph as a DOT digraph for the debug report.
func (p *PrecedenceGraph) String() string {
	dg := dot.NewGraph(dot.Directed)
	nodes := make(map[*ast.Relation]dot.Node)
	for _, rel := range p.g.Vertices() {
		nodes[rel] = dg.Node(rel.Name.String())
	}
	for _, rel := range p.g.Vertices() {
		for _, succ := range p.g.Successors(rel) {
			dg.Edge(nodes[rel], nodes[succ])
		}
	}
	return dg.String()
}
