// Package analysis provides the dependency analyses of the middle-end: the
// relation precedence graph, its strongly-connected-component decomposition,
// a topological schedule with a cost metric, I/O classification, recursive
// clause detection, redundancy detection and clause normalisation.
//
// Analyses attach to a translation unit through its lazy cache; use the
// typed accessors (DetailsOf, PrecedenceOf, SCCsOf, ...) to obtain them.
// Analyses read the program but never mutate it.
package analysis

import (
	"strings"

	"github.com/gitrdm/godatalog/pkg/ast"
)

const detailCacheName = "relation-detail"

// RelationDetailCache is a bidirectional index from qualified names to
// relation declarations and from relations to the clauses defining them.
type RelationDetailCache struct {
	byName    map[string]*ast.Relation
	byClauses map[string][]*ast.Clause
}

// DetailsOf returns the cached relation detail analysis of the unit.
func DetailsOf(tu *ast.TranslationUnit) *RelationDetailCache {
	return tu.Analysis(detailCacheName, func() ast.Analysis {
		return &RelationDetailCache{}
	}).(*RelationDetailCache)
}

// Name implements ast.Analysis.
func (c *RelationDetailCache) Name() string { return detailCacheName }

// Run implements ast.Analysis.
func (c *RelationDetailCache) Run(tu *ast.TranslationUnit) {
	c.byName = make(map[string]*ast.Relation)
	c.byClauses = make(map[string][]*ast.Clause)
	for _, rel := range tu.Program.Relations {
		c.byName[rel.Name.String()] = rel
	}
	for _, clause := range tu.Program.Clauses {
		key := clause.Head.Name.String()
		c.byClauses[key] = append(c.byClauses[key], clause)
	}
}

// Relation resolves a qualified name, returning nil if it does not resolve.
func (c *RelationDetailCache) Relation(name ast.QualifiedName) *ast.Relation {
	return c.byName[name.String()]
}

// Clauses returns the clauses defining the named relation in program order.
func (c *RelationDetailCache) Clauses(name ast.QualifiedName) []*ast.Clause {
	return c.byClauses[name.String()]
}

func (c *RelationDetailCache) String() string {
	var sb strings.Builder
	for name, clauses := range c.byClauses {
		sb.WriteString(name)
		sb.WriteString(":\n")
		for _, cl := range clauses {
			sb.WriteString("\t")
			sb.WriteString(cl.String())
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
