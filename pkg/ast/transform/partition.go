package transform

import (
	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/graph"
)

// PartitionBodyLiterals extracts the connected components of a clause's
// variable graph that share no variable with the head into fresh nullary
// relations:
//
//	a(x) :- b(x), c(y), d(y), e(z), f(z).
//
// becomes
//
//	a(x) :- b(x), +disconnected0(), +disconnected1().
//	+disconnected0() :- c(y), d(y).
//	+disconnected1() :- e(z), f(z).
//
// The extracted bodies evaluate once instead of once per head binding.
type PartitionBodyLiterals struct{}

// Name implements Transformer.
func (*PartitionBodyLiterals) Name() string { return "partition-body-literals" }

// Transform implements Transformer.
func (t *PartitionBodyLiterals) Transform(tu *ast.TranslationUnit) bool {
	changed := false
	var clausesToAdd []*ast.Clause
	var clausesToRemove []*ast.Clause

	for _, clause := range tu.Program.Clauses {
		// Variable graph: two variables connect iff they co-occur in the
		// head or any body literal.
		varGraph := graph.New[string]()
		for _, name := range ast.VariablesOf(clause) {
			varGraph.InsertVertex(name)
		}
		literals := make([]ast.Literal, 0, len(clause.Body)+1)
		literals = append(literals, clause.Body...)
		literals = append(literals, clause.Head)
		for _, lit := range literals {
			vars := ast.VariablesOf(lit)
			for i := 1; i < len(vars); i++ {
				varGraph.InsertEdge(vars[0], vars[i])
				varGraph.InsertEdge(vars[i], vars[0])
			}
		}

		seen := make(map[string]bool)
		headComponent := make(map[string]bool)
		headVars := ast.VariablesOf(clause.Head)
		if len(headVars) > 0 {
			varGraph.Visit(headVars[0], func(v string) {
				headComponent[v] = true
				seen[v] = true
			})
		}
		for _, v := range headVars {
			headComponent[v] = true
			seen[v] = true
		}

		var components []map[string]bool
		for _, v := range ast.VariablesOf(clause) {
			if seen[v] {
				continue
			}
			component := make(map[string]bool)
			varGraph.Visit(v, func(w string) {
				component[w] = true
				seen[w] = true
			})
			components = append(components, component)
		}
		if len(components) == 0 {
			continue
		}

		changed = true
		var replacementAtoms []*ast.Atom
		for _, component := range components {
			name := tu.FreshRelationName("+disconnected")
			tu.Program.AddRelation(&ast.Relation{Name: name})

			extracted := ast.NewClause(&ast.Atom{Name: name})
			for _, lit := range clause.Body {
				for _, v := range ast.VariablesOf(lit) {
					if component[v] {
						extracted.AddToBody(lit.Clone().(ast.Literal))
						break
					}
				}
			}
			clausesToAdd = append(clausesToAdd, extracted)
			replacementAtoms = append(replacementAtoms, &ast.Atom{Name: name})
		}

		replacement := clause.CloneHead()
		for _, lit := range clause.Body {
			vars := ast.VariablesOf(lit)
			keep := len(vars) == 0
			for _, v := range vars {
				if headComponent[v] {
					keep = true
					break
				}
			}
			if keep {
				replacement.AddToBody(lit.Clone().(ast.Literal))
			}
		}
		for _, atom := range replacementAtoms {
			replacement.AddToBody(atom)
		}
		clausesToAdd = append(clausesToAdd, replacement)
		clausesToRemove = append(clausesToRemove, clause)
	}

	for _, c := range clausesToAdd {
		tu.Program.AddClause(c)
	}
	for _, c := range clausesToRemove {
		tu.Program.RemoveClause(c)
	}
	return changed
}
