package transform

import (
	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/ast/analysis"
	"github.com/gitrdm/godatalog/pkg/graph"
)

// existsPrefix derives the nullary surrogate name of an existential
// relation.
const existsPrefix = "+?exists_"

// ReduceExistentials finds relations whose tuples are only ever tested for
// existence — every non-recursive occurrence uses nothing but unnamed
// variables — and replaces them with nullary surrogates, turning set
// maintenance into a single flag.
//
// Relations referenced inside aggregators are conservatively excluded; the
// unnamed-variable scoping of aggregate bodies interacts badly with the
// rewrite.
type ReduceExistentials struct{}

// Name implements Transformer.
func (*ReduceExistentials) Name() string { return "reduce-existentials" }

// Transform implements Transformer.
func (t *ReduceExistentials) Transform(tu *ast.TranslationUnit) bool {
	ioTypes := analysis.IOTypesOf(tu)
	recursive := analysis.RecursiveOf(tu)

	isExistentialAtom := func(atom *ast.Atom) bool {
		for _, arg := range atom.Args {
			if _, ok := arg.(*ast.UnnamedVariable); !ok {
				return false
			}
		}
		return true
	}

	// Dependency graph: r -> s iff r uses s non-existentially in a recursive
	// clause. Non-existential uses in non-recursive clauses poison s
	// directly.
	relationGraph := graph.New[string]()
	for _, rel := range tu.Program.Relations {
		relationGraph.InsertVertex(rel.Name.String())
	}

	irreducibleSeeds := make(map[string]bool)
	for _, rel := range tu.Program.Relations {
		if ioTypes.IsIO(rel) {
			irreducibleSeeds[rel.Name.String()] = true
		}
		for _, clause := range tu.Program.ClausesFor(rel.Name) {
			isRecursive := recursive.Recursive(clause)
			for _, lit := range clause.Body {
				ast.ForEach[*ast.Atom](lit, func(atom *ast.Atom) {
					if atom.Name.EqualName(clause.Head.Name) || isExistentialAtom(atom) {
						return
					}
					if isRecursive {
						relationGraph.InsertEdge(clause.Head.Name.String(), atom.Name.String())
					} else {
						irreducibleSeeds[atom.Name.String()] = true
					}
				})
			}
		}
	}
	ast.ForEach[*ast.Aggregator](tu.Program, func(agg *ast.Aggregator) {
		for _, lit := range agg.Body {
			ast.ForEach[*ast.Atom](lit, func(atom *ast.Atom) {
				irreducibleSeeds[atom.Name.String()] = true
			})
		}
	})

	irreducible := make(map[string]bool)
	for seed := range irreducibleSeeds {
		relationGraph.Visit(seed, func(name string) {
			irreducible[name] = true
		})
	}

	existential := make(map[string]bool)
	for _, rel := range tu.Program.Relations {
		if len(tu.Program.ClausesFor(rel.Name)) == 0 || rel.Arity() == 0 {
			continue
		}
		if !irreducible[rel.Name.String()] {
			existential[rel.Name.String()] = true
		}
	}
	if len(existential) == 0 {
		return false
	}

	// Create the surrogates and clone each non-recursive clause under the
	// surrogate head.
	relations := make([]*ast.Relation, len(tu.Program.Relations))
	copy(relations, tu.Program.Relations)
	for _, rel := range relations {
		if !existential[rel.Name.String()] {
			continue
		}
		surrogateName := rel.Name.WithPrefixedHead(existsPrefix)
		surrogate := &ast.Relation{Name: surrogateName}
		for _, clause := range tu.Program.ClausesFor(rel.Name) {
			if recursive.Recursive(clause) {
				continue
			}
			cloned := ast.NewClause(&ast.Atom{Name: surrogateName})
			for _, lit := range clause.Body {
				cloned.AddToBody(lit.Clone().(ast.Literal))
			}
			if clause.Plan != nil {
				cloned.Plan = clause.Plan.Clone().(*ast.ExecutionPlan)
			}
			tu.Program.AddClause(cloned)
		}
		tu.Program.AddRelation(surrogate)
	}

	// Rename remaining references; clauses of the reduced relations stay
	// untouched as they are deleted below.
	for _, clause := range tu.Program.Clauses {
		if existential[clause.Head.Name.String()] {
			continue
		}
		ast.ForEach[*ast.Atom](clause, func(atom *ast.Atom) {
			if existential[atom.Name.String()] {
				atom.Name = atom.Name.WithPrefixedHead(existsPrefix)
				atom.Args = nil
			}
		})
	}

	for name := range existential {
		tu.Program.RemoveRelation(ast.ParseQualifiedName(name))
	}
	return true
}
