package transform

import (
	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/ast/analysis"
)

// RemoveEmptyRelations deletes relations that can never hold tuples — no
// clauses and not declared input — and simplifies their uses: clauses with a
// positive atom over an empty relation are dropped, negations of empty
// relations are removed from bodies.
type RemoveEmptyRelations struct{}

// Name implements Transformer.
func (*RemoveEmptyRelations) Name() string { return "remove-empty-relations" }

// Transform implements Transformer.
func (t *RemoveEmptyRelations) Transform(tu *ast.TranslationUnit) bool {
	ioTypes := analysis.IOTypesOf(tu)
	changed := false

	var emptyNames []ast.QualifiedName
	relations := make([]*ast.Relation, len(tu.Program.Relations))
	copy(relations, tu.Program.Relations)
	for _, rel := range relations {
		if len(tu.Program.ClausesFor(rel.Name)) > 0 || ioTypes.IsInput(rel) {
			continue
		}
		emptyNames = append(emptyNames, rel.Name)

		usedInAggregate := false
		ast.ForEach[*ast.Aggregator](tu.Program, func(agg *ast.Aggregator) {
			for _, lit := range agg.Body {
				ast.ForEach[*ast.Atom](lit, func(atom *ast.Atom) {
					if atom.Name.EqualName(rel.Name) {
						usedInAggregate = true
					}
				})
			}
		})
		if !usedInAggregate && !ioTypes.IsOutput(rel) && !ioTypes.IsPrintSize(rel) {
			tu.Program.RemoveRelation(rel.Name)
			changed = true
		}
	}

	for _, name := range emptyNames {
		changed = t.removeUses(tu, name) || changed
	}
	return changed
}

// removeUses drops clauses reading the empty relation positively and strips
// negations over it.
func (t *RemoveEmptyRelations) removeUses(tu *ast.TranslationUnit, empty ast.QualifiedName) bool {
	changed := false
	clauses := make([]*ast.Clause, len(tu.Program.Clauses))
	copy(clauses, tu.Program.Clauses)
	for _, clause := range clauses {
		removed := false
		for _, lit := range clause.Body {
			if atom, ok := lit.(*ast.Atom); ok && atom.Name.EqualName(empty) {
				tu.Program.RemoveClause(clause)
				removed = true
				changed = true
				break
			}
		}
		if removed {
			continue
		}

		hasNegation := false
		for _, lit := range clause.Body {
			if neg, ok := lit.(*ast.Negation); ok && neg.Atom.Name.EqualName(empty) {
				hasNegation = true
				break
			}
		}
		if !hasNegation {
			continue
		}
		res := clause.CloneHead()
		for _, lit := range clause.Body {
			if neg, ok := lit.(*ast.Negation); ok && neg.Atom.Name.EqualName(empty) {
				continue
			}
			res.AddToBody(lit.Clone().(ast.Literal))
		}
		tu.Program.RemoveClause(clause)
		tu.Program.AddClause(res)
		changed = true
	}
	return changed
}
