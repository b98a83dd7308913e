package transform

import (
	"github.com/gitrdm/godatalog/pkg/ast"
)

// tautologyName is the synthetic nullary relation holding a single fact; it
// gives atomless aggregate bodies something to iterate over.
const tautologyName = "+Tautology"

// AddNullariesToAtomlessAggregates appends a nullary tautology atom to every
// aggregate whose body contains no atom, so that the lowering always has an
// iteration source.
type AddNullariesToAtomlessAggregates struct{}

// Name implements Transformer.
func (*AddNullariesToAtomlessAggregates) Name() string { return "add-nullaries" }

// Transform implements Transformer.
func (t *AddNullariesToAtomlessAggregates) Transform(tu *ast.TranslationUnit) bool {
	changed := false
	ast.ForEach[*ast.Aggregator](tu.Program, func(agg *ast.Aggregator) {
		for _, lit := range agg.Body {
			if _, ok := lit.(*ast.Atom); ok {
				return
			}
		}
		changed = true
		name := ast.ParseQualifiedName(tautologyName)
		if tu.Program.Relation(name) == nil {
			tu.Program.AddRelation(&ast.Relation{Name: name})
			tu.Program.AddClause(ast.NewClause(&ast.Atom{Name: name}))
		}
		agg.Body = append(agg.Body, &ast.Atom{Name: name})
	})
	return changed
}
