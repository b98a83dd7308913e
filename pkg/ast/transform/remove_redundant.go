package transform

import (
	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/ast/analysis"
)

// RemoveRedundantRelations deletes every relation from which no output is
// reachable in the precedence graph, together with its clauses and
// directives.
type RemoveRedundantRelations struct{}

// Name implements Transformer.
func (*RemoveRedundantRelations) Name() string { return "remove-redundant-relations" }

// Transform implements Transformer.
func (t *RemoveRedundantRelations) Transform(tu *ast.TranslationUnit) bool {
	redundant := analysis.RedundantOf(tu)
	changed := false
	for _, name := range redundant.Names() {
		if tu.Program.RemoveRelation(name) {
			changed = true
		}
	}
	return changed
}
