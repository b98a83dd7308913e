package transform

import (
	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/sips"
)

// ReorderLiterals rewrites each clause body into the atom order chosen by
// the configured SIPS metric, keeping non-atom literals at their original
// positions. Clauses carrying an author-supplied execution plan are left
// untouched. When a profile log is configured a second, profile-guided pass
// runs after the static one.
type ReorderLiterals struct{}

// Name implements Transformer.
func (*ReorderLiterals) Name() string { return "reorder-literals" }

// Transform implements Transformer.
func (t *ReorderLiterals) Transform(tu *ast.TranslationUnit) bool {
	metricName := tu.Opts.SIPS
	if metricName == "" {
		metricName = sips.DefaultMetric
	}
	changed := t.reorderAll(tu, sips.New(metricName, tu))
	if tu.Opts.ProfileUsePath != "" {
		changed = t.reorderAll(tu, sips.New("profile-use", tu)) || changed
	}
	return changed
}

func (t *ReorderLiterals) reorderAll(tu *ast.TranslationUnit, metric sips.Metric) bool {
	changed := false
	clauses := make([]*ast.Clause, len(tu.Program.Clauses))
	copy(clauses, tu.Program.Clauses)
	for _, clause := range clauses {
		if clause.Plan != nil {
			continue
		}
		order := sips.Reordering(metric, clause)
		identity := true
		for i, pos := range order {
			if pos != i {
				identity = false
				break
			}
		}
		if identity {
			continue
		}
		tu.Program.RemoveClause(clause)
		tu.Program.AddClause(ast.ReorderAtoms(clause, order))
		changed = true
	}
	return changed
}
