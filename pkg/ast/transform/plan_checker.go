package transform

import (
	"fmt"

	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/ast/analysis"
)

// ExecutionPlanChecker validates author-supplied execution plans on
// recursive clauses: every order must be a complete permutation of the
// clause's body-atom positions, and no plan version may reach the number of
// same-stratum atom occurrences. Violations become error diagnostics; the
// pass never changes the program.
type ExecutionPlanChecker struct{}

// Name implements Transformer.
func (*ExecutionPlanChecker) Name() string { return "execution-plan-checker" }

// Transform implements Transformer.
func (t *ExecutionPlanChecker) Transform(tu *ast.TranslationUnit) bool {
	schedule := analysis.ScheduleOf(tu)
	recursive := analysis.RecursiveOf(tu)

	for _, step := range schedule.Steps() {
		stratum := make(map[*ast.Relation]bool, len(step.Computed))
		for _, rel := range step.Computed {
			stratum[rel] = true
		}
		for _, rel := range step.Computed {
			for _, clause := range tu.Program.ClausesFor(rel.Name) {
				if !recursive.Recursive(clause) || clause.Plan == nil {
					continue
				}
				t.checkClause(tu, clause, stratum)
			}
		}
	}
	return false
}

func (t *ExecutionPlanChecker) checkClause(tu *ast.TranslationUnit, clause *ast.Clause, stratum map[*ast.Relation]bool) {
	details := analysis.DetailsOf(tu)
	versionCount := 0
	for _, atom := range clause.BodyAtoms() {
		if stratum[details.Relation(atom.Name)] {
			versionCount++
		}
	}

	numAtoms := len(clause.BodyAtoms())
	maxVersion := -1
	for _, version := range clause.Plan.Versions() {
		if version > maxVersion {
			maxVersion = version
		}
		order := clause.Plan.Orders[version].Order
		complete := len(order) == numAtoms
		if complete {
			present := make(map[int]bool, len(order))
			for _, pos := range order {
				present[pos] = true
			}
			for i := 1; i <= len(order); i++ {
				if !present[i] {
					complete = false
					break
				}
			}
		}
		if !complete {
			tu.Report.AddError(
				fmt.Sprintf("invalid execution order in plan of clause %s", clause), ast.SrcLoc{})
		}
	}

	if versionCount <= maxVersion {
		for _, version := range clause.Plan.Versions() {
			if version >= versionCount {
				tu.Report.Add(ast.Diagnostic{
					Severity: ast.SeverityError,
					Primary: ast.DiagnosticMessage{
						Message: fmt.Sprintf("execution plan for version %d", version),
					},
					Secondary: []ast.DiagnosticMessage{{
						Message: fmt.Sprintf("only versions 0..%d permitted", versionCount-1),
					}},
				})
			}
		}
	}
}
