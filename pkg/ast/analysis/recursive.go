package analysis

import (
	"strings"

	"github.com/gitrdm/godatalog/pkg/ast"
)

const recursiveName = "recursive-clauses"

// RecursiveClauses marks every clause whose head relation is reachable from
// the relations referenced in its body by following clause dependencies.
type RecursiveClauses struct {
	recursive map[*ast.Clause]bool
}

// RecursiveOf returns the cached recursive-clause analysis of the unit.
func RecursiveOf(tu *ast.TranslationUnit) *RecursiveClauses {
	return tu.Analysis(recursiveName, func() ast.Analysis {
		return &RecursiveClauses{}
	}).(*RecursiveClauses)
}

// Name implements ast.Analysis.
func (r *RecursiveClauses) Name() string { return recursiveName }

// Run implements ast.Analysis.
func (r *RecursiveClauses) Run(tu *ast.TranslationUnit) {
	details := DetailsOf(tu)
	r.recursive = make(map[*ast.Clause]bool)
	for _, clause := range tu.Program.Clauses {
		if r.computeIsRecursive(clause, details) {
			r.recursive[clause] = true
		}
	}
}

// Recursive reports whether the clause was classified recursive.
func (r *RecursiveClauses) Recursive(clause *ast.Clause) bool {
	return r.recursive[clause]
}

func (r *RecursiveClauses) computeIsRecursive(clause *ast.Clause, details *RelationDetailCache) bool {
	target := details.Relation(clause.Head.Name)
	if target == nil {
		return false
	}

	reached := make(map[*ast.Relation]bool)
	var worklist []*ast.Relation
	for _, atom := range clause.BodyAtoms() {
		rel := details.Relation(atom.Name)
		if rel == target {
			return true
		}
		if rel != nil {
			worklist = append(worklist, rel)
		}
	}

	for len(worklist) > 0 {
		cur := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if reached[cur] {
			continue
		}
		reached[cur] = true
		for _, cl := range details.Clauses(cur.Name) {
			for _, atom := range cl.BodyAtoms() {
				rel := details.Relation(atom.Name)
				if rel == target {
					return true
				}
				if rel != nil {
					worklist = append(worklist, rel)
				}
			}
		}
	}
	return false
}

func (r *RecursiveClauses) String() string {
	var sb strings.Builder
	for clause := range r.recursive {
		sb.WriteString(clause.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
