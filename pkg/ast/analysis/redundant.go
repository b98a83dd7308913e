package analysis

import (
	"sort"
	"strings"

	"github.com/gitrdm/godatalog/pkg/ast"
)

const redundantName = "redundant-relations"

// RedundantRelations finds relations from which no output relation is
// reachable in the precedence graph; they can never influence results.
type RedundantRelations struct {
	redundant map[string]bool
}

// RedundantOf returns the cached redundancy analysis of the unit.
func RedundantOf(tu *ast.TranslationUnit) *RedundantRelations {
	return tu.Analysis(redundantName, func() ast.Analysis {
		return &RedundantRelations{}
	}).(*RedundantRelations)
}

// Name implements ast.Analysis.
func (r *RedundantRelations) Name() string { return redundantName }

// Run implements ast.Analysis.
func (r *RedundantRelations) Run(tu *ast.TranslationUnit) {
	prec := PrecedenceOf(tu)
	ioTypes := IOTypesOf(tu)

	// Reverse BFS from the outputs; everything unreached is redundant.
	notRedundant := make(map[*ast.Relation]bool)
	var work []*ast.Relation
	for _, rel := range tu.Program.Relations {
		if ioTypes.IsOutput(rel) || ioTypes.IsPrintSize(rel) {
			work = append(work, rel)
		}
	}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]
		if notRedundant[cur] {
			continue
		}
		notRedundant[cur] = true
		for _, pred := range prec.Graph().Predecessors(cur) {
			if !notRedundant[pred] {
				work = append(work, pred)
			}
		}
	}

	r.redundant = make(map[string]bool)
	for _, rel := range tu.Program.Relations {
		if !notRedundant[rel] {
			r.redundant[rel.Name.String()] = true
		}
	}
}

// IsRedundant reports whether the named relation is redundant.
func (r *RedundantRelations) IsRedundant(name ast.QualifiedName) bool {
	return r.redundant[name.String()]
}

// Names returns the redundant relation names, sorted.
func (r *RedundantRelations) Names() []ast.QualifiedName {
	keys := make([]string, 0, len(r.redundant))
	for k := range r.redundant {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ast.QualifiedName, len(keys))
	for i, k := range keys {
		out[i] = ast.ParseQualifiedName(k)
	}
	return out
}

func (r *RedundantRelations) String() string {
	names := make([]string, 0, len(r.redundant))
	for _, n := range r.Names() {
		names = append(names, n.String())
	}
	return "{" + strings.Join(names, ", ") + "}\n"
}
