package transform

import (
	"fmt"
	"sort"

	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/ast/analysis"
)

// RemoveRelationCopies eliminates relations of the shape
//
//	r(x1,...,xn) :- s(x1,...,xn).
//
// where r has exactly that one clause, no functional dependencies and takes
// no part in I/O. Alias chains compose transitively; every reference to an
// aliased relation is rewritten to its canonical target and the now-unused
// relations are deleted. Copy cycles are broken by emptying the cycle
// representative's definition; a warning diagnostic names the cycle.
type RemoveRelationCopies struct{}

// Name implements Transformer.
func (*RemoveRelationCopies) Name() string { return "remove-relation-copies" }

// Transform implements Transformer.
func (t *RemoveRelationCopies) Transform(tu *ast.TranslationUnit) bool {
	ioTypes := analysis.IOTypesOf(tu)

	// A clause is a copy rule when head and body atom carry the identical
	// list of distinct variables (records decompose into their variables).
	isCopyHead := func(args []ast.Argument) bool {
		seen := make(map[string]bool)
		stack := make([]ast.Argument, len(args))
		copy(stack, args)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			switch a := cur.(type) {
			case *ast.Variable:
				if seen[a.Name] {
					return false
				}
				seen[a.Name] = true
			case *ast.RecordInit:
				stack = append(stack, a.Args...)
			default:
				return false
			}
		}
		return true
	}

	directAlias := make(map[string]ast.QualifiedName)
	for _, rel := range tu.Program.Relations {
		if len(rel.Dependencies) > 0 || ioTypes.IsIO(rel) {
			continue
		}
		clauses := tu.Program.ClausesFor(rel.Name)
		if len(clauses) != 1 {
			continue
		}
		cl := clauses[0]
		atoms := cl.BodyAtoms()
		if cl.IsFact() || len(cl.Body) != 1 || len(atoms) != 1 {
			continue
		}
		atom := atoms[0]
		if len(cl.Head.Args) != len(atom.Args) {
			continue
		}
		equal := true
		for i := range cl.Head.Args {
			if !cl.Head.Args[i].Equal(atom.Args[i]) {
				equal = false
				break
			}
		}
		if equal && isCopyHead(cl.Head.Args) {
			directAlias[cl.Head.Name.String()] = atom.Name
		}
	}
	if len(directAlias) == 0 {
		return false
	}

	// Compose chains; a chain folding back on itself marks a cycle whose
	// representative keeps an empty definition.
	aliasOf := make(map[string]ast.QualifiedName)
	cycleReps := make(map[string]bool)
	keys := make([]string, 0, len(directAlias))
	for k := range directAlias {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, from := range keys {
		target := directAlias[from]
		visited := map[string]bool{from: true, target.String(): true}
		next, ok := directAlias[target.String()]
		for ok {
			if visited[next.String()] {
				cycleReps[target.String()] = true
				break
			}
			target = next
			visited[target.String()] = true
			next, ok = directAlias[target.String()]
		}
		aliasOf[from] = target
	}

	// Rewrite every atom referring to an alias. Clauses defining an aliased
	// relation are about to be deleted wholesale, so they keep their heads.
	for _, clause := range tu.Program.Clauses {
		if _, isAlias := aliasOf[clause.Head.Name.String()]; isAlias && !cycleReps[clause.Head.Name.String()] {
			continue
		}
		ast.ForEach[*ast.Atom](clause, func(atom *ast.Atom) {
			if target, ok := aliasOf[atom.Name.String()]; ok {
				atom.Name = target
			}
		})
	}

	for rep := range cycleReps {
		name := ast.ParseQualifiedName(rep)
		for _, cl := range tu.Program.ClausesFor(name) {
			tu.Program.RemoveClause(cl)
		}
		tu.Report.AddWarning(
			fmt.Sprintf("relation copy cycle through %s; its definition is emptied", rep),
			ast.SrcLoc{})
	}

	for _, from := range keys {
		if !cycleReps[from] {
			tu.Program.RemoveRelation(ast.ParseQualifiedName(from))
		}
	}
	return true
}
