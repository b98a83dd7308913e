package transform

import (
	"github.com/gitrdm/godatalog/pkg/ast"
)

// ResolveAliases performs Robinson-style unification over the equality
// constraints of each clause body, substitutes the resulting bindings,
// removes trivial t = t constraints and finally extracts complex terms from
// atom arguments into fresh equalities. Applying the pass twice yields the
// same clause as applying it once.
type ResolveAliases struct{}

// Name implements Transformer.
func (*ResolveAliases) Name() string { return "resolve-aliases" }

// Transform implements Transformer.
func (t *ResolveAliases) Transform(tu *ast.TranslationUnit) bool {
	changed := false
	clauses := make([]*ast.Clause, len(tu.Program.Clauses))
	copy(clauses, tu.Program.Clauses)
	for _, clause := range clauses {
		rel := tu.Program.Relation(clause.Head.Name)
		if rel != nil && rel.HasQualifier(ast.QualifierInline) {
			continue
		}
		resolved := resolveAliases(clause)
		cleaned := removeTrivialEquality(resolved)
		normalised := removeComplexTermsInAtoms(tu, cleaned)
		if !normalised.Equal(clause) {
			tu.Program.RemoveClause(clause)
			tu.Program.AddClause(normalised)
			changed = true
		}
	}
	return changed
}

// substitution maps variable names to replacement terms.
type substitution map[string]ast.Argument

// apply rewrites every variable the substitution maps inside a cloned copy
// of the node.
func (s substitution) apply(n ast.Node) ast.Node {
	return ast.MapDeep(n.Clone(), func(cur ast.Node) ast.Node {
		if v, ok := cur.(*ast.Variable); ok {
			if term, ok := s[v.Name]; ok {
				return term.Clone()
			}
		}
		return cur
	})
}

// compose appends the mapping var -> term, applying it to the right-hand
// sides already recorded.
func (s substitution) compose(name string, term ast.Argument) {
	single := substitution{name: term}
	for v, t := range s {
		s[v] = single.apply(t).(ast.Argument)
	}
	if _, ok := s[name]; !ok {
		s[name] = term.Clone().(ast.Argument)
	}
}

type equation struct {
	lhs, rhs ast.Argument
}

func isGenerator(arg ast.Argument) bool {
	if _, ok := arg.(*ast.Aggregator); ok {
		return true
	}
	if f, ok := arg.(*ast.IntrinsicFunctor); ok {
		return f.Op.IsMultiResult()
	}
	return false
}

func occurs(v *ast.Variable, term ast.Argument) bool {
	found := false
	ast.ForEach[*ast.Variable](term, func(cur *ast.Variable) {
		if cur.Name == v.Name {
			found = true
		}
	})
	return found
}

// resolveAliases computes the unifying substitution for a clause and returns
// the substituted clone.
func resolveAliases(clause *ast.Clause) *ast.Clause {
	// Variables grounded by a body atom or a record appearance are kept;
	// substituting them away would change the clause's join structure.
	baseGrounded := make(map[string]bool)
	for _, atom := range clause.BodyAtoms() {
		for _, arg := range atom.Args {
			if v, ok := arg.(*ast.Variable); ok {
				baseGrounded[v.Name] = true
			}
		}
		ast.ForEach[*ast.RecordInit](atom, func(rec *ast.RecordInit) {
			for _, arg := range rec.Args {
				if v, ok := arg.(*ast.Variable); ok {
					baseGrounded[v.Name] = true
				}
			}
		})
		ast.ForEach[*ast.BranchInit](atom, func(adt *ast.BranchInit) {
			for _, arg := range adt.Args {
				if v, ok := arg.(*ast.Variable); ok {
					baseGrounded[v.Name] = true
				}
			}
		})
	}

	var equations []equation
	ast.ForEach[*ast.BinaryConstraint](clause, func(bc *ast.BinaryConstraint) {
		if bc.Op.IsEquality() {
			equations = append(equations, equation{
				lhs: bc.LHS.Clone().(ast.Argument),
				rhs: bc.RHS.Clone().(ast.Argument),
			})
		}
	})

	subst := make(substitution)
	newMapping := func(name string, term ast.Argument) {
		single := substitution{name: term.Clone().(ast.Argument)}
		for i := range equations {
			equations[i].lhs = single.apply(equations[i].lhs).(ast.Argument)
			equations[i].rhs = single.apply(equations[i].rhs).(ast.Argument)
		}
		subst.compose(name, term)
	}

	for len(equations) > 0 {
		eq := equations[len(equations)-1]
		equations = equations[:len(equations)-1]
		lhs, rhs := eq.lhs, eq.rhs

		// #1: t = t
		if lhs.Equal(rhs) {
			continue
		}

		// #2: records and branches of equal shape decompose
		if lrec, ok := lhs.(*ast.RecordInit); ok {
			if rrec, ok := rhs.(*ast.RecordInit); ok && len(lrec.Args) == len(rrec.Args) {
				for i := range lrec.Args {
					equations = append(equations, equation{lhs: lrec.Args[i], rhs: rrec.Args[i]})
				}
				continue
			}
		}
		if ladt, ok := lhs.(*ast.BranchInit); ok {
			if radt, ok := rhs.(*ast.BranchInit); ok &&
				ladt.Constructor == radt.Constructor && len(ladt.Args) == len(radt.Args) {
				for i := range ladt.Args {
					equations = append(equations, equation{lhs: ladt.Args[i], rhs: radt.Args[i]})
				}
				continue
			}
		}

		_, lhsVar := lhs.(*ast.Variable)
		_, rhsVar := rhs.(*ast.Variable)

		// #3: neither side a variable — stays a runtime constraint
		if !lhsVar && !rhsVar {
			continue
		}

		// #4: v = w
		if lhsVar && rhsVar {
			newMapping(lhs.(*ast.Variable).Name, rhs)
			continue
		}

		// #5: t = v — swap
		if !lhsVar {
			equations = append(equations, equation{lhs: rhs, rhs: lhs})
			continue
		}

		v := lhs.(*ast.Variable)
		term := rhs

		// #6: generators never substitute
		if isGenerator(term) {
			continue
		}

		// #7: occurs check
		if occurs(v, term) {
			continue
		}

		// #8: records and branches map eagerly
		switch term.(type) {
		case *ast.RecordInit, *ast.BranchInit:
			newMapping(v.Name, term)
			continue
		}

		// #9: already grounded by an atom or record
		if baseGrounded[v.Name] {
			continue
		}

		newMapping(v.Name, term)
	}

	return subst.apply(clause).(*ast.Clause)
}

// removeTrivialEquality drops t = t equality constraints from the body.
func removeTrivialEquality(clause *ast.Clause) *ast.Clause {
	res := clause.CloneHead()
	res.Plan = nil
	if clause.Plan != nil {
		res.Plan = clause.Plan.Clone().(*ast.ExecutionPlan)
	}
	for _, lit := range clause.Body {
		if bc, ok := lit.(*ast.BinaryConstraint); ok {
			// FEQ stays: x = x can fail when x is a NaN.
			if bc.Op == ast.BinaryConstraintEQ && bc.LHS.Equal(bc.RHS) {
				continue
			}
		}
		res.AddToBody(lit.Clone().(ast.Literal))
	}
	return res
}

// removeComplexTermsInAtoms pulls functors and type casts out of body-atom
// arguments into fresh _tmp variables bound by equality constraints.
func removeComplexTermsInAtoms(tu *ast.TranslationUnit, clause *ast.Clause) *ast.Clause {
	res := clause.Clone().(*ast.Clause)

	isComplex := func(arg ast.Argument) bool {
		switch arg.(type) {
		case *ast.IntrinsicFunctor, *ast.UserDefinedFunctor, *ast.TypeCast:
			return true
		}
		return false
	}

	var terms []ast.Argument
	seen := func(arg ast.Argument) bool {
		for _, cur := range terms {
			if cur.Equal(arg) {
				return true
			}
		}
		return false
	}
	for _, atom := range res.BodyAtoms() {
		for _, arg := range atom.Args {
			if isComplex(arg) && !seen(arg) {
				terms = append(terms, arg)
			}
		}
		ast.ForEach[*ast.RecordInit](atom, func(rec *ast.RecordInit) {
			for _, arg := range rec.Args {
				if isComplex(arg) && !seen(arg) {
					terms = append(terms, arg)
				}
			}
		})
	}
	if len(terms) == 0 {
		return res
	}

	type binding struct {
		term ast.Argument
		v    *ast.Variable
	}
	bindings := make([]binding, len(terms))
	for i, term := range terms {
		bindings[i] = binding{
			term: term.Clone().(ast.Argument),
			v:    &ast.Variable{Name: tu.FreshVariableName("_tmp_")},
		}
	}

	replace := func(n ast.Node) ast.Node {
		return ast.MapDeep(n, func(cur ast.Node) ast.Node {
			for _, b := range bindings {
				if b.term.Equal(cur) {
					return b.v.Clone()
				}
			}
			return cur
		})
	}
	for i, lit := range res.Body {
		if atom, ok := lit.(*ast.Atom); ok {
			res.Body[i] = replace(atom).(*ast.Atom)
		}
	}
	for _, b := range bindings {
		res.AddToBody(&ast.BinaryConstraint{
			Op:  ast.BinaryConstraintEQ,
			LHS: b.v.Clone().(ast.Argument),
			RHS: b.term,
		})
	}
	return res
}
