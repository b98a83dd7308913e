package transform

import (
	"github.com/gitrdm/godatalog/pkg/ast"
)

// MaterializeSingletonAggregation lifts single-valued aggregates into their
// own relations:
//
//	a(x) :- b(x), x = sum y : { b(y) }.
//
// becomes
//
//	a(x) :- b(x), x = z, __agg_single0(z).
//	__agg_single0(z) :- z = sum y : { b(y) }.
//
// An aggregate is single-valued when none of its variables is also free in
// the enclosing clause outside the aggregate; such aggregates evaluate once,
// so computing them in a dedicated relation avoids re-evaluation per
// binding. Aggregates that are the sole literal of their clause stay put.
type MaterializeSingletonAggregation struct{}

// Name implements Transformer.
func (*MaterializeSingletonAggregation) Name() string { return "materialize-singleton-aggregation" }

// Transform implements Transformer.
func (t *MaterializeSingletonAggregation) Transform(tu *ast.TranslationUnit) bool {
	// Inner aggregates unwind one level per fixpoint round.
	inner := make(map[*ast.Aggregator]bool)
	ast.ForEach[*ast.Aggregator](tu.Program, func(agg *ast.Aggregator) {
		ast.ForEach[*ast.Aggregator](agg, func(nested *ast.Aggregator) {
			if nested != agg {
				inner[nested] = true
			}
		})
	})

	type pair struct {
		agg    *ast.Aggregator
		clause *ast.Clause
	}
	var pairs []pair
	for _, clause := range tu.Program.Clauses {
		clause := clause
		ast.ForEach[*ast.Aggregator](clause, func(agg *ast.Aggregator) {
			if inner[agg] {
				return
			}
			if !isSingleValued(agg, clause) || len(clause.Body) == 1 {
				return
			}
			pairs = append(pairs, pair{agg: agg, clause: clause})
		})
	}

	for _, p := range pairs {
		aggregate := p.agg.Clone().(*ast.Aggregator)
		relName := tu.FreshRelationName("__agg_single")
		variable := &ast.Variable{Name: tu.FreshVariableName("z")}

		aggRel := &ast.Relation{Name: relName, Attributes: []*ast.Attribute{
			{Name: variable.Name, TypeName: ast.ParseQualifiedName("number")},
		}}
		aggClause := ast.NewClause(
			&ast.Atom{Name: relName, Args: []ast.Argument{variable.Clone().(ast.Argument)}},
			&ast.BinaryConstraint{
				Op:  ast.BinaryConstraintEQ,
				LHS: variable.Clone().(ast.Argument),
				RHS: aggregate,
			},
		)
		tu.Program.AddRelation(aggRel)
		tu.Program.AddClause(aggClause)

		// Swap the aggregate term for the synthesised variable and join
		// against the new relation.
		target := p.agg
		replaced := ast.MapDeep(p.clause, func(cur ast.Node) ast.Node {
			if agg, ok := cur.(*ast.Aggregator); ok && agg == target {
				return variable.Clone()
			}
			return cur
		}).(*ast.Clause)
		replaced.AddToBody(&ast.Atom{
			Name: relName,
			Args: []ast.Argument{variable.Clone().(ast.Argument)},
		})
		tu.Program.RemoveClause(p.clause)
		tu.Program.AddClause(replaced)
	}
	return len(pairs) > 0
}

// isSingleValued reports whether the aggregate has no injected variables:
// variables of the aggregate that the enclosing clause also uses outside it.
func isSingleValued(agg *ast.Aggregator, clause *ast.Clause) bool {
	aggVars := make(map[string]bool)
	for _, lit := range agg.Body {
		for _, name := range ast.VariablesOf(lit) {
			aggVars[name] = true
		}
	}
	if agg.Target != nil {
		for _, name := range ast.VariablesOf(agg.Target) {
			aggVars[name] = true
		}
	}

	outside := make(map[string]bool)
	var collectOutside func(n ast.Node)
	collectOutside = func(n ast.Node) {
		if n == ast.Node(agg) {
			return
		}
		if v, ok := n.(*ast.Variable); ok {
			outside[v.Name] = true
		}
		for _, c := range n.Children() {
			collectOutside(c)
		}
	}
	collectOutside(clause.Head)
	for _, lit := range clause.Body {
		collectOutside(lit)
	}

	for name := range aggVars {
		if outside[name] {
			return false
		}
	}
	return true
}
