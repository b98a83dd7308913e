package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/godatalog/pkg/ast"
)

func v(name string) ast.Argument { return &ast.Variable{Name: name} }

func num(n int64) ast.Argument { return &ast.NumericConstant{Value: n} }

func number() ast.QualifiedName { return ast.ParseQualifiedName("number") }

func declare(p *ast.Program, name string, arity int) {
	attrs := make([]*ast.Attribute, arity)
	for i := range attrs {
		attrs[i] = &ast.Attribute{Name: string(rune('a' + i)), TypeName: number()}
	}
	p.AddRelation(ast.NewRelation(name, attrs...))
}

func newUnit(p *ast.Program) *ast.TranslationUnit {
	return ast.NewTranslationUnit(p, ast.Options{})
}

func TestResolveAliases_HeadEquality(t *testing.T) {
	// a(X,Y) :- X = Y, b(X).  becomes  a(X,X) :- b(X).
	p := ast.NewProgram()
	declare(p, "a", 2)
	declare(p, "b", 1)
	p.AddClause(ast.NewClause(
		ast.NewAtom("a", v("X"), v("Y")),
		&ast.BinaryConstraint{Op: ast.BinaryConstraintEQ, LHS: v("X"), RHS: v("Y")},
		ast.NewAtom("b", v("X")),
	))
	tu := newUnit(p)

	changed := (&ResolveAliases{}).Transform(tu)
	require.True(t, changed)

	clause := tu.Program.ClausesFor(ast.ParseQualifiedName("a"))[0]
	require.Len(t, clause.Body, 1)
	atom, ok := clause.Body[0].(*ast.Atom)
	require.True(t, ok)
	require.Equal(t, "b", atom.Name.String())
	// Both head arguments collapse onto one variable.
	lhs := clause.Head.Args[0].(*ast.Variable)
	rhs := clause.Head.Args[1].(*ast.Variable)
	require.Equal(t, lhs.Name, rhs.Name)
	bodyVar := atom.Args[0].(*ast.Variable)
	require.Equal(t, lhs.Name, bodyVar.Name)
}

func TestResolveAliases_Idempotent(t *testing.T) {
	build := func() *ast.TranslationUnit {
		p := ast.NewProgram()
		declare(p, "a", 2)
		declare(p, "b", 1)
		p.AddClause(ast.NewClause(
			ast.NewAtom("a", v("X"), v("Y")),
			&ast.BinaryConstraint{Op: ast.BinaryConstraintEQ, LHS: v("X"), RHS: v("Y")},
			ast.NewAtom("b", v("X")),
		))
		return newUnit(p)
	}
	tu := build()
	(&ResolveAliases{}).Transform(tu)
	once := tu.Program.ClausesFor(ast.ParseQualifiedName("a"))[0].Clone().(*ast.Clause)

	changed := (&ResolveAliases{}).Transform(tu)
	require.False(t, changed)
	twice := tu.Program.ClausesFor(ast.ParseQualifiedName("a"))[0]
	require.True(t, once.Equal(twice))
}

func TestResolveAliases_ExtractsComplexTerms(t *testing.T) {
	// a(X) :- b(X + 1).  pulls the functor out of the atom.
	p := ast.NewProgram()
	declare(p, "a", 1)
	declare(p, "b", 1)
	p.AddClause(ast.NewClause(
		ast.NewAtom("a", v("X")),
		ast.NewAtom("b", &ast.IntrinsicFunctor{Op: ast.FunctorAdd, Args: []ast.Argument{v("X"), num(1)}}),
	))
	tu := newUnit(p)
	require.True(t, (&ResolveAliases{}).Transform(tu))

	clause := tu.Program.ClausesFor(ast.ParseQualifiedName("a"))[0]
	atom := clause.BodyAtoms()[0]
	_, isVar := atom.Args[0].(*ast.Variable)
	require.True(t, isVar)
	// A constraint _tmp = X + 1 now binds the fresh variable.
	foundBinding := false
	for _, lit := range clause.Body {
		if bc, ok := lit.(*ast.BinaryConstraint); ok {
			if _, ok := bc.RHS.(*ast.IntrinsicFunctor); ok {
				foundBinding = true
			}
		}
	}
	require.True(t, foundBinding)
}

func TestRemoveEmptyRelations_DropsClauseAndRelation(t *testing.T) {
	// f(X) :- e(X).  with e empty and not input: clause removed, f empty.
	p := ast.NewProgram()
	declare(p, "e", 1)
	declare(p, "f", 1)
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "f"))
	p.AddClause(ast.NewClause(ast.NewAtom("f", v("X")), ast.NewAtom("e", v("X"))))
	tu := newUnit(p)

	require.True(t, (&RemoveEmptyRelations{}).Transform(tu))
	require.Empty(t, tu.Program.ClausesFor(ast.ParseQualifiedName("f")))
	require.Nil(t, tu.Program.Relation(ast.ParseQualifiedName("e")))
	// f is an output and survives.
	require.NotNil(t, tu.Program.Relation(ast.ParseQualifiedName("f")))
}

func TestRemoveEmptyRelations_DropsNegation(t *testing.T) {
	// z(A) :- y(A), !x(A).  with x empty: negation dropped.
	p := ast.NewProgram()
	declare(p, "x", 1)
	declare(p, "y", 1)
	declare(p, "z", 1)
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "y"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "z"))
	p.AddClause(ast.NewClause(
		ast.NewAtom("z", v("A")),
		ast.NewAtom("y", v("A")),
		&ast.Negation{Atom: ast.NewAtom("x", v("A"))},
	))
	tu := newUnit(p)

	require.True(t, (&RemoveEmptyRelations{}).Transform(tu))
	clause := tu.Program.ClausesFor(ast.ParseQualifiedName("z"))[0]
	require.Len(t, clause.Body, 1)
	atom, ok := clause.Body[0].(*ast.Atom)
	require.True(t, ok)
	require.Equal(t, "y", atom.Name.String())
}

func TestRemoveEmptyRelations_KeepsInputs(t *testing.T) {
	p := ast.NewProgram()
	declare(p, "e", 1)
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "e"))
	tu := newUnit(p)
	require.False(t, (&RemoveEmptyRelations{}).Transform(tu))
	require.NotNil(t, tu.Program.Relation(ast.ParseQualifiedName("e")))
}

func TestRemoveRelationCopies_Simple(t *testing.T) {
	// copy(x,y) :- base(x,y).  user(x) :- copy(x,_).
	p := ast.NewProgram()
	declare(p, "base", 2)
	declare(p, "copy", 2)
	declare(p, "user", 1)
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "base"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "user"))
	p.AddClause(ast.NewClause(
		ast.NewAtom("copy", v("x"), v("y")),
		ast.NewAtom("base", v("x"), v("y")),
	))
	p.AddClause(ast.NewClause(
		ast.NewAtom("user", v("x")),
		ast.NewAtom("copy", v("x"), &ast.UnnamedVariable{}),
	))
	tu := newUnit(p)

	require.True(t, (&RemoveRelationCopies{}).Transform(tu))
	require.Nil(t, tu.Program.Relation(ast.ParseQualifiedName("copy")))
	clause := tu.Program.ClausesFor(ast.ParseQualifiedName("user"))[0]
	require.Equal(t, "base", clause.BodyAtoms()[0].Name.String())
}

func TestRemoveRelationCopies_TransitiveChain(t *testing.T) {
	// c -> b -> a collapses to a.
	p := ast.NewProgram()
	declare(p, "a", 1)
	declare(p, "b", 1)
	declare(p, "c", 1)
	declare(p, "out", 1)
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "a"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "out"))
	p.AddClause(ast.NewClause(ast.NewAtom("b", v("x")), ast.NewAtom("a", v("x"))))
	p.AddClause(ast.NewClause(ast.NewAtom("c", v("x")), ast.NewAtom("b", v("x"))))
	p.AddClause(ast.NewClause(ast.NewAtom("out", v("x")), ast.NewAtom("c", v("x"))))
	tu := newUnit(p)

	require.True(t, (&RemoveRelationCopies{}).Transform(tu))
	require.Nil(t, tu.Program.Relation(ast.ParseQualifiedName("b")))
	require.Nil(t, tu.Program.Relation(ast.ParseQualifiedName("c")))
	clause := tu.Program.ClausesFor(ast.ParseQualifiedName("out"))[0]
	require.Equal(t, "a", clause.BodyAtoms()[0].Name.String())
}

func TestRemoveRelationCopies_CycleKeepsRepresentative(t *testing.T) {
	// a(x) :- b(x).  b(x) :- a(x).  The cycle breaks; its representative
	// keeps an empty definition and a warning is reported.
	p := ast.NewProgram()
	declare(p, "a", 1)
	declare(p, "b", 1)
	tu := newUnit(p)
	p.AddClause(ast.NewClause(ast.NewAtom("a", v("x")), ast.NewAtom("b", v("x"))))
	p.AddClause(ast.NewClause(ast.NewAtom("b", v("x")), ast.NewAtom("a", v("x"))))

	require.True(t, (&RemoveRelationCopies{}).Transform(tu))
	warnings := 0
	for _, d := range tu.Report.Diagnostics() {
		if d.Severity == ast.SeverityWarning {
			warnings++
		}
	}
	require.Positive(t, warnings)
}

func TestPartitionBodyLiterals(t *testing.T) {
	// a(x) :- b(x), c(y), d(y).  extracts {c,d} into a nullary relation.
	p := ast.NewProgram()
	declare(p, "a", 1)
	declare(p, "b", 1)
	declare(p, "c", 1)
	declare(p, "d", 1)
	p.AddClause(ast.NewClause(
		ast.NewAtom("a", v("x")),
		ast.NewAtom("b", v("x")),
		ast.NewAtom("c", v("y")),
		ast.NewAtom("d", v("y")),
	))
	tu := newUnit(p)

	require.True(t, (&PartitionBodyLiterals{}).Transform(tu))

	clause := tu.Program.ClausesFor(ast.ParseQualifiedName("a"))[0]
	var names []string
	for _, atom := range clause.BodyAtoms() {
		names = append(names, atom.Name.String())
	}
	require.Contains(t, names, "b")
	require.NotContains(t, names, "c")
	require.NotContains(t, names, "d")

	// The extracted relation is nullary and defined by the removed atoms.
	var disconnected *ast.Relation
	for _, rel := range tu.Program.Relations {
		if rel.Name.String() != "a" && rel.Name.String() != "b" &&
			rel.Name.String() != "c" && rel.Name.String() != "d" {
			disconnected = rel
		}
	}
	require.NotNil(t, disconnected)
	require.Zero(t, disconnected.Arity())
	extracted := tu.Program.ClausesFor(disconnected.Name)[0]
	require.Len(t, extracted.BodyAtoms(), 2)
}

func TestAddNullaries(t *testing.T) {
	// total(s) :- s = sum 1 : { 1 = 1 }. has an atomless aggregate.
	p := ast.NewProgram()
	declare(p, "total", 1)
	p.AddClause(ast.NewClause(
		ast.NewAtom("total", v("s")),
		&ast.BinaryConstraint{
			Op:  ast.BinaryConstraintEQ,
			LHS: v("s"),
			RHS: &ast.Aggregator{Op: ast.AggregateSum, Target: num(1),
				Body: []ast.Literal{&ast.BinaryConstraint{Op: ast.BinaryConstraintEQ, LHS: num(1), RHS: num(1)}}},
		},
	))
	tu := newUnit(p)

	require.True(t, (&AddNullariesToAtomlessAggregates{}).Transform(tu))
	require.NotNil(t, tu.Program.Relation(ast.ParseQualifiedName("+Tautology")))

	var agg *ast.Aggregator
	ast.ForEach[*ast.Aggregator](tu.Program, func(a *ast.Aggregator) { agg = a })
	require.NotNil(t, agg)
	atoms := 0
	for _, lit := range agg.Body {
		if _, ok := lit.(*ast.Atom); ok {
			atoms++
		}
	}
	require.Equal(t, 1, atoms)

	// Running again changes nothing.
	require.False(t, (&AddNullariesToAtomlessAggregates{}).Transform(tu))
}

func TestMaterializeSingletonAggregation(t *testing.T) {
	// a(X) :- b(X), X = sum y : { b(y) }.
	p := ast.NewProgram()
	declare(p, "a", 1)
	declare(p, "b", 1)
	p.AddClause(ast.NewClause(
		ast.NewAtom("a", v("X")),
		ast.NewAtom("b", v("X")),
		&ast.BinaryConstraint{
			Op:  ast.BinaryConstraintEQ,
			LHS: v("X"),
			RHS: &ast.Aggregator{Op: ast.AggregateSum, Target: v("y"),
				Body: []ast.Literal{ast.NewAtom("b", v("y"))}},
		},
	))
	tu := newUnit(p)

	require.True(t, (&MaterializeSingletonAggregation{}).Transform(tu))

	// A synthetic relation now owns the aggregate.
	var aggRel *ast.Relation
	for _, rel := range tu.Program.Relations {
		if rel.Name.String() != "a" && rel.Name.String() != "b" {
			aggRel = rel
		}
	}
	require.NotNil(t, aggRel)
	aggClauses := tu.Program.ClausesFor(aggRel.Name)
	require.Len(t, aggClauses, 1)
	hasAggregate := false
	ast.ForEach[*ast.Aggregator](aggClauses[0], func(*ast.Aggregator) { hasAggregate = true })
	require.True(t, hasAggregate)

	// The original clause joins against the synthetic relation and no
	// longer contains the aggregate.
	clause := tu.Program.ClausesFor(ast.ParseQualifiedName("a"))[0]
	inOriginal := false
	ast.ForEach[*ast.Aggregator](clause, func(*ast.Aggregator) { inOriginal = true })
	require.False(t, inOriginal)
	var names []string
	for _, atom := range clause.BodyAtoms() {
		names = append(names, atom.Name.String())
	}
	require.Contains(t, names, aggRel.Name.String())
}

func TestMaterializeSingleton_SkipsSoleLiteral(t *testing.T) {
	p := ast.NewProgram()
	declare(p, "a", 1)
	declare(p, "b", 1)
	p.AddClause(ast.NewClause(
		ast.NewAtom("a", v("X")),
		&ast.BinaryConstraint{
			Op:  ast.BinaryConstraintEQ,
			LHS: v("X"),
			RHS: &ast.Aggregator{Op: ast.AggregateSum, Target: v("y"),
				Body: []ast.Literal{ast.NewAtom("b", v("y"))}},
		},
	))
	tu := newUnit(p)
	require.False(t, (&MaterializeSingletonAggregation{}).Transform(tu))
}

func TestReduceExistentials(t *testing.T) {
	// only(x) :- src(x).  used(_) existentially: check(y) :- src(y), only(_).
	p := ast.NewProgram()
	declare(p, "src", 1)
	declare(p, "only", 1)
	declare(p, "check", 1)
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "src"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "check"))
	p.AddClause(ast.NewClause(ast.NewAtom("only", v("x")), ast.NewAtom("src", v("x"))))
	p.AddClause(ast.NewClause(
		ast.NewAtom("check", v("y")),
		ast.NewAtom("src", v("y")),
		ast.NewAtom("only", &ast.UnnamedVariable{}),
	))
	tu := newUnit(p)

	require.True(t, (&ReduceExistentials{}).Transform(tu))
	// only is replaced by a nullary surrogate.
	require.Nil(t, tu.Program.Relation(ast.ParseQualifiedName("only")))
	surrogate := tu.Program.Relation(ast.ParseQualifiedName("+?exists_only"))
	require.NotNil(t, surrogate)
	require.Zero(t, surrogate.Arity())

	clause := tu.Program.ClausesFor(ast.ParseQualifiedName("check"))[0]
	var names []string
	for _, atom := range clause.BodyAtoms() {
		names = append(names, atom.Name.String())
	}
	require.Contains(t, names, "+?exists_only")
}

func TestReorderLiterals_NoPlanNoChangeForBoundBodies(t *testing.T) {
	// With every argument bound the default metric keeps source order.
	p := ast.NewProgram()
	declare(p, "r", 1)
	declare(p, "p", 2)
	declare(p, "q", 2)
	p.AddClause(ast.NewClause(
		ast.NewAtom("r", v("a")),
		ast.NewAtom("p", v("a"), v("b")),
		ast.NewAtom("q", v("b"), v("c")),
	))
	tu := newUnit(p)
	require.False(t, (&ReorderLiterals{}).Transform(tu))
}

func TestReorderLiterals_MovesFullyBoundFirst(t *testing.T) {
	// r(y) :- b(_, y), a(y).  all-bound schedules a before b.
	p := ast.NewProgram()
	declare(p, "r", 1)
	declare(p, "a", 1)
	declare(p, "b", 2)
	p.AddClause(ast.NewClause(
		ast.NewAtom("r", v("y")),
		ast.NewAtom("b", &ast.UnnamedVariable{}, v("y")),
		ast.NewAtom("a", v("y")),
	))
	tu := newUnit(p)

	require.True(t, (&ReorderLiterals{}).Transform(tu))
	clause := tu.Program.ClausesFor(ast.ParseQualifiedName("r"))[0]
	atoms := clause.BodyAtoms()
	require.Equal(t, "a", atoms[0].Name.String())
	require.Equal(t, "b", atoms[1].Name.String())
}

func TestExecutionPlanChecker(t *testing.T) {
	// Recursive clause with a plan whose version is out of range and whose
	// order is not a permutation.
	p := ast.NewProgram()
	declare(p, "e", 2)
	declare(p, "r", 2)
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "e"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "r"))
	p.AddClause(ast.NewClause(ast.NewAtom("r", v("x"), v("y")), ast.NewAtom("e", v("x"), v("y"))))

	recursiveClause := ast.NewClause(
		ast.NewAtom("r", v("x"), v("z")),
		ast.NewAtom("r", v("x"), v("y")),
		ast.NewAtom("e", v("y"), v("z")),
	)
	recursiveClause.Plan = &ast.ExecutionPlan{Orders: map[int]*ast.ExecutionOrder{
		0: {Order: []int{2, 1}},
		5: {Order: []int{1, 1}},
	}}
	p.AddClause(recursiveClause)
	tu := newUnit(p)

	require.False(t, (&ExecutionPlanChecker{}).Transform(tu))
	require.Positive(t, tu.Report.CountErrors())
}

func TestStandardPipeline_FixedPoint(t *testing.T) {
	// Scenario: f(X) :- e(X). with e empty; pipeline leaves f defined but
	// clauseless, and running it again reports no further change.
	p := ast.NewProgram()
	declare(p, "e", 1)
	declare(p, "f", 1)
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "f"))
	p.AddClause(ast.NewClause(ast.NewAtom("f", v("X")), ast.NewAtom("e", v("X"))))
	tu := newUnit(p)

	Standard().Transform(tu)
	require.Empty(t, tu.Program.ClausesFor(ast.ParseQualifiedName("f")))
	require.NotNil(t, tu.Program.Relation(ast.ParseQualifiedName("f")))
	require.False(t, Standard().Transform(tu))
}
