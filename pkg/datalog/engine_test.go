package datalog

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/godatalog/pkg/ast"
)

func v(name string) ast.Argument { return &ast.Variable{Name: name} }

func number() ast.QualifiedName { return ast.ParseQualifiedName("number") }

func declare(p *ast.Program, name string, arity int) {
	attrs := make([]*ast.Attribute, arity)
	for i := range attrs {
		attrs[i] = &ast.Attribute{Name: string(rune('a' + i)), TypeName: number()}
	}
	p.AddRelation(ast.NewRelation(name, attrs...))
}

func sortedRows(rows [][]any) [][]any {
	out := make([][]any, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool {
		for k := range out[i] {
			a, b := out[i][k].(int64), out[j][k].(int64)
			if a != b {
				return a < b
			}
		}
		return false
	})
	return out
}

func TestEngine_TransitiveClosure(t *testing.T) {
	p := ast.NewProgram()
	declare(p, "e", 2)
	declare(p, "r", 2)
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "e"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "r"))
	p.AddClause(ast.NewClause(ast.NewAtom("r", v("x"), v("y")), ast.NewAtom("e", v("x"), v("y"))))
	p.AddClause(ast.NewClause(ast.NewAtom("r", v("x"), v("z")),
		ast.NewAtom("r", v("x"), v("y")), ast.NewAtom("e", v("y"), v("z"))))

	engine := NewEngine(p, Config{})
	engine.AddFact("e", 1, 2)
	engine.AddFact("e", 2, 3)
	engine.AddFact("e", 3, 4)
	require.NoError(t, engine.Run(context.Background()))

	want := [][]any{
		{int64(1), int64(2)}, {int64(1), int64(3)}, {int64(1), int64(4)},
		{int64(2), int64(3)}, {int64(2), int64(4)},
		{int64(3), int64(4)},
	}
	require.Equal(t, want, sortedRows(engine.Output("r")))
}

func TestEngine_TransitiveClosureParallel(t *testing.T) {
	p := ast.NewProgram()
	declare(p, "e", 2)
	declare(p, "r", 2)
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "e"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "r"))
	p.AddClause(ast.NewClause(ast.NewAtom("r", v("x"), v("y")), ast.NewAtom("e", v("x"), v("y"))))
	p.AddClause(ast.NewClause(ast.NewAtom("r", v("x"), v("z")),
		ast.NewAtom("r", v("x"), v("y")), ast.NewAtom("e", v("y"), v("z"))))

	engine := NewEngine(p, Config{Jobs: 4})
	for i := 1; i <= 20; i++ {
		engine.AddFact("e", i, i+1)
	}
	require.NoError(t, engine.Run(context.Background()))

	// A chain of n edges closes into n*(n+1)/2 pairs.
	require.Len(t, engine.Output("r"), 20*21/2)
}

func TestEngine_AliasResolution(t *testing.T) {
	// a(X,Y) :- X = Y, b(X).  with b = {1,2,3}.
	p := ast.NewProgram()
	declare(p, "a", 2)
	declare(p, "b", 1)
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "b"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "a"))
	p.AddClause(ast.NewClause(
		ast.NewAtom("a", v("X"), v("Y")),
		&ast.BinaryConstraint{Op: ast.BinaryConstraintEQ, LHS: v("X"), RHS: v("Y")},
		ast.NewAtom("b", v("X")),
	))

	engine := NewEngine(p, Config{})
	engine.AddFact("b", 1)
	engine.AddFact("b", 2)
	engine.AddFact("b", 3)
	require.NoError(t, engine.Run(context.Background()))

	want := [][]any{
		{int64(1), int64(1)}, {int64(2), int64(2)}, {int64(3), int64(3)},
	}
	require.Equal(t, want, sortedRows(engine.Output("a")))
}

func TestEngine_SingletonAggregatePrunes(t *testing.T) {
	// a(X) :- b(X), X = sum y : { b(y) }.  sum is 6, b lacks 6: a empty.
	p := ast.NewProgram()
	declare(p, "a", 1)
	declare(p, "b", 1)
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "b"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "a"))
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

	engine := NewEngine(p, Config{})
	engine.AddFact("b", 1)
	engine.AddFact("b", 2)
	engine.AddFact("b", 3)
	require.NoError(t, engine.Run(context.Background()))
	require.Empty(t, engine.Output("a"))
}

func TestEngine_SingletonAggregateHits(t *testing.T) {
	// Same shape but with 6 present: a = {6}.
	p := ast.NewProgram()
	declare(p, "a", 1)
	declare(p, "b", 1)
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "b"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "a"))
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

	engine := NewEngine(p, Config{})
	engine.AddFact("b", 6)
	require.NoError(t, engine.Run(context.Background()))
	require.Equal(t, [][]any{{int64(6)}}, sortedRows(engine.Output("a")))
}

func TestEngine_EmptyRelationRemoval(t *testing.T) {
	// f(X) :- e(X).  e empty and not input: f stays empty.
	p := ast.NewProgram()
	declare(p, "e", 1)
	declare(p, "f", 1)
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "f"))
	p.AddClause(ast.NewClause(ast.NewAtom("f", v("X")), ast.NewAtom("e", v("X"))))

	engine := NewEngine(p, Config{})
	require.NoError(t, engine.Run(context.Background()))
	require.Empty(t, engine.Output("f"))
}

func TestEngine_NegationOfEmptyRelation(t *testing.T) {
	// z(A) :- y(A), !x(A).  with x empty: z = y.
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

	engine := NewEngine(p, Config{})
	engine.AddFact("y", 1)
	engine.AddFact("y", 2)
	require.NoError(t, engine.Run(context.Background()))

	want := [][]any{{int64(1)}, {int64(2)}}
	require.Equal(t, want, sortedRows(engine.Output("z")))
}

func TestEngine_NegationWithFacts(t *testing.T) {
	// z(A) :- y(A), !x(A).  with x = {2}: z = {1,3}.
	p := ast.NewProgram()
	declare(p, "x", 1)
	declare(p, "y", 1)
	declare(p, "z", 1)
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "x"))
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "y"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "z"))
	p.AddClause(ast.NewClause(
		ast.NewAtom("z", v("A")),
		ast.NewAtom("y", v("A")),
		&ast.Negation{Atom: ast.NewAtom("x", v("A"))},
	))

	engine := NewEngine(p, Config{})
	engine.AddFact("x", 2)
	for i := 1; i <= 3; i++ {
		engine.AddFact("y", i)
	}
	require.NoError(t, engine.Run(context.Background()))

	want := [][]any{{int64(1)}, {int64(3)}}
	require.Equal(t, want, sortedRows(engine.Output("z")))
}

func TestEngine_LimitSize(t *testing.T) {
	p := ast.NewProgram()
	declare(p, "e", 1)
	declare(p, "r", 1)
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "e"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "r"))
	limit := ast.NewDirective(ast.DirectiveLimitSize, "r")
	limit.Params["n"] = "2"
	p.AddDirective(limit)
	p.AddClause(ast.NewClause(ast.NewAtom("r", v("x")), ast.NewAtom("e", v("x"))))

	engine := NewEngine(p, Config{})
	for i := 1; i <= 5; i++ {
		engine.AddFact("e", i)
	}
	require.NoError(t, engine.Run(context.Background()))
	require.Len(t, engine.Output("r"), 2)
}

func TestEngine_PrintSize(t *testing.T) {
	p := ast.NewProgram()
	declare(p, "e", 1)
	declare(p, "s", 1)
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "e"))
	p.AddDirective(ast.NewDirective(ast.DirectivePrintSize, "s"))
	p.AddClause(ast.NewClause(ast.NewAtom("s", v("x")), ast.NewAtom("e", v("x"))))

	engine := NewEngine(p, Config{})
	engine.AddFact("e", 1)
	engine.AddFact("e", 2)
	require.NoError(t, engine.Run(context.Background()))
	require.Equal(t, 2, engine.PrintedSize("s"))
}

func TestEngine_Facts(t *testing.T) {
	p := ast.NewProgram()
	declare(p, "f", 2)
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "f"))
	p.AddClause(ast.NewClause(ast.NewAtom("f",
		&ast.NumericConstant{Value: 1}, &ast.NumericConstant{Value: 2})))
	p.AddClause(ast.NewClause(ast.NewAtom("f",
		&ast.NumericConstant{Value: 3}, &ast.NumericConstant{Value: 4})))

	engine := NewEngine(p, Config{})
	require.NoError(t, engine.Run(context.Background()))
	want := [][]any{{int64(1), int64(2)}, {int64(3), int64(4)}}
	require.Equal(t, want, sortedRows(engine.Output("f")))
}

func TestEngine_Symbols(t *testing.T) {
	p := ast.NewProgram()
	symbol := ast.ParseQualifiedName("symbol")
	p.AddRelation(ast.NewRelation("name", &ast.Attribute{Name: "n", TypeName: symbol}))
	p.AddRelation(ast.NewRelation("greeting", &ast.Attribute{Name: "g", TypeName: symbol}))
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "name"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "greeting"))
	p.AddClause(ast.NewClause(ast.NewAtom("greeting", v("n")), ast.NewAtom("name", v("n"))))

	engine := NewEngine(p, Config{})
	engine.AddFact("name", "alice")
	engine.AddFact("name", "bob")
	require.NoError(t, engine.Run(context.Background()))

	got := engine.Output("greeting")
	values := map[string]bool{}
	for _, row := range got {
		values[row[0].(string)] = true
	}
	require.True(t, values["alice"])
	require.True(t, values["bob"])
}

func TestEngine_DebugReportSections(t *testing.T) {
	p := ast.NewProgram()
	declare(p, "e", 1)
	declare(p, "r", 1)
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "e"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "r"))
	p.AddClause(ast.NewClause(ast.NewAtom("r", v("x")), ast.NewAtom("e", v("x"))))

	engine := NewEngine(p, Config{DebugReport: true})
	engine.AddFact("e", 1)
	require.NoError(t, engine.Run(context.Background()))
	require.NotEmpty(t, engine.DebugReport().Sections())
}

func TestConfigFromMap(t *testing.T) {
	cfg := ConfigFromMap(map[string]any{
		"SIPS":         "max-bound",
		"RamSIPS":      "delta",
		"provenance":   true,
		"profile":      "true",
		"debug-report": 1,
		"profile-use":  "prof.log",
		"jobs":         "8",
	})
	require.Equal(t, "max-bound", cfg.SIPS)
	require.Equal(t, "delta", cfg.RamSIPS)
	require.True(t, cfg.Provenance)
	require.True(t, cfg.Profile)
	require.True(t, cfg.DebugReport)
	require.Equal(t, "prof.log", cfg.ProfileUse)
	require.Equal(t, 8, cfg.Jobs)
}
