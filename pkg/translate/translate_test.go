package translate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/ram"
)

func v(name string) ast.Argument { return &ast.Variable{Name: name} }

func tcProgram() *ast.Program {
	p := ast.NewProgram()
	number := ast.ParseQualifiedName("number")
	for _, name := range []string{"e", "r"} {
		p.AddRelation(ast.NewRelation(name,
			&ast.Attribute{Name: "a", TypeName: number},
			&ast.Attribute{Name: "b", TypeName: number}))
	}
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "e"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "r"))
	p.AddClause(ast.NewClause(ast.NewAtom("r", v("x"), v("y")), ast.NewAtom("e", v("x"), v("y"))))
	p.AddClause(ast.NewClause(ast.NewAtom("r", v("x"), v("z")),
		ast.NewAtom("r", v("x"), v("y")), ast.NewAtom("e", v("y"), v("z"))))
	return p
}

func TestUnit_SemiNaiveShape(t *testing.T) {
	tu := ast.NewTranslationUnit(tcProgram(), ast.Options{})
	prog := Unit(tu)
	require.Zero(t, tu.Report.CountErrors())

	// Delta and new relations exist for the recursive stratum.
	require.NotNil(t, prog.Relation("@delta_r"))
	require.NotNil(t, prog.Relation("@new_r"))
	require.NotNil(t, prog.Relation("e"))
	require.NotNil(t, prog.Relation("r"))

	var loops, swaps, exits, ios int
	ram.Walk(prog.Main, func(n ram.Node) {
		switch n.(type) {
		case *ram.Loop:
			loops++
		case *ram.Swap:
			swaps++
		case *ram.Exit:
			exits++
		case *ram.IO:
			ios++
		}
	})
	require.Equal(t, 1, loops)
	require.Equal(t, 1, swaps)
	require.Equal(t, 1, exits)
	// one load for e, one store for r
	require.Equal(t, 2, ios)

	// The recursive rule reads the delta relation and guards against
	// rederivation into r.
	foundDeltaScan := false
	foundGuard := false
	ram.Walk(prog.Main, func(n ram.Node) {
		switch node := n.(type) {
		case *ram.Scan:
			if node.Relation == "@delta_r" {
				foundDeltaScan = true
			}
		case *ram.IndexScan:
			if node.Relation == "@delta_r" {
				foundDeltaScan = true
			}
		case *ram.Negation:
			if ex, ok := node.Cond.(*ram.ExistenceCheck); ok && ex.Relation == "r" {
				foundGuard = true
			}
		}
	})
	require.True(t, foundDeltaScan)
	require.True(t, foundGuard)
}

func TestUnit_NonRecursiveIsStraightLine(t *testing.T) {
	p := ast.NewProgram()
	number := ast.ParseQualifiedName("number")
	p.AddRelation(ast.NewRelation("a", &ast.Attribute{Name: "x", TypeName: number}))
	p.AddRelation(ast.NewRelation("b", &ast.Attribute{Name: "x", TypeName: number}))
	p.AddDirective(ast.NewDirective(ast.DirectiveInput, "a"))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "b"))
	p.AddClause(ast.NewClause(ast.NewAtom("b", v("x")), ast.NewAtom("a", v("x"))))

	tu := ast.NewTranslationUnit(p, ast.Options{})
	prog := Unit(tu)

	var loops int
	ram.Walk(prog.Main, func(n ram.Node) {
		if _, ok := n.(*ram.Loop); ok {
			loops++
		}
	})
	require.Zero(t, loops)
	require.Nil(t, prog.Relation("@delta_b"))
}

func TestUnit_JoinUsesIndexScan(t *testing.T) {
	// In r(x,z) :- r(x,y), e(y,z), the second atom binds y from the first
	// and must lower to an index scan with an equality bound.
	tu := ast.NewTranslationUnit(tcProgram(), ast.Options{})
	prog := Unit(tu)

	found := false
	ram.Walk(prog.Main, func(n ram.Node) {
		if scan, ok := n.(*ram.IndexScan); ok && scan.Relation == "e" {
			if _, isElem := scan.Pattern.Lower[0].(*ram.TupleElement); isElem {
				found = true
			}
		}
	})
	require.True(t, found)
}

func TestUnit_FactLowersToInsert(t *testing.T) {
	p := ast.NewProgram()
	number := ast.ParseQualifiedName("number")
	p.AddRelation(ast.NewRelation("f", &ast.Attribute{Name: "x", TypeName: number}))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "f"))
	p.AddClause(ast.NewClause(ast.NewAtom("f", &ast.NumericConstant{Value: 7})))

	tu := ast.NewTranslationUnit(p, ast.Options{})
	prog := Unit(tu)

	found := false
	ram.Walk(prog.Main, func(n ram.Node) {
		if ins, ok := n.(*ram.Insert); ok && ins.Relation == "f" {
			require.True(t, ins.Values[0].Equal(&ram.SignedConstant{Value: 7}))
			found = true
		}
	})
	require.True(t, found)
}

func TestUnit_UngroundedVariableReported(t *testing.T) {
	p := ast.NewProgram()
	number := ast.ParseQualifiedName("number")
	p.AddRelation(ast.NewRelation("f", &ast.Attribute{Name: "x", TypeName: number}))
	p.AddDirective(ast.NewDirective(ast.DirectiveOutput, "f"))
	// f(x). with x never bound anywhere.
	p.AddClause(ast.NewClause(ast.NewAtom("f", v("x"))))

	tu := ast.NewTranslationUnit(p, ast.Options{})
	Unit(tu)
	require.Positive(t, tu.Report.CountErrors())
}

func TestUnit_LimitSizeCarried(t *testing.T) {
	p := tcProgram()
	limit := ast.NewDirective(ast.DirectiveLimitSize, "r")
	limit.Params["n"] = "3"
	p.AddDirective(limit)

	tu := ast.NewTranslationUnit(p, ast.Options{})
	prog := Unit(tu)
	require.Equal(t, 3, prog.Relation("r").LimitSize)
}
