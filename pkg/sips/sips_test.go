package sips

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/godatalog/pkg/ast"
)

func v(name string) ast.Argument { return &ast.Variable{Name: name} }

func TestBindingStore_AtomArgumentsAreBound(t *testing.T) {
	// r(x) :- a(x,y), x = z + 1.
	clause := ast.NewClause(
		ast.NewAtom("r", v("x")),
		ast.NewAtom("a", v("x"), v("y")),
		&ast.BinaryConstraint{
			Op:  ast.BinaryConstraintEQ,
			LHS: v("x"),
			RHS: &ast.IntrinsicFunctor{Op: ast.FunctorAdd, Args: []ast.Argument{v("z"), &ast.NumericConstant{Value: 1}}},
		},
	)
	store := NewBindingStore(clause)
	require.True(t, store.IsBoundVariable("x"))
	require.True(t, store.IsBoundVariable("y"))
	require.False(t, store.IsBoundVariable("z"))
}

func TestBindingStore_DependencyPropagation(t *testing.T) {
	// r(x) :- x = y + 1: binding y transitively binds x.
	clause := ast.NewClause(
		ast.NewAtom("r", v("x")),
		&ast.BinaryConstraint{
			Op:  ast.BinaryConstraintEQ,
			LHS: v("x"),
			RHS: &ast.IntrinsicFunctor{Op: ast.FunctorAdd, Args: []ast.Argument{v("y"), &ast.NumericConstant{Value: 1}}},
		},
	)
	store := NewBindingStore(clause)
	require.False(t, store.IsBoundVariable("x"))
	store.BindStrongly("y")
	require.True(t, store.IsBoundVariable("x"))
}

func TestBindingStore_IsBoundArguments(t *testing.T) {
	clause := ast.NewClause(ast.NewAtom("r"), ast.NewAtom("a", v("x")))
	store := NewBindingStore(clause)

	tests := []struct {
		name string
		arg  ast.Argument
		want bool
	}{
		{"constant", &ast.NumericConstant{Value: 1}, true},
		{"string", &ast.StringConstant{Value: "s"}, true},
		{"bound variable", v("x"), true},
		{"free variable", v("q"), false},
		{"unnamed", &ast.UnnamedVariable{}, false},
		{"functor over bound", &ast.IntrinsicFunctor{Op: ast.FunctorNeg, Args: []ast.Argument{v("x")}}, true},
		{"functor over free", &ast.IntrinsicFunctor{Op: ast.FunctorNeg, Args: []ast.Argument{v("q")}}, false},
		{"record over bound", &ast.RecordInit{Args: []ast.Argument{v("x")}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, store.IsBound(tt.arg))
		})
	}
}

// reorderClause is r(y) :- b(_,y), a(y). Named body-atom variables start
// out bound, so the wildcard in b is what the metrics discriminate on:
// a is fully bound while b is not.
func reorderClause() *ast.Clause {
	return ast.NewClause(
		ast.NewAtom("r", v("y")),
		ast.NewAtom("b", &ast.UnnamedVariable{}, v("y")),
		ast.NewAtom("a", v("y")),
	)
}

func TestReordering_Metrics(t *testing.T) {
	tu := ast.NewTranslationUnit(ast.NewProgram(), ast.Options{})
	clause := reorderClause()

	tests := []struct {
		metric string
		want   []int
	}{
		{"strict", []int{0, 1}},
		{"all-bound", []int{1, 0}},
		{"naive", []int{1, 0}},
		{"max-bound", []int{1, 0}},
		{"max-ratio", []int{1, 0}},
		{"least-free", []int{1, 0}},
		// Wildcards are not named variables, so both atoms tie at zero free
		// variables and the leftmost wins.
		{"least-free-vars", []int{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			require.Equal(t, tt.want, Reordering(New(tt.metric, tu), clause))
		})
	}
}

func TestReordering_Deterministic(t *testing.T) {
	tu := ast.NewTranslationUnit(ast.NewProgram(), ast.Options{})
	metric := New("all-bound", tu)
	clause := reorderClause()

	first := Reordering(metric, clause)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Reordering(metric, clause))
	}
}

func TestReordering_DeltaPriority(t *testing.T) {
	tu := ast.NewTranslationUnit(ast.NewProgram(), ast.Options{})
	// Neither atom fully bound; the delta metric prefers the delta atom.
	clause := ast.NewClause(
		ast.NewAtom("r", v("x"), v("z")),
		ast.NewAtom("e", &ast.UnnamedVariable{}, v("z")),
		ast.NewAtom("@delta_r", v("x"), &ast.UnnamedVariable{}),
	)
	require.Equal(t, []int{1, 0}, Reordering(New("delta", tu), clause))
}

func TestReordering_CoversAllAtoms(t *testing.T) {
	tu := ast.NewTranslationUnit(ast.NewProgram(), ast.Options{})
	clause := ast.NewClause(
		ast.NewAtom("r", v("a")),
		ast.NewAtom("p", v("a"), v("b")),
		ast.NewAtom("q", v("b"), v("c")),
		ast.NewAtom("s", v("c"), v("a")),
	)
	order := Reordering(New("max-bound", tu), clause)
	seen := map[int]bool{}
	for _, idx := range order {
		require.False(t, seen[idx])
		seen[idx] = true
	}
	require.Len(t, order, 3)
}
