package ram

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/godatalog/pkg/ast"
)

func sampleQuery() *Query {
	// for t0 in edge: if (t0.0 != 1) insert (t0.0, t0.1) into reach
	return &Query{Root: &Scan{
		Relation: "edge",
		TupleID:  0,
		Nested: &Filter{
			Condition: &Constraint{
				Op:  ast.BinaryConstraintNE,
				LHS: &TupleElement{TupleID: 0, Element: 0},
				RHS: &SignedConstant{Value: 1},
			},
			Nested: &Insert{
				Relation: "reach",
				Values: []Expression{
					&TupleElement{TupleID: 0, Element: 0},
					&TupleElement{TupleID: 0, Element: 1},
				},
			},
		},
	}}
}

func TestRamNodes_CloneEqual(t *testing.T) {
	nodes := []Node{
		&SignedConstant{Value: 7},
		&StringConstant{Value: "x"},
		&TupleElement{TupleID: 1, Element: 2},
		&UndefValue{},
		&AutoIncrement{},
		&IntrinsicOperator{Op: ast.FunctorAdd, Args: []Expression{
			&TupleElement{TupleID: 0, Element: 0}, &SignedConstant{Value: 1}}},
		&UserDefinedOperator{Name: "f", Args: []Expression{&SignedConstant{Value: 2}}},
		&PackRecord{Args: []Expression{&SignedConstant{Value: 1}, &SignedConstant{Value: 2}}},
		&SubroutineArgument{Index: 3},
		&RelationSize{Relation: "r"},
		&True{},
		&False{},
		&Conjunction{LHS: &True{}, RHS: &False{}},
		&Negation{Cond: &EmptinessCheck{Relation: "r"}},
		&Constraint{Op: ast.BinaryConstraintLT,
			LHS: &SignedConstant{Value: 1}, RHS: &SignedConstant{Value: 2}},
		&ExistenceCheck{Relation: "r", Values: []Expression{&SignedConstant{Value: 1}, &UndefValue{}}},
		&ProvenanceExistenceCheck{Relation: "r", Values: []Expression{&UndefValue{}}},
		sampleQuery(),
		&Loop{Body: &Sequence{Statements: []Statement{
			&Exit{Condition: &EmptinessCheck{Relation: "d"}},
			&Swap{First: "a", Second: "b"},
			&Clear{Relation: "c"},
		}}},
		&Parallel{Statements: []Statement{&Clear{Relation: "a"}}},
		&Extend{Target: "a", Source: "b"},
		&IO{Kind: IOStore, Relation: "out", Params: map[string]string{"file": "x"}},
		&LogSize{Relation: "r", Message: "m"},
		&LogTimer{Message: "m", Body: &Clear{Relation: "r"}},
		&DebugInfo{Message: "m", Body: &Clear{Relation: "r"}},
		&Call{Name: "sub"},
		&IndexScan{Relation: "r", TupleID: 0,
			Pattern: RangePattern{
				Lower: []Expression{&SignedConstant{Value: 1}, &UndefValue{}},
				Upper: []Expression{&SignedConstant{Value: 1}, &UndefValue{}},
			},
			Nested: &Insert{Relation: "o", Values: []Expression{&SignedConstant{Value: 0}}}},
		&Aggregate{Op: ast.AggregateSum, Relation: "r", TupleID: 0,
			Target:    &TupleElement{TupleID: 0, Element: 0},
			Condition: &True{},
			Nested:    &Insert{Relation: "o", Values: []Expression{&TupleElement{TupleID: 0, Element: 0}}}},
		&UnpackRecord{Expression: &TupleElement{TupleID: 0, Element: 1}, Arity: 2, TupleID: 1,
			Nested: &Insert{Relation: "o", Values: []Expression{&TupleElement{TupleID: 1, Element: 0}}}},
		&Break{Condition: &False{}, Nested: &Insert{Relation: "o", Values: nil}},
		&NestedIntrinsicOperator{Op: ast.FunctorRange, TupleID: 2,
			Args:   []Expression{&SignedConstant{Value: 0}, &SignedConstant{Value: 5}},
			Nested: &Insert{Relation: "o", Values: []Expression{&TupleElement{TupleID: 2, Element: 0}}}},
		&GuardedInsert{Relation: "o", Guard: &True{},
			Values: []Expression{&SignedConstant{Value: 1}}},
		&SubroutineReturn{Values: []Expression{&SignedConstant{Value: 1}}},
	}
	for _, n := range nodes {
		clone := n.Clone()
		require.True(t, clone.Equal(n), "clone of %s should equal original", n)
		require.False(t, clone == Node(n), "clone of %s should be a distinct node", n)
	}
}

func TestRamNodes_CloneIsDeep(t *testing.T) {
	q := sampleQuery()
	clone := q.Clone().(*Query)
	scan := clone.Root.(*Scan)
	scan.Relation = "mutated"
	require.Equal(t, "edge", q.Root.(*Scan).Relation)
}

func TestRamNodes_ChildrenMatchApply(t *testing.T) {
	nodes := []Node{
		sampleQuery(),
		&Conjunction{LHS: &True{}, RHS: &False{}},
		&IntrinsicOperator{Op: ast.FunctorAdd, Args: []Expression{
			&SignedConstant{Value: 1}, &SignedConstant{Value: 2}}},
		&Loop{Body: &Exit{Condition: &True{}}},
	}
	for _, n := range nodes {
		children := n.Children()
		var applied []Node
		n.Apply(func(c Node) Node {
			applied = append(applied, c)
			return c
		})
		require.Equal(t, len(children), len(applied))
		for i := range children {
			require.True(t, children[i].Equal(applied[i]))
		}
	}
}

func TestRamNodes_InequalAcrossKinds(t *testing.T) {
	require.False(t, (&True{}).Equal(&False{}))
	require.False(t, (&SignedConstant{Value: 1}).Equal(&SignedConstant{Value: 2}))
	require.False(t, (&Scan{Relation: "a", Nested: &Insert{Relation: "o"}}).
		Equal(&Scan{Relation: "b", Nested: &Insert{Relation: "o"}}))
}

func TestConjoinAll(t *testing.T) {
	require.True(t, ConjoinAll(nil).Equal(&True{}))
	single := ConjoinAll([]Condition{&False{}})
	require.True(t, single.Equal(&False{}))
	double := ConjoinAll([]Condition{&True{}, &False{}})
	conj, ok := double.(*Conjunction)
	require.True(t, ok)
	require.True(t, conj.LHS.Equal(&True{}))
	require.True(t, conj.RHS.Equal(&False{}))
}

func TestProgram_Lookup(t *testing.T) {
	p := NewProgram()
	p.Relations["edge"] = &Relation{Name: "edge", Arity: 2}
	p.Subroutines["explain"] = &Sequence{}
	require.NotNil(t, p.Relation("edge"))
	require.Nil(t, p.Relation("missing"))
	require.Equal(t, []string{"edge"}, p.RelationNames())
	require.Equal(t, []string{"explain"}, p.SubroutineNames())
}
