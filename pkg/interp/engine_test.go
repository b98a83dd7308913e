package interp

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/ram"
)

func runProgram(t *testing.T, prog *ram.Program, opts Options) *Engine {
	t.Helper()
	symbols := NewSymbolTable()
	code, err := Generate(prog, symbols, false)
	require.NoError(t, err)
	engine := NewEngine(code, symbols, NewRecordTable(), opts)
	require.NoError(t, engine.Run(context.Background()))
	return engine
}

func tuples(rel Relation) []Tuple {
	var out []Tuple
	rel.Scan(func(t Tuple) bool {
		out = append(out, CloneTuple(t))
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		for k := range out[i] {
			if out[i][k] != out[j][k] {
				return out[i][k] < out[j][k]
			}
		}
		return false
	})
	return out
}

func num(v int32) ram.Expression { return &ram.SignedConstant{Value: ram.Domain(v)} }

func elem(id, pos int) ram.Expression { return &ram.TupleElement{TupleID: id, Element: pos} }

// copyProgram builds: src gets three facts, dst receives a filtered copy.
func copyProgram(parallel bool) *ram.Program {
	prog := ram.NewProgram()
	prog.Relations["src"] = &ram.Relation{Name: "src", Arity: 2}
	prog.Relations["dst"] = &ram.Relation{Name: "dst", Arity: 2}

	insert := func(a, b int32) ram.Statement {
		return &ram.Query{Root: &ram.Insert{Relation: "src", Values: []ram.Expression{num(a), num(b)}}}
	}
	prog.Main = &ram.Sequence{Statements: []ram.Statement{
		insert(1, 10), insert(2, 20), insert(3, 30),
		&ram.Query{Root: &ram.Scan{
			Relation: "src", TupleID: 0, Parallel: parallel,
			Nested: &ram.Filter{
				Condition: &ram.Constraint{Op: ast.BinaryConstraintGT, LHS: elem(0, 1), RHS: num(10)},
				Nested:    &ram.Insert{Relation: "dst", Values: []ram.Expression{elem(0, 0), elem(0, 1)}},
			},
		}},
	}}
	return prog
}

func TestEngine_ScanFilterInsert(t *testing.T) {
	engine := runProgram(t, copyProgram(false), Options{})
	require.Equal(t, []Tuple{{2, 20}, {3, 30}}, tuples(engine.Relation("dst")))
}

func TestEngine_ParallelScanMatchesSequential(t *testing.T) {
	sequential := runProgram(t, copyProgram(false), Options{Jobs: 1})
	parallel := runProgram(t, copyProgram(true), Options{Jobs: 4})
	require.Equal(t,
		tuples(sequential.Relation("dst")),
		tuples(parallel.Relation("dst")))
}

func TestEngine_ExistenceAndEmptiness(t *testing.T) {
	prog := ram.NewProgram()
	prog.Relations["a"] = &ram.Relation{Name: "a", Arity: 1}
	prog.Relations["out"] = &ram.Relation{Name: "out", Arity: 1}

	prog.Main = &ram.Sequence{Statements: []ram.Statement{
		&ram.Query{Root: &ram.Insert{Relation: "a", Values: []ram.Expression{num(5)}}},
		// out(1) :- (5) in a.
		&ram.Query{Root: &ram.Filter{
			Condition: &ram.ExistenceCheck{Relation: "a", Values: []ram.Expression{num(5)}},
			Nested:    &ram.Insert{Relation: "out", Values: []ram.Expression{num(1)}},
		}},
		// out(2) :- (9) in a.  never fires
		&ram.Query{Root: &ram.Filter{
			Condition: &ram.ExistenceCheck{Relation: "a", Values: []ram.Expression{num(9)}},
			Nested:    &ram.Insert{Relation: "out", Values: []ram.Expression{num(2)}},
		}},
		// out(3) :- a = empty.  never fires
		&ram.Query{Root: &ram.Filter{
			Condition: &ram.EmptinessCheck{Relation: "a"},
			Nested:    &ram.Insert{Relation: "out", Values: []ram.Expression{num(3)}},
		}},
	}}

	engine := runProgram(t, prog, Options{})
	require.Equal(t, []Tuple{{1}}, tuples(engine.Relation("out")))
}

func TestEngine_LoopExitSwap(t *testing.T) {
	// Doubling loop: seed work={1}; each round inserts 2*x into next until
	// the value exceeds 8, merging into all.
	prog := ram.NewProgram()
	for _, name := range []string{"work", "next", "all"} {
		prog.Relations[name] = &ram.Relation{Name: name, Arity: 1}
	}

	double := &ram.IntrinsicOperator{Op: ast.FunctorMul, Args: []ram.Expression{num(2), elem(0, 0)}}
	prog.Main = &ram.Sequence{Statements: []ram.Statement{
		&ram.Query{Root: &ram.Insert{Relation: "work", Values: []ram.Expression{num(1)}}},
		&ram.Query{Root: &ram.Insert{Relation: "all", Values: []ram.Expression{num(1)}}},
		&ram.Loop{Body: &ram.Sequence{Statements: []ram.Statement{
			&ram.Query{Root: &ram.Scan{
				Relation: "work", TupleID: 0,
				Nested: &ram.Filter{
					Condition: &ram.Constraint{Op: ast.BinaryConstraintLE, LHS: double, RHS: num(8)},
					Nested:    &ram.Insert{Relation: "next", Values: []ram.Expression{double.Clone().(ram.Expression)}},
				},
			}},
			&ram.Exit{Condition: &ram.EmptinessCheck{Relation: "next"}},
			&ram.Query{Root: &ram.Scan{
				Relation: "next", TupleID: 0,
				Nested: &ram.Insert{Relation: "all", Values: []ram.Expression{elem(0, 0)}},
			}},
			&ram.Swap{First: "work", Second: "next"},
			&ram.Clear{Relation: "next"},
		}}},
	}}

	engine := runProgram(t, prog, Options{})
	require.Equal(t, []Tuple{{1}, {2}, {4}, {8}}, tuples(engine.Relation("all")))
}

func TestEngine_AggregateSum(t *testing.T) {
	prog := ram.NewProgram()
	prog.Relations["b"] = &ram.Relation{Name: "b", Arity: 1}
	prog.Relations["total"] = &ram.Relation{Name: "total", Arity: 1}

	prog.Main = &ram.Sequence{Statements: []ram.Statement{
		&ram.Query{Root: &ram.Insert{Relation: "b", Values: []ram.Expression{num(1)}}},
		&ram.Query{Root: &ram.Insert{Relation: "b", Values: []ram.Expression{num(2)}}},
		&ram.Query{Root: &ram.Insert{Relation: "b", Values: []ram.Expression{num(3)}}},
		&ram.Query{Root: &ram.Aggregate{
			Op: ast.AggregateSum, Relation: "b", TupleID: 0,
			Target: elem(0, 0), Condition: &ram.True{},
			Nested: &ram.Insert{Relation: "total", Values: []ram.Expression{elem(0, 0)}},
		}},
	}}

	engine := runProgram(t, prog, Options{})
	require.Equal(t, []Tuple{{6}}, tuples(engine.Relation("total")))
}

func TestEngine_AggregateEmptyNeutral(t *testing.T) {
	prog := ram.NewProgram()
	prog.Relations["b"] = &ram.Relation{Name: "b", Arity: 1}
	prog.Relations["cnt"] = &ram.Relation{Name: "cnt", Arity: 1}
	prog.Main = &ram.Query{Root: &ram.Aggregate{
		Op: ast.AggregateCount, Relation: "b", TupleID: 0,
		Target: num(0), Condition: &ram.True{},
		Nested: &ram.Insert{Relation: "cnt", Values: []ram.Expression{elem(0, 0)}},
	}}

	engine := runProgram(t, prog, Options{})
	require.Equal(t, []Tuple{{0}}, tuples(engine.Relation("cnt")))
}

func TestEngine_RecordsPackUnpack(t *testing.T) {
	// wrap([x, y]) then unpack back into flat.
	prog := ram.NewProgram()
	prog.Relations["wrap"] = &ram.Relation{Name: "wrap", Arity: 1}
	prog.Relations["flat"] = &ram.Relation{Name: "flat", Arity: 2}

	prog.Main = &ram.Sequence{Statements: []ram.Statement{
		&ram.Query{Root: &ram.Insert{Relation: "wrap", Values: []ram.Expression{
			&ram.PackRecord{Args: []ram.Expression{num(4), num(9)}},
		}}},
		&ram.Query{Root: &ram.Scan{
			Relation: "wrap", TupleID: 0,
			Nested: &ram.UnpackRecord{
				Expression: elem(0, 0), Arity: 2, TupleID: 1,
				Nested: &ram.Insert{Relation: "flat", Values: []ram.Expression{elem(1, 0), elem(1, 1)}},
			},
		}},
	}}

	engine := runProgram(t, prog, Options{})
	require.Equal(t, []Tuple{{4, 9}}, tuples(engine.Relation("flat")))
}

func TestEngine_NestedRange(t *testing.T) {
	prog := ram.NewProgram()
	prog.Relations["out"] = &ram.Relation{Name: "out", Arity: 1}
	prog.Main = &ram.Query{Root: &ram.NestedIntrinsicOperator{
		Op: ast.FunctorRange, TupleID: 0,
		Args:   []ram.Expression{num(2), num(5)},
		Nested: &ram.Insert{Relation: "out", Values: []ram.Expression{elem(0, 0)}},
	}}

	engine := runProgram(t, prog, Options{})
	require.Equal(t, []Tuple{{2}, {3}, {4}}, tuples(engine.Relation("out")))
}

func TestEngine_DivisionByZeroSkipsInsert(t *testing.T) {
	prog := ram.NewProgram()
	prog.Relations["out"] = &ram.Relation{Name: "out", Arity: 1}
	prog.Main = &ram.Query{Root: &ram.Insert{Relation: "out", Values: []ram.Expression{
		&ram.IntrinsicOperator{Op: ast.FunctorDiv, Args: []ram.Expression{num(1), num(0)}},
	}}}

	engine := runProgram(t, prog, Options{})
	require.Zero(t, engine.Relation("out").Size())
}

func TestEngine_Subroutine(t *testing.T) {
	prog := ram.NewProgram()
	prog.Relations["r"] = &ram.Relation{Name: "r", Arity: 1}
	prog.Main = &ram.Sequence{}
	prog.Subroutines["echo"] = &ram.Query{Root: &ram.SubroutineReturn{
		Values: []ram.Expression{&ram.IntrinsicOperator{
			Op:   ast.FunctorAdd,
			Args: []ram.Expression{&ram.SubroutineArgument{Index: 0}, num(1)},
		}},
	}}

	symbols := NewSymbolTable()
	code, err := Generate(prog, symbols, false)
	require.NoError(t, err)
	engine := NewEngine(code, symbols, NewRecordTable(), Options{})
	require.NoError(t, engine.Run(context.Background()))

	out, err := engine.ExecuteSubroutine(context.Background(), "echo", []ram.Domain{41})
	require.NoError(t, err)
	require.Equal(t, []ram.Domain{42}, out)
}
