package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gitrdm/godatalog/pkg/ram"
)

func sig(pattern string) SearchSignature {
	s := NewSearchSignature(len(pattern))
	for i, c := range pattern {
		switch c {
		case 'E':
			s[i] = ConstraintEqual
		case 'I':
			s[i] = ConstraintInequal
		}
	}
	return s
}

func TestSearchSignature_Precedes(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"prefix subsumed", "E__", "EE_", true},
		{"equal signatures", "EE_", "EE_", true},
		{"not subsumed", "E__", "__E", false},
		{"inequality upgraded by equality", "I__", "E__", true},
		{"equality not satisfied by inequality", "E__", "I__", false},
		{"inequality kept", "I__", "IE_", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, sig(tt.a).Precedes(sig(tt.b)))
		})
	}
}

// isPrefixOf reports whether the constrained attributes of s form a prefix
// of the order.
func isPrefixOf(s SearchSignature, order LexOrder) bool {
	constrained := make(map[int]bool)
	for pos, c := range s {
		if c != ConstraintNone {
			constrained[pos] = true
		}
	}
	for i := 0; i < len(constrained); i++ {
		if i >= len(order) || !constrained[order[i]] {
			return false
		}
	}
	return true
}

func TestMinIndexSelection_SpecScenario(t *testing.T) {
	// p(a,b,c) with searches {(E,-,-), (E,E,-), (-,-,E)}: two orders, one
	// covering the chain E__ -> EE_, one covering __E.
	searches := []SearchSignature{sig("E__"), sig("EE_"), sig("__E")}
	cluster := MinIndexSelection(searches)

	require.Len(t, cluster.Orders, 2)
	for _, s := range searches {
		idx := cluster.OrderFor(s)
		require.GreaterOrEqual(t, idx, 0)
		require.True(t, isPrefixOf(s, cluster.Orders[idx]),
			"search %s should be a prefix of %s", s, cluster.Orders[idx])
	}
	// E__ and EE_ share one chain.
	require.Equal(t, cluster.OrderFor(sig("E__")), cluster.OrderFor(sig("EE_")))
	require.NotEqual(t, cluster.OrderFor(sig("E__")), cluster.OrderFor(sig("__E")))
}

func TestMinIndexSelection_DilworthCount(t *testing.T) {
	tests := []struct {
		name     string
		searches []SearchSignature
		want     int
	}{
		{"single chain", []SearchSignature{sig("E__"), sig("EE_"), sig("EEE")}, 1},
		{"antichain", []SearchSignature{sig("E__"), sig("_E_"), sig("__E")}, 3},
		{"two chains", []SearchSignature{sig("E__"), sig("EE_"), sig("__E")}, 2},
		{"duplicates collapse", []SearchSignature{sig("E_"), sig("E_")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cluster := MinIndexSelection(tt.searches)
			require.Len(t, cluster.Orders, tt.want)
			for _, s := range cluster.Searches {
				idx := cluster.OrderFor(s)
				require.GreaterOrEqual(t, idx, 0)
				require.True(t, isPrefixOf(s, cluster.Orders[idx]))
			}
		})
	}
}

func TestMinIndexSelection_InequalityLast(t *testing.T) {
	// An index covering IE puts the equality attribute (position 1) first.
	cluster := MinIndexSelection([]SearchSignature{sig("IE")})
	require.Len(t, cluster.Orders, 1)
	require.Equal(t, LexOrder{1, 0}, cluster.Orders[0])
}

func TestRunIndexAnalysis(t *testing.T) {
	prog := ram.NewProgram()
	prog.Relations["p"] = &ram.Relation{Name: "p", Arity: 3}
	prog.Relations["q"] = &ram.Relation{Name: "q", Arity: 2}

	one := func() ram.Expression { return &ram.SignedConstant{Value: 1} }
	undef := func() ram.Expression { return &ram.UndefValue{} }

	prog.Main = &ram.Sequence{Statements: []ram.Statement{
		&ram.Query{Root: &ram.IndexScan{
			Relation: "p", TupleID: 0,
			Pattern: ram.RangePattern{
				Lower: []ram.Expression{one(), undef(), undef()},
				Upper: []ram.Expression{one(), undef(), undef()},
			},
			Nested: &ram.Insert{Relation: "q", Values: []ram.Expression{
				&ram.TupleElement{TupleID: 0, Element: 0},
				&ram.TupleElement{TupleID: 0, Element: 1},
			}},
		}},
		&ram.Query{Root: &ram.Filter{
			Condition: &ram.ExistenceCheck{Relation: "p", Values: []ram.Expression{
				one(), one(), undef(),
			}},
			Nested: &ram.Insert{Relation: "q", Values: []ram.Expression{one(), one()}},
		}},
	}}

	analysis := RunIndexAnalysis(prog, false)

	p := analysis.Cluster("p")
	require.NotNil(t, p)
	require.Len(t, p.Searches, 2)
	require.Len(t, p.Orders, 1)
	// Orders are completed into total permutations.
	require.Len(t, p.Orders[0], 3)

	// q has no searches; it still receives its total-order index.
	q := analysis.Cluster("q")
	require.Len(t, q.Orders, 1)
	require.Len(t, q.Orders[0], 2)
}

func TestRunIndexAnalysis_ProvenanceDropsInequalities(t *testing.T) {
	prog := ram.NewProgram()
	prog.Relations["p"] = &ram.Relation{Name: "p", Arity: 2}
	prog.Relations["o"] = &ram.Relation{Name: "o", Arity: 1}
	prog.Main = &ram.Query{Root: &ram.IndexScan{
		Relation: "p", TupleID: 0,
		Pattern: ram.RangePattern{
			Lower: []ram.Expression{&ram.SignedConstant{Value: 1}, &ram.SignedConstant{Value: 0}},
			Upper: []ram.Expression{&ram.SignedConstant{Value: 1}, &ram.SignedConstant{Value: 9}},
		},
		Nested: &ram.Insert{Relation: "o", Values: []ram.Expression{
			&ram.TupleElement{TupleID: 0, Element: 0},
		}},
	}}

	plain := RunIndexAnalysis(prog, false)
	require.Equal(t, "EI", plain.Cluster("p").Searches[0].Key())

	prov := RunIndexAnalysis(prog, true)
	require.Equal(t, "E_", prov.Cluster("p").Searches[0].Key())
}
