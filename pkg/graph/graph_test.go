package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGraph_InsertAndAdjacency(t *testing.T) {
	g := New[string]()
	g.InsertEdge("a", "b")
	g.InsertEdge("b", "c")
	g.InsertEdge("a", "c")
	g.InsertVertex("d")

	require.True(t, g.Contains("a"))
	require.True(t, g.Contains("d"))
	require.False(t, g.Contains("e"))
	require.True(t, g.ContainsEdge("a", "b"))
	require.False(t, g.ContainsEdge("b", "a"))

	require.Equal(t, []string{"a", "b", "c", "d"}, g.Vertices())
	require.Equal(t, []string{"b", "c"}, g.Successors("a"))
	require.Equal(t, []string{"a", "b"}, g.Predecessors("c"))
	require.Equal(t, 4, g.Size())
}

func TestGraph_InsertEdgeAddsEndpoints(t *testing.T) {
	g := New[int]()
	g.InsertEdge(1, 2)
	require.True(t, g.Contains(1))
	require.True(t, g.Contains(2))
}

func TestGraph_Reaches(t *testing.T) {
	g := New[int]()
	g.InsertEdge(1, 2)
	g.InsertEdge(2, 3)
	g.InsertEdge(3, 1)
	g.InsertEdge(3, 4)
	g.InsertVertex(9)

	tests := []struct {
		name string
		from int
		to   int
		want bool
	}{
		{"direct edge", 1, 2, true},
		{"transitive", 1, 4, true},
		{"through cycle", 3, 2, true},
		{"no path", 4, 1, false},
		{"self", 9, 9, true},
		{"unknown vertex", 5, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, g.Reaches(tt.from, tt.to))
		})
	}
}

func TestGraph_VisitOrder(t *testing.T) {
	g := New[int]()
	g.InsertEdge(1, 3)
	g.InsertEdge(1, 2)
	g.InsertEdge(2, 4)
	g.InsertEdge(3, 4)

	var visited []int
	g.Visit(1, func(v int) { visited = append(visited, v) })
	require.Equal(t, []int{1, 2, 4, 3}, visited)
}

func TestGraph_Clique(t *testing.T) {
	g := New[string]()
	g.InsertEdge("a", "b")
	g.InsertEdge("b", "c")
	g.InsertEdge("c", "a")
	g.InsertEdge("c", "d")

	require.Equal(t, []string{"a", "b", "c"}, g.Clique("a"))
	require.Equal(t, []string{"d"}, g.Clique("d"))
}
