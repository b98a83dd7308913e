package analysis

import (
	"fmt"
	"strings"

	"github.com/gitrdm/godatalog/pkg/ast"
)

const topoName = "topological-scc-order"

// TopoSortedSCCs produces a linear order of SCC indices consistent with the
// SCC DAG, using the forwards Kahn-like recursion over ready successors. The
// associated cost metric measures, per step, how many earlier components
// must still be kept alive past that step.
type TopoSortedSCCs struct {
	sccs  *SCCGraph
	order []int
}

// TopoOrderOf returns the cached topological SCC order of the unit.
func TopoOrderOf(tu *ast.TranslationUnit) *TopoSortedSCCs {
	return tu.Analysis(topoName, func() ast.Analysis {
		return &TopoSortedSCCs{}
	}).(*TopoSortedSCCs)
}

// Name implements ast.Analysis.
func (t *TopoSortedSCCs) Name() string { return topoName }

// Run implements ast.Analysis.
func (t *TopoSortedSCCs) Run(tu *ast.TranslationUnit) {
	t.sccs = SCCsOf(tu)
	t.order = nil
	visited := make([]bool, t.sccs.NumSCCs())
	for scc := 0; scc < t.sccs.NumSCCs(); scc++ {
		if len(t.sccs.Predecessors(scc)) == 0 {
			t.order = append(t.order, scc)
			visited[scc] = true
			if len(t.sccs.Successors(scc)) > 0 {
				t.expand(scc, visited)
			}
		}
	}
}

// expand recursively appends every successor whose predecessors have all
// been visited, then revisits the root while it still has pending
// successors but no pending predecessors.
func (t *TopoSortedSCCs) expand(scc int, visited []bool) {
	found := false
	for _, succ := range t.sccs.Successors(scc) {
		if visited[succ] {
			continue
		}
		ready := true
		for _, pred := range t.sccs.Predecessors(succ) {
			if !visited[pred] {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}
		visited[succ] = true
		t.order = append(t.order, succ)
		t.expand(succ, visited)
		found = true
	}
	if !found {
		return
	}
	for _, pred := range t.sccs.Predecessors(scc) {
		if !visited[pred] {
			return
		}
	}
	for _, succ := range t.sccs.Successors(scc) {
		if !visited[succ] {
			t.expand(scc, visited)
			return
		}
	}
}

// Order returns the emitted SCC order.
func (t *TopoSortedSCCs) Order() []int {
	out := make([]int, len(t.order))
	copy(out, t.order)
	return out
}

// Cost evaluates the scheduling cost of a permutation of SCC indices: the
// maximum, over all positions i, of the number of earlier components with a
// successor at position >= i. It returns -1 if the permutation is not a
// valid topological order.
func (t *TopoSortedSCCs) Cost(permutation []int) int {
	position := make(map[int]int, len(permutation))
	for i, scc := range permutation {
		position[scc] = i
	}
	costOfPermutation := -1
	for i, scc := range permutation {
		for _, pred := range t.sccs.Predecessors(scc) {
			if pos, ok := position[pred]; !ok || pos >= i {
				return -1
			}
		}
		costOfSCC := 0
		for j := 0; j < i; j++ {
			for _, succ := range t.sccs.Successors(permutation[j]) {
				if pos, ok := position[succ]; !ok || pos >= i {
					costOfSCC++
					break
				}
			}
		}
		if costOfSCC > costOfPermutation {
			costOfPermutation = costOfSCC
		}
	}
	return costOfPermutation
}

func (t *TopoSortedSCCs) String() string {
	var sb strings.Builder
	sb.WriteString("--- total order with relations of each stratum ---\n")
	for i, scc := range t.order {
		names := make([]string, 0)
		for _, rel := range t.sccs.Members(scc) {
			names = append(names, rel.Name.String())
		}
		fmt.Fprintf(&sb, "%d: [%s]\n", i, strings.Join(names, ", "))
	}
	fmt.Fprintf(&sb, "cost: %d\n", t.Cost(t.order))
	return sb.String()
}
