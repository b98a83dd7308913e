package ast

import (
	"sort"
	"strings"
)

// Synthetic name prefixes used by the rewriting pipeline and the lowering.
const (
	// DeltaPrefix marks the per-iteration delta version of a relation in
	// semi-naive evaluation.
	DeltaPrefix = "@delta_"
	// NewPrefix marks the freshly derived tuples of the current iteration.
	NewPrefix = "@new_"
)

// IsDeltaName reports whether the qualified name refers to a delta relation.
func IsDeltaName(name QualifiedName) bool {
	segs := name.Segments()
	return len(segs) > 0 && strings.HasPrefix(segs[0], DeltaPrefix)
}

// DeltaName derives the delta-relation name of a relation.
func DeltaName(name QualifiedName) QualifiedName {
	return name.WithPrefixedHead(DeltaPrefix)
}

// NewName derives the new-tuples relation name of a relation.
func NewName(name QualifiedName) QualifiedName {
	return name.WithPrefixedHead(NewPrefix)
}

// VariablesOf returns the distinct named variables of the subtree, sorted.
func VariablesOf(n Node) []string {
	set := make(map[string]struct{})
	ForEach[*Variable](n, func(v *Variable) {
		set[v.Name] = struct{}{}
	})
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ReorderAtoms returns a clone of the clause whose body atoms appear in the
// given order while all non-atom literals keep their original positions.
// order[i] = j places the clause's j-th atom at the i-th atom slot.
func ReorderAtoms(clause *Clause, order []int) *Clause {
	atoms := clause.BodyAtoms()
	res := clause.Clone().(*Clause)
	slot := 0
	for i, lit := range res.Body {
		if _, ok := lit.(*Atom); !ok {
			continue
		}
		res.Body[i] = atoms[order[slot]].Clone().(*Atom)
		slot++
	}
	return res
}
