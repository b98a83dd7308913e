// Package interp contains the tree-walking interpreter core: indexed
// in-memory relations with per-worker views, a symbol table and a
// content-addressed record table, a generator flattening RAM programs into
// executable node graphs with precomputed super-instructions, and the
// executor running those graphs with sequential and parallel variants.
package interp

import (
	"strconv"
	"strings"

	"github.com/gitrdm/godatalog/pkg/ram"
)

// Tuple is a fixed-arity sequence of domain values.
type Tuple []ram.Domain

// CloneTuple copies a tuple.
func CloneTuple(t Tuple) Tuple {
	out := make(Tuple, len(t))
	copy(out, t)
	return out
}

func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = strconv.Itoa(int(v))
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// compareUnder orders two tuples lexicographically under an attribute
// permutation; positions beyond the permutation are ignored.
func compareUnder(order []int, a, b Tuple) int {
	for _, pos := range order {
		if a[pos] < b[pos] {
			return -1
		}
		if a[pos] > b[pos] {
			return 1
		}
	}
	return 0
}
