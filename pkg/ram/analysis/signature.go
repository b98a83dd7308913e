// Package analysis computes the index sets of RAM relations: given the
// distinct search signatures a program issues against each relation, it
// derives a minimum set of lexicographic index orders covering every search.
//
// The construction follows the automatic index selection scheme for Datalog:
// build a bipartite graph between searches related by the subsumption
// partial order, compute a maximum matching with Hopcroft-Karp, and read the
// minimum chain cover off the matching (Dilworth's theorem). Each chain
// becomes one index.
package analysis

import (
	"strings"
)

// AttributeConstraint describes how one attribute is constrained by a
// search.
type AttributeConstraint int

const (
	// ConstraintNone leaves the attribute unconstrained.
	ConstraintNone AttributeConstraint = iota
	// ConstraintEqual fixes the attribute to a point value.
	ConstraintEqual
	// ConstraintInequal bounds the attribute by a range.
	ConstraintInequal
)

// SearchSignature is the per-attribute constraint pattern of one search
// against a relation.
type SearchSignature []AttributeConstraint

// NewSearchSignature returns an all-None signature of the given arity.
func NewSearchSignature(arity int) SearchSignature {
	return make(SearchSignature, arity)
}

// FullSignature returns the all-Equal signature of the given arity.
func FullSignature(arity int) SearchSignature {
	s := NewSearchSignature(arity)
	for i := range s {
		s[i] = ConstraintEqual
	}
	return s
}

// Arity returns the number of attributes.
func (s SearchSignature) Arity() int { return len(s) }

// Empty reports whether no attribute is constrained.
func (s SearchSignature) Empty() bool {
	for _, c := range s {
		if c != ConstraintNone {
			return false
		}
	}
	return true
}

// ConstrainedCount returns the number of constrained attributes.
func (s SearchSignature) ConstrainedCount() int {
	n := 0
	for _, c := range s {
		if c != ConstraintNone {
			n++
		}
	}
	return n
}

// EqualTo reports signature equality.
func (s SearchSignature) EqualTo(other SearchSignature) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Precedes reports whether s is subsumed by other: every constrained
// position of s is identically constrained in other, with equality
// dominating inequality in the attribute partial order.
func (s SearchSignature) Precedes(other SearchSignature) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		switch s[i] {
		case ConstraintEqual:
			if other[i] != ConstraintEqual {
				return false
			}
		case ConstraintInequal:
			if other[i] == ConstraintNone {
				return false
			}
		}
	}
	return true
}

// Delta returns the positions constrained in s but not in base.
func (s SearchSignature) Delta(base SearchSignature) SearchSignature {
	out := NewSearchSignature(len(s))
	for i := range s {
		if base[i] == ConstraintNone {
			out[i] = s[i]
		}
	}
	return out
}

// Key renders the signature as a canonical map key.
func (s SearchSignature) Key() string {
	var sb strings.Builder
	for _, c := range s {
		switch c {
		case ConstraintEqual:
			sb.WriteByte('E')
		case ConstraintInequal:
			sb.WriteByte('I')
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

func (s SearchSignature) String() string { return s.Key() }
