// Package ram defines the relational-algebra intermediate form the middle
// end lowers programs into: expressions producing values, conditions
// producing booleans, operations forming the loop nests of queries, and
// statements forming the outer program skeleton.
//
// RAM nodes are immutable after construction; rewriting happens by
// clone-and-replace through Apply. Every node supports structural equality,
// deep cloning, child iteration and mapping, mirroring the AST node
// contract.
package ram

import (
	"fmt"
	"math"
)

// Domain is the machine word of the evaluation engine. Signed integers are
// stored directly; unsigned and float values are conveyed as bit patterns;
// symbol and record identifiers are table indices.
type Domain int32

// MinDomain and MaxDomain bound the signed domain; range patterns use them
// as the unbounded sentinels.
const (
	MinDomain = Domain(math.MinInt32)
	MaxDomain = Domain(math.MaxInt32)
)

// Node is implemented by every RAM entity.
type Node interface {
	fmt.Stringer

	// Equal reports structural equality with another node.
	Equal(other Node) bool

	// Clone returns a deep copy sharing no structure with the receiver.
	Clone() Node

	// Children returns the direct child nodes in evaluation order.
	Children() []Node

	// Apply replaces each direct child c with m(c).
	Apply(m Mapper)
}

// Mapper rewrites one node into another of a compatible kind.
type Mapper func(Node) Node

// Expression produces a Domain value.
type Expression interface {
	Node
	isExpression()
}

// Condition produces a boolean.
type Condition interface {
	Node
	isCondition()
}

// Operation is a side-effecting element of a query's loop nest.
type Operation interface {
	Node
	isOperation()
}

// Statement is an element of the outer program skeleton.
type Statement interface {
	Node
	isStatement()
}

// Walk traverses the subtree rooted at n in pre-order.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// ForEach invokes fn for every node of type T under n, in pre-order.
func ForEach[T Node](n Node, fn func(T)) {
	Walk(n, func(cur Node) {
		if t, ok := cur.(T); ok {
			fn(t)
		}
	})
}

func equalNodes(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if (a[i] == nil) != (b[i] == nil) {
			return false
		}
		if a[i] != nil && !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func exprNodes(exprs []Expression) []Node {
	out := make([]Node, len(exprs))
	for i, e := range exprs {
		if e != nil {
			out[i] = e
		}
	}
	return out
}

func cloneExprs(exprs []Expression) []Expression {
	out := make([]Expression, len(exprs))
	for i, e := range exprs {
		if e != nil {
			out[i] = e.Clone().(Expression)
		}
	}
	return out
}

func applyExprs(exprs []Expression, m Mapper) {
	for i, e := range exprs {
		if e != nil {
			exprs[i] = m(e).(Expression)
		}
	}
}

func joinStrings(nodes []Node, sep string) string {
	s := ""
	for i, n := range nodes {
		if i > 0 {
			s += sep
		}
		if n == nil {
			s += "_"
			continue
		}
		s += n.String()
	}
	return s
}
