// Package ast defines the abstract syntax tree of a Datalog program together
// with the translation unit that owns it: the program, a lazily cached set of
// analyses, an error report and a debug reporter.
//
// The node contract mirrors the term contract of relational engines: every
// node can render itself, compare itself structurally, deep-clone itself, and
// enumerate or replace its children. Transformations work by clone-and-replace
// through the Apply mapper; analyses never mutate the tree.
//
// Invariants: a clause head is never nil, body literal slices never contain
// nil entries, and clones share no structure with their originals.
package ast

import "fmt"

// Node is implemented by every AST entity.
type Node interface {
	fmt.Stringer

	// Equal reports structural equality with another node.
	Equal(other Node) bool

	// Clone returns a deep copy sharing no structure with the receiver.
	Clone() Node

	// Children returns the direct child nodes in source order.
	Children() []Node

	// Apply replaces each direct child c with m(c). The mapper must return a
	// node of a type valid for the child's position.
	Apply(m Mapper)
}

// Mapper rewrites a node, returning the replacement. Mappers are applied to
// direct children only; a mapper that wants a deep rewrite calls Apply on the
// node it returns.
type Mapper func(Node) Node

// Walk traverses the subtree rooted at n in pre-order, invoking fn for every
// node including n itself.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// ForEach invokes fn for every node of type T in the subtree rooted at n,
// in pre-order.
func ForEach[T Node](n Node, fn func(T)) {
	Walk(n, func(cur Node) {
		if t, ok := cur.(T); ok {
			fn(t)
		}
	})
}

// MapDeep applies m bottom-up over the whole subtree rooted at n and returns
// the rewritten root. The tree is rewritten in place; callers pass a clone
// when the source must survive.
func MapDeep(n Node, m Mapper) Node {
	n.Apply(func(c Node) Node {
		return MapDeep(c, m)
	})
	return m(n)
}

func equalNodes(a, b []Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
