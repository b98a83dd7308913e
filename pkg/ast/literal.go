package ast

import "strconv"

// Literal is an element of a clause body: an Atom, a Negation, a
// BinaryConstraint or a BooleanConstraint.
type Literal interface {
	Node
	isLiteral()
}

func cloneLits(lits []Literal) []Literal {
	out := make([]Literal, len(lits))
	for i, l := range lits {
		out[i] = l.Clone().(Literal)
	}
	return out
}

func litNodes(lits []Literal) []Node {
	out := make([]Node, len(lits))
	for i, l := range lits {
		out[i] = l
	}
	return out
}

func applyLits(lits []Literal, m Mapper) {
	for i, l := range lits {
		lits[i] = m(l).(Literal)
	}
}

// Atom is a positive literal p(t1,...,tn) referring to a relation.
type Atom struct {
	Name QualifiedName
	Args []Argument
}

// NewAtom builds an atom over the dotted relation name.
func NewAtom(name string, args ...Argument) *Atom {
	return &Atom{Name: ParseQualifiedName(name), Args: args}
}

func (*Atom) isLiteral()  {}
func (*Atom) isArgument() {}

// Arity returns the number of arguments.
func (a *Atom) Arity() int { return len(a.Args) }

func (a *Atom) String() string {
	return a.Name.String() + "(" + joinArgs(a.Args) + ")"
}

func (a *Atom) Equal(other Node) bool {
	o, ok := other.(*Atom)
	return ok && o.Name.EqualName(a.Name) && equalNodes(argNodes(a.Args), argNodes(o.Args))
}

func (a *Atom) Clone() Node {
	return &Atom{Name: a.Name, Args: cloneArgs(a.Args)}
}

func (a *Atom) Children() []Node { return argNodes(a.Args) }

func (a *Atom) Apply(m Mapper) { applyArgs(a.Args, m) }

// Negation is a negated atom !p(t1,...,tn).
type Negation struct {
	Atom *Atom
}

func (*Negation) isLiteral() {}

func (n *Negation) String() string { return "!" + n.Atom.String() }

func (n *Negation) Equal(other Node) bool {
	o, ok := other.(*Negation)
	return ok && o.Atom.Equal(n.Atom)
}

func (n *Negation) Clone() Node { return &Negation{Atom: n.Atom.Clone().(*Atom)} }

func (n *Negation) Children() []Node { return []Node{n.Atom} }

func (n *Negation) Apply(m Mapper) { n.Atom = m(n.Atom).(*Atom) }

// BinaryConstraint compares two terms, e.g. x = y or x < 3.
type BinaryConstraint struct {
	Op  BinaryConstraintOp
	LHS Argument
	RHS Argument
}

func (*BinaryConstraint) isLiteral() {}

func (c *BinaryConstraint) String() string {
	return c.LHS.String() + " " + c.Op.Symbol() + " " + c.RHS.String()
}

func (c *BinaryConstraint) Equal(other Node) bool {
	o, ok := other.(*BinaryConstraint)
	return ok && o.Op == c.Op && o.LHS.Equal(c.LHS) && o.RHS.Equal(c.RHS)
}

func (c *BinaryConstraint) Clone() Node {
	return &BinaryConstraint{
		Op:  c.Op,
		LHS: c.LHS.Clone().(Argument),
		RHS: c.RHS.Clone().(Argument),
	}
}

func (c *BinaryConstraint) Children() []Node { return []Node{c.LHS, c.RHS} }

func (c *BinaryConstraint) Apply(m Mapper) {
	c.LHS = m(c.LHS).(Argument)
	c.RHS = m(c.RHS).(Argument)
}

// BooleanConstraint is the constant literal true or false.
type BooleanConstraint struct {
	Value bool
}

func (*BooleanConstraint) isLiteral() {}

func (b *BooleanConstraint) String() string { return strconv.FormatBool(b.Value) }

func (b *BooleanConstraint) Equal(other Node) bool {
	o, ok := other.(*BooleanConstraint)
	return ok && o.Value == b.Value
}

func (b *BooleanConstraint) Clone() Node { return &BooleanConstraint{Value: b.Value} }

func (b *BooleanConstraint) Children() []Node { return nil }

func (b *BooleanConstraint) Apply(Mapper) {}
