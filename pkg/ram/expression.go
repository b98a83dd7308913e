package ram

import (
	"fmt"
	"strconv"

	"github.com/gitrdm/godatalog/pkg/ast"
)

// SignedConstant is a signed numeric constant.
type SignedConstant struct {
	Value Domain
}

func (*SignedConstant) isExpression() {}

func (c *SignedConstant) String() string { return "number(" + strconv.Itoa(int(c.Value)) + ")" }

func (c *SignedConstant) Equal(other Node) bool {
	o, ok := other.(*SignedConstant)
	return ok && o.Value == c.Value
}

func (c *SignedConstant) Clone() Node { return &SignedConstant{Value: c.Value} }

func (c *SignedConstant) Children() []Node { return nil }

func (c *SignedConstant) Apply(Mapper) {}

// StringConstant is a symbol constant; the generator interns it into the
// symbol table.
type StringConstant struct {
	Value string
}

func (*StringConstant) isExpression() {}

func (c *StringConstant) String() string { return "string(" + strconv.Quote(c.Value) + ")" }

func (c *StringConstant) Equal(other Node) bool {
	o, ok := other.(*StringConstant)
	return ok && o.Value == c.Value
}

func (c *StringConstant) Clone() Node { return &StringConstant{Value: c.Value} }

func (c *StringConstant) Children() []Node { return nil }

func (c *StringConstant) Apply(Mapper) {}

// TupleElement reads element Element of the tuple bound under TupleID.
type TupleElement struct {
	TupleID int
	Element int
}

func (*TupleElement) isExpression() {}

func (t *TupleElement) String() string { return fmt.Sprintf("t%d.%d", t.TupleID, t.Element) }

func (t *TupleElement) Equal(other Node) bool {
	o, ok := other.(*TupleElement)
	return ok && o.TupleID == t.TupleID && o.Element == t.Element
}

func (t *TupleElement) Clone() Node { return &TupleElement{TupleID: t.TupleID, Element: t.Element} }

func (t *TupleElement) Children() []Node { return nil }

func (t *TupleElement) Apply(Mapper) {}

// UndefValue is the undefined value; in range patterns it marks an
// unconstrained position.
type UndefValue struct {
	_ byte // non-zero size gives every clone its own address
}

func (*UndefValue) isExpression() {}

func (*UndefValue) String() string { return "undef" }

func (*UndefValue) Equal(other Node) bool {
	_, ok := other.(*UndefValue)
	return ok
}

func (*UndefValue) Clone() Node { return &UndefValue{} }

func (*UndefValue) Children() []Node { return nil }

func (*UndefValue) Apply(Mapper) {}

// AutoIncrement yields the next value of the evaluation-wide counter.
type AutoIncrement struct {
	_ byte // non-zero size gives every clone its own address
}

func (*AutoIncrement) isExpression() {}

func (*AutoIncrement) String() string { return "autoinc()" }

func (*AutoIncrement) Equal(other Node) bool {
	_, ok := other.(*AutoIncrement)
	return ok
}

func (*AutoIncrement) Clone() Node { return &AutoIncrement{} }

func (*AutoIncrement) Children() []Node { return nil }

func (*AutoIncrement) Apply(Mapper) {}

// IntrinsicOperator applies a built-in operator to its argument values.
type IntrinsicOperator struct {
	Op   ast.FunctorOp
	Args []Expression
}

func (*IntrinsicOperator) isExpression() {}

func (op *IntrinsicOperator) String() string {
	return op.Op.Name() + "(" + joinStrings(exprNodes(op.Args), ",") + ")"
}

func (op *IntrinsicOperator) Equal(other Node) bool {
	o, ok := other.(*IntrinsicOperator)
	return ok && o.Op == op.Op && equalNodes(exprNodes(op.Args), exprNodes(o.Args))
}

func (op *IntrinsicOperator) Clone() Node {
	return &IntrinsicOperator{Op: op.Op, Args: cloneExprs(op.Args)}
}

func (op *IntrinsicOperator) Children() []Node { return exprNodes(op.Args) }

func (op *IntrinsicOperator) Apply(m Mapper) { applyExprs(op.Args, m) }

// UserDefinedOperator applies a user-provided functor by name.
type UserDefinedOperator struct {
	Name string
	Args []Expression
}

func (*UserDefinedOperator) isExpression() {}

func (op *UserDefinedOperator) String() string {
	return "@" + op.Name + "(" + joinStrings(exprNodes(op.Args), ",") + ")"
}

func (op *UserDefinedOperator) Equal(other Node) bool {
	o, ok := other.(*UserDefinedOperator)
	return ok && o.Name == op.Name && equalNodes(exprNodes(op.Args), exprNodes(o.Args))
}

func (op *UserDefinedOperator) Clone() Node {
	return &UserDefinedOperator{Name: op.Name, Args: cloneExprs(op.Args)}
}

func (op *UserDefinedOperator) Children() []Node { return exprNodes(op.Args) }

func (op *UserDefinedOperator) Apply(m Mapper) { applyExprs(op.Args, m) }

// PackRecord interns the evaluated argument tuple into the record table and
// yields its record identifier.
type PackRecord struct {
	Args []Expression
}

func (*PackRecord) isExpression() {}

func (p *PackRecord) String() string {
	return "[" + joinStrings(exprNodes(p.Args), ",") + "]"
}

func (p *PackRecord) Equal(other Node) bool {
	o, ok := other.(*PackRecord)
	return ok && equalNodes(exprNodes(p.Args), exprNodes(o.Args))
}

func (p *PackRecord) Clone() Node { return &PackRecord{Args: cloneExprs(p.Args)} }

func (p *PackRecord) Children() []Node { return exprNodes(p.Args) }

func (p *PackRecord) Apply(m Mapper) { applyExprs(p.Args, m) }

// SubroutineArgument reads one argument of the current subroutine frame.
type SubroutineArgument struct {
	Index int
}

func (*SubroutineArgument) isExpression() {}

func (s *SubroutineArgument) String() string { return fmt.Sprintf("arg(%d)", s.Index) }

func (s *SubroutineArgument) Equal(other Node) bool {
	o, ok := other.(*SubroutineArgument)
	return ok && o.Index == s.Index
}

func (s *SubroutineArgument) Clone() Node { return &SubroutineArgument{Index: s.Index} }

func (s *SubroutineArgument) Children() []Node { return nil }

func (s *SubroutineArgument) Apply(Mapper) {}

// RelationSize yields the current tuple count of a relation.
type RelationSize struct {
	Relation string
}

func (*RelationSize) isExpression() {}

func (r *RelationSize) String() string { return "size(" + r.Relation + ")" }

func (r *RelationSize) Equal(other Node) bool {
	o, ok := other.(*RelationSize)
	return ok && o.Relation == r.Relation
}

func (r *RelationSize) Clone() Node { return &RelationSize{Relation: r.Relation} }

func (r *RelationSize) Children() []Node { return nil }

func (r *RelationSize) Apply(Mapper) {}
