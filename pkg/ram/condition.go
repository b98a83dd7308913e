package ram

import (
	"github.com/gitrdm/godatalog/pkg/ast"
)

// True always holds.
type True struct {
	_ byte // non-zero size gives every clone its own address
}

func (*True) isCondition() {}

func (*True) String() string { return "true" }

func (*True) Equal(other Node) bool {
	_, ok := other.(*True)
	return ok
}

func (*True) Clone() Node { return &True{} }

func (*True) Children() []Node { return nil }

func (*True) Apply(Mapper) {}

// False never holds.
type False struct {
	_ byte // non-zero size gives every clone its own address
}

func (*False) isCondition() {}

func (*False) String() string { return "false" }

func (*False) Equal(other Node) bool {
	_, ok := other.(*False)
	return ok
}

func (*False) Clone() Node { return &False{} }

func (*False) Children() []Node { return nil }

func (*False) Apply(Mapper) {}

// Conjunction holds when both operands hold.
type Conjunction struct {
	LHS Condition
	RHS Condition
}

func (*Conjunction) isCondition() {}

func (c *Conjunction) String() string { return "(" + c.LHS.String() + " and " + c.RHS.String() + ")" }

func (c *Conjunction) Equal(other Node) bool {
	o, ok := other.(*Conjunction)
	return ok && o.LHS.Equal(c.LHS) && o.RHS.Equal(c.RHS)
}

func (c *Conjunction) Clone() Node {
	return &Conjunction{LHS: c.LHS.Clone().(Condition), RHS: c.RHS.Clone().(Condition)}
}

func (c *Conjunction) Children() []Node { return []Node{c.LHS, c.RHS} }

func (c *Conjunction) Apply(m Mapper) {
	c.LHS = m(c.LHS).(Condition)
	c.RHS = m(c.RHS).(Condition)
}

// ConjoinAll folds a list of conditions into a right-leaning conjunction.
// An empty list yields True.
func ConjoinAll(conds []Condition) Condition {
	if len(conds) == 0 {
		return &True{}
	}
	result := conds[len(conds)-1]
	for i := len(conds) - 2; i >= 0; i-- {
		result = &Conjunction{LHS: conds[i], RHS: result}
	}
	return result
}

// Negation inverts a condition.
type Negation struct {
	Cond Condition
}

func (*Negation) isCondition() {}

func (n *Negation) String() string { return "(not " + n.Cond.String() + ")" }

func (n *Negation) Equal(other Node) bool {
	o, ok := other.(*Negation)
	return ok && o.Cond.Equal(n.Cond)
}

func (n *Negation) Clone() Node { return &Negation{Cond: n.Cond.Clone().(Condition)} }

func (n *Negation) Children() []Node { return []Node{n.Cond} }

func (n *Negation) Apply(m Mapper) { n.Cond = m(n.Cond).(Condition) }

// Constraint compares two expression values.
type Constraint struct {
	Op  ast.BinaryConstraintOp
	LHS Expression
	RHS Expression
}

func (*Constraint) isCondition() {}

func (c *Constraint) String() string {
	return "(" + c.LHS.String() + " " + c.Op.Symbol() + " " + c.RHS.String() + ")"
}

func (c *Constraint) Equal(other Node) bool {
	o, ok := other.(*Constraint)
	return ok && o.Op == c.Op && o.LHS.Equal(c.LHS) && o.RHS.Equal(c.RHS)
}

func (c *Constraint) Clone() Node {
	return &Constraint{Op: c.Op, LHS: c.LHS.Clone().(Expression), RHS: c.RHS.Clone().(Expression)}
}

func (c *Constraint) Children() []Node { return []Node{c.LHS, c.RHS} }

func (c *Constraint) Apply(m Mapper) {
	c.LHS = m(c.LHS).(Expression)
	c.RHS = m(c.RHS).(Expression)
}

// EmptinessCheck holds when the relation holds no tuples.
type EmptinessCheck struct {
	Relation string
}

func (*EmptinessCheck) isCondition() {}

func (e *EmptinessCheck) String() string { return "(" + e.Relation + " = empty)" }

func (e *EmptinessCheck) Equal(other Node) bool {
	o, ok := other.(*EmptinessCheck)
	return ok && o.Relation == e.Relation
}

func (e *EmptinessCheck) Clone() Node { return &EmptinessCheck{Relation: e.Relation} }

func (e *EmptinessCheck) Children() []Node { return nil }

func (e *EmptinessCheck) Apply(Mapper) {}

// ExistenceCheck holds when the relation contains a tuple matching the
// pattern; UndefValue entries are wildcards.
type ExistenceCheck struct {
	Relation string
	Values   []Expression
}

func (*ExistenceCheck) isCondition() {}

func (e *ExistenceCheck) String() string {
	return "(" + joinStrings(exprNodes(e.Values), ",") + ") in " + e.Relation
}

func (e *ExistenceCheck) Equal(other Node) bool {
	o, ok := other.(*ExistenceCheck)
	return ok && o.Relation == e.Relation && equalNodes(exprNodes(e.Values), exprNodes(o.Values))
}

func (e *ExistenceCheck) Clone() Node {
	return &ExistenceCheck{Relation: e.Relation, Values: cloneExprs(e.Values)}
}

func (e *ExistenceCheck) Children() []Node { return exprNodes(e.Values) }

func (e *ExistenceCheck) Apply(m Mapper) { applyExprs(e.Values, m) }

// ProvenanceExistenceCheck is an existence check that ignores the trailing
// rule- and level-number attributes carried by provenance relations.
type ProvenanceExistenceCheck struct {
	Relation string
	Values   []Expression
}

func (*ProvenanceExistenceCheck) isCondition() {}

func (e *ProvenanceExistenceCheck) String() string {
	return "prov (" + joinStrings(exprNodes(e.Values), ",") + ") in " + e.Relation
}

func (e *ProvenanceExistenceCheck) Equal(other Node) bool {
	o, ok := other.(*ProvenanceExistenceCheck)
	return ok && o.Relation == e.Relation && equalNodes(exprNodes(e.Values), exprNodes(o.Values))
}

func (e *ProvenanceExistenceCheck) Clone() Node {
	return &ProvenanceExistenceCheck{Relation: e.Relation, Values: cloneExprs(e.Values)}
}

func (e *ProvenanceExistenceCheck) Children() []Node { return exprNodes(e.Values) }

func (e *ProvenanceExistenceCheck) Apply(m Mapper) { applyExprs(e.Values, m) }
