package ram

import (
	"fmt"

	"github.com/gitrdm/godatalog/pkg/ast"
)

// RangePattern bounds an indexed operation: per attribute a lower and upper
// expression, with UndefValue marking unconstrained positions. An equality
// constraint has identical lower and upper entries.
type RangePattern struct {
	Lower []Expression
	Upper []Expression
}

func (p RangePattern) clone() RangePattern {
	return RangePattern{Lower: cloneExprs(p.Lower), Upper: cloneExprs(p.Upper)}
}

func (p RangePattern) equal(o RangePattern) bool {
	return equalNodes(exprNodes(p.Lower), exprNodes(o.Lower)) &&
		equalNodes(exprNodes(p.Upper), exprNodes(o.Upper))
}

func (p RangePattern) children() []Node {
	out := exprNodes(p.Lower)
	return append(out, exprNodes(p.Upper)...)
}

func (p RangePattern) apply(m Mapper) {
	applyExprs(p.Lower, m)
	applyExprs(p.Upper, m)
}

func (p RangePattern) String() string {
	return "[" + joinStrings(exprNodes(p.Lower), ",") + " .. " + joinStrings(exprNodes(p.Upper), ",") + "]"
}

// Scan iterates every tuple of a relation, binding each under TupleID and
// running the nested operation.
type Scan struct {
	Relation string
	TupleID  int
	Nested   Operation
	Parallel bool
}

func (*Scan) isOperation() {}

func (s *Scan) String() string {
	prefix := "for"
	if s.Parallel {
		prefix = "parfor"
	}
	return fmt.Sprintf("%s t%d in %s { %s }", prefix, s.TupleID, s.Relation, s.Nested)
}

func (s *Scan) Equal(other Node) bool {
	o, ok := other.(*Scan)
	return ok && o.Relation == s.Relation && o.TupleID == s.TupleID &&
		o.Parallel == s.Parallel && o.Nested.Equal(s.Nested)
}

func (s *Scan) Clone() Node {
	return &Scan{Relation: s.Relation, TupleID: s.TupleID, Nested: s.Nested.Clone().(Operation), Parallel: s.Parallel}
}

func (s *Scan) Children() []Node { return []Node{s.Nested} }

func (s *Scan) Apply(m Mapper) { s.Nested = m(s.Nested).(Operation) }

// IndexScan iterates the tuples of a relation within a range pattern over a
// chosen index.
type IndexScan struct {
	Relation string
	TupleID  int
	Pattern  RangePattern
	Nested   Operation
	Parallel bool
}

func (*IndexScan) isOperation() {}

func (s *IndexScan) String() string {
	prefix := "for"
	if s.Parallel {
		prefix = "parfor"
	}
	return fmt.Sprintf("%s t%d in %s on index %s { %s }", prefix, s.TupleID, s.Relation, s.Pattern, s.Nested)
}

func (s *IndexScan) Equal(other Node) bool {
	o, ok := other.(*IndexScan)
	return ok && o.Relation == s.Relation && o.TupleID == s.TupleID &&
		o.Parallel == s.Parallel && o.Pattern.equal(s.Pattern) && o.Nested.Equal(s.Nested)
}

func (s *IndexScan) Clone() Node {
	return &IndexScan{
		Relation: s.Relation, TupleID: s.TupleID,
		Pattern: s.Pattern.clone(), Nested: s.Nested.Clone().(Operation), Parallel: s.Parallel,
	}
}

func (s *IndexScan) Children() []Node {
	return append(s.Pattern.children(), s.Nested)
}

func (s *IndexScan) Apply(m Mapper) {
	s.Pattern.apply(m)
	s.Nested = m(s.Nested).(Operation)
}

// IfExists binds one arbitrary tuple of the relation satisfying the
// condition, running the nested operation at most once.
type IfExists struct {
	Relation  string
	TupleID   int
	Condition Condition
	Nested    Operation
}

func (*IfExists) isOperation() {}

func (s *IfExists) String() string {
	return fmt.Sprintf("if ∃t%d in %s where %s { %s }", s.TupleID, s.Relation, s.Condition, s.Nested)
}

func (s *IfExists) Equal(other Node) bool {
	o, ok := other.(*IfExists)
	return ok && o.Relation == s.Relation && o.TupleID == s.TupleID &&
		o.Condition.Equal(s.Condition) && o.Nested.Equal(s.Nested)
}

func (s *IfExists) Clone() Node {
	return &IfExists{
		Relation: s.Relation, TupleID: s.TupleID,
		Condition: s.Condition.Clone().(Condition), Nested: s.Nested.Clone().(Operation),
	}
}

func (s *IfExists) Children() []Node { return []Node{s.Condition, s.Nested} }

func (s *IfExists) Apply(m Mapper) {
	s.Condition = m(s.Condition).(Condition)
	s.Nested = m(s.Nested).(Operation)
}

// IndexIfExists is IfExists restricted to a range pattern over an index.
type IndexIfExists struct {
	Relation  string
	TupleID   int
	Pattern   RangePattern
	Condition Condition
	Nested    Operation
}

func (*IndexIfExists) isOperation() {}

func (s *IndexIfExists) String() string {
	return fmt.Sprintf("if ∃t%d in %s on index %s where %s { %s }",
		s.TupleID, s.Relation, s.Pattern, s.Condition, s.Nested)
}

func (s *IndexIfExists) Equal(other Node) bool {
	o, ok := other.(*IndexIfExists)
	return ok && o.Relation == s.Relation && o.TupleID == s.TupleID &&
		o.Pattern.equal(s.Pattern) && o.Condition.Equal(s.Condition) && o.Nested.Equal(s.Nested)
}

func (s *IndexIfExists) Clone() Node {
	return &IndexIfExists{
		Relation: s.Relation, TupleID: s.TupleID, Pattern: s.Pattern.clone(),
		Condition: s.Condition.Clone().(Condition), Nested: s.Nested.Clone().(Operation),
	}
}

func (s *IndexIfExists) Children() []Node {
	out := s.Pattern.children()
	return append(out, s.Condition, s.Nested)
}

func (s *IndexIfExists) Apply(m Mapper) {
	s.Pattern.apply(m)
	s.Condition = m(s.Condition).(Condition)
	s.Nested = m(s.Nested).(Operation)
}

// Aggregate folds Target over all tuples of the relation satisfying the
// condition, binds the result as element 0 of TupleID and runs the nested
// operation exactly once.
type Aggregate struct {
	Op        ast.AggregateOp
	Relation  string
	TupleID   int
	Target    Expression
	Condition Condition
	Nested    Operation
	Parallel  bool
}

func (*Aggregate) isOperation() {}

func (a *Aggregate) String() string {
	return fmt.Sprintf("t%d.0 = %s %s : %s where %s { %s }",
		a.TupleID, a.Op.Name(), a.Target, a.Relation, a.Condition, a.Nested)
}

func (a *Aggregate) Equal(other Node) bool {
	o, ok := other.(*Aggregate)
	return ok && o.Op == a.Op && o.Relation == a.Relation && o.TupleID == a.TupleID &&
		o.Parallel == a.Parallel && o.Target.Equal(a.Target) &&
		o.Condition.Equal(a.Condition) && o.Nested.Equal(a.Nested)
}

func (a *Aggregate) Clone() Node {
	return &Aggregate{
		Op: a.Op, Relation: a.Relation, TupleID: a.TupleID,
		Target:    a.Target.Clone().(Expression),
		Condition: a.Condition.Clone().(Condition),
		Nested:    a.Nested.Clone().(Operation),
		Parallel:  a.Parallel,
	}
}

func (a *Aggregate) Children() []Node { return []Node{a.Target, a.Condition, a.Nested} }

func (a *Aggregate) Apply(m Mapper) {
	a.Target = m(a.Target).(Expression)
	a.Condition = m(a.Condition).(Condition)
	a.Nested = m(a.Nested).(Operation)
}

// IndexAggregate is Aggregate restricted to a range pattern over an index.
type IndexAggregate struct {
	Op        ast.AggregateOp
	Relation  string
	TupleID   int
	Pattern   RangePattern
	Target    Expression
	Condition Condition
	Nested    Operation
	Parallel  bool
}

func (*IndexAggregate) isOperation() {}

func (a *IndexAggregate) String() string {
	return fmt.Sprintf("t%d.0 = %s %s : %s on index %s where %s { %s }",
		a.TupleID, a.Op.Name(), a.Target, a.Relation, a.Pattern, a.Condition, a.Nested)
}

func (a *IndexAggregate) Equal(other Node) bool {
	o, ok := other.(*IndexAggregate)
	return ok && o.Op == a.Op && o.Relation == a.Relation && o.TupleID == a.TupleID &&
		o.Parallel == a.Parallel && o.Pattern.equal(a.Pattern) && o.Target.Equal(a.Target) &&
		o.Condition.Equal(a.Condition) && o.Nested.Equal(a.Nested)
}

func (a *IndexAggregate) Clone() Node {
	return &IndexAggregate{
		Op: a.Op, Relation: a.Relation, TupleID: a.TupleID, Pattern: a.Pattern.clone(),
		Target:    a.Target.Clone().(Expression),
		Condition: a.Condition.Clone().(Condition),
		Nested:    a.Nested.Clone().(Operation),
		Parallel:  a.Parallel,
	}
}

func (a *IndexAggregate) Children() []Node {
	out := a.Pattern.children()
	return append(out, a.Target, a.Condition, a.Nested)
}

func (a *IndexAggregate) Apply(m Mapper) {
	a.Pattern.apply(m)
	a.Target = m(a.Target).(Expression)
	a.Condition = m(a.Condition).(Condition)
	a.Nested = m(a.Nested).(Operation)
}

// UnpackRecord fetches the record identified by the expression from the
// record table, binds its fields under TupleID and runs the nested
// operation; a nil record fails silently.
type UnpackRecord struct {
	Expression Expression
	Arity      int
	TupleID    int
	Nested     Operation
}

func (*UnpackRecord) isOperation() {}

func (u *UnpackRecord) String() string {
	return fmt.Sprintf("unpack t%d arity %d from %s { %s }", u.TupleID, u.Arity, u.Expression, u.Nested)
}

func (u *UnpackRecord) Equal(other Node) bool {
	o, ok := other.(*UnpackRecord)
	return ok && o.Arity == u.Arity && o.TupleID == u.TupleID &&
		o.Expression.Equal(u.Expression) && o.Nested.Equal(u.Nested)
}

func (u *UnpackRecord) Clone() Node {
	return &UnpackRecord{
		Expression: u.Expression.Clone().(Expression), Arity: u.Arity,
		TupleID: u.TupleID, Nested: u.Nested.Clone().(Operation),
	}
}

func (u *UnpackRecord) Children() []Node { return []Node{u.Expression, u.Nested} }

func (u *UnpackRecord) Apply(m Mapper) {
	u.Expression = m(u.Expression).(Expression)
	u.Nested = m(u.Nested).(Operation)
}

// Filter runs the nested operation only when the condition holds.
type Filter struct {
	Condition Condition
	Nested    Operation
}

func (*Filter) isOperation() {}

func (f *Filter) String() string {
	return fmt.Sprintf("if %s { %s }", f.Condition, f.Nested)
}

func (f *Filter) Equal(other Node) bool {
	o, ok := other.(*Filter)
	return ok && o.Condition.Equal(f.Condition) && o.Nested.Equal(f.Nested)
}

func (f *Filter) Clone() Node {
	return &Filter{Condition: f.Condition.Clone().(Condition), Nested: f.Nested.Clone().(Operation)}
}

func (f *Filter) Children() []Node { return []Node{f.Condition, f.Nested} }

func (f *Filter) Apply(m Mapper) {
	f.Condition = m(f.Condition).(Condition)
	f.Nested = m(f.Nested).(Operation)
}

// Break exits the surrounding loop statement when the condition holds,
// otherwise runs the nested operation.
type Break struct {
	Condition Condition
	Nested    Operation
}

func (*Break) isOperation() {}

func (b *Break) String() string {
	return fmt.Sprintf("break on %s { %s }", b.Condition, b.Nested)
}

func (b *Break) Equal(other Node) bool {
	o, ok := other.(*Break)
	return ok && o.Condition.Equal(b.Condition) && o.Nested.Equal(b.Nested)
}

func (b *Break) Clone() Node {
	return &Break{Condition: b.Condition.Clone().(Condition), Nested: b.Nested.Clone().(Operation)}
}

func (b *Break) Children() []Node { return []Node{b.Condition, b.Nested} }

func (b *Break) Apply(m Mapper) {
	b.Condition = m(b.Condition).(Condition)
	b.Nested = m(b.Nested).(Operation)
}

// NestedIntrinsicOperator evaluates a multi-result intrinsic (the range
// family), binding each produced value under TupleID and running the nested
// operation once per value.
type NestedIntrinsicOperator struct {
	Op      ast.FunctorOp
	Args    []Expression
	TupleID int
	Nested  Operation
}

func (*NestedIntrinsicOperator) isOperation() {}

func (n *NestedIntrinsicOperator) String() string {
	return fmt.Sprintf("t%d in %s(%s) { %s }", n.TupleID, n.Op.Name(),
		joinStrings(exprNodes(n.Args), ","), n.Nested)
}

func (n *NestedIntrinsicOperator) Equal(other Node) bool {
	o, ok := other.(*NestedIntrinsicOperator)
	return ok && o.Op == n.Op && o.TupleID == n.TupleID &&
		equalNodes(exprNodes(n.Args), exprNodes(o.Args)) && o.Nested.Equal(n.Nested)
}

func (n *NestedIntrinsicOperator) Clone() Node {
	return &NestedIntrinsicOperator{
		Op: n.Op, Args: cloneExprs(n.Args), TupleID: n.TupleID,
		Nested: n.Nested.Clone().(Operation),
	}
}

func (n *NestedIntrinsicOperator) Children() []Node {
	return append(exprNodes(n.Args), n.Nested)
}

func (n *NestedIntrinsicOperator) Apply(m Mapper) {
	applyExprs(n.Args, m)
	n.Nested = m(n.Nested).(Operation)
}

// Insert constructs a tuple from the value expressions and inserts it into
// the relation.
type Insert struct {
	Relation string
	Values   []Expression
}

func (*Insert) isOperation() {}

func (i *Insert) String() string {
	return fmt.Sprintf("insert (%s) into %s", joinStrings(exprNodes(i.Values), ","), i.Relation)
}

func (i *Insert) Equal(other Node) bool {
	o, ok := other.(*Insert)
	return ok && o.Relation == i.Relation && equalNodes(exprNodes(i.Values), exprNodes(o.Values))
}

func (i *Insert) Clone() Node {
	return &Insert{Relation: i.Relation, Values: cloneExprs(i.Values)}
}

func (i *Insert) Children() []Node { return exprNodes(i.Values) }

func (i *Insert) Apply(m Mapper) { applyExprs(i.Values, m) }

// GuardedInsert inserts only when the guard condition holds.
type GuardedInsert struct {
	Relation string
	Values   []Expression
	Guard    Condition
}

func (*GuardedInsert) isOperation() {}

func (i *GuardedInsert) String() string {
	return fmt.Sprintf("insert (%s) into %s if %s",
		joinStrings(exprNodes(i.Values), ","), i.Relation, i.Guard)
}

func (i *GuardedInsert) Equal(other Node) bool {
	o, ok := other.(*GuardedInsert)
	return ok && o.Relation == i.Relation && o.Guard.Equal(i.Guard) &&
		equalNodes(exprNodes(i.Values), exprNodes(o.Values))
}

func (i *GuardedInsert) Clone() Node {
	return &GuardedInsert{
		Relation: i.Relation, Values: cloneExprs(i.Values),
		Guard: i.Guard.Clone().(Condition),
	}
}

func (i *GuardedInsert) Children() []Node {
	return append(exprNodes(i.Values), i.Guard)
}

func (i *GuardedInsert) Apply(m Mapper) {
	applyExprs(i.Values, m)
	i.Guard = m(i.Guard).(Condition)
}

// SubroutineReturn appends the evaluated values to the current subroutine's
// return frame.
type SubroutineReturn struct {
	Values []Expression
}

func (*SubroutineReturn) isOperation() {}

func (r *SubroutineReturn) String() string {
	return "return (" + joinStrings(exprNodes(r.Values), ",") + ")"
}

func (r *SubroutineReturn) Equal(other Node) bool {
	o, ok := other.(*SubroutineReturn)
	return ok && equalNodes(exprNodes(r.Values), exprNodes(o.Values))
}

func (r *SubroutineReturn) Clone() Node {
	return &SubroutineReturn{Values: cloneExprs(r.Values)}
}

func (r *SubroutineReturn) Children() []Node { return exprNodes(r.Values) }

func (r *SubroutineReturn) Apply(m Mapper) { applyExprs(r.Values, m) }
