package ast

import (
	"sort"
	"strconv"
	"strings"
)

// ExecutionOrder is a user-supplied permutation of the body-atom positions of
// a clause, 1-based as written in source.
type ExecutionOrder struct {
	Order []int
}

func (e *ExecutionOrder) String() string {
	parts := make([]string, len(e.Order))
	for i, p := range e.Order {
		parts[i] = strconv.Itoa(p)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func (e *ExecutionOrder) Equal(other Node) bool {
	o, ok := other.(*ExecutionOrder)
	if !ok || len(o.Order) != len(e.Order) {
		return false
	}
	for i := range e.Order {
		if e.Order[i] != o.Order[i] {
			return false
		}
	}
	return true
}

func (e *ExecutionOrder) Clone() Node {
	order := make([]int, len(e.Order))
	copy(order, e.Order)
	return &ExecutionOrder{Order: order}
}

func (e *ExecutionOrder) Children() []Node { return nil }

func (e *ExecutionOrder) Apply(Mapper) {}

// ExecutionPlan maps clause versions (the occurrence count of same-stratum
// atoms during semi-naive evaluation) to execution orders.
type ExecutionPlan struct {
	Orders map[int]*ExecutionOrder
}

// Versions returns the plan's version numbers in ascending order.
func (p *ExecutionPlan) Versions() []int {
	out := make([]int, 0, len(p.Orders))
	for v := range p.Orders {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func (p *ExecutionPlan) String() string {
	var sb strings.Builder
	sb.WriteString(".plan ")
	for i, v := range p.Versions() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(v))
		sb.WriteString(":")
		sb.WriteString(p.Orders[v].String())
	}
	return sb.String()
}

func (p *ExecutionPlan) Equal(other Node) bool {
	o, ok := other.(*ExecutionPlan)
	if !ok || len(o.Orders) != len(p.Orders) {
		return false
	}
	for v, ord := range p.Orders {
		oo, ok := o.Orders[v]
		if !ok || !ord.Equal(oo) {
			return false
		}
	}
	return true
}

func (p *ExecutionPlan) Clone() Node {
	orders := make(map[int]*ExecutionOrder, len(p.Orders))
	for v, ord := range p.Orders {
		orders[v] = ord.Clone().(*ExecutionOrder)
	}
	return &ExecutionPlan{Orders: orders}
}

func (p *ExecutionPlan) Children() []Node {
	out := make([]Node, 0, len(p.Orders))
	for _, v := range p.Versions() {
		out = append(out, p.Orders[v])
	}
	return out
}

func (p *ExecutionPlan) Apply(m Mapper) {
	for v, ord := range p.Orders {
		p.Orders[v] = m(ord).(*ExecutionOrder)
	}
}

// Clause is a rule head :- body. A clause with an empty body is a fact.
// Head is never nil and Body never contains nil entries.
type Clause struct {
	Head *Atom
	Body []Literal
	Plan *ExecutionPlan
}

// NewClause builds a clause from a head atom and body literals.
func NewClause(head *Atom, body ...Literal) *Clause {
	return &Clause{Head: head, Body: body}
}

// IsFact reports whether the clause has an empty body.
func (c *Clause) IsFact() bool { return len(c.Body) == 0 }

// BodyAtoms returns the positive atoms of the body in order.
func (c *Clause) BodyAtoms() []*Atom {
	var out []*Atom
	for _, lit := range c.Body {
		if a, ok := lit.(*Atom); ok {
			out = append(out, a)
		}
	}
	return out
}

// AddToBody appends a literal to the clause body.
func (c *Clause) AddToBody(lit Literal) {
	c.Body = append(c.Body, lit)
}

// CloneHead returns a new clause with a cloned head, an empty body and no
// plan.
func (c *Clause) CloneHead() *Clause {
	return &Clause{Head: c.Head.Clone().(*Atom)}
}

func (c *Clause) String() string {
	if c.IsFact() {
		return c.Head.String() + "."
	}
	parts := make([]string, len(c.Body))
	for i, lit := range c.Body {
		parts[i] = lit.String()
	}
	s := c.Head.String() + " :- " + strings.Join(parts, ", ") + "."
	if c.Plan != nil {
		s += " " + c.Plan.String()
	}
	return s
}

func (c *Clause) Equal(other Node) bool {
	o, ok := other.(*Clause)
	if !ok || !o.Head.Equal(c.Head) {
		return false
	}
	if !equalNodes(litNodes(c.Body), litNodes(o.Body)) {
		return false
	}
	if (c.Plan == nil) != (o.Plan == nil) {
		return false
	}
	return c.Plan == nil || c.Plan.Equal(o.Plan)
}

func (c *Clause) Clone() Node {
	clone := &Clause{Head: c.Head.Clone().(*Atom), Body: cloneLits(c.Body)}
	if c.Plan != nil {
		clone.Plan = c.Plan.Clone().(*ExecutionPlan)
	}
	return clone
}

func (c *Clause) Children() []Node {
	out := []Node{c.Head}
	out = append(out, litNodes(c.Body)...)
	if c.Plan != nil {
		out = append(out, c.Plan)
	}
	return out
}

func (c *Clause) Apply(m Mapper) {
	c.Head = m(c.Head).(*Atom)
	applyLits(c.Body, m)
	if c.Plan != nil {
		c.Plan = m(c.Plan).(*ExecutionPlan)
	}
}
