package ast

import "strings"

// FunctorDecl declares a user-defined functor: its name and signature. At
// execution time the name resolves to a callable of this signature.
type FunctorDecl struct {
	Name        string
	ArgTypes    []QualifiedName
	ReturnType  QualifiedName
	Stateful    bool
}

func (f *FunctorDecl) String() string {
	parts := make([]string, len(f.ArgTypes))
	for i, t := range f.ArgTypes {
		parts[i] = t.String()
	}
	return ".functor " + f.Name + "(" + strings.Join(parts, ",") + "):" + f.ReturnType.String()
}

func (f *FunctorDecl) Equal(other Node) bool {
	o, ok := other.(*FunctorDecl)
	if !ok || o.Name != f.Name || !o.ReturnType.EqualName(f.ReturnType) || o.Stateful != f.Stateful {
		return false
	}
	if len(o.ArgTypes) != len(f.ArgTypes) {
		return false
	}
	for i := range f.ArgTypes {
		if !f.ArgTypes[i].EqualName(o.ArgTypes[i]) {
			return false
		}
	}
	return true
}

func (f *FunctorDecl) Clone() Node {
	args := make([]QualifiedName, len(f.ArgTypes))
	copy(args, f.ArgTypes)
	return &FunctorDecl{Name: f.Name, ArgTypes: args, ReturnType: f.ReturnType, Stateful: f.Stateful}
}

func (f *FunctorDecl) Children() []Node { return nil }

func (f *FunctorDecl) Apply(Mapper) {}

// Program is the root of the AST: relations, clauses, directives and functor
// declarations. Every node reachable from a program has exactly one owner.
type Program struct {
	Relations  []*Relation
	Clauses    []*Clause
	Directives []*Directive
	Functors   []*FunctorDecl
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{}
}

// Relation looks up a relation by qualified name, returning nil if absent.
func (p *Program) Relation(name QualifiedName) *Relation {
	for _, r := range p.Relations {
		if r.Name.EqualName(name) {
			return r
		}
	}
	return nil
}

// ClausesFor returns the clauses whose head refers to the named relation, in
// program order.
func (p *Program) ClausesFor(name QualifiedName) []*Clause {
	var out []*Clause
	for _, c := range p.Clauses {
		if c.Head.Name.EqualName(name) {
			out = append(out, c)
		}
	}
	return out
}

// DirectivesFor returns the directives attached to the named relation.
func (p *Program) DirectivesFor(name QualifiedName) []*Directive {
	var out []*Directive
	for _, d := range p.Directives {
		if d.Name.EqualName(name) {
			out = append(out, d)
		}
	}
	return out
}

// AddRelation appends a relation declaration.
func (p *Program) AddRelation(r *Relation) {
	p.Relations = append(p.Relations, r)
}

// AddClause appends a clause.
func (p *Program) AddClause(c *Clause) {
	p.Clauses = append(p.Clauses, c)
}

// AddDirective appends a directive.
func (p *Program) AddDirective(d *Directive) {
	p.Directives = append(p.Directives, d)
}

// RemoveClause deletes a clause by identity. It reports whether the clause
// was present.
func (p *Program) RemoveClause(c *Clause) bool {
	for i, cur := range p.Clauses {
		if cur == c {
			p.Clauses = append(p.Clauses[:i], p.Clauses[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveRelation deletes the named relation together with all clauses
// defining it and all directives referring to it.
func (p *Program) RemoveRelation(name QualifiedName) bool {
	found := false
	for i, r := range p.Relations {
		if r.Name.EqualName(name) {
			p.Relations = append(p.Relations[:i], p.Relations[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}
	kept := p.Clauses[:0]
	for _, c := range p.Clauses {
		if !c.Head.Name.EqualName(name) {
			kept = append(kept, c)
		}
	}
	p.Clauses = kept
	keptDirs := p.Directives[:0]
	for _, d := range p.Directives {
		if !d.Name.EqualName(name) {
			keptDirs = append(keptDirs, d)
		}
	}
	p.Directives = keptDirs
	return true
}

func (p *Program) String() string {
	var sb strings.Builder
	for _, f := range p.Functors {
		sb.WriteString(f.String())
		sb.WriteString("\n")
	}
	for _, r := range p.Relations {
		sb.WriteString(r.String())
		sb.WriteString("\n")
	}
	for _, d := range p.Directives {
		sb.WriteString(d.String())
		sb.WriteString("\n")
	}
	for _, c := range p.Clauses {
		sb.WriteString(c.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

func (p *Program) Equal(other Node) bool {
	o, ok := other.(*Program)
	if !ok {
		return false
	}
	return equalNodes(p.Children(), o.Children())
}

func (p *Program) Clone() Node {
	clone := NewProgram()
	for _, f := range p.Functors {
		clone.Functors = append(clone.Functors, f.Clone().(*FunctorDecl))
	}
	for _, r := range p.Relations {
		clone.Relations = append(clone.Relations, r.Clone().(*Relation))
	}
	for _, d := range p.Directives {
		clone.Directives = append(clone.Directives, d.Clone().(*Directive))
	}
	for _, c := range p.Clauses {
		clone.Clauses = append(clone.Clauses, c.Clone().(*Clause))
	}
	return clone
}

func (p *Program) Children() []Node {
	var out []Node
	for _, f := range p.Functors {
		out = append(out, f)
	}
	for _, r := range p.Relations {
		out = append(out, r)
	}
	for _, d := range p.Directives {
		out = append(out, d)
	}
	for _, c := range p.Clauses {
		out = append(out, c)
	}
	return out
}

func (p *Program) Apply(m Mapper) {
	for i, f := range p.Functors {
		p.Functors[i] = m(f).(*FunctorDecl)
	}
	for i, r := range p.Relations {
		p.Relations[i] = m(r).(*Relation)
	}
	for i, d := range p.Directives {
		p.Directives[i] = m(d).(*Directive)
	}
	for i, c := range p.Clauses {
		p.Clauses[i] = m(c).(*Clause)
	}
}
