package ast

import "strings"

// RelationRepresentation selects the physical storage of a relation.
type RelationRepresentation int

const (
	RepresentationDefault RelationRepresentation = iota
	RepresentationBTree
	RepresentationBrie
	RepresentationEqRel
	RepresentationInfo
)

func (r RelationRepresentation) String() string {
	switch r {
	case RepresentationBTree:
		return "btree"
	case RepresentationBrie:
		return "brie"
	case RepresentationEqRel:
		return "eqrel"
	case RepresentationInfo:
		return "info"
	}
	return "default"
}

// RelationQualifier is a non-storage relation annotation.
type RelationQualifier int

const (
	QualifierInline RelationQualifier = iota
	QualifierNoInline
	QualifierMagic
	QualifierNoMagic
	QualifierOverridable
)

// Attribute is a named, typed column of a relation.
type Attribute struct {
	Name     string
	TypeName QualifiedName
}

func (a *Attribute) String() string {
	return a.Name + ":" + a.TypeName.String()
}

func (a *Attribute) Equal(other Node) bool {
	o, ok := other.(*Attribute)
	return ok && o.Name == a.Name && o.TypeName.EqualName(a.TypeName)
}

func (a *Attribute) Clone() Node {
	return &Attribute{Name: a.Name, TypeName: a.TypeName}
}

func (a *Attribute) Children() []Node { return nil }

func (a *Attribute) Apply(Mapper) {}

// FunctionalDependency records a key -> value dependency over attribute
// names, declared as choice-domain in source.
type FunctionalDependency struct {
	Keys []string
}

// Relation declares a predicate: its qualified name, attribute schema,
// storage representation, qualifiers and functional dependencies.
type Relation struct {
	Name           QualifiedName
	Attributes     []*Attribute
	Representation RelationRepresentation
	Qualifiers     []RelationQualifier
	Dependencies   []FunctionalDependency
}

// NewRelation builds a relation from a dotted name and attribute
// name:type pairs.
func NewRelation(name string, attrs ...*Attribute) *Relation {
	return &Relation{Name: ParseQualifiedName(name), Attributes: attrs}
}

// Arity returns the number of attributes.
func (r *Relation) Arity() int { return len(r.Attributes) }

// HasQualifier reports whether the relation carries the given qualifier.
func (r *Relation) HasQualifier(q RelationQualifier) bool {
	for _, cur := range r.Qualifiers {
		if cur == q {
			return true
		}
	}
	return false
}

func (r *Relation) String() string {
	parts := make([]string, len(r.Attributes))
	for i, a := range r.Attributes {
		parts[i] = a.String()
	}
	s := ".decl " + r.Name.String() + "(" + strings.Join(parts, ",") + ")"
	if r.Representation != RepresentationDefault {
		s += " " + r.Representation.String()
	}
	return s
}

func (r *Relation) Equal(other Node) bool {
	o, ok := other.(*Relation)
	if !ok || !o.Name.EqualName(r.Name) || o.Representation != r.Representation {
		return false
	}
	if len(o.Attributes) != len(r.Attributes) {
		return false
	}
	for i := range r.Attributes {
		if !r.Attributes[i].Equal(o.Attributes[i]) {
			return false
		}
	}
	return true
}

func (r *Relation) Clone() Node {
	attrs := make([]*Attribute, len(r.Attributes))
	for i, a := range r.Attributes {
		attrs[i] = a.Clone().(*Attribute)
	}
	quals := make([]RelationQualifier, len(r.Qualifiers))
	copy(quals, r.Qualifiers)
	deps := make([]FunctionalDependency, len(r.Dependencies))
	for i, d := range r.Dependencies {
		keys := make([]string, len(d.Keys))
		copy(keys, d.Keys)
		deps[i] = FunctionalDependency{Keys: keys}
	}
	return &Relation{
		Name:           r.Name,
		Attributes:     attrs,
		Representation: r.Representation,
		Qualifiers:     quals,
		Dependencies:   deps,
	}
}

func (r *Relation) Children() []Node {
	out := make([]Node, len(r.Attributes))
	for i, a := range r.Attributes {
		out[i] = a
	}
	return out
}

func (r *Relation) Apply(m Mapper) {
	for i, a := range r.Attributes {
		r.Attributes[i] = m(a).(*Attribute)
	}
}
