package ast

import (
	"sort"
	"strings"
)

// DirectiveKind classifies an I/O declaration.
type DirectiveKind int

const (
	DirectiveInput DirectiveKind = iota
	DirectiveOutput
	DirectivePrintSize
	DirectiveLimitSize
)

func (k DirectiveKind) String() string {
	switch k {
	case DirectiveInput:
		return "input"
	case DirectiveOutput:
		return "output"
	case DirectivePrintSize:
		return "printsize"
	case DirectiveLimitSize:
		return "limitsize"
	}
	return "unknown"
}

// Directive attaches an I/O declaration to a relation. Parameters carry
// key/value options such as the limitsize bound ("n") or a file name; their
// interpretation is left to the I/O collaborators.
type Directive struct {
	Kind   DirectiveKind
	Name   QualifiedName
	Params map[string]string
}

// NewDirective builds a directive for the dotted relation name.
func NewDirective(kind DirectiveKind, name string) *Directive {
	return &Directive{Kind: kind, Name: ParseQualifiedName(name), Params: map[string]string{}}
}

// Param returns the value of a parameter, or "" if absent.
func (d *Directive) Param(key string) string {
	return d.Params[key]
}

func (d *Directive) String() string {
	s := "." + d.Kind.String() + " " + d.Name.String()
	if len(d.Params) > 0 {
		keys := make([]string, 0, len(d.Params))
		for k := range d.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + d.Params[k]
		}
		s += "(" + strings.Join(parts, ",") + ")"
	}
	return s
}

func (d *Directive) Equal(other Node) bool {
	o, ok := other.(*Directive)
	if !ok || o.Kind != d.Kind || !o.Name.EqualName(d.Name) {
		return false
	}
	if len(o.Params) != len(d.Params) {
		return false
	}
	for k, v := range d.Params {
		if o.Params[k] != v {
			return false
		}
	}
	return true
}

func (d *Directive) Clone() Node {
	params := make(map[string]string, len(d.Params))
	for k, v := range d.Params {
		params[k] = v
	}
	return &Directive{Kind: d.Kind, Name: d.Name, Params: params}
}

func (d *Directive) Children() []Node { return nil }

func (d *Directive) Apply(Mapper) {}
