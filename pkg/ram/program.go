package ram

import (
	"sort"
	"strings"

	"github.com/gitrdm/godatalog/pkg/ast"
)

// Relation describes a physical relation of the RAM program: its flat name,
// arity, attribute schema, storage representation and optional size bound.
type Relation struct {
	Name           string
	Arity          int
	Attributes     []string
	AttributeTypes []string
	Representation ast.RelationRepresentation

	// LimitSize caps the tuple count; zero means unbounded. Inserts beyond
	// the cap are silently dropped.
	LimitSize int
}

func (r *Relation) String() string {
	parts := make([]string, r.Arity)
	for i := 0; i < r.Arity; i++ {
		name, typ := "", "?"
		if i < len(r.Attributes) {
			name = r.Attributes[i]
		}
		if i < len(r.AttributeTypes) {
			typ = r.AttributeTypes[i]
		}
		parts[i] = name + ":" + typ
	}
	return r.Name + "(" + strings.Join(parts, ",") + ") " + r.Representation.String()
}

// Program is a complete RAM program: its relations, the main statement and
// any named subroutines.
type Program struct {
	Relations   map[string]*Relation
	Main        Statement
	Subroutines map[string]Statement
}

// NewProgram returns an empty RAM program.
func NewProgram() *Program {
	return &Program{
		Relations:   make(map[string]*Relation),
		Subroutines: make(map[string]Statement),
	}
}

// Relation looks up a relation by name, returning nil if absent.
func (p *Program) Relation(name string) *Relation {
	return p.Relations[name]
}

// RelationNames returns all relation names, sorted.
func (p *Program) RelationNames() []string {
	out := make([]string, 0, len(p.Relations))
	for name := range p.Relations {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// SubroutineNames returns all subroutine names, sorted.
func (p *Program) SubroutineNames() []string {
	out := make([]string, 0, len(p.Subroutines))
	for name := range p.Subroutines {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (p *Program) String() string {
	var sb strings.Builder
	for _, name := range p.RelationNames() {
		sb.WriteString(".rel ")
		sb.WriteString(p.Relations[name].String())
		sb.WriteString("\n")
	}
	if p.Main != nil {
		sb.WriteString("main: ")
		sb.WriteString(p.Main.String())
		sb.WriteString("\n")
	}
	for _, name := range p.SubroutineNames() {
		sb.WriteString("subroutine " + name + ": ")
		sb.WriteString(p.Subroutines[name].String())
		sb.WriteString("\n")
	}
	return sb.String()
}
