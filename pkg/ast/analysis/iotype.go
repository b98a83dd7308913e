package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gitrdm/godatalog/pkg/ast"
)

const ioTypeName = "io-type"

// IOType classifies relations by the I/O directives attached to them and
// records any declared limitsize bound.
type IOType struct {
	input     map[*ast.Relation]bool
	output    map[*ast.Relation]bool
	printSize map[*ast.Relation]bool
	limitSize map[*ast.Relation]int
}

// IOTypesOf returns the cached I/O classification of the unit.
func IOTypesOf(tu *ast.TranslationUnit) *IOType {
	return tu.Analysis(ioTypeName, func() ast.Analysis {
		return &IOType{}
	}).(*IOType)
}

// Name implements ast.Analysis.
func (t *IOType) Name() string { return ioTypeName }

// Run implements ast.Analysis.
func (t *IOType) Run(tu *ast.TranslationUnit) {
	details := DetailsOf(tu)
	t.input = make(map[*ast.Relation]bool)
	t.output = make(map[*ast.Relation]bool)
	t.printSize = make(map[*ast.Relation]bool)
	t.limitSize = make(map[*ast.Relation]int)
	for _, dir := range tu.Program.Directives {
		rel := details.Relation(dir.Name)
		if rel == nil {
			continue
		}
		switch dir.Kind {
		case ast.DirectiveInput:
			t.input[rel] = true
		case ast.DirectiveOutput:
			t.output[rel] = true
		case ast.DirectivePrintSize:
			t.printSize[rel] = true
		case ast.DirectiveLimitSize:
			n, err := strconv.Atoi(dir.Param("n"))
			if err != nil {
				tu.Report.AddError(
					fmt.Sprintf("limitsize for %s needs an integer bound", dir.Name), ast.SrcLoc{})
				continue
			}
			t.limitSize[rel] = n
		}
	}
}

// IsInput reports whether the relation is declared input.
func (t *IOType) IsInput(rel *ast.Relation) bool { return rel != nil && t.input[rel] }

// IsOutput reports whether the relation is declared output.
func (t *IOType) IsOutput(rel *ast.Relation) bool { return rel != nil && t.output[rel] }

// IsPrintSize reports whether the relation is declared printsize.
func (t *IOType) IsPrintSize(rel *ast.Relation) bool { return rel != nil && t.printSize[rel] }

// IsLimitSize reports whether the relation carries a limitsize bound.
func (t *IOType) IsLimitSize(rel *ast.Relation) bool {
	if rel == nil {
		return false
	}
	_, ok := t.limitSize[rel]
	return ok
}

// LimitSize returns the relation's limitsize bound, or 0 if none.
func (t *IOType) LimitSize(rel *ast.Relation) int { return t.limitSize[rel] }

// IsIO reports whether the relation takes part in any I/O.
func (t *IOType) IsIO(rel *ast.Relation) bool {
	return t.IsInput(rel) || t.IsOutput(rel) || t.IsPrintSize(rel)
}

func (t *IOType) String() string {
	var sb strings.Builder
	for rel := range t.input {
		fmt.Fprintf(&sb, "input: %s\n", rel.Name)
	}
	for rel := range t.output {
		fmt.Fprintf(&sb, "output: %s\n", rel.Name)
	}
	for rel := range t.printSize {
		fmt.Fprintf(&sb, "printsize: %s\n", rel.Name)
	}
	for rel, n := range t.limitSize {
		fmt.Fprintf(&sb, "limitsize: %s (%d)\n", rel.Name, n)
	}
	return sb.String()
}
