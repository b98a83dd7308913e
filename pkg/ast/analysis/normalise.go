package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/hashstructure"

	"github.com/gitrdm/godatalog/pkg/ast"
)

const normalisationName = "clause-normalisation"

// NormalisedClauseElement is one flattened literal of a normalised clause:
// a tagged name plus parameter strings.
type NormalisedClauseElement struct {
	Name   string
	Params []string
}

// NormalisedClause is the canonical form of a clause used for structural
// equivalence checks. Constants are renamed into a stable namespace and
// unnamed variables receive numbered names; named variables keep their
// names. Literals are flattened into tagged elements.
type NormalisedClause struct {
	Elements        []NormalisedClauseElement
	Variables       map[string]bool
	Constants       map[string]bool
	FullyNormalised bool

	unnamedCount int
}

// NormaliseClause computes the canonical form of one clause.
func NormaliseClause(clause *ast.Clause) *NormalisedClause {
	n := &NormalisedClause{
		Variables:       make(map[string]bool),
		Constants:       make(map[string]bool),
		FullyNormalised: true,
	}
	headParams := make([]string, 0, len(clause.Head.Args))
	for _, arg := range clause.Head.Args {
		headParams = append(headParams, n.normaliseArgument(arg))
	}
	n.Elements = append(n.Elements, NormalisedClauseElement{Name: "@min:head", Params: headParams})
	for _, lit := range clause.Body {
		n.addBodyLiteral("@min:scope:0", lit)
	}
	return n
}

func (n *NormalisedClause) addAtom(qualifier, scopeID string, atom *ast.Atom) {
	params := []string{scopeID}
	for _, arg := range atom.Args {
		params = append(params, n.normaliseArgument(arg))
	}
	n.Elements = append(n.Elements, NormalisedClauseElement{
		Name:   qualifier + ":" + atom.Name.String(),
		Params: params,
	})
}

func (n *NormalisedClause) addBodyLiteral(scopeID string, lit ast.Literal) {
	switch l := lit.(type) {
	case *ast.Atom:
		n.addAtom("@min:atom", scopeID, l)
	case *ast.Negation:
		n.addAtom("@min:neg", scopeID, l.Atom)
	case *ast.BinaryConstraint:
		n.Elements = append(n.Elements, NormalisedClauseElement{
			Name:   "@min:operator:" + l.Op.Symbol(),
			Params: []string{scopeID, n.normaliseArgument(l.LHS), n.normaliseArgument(l.RHS)},
		})
	default:
		n.FullyNormalised = false
		n.Elements = append(n.Elements, NormalisedClauseElement{
			Name: "@min:unhandled:lit:" + scopeID + ":" + lit.String(),
		})
	}
}

func (n *NormalisedClause) normaliseArgument(arg ast.Argument) string {
	switch a := arg.(type) {
	case *ast.StringConstant:
		name := "@min:cst:str:" + a.Value
		n.Constants[name] = true
		return name
	case *ast.NumericConstant, *ast.UnsignedConstant, *ast.FloatConstant:
		name := "@min:cst:num:" + arg.String()
		n.Constants[name] = true
		return name
	case *ast.NilConstant:
		n.Constants["@min:cst:nil"] = true
		return "@min:cst:nil"
	case *ast.Variable:
		n.Variables[a.Name] = true
		return a.Name
	case *ast.UnnamedVariable:
		name := fmt.Sprintf("@min:unnamed:%d", n.unnamedCount)
		n.unnamedCount++
		n.Variables[name] = true
		return name
	case *ast.Aggregator:
		scope := fmt.Sprintf("@min:scope:%d", len(n.Elements)+1)
		for _, lit := range a.Body {
			n.addBodyLiteral(scope, lit)
		}
		if a.Target != nil {
			return "@min:agg:" + a.Op.Name() + ":" + n.normaliseArgument(a.Target)
		}
		return "@min:agg:" + a.Op.Name()
	default:
		n.FullyNormalised = false
		return "@min:unhandled:arg:" + arg.String()
	}
}

// Fingerprint hashes the normalised clause so structurally equivalent
// clauses share a key.
func (n *NormalisedClause) Fingerprint() uint64 {
	h, err := hashstructure.Hash(n.Elements, nil)
	if err != nil {
		return 0
	}
	return h
}

// Equal reports structural equivalence of two normalised clauses.
func (n *NormalisedClause) Equal(other *NormalisedClause) bool {
	if len(n.Elements) != len(other.Elements) {
		return false
	}
	for i := range n.Elements {
		if n.Elements[i].Name != other.Elements[i].Name {
			return false
		}
		if len(n.Elements[i].Params) != len(other.Elements[i].Params) {
			return false
		}
		for j := range n.Elements[i].Params {
			if n.Elements[i].Params[j] != other.Elements[i].Params[j] {
				return false
			}
		}
	}
	return true
}

// ClauseNormalisation caches the normalised form of every clause in the
// program.
type ClauseNormalisation struct {
	normalised map[*ast.Clause]*NormalisedClause
}

// NormalisationOf returns the cached clause-normalisation analysis.
func NormalisationOf(tu *ast.TranslationUnit) *ClauseNormalisation {
	return tu.Analysis(normalisationName, func() ast.Analysis {
		return &ClauseNormalisation{}
	}).(*ClauseNormalisation)
}

// Name implements ast.Analysis.
func (c *ClauseNormalisation) Name() string { return normalisationName }

// Run implements ast.Analysis.
func (c *ClauseNormalisation) Run(tu *ast.TranslationUnit) {
	c.normalised = make(map[*ast.Clause]*NormalisedClause)
	for _, clause := range tu.Program.Clauses {
		c.normalised[clause] = NormaliseClause(clause)
	}
}

// Normalised returns the canonical form of a clause, or nil for a clause
// outside the program.
func (c *ClauseNormalisation) Normalised(clause *ast.Clause) *NormalisedClause {
	return c.normalised[clause]
}

func (c *ClauseNormalisation) String() string {
	lines := make([]string, 0, len(c.normalised))
	for clause, norm := range c.normalised {
		lines = append(lines, fmt.Sprintf("%s => %x", clause, norm.Fingerprint()))
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n") + "\n"
}
