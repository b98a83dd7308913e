// Package sips implements the sideways-information-passing framework: a
// binding store tracking which clause variables are bound as atoms are
// scheduled, and a family of interchangeable cost metrics that order the
// atoms of a clause body to minimise search cost.
package sips

import (
	"github.com/gitrdm/godatalog/pkg/ast"
)

// conjunction is one dependency set: if every member is bound, the dependent
// variable becomes bound.
type conjunction map[string]struct{}

// BindingStore records, per clause, which variables are bound. A variable is
// bound iff it is strongly or weakly bound, or all members of at least one
// of its dependency conjunctions are bound. The store reduces dependencies
// to a fixpoint on every new strong binding.
type BindingStore struct {
	strong map[string]struct{}
	weak   map[string]struct{}
	deps   map[string][]conjunction
}

// NewBindingStore builds the store for a clause: variables appearing as
// functorless arguments in body atoms or inside record and branch literals
// start out strongly bound, and every equality constraint contributes
// binding dependencies between its two sides.
func NewBindingStore(clause *ast.Clause) *BindingStore {
	s := &BindingStore{
		strong: make(map[string]struct{}),
		weak:   make(map[string]struct{}),
		deps:   make(map[string][]conjunction),
	}
	for _, atom := range clause.BodyAtoms() {
		for _, arg := range atom.Args {
			if v, ok := arg.(*ast.Variable); ok {
				s.BindStrongly(v.Name)
			}
		}
		ast.ForEach[*ast.RecordInit](atom, func(rec *ast.RecordInit) {
			for _, arg := range rec.Args {
				if v, ok := arg.(*ast.Variable); ok {
					s.BindStrongly(v.Name)
				}
			}
		})
		ast.ForEach[*ast.BranchInit](atom, func(adt *ast.BranchInit) {
			for _, arg := range adt.Args {
				if v, ok := arg.(*ast.Variable); ok {
					s.BindStrongly(v.Name)
				}
			}
		})
	}
	ast.ForEach[*ast.BinaryConstraint](clause, func(bc *ast.BinaryConstraint) {
		if !bc.Op.IsEquality() {
			return
		}
		s.addEqualityDependency(bc.LHS, bc.RHS)
		s.addEqualityDependency(bc.RHS, bc.LHS)
	})
	s.reduce()
	return s
}

func (s *BindingStore) addEqualityDependency(lhs, rhs ast.Argument) {
	v, ok := lhs.(*ast.Variable)
	if !ok {
		return
	}
	dep := make(conjunction)
	for _, name := range ast.VariablesOf(rhs) {
		dep[name] = struct{}{}
	}
	s.deps[v.Name] = append(s.deps[v.Name], dep)
}

// BindStrongly marks a variable strongly bound; strongly bound variables can
// bind functor arguments. Dependencies are reduced to a fixpoint.
func (s *BindingStore) BindStrongly(name string) {
	s.strong[name] = struct{}{}
	s.reduce()
}

// BindWeakly marks a variable weakly bound; weakly bound variables satisfy
// boundness checks but do not propagate through functors.
func (s *BindingStore) BindWeakly(name string) {
	s.weak[name] = struct{}{}
}

func (s *BindingStore) reduce() {
	for changed := true; changed; {
		changed = false
		for name, disjunction := range s.deps {
			if s.IsBoundVariable(name) {
				continue
			}
			for _, dep := range disjunction {
				satisfied := true
				for member := range dep {
					if !s.IsBoundVariable(member) {
						satisfied = false
						break
					}
				}
				if satisfied {
					s.strong[name] = struct{}{}
					changed = true
					break
				}
			}
		}
	}
}

// IsBoundVariable reports whether the named variable is bound.
func (s *BindingStore) IsBoundVariable(name string) bool {
	if _, ok := s.strong[name]; ok {
		return true
	}
	_, ok := s.weak[name]
	return ok
}

// IsBound reports whether an argument is bound: constants always, variables
// per the store, compound terms when all their parts are bound. Unnamed
// variables and aggregators are never bound.
func (s *BindingStore) IsBound(arg ast.Argument) bool {
	switch a := arg.(type) {
	case *ast.Variable:
		return s.IsBoundVariable(a.Name)
	case *ast.UnnamedVariable, *ast.Aggregator:
		return false
	case *ast.NumericConstant, *ast.UnsignedConstant, *ast.FloatConstant,
		*ast.StringConstant, *ast.NilConstant:
		return true
	case *ast.TypeCast:
		return s.IsBound(a.Value)
	case *ast.RecordInit:
		return s.allBound(a.Args)
	case *ast.BranchInit:
		return s.allBound(a.Args)
	case *ast.IntrinsicFunctor:
		return s.allBound(a.Args)
	case *ast.UserDefinedFunctor:
		return s.allBound(a.Args)
	}
	return false
}

func (s *BindingStore) allBound(args []ast.Argument) bool {
	for _, arg := range args {
		if !s.IsBound(arg) {
			return false
		}
	}
	return true
}

// NumBoundArguments counts the bound arguments of an atom.
func (s *BindingStore) NumBoundArguments(atom *ast.Atom) int {
	n := 0
	for _, arg := range atom.Args {
		if s.IsBound(arg) {
			n++
		}
	}
	return n
}
