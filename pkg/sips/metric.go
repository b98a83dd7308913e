package sips

import (
	"math"

	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/ast/analysis"
)

// Metric is a cost model over candidate body atoms. Given the atoms of a
// clause (with consumed positions nil) and the current binding state, it
// yields one scalar per position; lower is better and nil atoms must carry
// +Inf.
type Metric interface {
	EvaluateCosts(atoms []*ast.Atom, store *BindingStore) []float64
}

// DefaultMetric is used when no metric is configured or the name is unknown.
const DefaultMetric = "all-bound"

// New creates the named metric. Unknown names fall back to all-bound.
func New(name string, tu *ast.TranslationUnit) Metric {
	switch name {
	case "strict":
		return strictSips{}
	case "all-bound":
		return allBoundSips{}
	case "naive":
		return naiveSips{}
	case "max-bound":
		return maxBoundSips{}
	case "max-bound-delta":
		return maxBoundDeltaSips{}
	case "max-ratio":
		return maxRatioSips{}
	case "least-free":
		return leastFreeSips{}
	case "least-free-vars":
		return leastFreeVarsSips{}
	case "delta":
		return deltaSips{}
	case "input":
		return inputSips{details: analysis.DetailsOf(tu), ioTypes: analysis.IOTypesOf(tu)}
	case "delta-input":
		return deltaInputSips{details: analysis.DetailsOf(tu), ioTypes: analysis.IOTypesOf(tu)}
	case "profile-use":
		return profileUseSips{profile: analysis.ProfileUseOf(tu)}
	}
	return allBoundSips{}
}

// Reordering runs the scheduling loop: repeatedly pick the cheapest atom,
// bind its variables, and blank its slot until every atom is placed. The
// result is deterministic for identical clause, metric and profile inputs;
// ties resolve to the leftmost candidate.
func Reordering(m Metric, clause *ast.Clause) []int {
	store := NewBindingStore(clause)
	atoms := clause.BodyAtoms()
	candidates := make([]*ast.Atom, len(atoms))
	copy(candidates, atoms)

	order := make([]int, 0, len(atoms))
	for len(order) < len(atoms) {
		costs := m.EvaluateCosts(candidates, store)
		minIdx := 0
		for i := 1; i < len(costs); i++ {
			if costs[i] < costs[minIdx] {
				minIdx = i
			}
		}
		next := candidates[minIdx]
		for _, name := range ast.VariablesOf(next) {
			store.BindStrongly(name)
		}
		order = append(order, minIdx)
		candidates[minIdx] = nil
	}
	return order
}

func costs(atoms []*ast.Atom, cost func(*ast.Atom) float64) []float64 {
	out := make([]float64, len(atoms))
	for i, atom := range atoms {
		if atom == nil {
			out[i] = math.Inf(1)
			continue
		}
		out[i] = cost(atom)
	}
	return out
}

// strict always chooses the leftmost remaining atom.
type strictSips struct{}

func (strictSips) EvaluateCosts(atoms []*ast.Atom, _ *BindingStore) []float64 {
	return costs(atoms, func(*ast.Atom) float64 { return 0 })
}

// all-bound prioritises atoms whose arguments are all bound.
type allBoundSips struct{}

func (allBoundSips) EvaluateCosts(atoms []*ast.Atom, store *BindingStore) []float64 {
	return costs(atoms, func(atom *ast.Atom) float64 {
		if store.NumBoundArguments(atom) == atom.Arity() {
			return 0
		}
		return 1
	})
}

// naive prefers fully bound, then partially bound, then leftmost.
type naiveSips struct{}

func (naiveSips) EvaluateCosts(atoms []*ast.Atom, store *BindingStore) []float64 {
	return costs(atoms, func(atom *ast.Atom) float64 {
		bound := store.NumBoundArguments(atom)
		switch {
		case bound == atom.Arity():
			return 0
		case bound >= 1:
			return 1
		default:
			return 2
		}
	})
}

// max-bound prefers fully bound, then the highest bound count.
type maxBoundSips struct{}

func (maxBoundSips) EvaluateCosts(atoms []*ast.Atom, store *BindingStore) []float64 {
	return costs(atoms, func(atom *ast.Atom) float64 {
		bound := store.NumBoundArguments(atom)
		switch {
		case bound == atom.Arity():
			return 0
		case bound == 0:
			return 2
		default:
			return 1 / float64(bound)
		}
	})
}

// max-bound-delta is max-bound with a small tiebreaker preferring delta
// relations, the seeds of semi-naive iteration.
type maxBoundDeltaSips struct{}

func (maxBoundDeltaSips) EvaluateCosts(atoms []*ast.Atom, store *BindingStore) []float64 {
	return costs(atoms, func(atom *ast.Atom) float64 {
		delta := 0.0001
		if ast.IsDeltaName(atom.Name) {
			delta = 0
		}
		bound := store.NumBoundArguments(atom)
		switch {
		case bound == atom.Arity():
			return delta
		case bound == 0:
			return delta + 3
		default:
			return delta + 1 + 1/float64(bound)
		}
	})
}

// max-ratio prefers the highest ratio of bound arguments.
type maxRatioSips struct{}

func (maxRatioSips) EvaluateCosts(atoms []*ast.Atom, store *BindingStore) []float64 {
	return costs(atoms, func(atom *ast.Atom) float64 {
		arity := atom.Arity()
		bound := store.NumBoundArguments(atom)
		switch {
		case arity == 0:
			return 0
		case bound == 0:
			return 2
		default:
			return 1 - float64(bound)/float64(arity)
		}
	})
}

// least-free prefers the fewest unbound arguments.
type leastFreeSips struct{}

func (leastFreeSips) EvaluateCosts(atoms []*ast.Atom, store *BindingStore) []float64 {
	return costs(atoms, func(atom *ast.Atom) float64 {
		return float64(atom.Arity() - store.NumBoundArguments(atom))
	})
}

// least-free-vars prefers the fewest distinct unbound variables.
type leastFreeVarsSips struct{}

func (leastFreeVarsSips) EvaluateCosts(atoms []*ast.Atom, store *BindingStore) []float64 {
	return costs(atoms, func(atom *ast.Atom) float64 {
		free := 0
		for _, name := range ast.VariablesOf(atom) {
			if !store.IsBoundVariable(name) {
				free++
			}
		}
		return float64(free)
	})
}

// delta prefers fully bound atoms, then delta relations, then leftmost.
type deltaSips struct{}

func (deltaSips) EvaluateCosts(atoms []*ast.Atom, store *BindingStore) []float64 {
	return costs(atoms, func(atom *ast.Atom) float64 {
		switch {
		case store.NumBoundArguments(atom) == atom.Arity():
			return 0
		case ast.IsDeltaName(atom.Name):
			return 1
		default:
			return 2
		}
	})
}

// input prefers fully bound atoms, then input relations, then the rest.
type inputSips struct {
	details *analysis.RelationDetailCache
	ioTypes *analysis.IOType
}

func (s inputSips) EvaluateCosts(atoms []*ast.Atom, store *BindingStore) []float64 {
	return costs(atoms, func(atom *ast.Atom) float64 {
		switch {
		case store.NumBoundArguments(atom) == atom.Arity():
			return 0
		case s.ioTypes.IsInput(s.details.Relation(atom.Name)):
			return 1
		default:
			return 2
		}
	})
}

// delta-input prefers fully bound, then deltas, then inputs, then the rest.
type deltaInputSips struct {
	details *analysis.RelationDetailCache
	ioTypes *analysis.IOType
}

func (s deltaInputSips) EvaluateCosts(atoms []*ast.Atom, store *BindingStore) []float64 {
	return costs(atoms, func(atom *ast.Atom) float64 {
		switch {
		case store.NumBoundArguments(atom) == atom.Arity():
			return 0
		case ast.IsDeltaName(atom.Name):
			return 1
		case s.ioTypes.IsInput(s.details.Relation(atom.Name)):
			return 2
		default:
			return 3
		}
	})
}

// profile-use ranks atoms by log(|R|) scaled with the free fraction of their
// arguments; propositions always rank first.
type profileUseSips struct {
	profile *analysis.ProfileUse
}

func (s profileUseSips) EvaluateCosts(atoms []*ast.Atom, store *BindingStore) []float64 {
	return costs(atoms, func(atom *ast.Atom) float64 {
		arity := atom.Arity()
		if arity == 0 {
			return 0
		}
		free := arity - store.NumBoundArguments(atom)
		return math.Log(s.profile.RelationSize(atom.Name)) * float64(free) / float64(arity)
	})
}
