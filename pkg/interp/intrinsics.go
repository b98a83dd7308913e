package interp

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/ram"
)

// evalIntrinsic evaluates a built-in operator over already-evaluated
// arguments. The ok result is false for undefined values — division by
// zero, malformed casts — which propagate to the caller and ultimately
// suppress the enclosing insertion.
func evalIntrinsic(op ast.FunctorOp, args []ram.Domain, symbols *SymbolTable) (ram.Domain, bool) {
	switch op {
	case ast.FunctorAdd:
		return args[0] + args[1], true
	case ast.FunctorSub:
		return args[0] - args[1], true
	case ast.FunctorMul:
		return args[0] * args[1], true
	case ast.FunctorDiv:
		if args[1] == 0 {
			return 0, false
		}
		return args[0] / args[1], true
	case ast.FunctorMod:
		if args[1] == 0 {
			return 0, false
		}
		return args[0] % args[1], true
	case ast.FunctorExp:
		result := ram.Domain(1)
		for i := ram.Domain(0); i < args[1]; i++ {
			result *= args[0]
		}
		return result, true
	case ast.FunctorNeg:
		return -args[0], true
	case ast.FunctorBNot:
		return ^args[0], true
	case ast.FunctorBAnd:
		return args[0] & args[1], true
	case ast.FunctorBOr:
		return args[0] | args[1], true
	case ast.FunctorBXor:
		return args[0] ^ args[1], true
	case ast.FunctorLNot:
		return boolDomain(args[0] == 0), true
	case ast.FunctorLAnd:
		return boolDomain(args[0] != 0 && args[1] != 0), true
	case ast.FunctorLOr:
		return boolDomain(args[0] != 0 || args[1] != 0), true
	case ast.FunctorMax:
		out := args[0]
		for _, v := range args[1:] {
			if v > out {
				out = v
			}
		}
		return out, true
	case ast.FunctorMin:
		out := args[0]
		for _, v := range args[1:] {
			if v < out {
				out = v
			}
		}
		return out, true
	case ast.FunctorUAdd:
		return ram.UnsignedToDomain(ram.DomainToUnsigned(args[0]) + ram.DomainToUnsigned(args[1])), true
	case ast.FunctorUSub:
		return ram.UnsignedToDomain(ram.DomainToUnsigned(args[0]) - ram.DomainToUnsigned(args[1])), true
	case ast.FunctorUMul:
		return ram.UnsignedToDomain(ram.DomainToUnsigned(args[0]) * ram.DomainToUnsigned(args[1])), true
	case ast.FunctorUDiv:
		if ram.DomainToUnsigned(args[1]) == 0 {
			return 0, false
		}
		return ram.UnsignedToDomain(ram.DomainToUnsigned(args[0]) / ram.DomainToUnsigned(args[1])), true
	case ast.FunctorFAdd:
		return ram.FloatToDomain(ram.DomainToFloat(args[0]) + ram.DomainToFloat(args[1])), true
	case ast.FunctorFSub:
		return ram.FloatToDomain(ram.DomainToFloat(args[0]) - ram.DomainToFloat(args[1])), true
	case ast.FunctorFMul:
		return ram.FloatToDomain(ram.DomainToFloat(args[0]) * ram.DomainToFloat(args[1])), true
	case ast.FunctorFDiv:
		return ram.FloatToDomain(ram.DomainToFloat(args[0]) / ram.DomainToFloat(args[1])), true
	case ast.FunctorCat:
		var sb strings.Builder
		for _, v := range args {
			sb.WriteString(symbols.Resolve(v))
		}
		return symbols.Lookup(sb.String()), true
	case ast.FunctorStrlen:
		return ram.Domain(len(symbols.Resolve(args[0]))), true
	case ast.FunctorSubstr:
		s := symbols.Resolve(args[0])
		start, length := int(args[1]), int(args[2])
		if start < 0 || start > len(s) || length < 0 {
			return 0, false
		}
		end := start + length
		if end > len(s) {
			end = len(s)
		}
		return symbols.Lookup(s[start:end]), true
	case ast.FunctorOrd:
		return args[0], true
	case ast.FunctorToNumber:
		n, err := strconv.ParseInt(symbols.Resolve(args[0]), 10, 32)
		if err != nil {
			return 0, false
		}
		return ram.Domain(n), true
	case ast.FunctorToString:
		return symbols.Lookup(strconv.Itoa(int(args[0]))), true
	}
	return 0, false
}

func boolDomain(b bool) ram.Domain {
	if b {
		return 1
	}
	return 0
}

// evalConstraint evaluates a binary constraint over two domain words.
func evalConstraint(op ast.BinaryConstraintOp, lhs, rhs ram.Domain, symbols *SymbolTable) bool {
	switch op {
	case ast.BinaryConstraintEQ:
		return lhs == rhs
	case ast.BinaryConstraintNE:
		return lhs != rhs
	case ast.BinaryConstraintLT:
		return lhs < rhs
	case ast.BinaryConstraintLE:
		return lhs <= rhs
	case ast.BinaryConstraintGT:
		return lhs > rhs
	case ast.BinaryConstraintGE:
		return lhs >= rhs
	case ast.BinaryConstraintULT:
		return ram.DomainToUnsigned(lhs) < ram.DomainToUnsigned(rhs)
	case ast.BinaryConstraintULE:
		return ram.DomainToUnsigned(lhs) <= ram.DomainToUnsigned(rhs)
	case ast.BinaryConstraintUGT:
		return ram.DomainToUnsigned(lhs) > ram.DomainToUnsigned(rhs)
	case ast.BinaryConstraintUGE:
		return ram.DomainToUnsigned(lhs) >= ram.DomainToUnsigned(rhs)
	case ast.BinaryConstraintFLT:
		return ram.DomainToFloat(lhs) < ram.DomainToFloat(rhs)
	case ast.BinaryConstraintFLE:
		return ram.DomainToFloat(lhs) <= ram.DomainToFloat(rhs)
	case ast.BinaryConstraintFGT:
		return ram.DomainToFloat(lhs) > ram.DomainToFloat(rhs)
	case ast.BinaryConstraintFGE:
		return ram.DomainToFloat(lhs) >= ram.DomainToFloat(rhs)
	case ast.BinaryConstraintFEQ:
		return ram.DomainToFloat(lhs) == ram.DomainToFloat(rhs)
	case ast.BinaryConstraintFNE:
		return ram.DomainToFloat(lhs) != ram.DomainToFloat(rhs)
	case ast.BinaryConstraintMatch:
		matched, err := regexp.MatchString(symbols.Resolve(lhs), symbols.Resolve(rhs))
		return err == nil && matched
	case ast.BinaryConstraintNotMatch:
		matched, err := regexp.MatchString(symbols.Resolve(lhs), symbols.Resolve(rhs))
		return err == nil && !matched
	case ast.BinaryConstraintContains:
		return strings.Contains(symbols.Resolve(rhs), symbols.Resolve(lhs))
	case ast.BinaryConstraintNotContains:
		return !strings.Contains(symbols.Resolve(rhs), symbols.Resolve(lhs))
	}
	return false
}

// accumulator folds aggregate values per the operator's numeric flavour.
type accumulator struct {
	op    ast.AggregateOp
	count int64
	int_  int64
	uint_ uint64
	float float64
}

func newAccumulator(op ast.AggregateOp) *accumulator {
	a := &accumulator{op: op}
	switch op {
	case ast.AggregateMin:
		a.int_ = int64(ram.MaxDomain)
	case ast.AggregateMax:
		a.int_ = int64(ram.MinDomain)
	case ast.AggregateUMin:
		a.uint_ = uint64(math.MaxUint32)
	case ast.AggregateFMin:
		a.float = math.Inf(1)
	case ast.AggregateFMax:
		a.float = math.Inf(-1)
	}
	return a
}

func (a *accumulator) add(v ram.Domain) {
	a.count++
	switch a.op {
	case ast.AggregateMin:
		if int64(v) < a.int_ {
			a.int_ = int64(v)
		}
	case ast.AggregateMax:
		if int64(v) > a.int_ {
			a.int_ = int64(v)
		}
	case ast.AggregateSum, ast.AggregateMean:
		a.int_ += int64(v)
	case ast.AggregateUMin:
		if u := uint64(ram.DomainToUnsigned(v)); u < a.uint_ {
			a.uint_ = u
		}
	case ast.AggregateUMax:
		if u := uint64(ram.DomainToUnsigned(v)); u > a.uint_ {
			a.uint_ = u
		}
	case ast.AggregateUSum:
		a.uint_ += uint64(ram.DomainToUnsigned(v))
	case ast.AggregateFMin:
		if f := float64(ram.DomainToFloat(v)); f < a.float {
			a.float = f
		}
	case ast.AggregateFMax:
		if f := float64(ram.DomainToFloat(v)); f > a.float {
			a.float = f
		}
	case ast.AggregateFSum, ast.AggregateFMean:
		a.float += float64(ram.DomainToFloat(v))
	}
}

// result yields the fold; empty aggregates emit the operator's neutral
// element (infinities for min and max, zero for sums and counts, NaN for
// the float mean).
func (a *accumulator) result() ram.Domain {
	switch a.op {
	case ast.AggregateCount:
		return ram.Domain(a.count)
	case ast.AggregateMin, ast.AggregateMax, ast.AggregateSum:
		return ram.Domain(a.int_)
	case ast.AggregateMean:
		if a.count == 0 {
			return 0
		}
		return ram.Domain(a.int_ / a.count)
	case ast.AggregateUMin, ast.AggregateUMax, ast.AggregateUSum:
		return ram.UnsignedToDomain(uint32(a.uint_))
	case ast.AggregateFMin, ast.AggregateFMax, ast.AggregateFSum:
		return ram.FloatToDomain(float32(a.float))
	case ast.AggregateFMean:
		if a.count == 0 {
			return ram.FloatToDomain(float32(math.NaN()))
		}
		return ram.FloatToDomain(float32(a.float / float64(a.count)))
	}
	return 0
}

// rangeIterator lazily produces the value sequence of the range family:
// [from, to) stepping by +1 or -1, or by an explicit step. A zero step
// yields the empty sequence.
type rangeIterator struct {
	op      ast.FunctorOp
	current int64
	stop    int64
	step    int64
	started bool
	fcur    float64
	fstop   float64
	fstep   float64
}

func newRangeIterator(op ast.FunctorOp, args []ram.Domain) *rangeIterator {
	it := &rangeIterator{op: op}
	switch op {
	case ast.FunctorURange:
		it.current = int64(ram.DomainToUnsigned(args[0]))
		it.stop = int64(ram.DomainToUnsigned(args[1]))
		it.step = 1
		if len(args) > 2 {
			it.step = int64(int32(ram.DomainToUnsigned(args[2])))
		} else if it.stop < it.current {
			it.step = -1
		}
	case ast.FunctorFRange:
		it.fcur = float64(ram.DomainToFloat(args[0]))
		it.fstop = float64(ram.DomainToFloat(args[1]))
		it.fstep = 1
		if len(args) > 2 {
			it.fstep = float64(ram.DomainToFloat(args[2]))
		} else if it.fstop < it.fcur {
			it.fstep = -1
		}
	default:
		it.current = int64(args[0])
		it.stop = int64(args[1])
		it.step = 1
		if len(args) > 2 {
			it.step = int64(args[2])
		} else if it.stop < it.current {
			it.step = -1
		}
	}
	return it
}

func (it *rangeIterator) next() bool {
	if it.op == ast.FunctorFRange {
		if it.started {
			it.fcur += it.fstep
		}
		it.started = true
		if it.fstep == 0 {
			return false
		}
		if it.fstep > 0 {
			return it.fcur < it.fstop
		}
		return it.fcur > it.fstop
	}
	if it.started {
		it.current += it.step
	}
	it.started = true
	if it.step == 0 {
		return false
	}
	if it.step > 0 {
		return it.current < it.stop
	}
	return it.current > it.stop
}

func (it *rangeIterator) value() ram.Domain {
	if it.op == ast.FunctorFRange {
		return ram.FloatToDomain(float32(it.fcur))
	}
	if it.op == ast.FunctorURange {
		return ram.UnsignedToDomain(uint32(it.current))
	}
	return ram.Domain(it.current)
}
