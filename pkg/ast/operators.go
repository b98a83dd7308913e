package ast

// BinaryConstraintOp enumerates the comparison operators usable in a binary
// constraint literal. The ordered comparisons come in signed, unsigned and
// float flavours so that the lowering can pick the physical comparison
// without re-deriving types.
type BinaryConstraintOp int

const (
	BinaryConstraintEQ BinaryConstraintOp = iota
	BinaryConstraintNE
	BinaryConstraintLT
	BinaryConstraintLE
	BinaryConstraintGT
	BinaryConstraintGE
	BinaryConstraintULT
	BinaryConstraintULE
	BinaryConstraintUGT
	BinaryConstraintUGE
	BinaryConstraintFLT
	BinaryConstraintFLE
	BinaryConstraintFGT
	BinaryConstraintFGE
	BinaryConstraintFEQ
	BinaryConstraintFNE
	BinaryConstraintMatch
	BinaryConstraintNotMatch
	BinaryConstraintContains
	BinaryConstraintNotContains
)

var constraintSymbols = map[BinaryConstraintOp]string{
	BinaryConstraintEQ:          "=",
	BinaryConstraintNE:          "!=",
	BinaryConstraintLT:          "<",
	BinaryConstraintLE:          "<=",
	BinaryConstraintGT:          ">",
	BinaryConstraintGE:          ">=",
	BinaryConstraintULT:         "u<",
	BinaryConstraintULE:         "u<=",
	BinaryConstraintUGT:         "u>",
	BinaryConstraintUGE:         "u>=",
	BinaryConstraintFLT:         "f<",
	BinaryConstraintFLE:         "f<=",
	BinaryConstraintFGT:         "f>",
	BinaryConstraintFGE:         "f>=",
	BinaryConstraintFEQ:         "f=",
	BinaryConstraintFNE:         "f!=",
	BinaryConstraintMatch:       "match",
	BinaryConstraintNotMatch:    "not_match",
	BinaryConstraintContains:    "contains",
	BinaryConstraintNotContains: "not_contains",
}

// Symbol returns the operator's source-level symbol.
func (op BinaryConstraintOp) Symbol() string {
	return constraintSymbols[op]
}

// IsEquality reports whether the operator is an equality (`=` or `f=`).
// Alias resolution only unifies over equalities.
func (op BinaryConstraintOp) IsEquality() bool {
	return op == BinaryConstraintEQ || op == BinaryConstraintFEQ
}

// FunctorOp enumerates the intrinsic functors of the expression vocabulary.
type FunctorOp int

const (
	FunctorAdd FunctorOp = iota
	FunctorSub
	FunctorMul
	FunctorDiv
	FunctorMod
	FunctorExp
	FunctorNeg
	FunctorBNot
	FunctorBAnd
	FunctorBOr
	FunctorBXor
	FunctorLNot
	FunctorLAnd
	FunctorLOr
	FunctorMax
	FunctorMin
	FunctorUAdd
	FunctorUSub
	FunctorUMul
	FunctorUDiv
	FunctorFAdd
	FunctorFSub
	FunctorFMul
	FunctorFDiv
	FunctorCat
	FunctorStrlen
	FunctorSubstr
	FunctorOrd
	FunctorToNumber
	FunctorToString
	FunctorRange
	FunctorURange
	FunctorFRange
)

var functorNames = map[FunctorOp]string{
	FunctorAdd:      "+",
	FunctorSub:      "-",
	FunctorMul:      "*",
	FunctorDiv:      "/",
	FunctorMod:      "%",
	FunctorExp:      "^",
	FunctorNeg:      "neg",
	FunctorBNot:     "bnot",
	FunctorBAnd:     "band",
	FunctorBOr:      "bor",
	FunctorBXor:     "bxor",
	FunctorLNot:     "lnot",
	FunctorLAnd:     "land",
	FunctorLOr:      "lor",
	FunctorMax:      "max",
	FunctorMin:      "min",
	FunctorUAdd:     "u+",
	FunctorUSub:     "u-",
	FunctorUMul:     "u*",
	FunctorUDiv:     "u/",
	FunctorFAdd:     "f+",
	FunctorFSub:     "f-",
	FunctorFMul:     "f*",
	FunctorFDiv:     "f/",
	FunctorCat:      "cat",
	FunctorStrlen:   "strlen",
	FunctorSubstr:   "substr",
	FunctorOrd:      "ord",
	FunctorToNumber: "to_number",
	FunctorToString: "to_string",
	FunctorRange:    "range",
	FunctorURange:   "urange",
	FunctorFRange:   "frange",
}

// Name returns the functor's source-level name.
func (op FunctorOp) Name() string {
	return functorNames[op]
}

// IsMultiResult reports whether the functor yields a sequence of values
// rather than a single one. Multi-result functors act as generators and are
// never substituted away by alias resolution.
func (op FunctorOp) IsMultiResult() bool {
	switch op {
	case FunctorRange, FunctorURange, FunctorFRange:
		return true
	}
	return false
}

// AggregateOp enumerates aggregate operators, including the unsigned and
// float variants the executor folds natively.
type AggregateOp int

const (
	AggregateMin AggregateOp = iota
	AggregateMax
	AggregateSum
	AggregateCount
	AggregateMean
	AggregateUMin
	AggregateUMax
	AggregateUSum
	AggregateFMin
	AggregateFMax
	AggregateFSum
	AggregateFMean
)

var aggregateNames = map[AggregateOp]string{
	AggregateMin:   "min",
	AggregateMax:   "max",
	AggregateSum:   "sum",
	AggregateCount: "count",
	AggregateMean:  "mean",
	AggregateUMin:  "umin",
	AggregateUMax:  "umax",
	AggregateUSum:  "usum",
	AggregateFMin:  "fmin",
	AggregateFMax:  "fmax",
	AggregateFSum:  "fsum",
	AggregateFMean: "fmean",
}

// Name returns the aggregate operator's source-level name.
func (op AggregateOp) Name() string {
	return aggregateNames[op]
}
