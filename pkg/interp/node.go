package interp

import (
	"fmt"

	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/ram"
)

// BaseType enumerates the executable node kinds. The executor dispatches on
// these in one dense switch; double-dispatch visitors are too slow for the
// inner loop.
type BaseType uint16

const (
	TypeConstant BaseType = iota
	TypeTupleElement
	TypeAutoIncrement
	TypeIntrinsicOperator
	TypeUserDefinedOperator
	TypeNestedIntrinsicOperator
	TypePackRecord
	TypeSubroutineArgument
	TypeRelationSize
	TypeTrue
	TypeFalse
	TypeConjunction
	TypeNegation
	TypeEmptinessCheck
	TypeExistenceCheck
	TypeProvenanceExistenceCheck
	TypeConstraint
	TypeScan
	TypeParallelScan
	TypeIndexScan
	TypeParallelIndexScan
	TypeIfExists
	TypeIndexIfExists
	TypeAggregate
	TypeIndexAggregate
	TypeUnpackRecord
	TypeFilter
	TypeBreak
	TypeInsert
	TypeGuardedInsert
	TypeSubroutineReturn
	TypeSequence
	TypeParallel
	TypeLoop
	TypeExit
	TypeQuery
	TypeClear
	TypeSwap
	TypeExtend
	TypeIO
	TypeLogSize
	TypeLogTimer
	TypeDebugInfo
	TypeCall
)

// Storage tags the physical representation behind a relation-touching node.
type Storage uint8

const (
	StorageBTree Storage = iota
	StorageEqRel
	StorageProvenance
)

// NodeType packs (operation, arity, storage) into one numeric tag.
type NodeType uint32

// PackNodeType builds the packed tag.
func PackNodeType(base BaseType, arity int, storage Storage) NodeType {
	return NodeType(uint32(base)<<16 | uint32(uint8(arity))<<8 | uint32(storage))
}

// Base extracts the operation kind.
func (t NodeType) Base() BaseType { return BaseType(t >> 16) }

// TupleArity extracts the relation arity encoded in the tag.
func (t NodeType) TupleArity() int { return int((t >> 8) & 0xff) }

// Storage extracts the storage kind.
func (t NodeType) Storage() Storage { return Storage(t & 0xff) }

func (t NodeType) String() string {
	return fmt.Sprintf("N%d_a%d_s%d", t.Base(), t.TupleArity(), t.Storage())
}

// node is one element of the flattened executable graph. Every node carries
// its packed type tag and a pointer to the RAM node it shadows for
// diagnostics.
type node interface {
	Type() NodeType
	Shadow() ram.Node
}

type baseNode struct {
	ty     NodeType
	shadow ram.Node
}

func (n *baseNode) Type() NodeType   { return n.ty }
func (n *baseNode) Shadow() ram.Node { return n.shadow }

func mkBase(base BaseType, shadow ram.Node) baseNode {
	return baseNode{ty: PackNodeType(base, 0, StorageBTree), shadow: shadow}
}

func mkRelBase(base BaseType, shadow ram.Node, rel *relationHandle) baseNode {
	storage := StorageBTree
	switch {
	case rel.description.Representation == ast.RepresentationEqRel:
		storage = StorageEqRel
	case rel.provenance:
		storage = StorageProvenance
	}
	return baseNode{ty: PackNodeType(base, rel.description.Arity, storage), shadow: shadow}
}

// relationHandle is the generator-assigned slot of one relation: its id,
// its description, the index orders chosen by index analysis and the live
// storage instance.
type relationHandle struct {
	id          int
	description *ram.Relation
	orders      [][]int
	provenance  bool
	rel         Relation
}

// tupleRef encodes one (dst, tupleId, element) copy of a super-instruction.
type tupleRef struct {
	dst     int
	tupleID int
	element int
}

// exprRef encodes one (dst, expression) slot of a super-instruction.
type exprRef struct {
	dst  int
	expr node
}

// superInstruction precomputes the materialization of a bound tuple or
// range pattern: constants are folded into the first/second rows, tuple
// accesses are copied from the context, and anything else evaluates through
// a generic expression slot.
type superInstruction struct {
	arity       int
	first       []ram.Domain
	second      []ram.Domain
	tupleFirst  []tupleRef
	tupleSecond []tupleRef
	exprFirst   []exprRef
	exprSecond  []exprRef
}

func newSuperInstruction(arity int) *superInstruction {
	s := &superInstruction{
		arity:  arity,
		first:  make([]ram.Domain, arity),
		second: make([]ram.Domain, arity),
	}
	for i := 0; i < arity; i++ {
		s.first[i] = ram.MinDomain
		s.second[i] = ram.MaxDomain
	}
	return s
}

// viewSetup records one view a query must create before running: which
// relation, over which index, into which context slot.
type viewSetup struct {
	rel    *relationHandle
	index  int
	viewID int
}

// Expression nodes.

type constantNode struct {
	baseNode
	value ram.Domain
}

type tupleElementNode struct {
	baseNode
	tupleID int
	element int
}

type autoIncrementNode struct {
	baseNode
}

type intrinsicNode struct {
	baseNode
	op   ast.FunctorOp
	args []node
}

type userOpNode struct {
	baseNode
	name string
	args []node
}

type packRecordNode struct {
	baseNode
	args []node
}

type subroutineArgNode struct {
	baseNode
	index int
}

type relationSizeNode struct {
	baseNode
	rel *relationHandle
}

// Condition nodes.

type trueNode struct{ baseNode }

type falseNode struct{ baseNode }

type conjunctionNode struct {
	baseNode
	lhs, rhs node
}

type negationNode struct {
	baseNode
	child node
}

type emptinessNode struct {
	baseNode
	rel *relationHandle
}

type existenceNode struct {
	baseNode
	rel    *relationHandle
	viewID int
	index  int
	super  *superInstruction
	total  bool
}

type constraintNode struct {
	baseNode
	op       ast.BinaryConstraintOp
	lhs, rhs node
}

// Operation nodes.

type scanNode struct {
	baseNode
	rel      *relationHandle
	tupleID  int
	nested   node
	parallel bool
}

type indexScanNode struct {
	baseNode
	rel      *relationHandle
	tupleID  int
	viewID   int
	index    int
	super    *superInstruction
	nested   node
	parallel bool
}

type ifExistsNode struct {
	baseNode
	rel     *relationHandle
	tupleID int
	cond    node
	nested  node
}

type indexIfExistsNode struct {
	baseNode
	rel     *relationHandle
	tupleID int
	viewID  int
	index   int
	super   *superInstruction
	cond    node
	nested  node
}

type aggregateNode struct {
	baseNode
	op      ast.AggregateOp
	rel     *relationHandle
	tupleID int
	target  node
	cond    node
	nested  node
}

type indexAggregateNode struct {
	baseNode
	op      ast.AggregateOp
	rel     *relationHandle
	tupleID int
	viewID  int
	index   int
	super   *superInstruction
	target  node
	cond    node
	nested  node
}

type unpackRecordNode struct {
	baseNode
	expr    node
	arity   int
	tupleID int
	nested  node
}

type nestedIntrinsicNode struct {
	baseNode
	op      ast.FunctorOp
	args    []node
	tupleID int
	nested  node
}

type filterNode struct {
	baseNode
	cond   node
	nested node
}

type breakNode struct {
	baseNode
	cond   node
	nested node
}

type insertNode struct {
	baseNode
	rel   *relationHandle
	super *superInstruction
}

type guardedInsertNode struct {
	baseNode
	rel   *relationHandle
	super *superInstruction
	guard node
}

type subroutineReturnNode struct {
	baseNode
	values []node
}

// Statement nodes.

type sequenceNode struct {
	baseNode
	children []node
}

type parallelNode struct {
	baseNode
	children []node
}

type loopNode struct {
	baseNode
	body node
}

type exitNode struct {
	baseNode
	cond node
}

type queryNode struct {
	baseNode
	views []viewSetup
	// preConds are the view-independent terms of an outermost filter; they
	// are evaluated before any views are created so parallel workers never
	// build views for queries that cannot fire.
	preConds []node
	root     node
	text     string
}

type clearNode struct {
	baseNode
	rel *relationHandle
}

type swapNode struct {
	baseNode
	first, second *relationHandle
}

type extendNode struct {
	baseNode
	target, source *relationHandle
}

type ioNode struct {
	baseNode
	kind   ram.IOKind
	rel    *relationHandle
	params map[string]string
}

type logSizeNode struct {
	baseNode
	rel     *relationHandle
	message string
}

type logTimerNode struct {
	baseNode
	message string
	body    node
}

type debugInfoNode struct {
	baseNode
	message string
	body    node
}

type callNode struct {
	baseNode
	name string
}
