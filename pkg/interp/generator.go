package interp

import (
	"fmt"
	"sort"

	"github.com/gitrdm/godatalog/pkg/ram"
	ramanalysis "github.com/gitrdm/godatalog/pkg/ram/analysis"
)

// Code is the generator's output: the flattened main graph, the subroutine
// graphs and the relation handles keyed by generator-assigned id.
type Code struct {
	Main        node
	Subroutines map[string]node

	handles   []*relationHandle
	relations map[string]*relationHandle
}

// Handle returns the live relation registered under the given name, or nil.
func (c *Code) Handle(name string) Relation {
	if h, ok := c.relations[name]; ok {
		return h.rel
	}
	return nil
}

// RelationNames lists all encoded relations, sorted.
func (c *Code) RelationNames() []string {
	out := make([]string, 0, len(c.relations))
	for name := range c.relations {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// generator flattens a RAM program into executable nodes: relations are
// encoded on first encounter, every query opens a fresh view scope, and
// indexed operations receive pre-resolved index ids, view ids and
// super-instructions.
type generator struct {
	prog       *ram.Program
	indexes    *ramanalysis.IndexAnalysis
	symbols    *SymbolTable
	provenance bool

	code *Code

	// view scope of the query being generated
	views     []viewSetup
	viewCount int
}

// Generate flattens the program. Index analysis runs first so every
// relation is created with its minimum index cover.
func Generate(prog *ram.Program, symbols *SymbolTable, provenance bool) (*Code, error) {
	g := &generator{
		prog:       prog,
		indexes:    ramanalysis.RunIndexAnalysis(prog, provenance),
		symbols:    symbols,
		provenance: provenance,
		code: &Code{
			Subroutines: make(map[string]node),
			relations:   make(map[string]*relationHandle),
		},
	}
	main, err := g.stmt(prog.Main)
	if err != nil {
		return nil, err
	}
	g.code.Main = main
	for _, name := range prog.SubroutineNames() {
		sub, err := g.stmt(prog.Subroutines[name])
		if err != nil {
			return nil, err
		}
		g.code.Subroutines[name] = sub
	}
	return g.code, nil
}

// relation encodes a relation on first encounter: it receives a fresh id
// and storage created with the index orders of its cluster.
func (g *generator) relation(name string) (*relationHandle, error) {
	if h, ok := g.code.relations[name]; ok {
		return h, nil
	}
	desc := g.prog.Relation(name)
	if desc == nil {
		return nil, fmt.Errorf("interp: unknown relation %s", name)
	}
	cluster := g.indexes.Cluster(name)
	orders := make([][]int, len(cluster.Orders))
	for i, order := range cluster.Orders {
		orders[i] = []int(order)
	}
	h := &relationHandle{
		id:          len(g.code.handles),
		description: desc,
		orders:      orders,
		provenance:  g.provenance,
		rel:         NewRelation(desc, orders),
	}
	g.code.handles = append(g.code.handles, h)
	g.code.relations[name] = h
	return h, nil
}

// orderFor resolves the index id covering a search signature, defaulting to
// the primary index for degenerate searches.
func (g *generator) orderFor(name string, sig ramanalysis.SearchSignature) int {
	cluster := g.indexes.Cluster(name)
	if cluster == nil {
		return 0
	}
	if idx := cluster.OrderFor(sig); idx >= 0 {
		return idx
	}
	return 0
}

// newView registers a view in the current query scope.
func (g *generator) newView(rel *relationHandle, index int) int {
	id := g.viewCount
	g.viewCount++
	g.views = append(g.views, viewSetup{rel: rel, index: index, viewID: id})
	return id
}

func (g *generator) stmt(s ram.Statement) (node, error) {
	switch st := s.(type) {
	case *ram.Sequence:
		children, err := g.stmts(st.Statements)
		if err != nil {
			return nil, err
		}
		return &sequenceNode{baseNode: mkBase(TypeSequence, st), children: children}, nil
	case *ram.Parallel:
		children, err := g.stmts(st.Statements)
		if err != nil {
			return nil, err
		}
		return &parallelNode{baseNode: mkBase(TypeParallel, st), children: children}, nil
	case *ram.Loop:
		body, err := g.stmt(st.Body)
		if err != nil {
			return nil, err
		}
		return &loopNode{baseNode: mkBase(TypeLoop, st), body: body}, nil
	case *ram.Exit:
		cond, err := g.cond(st.Condition)
		if err != nil {
			return nil, err
		}
		return &exitNode{baseNode: mkBase(TypeExit, st), cond: cond}, nil
	case *ram.Query:
		// Every query starts a new view scope.
		savedViews, savedCount := g.views, g.viewCount
		g.views, g.viewCount = nil, 0
		root, err := g.op(st.Root)
		if err != nil {
			return nil, err
		}
		q := &queryNode{
			baseNode: mkBase(TypeQuery, st),
			views:    g.views,
			root:     root,
			text:     st.String(),
		}
		splitQueryConditions(q)
		g.views, g.viewCount = savedViews, savedCount
		return q, nil
	case *ram.Clear:
		rel, err := g.relation(st.Relation)
		if err != nil {
			return nil, err
		}
		return &clearNode{baseNode: mkRelBase(TypeClear, st, rel), rel: rel}, nil
	case *ram.Swap:
		first, err := g.relation(st.First)
		if err != nil {
			return nil, err
		}
		second, err := g.relation(st.Second)
		if err != nil {
			return nil, err
		}
		return &swapNode{baseNode: mkBase(TypeSwap, st), first: first, second: second}, nil
	case *ram.Extend:
		target, err := g.relation(st.Target)
		if err != nil {
			return nil, err
		}
		source, err := g.relation(st.Source)
		if err != nil {
			return nil, err
		}
		return &extendNode{baseNode: mkBase(TypeExtend, st), target: target, source: source}, nil
	case *ram.IO:
		rel, err := g.relation(st.Relation)
		if err != nil {
			return nil, err
		}
		return &ioNode{baseNode: mkRelBase(TypeIO, st, rel), kind: st.Kind, rel: rel, params: st.Params}, nil
	case *ram.LogSize:
		rel, err := g.relation(st.Relation)
		if err != nil {
			return nil, err
		}
		return &logSizeNode{baseNode: mkRelBase(TypeLogSize, st, rel), rel: rel, message: st.Message}, nil
	case *ram.LogTimer:
		body, err := g.stmt(st.Body)
		if err != nil {
			return nil, err
		}
		return &logTimerNode{baseNode: mkBase(TypeLogTimer, st), message: st.Message, body: body}, nil
	case *ram.DebugInfo:
		body, err := g.stmt(st.Body)
		if err != nil {
			return nil, err
		}
		return &debugInfoNode{baseNode: mkBase(TypeDebugInfo, st), message: st.Message, body: body}, nil
	case *ram.Call:
		return &callNode{baseNode: mkBase(TypeCall, st), name: st.Name}, nil
	}
	return nil, fmt.Errorf("interp: cannot generate statement %T", s)
}

func (g *generator) stmts(stmts []ram.Statement) ([]node, error) {
	out := make([]node, len(stmts))
	for i, s := range stmts {
		n, err := g.stmt(s)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (g *generator) op(o ram.Operation) (node, error) {
	switch op := o.(type) {
	case *ram.Scan:
		rel, err := g.relation(op.Relation)
		if err != nil {
			return nil, err
		}
		nested, err := g.op(op.Nested)
		if err != nil {
			return nil, err
		}
		base := TypeScan
		if op.Parallel {
			base = TypeParallelScan
		}
		return &scanNode{
			baseNode: mkRelBase(base, op, rel),
			rel:      rel, tupleID: op.TupleID, nested: nested, parallel: op.Parallel,
		}, nil
	case *ram.IndexScan:
		rel, err := g.relation(op.Relation)
		if err != nil {
			return nil, err
		}
		index := g.orderFor(op.Relation, ramanalysis.PatternSignature(op.Pattern))
		super, err := g.rangeSuper(op.Pattern)
		if err != nil {
			return nil, err
		}
		nested, err := g.op(op.Nested)
		if err != nil {
			return nil, err
		}
		base := TypeIndexScan
		if op.Parallel {
			base = TypeParallelIndexScan
		}
		return &indexScanNode{
			baseNode: mkRelBase(base, op, rel),
			rel:      rel, tupleID: op.TupleID,
			viewID: g.newView(rel, index), index: index, super: super,
			nested: nested, parallel: op.Parallel,
		}, nil
	case *ram.IfExists:
		rel, err := g.relation(op.Relation)
		if err != nil {
			return nil, err
		}
		cond, err := g.cond(op.Condition)
		if err != nil {
			return nil, err
		}
		nested, err := g.op(op.Nested)
		if err != nil {
			return nil, err
		}
		return &ifExistsNode{
			baseNode: mkRelBase(TypeIfExists, op, rel),
			rel:      rel, tupleID: op.TupleID, cond: cond, nested: nested,
		}, nil
	case *ram.IndexIfExists:
		rel, err := g.relation(op.Relation)
		if err != nil {
			return nil, err
		}
		index := g.orderFor(op.Relation, ramanalysis.PatternSignature(op.Pattern))
		super, err := g.rangeSuper(op.Pattern)
		if err != nil {
			return nil, err
		}
		cond, err := g.cond(op.Condition)
		if err != nil {
			return nil, err
		}
		nested, err := g.op(op.Nested)
		if err != nil {
			return nil, err
		}
		return &indexIfExistsNode{
			baseNode: mkRelBase(TypeIndexIfExists, op, rel),
			rel:      rel, tupleID: op.TupleID,
			viewID: g.newView(rel, index), index: index, super: super,
			cond: cond, nested: nested,
		}, nil
	case *ram.Aggregate:
		rel, err := g.relation(op.Relation)
		if err != nil {
			return nil, err
		}
		target, err := g.expr(op.Target)
		if err != nil {
			return nil, err
		}
		cond, err := g.cond(op.Condition)
		if err != nil {
			return nil, err
		}
		nested, err := g.op(op.Nested)
		if err != nil {
			return nil, err
		}
		return &aggregateNode{
			baseNode: mkRelBase(TypeAggregate, op, rel),
			op:       op.Op, rel: rel, tupleID: op.TupleID,
			target: target, cond: cond, nested: nested,
		}, nil
	case *ram.IndexAggregate:
		rel, err := g.relation(op.Relation)
		if err != nil {
			return nil, err
		}
		index := g.orderFor(op.Relation, ramanalysis.PatternSignature(op.Pattern))
		super, err := g.rangeSuper(op.Pattern)
		if err != nil {
			return nil, err
		}
		target, err := g.expr(op.Target)
		if err != nil {
			return nil, err
		}
		cond, err := g.cond(op.Condition)
		if err != nil {
			return nil, err
		}
		nested, err := g.op(op.Nested)
		if err != nil {
			return nil, err
		}
		return &indexAggregateNode{
			baseNode: mkRelBase(TypeIndexAggregate, op, rel),
			op:       op.Op, rel: rel, tupleID: op.TupleID,
			viewID: g.newView(rel, index), index: index, super: super,
			target: target, cond: cond, nested: nested,
		}, nil
	case *ram.UnpackRecord:
		expr, err := g.expr(op.Expression)
		if err != nil {
			return nil, err
		}
		nested, err := g.op(op.Nested)
		if err != nil {
			return nil, err
		}
		return &unpackRecordNode{
			baseNode: mkBase(TypeUnpackRecord, op),
			expr:     expr, arity: op.Arity, tupleID: op.TupleID, nested: nested,
		}, nil
	case *ram.NestedIntrinsicOperator:
		args, err := g.exprs(op.Args)
		if err != nil {
			return nil, err
		}
		nested, err := g.op(op.Nested)
		if err != nil {
			return nil, err
		}
		return &nestedIntrinsicNode{
			baseNode: mkBase(TypeNestedIntrinsicOperator, op),
			op:       op.Op, args: args, tupleID: op.TupleID, nested: nested,
		}, nil
	case *ram.Filter:
		cond, err := g.cond(op.Condition)
		if err != nil {
			return nil, err
		}
		nested, err := g.op(op.Nested)
		if err != nil {
			return nil, err
		}
		return &filterNode{baseNode: mkBase(TypeFilter, op), cond: cond, nested: nested}, nil
	case *ram.Break:
		cond, err := g.cond(op.Condition)
		if err != nil {
			return nil, err
		}
		nested, err := g.op(op.Nested)
		if err != nil {
			return nil, err
		}
		return &breakNode{baseNode: mkBase(TypeBreak, op), cond: cond, nested: nested}, nil
	case *ram.Insert:
		rel, err := g.relation(op.Relation)
		if err != nil {
			return nil, err
		}
		super, err := g.tupleSuper(op.Values)
		if err != nil {
			return nil, err
		}
		return &insertNode{baseNode: mkRelBase(TypeInsert, op, rel), rel: rel, super: super}, nil
	case *ram.GuardedInsert:
		rel, err := g.relation(op.Relation)
		if err != nil {
			return nil, err
		}
		super, err := g.tupleSuper(op.Values)
		if err != nil {
			return nil, err
		}
		guard, err := g.cond(op.Guard)
		if err != nil {
			return nil, err
		}
		return &guardedInsertNode{
			baseNode: mkRelBase(TypeGuardedInsert, op, rel),
			rel:      rel, super: super, guard: guard,
		}, nil
	case *ram.SubroutineReturn:
		values, err := g.exprs(op.Values)
		if err != nil {
			return nil, err
		}
		return &subroutineReturnNode{baseNode: mkBase(TypeSubroutineReturn, op), values: values}, nil
	}
	return nil, fmt.Errorf("interp: cannot generate operation %T", o)
}

func (g *generator) cond(c ram.Condition) (node, error) {
	switch cond := c.(type) {
	case *ram.True:
		return &trueNode{baseNode: mkBase(TypeTrue, cond)}, nil
	case *ram.False:
		return &falseNode{baseNode: mkBase(TypeFalse, cond)}, nil
	case *ram.Conjunction:
		lhs, err := g.cond(cond.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := g.cond(cond.RHS)
		if err != nil {
			return nil, err
		}
		return &conjunctionNode{baseNode: mkBase(TypeConjunction, cond), lhs: lhs, rhs: rhs}, nil
	case *ram.Negation:
		child, err := g.cond(cond.Cond)
		if err != nil {
			return nil, err
		}
		return &negationNode{baseNode: mkBase(TypeNegation, cond), child: child}, nil
	case *ram.Constraint:
		lhs, err := g.expr(cond.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := g.expr(cond.RHS)
		if err != nil {
			return nil, err
		}
		return &constraintNode{baseNode: mkBase(TypeConstraint, cond), op: cond.Op, lhs: lhs, rhs: rhs}, nil
	case *ram.EmptinessCheck:
		rel, err := g.relation(cond.Relation)
		if err != nil {
			return nil, err
		}
		return &emptinessNode{baseNode: mkRelBase(TypeEmptinessCheck, cond, rel), rel: rel}, nil
	case *ram.ExistenceCheck:
		return g.existence(cond, cond.Relation, cond.Values, false)
	case *ram.ProvenanceExistenceCheck:
		return g.existence(cond, cond.Relation, cond.Values, true)
	}
	return nil, fmt.Errorf("interp: cannot generate condition %T", c)
}

func (g *generator) existence(shadow ram.Node, relation string, values []ram.Expression, provenance bool) (node, error) {
	rel, err := g.relation(relation)
	if err != nil {
		return nil, err
	}
	var sig ramanalysis.SearchSignature
	base := TypeExistenceCheck
	if provenance {
		sig = ramanalysis.ProvenanceSignature(values)
		base = TypeProvenanceExistenceCheck
	} else {
		sig = ramanalysis.ValuesSignature(values)
	}
	total := sig.ConstrainedCount() == len(values)
	super := newSuperInstruction(len(values))
	if err := g.encodeBound(super, values, false); err != nil {
		return nil, err
	}
	if err := g.encodeBound(super, values, true); err != nil {
		return nil, err
	}
	index := g.orderFor(relation, sig)
	return &existenceNode{
		baseNode: mkRelBase(base, shadow, rel),
		rel:      rel,
		viewID:   g.newView(rel, index),
		index:    index,
		super:    super,
		total:    total,
	}, nil
}

func (g *generator) exprs(exprs []ram.Expression) ([]node, error) {
	out := make([]node, len(exprs))
	for i, e := range exprs {
		n, err := g.expr(e)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (g *generator) expr(e ram.Expression) (node, error) {
	switch ex := e.(type) {
	case *ram.SignedConstant:
		return &constantNode{baseNode: mkBase(TypeConstant, ex), value: ex.Value}, nil
	case *ram.StringConstant:
		// Interned at generation time; at run time it is a plain constant.
		return &constantNode{baseNode: mkBase(TypeConstant, ex), value: g.symbols.Lookup(ex.Value)}, nil
	case *ram.UndefValue:
		return &constantNode{baseNode: mkBase(TypeConstant, ex), value: 0}, nil
	case *ram.TupleElement:
		return &tupleElementNode{
			baseNode: mkBase(TypeTupleElement, ex),
			tupleID:  ex.TupleID, element: ex.Element,
		}, nil
	case *ram.AutoIncrement:
		return &autoIncrementNode{baseNode: mkBase(TypeAutoIncrement, ex)}, nil
	case *ram.IntrinsicOperator:
		args, err := g.exprs(ex.Args)
		if err != nil {
			return nil, err
		}
		return &intrinsicNode{baseNode: mkBase(TypeIntrinsicOperator, ex), op: ex.Op, args: args}, nil
	case *ram.UserDefinedOperator:
		args, err := g.exprs(ex.Args)
		if err != nil {
			return nil, err
		}
		return &userOpNode{baseNode: mkBase(TypeUserDefinedOperator, ex), name: ex.Name, args: args}, nil
	case *ram.PackRecord:
		args, err := g.exprs(ex.Args)
		if err != nil {
			return nil, err
		}
		return &packRecordNode{baseNode: mkBase(TypePackRecord, ex), args: args}, nil
	case *ram.SubroutineArgument:
		return &subroutineArgNode{baseNode: mkBase(TypeSubroutineArgument, ex), index: ex.Index}, nil
	case *ram.RelationSize:
		rel, err := g.relation(ex.Relation)
		if err != nil {
			return nil, err
		}
		return &relationSizeNode{baseNode: mkRelBase(TypeRelationSize, ex, rel), rel: rel}, nil
	}
	return nil, fmt.Errorf("interp: cannot generate expression %T", e)
}

// rangeSuper builds the super-instruction of a range pattern.
func (g *generator) rangeSuper(pattern ram.RangePattern) (*superInstruction, error) {
	super := newSuperInstruction(len(pattern.Lower))
	if err := g.encodeBound(super, pattern.Lower, false); err != nil {
		return nil, err
	}
	if err := g.encodeBound(super, pattern.Upper, true); err != nil {
		return nil, err
	}
	return super, nil
}

// tupleSuper builds the super-instruction of an insert's value row.
func (g *generator) tupleSuper(values []ram.Expression) (*superInstruction, error) {
	super := newSuperInstruction(len(values))
	if err := g.encodeBound(super, values, false); err != nil {
		return nil, err
	}
	return super, nil
}

// encodeBound fills one row of a super-instruction: constants fold,
// tuple-element accesses become context copies, everything else evaluates
// through an expression slot. Undefined positions keep the row defaults.
func (g *generator) encodeBound(super *superInstruction, exprs []ram.Expression, upper bool) error {
	for pos, e := range exprs {
		if e == nil {
			continue
		}
		switch ex := e.(type) {
		case *ram.UndefValue:
			// keep default bound
		case *ram.SignedConstant:
			if upper {
				super.second[pos] = ex.Value
			} else {
				super.first[pos] = ex.Value
			}
		case *ram.StringConstant:
			v := g.symbols.Lookup(ex.Value)
			if upper {
				super.second[pos] = v
			} else {
				super.first[pos] = v
			}
		case *ram.TupleElement:
			ref := tupleRef{dst: pos, tupleID: ex.TupleID, element: ex.Element}
			if upper {
				super.tupleSecond = append(super.tupleSecond, ref)
			} else {
				super.tupleFirst = append(super.tupleFirst, ref)
			}
		default:
			n, err := g.expr(e)
			if err != nil {
				return err
			}
			ref := exprRef{dst: pos, expr: n}
			if upper {
				super.exprSecond = append(super.exprSecond, ref)
			} else {
				super.exprFirst = append(super.exprFirst, ref)
			}
		}
	}
	return nil
}

// splitQueryConditions partitions the condition of a query's outermost
// filter into view-independent and view-dependent terms. The former run
// before the query's views are created; the latter stay on the filter.
func splitQueryConditions(q *queryNode) {
	filter, ok := q.root.(*filterNode)
	if !ok {
		return
	}
	var free, dependent []node
	for _, term := range flattenConjunction(filter.cond) {
		if usesView(term) {
			dependent = append(dependent, term)
		} else {
			free = append(free, term)
		}
	}
	if len(free) == 0 {
		return
	}
	q.preConds = free
	switch len(dependent) {
	case 0:
		q.root = filter.nested
	default:
		cond := dependent[len(dependent)-1]
		for i := len(dependent) - 2; i >= 0; i-- {
			cond = &conjunctionNode{baseNode: mkBase(TypeConjunction, nil), lhs: dependent[i], rhs: cond}
		}
		filter.cond = cond
	}
}

func flattenConjunction(n node) []node {
	if conj, ok := n.(*conjunctionNode); ok {
		return append(flattenConjunction(conj.lhs), flattenConjunction(conj.rhs)...)
	}
	return []node{n}
}

// usesView reports whether a condition touches a relation view.
func usesView(n node) bool {
	switch t := n.(type) {
	case *existenceNode:
		return true
	case *conjunctionNode:
		return usesView(t.lhs) || usesView(t.rhs)
	case *negationNode:
		return usesView(t.child)
	}
	return false
}
