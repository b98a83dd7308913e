package interp

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gitrdm/godatalog/internal/parallel"
	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/ram"
)

// UserFunctor is a callable bound to a user-defined functor name.
type UserFunctor func(args []ram.Domain) ram.Domain

// Options configures an engine.
type Options struct {
	// Jobs is the worker count for parallel regions; values below one mean
	// one worker.
	Jobs int
	// Profile enables per-operation frequency counters.
	Profile bool
	// IO handles fact transfer; nil defaults to an in-memory adapter.
	IO IOAdapter
	// Functors resolves user-defined functor names to callables.
	Functors map[string]UserFunctor
	// Log receives profile and timing events; nil uses the standard logger.
	Log *logrus.Logger
}

// Engine executes generated code against indexed relations. The dispatch
// loop is a dense switch over the flattened node graph; no operation yields
// except at parallel boundaries.
type Engine struct {
	code     *Code
	symbols  *SymbolTable
	records  *RecordTable
	opts     Options
	pool     *parallel.Pool
	io       IOAdapter
	log      *logrus.Logger
	functors map[string]UserFunctor

	ctx context.Context

	autoCounter   int64
	iteration     int64
	returnCounter int64
	frequencies   map[string]*int64
}

// NewEngine wires generated code to its runtime tables.
func NewEngine(code *Code, symbols *SymbolTable, records *RecordTable, opts Options) *Engine {
	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}
	io := opts.IO
	if io == nil {
		io = NewMemoryIO()
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		code:        code,
		symbols:     symbols,
		records:     records,
		opts:        opts,
		pool:        parallel.NewPool(jobs),
		io:          io,
		log:         log,
		functors:    opts.Functors,
		frequencies: make(map[string]*int64),
	}
}

// Symbols returns the engine's symbol table.
func (e *Engine) Symbols() *SymbolTable { return e.symbols }

// Records returns the engine's record table.
func (e *Engine) Records() *RecordTable { return e.records }

// Relation returns a live relation by name, or nil.
func (e *Engine) Relation(name string) Relation { return e.code.Handle(name) }

// Run executes the main program. The context is checked only at the start
// of each loop iteration; parallel regions do not observe it.
func (e *Engine) Run(ctx context.Context) error {
	e.ctx = ctx
	defer e.pool.Shutdown()
	if _, err := e.execute(e.code.Main, NewFrame()); err != nil {
		return err
	}
	if e.opts.Profile {
		e.emitFrequencies()
	}
	return nil
}

// ExecuteSubroutine runs a named subroutine with the given argument frame,
// returning the values it accumulated.
func (e *Engine) ExecuteSubroutine(ctx context.Context, name string, args []ram.Domain) ([]ram.Domain, error) {
	sub, ok := e.code.Subroutines[name]
	if !ok {
		return nil, fmt.Errorf("interp: unknown subroutine %s", name)
	}
	e.ctx = ctx
	frame := NewFrame()
	frame.args = args
	var returns []ram.Domain
	frame.returns = &returns
	atomic.AddInt64(&e.returnCounter, 1)
	if _, err := e.execute(sub, frame); err != nil {
		return nil, err
	}
	return returns, nil
}

func (e *Engine) count(key string) {
	if !e.opts.Profile {
		return
	}
	counter, ok := e.frequencies[key]
	if !ok {
		counter = new(int64)
		e.frequencies[key] = counter
	}
	atomic.AddInt64(counter, 1)
}

func (e *Engine) emitFrequencies() {
	keys := make([]string, 0, len(e.frequencies))
	for k := range e.frequencies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.log.Infof("@frequency-atom;%s;0;%s;0;%s;0;%d", k, k, k, atomic.LoadInt64(e.frequencies[k]))
	}
}

// execute runs one statement or operation node. The boolean result is the
// continue signal: false propagates outward until a loop absorbs it.
func (e *Engine) execute(n node, frame *Frame) (bool, error) {
	switch t := n.(type) {
	case *sequenceNode:
		for _, child := range t.children {
			cont, err := e.execute(child, frame)
			if err != nil || !cont {
				return cont, err
			}
		}
		return true, nil

	case *parallelNode:
		if len(t.children) == 1 {
			return e.execute(t.children[0], frame)
		}
		// Fork-join: side effects of the branches become visible when the
		// region joins.
		g, _ := errgroup.WithContext(e.ctx)
		cont := int32(1)
		for _, child := range t.children {
			child := child
			worker := frame.forWorker()
			g.Go(func() error {
				c, err := e.execute(child, worker)
				if !c {
					atomic.StoreInt32(&cont, 0)
				}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return false, err
		}
		return atomic.LoadInt32(&cont) == 1, nil

	case *loopNode:
		for {
			if err := e.ctx.Err(); err != nil {
				return false, err
			}
			atomic.AddInt64(&e.iteration, 1)
			cont, err := e.execute(t.body, frame)
			if err != nil {
				return false, err
			}
			if !cont {
				return true, nil
			}
		}

	case *exitNode:
		if e.evalCond(t.cond, frame) {
			return false, nil
		}
		return true, nil

	case *queryNode:
		e.count(t.text)
		// View-independent predicates run before any view is created.
		for _, cond := range t.preConds {
			if !e.evalCond(cond, frame) {
				return true, nil
			}
		}
		frame.createViews(t.views)
		_, err := e.executeOp(t.root, frame)
		return true, err

	case *clearNode:
		t.rel.rel.Purge()
		return true, nil

	case *swapNode:
		t.first.rel.Swap(t.second.rel)
		return true, nil

	case *extendNode:
		t.target.rel.Extend(t.source.rel)
		return true, nil

	case *ioNode:
		return true, e.executeIO(t)

	case *logSizeNode:
		e.log.Infof("@logsize;%s;%d", t.message, t.rel.rel.Size())
		return true, nil

	case *logTimerNode:
		start := time.Now()
		cont, err := e.execute(t.body, frame)
		e.log.Debugf("@runtime;%s;%s", t.message, time.Since(start))
		return cont, err

	case *debugInfoNode:
		return e.execute(t.body, frame)

	case *callNode:
		sub, ok := e.code.Subroutines[t.name]
		if !ok {
			return false, fmt.Errorf("interp: unknown subroutine %s", t.name)
		}
		return e.execute(sub, frame)
	}
	return e.executeOp(n, frame)
}

// executeOp runs one operation node of a query's loop nest.
func (e *Engine) executeOp(n node, frame *Frame) (bool, error) {
	switch t := n.(type) {
	case *scanNode:
		if t.parallel {
			return e.parallelScan(t.rel, frame, func(tuple Tuple, worker *Frame) (bool, error) {
				worker.bind(t.tupleID, tuple)
				return e.executeOp(t.nested, worker)
			})
		}
		cont := true
		var err error
		t.rel.rel.Scan(func(tuple Tuple) bool {
			frame.bind(t.tupleID, tuple)
			cont, err = e.executeOp(t.nested, frame)
			return cont && err == nil
		})
		return cont, err

	case *indexScanNode:
		low, high, ok, err := e.materializeRange(t.super, frame)
		if err != nil || !ok {
			return true, err
		}
		view := frame.view(t.viewID)
		if t.parallel {
			// Workers re-create their own views; the range partition comes
			// from a snapshot of the matching tuples.
			var matched []Tuple
			view.Range(low, high, func(tuple Tuple) bool {
				matched = append(matched, tuple)
				return true
			})
			return e.parallelChunks(chunkTuples(matched, e.pool.Workers()), frame,
				func(tuple Tuple, worker *Frame) (bool, error) {
					worker.bind(t.tupleID, tuple)
					return e.executeOp(t.nested, worker)
				})
		}
		cont := true
		view.Range(low, high, func(tuple Tuple) bool {
			frame.bind(t.tupleID, tuple)
			var nerr error
			cont, nerr = e.executeOp(t.nested, frame)
			if nerr != nil {
				err = nerr
				return false
			}
			return cont
		})
		return cont, err

	case *ifExistsNode:
		cont := true
		var err error
		t.rel.rel.Scan(func(tuple Tuple) bool {
			frame.bind(t.tupleID, tuple)
			if !e.evalCond(t.cond, frame) {
				return true
			}
			cont, err = e.executeOp(t.nested, frame)
			return false
		})
		return cont, err

	case *indexIfExistsNode:
		low, high, ok, err := e.materializeRange(t.super, frame)
		if err != nil || !ok {
			return true, err
		}
		cont := true
		frame.view(t.viewID).Range(low, high, func(tuple Tuple) bool {
			frame.bind(t.tupleID, tuple)
			if !e.evalCond(t.cond, frame) {
				return true
			}
			cont, err = e.executeOp(t.nested, frame)
			return false
		})
		return cont, err

	case *aggregateNode:
		return e.aggregate(t.op, t.rel, t.tupleID, t.target, t.cond, t.nested, frame, nil, nil, -1)

	case *indexAggregateNode:
		low, high, ok, err := e.materializeRange(t.super, frame)
		if err != nil {
			return true, err
		}
		if !ok {
			return true, nil
		}
		return e.aggregate(t.op, t.rel, t.tupleID, t.target, t.cond, t.nested, frame, low, high, t.viewID)

	case *unpackRecordNode:
		id, ok := e.evalExpr(t.expr, frame)
		if !ok || id == NilRecord {
			return true, nil
		}
		rec := e.records.Unpack(id, t.arity)
		if rec == nil {
			return true, nil
		}
		frame.bind(t.tupleID, rec)
		return e.executeOp(t.nested, frame)

	case *nestedIntrinsicNode:
		return e.nestedIntrinsic(t, frame)

	case *filterNode:
		if !e.evalCond(t.cond, frame) {
			return true, nil
		}
		return e.executeOp(t.nested, frame)

	case *breakNode:
		if e.evalCond(t.cond, frame) {
			return false, nil
		}
		return e.executeOp(t.nested, frame)

	case *insertNode:
		tuple, ok, err := e.materializeTuple(t.super, frame)
		if err != nil || !ok {
			// Tuples carrying an evaluation error are skipped.
			return true, err
		}
		t.rel.rel.Insert(tuple)
		return true, nil

	case *guardedInsertNode:
		if !e.evalCond(t.guard, frame) {
			return true, nil
		}
		tuple, ok, err := e.materializeTuple(t.super, frame)
		if err != nil || !ok {
			return true, err
		}
		t.rel.rel.Insert(tuple)
		return true, nil

	case *subroutineReturnNode:
		if frame.returns == nil {
			return true, nil
		}
		for _, v := range t.values {
			value, ok := e.evalExpr(v, frame)
			if !ok {
				value = 0
			}
			*frame.returns = append(*frame.returns, value)
		}
		return true, nil
	}
	return false, fmt.Errorf("interp: cannot execute node %T", n)
}

// parallelScan partitions a full scan across the pool's workers.
func (e *Engine) parallelScan(rel *relationHandle, frame *Frame,
	visit func(Tuple, *Frame) (bool, error)) (bool, error) {
	return e.parallelChunks(rel.rel.Partition(e.pool.Workers()), frame, visit)
}

func chunkTuples(tuples []Tuple, n int) [][]Tuple {
	if len(tuples) == 0 {
		return nil
	}
	if n <= 1 {
		return [][]Tuple{tuples}
	}
	chunk := (len(tuples) + n - 1) / n
	var out [][]Tuple
	for start := 0; start < len(tuples); start += chunk {
		end := start + chunk
		if end > len(tuples) {
			end = len(tuples)
		}
		out = append(out, tuples[start:end])
	}
	return out
}

// parallelChunks runs one chunk per task; every worker allocates its own
// views before touching any relation.
func (e *Engine) parallelChunks(chunks [][]Tuple, frame *Frame,
	visit func(Tuple, *Frame) (bool, error)) (bool, error) {
	if len(chunks) == 0 {
		return true, nil
	}
	if len(chunks) == 1 {
		worker := frame.forWorker()
		for _, tuple := range chunks[0] {
			cont, err := visit(tuple, worker)
			if err != nil || !cont {
				return cont, err
			}
		}
		return true, nil
	}
	cont := int32(1)
	var errOnce sync.Once
	var firstErr error
	tasks := make([]func(), len(chunks))
	for i, chunk := range chunks {
		chunk := chunk
		worker := frame.forWorker()
		tasks[i] = func() {
			for _, tuple := range chunk {
				if atomic.LoadInt32(&cont) == 0 {
					return
				}
				c, err := visit(tuple, worker)
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					atomic.StoreInt32(&cont, 0)
					return
				}
				if !c {
					atomic.StoreInt32(&cont, 0)
					return
				}
			}
		}
	}
	e.pool.Run(e.ctx, tasks)
	if firstErr != nil {
		return false, firstErr
	}
	return atomic.LoadInt32(&cont) == 1, nil
}

// aggregate folds the target expression over the qualifying tuples and runs
// the nested operation exactly once with the result bound at element 0.
func (e *Engine) aggregate(op ast.AggregateOp, rel *relationHandle, tupleID int,
	target, cond, nested node, frame *Frame, low, high Tuple, viewID int) (bool, error) {

	acc := newAccumulator(op)
	visit := func(tuple Tuple) bool {
		frame.bind(tupleID, tuple)
		if cond != nil && !e.evalCond(cond, frame) {
			return true
		}
		value := ram.Domain(0)
		if target != nil {
			v, ok := e.evalExpr(target, frame)
			if !ok {
				return true
			}
			value = v
		}
		acc.add(value)
		return true
	}
	if viewID >= 0 {
		frame.view(viewID).Range(low, high, visit)
	} else {
		rel.rel.Scan(visit)
	}

	frame.bind(tupleID, Tuple{acc.result()})
	return e.executeOp(nested, frame)
}

func (e *Engine) nestedIntrinsic(t *nestedIntrinsicNode, frame *Frame) (bool, error) {
	values := make([]ram.Domain, len(t.args))
	for i, arg := range t.args {
		v, ok := e.evalExpr(arg, frame)
		if !ok {
			return true, nil
		}
		values[i] = v
	}
	for it := newRangeIterator(t.op, values); it.next(); {
		frame.bind(t.tupleID, Tuple{it.value()})
		cont, err := e.executeOp(t.nested, frame)
		if err != nil || !cont {
			return cont, err
		}
	}
	return true, nil
}

func (e *Engine) executeIO(t *ioNode) error {
	switch t.kind {
	case ram.IOLoad:
		rows, err := e.io.LoadFacts(t.rel.description.Name, t.params)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if len(row) != t.rel.description.Arity {
				return fmt.Errorf("interp: fact arity mismatch for %s", t.rel.description.Name)
			}
			tuple := make(Tuple, len(row))
			for i, v := range row {
				d, err := encodeValue(e.symbols, attributeType(t.rel.description, i), v)
				if err != nil {
					return err
				}
				tuple[i] = d
			}
			t.rel.rel.Insert(tuple)
		}
		return nil
	case ram.IOStore:
		var rows [][]any
		t.rel.rel.Scan(func(tuple Tuple) bool {
			row := make([]any, len(tuple))
			for i, d := range tuple {
				row[i] = decodeValue(e.symbols, attributeType(t.rel.description, i), d)
			}
			rows = append(rows, row)
			return true
		})
		return e.io.StoreFacts(t.rel.description.Name, t.params, rows)
	default:
		return e.io.PrintSize(t.rel.description.Name, t.rel.rel.Size())
	}
}

func attributeType(rel *ram.Relation, pos int) string {
	if pos < len(rel.AttributeTypes) {
		return rel.AttributeTypes[pos]
	}
	return "number"
}

// evalCond evaluates a condition node.
func (e *Engine) evalCond(n node, frame *Frame) bool {
	switch t := n.(type) {
	case *trueNode:
		return true
	case *falseNode:
		return false
	case *conjunctionNode:
		return e.evalCond(t.lhs, frame) && e.evalCond(t.rhs, frame)
	case *negationNode:
		return !e.evalCond(t.child, frame)
	case *emptinessNode:
		return t.rel.rel.Size() == 0
	case *existenceNode:
		return e.evalExistence(t, frame)
	case *constraintNode:
		lhs, okL := e.evalExpr(t.lhs, frame)
		rhs, okR := e.evalExpr(t.rhs, frame)
		if !okL || !okR {
			return false
		}
		return evalConstraint(t.op, lhs, rhs, e.symbols)
	}
	return false
}

func (e *Engine) evalExistence(t *existenceNode, frame *Frame) bool {
	low, high, ok, err := e.materializeRange(t.super, frame)
	if err != nil || !ok {
		return false
	}
	view := frame.view(t.viewID)
	if t.total {
		return view.Contains(low)
	}
	return view.ContainsRange(low, high)
}

// materializeRange fills the low and high rows of a super-instruction from
// its folded constants, context copies and expression slots.
func (e *Engine) materializeRange(super *superInstruction, frame *Frame) (Tuple, Tuple, bool, error) {
	low := make(Tuple, super.arity)
	high := make(Tuple, super.arity)
	copy(low, super.first)
	copy(high, super.second)
	for _, ref := range super.tupleFirst {
		low[ref.dst] = frame.tuple(ref.tupleID)[ref.element]
	}
	for _, ref := range super.tupleSecond {
		high[ref.dst] = frame.tuple(ref.tupleID)[ref.element]
	}
	for _, ref := range super.exprFirst {
		v, ok := e.evalExpr(ref.expr, frame)
		if !ok {
			return nil, nil, false, nil
		}
		low[ref.dst] = v
	}
	for _, ref := range super.exprSecond {
		v, ok := e.evalExpr(ref.expr, frame)
		if !ok {
			return nil, nil, false, nil
		}
		high[ref.dst] = v
	}
	return low, high, true, nil
}

// materializeTuple fills an insert row; an evaluation error anywhere in the
// row suppresses the insert.
func (e *Engine) materializeTuple(super *superInstruction, frame *Frame) (Tuple, bool, error) {
	tuple := make(Tuple, super.arity)
	copy(tuple, super.first)
	for _, ref := range super.tupleFirst {
		tuple[ref.dst] = frame.tuple(ref.tupleID)[ref.element]
	}
	for _, ref := range super.exprFirst {
		v, ok := e.evalExpr(ref.expr, frame)
		if !ok {
			return nil, false, nil
		}
		tuple[ref.dst] = v
	}
	return tuple, true, nil
}

// evalExpr evaluates an expression node; ok reports whether the value is
// defined. Undefined values propagate without aborting the dispatch loop.
func (e *Engine) evalExpr(n node, frame *Frame) (ram.Domain, bool) {
	switch t := n.(type) {
	case *constantNode:
		return t.value, true
	case *tupleElementNode:
		tuple := frame.tuple(t.tupleID)
		if tuple == nil || t.element >= len(tuple) {
			return 0, false
		}
		return tuple[t.element], true
	case *autoIncrementNode:
		return ram.Domain(atomic.AddInt64(&e.autoCounter, 1) - 1), true
	case *intrinsicNode:
		args := make([]ram.Domain, len(t.args))
		for i, arg := range t.args {
			v, ok := e.evalExpr(arg, frame)
			if !ok {
				return 0, false
			}
			args[i] = v
		}
		return evalIntrinsic(t.op, args, e.symbols)
	case *userOpNode:
		fn, ok := e.functors[t.name]
		if !ok {
			return 0, false
		}
		args := make([]ram.Domain, len(t.args))
		for i, arg := range t.args {
			v, okArg := e.evalExpr(arg, frame)
			if !okArg {
				return 0, false
			}
			args[i] = v
		}
		return fn(args), true
	case *packRecordNode:
		args := make(Tuple, len(t.args))
		for i, arg := range t.args {
			v, ok := e.evalExpr(arg, frame)
			if !ok {
				return 0, false
			}
			args[i] = v
		}
		return e.records.Pack(args), true
	case *subroutineArgNode:
		if t.index >= len(frame.args) {
			return 0, false
		}
		return frame.args[t.index], true
	case *relationSizeNode:
		return ram.Domain(t.rel.rel.Size()), true
	}
	return 0, false
}
