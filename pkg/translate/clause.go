// Package translate lowers the rewritten AST into the relational-algebra
// form: every clause becomes a query whose loop nest joins the body atoms in
// their scheduled order, and every stratum of the relation schedule becomes
// either a sequence of queries or a semi-naive fixpoint loop over delta
// relations.
package translate

import (
	"fmt"

	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/ram"
)

// clauseTranslator lowers a single clause. Body atoms claim tuple
// identifiers in order; record unpacks and aggregates claim the following
// ones. Variables resolve to the tuple element of their first occurrence.
type clauseTranslator struct {
	tu     *ast.TranslationUnit
	clause *ast.Clause

	valueIndex map[string]*ram.TupleElement
	nextTuple  int

	// aggregates maps each Aggregator node to the tuple slot its result is
	// written into.
	aggregates map[*ast.Aggregator]*ram.TupleElement

	filters []ram.Condition
	levels  []func(ram.Operation) ram.Operation
}

type unpackPending struct {
	source  ram.Expression
	arity   int
	tupleID int
}

// translateClause lowers one clause into a query inserting into target.
// When notExists is non-empty the insert is guarded by the head tuple's
// absence from that relation (the semi-naive duplicate filter).
func translateClause(tu *ast.TranslationUnit, clause *ast.Clause, target string, notExists string) ram.Statement {
	t := &clauseTranslator{
		tu:         tu,
		clause:     clause,
		valueIndex: make(map[string]*ram.TupleElement),
		aggregates: make(map[*ast.Aggregator]*ram.TupleElement),
	}

	atoms := clause.BodyAtoms()
	t.nextTuple = len(atoms)

	// Pass 1: body atoms bind variables and open scan levels.
	for i, atom := range atoms {
		t.translateAtom(atom, i)
	}

	// Pass 2: aggregates claim their levels.
	ast.ForEach[*ast.Aggregator](clause, func(agg *ast.Aggregator) {
		if _, done := t.aggregates[agg]; !done {
			t.translateAggregate(agg)
		}
	})

	// Pass 3: non-atom literals become filters.
	for _, lit := range clause.Body {
		switch l := lit.(type) {
		case *ast.Atom:
			// handled in pass 1
		case *ast.Negation:
			t.filters = append(t.filters, &ram.Negation{
				Cond: t.existenceCheck(l.Atom),
			})
		case *ast.BooleanConstraint:
			if !l.Value {
				t.filters = append(t.filters, &ram.False{})
			}
		case *ast.BinaryConstraint:
			if t.isAggregateBinding(l) {
				continue
			}
			t.filters = append(t.filters, &ram.Constraint{
				Op:  l.Op,
				LHS: t.translateExpr(l.LHS),
				RHS: t.translateExpr(l.RHS),
			})
		}
	}

	// Innermost operation: the head insert, guarded by the duplicate filter
	// in semi-naive loops.
	headValues := make([]ram.Expression, len(clause.Head.Args))
	for i, arg := range clause.Head.Args {
		headValues[i] = t.translateExpr(arg)
	}
	var inner ram.Operation = &ram.Insert{Relation: target, Values: headValues}
	if notExists != "" {
		inner = &ram.Filter{
			Condition: &ram.Negation{Cond: &ram.ExistenceCheck{
				Relation: notExists,
				Values:   cloneExpressions(headValues),
			}},
			Nested: inner,
		}
	}

	if len(t.filters) > 0 {
		inner = &ram.Filter{Condition: ram.ConjoinAll(t.filters), Nested: inner}
	}

	// Wrap the nest from the innermost level outward.
	for i := len(t.levels) - 1; i >= 0; i-- {
		inner = t.levels[i](inner)
	}

	// The outermost scan of a non-trivial nest runs in parallel.
	switch root := inner.(type) {
	case *ram.Scan:
		if len(atoms) > 1 {
			root.Parallel = true
		}
	case *ram.IndexScan:
		if len(atoms) > 1 {
			root.Parallel = true
		}
	}

	return &ram.Query{Root: inner}
}

func cloneExpressions(exprs []ram.Expression) []ram.Expression {
	out := make([]ram.Expression, len(exprs))
	for i, e := range exprs {
		out[i] = e.Clone().(ram.Expression)
	}
	return out
}

// translateAtom opens a scan or index scan level for one body atom. Bound
// positions — constants and variables bound by earlier levels — go into the
// range pattern so index selection can cover them; equalities within the
// same tuple stay as filters. Float attributes never bound index patterns:
// interpreter indices order by bit pattern, which disagrees with float
// equality around NaN and signed zero, so those constraints filter instead.
func (t *clauseTranslator) translateAtom(atom *ast.Atom, tupleID int) {
	arity := len(atom.Args)
	lower := make([]ram.Expression, arity)
	upper := make([]ram.Expression, arity)
	bounded := false
	var localFilters []ram.Condition
	var unpacks []unpackPending

	bindEqual := func(pos int, value ram.Expression) {
		element := &ram.TupleElement{TupleID: tupleID, Element: pos}
		if t.attributeType(atom.Name, pos) == "float" {
			localFilters = append(localFilters, &ram.Constraint{
				Op: ast.BinaryConstraintFEQ, LHS: element, RHS: value,
			})
			return
		}
		lower[pos] = value
		upper[pos] = value.Clone().(ram.Expression)
		bounded = true
	}

	for pos, arg := range atom.Args {
		lower[pos] = &ram.UndefValue{}
		upper[pos] = &ram.UndefValue{}
		element := &ram.TupleElement{TupleID: tupleID, Element: pos}

		switch a := arg.(type) {
		case *ast.UnnamedVariable:
			// free position
		case *ast.Variable:
			if prior, ok := t.valueIndex[a.Name]; ok {
				if prior.TupleID == tupleID {
					localFilters = append(localFilters, &ram.Constraint{
						Op: ast.BinaryConstraintEQ, LHS: element, RHS: prior.Clone().(ram.Expression),
					})
				} else {
					bindEqual(pos, prior.Clone().(ram.Expression))
				}
			} else {
				t.valueIndex[a.Name] = element
			}
		case *ast.RecordInit:
			// Bind the position, then unpack it into a fresh tuple whose
			// elements carry the pattern.
			unpackID := t.nextTuple
			t.nextTuple++
			unpacks = append(unpacks, unpackPending{
				source: element, arity: len(a.Args), tupleID: unpackID,
			})
			t.bindRecordPattern(a, unpackID)
		default:
			bindEqual(pos, t.translateExpr(arg))
		}
	}

	pattern := ram.RangePattern{Lower: lower, Upper: upper}
	relation := atom.Name.String()
	t.levels = append(t.levels, func(nested ram.Operation) ram.Operation {
		if len(localFilters) > 0 {
			nested = &ram.Filter{Condition: ram.ConjoinAll(localFilters), Nested: nested}
		}
		for i := len(unpacks) - 1; i >= 0; i-- {
			u := unpacks[i]
			nested = &ram.UnpackRecord{
				Expression: u.source.Clone().(ram.Expression),
				Arity:      u.arity,
				TupleID:    u.tupleID,
				Nested:     nested,
			}
		}
		if bounded {
			return &ram.IndexScan{Relation: relation, TupleID: tupleID, Pattern: pattern, Nested: nested}
		}
		return &ram.Scan{Relation: relation, TupleID: tupleID, Nested: nested}
	})
}

// bindRecordPattern binds the variables of a record pattern to the elements
// of the unpacked tuple. Nested records unpack recursively.
func (t *clauseTranslator) bindRecordPattern(rec *ast.RecordInit, tupleID int) {
	for pos, arg := range rec.Args {
		element := &ram.TupleElement{TupleID: tupleID, Element: pos}
		switch a := arg.(type) {
		case *ast.Variable:
			if prior, ok := t.valueIndex[a.Name]; ok {
				t.filters = append(t.filters, &ram.Constraint{
					Op: ast.BinaryConstraintEQ, LHS: element, RHS: prior.Clone().(ram.Expression),
				})
			} else {
				t.valueIndex[a.Name] = element
			}
		case *ast.UnnamedVariable:
			// free position
		case *ast.RecordInit:
			unpackID := t.nextTuple
			t.nextTuple++
			inner := a
			t.levels = append(t.levels, func(nested ram.Operation) ram.Operation {
				return &ram.UnpackRecord{
					Expression: element.Clone().(ram.Expression),
					Arity:      len(inner.Args),
					TupleID:    unpackID,
					Nested:     nested,
				}
			})
			t.bindRecordPattern(a, unpackID)
		default:
			t.filters = append(t.filters, &ram.Constraint{
				Op: ast.BinaryConstraintEQ, LHS: element, RHS: t.translateExpr(arg),
			})
		}
	}
}

// isAggregateBinding reports whether the constraint is `v = <aggregate>` —
// the binding form the aggregate levels consume directly.
func (t *clauseTranslator) isAggregateBinding(bc *ast.BinaryConstraint) bool {
	if !bc.Op.IsEquality() {
		return false
	}
	if _, ok := bc.LHS.(*ast.Variable); ok {
		if _, ok := bc.RHS.(*ast.Aggregator); ok {
			return true
		}
	}
	if _, ok := bc.RHS.(*ast.Variable); ok {
		if _, ok := bc.LHS.(*ast.Aggregator); ok {
			return true
		}
	}
	return false
}

// translateAggregate opens an aggregate level. The aggregate body's atom
// supplies the iteration source; its remaining literals become the
// aggregate condition. The result lands in element 0 of the aggregate's
// tuple; a binding constraint `v = agg` binds v to that slot.
func (t *clauseTranslator) translateAggregate(agg *ast.Aggregator) {
	tupleID := t.nextTuple
	t.nextTuple++
	result := &ram.TupleElement{TupleID: tupleID, Element: 0}
	t.aggregates[agg] = result

	var source *ast.Atom
	for _, lit := range agg.Body {
		if atom, ok := lit.(*ast.Atom); ok && source == nil {
			source = atom
		}
	}
	if source == nil {
		t.tu.Report.AddError(
			fmt.Sprintf("aggregate %s has no source atom", agg), ast.SrcLoc{})
		return
	}

	// Bind the source atom's variables within the aggregate scope.
	var conds []ram.Condition
	for pos, arg := range source.Args {
		element := &ram.TupleElement{TupleID: tupleID, Element: pos}
		switch a := arg.(type) {
		case *ast.UnnamedVariable:
		case *ast.Variable:
			if prior, ok := t.valueIndex[a.Name]; ok {
				conds = append(conds, &ram.Constraint{
					Op: ast.BinaryConstraintEQ, LHS: element, RHS: prior.Clone().(ram.Expression),
				})
			} else {
				t.valueIndex[a.Name] = element
			}
		default:
			conds = append(conds, &ram.Constraint{
				Op: ast.BinaryConstraintEQ, LHS: element, RHS: t.translateExpr(arg),
			})
		}
	}
	for _, lit := range agg.Body {
		switch l := lit.(type) {
		case *ast.Atom:
			if l != source {
				conds = append(conds, t.existenceCheck(l))
			}
		case *ast.Negation:
			conds = append(conds, &ram.Negation{Cond: t.existenceCheck(l.Atom)})
		case *ast.BinaryConstraint:
			conds = append(conds, &ram.Constraint{
				Op: l.Op, LHS: t.translateExpr(l.LHS), RHS: t.translateExpr(l.RHS),
			})
		}
	}

	var target ram.Expression = &ram.SignedConstant{Value: 0}
	if agg.Target != nil {
		target = t.translateExpr(agg.Target)
	}

	relation := source.Name.String()
	t.levels = append(t.levels, func(nested ram.Operation) ram.Operation {
		return &ram.Aggregate{
			Op:        agg.Op,
			Relation:  relation,
			TupleID:   tupleID,
			Target:    target,
			Condition: ram.ConjoinAll(conds),
			Nested:    nested,
		}
	})

	// Bind the `v = agg` variable, if any, to the result slot.
	ast.ForEach[*ast.BinaryConstraint](t.clause, func(bc *ast.BinaryConstraint) {
		if !bc.Op.IsEquality() {
			return
		}
		if v, ok := bc.LHS.(*ast.Variable); ok && bc.RHS == ast.Argument(agg) {
			if _, bound := t.valueIndex[v.Name]; !bound {
				t.valueIndex[v.Name] = result
			} else {
				t.filters = append(t.filters, &ram.Constraint{
					Op: ast.BinaryConstraintEQ, LHS: result, RHS: t.valueIndex[v.Name].Clone().(ram.Expression),
				})
			}
		}
		if v, ok := bc.RHS.(*ast.Variable); ok && bc.LHS == ast.Argument(agg) {
			if _, bound := t.valueIndex[v.Name]; !bound {
				t.valueIndex[v.Name] = result
			} else {
				t.filters = append(t.filters, &ram.Constraint{
					Op: ast.BinaryConstraintEQ, LHS: result, RHS: t.valueIndex[v.Name].Clone().(ram.Expression),
				})
			}
		}
	})
}

// existenceCheck lowers an atom into an existence check over its bound
// argument values; unbound positions become wildcards.
func (t *clauseTranslator) existenceCheck(atom *ast.Atom) ram.Condition {
	values := make([]ram.Expression, len(atom.Args))
	for i, arg := range atom.Args {
		switch a := arg.(type) {
		case *ast.UnnamedVariable:
			values[i] = &ram.UndefValue{}
		case *ast.Variable:
			if prior, ok := t.valueIndex[a.Name]; ok {
				values[i] = prior.Clone().(ram.Expression)
			} else {
				values[i] = &ram.UndefValue{}
			}
		default:
			values[i] = t.translateExpr(arg)
		}
	}
	return &ram.ExistenceCheck{Relation: atom.Name.String(), Values: values}
}

// translateExpr lowers an argument in value position.
func (t *clauseTranslator) translateExpr(arg ast.Argument) ram.Expression {
	switch a := arg.(type) {
	case *ast.Variable:
		if element, ok := t.valueIndex[a.Name]; ok {
			return element.Clone().(ram.Expression)
		}
		t.tu.Report.AddError(
			fmt.Sprintf("ungrounded variable %s in clause %s", a.Name, t.clause), ast.SrcLoc{})
		return &ram.UndefValue{}
	case *ast.UnnamedVariable:
		return &ram.UndefValue{}
	case *ast.NumericConstant:
		return &ram.SignedConstant{Value: ram.Domain(a.Value)}
	case *ast.UnsignedConstant:
		return &ram.SignedConstant{Value: ram.Domain(int32(a.Value))}
	case *ast.FloatConstant:
		return &ram.SignedConstant{Value: ram.FloatToDomain(a.Value)}
	case *ast.StringConstant:
		return &ram.StringConstant{Value: a.Value}
	case *ast.NilConstant:
		return &ram.SignedConstant{Value: 0}
	case *ast.TypeCast:
		return t.translateExpr(a.Value)
	case *ast.RecordInit:
		args := make([]ram.Expression, len(a.Args))
		for i, cur := range a.Args {
			args[i] = t.translateExpr(cur)
		}
		return &ram.PackRecord{Args: args}
	case *ast.IntrinsicFunctor:
		args := make([]ram.Expression, len(a.Args))
		for i, cur := range a.Args {
			args[i] = t.translateExpr(cur)
		}
		return &ram.IntrinsicOperator{Op: a.Op, Args: args}
	case *ast.UserDefinedFunctor:
		args := make([]ram.Expression, len(a.Args))
		for i, cur := range a.Args {
			args[i] = t.translateExpr(cur)
		}
		return &ram.UserDefinedOperator{Name: a.Name, Args: args}
	case *ast.Aggregator:
		if element, ok := t.aggregates[a]; ok {
			return element.Clone().(ram.Expression)
		}
		t.tu.Report.AddError(
			fmt.Sprintf("aggregate in unsupported position in clause %s", t.clause), ast.SrcLoc{})
		return &ram.UndefValue{}
	}
	t.tu.Report.AddError(
		fmt.Sprintf("cannot lower argument %s in clause %s", arg, t.clause), ast.SrcLoc{})
	return &ram.UndefValue{}
}

// attributeType resolves the declared type of one attribute of a relation,
// looking through the delta and new prefixes of the fixpoint auxiliaries.
func (t *clauseTranslator) attributeType(name ast.QualifiedName, pos int) string {
	rel := t.tu.Program.Relation(name)
	if rel == nil {
		base := name.String()
		for _, prefix := range []string{ast.DeltaPrefix, ast.NewPrefix} {
			if len(base) > len(prefix) && base[:len(prefix)] == prefix {
				rel = t.tu.Program.Relation(ast.ParseQualifiedName(base[len(prefix):]))
				break
			}
		}
	}
	if rel == nil || pos >= len(rel.Attributes) {
		return "number"
	}
	return rel.Attributes[pos].TypeName.String()
}
