package translate

import (
	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/ast/analysis"
	"github.com/gitrdm/godatalog/pkg/ram"
	"github.com/gitrdm/godatalog/pkg/sips"
)

// Unit lowers a rewritten translation unit into a RAM program following the
// relation schedule: non-recursive strata become straight sequences of
// queries, recursive strata become semi-naive fixpoint loops over delta and
// new relations.
func Unit(tu *ast.TranslationUnit) *ram.Program {
	details := analysis.DetailsOf(tu)
	schedule := analysis.ScheduleOf(tu)
	ioTypes := analysis.IOTypesOf(tu)
	recursive := analysis.RecursiveOf(tu)

	prog := ram.NewProgram()
	for _, rel := range tu.Program.Relations {
		prog.Relations[rel.Name.String()] = makeRelation(rel, ioTypes)
	}

	var main []ram.Statement
	for _, step := range schedule.Steps() {
		var stratum []ram.Statement

		// Load declared inputs of this stratum before computing it.
		for _, rel := range step.Computed {
			if ioTypes.IsInput(rel) {
				stratum = append(stratum, &ram.IO{
					Kind: ram.IOLoad, Relation: rel.Name.String(),
					Params: directiveParams(tu, rel.Name, ast.DirectiveInput),
				})
			}
		}

		if step.Recursive {
			stratum = append(stratum, recursiveStratum(tu, step, details, recursive, prog)...)
		} else {
			for _, rel := range step.Computed {
				for _, clause := range details.Clauses(rel.Name) {
					stratum = append(stratum, withDebugInfo(clause,
						translateClause(tu, scheduleClause(tu, clause), rel.Name.String(), "")))
				}
			}
		}

		// Emit the stratum's results and release expired storage.
		for _, rel := range step.Computed {
			if ioTypes.IsOutput(rel) {
				stratum = append(stratum, &ram.IO{
					Kind: ram.IOStore, Relation: rel.Name.String(),
					Params: directiveParams(tu, rel.Name, ast.DirectiveOutput),
				})
			}
			if ioTypes.IsPrintSize(rel) {
				stratum = append(stratum, &ram.IO{
					Kind: ram.IOPrintSize, Relation: rel.Name.String(),
				})
			}
		}
		for _, rel := range step.Expired {
			stratum = append(stratum, &ram.Clear{Relation: rel.Name.String()})
		}

		main = append(main, &ram.LogTimer{
			Message: stratumMessage(step),
			Body:    &ram.Sequence{Statements: stratum},
		})
	}

	prog.Main = &ram.Sequence{Statements: main}
	return prog
}

func makeRelation(rel *ast.Relation, ioTypes *analysis.IOType) *ram.Relation {
	attrs := make([]string, rel.Arity())
	types := make([]string, rel.Arity())
	for i, a := range rel.Attributes {
		attrs[i] = a.Name
		types[i] = a.TypeName.String()
	}
	return &ram.Relation{
		Name:           rel.Name.String(),
		Arity:          rel.Arity(),
		Attributes:     attrs,
		AttributeTypes: types,
		Representation: rel.Representation,
		LimitSize:      ioTypes.LimitSize(rel),
	}
}

func directiveParams(tu *ast.TranslationUnit, name ast.QualifiedName, kind ast.DirectiveKind) map[string]string {
	for _, dir := range tu.Program.DirectivesFor(name) {
		if dir.Kind == kind {
			params := make(map[string]string, len(dir.Params))
			for k, v := range dir.Params {
				params[k] = v
			}
			return params
		}
	}
	return map[string]string{}
}

func withDebugInfo(clause *ast.Clause, stmt ram.Statement) ram.Statement {
	return &ram.DebugInfo{Message: clause.String(), Body: stmt}
}

func stratumMessage(step analysis.ScheduleStep) string {
	if len(step.Computed) == 0 {
		return "stratum"
	}
	return "stratum " + step.Computed[0].Name.String()
}

// recursiveStratum builds the semi-naive evaluation of one recursive
// stratum:
//
//	seed the stable relations from their non-recursive clauses
//	copy each relation into its delta
//	loop {
//	  derive the versioned rules into the new relations
//	  exit when every new relation is empty
//	  merge new into stable, swap delta and new, clear new
//	}
func recursiveStratum(tu *ast.TranslationUnit, step analysis.ScheduleStep,
	details *analysis.RelationDetailCache, recursive *analysis.RecursiveClauses,
	prog *ram.Program) []ram.Statement {

	stratum := make(map[string]bool, len(step.Computed))
	for _, rel := range step.Computed {
		stratum[rel.Name.String()] = true
	}

	var out []ram.Statement

	// Auxiliary relations for the fixpoint.
	for _, rel := range step.Computed {
		base := prog.Relations[rel.Name.String()]
		for _, aux := range []string{deltaOf(rel.Name), newOf(rel.Name)} {
			prog.Relations[aux] = &ram.Relation{
				Name: aux, Arity: base.Arity,
				Attributes: base.Attributes, AttributeTypes: base.AttributeTypes,
				Representation: base.Representation,
			}
		}
	}

	// Seed: non-recursive clauses populate the stable relations.
	for _, rel := range step.Computed {
		for _, clause := range details.Clauses(rel.Name) {
			if recursive.Recursive(clause) {
				continue
			}
			out = append(out, withDebugInfo(clause,
				translateClause(tu, clause, rel.Name.String(), "")))
		}
	}

	// Initial deltas: everything derived so far.
	for _, rel := range step.Computed {
		out = append(out, copyRelation(rel.Name.String(), deltaOf(rel.Name), prog))
	}

	// Loop body: versioned recursive rules into the new relations.
	var body []ram.Statement
	for _, rel := range step.Computed {
		for _, clause := range details.Clauses(rel.Name) {
			if !recursive.Recursive(clause) {
				continue
			}
			versions := clauseVersions(clause, stratum)
			orders := plannedOrders(clause, len(versions))
			for v, versioned := range versions {
				toTranslate := versioned
				if order, ok := orders[v]; ok {
					toTranslate = ast.ReorderAtoms(versioned, order)
				} else {
					toTranslate = scheduleClause(tu, versioned)
				}
				body = append(body, withDebugInfo(clause,
					translateClause(tu, toTranslate, newOf(rel.Name), rel.Name.String())))
			}
		}
	}

	// Exit when no new tuples were derived anywhere in the stratum.
	var exitConds []ram.Condition
	for _, rel := range step.Computed {
		exitConds = append(exitConds, &ram.EmptinessCheck{Relation: newOf(rel.Name)})
	}
	body = append(body, &ram.Exit{Condition: ram.ConjoinAll(exitConds)})

	// Merge, swap, clear.
	for _, rel := range step.Computed {
		body = append(body, copyRelation(newOf(rel.Name), rel.Name.String(), prog))
		body = append(body, &ram.Swap{First: deltaOf(rel.Name), Second: newOf(rel.Name)})
		body = append(body, &ram.Clear{Relation: newOf(rel.Name)})
	}

	out = append(out, &ram.Loop{Body: &ram.Sequence{Statements: body}})

	// The auxiliary relations are dead after the fixpoint.
	for _, rel := range step.Computed {
		out = append(out, &ram.Clear{Relation: deltaOf(rel.Name)})
		out = append(out, &ram.Clear{Relation: newOf(rel.Name)})
	}
	return out
}

func deltaOf(name ast.QualifiedName) string { return ast.DeltaName(name).String() }

func newOf(name ast.QualifiedName) string { return ast.NewName(name).String() }

// copyRelation scans src inserting every tuple into dst. Equivalence
// relations extend instead, folding the source partitioning in.
func copyRelation(src, dst string, prog *ram.Program) ram.Statement {
	rel := prog.Relations[src]
	if rel.Representation == ast.RepresentationEqRel {
		return &ram.Extend{Target: dst, Source: src}
	}
	values := make([]ram.Expression, rel.Arity)
	for i := 0; i < rel.Arity; i++ {
		values[i] = &ram.TupleElement{TupleID: 0, Element: i}
	}
	return &ram.Query{Root: &ram.Scan{
		Relation: src, TupleID: 0,
		Nested: &ram.Insert{Relation: dst, Values: values},
	}}
}

// clauseVersions derives the semi-naive versions of a recursive clause: one
// copy per occurrence of a same-stratum atom, with that occurrence renamed
// to its delta relation.
func clauseVersions(clause *ast.Clause, stratum map[string]bool) []*ast.Clause {
	var positions []int
	for i, atom := range clause.BodyAtoms() {
		if stratum[atom.Name.String()] {
			positions = append(positions, i)
		}
	}
	if len(positions) == 0 {
		// A clause the analysis calls recursive through another relation of
		// the stratum; evaluate it as a single version.
		return []*ast.Clause{clause.Clone().(*ast.Clause)}
	}
	versions := make([]*ast.Clause, 0, len(positions))
	for _, pos := range positions {
		versioned := clause.Clone().(*ast.Clause)
		atomIdx := 0
		for _, lit := range versioned.Body {
			atom, ok := lit.(*ast.Atom)
			if !ok {
				continue
			}
			if atomIdx == pos {
				atom.Name = ast.DeltaName(atom.Name)
			}
			atomIdx++
		}
		versions = append(versions, versioned)
	}
	return versions
}

// plannedOrders converts an author-supplied execution plan into 0-based
// atom orders keyed by version, ignoring malformed entries (the plan
// checker reports those).
func plannedOrders(clause *ast.Clause, versionCount int) map[int][]int {
	out := make(map[int][]int)
	if clause.Plan == nil {
		return out
	}
	numAtoms := len(clause.BodyAtoms())
	for v, order := range clause.Plan.Orders {
		if v >= versionCount || len(order.Order) != numAtoms {
			continue
		}
		zeroBased := make([]int, len(order.Order))
		valid := true
		for i, pos := range order.Order {
			if pos < 1 || pos > numAtoms {
				valid = false
				break
			}
			zeroBased[i] = pos - 1
		}
		if valid {
			out[v] = zeroBased
		}
	}
	return out
}

// scheduleClause orders a clause's body atoms with the lowering's SIPS
// metric. Clauses with an author-supplied plan keep their order.
func scheduleClause(tu *ast.TranslationUnit, clause *ast.Clause) *ast.Clause {
	if clause.Plan != nil || len(clause.BodyAtoms()) < 2 {
		return clause
	}
	metricName := tu.Opts.RamSIPS
	if metricName == "" {
		metricName = sips.DefaultMetric
	}
	order := sips.Reordering(sips.New(metricName, tu), clause)
	for i, pos := range order {
		if pos != i {
			return ast.ReorderAtoms(clause, order)
		}
	}
	return clause
}
