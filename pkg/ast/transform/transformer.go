// Package transform implements the clause-rewriting pipeline: a sequence of
// semantics-preserving program transformations driven to a fixed point.
//
// Each transformer mutates the translation unit's program and reports
// whether anything changed; the driver invalidates the analysis cache after
// every change so later passes see fresh analyses. Transformers never abort
// on user faults — they append diagnostics to the unit's error report and
// carry on.
package transform

import (
	"github.com/opentracing/opentracing-go"

	"github.com/gitrdm/godatalog/pkg/ast"
)

// Transformer is a single rewriting pass over a translation unit.
type Transformer interface {
	// Name identifies the pass in logs and the debug report.
	Name() string

	// Transform applies the pass, returning whether the program changed.
	Transform(tu *ast.TranslationUnit) bool
}

// Pipeline runs a sequence of transformers in order.
type Pipeline struct {
	passes []Transformer
}

// NewPipeline builds a pipeline over the given passes.
func NewPipeline(passes ...Transformer) *Pipeline {
	return &Pipeline{passes: passes}
}

// Name implements Transformer.
func (p *Pipeline) Name() string { return "pipeline" }

// Transform runs every pass once, in order. Each pass runs under a tracing
// span; after a pass changes the program the analysis cache is invalidated.
func (p *Pipeline) Transform(tu *ast.TranslationUnit) bool {
	changed := false
	for _, pass := range p.passes {
		span := opentracing.StartSpan("transform." + pass.Name())
		passChanged := pass.Transform(tu)
		span.Finish()
		if passChanged {
			tu.InvalidateAnalyses()
			tu.Log.WithField("pass", pass.Name()).Debug("program changed")
			if tu.Debug.Enabled() {
				tu.Debug.AddSection(pass.Name(), "after "+pass.Name(), tu.Program.String())
			}
		}
		changed = changed || passChanged
	}
	return changed
}

// maxFixpointRounds bounds runaway fixpoints; a correct pipeline converges
// in far fewer rounds.
const maxFixpointRounds = 100

// FixedPoint repeats a transformer until it stops reporting changes.
type FixedPoint struct {
	inner Transformer
}

// NewFixedPoint wraps a transformer in a fixed-point loop.
func NewFixedPoint(inner Transformer) *FixedPoint {
	return &FixedPoint{inner: inner}
}

// Name implements Transformer.
func (f *FixedPoint) Name() string { return "fixpoint(" + f.inner.Name() + ")" }

// Transform implements Transformer.
func (f *FixedPoint) Transform(tu *ast.TranslationUnit) bool {
	changed := false
	for round := 0; round < maxFixpointRounds; round++ {
		if !f.inner.Transform(tu) {
			break
		}
		changed = true
	}
	return changed
}

// Standard assembles the default rewrite pipeline of the middle-end.
func Standard() *Pipeline {
	return NewPipeline(
		&AddNullariesToAtomlessAggregates{},
		NewFixedPoint(NewPipeline(
			&ResolveAliases{},
			&MaterializeSingletonAggregation{},
			&PartitionBodyLiterals{},
			&RemoveRelationCopies{},
			&RemoveEmptyRelations{},
			&ReduceExistentials{},
			&RemoveRedundantRelations{},
		)),
		&ReorderLiterals{},
		&ExecutionPlanChecker{},
	)
}
