package ast

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Options carries the configuration the middle-end reads. It is populated by
// the facade from the global option map.
type Options struct {
	// SIPS names the cost metric used when reordering clause bodies.
	SIPS string
	// RamSIPS names the cost metric used by the lowering.
	RamSIPS string
	// Provenance widens existence checks with rule and level numbers and
	// disables inequality indices.
	Provenance bool
	// Profile enables per-operation frequency counters.
	Profile bool
	// DebugReport enables analysis dump sections.
	DebugReport bool
	// ProfileUsePath points at a profile log seeding the profile-use
	// analysis; empty disables it.
	ProfileUsePath string
	// Jobs is the worker count for parallel regions; values below one mean
	// one worker.
	Jobs int
}

// Analysis computes derived information over a translation unit. Analyses
// are stateful only through the unit's cache and never mutate the program.
type Analysis interface {
	fmt.Stringer

	// Name returns the analysis identifier used as its cache key and debug
	// section name.
	Name() string

	// Run populates the analysis from the translation unit.
	Run(tu *TranslationUnit)
}

// TranslationUnit owns a program and the lazily cached analyses over it.
// Transformers mutate the program through the unit and invalidate the cache
// after every change; counters seeded here keep synthetic names reproducible
// across runs.
type TranslationUnit struct {
	Program *Program
	Report  *ErrorReport
	Debug   *DebugReporter
	Opts    Options
	Log     *logrus.Logger

	analyses map[string]Analysis

	// Process-wide counters hang off the unit rather than package globals so
	// that repeated pipelines stay deterministic.
	varCounter int
	relCounter int
}

// NewTranslationUnit wraps a program with an empty analysis cache and a
// fresh error report.
func NewTranslationUnit(p *Program, opts Options) *TranslationUnit {
	log := logrus.StandardLogger()
	return &TranslationUnit{
		Program:  p,
		Report:   NewErrorReport(),
		Debug:    NewDebugReporter(opts.DebugReport, log),
		Opts:     opts,
		Log:      log,
		analyses: make(map[string]Analysis),
	}
}

// Analysis returns the cached analysis under the given key, running make()
// on first access. Typed accessors in the analysis package wrap this.
func (tu *TranslationUnit) Analysis(key string, make func() Analysis) Analysis {
	if a, ok := tu.analyses[key]; ok {
		return a
	}
	a := make()
	tu.analyses[key] = a
	a.Run(tu)
	if tu.Debug.Enabled() {
		tu.Debug.AddSection(a.Name(), a.Name(), a.String())
	}
	return a
}

// InvalidateAnalyses discards all cached analyses. Every mutating
// transformer calls this after changing the program.
func (tu *TranslationUnit) InvalidateAnalyses() {
	tu.analyses = make(map[string]Analysis)
}

// CachedAnalyses lists the names of currently cached analyses, sorted.
func (tu *TranslationUnit) CachedAnalyses() []string {
	out := make([]string, 0, len(tu.analyses))
	for k := range tu.analyses {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FreshVariableName returns a clause-unique synthetic variable name with the
// given prefix.
func (tu *TranslationUnit) FreshVariableName(prefix string) string {
	name := fmt.Sprintf("%s%d", prefix, tu.varCounter)
	tu.varCounter++
	return name
}

// FreshRelationName returns a program-unique synthetic relation name with
// the given prefix.
func (tu *TranslationUnit) FreshRelationName(prefix string) QualifiedName {
	for {
		name := ParseQualifiedName(fmt.Sprintf("%s%d", prefix, tu.relCounter))
		tu.relCounter++
		if tu.Program.Relation(name) == nil {
			return name
		}
	}
}

// CheckInvariants verifies the structural invariants the middle-end relies
// on: non-nil clause heads and declared arities matching atom arities. It
// panics with a fatal error kind on violation; these are compiler bugs, not
// user faults.
func (tu *TranslationUnit) CheckInvariants() {
	for _, c := range tu.Program.Clauses {
		if c.Head == nil {
			panic(ErrNullClauseHead.New())
		}
		ForEach[*Atom](c, func(a *Atom) {
			rel := tu.Program.Relation(a.Name)
			if rel != nil && rel.Arity() != a.Arity() {
				panic(ErrArityMismatch.New(a.Name.String(), a.Arity(), rel.Arity()))
			}
		})
	}
}
