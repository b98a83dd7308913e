package datalog

import (
	"context"
	"fmt"

	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/ast/transform"
	"github.com/gitrdm/godatalog/pkg/interp"
	"github.com/gitrdm/godatalog/pkg/translate"
)

// Engine evaluates one Datalog program end to end: analyse, rewrite, lower,
// generate, execute. Input facts are seeded before Run; results are read
// back afterwards.
type Engine struct {
	tu       *ast.TranslationUnit
	cfg      Config
	io       *interp.MemoryIO
	functors map[string]interp.UserFunctor

	exec *interp.Engine
}

// NewEngine wraps a program. The engine takes ownership of the program
// tree; callers must not mutate it afterwards.
func NewEngine(program *ast.Program, cfg Config) *Engine {
	return &Engine{
		tu:       ast.NewTranslationUnit(program, cfg.options()),
		cfg:      cfg,
		io:       interp.NewMemoryIO(),
		functors: make(map[string]interp.UserFunctor),
	}
}

// AddFact seeds one fact of an input relation.
func (e *Engine) AddFact(relation string, values ...any) {
	e.io.AddInput(relation, values...)
}

// RegisterFunctor binds a callable to a user-defined functor name.
func (e *Engine) RegisterFunctor(name string, fn interp.UserFunctor) {
	e.functors[name] = fn
}

// Report returns the error report of the translation unit.
func (e *Engine) Report() *ast.ErrorReport { return e.tu.Report }

// DebugReport returns the collected debug sections.
func (e *Engine) DebugReport() *ast.DebugReporter { return e.tu.Debug }

// Run drives the full pipeline and executes the program.
func (e *Engine) Run(ctx context.Context) error {
	e.tu.CheckInvariants()

	transform.Standard().Transform(e.tu)
	if n := e.tu.Report.CountErrors(); n > 0 {
		return fmt.Errorf("datalog: %d semantic errors:\n%s", n, e.tu.Report)
	}

	prog := translate.Unit(e.tu)
	if n := e.tu.Report.CountErrors(); n > 0 {
		return fmt.Errorf("datalog: %d lowering errors:\n%s", n, e.tu.Report)
	}

	symbols := interp.NewSymbolTable()
	records := interp.NewRecordTable()
	code, err := interp.Generate(prog, symbols, e.cfg.Provenance)
	if err != nil {
		return err
	}

	e.exec = interp.NewEngine(code, symbols, records, interp.Options{
		Jobs:     e.cfg.Jobs,
		Profile:  e.cfg.Profile,
		IO:       e.io,
		Functors: e.functors,
		Log:      e.tu.Log,
	})
	return e.exec.Run(ctx)
}

// Output returns the facts an output relation produced, in storage order.
// It is valid after Run.
func (e *Engine) Output(relation string) [][]any {
	return e.io.Outputs[relation]
}

// PrintedSize returns the recorded size of a printsize relation.
func (e *Engine) PrintedSize(relation string) int {
	return e.io.Sizes[relation]
}

// Relation exposes a live relation after Run, or nil. Intended for
// diagnostics and tests.
func (e *Engine) Relation(name string) interp.Relation {
	if e.exec == nil {
		return nil
	}
	return e.exec.Relation(name)
}
