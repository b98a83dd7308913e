// Package main demonstrates driving the Datalog engine end to end: declare
// relations, add rules and facts, run the pipeline and read the results.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gitrdm/godatalog/pkg/ast"
	"github.com/gitrdm/godatalog/pkg/datalog"
)

func main() {
	fmt.Println("=== godatalog examples ===")
	fmt.Println()

	transitiveClosure()
	aggregateExample()
}

// transitiveClosure computes reachability over a small edge relation.
func transitiveClosure() {
	fmt.Println("1. Transitive closure:")

	program := ast.NewProgram()
	program.AddRelation(ast.NewRelation("edge",
		&ast.Attribute{Name: "a", TypeName: ast.ParseQualifiedName("number")},
		&ast.Attribute{Name: "b", TypeName: ast.ParseQualifiedName("number")}))
	program.AddRelation(ast.NewRelation("reach",
		&ast.Attribute{Name: "a", TypeName: ast.ParseQualifiedName("number")},
		&ast.Attribute{Name: "b", TypeName: ast.ParseQualifiedName("number")}))
	program.AddDirective(ast.NewDirective(ast.DirectiveInput, "edge"))
	program.AddDirective(ast.NewDirective(ast.DirectiveOutput, "reach"))

	x := &ast.Variable{Name: "x"}
	y := &ast.Variable{Name: "y"}
	z := &ast.Variable{Name: "z"}

	// reach(x,y) :- edge(x,y).
	program.AddClause(ast.NewClause(
		ast.NewAtom("reach", x.Clone().(ast.Argument), y.Clone().(ast.Argument)),
		ast.NewAtom("edge", x.Clone().(ast.Argument), y.Clone().(ast.Argument)),
	))
	// reach(x,z) :- reach(x,y), edge(y,z).
	program.AddClause(ast.NewClause(
		ast.NewAtom("reach", x.Clone().(ast.Argument), z.Clone().(ast.Argument)),
		ast.NewAtom("reach", x.Clone().(ast.Argument), y.Clone().(ast.Argument)),
		ast.NewAtom("edge", y.Clone().(ast.Argument), z.Clone().(ast.Argument)),
	))

	engine := datalog.NewEngine(program, datalog.Config{Jobs: 2})
	engine.AddFact("edge", 1, 2)
	engine.AddFact("edge", 2, 3)
	engine.AddFact("edge", 3, 4)

	if err := engine.Run(context.Background()); err != nil {
		log.Fatal(err)
	}
	for _, row := range engine.Output("reach") {
		fmt.Printf("   reach%v\n", row)
	}
	fmt.Println()
}

// aggregateExample sums a column through a singleton aggregate.
func aggregateExample() {
	fmt.Println("2. Aggregation:")

	program := ast.NewProgram()
	program.AddRelation(ast.NewRelation("cost",
		&ast.Attribute{Name: "c", TypeName: ast.ParseQualifiedName("number")}))
	program.AddRelation(ast.NewRelation("total",
		&ast.Attribute{Name: "t", TypeName: ast.ParseQualifiedName("number")}))
	program.AddDirective(ast.NewDirective(ast.DirectiveInput, "cost"))
	program.AddDirective(ast.NewDirective(ast.DirectiveOutput, "total"))

	// total(t) :- t = sum c : { cost(c) }.
	t := &ast.Variable{Name: "t"}
	c := &ast.Variable{Name: "c"}
	program.AddClause(ast.NewClause(
		ast.NewAtom("total", t.Clone().(ast.Argument)),
		&ast.BinaryConstraint{
			Op:  ast.BinaryConstraintEQ,
			LHS: t.Clone().(ast.Argument),
			RHS: &ast.Aggregator{
				Op:     ast.AggregateSum,
				Target: c.Clone().(ast.Argument),
				Body:   []ast.Literal{ast.NewAtom("cost", c.Clone().(ast.Argument))},
			},
		},
	))

	engine := datalog.NewEngine(program, datalog.Config{})
	engine.AddFact("cost", 10)
	engine.AddFact("cost", 32)

	if err := engine.Run(context.Background()); err != nil {
		log.Fatal(err)
	}
	for _, row := range engine.Output("total") {
		fmt.Printf("   total%v\n", row)
	}
}
