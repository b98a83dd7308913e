package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gitrdm/godatalog/pkg/ast"
)

const scheduleName = "relation-schedule"

// ScheduleStep is one stratum of the evaluation schedule: the relations it
// computes, the relations whose storage can be released once it completes,
// and whether it needs fixpoint iteration.
type ScheduleStep struct {
	Computed  []*ast.Relation
	Expired   []*ast.Relation
	Recursive bool
}

// RelationSchedule orders the strata of the program by the topological SCC
// order and attaches an expiry set to each step. A relation expires at the
// first step after which it is no longer a predecessor of any remaining
// stratum.
type RelationSchedule struct {
	steps []ScheduleStep
}

// ScheduleOf returns the cached relation schedule of the unit.
func ScheduleOf(tu *ast.TranslationUnit) *RelationSchedule {
	return tu.Analysis(scheduleName, func() ast.Analysis {
		return &RelationSchedule{}
	}).(*RelationSchedule)
}

// Name implements ast.Analysis.
func (s *RelationSchedule) Name() string { return scheduleName }

// Run implements ast.Analysis.
func (s *RelationSchedule) Run(tu *ast.TranslationUnit) {
	topo := TopoOrderOf(tu)
	sccs := SCCsOf(tu)
	prec := PrecedenceOf(tu)
	ioTypes := IOTypesOf(tu)

	order := topo.Order()
	n := len(order)
	expiry := make([][]*ast.Relation, n)

	// Walk the order backwards accumulating the alive set: a relation is
	// alive at step i if some stratum >= i still reads it or it must survive
	// as an output. The expiry of step i is the difference between
	// consecutive alive sets.
	alive := make([]map[*ast.Relation]bool, n+1)
	alive[0] = make(map[*ast.Relation]bool)
	for back := 1; back <= n; back++ {
		alive[back] = make(map[*ast.Relation]bool)
		for rel := range alive[back-1] {
			alive[back][rel] = true
		}
		step := order[n-back]
		for _, rel := range sccs.Members(step) {
			for _, pred := range prec.Graph().Predecessors(rel) {
				alive[back][pred] = true
			}
		}
		if back < n {
			for rel := range alive[back] {
				if alive[back-1][rel] {
					continue
				}
				expiry[n-back] = append(expiry[n-back], rel)
			}
		}
	}

	s.steps = make([]ScheduleStep, n)
	for i, scc := range order {
		expired := expiry[i]
		kept := expired[:0]
		for _, rel := range expired {
			if !ioTypes.IsOutput(rel) && !ioTypes.IsPrintSize(rel) {
				kept = append(kept, rel)
			}
		}
		sort.Slice(kept, func(a, b int) bool { return kept[a].Name.Compare(kept[b].Name) < 0 })
		s.steps[i] = ScheduleStep{
			Computed:  sccs.Members(scc),
			Expired:   kept,
			Recursive: sccs.Recursive(scc),
		}
	}
}

// Steps returns the schedule in evaluation order.
func (s *RelationSchedule) Steps() []ScheduleStep {
	return s.steps
}

func (s *RelationSchedule) String() string {
	var sb strings.Builder
	sb.WriteString("begin schedule\n")
	for _, step := range s.steps {
		names := func(rels []*ast.Relation) string {
			parts := make([]string, len(rels))
			for i, rel := range rels {
				parts[i] = rel.Name.String()
			}
			return strings.Join(parts, ", ")
		}
		fmt.Fprintf(&sb, "computed: %s\nexpired: %s\n", names(step.Computed), names(step.Expired))
		if step.Recursive {
			sb.WriteString("recursive\n")
		} else {
			sb.WriteString("not recursive\n")
		}
	}
	sb.WriteString("end schedule\n")
	return sb.String()
}
