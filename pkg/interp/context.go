package interp

import (
	"github.com/gitrdm/godatalog/pkg/ram"
)

// Frame is the per-call run-time context of the executor: the current tuple
// stack indexed by tuple id, the views of the running query, and the
// argument and return slots of the active subroutine. Frames are cheap to
// create and never shared across workers; parallel regions derive one frame
// per worker with fresh views.
type Frame struct {
	tuples  []Tuple
	views   []View
	setups  []viewSetup
	args    []ram.Domain
	returns *[]ram.Domain
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{}
}

// bind stores a tuple under its id, growing the stack as needed.
func (f *Frame) bind(tupleID int, t Tuple) {
	if tupleID >= len(f.tuples) {
		grown := make([]Tuple, tupleID+1)
		copy(grown, f.tuples)
		f.tuples = grown
	}
	f.tuples[tupleID] = t
}

// tuple reads the tuple bound under an id; unbound ids yield nil.
func (f *Frame) tuple(tupleID int) Tuple {
	if tupleID < 0 || tupleID >= len(f.tuples) {
		return nil
	}
	return f.tuples[tupleID]
}

// createViews instantiates the views of a query scope.
func (f *Frame) createViews(setups []viewSetup) {
	f.setups = setups
	f.views = make([]View, len(setups))
	for _, setup := range setups {
		f.views[setup.viewID] = setup.rel.rel.View(setup.index)
	}
}

// view returns the view stored under an id.
func (f *Frame) view(id int) View {
	return f.views[id]
}

// forWorker derives a worker-local frame: the tuple stack is copied, the
// views are recreated so no cursor crosses a goroutine boundary, and the
// subroutine slots are shared.
func (f *Frame) forWorker() *Frame {
	w := &Frame{
		tuples:  make([]Tuple, len(f.tuples)),
		args:    f.args,
		returns: f.returns,
	}
	copy(w.tuples, f.tuples)
	w.createViews(f.setups)
	return w
}
