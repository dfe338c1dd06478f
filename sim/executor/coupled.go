package executor

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/naming"
	"github.com/sarchlab/devskit/sim/timing"
)

// CoupledExecutor drives a coupled model. It owns one executor per child and
// a local schedule queue over them. To its parent it looks like any other
// executor: its request time is the earliest request time of its children.
type CoupledExecutor struct {
	model       model.Coupled
	parent      Scope
	creation    timing.VTimeInSec
	destruction timing.VTimeInSec

	children map[string]Executor
	order    []Executor
	queue    *timing.ScheduleQueue
	logger   logrus.FieldLogger

	imminent   Executor
	collecting bool
	pending    []*model.Message
}

// NewCoupledExecutor creates the executor of a coupled model and, through
// the parent's factory, the executors of all its children.
func NewCoupledExecutor(
	m model.Coupled,
	creation, destruction timing.VTimeInSec,
	parent Scope,
) (*CoupledExecutor, error) {
	e := &CoupledExecutor{
		model:       m,
		parent:      parent,
		creation:    creation,
		destruction: destruction,
		children:    make(map[string]Executor),
		queue:       timing.NewScheduleQueue(),
		logger:      parent.Logger().WithField("coupled", m.Name()),
	}

	for _, child := range m.Children() {
		ce, err := parent.Factory().CreateExecutor(
			child, creation, destruction, e)
		if err != nil {
			return nil, err
		}

		e.children[child.Name()] = ce
		e.order = append(e.order, ce)
	}

	return e, nil
}

// ID returns the identity of the model.
func (e *CoupledExecutor) ID() uint64 {
	return e.model.ID()
}

// Name returns the name of the model.
func (e *CoupledExecutor) Name() string {
	return e.model.Name()
}

// Model returns the model.
func (e *CoupledExecutor) Model() model.Model {
	return e.model
}

// CreationTime returns when the executor becomes active.
func (e *CoupledExecutor) CreationTime() timing.VTimeInSec {
	return e.creation
}

// DestructionTime returns when the executor is removed.
func (e *CoupledExecutor) DestructionTime() timing.VTimeInSec {
	return e.destruction
}

// RequestTime is the earliest request time among the children.
func (e *CoupledExecutor) RequestTime() timing.VTimeInSec {
	return e.queue.PeekTime()
}

// Children returns the child executors in the order of the model's
// children.
func (e *CoupledExecutor) Children() []Executor {
	out := make([]Executor, len(e.order))
	copy(out, e.order)

	return out
}

// Init initializes every child.
func (e *CoupledExecutor) Init(now timing.VTimeInSec) error {
	for _, c := range e.order {
		err := c.Init(now)
		if err != nil {
			return err
		}

		e.queue.Push(c)
	}

	return nil
}

// TimeAdvance is the time left until the earliest child acts.
func (e *CoupledExecutor) TimeAdvance() (timing.VTimeInSec, error) {
	next := e.queue.PeekTime()
	if timing.IsInfinite(next) {
		return timing.Infinity, nil
	}

	ta := next - e.parent.CurrentTime()
	if ta < 0 {
		ta = 0
	}

	return ta, nil
}

// ExternalTransition routes a message arriving at a boundary input port to
// the children coupled to it.
func (e *CoupledExecutor) ExternalTransition(
	port string,
	msg *model.Message,
) (model.Reschedule, error) {
	in := msg.Clone()
	in.Src = model.Boundary
	in.Port = port

	err := Route(e, e.model.Couplings(), in)
	if err != nil {
		return model.NoChange, err
	}

	return model.Recompute, nil
}

// Output runs the output of the imminent child and routes what it emits.
// Messages that reach the boundary are returned to the parent.
func (e *CoupledExecutor) Output() ([]*model.Message, error) {
	item, found := e.queue.Peek()
	if !found {
		return nil, nil
	}

	e.imminent = item.(Executor)

	msgs, err := e.imminent.Output()
	if err != nil {
		return nil, err
	}

	e.collecting = true
	defer func() {
		e.collecting = false
		e.pending = nil
	}()

	for _, msg := range msgs {
		err = Route(e, e.model.Couplings(), msg)
		if err != nil {
			return nil, err
		}
	}

	return e.pending, nil
}

// InternalTransition runs the internal transition of the child chosen by
// Output and reschedules it.
func (e *CoupledExecutor) InternalTransition() error {
	child := e.imminent
	e.imminent = nil

	if child == nil {
		item, found := e.queue.Peek()
		if !found {
			return nil
		}

		child = item.(Executor)
	}

	err := child.InternalTransition()
	if err != nil {
		return err
	}

	err = child.UpdateRequestTime(e.parent.CurrentTime(), model.Recompute)
	if err != nil {
		return err
	}

	e.queue.Push(child)

	return nil
}

// UpdateRequestTime does nothing. The request time of a coupled executor
// always follows its children.
func (e *CoupledExecutor) UpdateRequestTime(
	_ timing.VTimeInSec,
	_ model.Reschedule,
) error {
	return nil
}

// CheckTime forwards the quantum notification to the children that observe
// time.
func (e *CoupledExecutor) CheckTime(now timing.VTimeInSec) {
	for _, c := range e.order {
		if o, ok := c.(TimeObserver); ok {
			o.CheckTime(now)
		}
	}
}

// CurrentTime returns the time of the enclosing scope.
func (e *CoupledExecutor) CurrentTime() timing.VTimeInSec {
	return e.parent.CurrentTime()
}

// Factory returns the factory of the enclosing scope.
func (e *CoupledExecutor) Factory() Factory {
	return e.parent.Factory()
}

// Logger returns the logger of the scope.
func (e *CoupledExecutor) Logger() logrus.FieldLogger {
	return e.logger
}

// Lookup finds a child executor.
func (e *CoupledExecutor) Lookup(name string) (Executor, bool) {
	c, found := e.children[name]
	return c, found
}

// Reschedule re-registers a child in the local queue.
func (e *CoupledExecutor) Reschedule(c Executor) {
	e.queue.Push(c)
}

// Deliver routes a message emitted by a child.
func (e *CoupledExecutor) Deliver(msg *model.Message) error {
	return Route(e, e.model.Couplings(), msg)
}

// EmitBoundary hands a message leaving the coupled model to the parent.
// While Output runs, the message becomes part of the output. Otherwise it
// passes straight through from an input port and the parent routes it now.
func (e *CoupledExecutor) EmitBoundary(msg *model.Message) error {
	if e.collecting {
		e.pending = append(e.pending, msg)
		return nil
	}

	return e.parent.Deliver(msg)
}

// Uncaught forwards an unmatched message to the parent, with the source
// qualified by this model's name.
func (e *CoupledExecutor) Uncaught(msg *model.Message) {
	qualified := msg.Clone()
	if qualified.Src == model.Boundary {
		qualified.Src = e.Name()
	} else {
		qualified.Src = e.Name() + naming.Separator + qualified.Src
	}

	e.parent.Uncaught(qualified)
}

// Observe forwards routing decisions to the parent.
func (e *CoupledExecutor) Observe(ev RouteEvent) {
	e.parent.Observe(ev)
}
