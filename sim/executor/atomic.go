package executor

import (
	"fmt"

	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/timing"
)

// AtomicExecutor drives an atomic model.
type AtomicExecutor struct {
	model       model.Atomic
	creation    timing.VTimeInSec
	destruction timing.VTimeInSec
	request     timing.VTimeInSec
}

// NewAtomicExecutor creates an executor that has not requested any time yet.
func NewAtomicExecutor(
	m model.Atomic,
	creation, destruction timing.VTimeInSec,
) *AtomicExecutor {
	return &AtomicExecutor{
		model:       m,
		creation:    creation,
		destruction: destruction,
		request:     timing.Infinity,
	}
}

// ID returns the identity of the model.
func (e *AtomicExecutor) ID() uint64 {
	return e.model.ID()
}

// Name returns the name of the model.
func (e *AtomicExecutor) Name() string {
	return e.model.Name()
}

// Model returns the model.
func (e *AtomicExecutor) Model() model.Model {
	return e.model
}

// CreationTime returns when the executor becomes active.
func (e *AtomicExecutor) CreationTime() timing.VTimeInSec {
	return e.creation
}

// DestructionTime returns when the executor is removed.
func (e *AtomicExecutor) DestructionTime() timing.VTimeInSec {
	return e.destruction
}

// RequestTime returns when the model next wants to act.
func (e *AtomicExecutor) RequestTime() timing.VTimeInSec {
	return e.request
}

// Init requests now plus the time advance of the current state.
func (e *AtomicExecutor) Init(now timing.VTimeInSec) error {
	return e.UpdateRequestTime(now, model.Recompute)
}

// TimeAdvance returns the time advance of the model, rejecting negative
// values.
func (e *AtomicExecutor) TimeAdvance() (timing.VTimeInSec, error) {
	ta, err := e.model.TimeAdvance()
	if err != nil {
		return 0, err
	}

	if ta < 0 {
		return 0, fmt.Errorf("%w: model %s returned %v",
			model.ErrNegativeTimeAdvance, e.Name(), ta)
	}

	return ta, nil
}

// ExternalTransition passes the message to the model.
func (e *AtomicExecutor) ExternalTransition(
	port string,
	msg *model.Message,
) (model.Reschedule, error) {
	return e.model.ExternalTransition(port, msg), nil
}

// InternalTransition runs the internal transition of the model.
func (e *AtomicExecutor) InternalTransition() error {
	e.model.InternalTransition()
	return nil
}

// Output collects the output of the model.
func (e *AtomicExecutor) Output() ([]*model.Message, error) {
	return e.model.Output(), nil
}

// UpdateRequestTime derives the next request time.
func (e *AtomicExecutor) UpdateRequestTime(
	now timing.VTimeInSec,
	r model.Reschedule,
) error {
	if r == model.NoChange {
		return nil
	}

	ta, err := e.TimeAdvance()
	if err != nil {
		return err
	}

	next := timing.Infinity
	if !timing.IsInfinite(ta) {
		next = now + ta
	}

	if r == model.KeepEarlier {
		next = timing.Min(e.request, next)
	}

	e.request = next

	return nil
}
