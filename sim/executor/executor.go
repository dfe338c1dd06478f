// Package executor gives models their place in simulated time. An executor
// wraps one model, tracks when it was created, when it will be destroyed and
// when it next wants to act, and drives the model's transition functions.
package executor

import (
	"errors"

	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/timing"
)

// ErrUnsupportedKind is returned when a model reports a kind that does not
// match the interface it implements.
var ErrUnsupportedKind = errors.New("unsupported model kind")

// An Executor schedules and drives one model.
type Executor interface {
	timing.Schedulable

	Name() string
	Model() model.Model

	CreationTime() timing.VTimeInSec
	DestructionTime() timing.VTimeInSec

	// Init computes the first request time when the executor becomes
	// active.
	Init(now timing.VTimeInSec) error

	// TimeAdvance returns how long the model waits before it acts on its
	// own.
	TimeAdvance() (timing.VTimeInSec, error)

	ExternalTransition(
		port string,
		msg *model.Message,
	) (model.Reschedule, error)
	InternalTransition() error
	Output() ([]*model.Message, error)

	// UpdateRequestTime derives the next request time after a transition.
	UpdateRequestTime(now timing.VTimeInSec, r model.Reschedule) error
}

// A TimeObserver is told about every quantum, before any event of that
// quantum is processed.
type TimeObserver interface {
	CheckTime(now timing.VTimeInSec)
}

// A Factory creates executors.
type Factory interface {
	CreateExecutor(
		m model.Model,
		creation, destruction timing.VTimeInSec,
		scope Scope,
	) (Executor, error)
}

// DefaultFactory creates an AtomicExecutor or a CoupledExecutor depending on
// the kind of the model.
type DefaultFactory struct{}

// CreateExecutor creates the executor matching the kind of the model.
func (DefaultFactory) CreateExecutor(
	m model.Model,
	creation, destruction timing.VTimeInSec,
	scope Scope,
) (Executor, error) {
	switch m.Kind() {
	case model.KindAtomic:
		atomic, ok := m.(model.Atomic)
		if !ok {
			return nil, ErrUnsupportedKind
		}

		return NewAtomicExecutor(atomic, creation, destruction), nil
	case model.KindCoupled:
		coupled, ok := m.(model.Coupled)
		if !ok {
			return nil, ErrUnsupportedKind
		}

		return NewCoupledExecutor(coupled, creation, destruction, scope)
	default:
		return nil, ErrUnsupportedKind
	}
}
