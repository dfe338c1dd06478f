// Package doe runs simulations until a termination condition holds and
// repeats them as replicated experiments.
package doe

import (
	"errors"
	"fmt"

	"github.com/sarchlab/devskit/sim/kernel"
	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/timing"
)

// ErrNoConditions is returned when a composite condition is built from
// nothing.
var ErrNoConditions = errors.New("composite condition needs at least one condition")

// A Condition decides when a simulation run ends.
type Condition interface {
	// ShouldTerminate is checked before every step.
	ShouldTerminate(k *kernel.Kernel) bool

	// OnTerminate is called once after the run ends.
	OnTerminate(k *kernel.Kernel)
}

// TimeBased ends a run once the simulation time reaches MaxTime.
type TimeBased struct {
	MaxTime timing.VTimeInSec
}

// NewTimeBased creates a condition that ends a run at maxTime.
func NewTimeBased(maxTime timing.VTimeInSec) (*TimeBased, error) {
	if maxTime < 0 {
		return nil, fmt.Errorf("max time must be non-negative, got %v", maxTime)
	}

	return &TimeBased{MaxTime: maxTime}, nil
}

// ShouldTerminate is true once the kernel time is at or after MaxTime.
func (c *TimeBased) ShouldTerminate(k *kernel.Kernel) bool {
	return !timing.Before(k.Now(), c.MaxTime)
}

// OnTerminate does nothing.
func (c *TimeBased) OnTerminate(*kernel.Kernel) {}

// ModelPredicate ends a run when Predicate holds for the named model. A
// model that does not exist never ends the run.
type ModelPredicate struct {
	Model     string
	Predicate func(m model.Model) bool

	// Then, if set, is called with the model when the run ends.
	Then func(m model.Model)
}

// NewModelPredicate creates a condition on the named model.
func NewModelPredicate(
	name string,
	predicate func(m model.Model) bool,
) (*ModelPredicate, error) {
	if name == "" {
		return nil, errors.New("model name must not be empty")
	}

	if predicate == nil {
		return nil, errors.New("predicate must not be nil")
	}

	return &ModelPredicate{Model: name, Predicate: predicate}, nil
}

// ShouldTerminate evaluates the predicate on the current model.
func (c *ModelPredicate) ShouldTerminate(k *kernel.Kernel) bool {
	m, found := k.GetModel(c.Model)
	if !found {
		return false
	}

	return c.Predicate(m)
}

// OnTerminate calls Then when the model exists.
func (c *ModelPredicate) OnTerminate(k *kernel.Kernel) {
	if c.Then == nil {
		return
	}

	m, found := k.GetModel(c.Model)
	if !found {
		return
	}

	c.Then(m)
}

// CompositeMode selects how a Composite combines its conditions.
type CompositeMode int

// Composite modes.
const (
	Or CompositeMode = iota
	And
)

func (m CompositeMode) String() string {
	if m == And {
		return "AND"
	}

	return "OR"
}

// Composite combines conditions with AND or OR.
type Composite struct {
	Mode       CompositeMode
	Conditions []Condition
}

// NewAnd ends a run when every condition holds.
func NewAnd(conds ...Condition) (*Composite, error) {
	return newComposite(And, conds)
}

// NewOr ends a run when any condition holds.
func NewOr(conds ...Condition) (*Composite, error) {
	return newComposite(Or, conds)
}

func newComposite(mode CompositeMode, conds []Condition) (*Composite, error) {
	if len(conds) == 0 {
		return nil, ErrNoConditions
	}

	for i, c := range conds {
		if c == nil {
			return nil, fmt.Errorf("condition %d is nil", i)
		}
	}

	return &Composite{Mode: mode, Conditions: conds}, nil
}

// ShouldTerminate combines the conditions.
func (c *Composite) ShouldTerminate(k *kernel.Kernel) bool {
	for _, cond := range c.Conditions {
		hit := cond.ShouldTerminate(k)

		if c.Mode == Or && hit {
			return true
		}

		if c.Mode == And && !hit {
			return false
		}
	}

	return c.Mode == And
}

// OnTerminate notifies the conditions that hold.
func (c *Composite) OnTerminate(k *kernel.Kernel) {
	for _, cond := range c.Conditions {
		if cond.ShouldTerminate(k) {
			cond.OnTerminate(k)
		}
	}
}
