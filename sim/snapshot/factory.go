package snapshot

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/devskit/sim/executor"
	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/timing"
)

// A Factory creates executors with a base factory and decorates those whose
// model has a registered condition.
type Factory struct {
	ctx        context.Context
	base       executor.Factory
	store      Store
	logger     logrus.FieldLogger
	conditions map[string]Condition
}

// NewFactory creates a factory that saves into store. A nil base means
// executor.DefaultFactory.
func NewFactory(
	ctx context.Context,
	base executor.Factory,
	store Store,
	logger logrus.FieldLogger,
) *Factory {
	if base == nil {
		base = executor.DefaultFactory{}
	}

	return &Factory{
		ctx:        ctx,
		base:       base,
		store:      store,
		logger:     logger,
		conditions: make(map[string]Condition),
	}
}

// Watch makes the factory decorate the model with the given name, at any
// depth, with the condition.
func (f *Factory) Watch(name string, cond Condition) {
	f.conditions[name] = cond
}

// CreateExecutor creates the executor with the base factory and decorates
// it if the model is watched.
func (f *Factory) CreateExecutor(
	m model.Model,
	creation, destruction timing.VTimeInSec,
	scope executor.Scope,
) (executor.Executor, error) {
	e, err := f.base.CreateExecutor(m, creation, destruction, scope)
	if err != nil {
		return nil, err
	}

	cond, watched := f.conditions[m.Name()]
	if !watched {
		return e, nil
	}

	logger := f.logger.WithField("model", m.Name())

	return NewExecutor(f.ctx, e, cond, f.store, logger), nil
}
