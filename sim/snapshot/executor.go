package snapshot

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/devskit/sim/executor"
	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/serialization"
	"github.com/sarchlab/devskit/sim/timing"
)

// An Executor wraps another executor and saves its model whenever the
// condition asks for it. Only the model is saved, never the scheduling
// state of the executor.
type Executor struct {
	executor.Executor

	ctx    context.Context
	cond   Condition
	store  Store
	logger logrus.FieldLogger
	saves  int
}

// NewExecutor decorates inner.
func NewExecutor(
	ctx context.Context,
	inner executor.Executor,
	cond Condition,
	store Store,
	logger logrus.FieldLogger,
) *Executor {
	return &Executor{
		Executor: inner,
		ctx:      ctx,
		cond:     cond,
		store:    store,
		logger:   logger,
	}
}

// Inner returns the decorated executor.
func (e *Executor) Inner() executor.Executor {
	return e.Executor
}

// Saves returns how many snapshots the executor has written.
func (e *Executor) Saves() int {
	return e.saves
}

func (e *Executor) save(point Point) error {
	rec, err := model.ToRecord(e.Model())
	if err != nil {
		return err
	}

	blob, err := serialization.MarshalRecord(rec)
	if err != nil {
		return err
	}

	key := ModelKey{Point: point, Model: e.Name()}

	err = e.store.SaveModel(e.ctx, key, blob)
	if err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}

	e.saves++
	e.logger.WithField("key", key.String()).Debug("model snapshot saved")

	return nil
}

// ExternalTransition saves the model before and after the transition if the
// condition asks for it.
func (e *Executor) ExternalTransition(
	port string,
	msg *model.Message,
) (model.Reschedule, error) {
	if e.cond.BeforeExternal(e.Model(), port, msg) {
		if err := e.save(PointBeforeExternal); err != nil {
			return model.NoChange, err
		}
	}

	r, err := e.Executor.ExternalTransition(port, msg)
	if err != nil {
		return r, err
	}

	if e.cond.AfterExternal(e.Model(), port, msg) {
		if err := e.save(PointAfterExternal); err != nil {
			return r, err
		}
	}

	return r, nil
}

// InternalTransition saves the model before and after the transition if the
// condition asks for it.
func (e *Executor) InternalTransition() error {
	if e.cond.BeforeInternal(e.Model()) {
		if err := e.save(PointBeforeInternal); err != nil {
			return err
		}
	}

	err := e.Executor.InternalTransition()
	if err != nil {
		return err
	}

	if e.cond.AfterInternal(e.Model()) {
		return e.save(PointAfterInternal)
	}

	return nil
}

// Output saves the model before and after the output if the condition asks
// for it.
func (e *Executor) Output() ([]*model.Message, error) {
	if e.cond.BeforeOutput(e.Model()) {
		if err := e.save(PointBeforeOutput); err != nil {
			return nil, err
		}
	}

	msgs, err := e.Executor.Output()
	if err != nil {
		return nil, err
	}

	if e.cond.AfterOutput(e.Model(), msgs) {
		if err := e.save(PointAfterOutput); err != nil {
			return nil, err
		}
	}

	return msgs, nil
}

// CheckTime asks the condition once per quantum and forwards the time to the
// decorated executor. A failed save is logged, since the quantum has no way
// to report it.
func (e *Executor) CheckTime(now timing.VTimeInSec) {
	if e.cond.CheckTime(e.Model(), now) {
		if err := e.save(PointTimeCheck); err != nil {
			e.logger.WithError(err).Error("model snapshot failed")
		}
	}

	if o, ok := e.Executor.(executor.TimeObserver); ok {
		o.CheckTime(now)
	}
}
