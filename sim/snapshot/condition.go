package snapshot

import (
	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/timing"
)

// A Point names where a per-model snapshot was triggered.
type Point string

// The points at which a Condition is asked whether to save the model.
const (
	PointBeforeExternal Point = "before_external"
	PointAfterExternal  Point = "after_external"
	PointBeforeInternal Point = "before_internal"
	PointAfterInternal  Point = "after_internal"
	PointBeforeOutput   Point = "before_output"
	PointAfterOutput    Point = "after_output"
	PointTimeCheck      Point = "time_check"
)

// A Condition decides when a model is worth saving.
type Condition interface {
	BeforeExternal(m model.Model, port string, msg *model.Message) bool
	AfterExternal(m model.Model, port string, msg *model.Message) bool
	BeforeInternal(m model.Model) bool
	AfterInternal(m model.Model) bool
	BeforeOutput(m model.Model) bool
	AfterOutput(m model.Model, msgs []*model.Message) bool

	// CheckTime is asked once per quantum.
	CheckTime(m model.Model, now timing.VTimeInSec) bool
}

// ConditionBase never asks for a save. Embed it and override the points of
// interest.
type ConditionBase struct{}

// BeforeExternal returns false.
func (ConditionBase) BeforeExternal(model.Model, string, *model.Message) bool {
	return false
}

// AfterExternal returns false.
func (ConditionBase) AfterExternal(model.Model, string, *model.Message) bool {
	return false
}

// BeforeInternal returns false.
func (ConditionBase) BeforeInternal(model.Model) bool { return false }

// AfterInternal returns false.
func (ConditionBase) AfterInternal(model.Model) bool { return false }

// BeforeOutput returns false.
func (ConditionBase) BeforeOutput(model.Model) bool { return false }

// AfterOutput returns false.
func (ConditionBase) AfterOutput(model.Model, []*model.Message) bool {
	return false
}

// CheckTime returns false.
func (ConditionBase) CheckTime(model.Model, timing.VTimeInSec) bool {
	return false
}

// ConditionFuncs builds a Condition from functions. Nil functions never ask
// for a save.
type ConditionFuncs struct {
	BeforeExternalFunc func(m model.Model, port string, msg *model.Message) bool
	AfterExternalFunc  func(m model.Model, port string, msg *model.Message) bool
	BeforeInternalFunc func(m model.Model) bool
	AfterInternalFunc  func(m model.Model) bool
	BeforeOutputFunc   func(m model.Model) bool
	AfterOutputFunc    func(m model.Model, msgs []*model.Message) bool
	CheckTimeFunc      func(m model.Model, now timing.VTimeInSec) bool
}

// BeforeExternal calls BeforeExternalFunc.
func (c ConditionFuncs) BeforeExternal(
	m model.Model,
	port string,
	msg *model.Message,
) bool {
	return c.BeforeExternalFunc != nil && c.BeforeExternalFunc(m, port, msg)
}

// AfterExternal calls AfterExternalFunc.
func (c ConditionFuncs) AfterExternal(
	m model.Model,
	port string,
	msg *model.Message,
) bool {
	return c.AfterExternalFunc != nil && c.AfterExternalFunc(m, port, msg)
}

// BeforeInternal calls BeforeInternalFunc.
func (c ConditionFuncs) BeforeInternal(m model.Model) bool {
	return c.BeforeInternalFunc != nil && c.BeforeInternalFunc(m)
}

// AfterInternal calls AfterInternalFunc.
func (c ConditionFuncs) AfterInternal(m model.Model) bool {
	return c.AfterInternalFunc != nil && c.AfterInternalFunc(m)
}

// BeforeOutput calls BeforeOutputFunc.
func (c ConditionFuncs) BeforeOutput(m model.Model) bool {
	return c.BeforeOutputFunc != nil && c.BeforeOutputFunc(m)
}

// AfterOutput calls AfterOutputFunc.
func (c ConditionFuncs) AfterOutput(m model.Model, msgs []*model.Message) bool {
	return c.AfterOutputFunc != nil && c.AfterOutputFunc(m, msgs)
}

// CheckTime calls CheckTimeFunc.
func (c ConditionFuncs) CheckTime(m model.Model, now timing.VTimeInSec) bool {
	return c.CheckTimeFunc != nil && c.CheckTimeFunc(m, now)
}

// AtTime asks for one save during the first quantum at or after t.
func AtTime(t timing.VTimeInSec) Condition {
	done := false

	return ConditionFuncs{
		CheckTimeFunc: func(_ model.Model, now timing.VTimeInSec) bool {
			if done || timing.Before(now, t) {
				return false
			}

			done = true

			return true
		},
	}
}
