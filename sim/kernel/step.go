package kernel

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/devskit/sim/executor"
	"github.com/sarchlab/devskit/sim/hooking"
	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/timing"
)

// Init moves the kernel from idle to running and activates the models whose
// creation time has arrived. Calling Init on a running kernel does nothing.
func (k *Kernel) Init() error {
	k.pauseLock.Lock()
	defer k.pauseLock.Unlock()

	return k.init()
}

func (k *Kernel) init() error {
	if k.initialized {
		return nil
	}

	k.initialized = true
	k.setStatus(StatusRunning)

	return k.promote(k.readNow())
}

// Step runs one quantum: activate models whose creation time has come,
// deliver due external events, process every executor due at this instant,
// advance the clock, destroy expired models, and pace to wall-clock time in
// real-time mode.
func (k *Kernel) Step() error {
	k.pauseLock.Lock()
	defer k.pauseLock.Unlock()

	return k.step()
}

func (k *Kernel) step() error {
	start := time.Now()

	err := k.init()
	if err != nil {
		return err
	}

	if k.Status() == StatusTerminated {
		k.setStatus(StatusRunning)
	}

	now := k.readNow()

	err = k.promote(now)
	if err != nil {
		return err
	}

	k.checkTime(now)

	err = k.deliverExternal(now)
	if err != nil {
		return err
	}

	err = k.drain(now)
	if err != nil {
		return err
	}

	next := now + k.resolution
	k.writeNow(next)
	k.destroyExpired(next)

	k.InvokeHook(hooking.HookCtx{
		Domain: k,
		Pos:    HookPosAfterStep,
		Item:   next,
	})

	k.metrics.observeStep(next, len(k.active), time.Since(start))

	if k.mode == RealTime {
		k.pace(start)
	}

	return nil
}

// Simulate steps the kernel until duration has elapsed. In virtual-time mode
// it stops early, with the kernel terminated, once nothing can happen any
// more.
func (k *Kernel) Simulate(duration timing.VTimeInSec) error {
	return k.SimulateContext(context.Background(), duration)
}

// SimulateContext is Simulate with cancellation checked between steps.
func (k *Kernel) SimulateContext(
	ctx context.Context,
	duration timing.VTimeInSec,
) error {
	target := k.readNow() + duration

	return k.RunWhile(ctx, func() bool {
		return timing.Before(k.readNow(), target)
	})
}

// RunWhile steps the kernel as long as keepGoing reports true. keepGoing is
// checked before every step, outside the step lock. In virtual-time mode it
// stops early, with the kernel terminated, once nothing can happen any
// more.
func (k *Kernel) RunWhile(ctx context.Context, keepGoing func() bool) error {
	err := k.Init()
	if err != nil {
		return err
	}

	for keepGoing() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if k.mode == VirtualTime && k.exhausted() {
			k.setStatus(StatusTerminated)
			k.logger.WithField("time", k.readNow()).
				Info("simulation terminated, nothing left to do")

			return nil
		}

		err = k.Step()
		if err != nil {
			return err
		}
	}

	return nil
}

// Exhausted reports whether nothing is left to happen: no waiting model, no
// pending external event and no scheduled transition.
func (k *Kernel) Exhausted() bool {
	k.pauseLock.Lock()
	defer k.pauseLock.Unlock()

	return k.exhausted()
}

func (k *Kernel) exhausted() bool {
	return len(k.waiting) == 0 &&
		k.pendingExternal() == 0 &&
		timing.IsInfinite(k.queue.PeekTime())
}

func (k *Kernel) promote(now timing.VTimeInSec) error {
	n := 0
	for n < len(k.waiting) &&
		!timing.Before(now, k.waiting[n].CreationTime()) {
		n++
	}

	if n == 0 {
		return nil
	}

	ready := k.waiting[:n]

	k.modelsLock.Lock()
	k.waiting = append([]executor.Executor(nil), k.waiting[n:]...)
	k.modelsLock.Unlock()

	for _, e := range ready {
		err := k.activate(e, now)
		if err != nil {
			return fmt.Errorf("activating %s: %w", e.Name(), err)
		}

		k.modelsLock.Lock()
		k.active[e.Name()] = e
		k.modelsLock.Unlock()
		k.queue.Push(e)

		k.logger.WithFields(logrus.Fields{
			"time":    now,
			"model":   e.Name(),
			"request": e.RequestTime(),
		}).Debug("model activated")
	}

	return nil
}

func (k *Kernel) activate(e executor.Executor, now timing.VTimeInSec) error {
	times, found := k.resumed[e.Name()]
	if !found {
		return e.Init(now)
	}

	delete(k.resumed, e.Name())

	return executor.Resume(e, now, times)
}

func (k *Kernel) checkTime(now timing.VTimeInSec) {
	for _, e := range k.queue.Items() {
		if o, ok := e.(executor.TimeObserver); ok {
			o.CheckTime(now)
		}
	}
}

func (k *Kernel) deliverExternal(now timing.VTimeInSec) error {
	for {
		k.externalLock.Lock()
		if k.external.Len() == 0 ||
			timing.Before(now, k.external[0].time) {
			k.externalLock.Unlock()
			return nil
		}

		evt := heap.Pop(&k.external).(externalEvent)
		k.externalLock.Unlock()

		err := executor.Route(k, k.couplings, evt.msg)
		if err != nil {
			return err
		}
	}
}

func (k *Kernel) isDue(t, now timing.VTimeInSec) bool {
	if k.duePolicy == DueCatchUp {
		return !timing.Before(now, t)
	}

	return timing.Equal(t, now)
}

func (k *Kernel) drain(now timing.VTimeInSec) error {
	defer k.restoreSetAside()

	count := 0

	for {
		item, found := k.queue.Peek()
		if !found {
			return nil
		}

		e := item.(executor.Executor)
		t := k.queue.PeekTime()

		if !k.isDue(t, now) {
			if timing.Before(t, now) {
				k.reportOffGrid(e, t, now)
				k.queue.Pop()
				k.setAside = append(k.setAside, e)

				continue
			}

			return nil
		}

		count++
		if k.maxEvents > 0 && count > k.maxEvents {
			return fmt.Errorf("%w: %d events at %v",
				ErrEventLimit, count-1, now)
		}

		k.queue.Pop()

		err := k.fire(e, now)
		if err != nil {
			return err
		}
	}
}

func (k *Kernel) fire(e executor.Executor, now timing.VTimeInSec) error {
	ctx := hooking.HookCtx{
		Domain: k,
		Pos:    HookPosBeforeInternal,
		Item:   e,
		Detail: now,
	}
	k.InvokeHook(ctx)

	msgs, err := e.Output()
	if err != nil {
		return fmt.Errorf("output of %s: %w", e.Name(), err)
	}

	for _, msg := range msgs {
		err = executor.Route(k, k.couplings, msg)
		if err != nil {
			return err
		}
	}

	err = e.InternalTransition()
	if err != nil {
		return fmt.Errorf("internal transition of %s: %w", e.Name(), err)
	}

	err = e.UpdateRequestTime(now, model.Recompute)
	if err != nil {
		return err
	}

	k.queue.Push(e)
	k.metrics.incTransition(k.name, "internal")

	ctx.Pos = HookPosAfterInternal
	k.InvokeHook(ctx)

	return nil
}

func (k *Kernel) reportOffGrid(
	e executor.Executor,
	t, now timing.VTimeInSec,
) {
	if k.offGrid[e.ID()] {
		return
	}

	k.offGrid[e.ID()] = true

	k.logger.WithFields(logrus.Fields{
		"time":       now,
		"model":      e.Name(),
		"request":    t,
		"resolution": k.resolution,
	}).Warn("request time is off the time grid and will not be processed")
}

func (k *Kernel) restoreSetAside() {
	for _, e := range k.setAside {
		if _, alive := k.active[e.Name()]; !alive {
			continue
		}

		if !k.queue.Contains(e) {
			k.queue.Push(e)
		}
	}

	k.setAside = k.setAside[:0]
}

func (k *Kernel) destroyExpired(now timing.VTimeInSec) {
	var expired []executor.Executor

	for _, e := range k.active {
		if !timing.Before(now, e.DestructionTime()) {
			expired = append(expired, e)
		}
	}

	sortExecutors(expired)

	for _, e := range expired {
		k.destroy(e)
	}
}

func (k *Kernel) pace(start time.Time) {
	quantum := time.Duration(k.resolution * float64(time.Second))

	delta := quantum - time.Since(start)
	if delta > 0 {
		time.Sleep(delta)
	}
}
