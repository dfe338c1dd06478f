package kernel

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/devskit/sim/executor"
	"github.com/sarchlab/devskit/sim/hooking"
	"github.com/sarchlab/devskit/sim/model"
)

// Factory returns the factory that creates executors.
func (k *Kernel) Factory() executor.Factory {
	return k.factory
}

// Logger returns the kernel logger.
func (k *Kernel) Logger() logrus.FieldLogger {
	return k.logger
}

// Lookup finds an active top-level executor.
func (k *Kernel) Lookup(name string) (executor.Executor, bool) {
	e, found := k.active[name]
	return e, found
}

// Reschedule re-registers an executor after its request time changed.
func (k *Kernel) Reschedule(e executor.Executor) {
	if _, found := k.active[e.Name()]; !found {
		return
	}

	k.queue.Push(e)
}

// Deliver routes a message through the top-level couplings.
func (k *Kernel) Deliver(msg *model.Message) error {
	return executor.Route(k, k.couplings, msg)
}

// EmitBoundary records a message that leaves the simulation.
func (k *Kernel) EmitBoundary(msg *model.Message) error {
	if !k.outputPorts.Has(msg.Port) {
		return fmt.Errorf("%w: kernel %s has no output port %s",
			model.ErrUnknownPort, k.name, msg.Port)
	}

	evt := OutputEvent{
		Time: k.readNow(),
		Port: msg.Port,
		Msg:  msg.WithTime(k.readNow()),
	}

	k.outputLock.Lock()
	k.outputs = append(k.outputs, evt)
	k.outputLock.Unlock()

	k.InvokeHook(hooking.HookCtx{
		Domain: k,
		Pos:    HookPosBoundaryOutput,
		Item:   evt,
	})

	return nil
}

// Uncaught hands a message to the catch-all sink.
func (k *Kernel) Uncaught(msg *model.Message) {
	first := k.catcher.Record(msg)
	k.metrics.incUncaught(k.name, msg.Src, msg.Port)

	entry := k.logger.WithFields(logrus.Fields{
		"time": k.readNow(),
		"src":  msg.Src,
		"port": msg.Port,
	})

	if first {
		entry.Warn("message matches no coupling, sent to catch-all sink")
	} else {
		entry.Debug("uncaught message")
	}

	k.InvokeHook(hooking.HookCtx{
		Domain: k,
		Pos:    HookPosUncaught,
		Item:   msg,
	})
}

// Observe triggers the routing hooks.
func (k *Kernel) Observe(ev executor.RouteEvent) {
	if ev.Outcome == executor.RouteDelivered {
		k.metrics.incTransition(k.name, "external")
	}

	if k.NumHooks() == 0 {
		return
	}

	k.InvokeHook(hooking.HookCtx{
		Domain: k,
		Pos:    HookPosMsgRouted,
		Item:   ev,
	})

	if ev.Outcome == executor.RouteDelivered {
		k.InvokeHook(hooking.HookCtx{
			Domain: k,
			Pos:    HookPosBeforeExternal,
			Item:   ev,
		})
	}
}
