package executor

import (
	"github.com/sarchlab/devskit/sim/naming"
	"github.com/sarchlab/devskit/sim/timing"
)

// A Wrapper decorates another executor.
type Wrapper interface {
	Inner() Executor
}

// Unwrap strips every decorator around e.
func Unwrap(e Executor) Executor {
	for {
		w, ok := e.(Wrapper)
		if !ok {
			return e
		}

		e = w.Inner()
	}
}

// RequestTimes returns the pending request time of every atomic executor at
// or below e, keyed by path. A path is the model name, prefixed by the
// names of the enclosing coupled models and naming.Separator.
func RequestTimes(e Executor) map[string]timing.VTimeInSec {
	times := make(map[string]timing.VTimeInSec)
	collectRequestTimes(e, "", times)

	return times
}

func collectRequestTimes(
	e Executor,
	prefix string,
	times map[string]timing.VTimeInSec,
) {
	path := prefix + e.Name()

	if c, ok := Unwrap(e).(*CoupledExecutor); ok {
		for _, child := range c.order {
			collectRequestTimes(child, path+naming.Separator, times)
		}

		return
	}

	times[path] = e.RequestTime()
}

// Resume initializes e at now and then moves every atomic executor listed in
// times back to its recorded request time. Executors missing from times keep
// the request time computed by Init.
func Resume(
	e Executor,
	now timing.VTimeInSec,
	times map[string]timing.VTimeInSec,
) error {
	err := e.Init(now)
	if err != nil {
		return err
	}

	applyRequestTimes(e, "", times)

	return nil
}

func applyRequestTimes(
	e Executor,
	prefix string,
	times map[string]timing.VTimeInSec,
) {
	path := prefix + e.Name()

	switch x := Unwrap(e).(type) {
	case *CoupledExecutor:
		for _, child := range x.order {
			applyRequestTimes(child, path+naming.Separator, times)
			x.queue.Push(child)
		}
	case *AtomicExecutor:
		if t, found := times[path]; found {
			x.request = t
		}
	}
}
