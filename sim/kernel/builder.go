package kernel

import (
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/devskit/sim/executor"
	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/timing"
)

// Builder can build kernels.
type Builder struct {
	name          string
	resolution    timing.VTimeInSec
	startTime     timing.VTimeInSec
	mode          Mode
	duePolicy     DuePolicy
	factory       executor.Factory
	logger        logrus.FieldLogger
	registerer    prometheus.Registerer
	maxEvents     int
	signalHandler bool
}

// MakeBuilder creates a builder with default parameters: a virtual-time
// kernel with a resolution of 1, exact due times, and the signal handler
// installed.
func MakeBuilder() Builder {
	return Builder{
		name:          "kernel",
		resolution:    1,
		mode:          VirtualTime,
		duePolicy:     DueExact,
		factory:       executor.DefaultFactory{},
		logger:        logrus.StandardLogger(),
		signalHandler: true,
	}
}

// WithName sets the name of the kernel. Messages that leave the simulation
// carry it as their source.
func (b Builder) WithName(name string) Builder {
	b.name = name
	return b
}

// WithTimeResolution sets how far the clock advances in one step.
func (b Builder) WithTimeResolution(resolution timing.VTimeInSec) Builder {
	b.resolution = resolution
	return b
}

// WithStartTime sets the initial clock value.
func (b Builder) WithStartTime(t timing.VTimeInSec) Builder {
	b.startTime = t
	return b
}

// WithRealTime paces every step to wall-clock time.
func (b Builder) WithRealTime() Builder {
	b.mode = RealTime
	return b
}

// WithVirtualTime runs steps as fast as possible.
func (b Builder) WithVirtualTime() Builder {
	b.mode = VirtualTime
	return b
}

// WithMode sets the execution mode.
func (b Builder) WithMode(mode Mode) Builder {
	b.mode = mode
	return b
}

// WithDuePolicy sets how request times are compared with the clock.
func (b Builder) WithDuePolicy(p DuePolicy) Builder {
	b.duePolicy = p
	return b
}

// WithFactory sets the factory that creates executors.
func (b Builder) WithFactory(f executor.Factory) Builder {
	b.factory = f
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger logrus.FieldLogger) Builder {
	b.logger = logger
	return b
}

// WithMetrics registers the kernel metrics against reg.
func (b Builder) WithMetrics(reg prometheus.Registerer) Builder {
	b.registerer = reg
	return b
}

// WithMaxEventsPerStep makes a step fail once it has processed n events at
// the same instant, which catches zero-delay cycles. Zero means unlimited.
func (b Builder) WithMaxEventsPerStep(n int) Builder {
	b.maxEvents = n
	return b
}

// WithoutSignalHandler skips installing the interrupt handler.
func (b Builder) WithoutSignalHandler() Builder {
	b.signalHandler = false
	return b
}

// Factory returns the executor factory the builder will use.
func (b Builder) Factory() executor.Factory {
	return b.factory
}

// Build creates a new kernel.
func (b Builder) Build() *Kernel {
	if b.resolution <= 0 {
		log.Panic("time resolution must be positive")
	}

	k := &Kernel{
		name:       b.name,
		resolution: b.resolution,
		startTime:  b.startTime,
		now:        b.startTime,
		mode:       b.mode,
		duePolicy:  b.duePolicy,
		factory:    b.factory,
		logger:     b.logger.WithField("kernel", b.name),
		maxEvents:  b.maxEvents,
	}

	if b.registerer != nil {
		metrics, err := NewMetrics(b.registerer)
		if err != nil {
			log.Panic(err)
		}

		k.metrics = metrics
	}

	k.reset()

	if b.signalHandler {
		installSignalHandler(k.logger)
	}

	return k
}

// NewKernel builds a kernel with default parameters.
func NewKernel() *Kernel {
	return MakeBuilder().Build()
}

var _ executor.Scope = (*Kernel)(nil)
var _ model.Atomic = (*MessageCatcher)(nil)
