// Package kernel implements the system executor: the owner of the global
// clock, the top-level schedule queue, entity lifecycle, the top-level
// coupling table, and external event injection.
package kernel

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/devskit/sim/executor"
	"github.com/sarchlab/devskit/sim/hooking"
	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/naming"
	"github.com/sarchlab/devskit/sim/timing"
)

var (
	// ErrDuplicateModel is returned when a model name is registered twice.
	ErrDuplicateModel = errors.New("duplicate model")

	// ErrReservedName is returned when a model uses the name of the
	// catch-all sink.
	ErrReservedName = errors.New("reserved model name")

	// ErrEventLimit is returned when a step exceeds the configured number
	// of events at one instant.
	ErrEventLimit = errors.New("too many events at one instant")
)

// Status is the lifecycle state of a kernel.
type Status int

// The states of a kernel.
const (
	StatusIdle Status = iota
	StatusRunning
	StatusPaused
	StatusTerminated
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Mode tells whether steps are paced to wall-clock time.
type Mode int

// The execution modes.
const (
	VirtualTime Mode = iota
	RealTime
)

func (m Mode) String() string {
	if m == RealTime {
		return "real-time"
	}

	return "virtual-time"
}

// DuePolicy decides when a request time counts as due.
type DuePolicy int

const (
	// DueExact processes a request only when it equals the clock within
	// timing.Epsilon. A request that falls between two grid points is never
	// due. It is reported once and left pending.
	DueExact DuePolicy = iota

	// DueCatchUp processes every request at or before the clock.
	DueCatchUp
)

func (p DuePolicy) String() string {
	if p == DueCatchUp {
		return "catch-up"
	}

	return "exact"
}

// An OutputEvent is a message that left the simulation through a kernel
// output port.
type OutputEvent struct {
	Time timing.VTimeInSec
	Port string
	Msg  *model.Message
}

type externalEvent struct {
	time timing.VTimeInSec
	seq  uint64
	msg  *model.Message
}

type externalHeap []externalEvent

func (h externalHeap) Len() int { return len(h) }

func (h externalHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}

	return h[i].seq < h[j].seq
}

func (h externalHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *externalHeap) Push(x interface{}) {
	*h = append(*h, x.(externalEvent))
}

func (h *externalHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[0 : n-1]

	return e
}

// A Kernel runs a simulation. Apart from external event injection, the
// read-only accessors and Inspect, a kernel is driven by a single goroutine.
type Kernel struct {
	hooking.HookableBase

	name       string
	resolution timing.VTimeInSec
	startTime  timing.VTimeInSec
	mode       Mode
	duePolicy  DuePolicy
	factory    executor.Factory
	logger     logrus.FieldLogger
	metrics    *Metrics
	maxEvents  int

	timeLock sync.RWMutex
	now      timing.VTimeInSec

	statusLock sync.RWMutex
	status     Status

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	inputPorts  model.PortSet
	outputPorts model.PortSet
	couplings   *model.CouplingTable

	// modelsLock guards the membership of active and waiting. The stepping
	// goroutine reads them without the lock and writes them with it.
	modelsLock sync.RWMutex
	active     map[string]executor.Executor
	waiting    []executor.Executor
	queue      *timing.ScheduleQueue

	externalLock sync.Mutex
	external     externalHeap
	externalSeq  uint64

	outputLock sync.Mutex
	outputs    []OutputEvent

	initialized bool
	catcher     *MessageCatcher
	offGrid     map[uint64]bool
	setAside    []executor.Executor
	resumed     map[string]map[string]timing.VTimeInSec
}

func (k *Kernel) reset() {
	k.writeNow(k.startTime)
	k.setStatus(StatusIdle)

	k.couplings = model.NewCouplingTable()
	k.modelsLock.Lock()
	k.active = make(map[string]executor.Executor)
	k.waiting = nil
	k.modelsLock.Unlock()
	k.queue = timing.NewScheduleQueue()

	k.externalLock.Lock()
	k.external = nil
	k.externalLock.Unlock()

	k.outputLock.Lock()
	k.outputs = nil
	k.outputLock.Unlock()

	if k.catcher == nil {
		k.catcher = NewMessageCatcher()
	} else {
		k.catcher.reset()
	}

	k.initialized = false
	k.offGrid = make(map[uint64]bool)
	k.setAside = nil
	k.resumed = make(map[string]map[string]timing.VTimeInSec)
}

// Name returns the name of the kernel.
func (k *Kernel) Name() string {
	return k.name
}

func (k *Kernel) readNow() timing.VTimeInSec {
	k.timeLock.RLock()
	t := k.now
	k.timeLock.RUnlock()

	return t
}

func (k *Kernel) writeNow(t timing.VTimeInSec) {
	k.timeLock.Lock()
	k.now = t
	k.timeLock.Unlock()
}

// CurrentTime returns the global clock.
func (k *Kernel) CurrentTime() timing.VTimeInSec {
	return k.readNow()
}

// Now is an alias of CurrentTime.
func (k *Kernel) Now() timing.VTimeInSec {
	return k.readNow()
}

// TimeResolution returns how far the clock advances in one step.
func (k *Kernel) TimeResolution() timing.VTimeInSec {
	return k.resolution
}

// Mode returns the execution mode.
func (k *Kernel) Mode() Mode {
	return k.mode
}

// Status returns the lifecycle state.
func (k *Kernel) Status() Status {
	k.statusLock.RLock()
	defer k.statusLock.RUnlock()

	return k.status
}

func (k *Kernel) setStatus(s Status) {
	k.statusLock.Lock()
	k.status = s
	k.statusLock.Unlock()
}

// IsTerminated tells if the kernel has run out of things to do.
func (k *Kernel) IsTerminated() bool {
	return k.Status() == StatusTerminated
}

// InsertInputPort declares a port through which external events enter.
func (k *Kernel) InsertInputPort(port string) {
	k.inputPorts.Add(port)
}

// InsertOutputPort declares a port through which messages leave.
func (k *Kernel) InsertOutputPort(port string) {
	k.outputPorts.Add(port)
}

// InputPorts returns the kernel input ports.
func (k *Kernel) InputPorts() []string {
	return k.inputPorts.Names()
}

// OutputPorts returns the kernel output ports.
func (k *Kernel) OutputPorts() []string {
	return k.outputPorts.Names()
}

// BoundaryPorts returns the kernel input ports and output ports.
func (k *Kernel) BoundaryPorts() (inputs, outputs []string) {
	return k.inputPorts.Names(), k.outputPorts.Names()
}

// RegisterEntity adds a model to the simulation. The model becomes active at
// the first step at or after the creation time and is destroyed at the first
// step at or after the destruction time. Both times are absolute.
func (k *Kernel) RegisterEntity(
	m model.Model,
	creation, destruction timing.VTimeInSec,
) error {
	_, err := k.register(m, creation, destruction)
	return err
}

// ResumeEntity registers a model that continues an earlier run. It becomes
// active like any other model, but its executors take their request times
// from times, keyed as executor.RequestTimes returns them, instead of
// computing them from the model state.
func (k *Kernel) ResumeEntity(
	m model.Model,
	creation, destruction timing.VTimeInSec,
	times map[string]timing.VTimeInSec,
) error {
	e, err := k.register(m, creation, destruction)
	if err != nil {
		return err
	}

	if len(times) > 0 {
		k.resumed[e.Name()] = times
	}

	return nil
}

func (k *Kernel) register(
	m model.Model,
	creation, destruction timing.VTimeInSec,
) (executor.Executor, error) {
	if err := naming.ValidateName(m.Name()); err != nil {
		return nil, err
	}

	if m.Name() == CatcherName {
		return nil, fmt.Errorf("%w: %s", ErrReservedName, m.Name())
	}

	if _, found := k.GetEntity(m.Name()); found {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateModel, m.Name())
	}

	e, err := k.factory.CreateExecutor(m, creation, destruction, k)
	if err != nil {
		return nil, fmt.Errorf("creating executor of %s: %w", m.Name(), err)
	}

	k.modelsLock.Lock()
	waiting := append(append([]executor.Executor(nil), k.waiting...), e)
	sort.SliceStable(waiting, func(i, j int) bool {
		a, b := waiting[i], waiting[j]
		if a.CreationTime() != b.CreationTime() {
			return a.CreationTime() < b.CreationTime()
		}

		return a.ID() < b.ID()
	})
	k.waiting = waiting
	k.modelsLock.Unlock()

	return e, nil
}

// Register adds a model that lives from the start to the end of the
// simulation.
func (k *Kernel) Register(m model.Model) error {
	return k.RegisterEntity(m, k.startTime, timing.Infinity)
}

// GetEntity finds the executor of a registered model, active or waiting.
func (k *Kernel) GetEntity(name string) (executor.Executor, bool) {
	k.modelsLock.RLock()
	defer k.modelsLock.RUnlock()

	if e, found := k.active[name]; found {
		return e, true
	}

	for _, e := range k.waiting {
		if e.Name() == name {
			return e, true
		}
	}

	return nil, false
}

// GetModel finds a registered model by name. The catch-all sink can be found
// under CatcherName.
func (k *Kernel) GetModel(name string) (model.Model, bool) {
	if name == CatcherName {
		return k.catcher, true
	}

	e, found := k.GetEntity(name)
	if !found {
		return nil, false
	}

	return e.Model(), true
}

// Catcher returns the catch-all sink.
func (k *Kernel) Catcher() *MessageCatcher {
	return k.catcher
}

// RemoveEntity destroys a model at once, dropping every coupling that names
// it.
func (k *Kernel) RemoveEntity(name string) bool {
	if e, found := k.active[name]; found {
		k.destroy(e)
		return true
	}

	for i, e := range k.waiting {
		if e.Name() == name {
			k.modelsLock.Lock()
			k.waiting = append(k.waiting[:i:i], k.waiting[i+1:]...)
			k.modelsLock.Unlock()
			delete(k.resumed, name)
			k.couplings.PurgeModel(name)

			return true
		}
	}

	return false
}

func (k *Kernel) destroy(e executor.Executor) {
	k.modelsLock.Lock()
	delete(k.active, e.Name())
	k.modelsLock.Unlock()
	k.queue.Remove(e)
	k.couplings.PurgeModel(e.Name())

	k.logger.WithFields(logrus.Fields{
		"time":  k.readNow(),
		"model": e.Name(),
	}).Debug("model destroyed")
}

// ActiveModels returns the active models in identity order.
func (k *Kernel) ActiveModels() []model.Model {
	k.modelsLock.RLock()
	defer k.modelsLock.RUnlock()

	return k.activeModels()
}

func (k *Kernel) activeModels() []model.Model {
	models := make([]model.Model, 0, len(k.active))
	for _, e := range k.active {
		models = append(models, e.Model())
	}

	sortByID(models)

	return models
}

// Models returns all registered models, active or waiting, in identity
// order. The catch-all sink is not included.
func (k *Kernel) Models() []model.Model {
	k.modelsLock.RLock()
	defer k.modelsLock.RUnlock()

	models := k.activeModels()
	for _, e := range k.waiting {
		models = append(models, e.Model())
	}

	sortByID(models)

	return models
}

func sortByID(models []model.Model) {
	sort.Slice(models, func(i, j int) bool {
		return models[i].ID() < models[j].ID()
	})
}

// CouplingRelation wires the output port of src to the input port of dst.
// Either side may be Boundary or the kernel's own name to reach the kernel
// ports.
func (k *Kernel) CouplingRelation(src, srcPort, dst, dstPort string) error {
	srcEnd, err := k.resolve(src, srcPort, true)
	if err != nil {
		return err
	}

	dstEnd, err := k.resolve(dst, dstPort, false)
	if err != nil {
		return err
	}

	k.couplings.Add(srcEnd, dstEnd)

	return nil
}

func (k *Kernel) resolve(name, port string, isSource bool) (model.Endpoint, error) {
	if name == k.name {
		name = model.Boundary
	}

	if name == model.Boundary {
		declared := k.outputPorts.Has(port)
		if isSource {
			declared = k.inputPorts.Has(port)
		}

		if !declared {
			return model.Endpoint{}, fmt.Errorf("%w: kernel %s has no port %s",
				model.ErrUnknownPort, k.name, port)
		}

		return model.Endpoint{Model: model.Boundary, Port: port}, nil
	}

	e, found := k.GetEntity(name)
	if !found {
		return model.Endpoint{}, fmt.Errorf("%w: %s", model.ErrUnknownModel, name)
	}

	declared := e.Model().HasInputPort(port)
	if isSource {
		declared = e.Model().HasOutputPort(port)
	}

	if !declared {
		return model.Endpoint{}, fmt.Errorf("%w: %s has no port %s",
			model.ErrUnknownPort, name, port)
	}

	return model.Endpoint{Model: name, Port: port}, nil
}

// RemoveRelation removes a coupling created by CouplingRelation.
func (k *Kernel) RemoveRelation(src, srcPort, dst, dstPort string) bool {
	if src == k.name {
		src = model.Boundary
	}

	if dst == k.name {
		dst = model.Boundary
	}

	return k.couplings.Remove(
		model.Endpoint{Model: src, Port: srcPort},
		model.Endpoint{Model: dst, Port: dstPort},
	)
}

// ResetRelation removes every coupling.
func (k *Kernel) ResetRelation() {
	k.couplings.Reset()
}

// Relations returns the top-level couplings in insertion order.
func (k *Kernel) Relations() []model.Coupling {
	return k.couplings.Entries()
}

// InsertExternalEvent schedules a message with a single payload item to
// enter through an input port after delay.
func (k *Kernel) InsertExternalEvent(
	port string,
	payload any,
	delay timing.VTimeInSec,
) error {
	return k.InsertCustomExternalEvent(port, []any{payload}, delay)
}

// InsertCustomExternalEvent schedules a message with several payload items
// to enter through an input port after delay. It is safe to call from any
// goroutine.
func (k *Kernel) InsertCustomExternalEvent(
	port string,
	payloads []any,
	delay timing.VTimeInSec,
) error {
	if !k.inputPorts.Has(port) {
		return fmt.Errorf("%w: kernel %s has no input port %s",
			model.ErrUnknownPort, k.name, port)
	}

	if delay < 0 {
		return fmt.Errorf("external event delay %v is negative", delay)
	}

	msg := model.NewMessage(model.Boundary, port).Extend(payloads...)
	at := k.readNow() + delay

	k.externalLock.Lock()
	k.externalSeq++
	heap.Push(&k.external, externalEvent{time: at, seq: k.externalSeq, msg: msg})
	k.externalLock.Unlock()

	return nil
}

func (k *Kernel) pendingExternal() int {
	k.externalLock.Lock()
	defer k.externalLock.Unlock()

	return k.external.Len()
}

// Outputs returns the messages that left the simulation so far without
// consuming them.
func (k *Kernel) Outputs() []OutputEvent {
	k.outputLock.Lock()
	defer k.outputLock.Unlock()

	out := make([]OutputEvent, len(k.outputs))
	copy(out, k.outputs)

	return out
}

// HandleExternalOutputEvents returns the messages that left the simulation
// since the last call and forgets them.
func (k *Kernel) HandleExternalOutputEvents() []OutputEvent {
	k.outputLock.Lock()
	defer k.outputLock.Unlock()

	out := k.outputs
	k.outputs = nil

	return out
}

// UncaughtStats returns what the catch-all sink absorbed, per source port.
func (k *Kernel) UncaughtStats() []UncaughtStat {
	return k.catcher.Stats()
}

// Pause stops the kernel from starting another step until Continue is
// called.
func (k *Kernel) Pause() {
	k.isPausedLock.Lock()
	defer k.isPausedLock.Unlock()

	if k.isPaused {
		return
	}

	k.pauseLock.Lock()
	k.isPaused = true
	k.setStatus(StatusPaused)
}

// Continue lets a paused kernel step again.
func (k *Kernel) Continue() {
	k.isPausedLock.Lock()
	defer k.isPausedLock.Unlock()

	if !k.isPaused {
		return
	}

	k.isPaused = false
	k.setStatus(StatusRunning)
	k.pauseLock.Unlock()
}

// Inspect runs f while no step is in progress, so that f may read model
// state. A paused kernel stays paused until f returns. Inspect must not be
// called from a hook.
func (k *Kernel) Inspect(f func()) {
	k.isPausedLock.Lock()
	defer k.isPausedLock.Unlock()

	if !k.isPaused {
		k.pauseLock.Lock()
		defer k.pauseLock.Unlock()
	}

	f()
}

// Stop discards every model, coupling and pending event and rewinds the
// clock. Declared kernel ports are kept.
func (k *Kernel) Stop() {
	k.pauseLock.Lock()
	defer k.pauseLock.Unlock()

	k.reset()
}

func sortExecutors(execs []executor.Executor) {
	sort.Slice(execs, func(i, j int) bool {
		return execs[i].ID() < execs[j].ID()
	})
}
