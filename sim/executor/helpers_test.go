package executor

import (
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/timing"
)

// relay waits in IDLE until a message arrives, then forwards it after delay.
type relay struct {
	model.AtomicBase

	onExternal model.Reschedule
	held       []any
	log        *[]string
}

func newRelay(name string, delay timing.VTimeInSec, log *[]string) *relay {
	r := &relay{
		AtomicBase: model.MakeAtomicBase(name),
		onExternal: model.Recompute,
		log:        log,
	}
	r.InsertInputPort("in")
	r.InsertOutputPort("out")
	r.InsertState("IDLE", timing.Infinity)
	r.InsertState("BUSY", delay)
	r.SetState("IDLE")

	return r
}

func (r *relay) ExternalTransition(_ string, msg *model.Message) model.Reschedule {
	r.held = append(r.held, msg.Retrieve()...)
	r.SetState("BUSY")

	return r.onExternal
}

func (r *relay) InternalTransition() {
	r.held = nil
	r.SetState("IDLE")
}

func (r *relay) Output() []*model.Message {
	if r.log != nil {
		*r.log = append(*r.log, r.Name())
	}

	return []*model.Message{r.NewMessage("out", r.held...)}
}

// pipe is a coupled model wrapping two relays in series.
type pipe struct {
	model.CoupledBase
}

func newPipe(name string, log *[]string) (*pipe, *relay, *relay) {
	p := &pipe{CoupledBase: model.MakeCoupledBase(name)}
	p.InsertInputPort("in")
	p.InsertOutputPort("out")

	first := newRelay("first", 1, log)
	second := newRelay("second", 2, log)

	mustSucceed(p.AddChild(first))
	mustSucceed(p.AddChild(second))
	mustSucceed(p.Couple(name, "in", "first", "in"))
	mustSucceed(p.Couple("first", "out", "second", "in"))
	mustSucceed(p.Couple("second", "out", name, "out"))

	return p, first, second
}

func mustSucceed(err error) {
	if err != nil {
		panic(err)
	}
}

// rootScope is a minimal top-level scope that records what leaves it.
type rootScope struct {
	now       timing.VTimeInSec
	members   map[string]Executor
	couplings *model.CouplingTable
	boundary  []*model.Message
	uncaught  []*model.Message
	events    []RouteEvent
	logger    *logrus.Logger
}

func newRootScope() *rootScope {
	logger, _ := test.NewNullLogger()

	return &rootScope{
		members:   make(map[string]Executor),
		couplings: model.NewCouplingTable(),
		logger:    logger,
	}
}

func (s *rootScope) CurrentTime() timing.VTimeInSec { return s.now }
func (s *rootScope) Name() string                   { return "root" }
func (s *rootScope) Factory() Factory               { return DefaultFactory{} }
func (s *rootScope) Logger() logrus.FieldLogger     { return s.logger }
func (s *rootScope) Reschedule(Executor)            {}
func (s *rootScope) Observe(ev RouteEvent)          { s.events = append(s.events, ev) }

func (s *rootScope) Lookup(name string) (Executor, bool) {
	e, found := s.members[name]
	return e, found
}

func (s *rootScope) Deliver(msg *model.Message) error {
	return Route(s, s.couplings, msg)
}

func (s *rootScope) EmitBoundary(msg *model.Message) error {
	s.boundary = append(s.boundary, msg)
	return nil
}

func (s *rootScope) Uncaught(msg *model.Message) {
	s.uncaught = append(s.uncaught, msg)
}
