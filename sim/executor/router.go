package executor

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/timing"
)

// A Scope is the set of executors that share one coupling table: the
// top-level kernel, or the children of one coupled model.
type Scope interface {
	timing.TimeTeller

	// Name names the scope. Messages leaving the scope are re-tagged with
	// it.
	Name() string

	// Factory creates the executors of nested models.
	Factory() Factory

	Logger() logrus.FieldLogger

	// Lookup finds an active member by model name.
	Lookup(name string) (Executor, bool)

	// Reschedule re-registers a member whose request time has changed.
	Reschedule(e Executor)

	// Deliver routes a message emitted by a member.
	Deliver(msg *model.Message) error

	// EmitBoundary takes a message that leaves the scope through one of its
	// output ports.
	EmitBoundary(msg *model.Message) error

	// Uncaught absorbs a message that matches no coupling.
	Uncaught(msg *model.Message)

	// Observe is told about every routing decision.
	Observe(ev RouteEvent)
}

// RouteOutcome tells what happened to a routed message.
type RouteOutcome int

// The outcomes of routing.
const (
	RouteDelivered RouteOutcome = iota
	RouteBoundary
	RouteUncaught
	RouteInactive
)

func (o RouteOutcome) String() string {
	switch o {
	case RouteDelivered:
		return "delivered"
	case RouteBoundary:
		return "boundary"
	case RouteUncaught:
		return "uncaught"
	case RouteInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// A RouteEvent describes one routing decision.
type RouteEvent struct {
	Scope   string
	Time    timing.VTimeInSec
	Msg     *model.Message
	Dst     model.Endpoint
	Outcome RouteOutcome
}

// Route sends a message along the couplings that start at its source port.
//
// A destination on the boundary re-tags a copy with the scope name and the
// boundary port and hands it to the scope. Any other destination receives a
// copy through its external transition and is rescheduled immediately, so a
// message can pre-empt a pending request within the same instant. A message
// that matches no coupling goes to the scope's catch-all.
func Route(s Scope, table *model.CouplingTable, msg *model.Message) error {
	now := s.CurrentTime()
	src := model.Endpoint{Model: msg.Src, Port: msg.Port}
	dsts := table.Destinations(src)

	if len(dsts) == 0 {
		s.Observe(RouteEvent{
			Scope: s.Name(), Time: now, Msg: msg, Outcome: RouteUncaught,
		})
		s.Uncaught(msg)

		return nil
	}

	for _, dst := range dsts {
		out := msg.Clone()

		if dst.IsBoundary() {
			out.Src = s.Name()
			out.Port = dst.Port

			s.Observe(RouteEvent{
				Scope: s.Name(), Time: now, Msg: out, Dst: dst,
				Outcome: RouteBoundary,
			})

			err := s.EmitBoundary(out)
			if err != nil {
				return err
			}

			continue
		}

		e, found := s.Lookup(dst.Model)
		if !found {
			s.Logger().WithFields(logrus.Fields{
				"scope": s.Name(),
				"time":  now,
				"src":   src.String(),
				"dst":   dst.String(),
			}).Debug("destination not active, message ignored")
			s.Observe(RouteEvent{
				Scope: s.Name(), Time: now, Msg: out, Dst: dst,
				Outcome: RouteInactive,
			})

			continue
		}

		s.Observe(RouteEvent{
			Scope: s.Name(), Time: now, Msg: out, Dst: dst,
			Outcome: RouteDelivered,
		})

		r, err := e.ExternalTransition(dst.Port, out)
		if err != nil {
			return err
		}

		err = e.UpdateRequestTime(now, r)
		if err != nil {
			return err
		}

		s.Reschedule(e)
	}

	return nil
}
