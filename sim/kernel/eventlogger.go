package kernel

import (
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/devskit/sim/executor"
	"github.com/sarchlab/devskit/sim/hooking"
)

// EventLogger is a hook that writes every transition and routing decision
// into a logger at debug level.
type EventLogger struct {
	logger logrus.FieldLogger
}

// NewEventLogger returns a new EventLogger which will write into the logger.
func NewEventLogger(logger logrus.FieldLogger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Func writes the event information into the logger.
func (h *EventLogger) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case HookPosBeforeInternal:
		e, ok := ctx.Item.(executor.Executor)
		if !ok {
			return
		}

		h.logger.WithFields(logrus.Fields{
			"time":  ctx.Detail,
			"model": e.Name(),
		}).Debug("internal transition")
	case HookPosMsgRouted:
		ev, ok := ctx.Item.(executor.RouteEvent)
		if !ok {
			return
		}

		h.logger.WithFields(logrus.Fields{
			"time":    ev.Time,
			"scope":   ev.Scope,
			"msg":     ev.Msg.String(),
			"dst":     ev.Dst.String(),
			"outcome": ev.Outcome.String(),
		}).Debug("message routed")
	case HookPosBoundaryOutput:
		evt, ok := ctx.Item.(OutputEvent)
		if !ok {
			return
		}

		h.logger.WithFields(logrus.Fields{
			"time": evt.Time,
			"port": evt.Port,
			"msg":  evt.Msg.String(),
		}).Debug("message left the simulation")
	}
}
