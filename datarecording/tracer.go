package datarecording

import (
	"fmt"

	"github.com/sarchlab/devskit/sim/executor"
	"github.com/sarchlab/devskit/sim/hooking"
	"github.com/sarchlab/devskit/sim/kernel"
)

// Kinds of message records besides the routing outcomes.
const (
	KindOutput = "output"
)

// MessageRecord is one row of a message trace.
type MessageRecord struct {
	Time    float64
	Kind    string
	Scope   string
	Src     string
	SrcPort string
	Dst     string
	DstPort string
	Payload string
}

// MessageTracer is a kernel hook that records every routing decision and
// every message that leaves the simulation.
type MessageTracer struct {
	recorder DataRecorder
	table    string
}

// NewMessageTracer creates the trace table and returns the hook.
func NewMessageTracer(recorder DataRecorder, table string) *MessageTracer {
	recorder.CreateTable(table, MessageRecord{})

	return &MessageTracer{recorder: recorder, table: table}
}

// Table returns the name of the trace table.
func (t *MessageTracer) Table() string {
	return t.table
}

// Func records routed, uncaught and outgoing messages.
func (t *MessageTracer) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case kernel.HookPosMsgRouted:
		ev, ok := ctx.Item.(executor.RouteEvent)
		if !ok {
			return
		}

		t.recorder.InsertData(t.table, MessageRecord{
			Time:    ev.Time,
			Kind:    ev.Outcome.String(),
			Scope:   ev.Scope,
			Src:     ev.Msg.Src,
			SrcPort: ev.Msg.Port,
			Dst:     ev.Dst.Model,
			DstPort: ev.Dst.Port,
			Payload: fmt.Sprint(ev.Msg.Payload...),
		})
	case kernel.HookPosBoundaryOutput:
		evt, ok := ctx.Item.(kernel.OutputEvent)
		if !ok {
			return
		}

		t.recorder.InsertData(t.table, MessageRecord{
			Time:    evt.Time,
			Kind:    KindOutput,
			Src:     evt.Msg.Src,
			SrcPort: evt.Port,
			Payload: fmt.Sprint(evt.Msg.Payload...),
		})
	}
}
