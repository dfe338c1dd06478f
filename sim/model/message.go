package model

import (
	"fmt"

	"github.com/sarchlab/devskit/sim/timing"
)

// Unscheduled marks a message that carries no scheduled time.
const Unscheduled timing.VTimeInSec = -1

// A Message is what models exchange through their ports. Src names the model
// that emitted it and Port the output port it left through.
type Message struct {
	Src     string
	Port    string
	Payload []any
	Time    timing.VTimeInSec
}

// NewMessage creates an empty, unscheduled message.
func NewMessage(src, port string) *Message {
	return &Message{
		Src:  src,
		Port: port,
		Time: Unscheduled,
	}
}

// Insert appends one item to the payload.
func (m *Message) Insert(item any) *Message {
	m.Payload = append(m.Payload, item)
	return m
}

// Extend appends several items to the payload.
func (m *Message) Extend(items ...any) *Message {
	m.Payload = append(m.Payload, items...)
	return m
}

// Retrieve returns the payload.
func (m *Message) Retrieve() []any {
	return m.Payload
}

// First returns the first payload item, or nil if the payload is empty.
func (m *Message) First() any {
	if len(m.Payload) == 0 {
		return nil
	}

	return m.Payload[0]
}

// WithTime returns the message stamped with a scheduled time.
func (m *Message) WithTime(t timing.VTimeInSec) *Message {
	m.Time = t
	return m
}

// IsScheduled tells if the message carries a scheduled time.
func (m *Message) IsScheduled() bool {
	return m.Time != Unscheduled
}

// Clone returns a copy with its own payload slice. Payload items are shared.
func (m *Message) Clone() *Message {
	c := *m
	c.Payload = make([]any, len(m.Payload))
	copy(c.Payload, m.Payload)

	return &c
}

func (m *Message) String() string {
	return fmt.Sprintf("%s.%s%v", m.Src, m.Port, m.Payload)
}
