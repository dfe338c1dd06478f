package kernel

import (
	"sort"
	"sync"

	"github.com/sarchlab/devskit/sim/model"
	"github.com/sarchlab/devskit/sim/timing"
)

// CatcherName is the reserved name of the catch-all sink.
const CatcherName = "dc"

// CatcherPort is the port through which the catch-all sink receives
// messages.
const CatcherPort = "uncaught"

// UncaughtStat counts the messages absorbed from one source port.
type UncaughtStat struct {
	Src   string `json:"src"`
	Port  string `json:"port"`
	Count uint64 `json:"count"`
}

// A MessageCatcher absorbs messages that match no coupling. It never acts on
// its own, it only counts what it receives.
type MessageCatcher struct {
	model.AtomicBase

	lock   sync.Mutex
	counts map[model.Endpoint]uint64
	total  uint64
}

// NewMessageCatcher creates the catch-all sink.
func NewMessageCatcher() *MessageCatcher {
	c := &MessageCatcher{
		AtomicBase: model.MakeAtomicBase(CatcherName),
		counts:     make(map[model.Endpoint]uint64),
	}
	c.InsertInputPort(CatcherPort)
	c.InsertState("IDLE", timing.Infinity)
	c.SetState("IDLE")

	return c
}

// ExternalTransition counts the message.
func (c *MessageCatcher) ExternalTransition(
	_ string,
	msg *model.Message,
) model.Reschedule {
	c.Record(msg)
	return model.NoChange
}

// Record counts a message and tells if it is the first one seen from its
// source port.
func (c *MessageCatcher) Record(msg *model.Message) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	key := model.Endpoint{Model: msg.Src, Port: msg.Port}
	c.counts[key]++
	c.total++

	return c.counts[key] == 1
}

// InternalTransition does nothing.
func (c *MessageCatcher) InternalTransition() {}

// Output emits nothing.
func (c *MessageCatcher) Output() []*model.Message {
	return nil
}

// Total returns the number of absorbed messages.
func (c *MessageCatcher) Total() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.total
}

// Stats returns the counts per source port, sorted by source then port.
func (c *MessageCatcher) Stats() []UncaughtStat {
	c.lock.Lock()
	defer c.lock.Unlock()

	stats := make([]UncaughtStat, 0, len(c.counts))
	for k, v := range c.counts {
		stats = append(stats, UncaughtStat{Src: k.Model, Port: k.Port, Count: v})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Src != stats[j].Src {
			return stats[i].Src < stats[j].Src
		}

		return stats[i].Port < stats[j].Port
	})

	return stats
}

func (c *MessageCatcher) reset() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.counts = make(map[model.Endpoint]uint64)
	c.total = 0
}
