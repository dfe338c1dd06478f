package hooking

import "sync"

// A PositionCounter counts how many times each hook position fires. It is
// handy for quick statistics (how many internal transitions ran, how many
// messages were routed) without writing a dedicated hook.
type PositionCounter struct {
	lock   sync.Mutex
	filter func(ctx HookCtx) bool
	counts map[string]uint64
}

// NewPositionCounter creates a counter. A nil filter counts everything.
func NewPositionCounter(filter func(ctx HookCtx) bool) *PositionCounter {
	return &PositionCounter{
		filter: filter,
		counts: make(map[string]uint64),
	}
}

// Func counts the invocation.
func (c *PositionCounter) Func(ctx HookCtx) {
	if c.filter != nil && !c.filter(ctx) {
		return
	}

	c.lock.Lock()
	c.counts[ctx.Pos.Name]++
	c.lock.Unlock()
}

// Count returns how many times the given position fired.
func (c *PositionCounter) Count(pos *HookPos) uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.counts[pos.Name]
}

// Counts returns a copy of all the counters, keyed by position name.
func (c *PositionCounter) Counts() map[string]uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()

	out := make(map[string]uint64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}

	return out
}
