// Package id provides the identities used to break ties between models that
// want to act at the same simulated time.
package id

import (
	"sync/atomic"

	"github.com/rs/xid"
)

// A Generator hands out monotonically increasing identities.
type Generator interface {
	// Next returns the next identity. Identities start at 1.
	Next() uint64

	// Reset restarts the sequence so that the next identity is 1 again.
	Reset()
}

// NewGenerator returns a generator that is independent from the process-wide
// one.
func NewGenerator() Generator {
	return &sequentialGenerator{}
}

type sequentialGenerator struct {
	last uint64
}

func (g *sequentialGenerator) Next() uint64 {
	return atomic.AddUint64(&g.last, 1)
}

func (g *sequentialGenerator) Reset() {
	atomic.StoreUint64(&g.last, 0)
}

var global = &sequentialGenerator{}

// Next returns the next process-wide identity. Models acquire their identity
// when they are constructed, so construction order defines tie-breaking order.
func Next() uint64 {
	return global.Next()
}

// Reset restarts the process-wide identity sequence. It exists so that tests
// and replications can start from a known state.
func Reset() {
	global.Reset()
}

// NewRunID returns a globally unique identifier for a simulation run or a
// snapshot. Unlike model identities, run IDs are not ordered.
func NewRunID() string {
	return xid.New().String()
}
