package timing

import "container/heap"

// Schedulable is anything that can be ordered by the schedule queue.
type Schedulable interface {
	// ID is the tie-breaker of two items that request the same time.
	ID() uint64

	// RequestTime is the absolute time the item next wants to act.
	RequestTime() VTimeInSec
}

type scheduleEntry struct {
	time VTimeInSec
	id   uint64
	seq  uint64
	item Schedulable
}

type scheduleHeap []scheduleEntry

func (h scheduleHeap) Len() int {
	return len(h)
}

func (h scheduleHeap) Less(i, j int) bool {
	if !Equal(h[i].time, h[j].time) {
		return h[i].time < h[j].time
	}

	if h[i].id != h[j].id {
		return h[i].id < h[j].id
	}

	return h[i].seq < h[j].seq
}

func (h scheduleHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *scheduleHeap) Push(x interface{}) {
	*h = append(*h, x.(scheduleEntry))
}

func (h *scheduleHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = scheduleEntry{}
	*h = old[0 : n-1]

	return e
}

// ScheduleQueue orders items by (request time, identity). The request time
// is captured when the item is pushed. Pushing the same identity again
// supersedes the earlier registration, and Remove only forgets the
// registration. Superseded heap entries stay in place and are skipped when
// they reach the top.
//
// A ScheduleQueue is not safe for concurrent use.
type ScheduleQueue struct {
	entries scheduleHeap
	latest  map[uint64]uint64
	nextSeq uint64
}

// NewScheduleQueue creates an empty queue.
func NewScheduleQueue() *ScheduleQueue {
	return &ScheduleQueue{
		latest: make(map[uint64]uint64),
	}
}

// Push registers the item at its current request time.
func (q *ScheduleQueue) Push(item Schedulable) {
	q.nextSeq++

	e := scheduleEntry{
		time: item.RequestTime(),
		id:   item.ID(),
		seq:  q.nextSeq,
		item: item,
	}

	q.latest[e.id] = e.seq
	heap.Push(&q.entries, e)
}

// Remove forgets the registration of the item, if any.
func (q *ScheduleQueue) Remove(item Schedulable) {
	delete(q.latest, item.ID())
}

// Contains tells if the item currently has a live registration.
func (q *ScheduleQueue) Contains(item Schedulable) bool {
	_, ok := q.latest[item.ID()]
	return ok
}

// Len returns the number of live registrations.
func (q *ScheduleQueue) Len() int {
	return len(q.latest)
}

// Peek returns the earliest item without removing it.
func (q *ScheduleQueue) Peek() (Schedulable, bool) {
	q.dropStale()

	if len(q.entries) == 0 {
		return nil, false
	}

	return q.entries[0].item, true
}

// PeekTime returns the time registered by the earliest item, or Infinity if
// the queue is empty.
func (q *ScheduleQueue) PeekTime() VTimeInSec {
	q.dropStale()

	if len(q.entries) == 0 {
		return Infinity
	}

	return q.entries[0].time
}

// Pop removes and returns the earliest item.
func (q *ScheduleQueue) Pop() (Schedulable, bool) {
	q.dropStale()

	if len(q.entries) == 0 {
		return nil, false
	}

	e := heap.Pop(&q.entries).(scheduleEntry)
	delete(q.latest, e.id)

	return e.item, true
}

// Items returns the live items in queue order. It does not modify the
// queue.
func (q *ScheduleQueue) Items() []Schedulable {
	live := make(scheduleHeap, 0, len(q.latest))
	for _, e := range q.entries {
		if q.isLive(e) {
			live = append(live, e)
		}
	}

	heap.Init(&live)

	items := make([]Schedulable, 0, len(live))
	for live.Len() > 0 {
		items = append(items, heap.Pop(&live).(scheduleEntry).item)
	}

	return items
}

func (q *ScheduleQueue) isLive(e scheduleEntry) bool {
	seq, ok := q.latest[e.id]
	return ok && seq == e.seq
}

func (q *ScheduleQueue) dropStale() {
	for len(q.entries) > 0 && !q.isLive(q.entries[0]) {
		heap.Pop(&q.entries)
	}
}
