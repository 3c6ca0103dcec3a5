// Implements the EventQueue, a time-ordered priority queue of simulation events.

package sim

import "container/heap"

// queuedEvent pairs an event with the sequence number it was pushed with.
type queuedEvent struct {
	ev  Event
	seq uint64
}

// eventHeap implements heap.Interface.
// Ordering: timestamp → push sequence, so equal timestamps pop first-in first-out.
type eventHeap []queuedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].ev.Timestamp() != h[j].ev.Timestamp() {
		return h[i].ev.Timestamp() < h[j].ev.Timestamp()
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(queuedEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = queuedEvent{}
	*h = old[0 : n-1]
	return item
}

// EventQueue is a priority queue of events. The front of the queue is always
// the event to happen next. Not safe for concurrent use.
type EventQueue struct {
	events  eventHeap
	nextSeq uint64
}

// NewEventQueue creates an empty EventQueue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{events: make(eventHeap, 0)}
	heap.Init(&q.events)
	return q
}

// Push inserts an event in O(log n).
func (q *EventQueue) Push(ev Event) {
	heap.Push(&q.events, queuedEvent{ev: ev, seq: q.nextSeq})
	q.nextSeq++
}

// PopMin removes and returns the earliest event, or ErrEmptyQueue.
func (q *EventQueue) PopMin() (Event, error) {
	if len(q.events) == 0 {
		return nil, ErrEmptyQueue
	}
	return heap.Pop(&q.events).(queuedEvent).ev, nil
}

// Peek returns the earliest event without removing it, or nil if empty.
func (q *EventQueue) Peek() Event {
	if len(q.events) == 0 {
		return nil
	}
	return q.events[0].ev
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	return len(q.events)
}
