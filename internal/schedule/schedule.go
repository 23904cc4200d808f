// Package schedule implements the fixed-interval re-trigger queue for Short
// tasks that declare a schedule: a min-heap of due times, ordered the same
// deterministic way the rest of the engine orders work, backing a single
// timer that fires set_direct_on for whichever task comes due.
package schedule

import (
	"container/heap"
	"sync"
	"time"

	"github.com/demonhq/demon/internal/task"
)

type entry struct {
	due      time.Time
	id       task.ID
	interval time.Duration
	index    int
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].due.Before(h[j].due) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *entryHeap) Push(x any)         { e := x.(*entry); e.index = len(*h); *h = append(*h, e) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Notifier fires OnDue for every task whose schedule comes due.
type Notifier struct {
	mu     sync.Mutex
	heap   entryHeap
	wake   chan struct{}
	OnDue  func(task.ID)
}

// NewNotifier constructs an idle notifier; call Run in a goroutine to start
// dispatching.
func NewNotifier(onDue func(task.ID)) *Notifier {
	return &Notifier{wake: make(chan struct{}, 1), OnDue: onDue}
}

// Arm schedules id to fire repeatedly every interval, starting one interval
// from now.
func (n *Notifier) Arm(id task.ID, interval time.Duration) {
	if interval <= 0 {
		return
	}
	n.mu.Lock()
	heap.Push(&n.heap, &entry{due: time.Now().Add(interval), id: id, interval: interval})
	n.mu.Unlock()
	n.nudge()
}

// Disarm removes every scheduled entry for id (called on task deletion).
func (n *Notifier) Disarm(id task.ID) {
	n.mu.Lock()
	kept := n.heap[:0]
	for _, e := range n.heap {
		if e.id != id {
			kept = append(kept, e)
		}
	}
	n.heap = kept
	heap.Init(&n.heap)
	n.mu.Unlock()
}

func (n *Notifier) nudge() {
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// Run processes the schedule until stop is closed. It is meant to be
// selected alongside the supervisor's other event sources, but can also run
// as a free-standing goroutine since it blocks only on its own timer and a
// wake channel.
func (n *Notifier) Run(stop <-chan struct{}) {
	for {
		n.mu.Lock()
		var wait time.Duration
		if len(n.heap) == 0 {
			wait = 24 * time.Hour
		} else {
			wait = time.Until(n.heap[0].due)
			if wait < 0 {
				wait = 0
			}
		}
		n.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-n.wake:
			timer.Stop()
			continue
		case <-timer.C:
			n.fireDue()
		}
	}
}

func (n *Notifier) fireDue() {
	now := time.Now()
	var due []task.ID
	n.mu.Lock()
	for len(n.heap) > 0 && !n.heap[0].due.After(now) {
		e := heap.Pop(&n.heap).(*entry)
		due = append(due, e.id)
		e.due = now.Add(e.interval)
		heap.Push(&n.heap, e)
	}
	n.mu.Unlock()

	for _, id := range due {
		if n.OnDue != nil {
			n.OnDue(id)
		}
	}
}
