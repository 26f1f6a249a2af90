// Package notify owns the lifecycle of ephemeral user-facing events: toasts,
// "+XP" pop-ups and level-up celebrations. The queue is deliberately isolated
// from progression state; dropping an event can never corrupt the store.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification event.
type Kind string

const (
	KindToastSuccess Kind = "toast-success"
	KindToastError   Kind = "toast-error"
	KindXPGain       Kind = "xp-gain"
	KindLevelUp      Kind = "level-up"
)

// Default display durations, mirroring the web client's timers.
const (
	ToastDuration   = 5 * time.Second
	XPGainDuration  = 2300 * time.Millisecond
	LevelUpDuration = 10 * time.Second
)

// Event is a single ephemeral notification. Each event expires on its own
// timer, independent of every other event.
type Event struct {
	ID           string        `json:"id"`
	Kind         Kind          `json:"kind"`
	Message      string        `json:"message,omitempty"`
	XP           int           `json:"xp,omitempty"`
	Level        int           `json:"level,omitempty"`
	ActionID     string        `json:"action_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	ExpiresAfter time.Duration `json:"expires_after_ms"`
}

// Queue is an ordered, deduplicated collection of notification events.
type Queue struct {
	mu         sync.Mutex
	now        func() time.Time
	events     []*Event
	maxVisible int
	subs       map[int]chan Event
	nextSub    int
}

// NewQueue builds a queue using the supplied clock. Tests pass a fake clock
// so expiry can be simulated without real timers.
func NewQueue(now func() time.Time) *Queue {
	if now == nil {
		now = time.Now
	}
	return &Queue{
		now:        now,
		maxVisible: 20,
		subs:       make(map[int]chan Event),
	}
}

// Enqueue adds an event and returns its id. A second xp-gain for the same
// originating action coalesces into the existing un-expired event: XP sums
// and the earlier creation time is kept, so rapid gains never double-count
// visually.
func (q *Queue) Enqueue(e Event) string {
	q.mu.Lock()

	if e.Kind == KindXPGain && e.ActionID != "" {
		for _, existing := range q.events {
			if existing.Kind != KindXPGain || existing.ActionID != e.ActionID {
				continue
			}
			if q.expired(existing) {
				continue
			}
			existing.XP += e.XP
			id := existing.ID
			coalesced := *existing
			q.mu.Unlock()
			q.publish(coalesced)
			return id
		}
	}

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = q.now()
	}
	if e.ExpiresAfter <= 0 {
		e.ExpiresAfter = defaultDuration(e.Kind)
	}
	stored := e
	q.events = append(q.events, &stored)
	q.mu.Unlock()

	q.publish(e)
	return e.ID
}

// Tick removes every event whose age exceeds its own expiry at the current
// clock reading and returns how many were dropped.
func (q *Queue) Tick() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.events[:0]
	dropped := 0
	for _, e := range q.events {
		if q.expired(e) {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	q.events = kept
	return dropped
}

// Remove dismisses an event explicitly, regardless of its expiry state.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.events {
		if e.ID == id {
			q.events = append(q.events[:i], q.events[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the visible, un-expired events in order of creation. The
// visible window is capped for UI sanity; older events still expire on their
// own timers.
func (q *Queue) List() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Event, 0, len(q.events))
	for _, e := range q.events {
		if q.expired(e) {
			continue
		}
		out = append(out, *e)
	}
	if len(out) > q.maxVisible {
		out = out[len(out)-q.maxVisible:]
	}
	return out
}

// Subscribe returns a channel that receives every enqueued (or coalesced)
// event, plus a cancel function. Slow subscribers miss events rather than
// blocking the queue.
func (q *Queue) Subscribe() (<-chan Event, func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := q.nextSub
	q.nextSub++
	ch := make(chan Event, 16)
	q.subs[id] = ch

	cancel := func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if existing, ok := q.subs[id]; ok {
			delete(q.subs, id)
			close(existing)
		}
	}
	return ch, cancel
}

func (q *Queue) publish(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, ch := range q.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (q *Queue) expired(e *Event) bool {
	return q.now().Sub(e.CreatedAt) > e.ExpiresAfter
}

func defaultDuration(k Kind) time.Duration {
	switch k {
	case KindXPGain:
		return XPGainDuration
	case KindLevelUp:
		return LevelUpDuration
	default:
		return ToastDuration
	}
}
