package engine

import (
	"sync"
	"time"

	"seatwatch/internal/studentapi"
)

// Notice records the last notification sent for one section.
type Notice struct {
	OpenSeats int
	SentAt    time.Time
}

// Gate decides whether a seat snapshot warrants a push notification. A
// section re-notifies immediately when its open-seat count changes, and
// otherwise only after the minimum re-notify interval has elapsed. State is
// held per class ID and mutated only by MarkNotified, so a failed send
// leaves the section armed for the next cycle. Safe for concurrent use.
type Gate struct {
	minRenotify time.Duration
	nowFunc     func() time.Time

	mu    sync.Mutex
	state map[string]Notice
}

// GateOption configures the Gate.
type GateOption func(*Gate)

// WithGateNowFunc overrides the time function for testing.
func WithGateNowFunc(f func() time.Time) GateOption {
	return func(g *Gate) {
		g.nowFunc = f
	}
}

// NewGate creates a Gate with the given minimum re-notify interval.
func NewGate(minRenotify time.Duration, opts ...GateOption) *Gate {
	g := &Gate{
		minRenotify: minRenotify,
		state:       make(map[string]Notice),
		nowFunc:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Admit reports whether a notification should fire for the snapshot.
func (g *Gate) Admit(snap studentapi.SeatSnapshot) bool {
	if !snap.Open() {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	prev, ok := g.state[snap.ClassID]
	if !ok {
		return true
	}
	if snap.OpenSeats() != prev.OpenSeats {
		return true
	}
	return g.nowFunc().Sub(prev.SentAt) >= g.minRenotify
}

// MarkNotified records a successful send for the section. Call it only
// after the notifier accepted the message.
func (g *Gate) MarkNotified(classID string, openSeats int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state[classID] = Notice{OpenSeats: openSeats, SentAt: g.nowFunc()}
}

// Last returns the last recorded notice for a section, if any.
func (g *Gate) Last(classID string) (Notice, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.state[classID]
	return n, ok
}
