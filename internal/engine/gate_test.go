package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatwatch/internal/studentapi"
)

// testClock is a manual clock for gate tests.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestGate(minRenotify time.Duration) (*Gate, *testClock) {
	clock := &testClock{now: time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC)}
	return NewGate(minRenotify, WithGateNowFunc(clock.Now)), clock
}

func snap(status string, capacity, enrollment int) studentapi.SeatSnapshot {
	return studentapi.SeatSnapshot{
		CourseID:   "002054",
		ClassID:    "21931",
		Status:     status,
		Capacity:   capacity,
		Enrollment: enrollment,
	}
}

func TestGate_NeverAdmitsNonOpenStatus(t *testing.T) {
	t.Parallel()

	g, _ := newTestGate(2 * time.Minute)

	for _, status := range []string{"Closed", "Canceled", "Waitlist", "open", ""} {
		assert.False(t, g.Admit(snap(status, 20, 0)), "status %q", status)
	}
}

func TestGate_NeverAdmitsWithoutFreeSeats(t *testing.T) {
	t.Parallel()

	g, _ := newTestGate(2 * time.Minute)

	tests := []struct {
		capacity   int
		enrollment int
	}{
		{20, 20},
		{20, 21},
		{0, 0},
	}

	for _, tt := range tests {
		assert.False(t,
			g.Admit(snap("Open", tt.capacity, tt.enrollment)),
			"capacity %d enrollment %d", tt.capacity, tt.enrollment,
		)
	}
}

func TestGate_FirstOpeningAdmits(t *testing.T) {
	t.Parallel()

	g, _ := newTestGate(2 * time.Minute)

	s := snap("Open", 20, 19)
	assert.True(t, g.Admit(s))
	assert.Equal(t, 1, s.OpenSeats())
}

func TestGate_UnchangedCountSuppressedWithinWindow(t *testing.T) {
	t.Parallel()

	g, clock := newTestGate(2 * time.Minute)
	s := snap("Open", 20, 19)

	require.True(t, g.Admit(s))
	g.MarkNotified(s.ClassID, s.OpenSeats())

	clock.Advance(5 * time.Second)
	assert.False(t, g.Admit(s))
}

func TestGate_UnchangedCountReadmitsAfterWindow(t *testing.T) {
	t.Parallel()

	g, clock := newTestGate(2 * time.Minute)
	s := snap("Open", 20, 19)

	require.True(t, g.Admit(s))
	g.MarkNotified(s.ClassID, s.OpenSeats())

	clock.Advance(130 * time.Second)
	assert.True(t, g.Admit(s))
}

func TestGate_ExactWindowBoundaryReadmits(t *testing.T) {
	t.Parallel()

	g, clock := newTestGate(2 * time.Minute)
	s := snap("Open", 20, 19)

	require.True(t, g.Admit(s))
	g.MarkNotified(s.ClassID, s.OpenSeats())

	clock.Advance(2 * time.Minute)
	assert.True(t, g.Admit(s))
}

func TestGate_ChangedCountAdmitsImmediately(t *testing.T) {
	t.Parallel()

	g, clock := newTestGate(2 * time.Minute)

	one := snap("Open", 20, 19)
	require.True(t, g.Admit(one))
	g.MarkNotified(one.ClassID, one.OpenSeats())

	clock.Advance(time.Second)
	two := snap("Open", 20, 18)
	assert.True(t, g.Admit(two))
}

func TestGate_SendFailureLeavesArmed(t *testing.T) {
	t.Parallel()

	// A failed send never calls MarkNotified; the next poll re-admits.
	g, clock := newTestGate(2 * time.Minute)
	s := snap("Open", 20, 19)

	require.True(t, g.Admit(s))

	clock.Advance(5 * time.Second)
	assert.True(t, g.Admit(s))

	_, recorded := g.Last(s.ClassID)
	assert.False(t, recorded)
}

func TestGate_SectionsTrackedIndependently(t *testing.T) {
	t.Parallel()

	g, clock := newTestGate(2 * time.Minute)

	l01 := snap("Open", 20, 19)
	p01 := studentapi.SeatSnapshot{
		CourseID: "002054", ClassID: "21927",
		Status: "Open", Capacity: 10, Enrollment: 9,
	}

	require.True(t, g.Admit(l01))
	g.MarkNotified(l01.ClassID, l01.OpenSeats())

	clock.Advance(5 * time.Second)
	assert.False(t, g.Admit(l01))
	assert.True(t, g.Admit(p01))
}

func TestGate_FullScenario(t *testing.T) {
	t.Parallel()

	// capacity=20, enrollment=19, open, no prior notification: admitted.
	// Same values 5s later: suppressed. Same values after 130s: admitted.
	g, clock := newTestGate(120 * time.Second)
	s := snap("Open", 20, 19)

	require.True(t, g.Admit(s))
	g.MarkNotified(s.ClassID, s.OpenSeats())

	clock.Advance(5 * time.Second)
	require.False(t, g.Admit(s))

	clock.Advance(125 * time.Second)
	require.True(t, g.Admit(s))
}

func TestGate_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	g := NewGate(2 * time.Minute)
	s := snap("Open", 20, 19)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if g.Admit(s) {
					g.MarkNotified(s.ClassID, s.OpenSeats())
				}
				g.Last(s.ClassID)
			}
		}()
	}
	wg.Wait()

	notice, ok := g.Last(s.ClassID)
	require.True(t, ok)
	assert.Equal(t, 1, notice.OpenSeats)
}
