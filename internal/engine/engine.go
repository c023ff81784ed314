// Package engine runs the poll cycle: query seat state for every tracked
// section, gate the results, and push notifications for admitted openings.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"seatwatch/internal/metrics"
	"seatwatch/internal/notify"
	"seatwatch/internal/studentapi"
	"seatwatch/internal/watch"
)

// Engine orchestrates seat polling, gating, and notification.
type Engine struct {
	api      studentapi.Client
	notifier notify.Notifier
	gate     *Gate
	log      *slog.Logger

	term      string
	sections  []watch.Section
	courseIDs []string // distinct, sorted; one batched seats query per cycle
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// New creates an Engine watching the given resolved sections.
func New(
	api studentapi.Client,
	notifier notify.Notifier,
	gate *Gate,
	term string,
	sections []watch.Section,
	opts ...EngineOption,
) *Engine {
	eng := &Engine{
		api:      api,
		notifier: notifier,
		gate:     gate,
		log:      slog.Default(),
		term:     term,
	}
	for _, opt := range opts {
		opt(eng)
	}

	// A class listed through both spec forms is tracked once.
	seenClass := make(map[string]bool)
	seenCourse := make(map[string]bool)
	for _, sec := range sections {
		if seenClass[sec.ClassID] {
			continue
		}
		seenClass[sec.ClassID] = true
		eng.sections = append(eng.sections, sec)
		if !seenCourse[sec.CourseID] {
			seenCourse[sec.CourseID] = true
			eng.courseIDs = append(eng.courseIDs, sec.CourseID)
		}
	}
	sort.Strings(eng.courseIDs)

	return eng
}

// Sections returns the tracked sections.
func (eng *Engine) Sections() []watch.Section {
	return eng.sections
}

// AnnounceStart publishes the low-priority startup notification.
func (eng *Engine) AnnounceStart(ctx context.Context) error {
	msg := notify.Message{
		Title:    "seatwatch",
		Priority: notify.PriorityLow,
		Body: fmt.Sprintf(
			"Watching %d section(s) across %d course(s), term %s",
			len(eng.sections), len(eng.courseIDs), eng.term,
		),
	}
	return eng.notifier.Publish(ctx, msg)
}

// RunCycle executes one poll: a single batched seats query, then gating and
// notification per tracked section. A failed query counts as a transient
// poll error; the next scheduled cycle retries naturally.
func (eng *Engine) RunCycle(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.PollDuration.Observe(time.Since(start).Seconds())
	}()

	snaps, err := eng.api.Seats(ctx, eng.term, eng.courseIDs)
	if err != nil {
		metrics.PollErrorsTotal.Inc()
		return fmt.Errorf("querying seats: %w", err)
	}
	metrics.PollCyclesTotal.Inc()

	byClass := make(map[string]studentapi.SeatSnapshot, len(snaps))
	for _, snap := range snaps {
		byClass[snap.ClassID] = snap
	}

	for _, sec := range eng.sections {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		snap, ok := byClass[sec.ClassID]
		if !ok {
			eng.log.Warn("section missing from seats response",
				"course", sec.Display,
				"class_id", sec.ClassID,
			)
			continue
		}

		metrics.OpenSeats.WithLabelValues(sec.ClassID).Set(float64(snap.OpenSeats()))

		if !eng.gate.Admit(snap) {
			continue
		}
		eng.notifyOpening(ctx, sec, snap)
	}

	return nil
}

func (eng *Engine) notifyOpening(
	ctx context.Context,
	sec watch.Section,
	snap studentapi.SeatSnapshot,
) {
	open := snap.OpenSeats()
	msg := notify.Message{
		Title:    "Seat opening detected",
		Priority: notify.PriorityHigh,
		Body: fmt.Sprintf(
			"%d open seat(s): class %s in course %s. Enroll before it fills.",
			open, sec.ClassID, sec.Display,
		),
	}

	if err := eng.notifier.Publish(ctx, msg); err != nil {
		// Dropped, not queued. The gate stays armed so the next poll
		// that still shows the opening re-admits it.
		metrics.NotificationFailuresTotal.Inc()
		eng.log.Error("notification failed",
			"course", sec.Display,
			"class_id", sec.ClassID,
			"error", err,
		)
		return
	}

	metrics.NotificationsSentTotal.Inc()
	eng.gate.MarkNotified(sec.ClassID, open)
	eng.log.Info("notified seat opening",
		"course", sec.Display,
		"class_id", sec.ClassID,
		"open", open,
	)
}
