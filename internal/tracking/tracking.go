// Package tracking drives automatic check-in around business hours.
package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"onsight/internal/schedule"
	"onsight/internal/visit"
)

// DefaultInterval is how often the controller re-evaluates when no
// geolocation samples arrive.
const DefaultInterval = 30 * time.Second

// Sample is a geolocation reading. Samples may arrive at any rate; each
// one is evaluated independently.
type Sample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// override records a manual action that the next automatic tick must
// respect.
type override int

const (
	overrideNone override = iota
	overrideStart
	overrideStop
)

// Controller evaluates one user's business hours against the clock and
// incoming geolocation samples, auto-starting visits while hours are
// active. When hours end it emits an end-of-day signal instead of
// force-closing anything.
type Controller struct {
	visits   *visit.Service
	userID   int64
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	hours    *schedule.Hours
	sample   *Sample
	manual   override
	active   bool
	endOfDay chan []*visit.Visit
}

// NewController creates a tracking controller for one user. interval <= 0
// falls back to DefaultInterval; now may be nil to use the wall clock.
func NewController(visits *visit.Service, userID int64, hours *schedule.Hours, interval time.Duration, now func() time.Time) *Controller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Controller{
		visits:   visits,
		userID:   userID,
		interval: interval,
		now:      now,
		hours:    hours,
		endOfDay: make(chan []*visit.Visit, 1),
	}
}

// EndOfDay delivers the user's uninvoiced visits from the current day
// when business hours end. The channel is buffered; an unread signal is
// replaced by the next one.
func (c *Controller) EndOfDay() <-chan []*visit.Visit {
	return c.endOfDay
}

// SetHours replaces the schedule, e.g. after the user edits it.
func (c *Controller) SetHours(hours *schedule.Hours) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hours = hours
}

// Observe records a geolocation sample and evaluates immediately.
func (c *Controller) Observe(ctx context.Context, s Sample) {
	c.mu.Lock()
	c.sample = &s
	c.mu.Unlock()
	c.Tick(ctx)
}

// ManualStart opens a visit at the user's request and suppresses
// automatic behavior until the next business-hours transition.
func (c *Controller) ManualStart(ctx context.Context, req visit.StartRequest) (*visit.Visit, error) {
	v, err := c.visits.StartVisit(ctx, c.userID, req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.manual = overrideStart
	c.mu.Unlock()
	return v, nil
}

// ManualStop closes a visit at the user's request. The next automatic
// tick must not immediately reopen one.
func (c *Controller) ManualStop(visitID int64) (*visit.Visit, error) {
	v, err := c.visits.EndVisit(visitID, c.userID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.manual = overrideStop
	c.mu.Unlock()
	return v, nil
}

// Run evaluates on a fixed interval until ctx is cancelled. Cancelling
// stops new automatic starts; it does not end an open visit.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick runs one evaluation: auto-start while hours are active, emit the
// end-of-day signal on the active-to-inactive transition.
func (c *Controller) Tick(ctx context.Context) {
	c.mu.Lock()
	now := c.now()
	active := c.hours.Active(now)
	wasActive := c.active
	c.active = active
	if active != wasActive {
		// A transition clears any manual override.
		c.manual = overrideNone
	}
	manual := c.manual
	sample := c.sample
	c.mu.Unlock()

	if wasActive && !active {
		c.signalEndOfDay(now)
		return
	}

	if !active || manual == overrideStop || sample == nil {
		return
	}

	open, err := c.visits.CurrentOpenVisit(c.userID)
	if err != nil {
		slog.Error("tracking: checking open visit", "user_id", c.userID, "error", err)
		return
	}
	if open != nil {
		return
	}

	_, err = c.visits.StartVisit(ctx, c.userID, visit.StartRequest{
		Latitude:  &sample.Latitude,
		Longitude: &sample.Longitude,
	})
	if errors.Is(err, visit.ErrVisitOpen) {
		return
	}
	if err != nil {
		slog.Error("tracking: auto check-in failed", "user_id", c.userID, "error", err)
		return
	}
	slog.Info("tracking: auto check-in", "user_id", c.userID)
}

// signalEndOfDay publishes today's closed, uninvoiced visits, replacing
// any unread previous signal.
func (c *Controller) signalEndOfDay(now time.Time) {
	all, err := c.visits.UninvoicedVisits(c.userID)
	if err != nil {
		slog.Error("tracking: listing uninvoiced visits", "user_id", c.userID, "error", err)
		return
	}

	y, m, d := now.Date()
	var today []*visit.Visit
	for _, v := range all {
		vy, vm, vd := v.StartTime.In(now.Location()).Date()
		if vy == y && vm == m && vd == d {
			today = append(today, v)
		}
	}

	select {
	case <-c.endOfDay:
	default:
	}
	c.endOfDay <- today
	slog.Info("tracking: business hours ended", "user_id", c.userID, "uninvoiced", len(today))
}
