// Package scheduler delivers due reminders on a fixed period.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/GregPesc/bot-telegram/internal/gateway"
	"github.com/GregPesc/bot-telegram/internal/store"
	"github.com/GregPesc/bot-telegram/internal/templates"
)

const (
	// DefaultInterval is the scan period. Sub-minute precision is not a
	// contract of this bot.
	DefaultInterval = time.Minute
	// maxConcurrentDeliveries bounds the per-tick fan-out so one tick with
	// many due reminders cannot exhaust the transport.
	maxConcurrentDeliveries = 8
)

// Scheduler periodically scans the store for due, unsent reminders and
// dispatches them through the sender. Each item is delivered
// independently: one hung or failing send never blocks the rest of the
// tick, and failed items stay unsent so the next tick retries them.
type Scheduler struct {
	store    *store.Store
	sender   gateway.Sender
	catalog  *templates.Catalog
	interval time.Duration
	now      func() time.Time

	ticks     atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
}

// Snapshot is a point-in-time view of the delivery counters.
type Snapshot struct {
	Ticks     int64 `json:"ticks"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

// New creates a scheduler. A zero interval selects DefaultInterval.
func New(st *store.Store, sender gateway.Sender, catalog *templates.Catalog, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		store:    st,
		sender:   sender,
		catalog:  catalog,
		interval: interval,
		now:      time.Now,
	}
}

// SetClock overrides the scheduler's time source. Tests only.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Run ticks until ctx is cancelled. The first tick fires immediately so
// reminders that came due while the process was down go out right after
// restart instead of one full interval later.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("Reminder scheduler started")

	s.Tick()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Reminder scheduler stopped")
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs one scan-and-deliver pass. Exported so tests can drive the
// scheduler with a simulated clock. In-flight deliveries are not
// cancellable; a tick always waits for its own fan-out to finish.
func (s *Scheduler) Tick() {
	s.ticks.Add(1)

	due := s.store.ListDueUnsent(s.now())
	if len(due) == 0 {
		return
	}
	log.Debug().Int("due", len(due)).Msg("Dispatching due reminders")

	var g errgroup.Group
	g.SetLimit(maxConcurrentDeliveries)
	for _, d := range due {
		d := d
		g.Go(func() error {
			s.deliver(d)
			return nil
		})
	}
	_ = g.Wait()
}

// deliver sends one reminder and records the outcome. Delivery failures
// leave the reminder unsent; the next tick retries it. Reminders go to
// the user's private chat, whose id equals the user id.
func (s *Scheduler) deliver(d store.Due) {
	if err := s.sender.Send(d.UserID, s.catalog.RenderDelivery(d.Reminder.Text)); err != nil {
		s.failed.Add(1)
		log.Warn().
			Err(err).
			Int64("userId", d.UserID).
			Str("reminderId", d.Reminder.ID).
			Msg("Reminder delivery failed, will retry next tick")
		return
	}

	if err := s.store.MarkSent(d.UserID, d.Reminder.ID); err != nil {
		log.Error().
			Err(err).
			Int64("userId", d.UserID).
			Str("reminderId", d.Reminder.ID).
			Msg("Failed to persist sent flag")
	}
	s.delivered.Add(1)
	log.Info().
		Int64("userId", d.UserID).
		Str("reminderId", d.Reminder.ID).
		Msg("Reminder delivered")
}

// Metrics returns the current delivery counters.
func (s *Scheduler) Metrics() Snapshot {
	return Snapshot{
		Ticks:     s.ticks.Load(),
		Delivered: s.delivered.Load(),
		Failed:    s.failed.Load(),
	}
}
