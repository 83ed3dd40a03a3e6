package service

import (
	"context"
	"fmt"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	expirySweepTimeout = 5 * time.Minute
	expiryLeaseName    = "expiry-sweep"
)

// ExpiryScheduler runs the card expiry sweep on a cron schedule.
type ExpiryScheduler struct {
	cron      *cron.Cron
	entry     cron.EntryID
	lifecycle ports.LifecycleService
	lease     ports.Lease // nil = every instance sweeps
	log       zerolog.Logger
	now       func() time.Time
}

// NewExpiryScheduler registers the sweep under schedule (standard 5-field
// cron spec or a descriptor such as "@daily"). Times are evaluated in UTC.
// With a lease, only one instance sweeps per scheduled tick.
func NewExpiryScheduler(lifecycle ports.LifecycleService, schedule string, lease ports.Lease, log zerolog.Logger) (*ExpiryScheduler, error) {
	s := &ExpiryScheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		lifecycle: lifecycle,
		lease:     lease,
		log:       log,
		now:       time.Now,
	}
	id, err := s.cron.AddFunc(schedule, s.run)
	if err != nil {
		return nil, fmt.Errorf("parsing expiry schedule %q: %w", schedule, err)
	}
	s.entry = id
	return s, nil
}

// Start begins running the schedule in the background.
func (s *ExpiryScheduler) Start() {
	s.cron.Start()
	s.log.Info().Time("next_run", s.cron.Entry(s.entry).Next).Msg("expiry scheduler started")
}

// Stop halts the schedule and waits for a running sweep to finish or ctx to end.
func (s *ExpiryScheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn().Msg("expiry scheduler stop timed out")
	}
}

// RunOnce executes a single sweep as the system principal.
func (s *ExpiryScheduler) RunOnce(ctx context.Context) (int, error) {
	return s.lifecycle.ExpireOverdue(ctx, domain.SystemPrincipal(), s.now())
}

func (s *ExpiryScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), expirySweepTimeout)
	defer cancel()

	if !s.acquire(ctx) {
		return
	}

	n, err := s.RunOnce(ctx)
	if err != nil {
		s.log.Error().Err(err).Int("expired", n).Msg("expiry sweep failed")
		return
	}
	s.log.Debug().Int("expired", n).Msg("scheduled expiry sweep done")
}

// acquire takes the sweep lease until just before the next tick.
func (s *ExpiryScheduler) acquire(ctx context.Context) bool {
	if s.lease == nil {
		return true
	}

	ttl := time.Second
	if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
		if d := next.Sub(s.now()) - time.Second; d > ttl {
			ttl = d
		}
	}

	ok, err := s.lease.TryAcquire(ctx, expiryLeaseName, ttl)
	if err != nil {
		s.log.Warn().Err(err).Msg("expiry lease unavailable, sweeping anyway")
		return true
	}
	if !ok {
		s.log.Debug().Msg("expiry sweep held by another instance")
	}
	return ok
}
