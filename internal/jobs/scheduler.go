package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Pruner drops stored sessions whose tokens no longer decode.
type Pruner interface {
	PruneExpiredSessions(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron     *cron.Cron
	pruner   Pruner
	schedule string
	enabled  bool
	log      zerolog.Logger
}

// NewScheduler runs pruner on schedule (six-field cron spec, seconds first).
// Without a token TTL nothing ever expires, so the scheduler stays idle
// unless enabled is set.
func NewScheduler(pruner Pruner, schedule string, enabled bool, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		pruner:   pruner,
		schedule: schedule,
		enabled:  enabled,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if !s.enabled || s.pruner == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.prune); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for a running prune to finish, up to five seconds.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("prune job still running at shutdown")
	}
}

func (s *Scheduler) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	started := time.Now()
	removed, err := s.pruner.PruneExpiredSessions(ctx)
	if err != nil {
		s.log.Error().Err(err).Int("removed", removed).Msg("prune expired sessions failed")
		return
	}
	s.log.Info().
		Int("removed", removed).
		Dur("took", time.Since(started)).
		Msg("expired sessions pruned")
}
