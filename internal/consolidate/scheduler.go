package consolidate

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CycleRunner is the piece the scheduler drives. Tests run cycles directly;
// only the production driver composes them into a loop.
type CycleRunner interface {
	RunCycle(ctx context.Context) CycleSummary
}

// Scheduler alternates between running one consolidation cycle and sleeping.
// A full pass is followed by the long idle interval; an empty catalog by the
// shorter retry interval. There is no terminal state: the loop runs until the
// context is cancelled by the host process.
type Scheduler struct {
	runner CycleRunner
	idle   time.Duration
	retry  time.Duration
	log    zerolog.Logger
}

func NewScheduler(runner CycleRunner, idle, retry time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{runner: runner, idle: idle, retry: retry, log: log}
}

// Run loops cycles forever, sleeping between them.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		summary := s.runner.RunCycle(ctx)

		wait := s.idle
		if summary.SourcesFound == 0 {
			wait = s.retry
		}
		s.log.Info().Dur("sleep", wait).Msg("idling until next cycle")
		if !s.Wait(ctx, wait) {
			return
		}
	}
}

// Wait sleeps for d. It returns false when the context ended first.
func (s *Scheduler) Wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
