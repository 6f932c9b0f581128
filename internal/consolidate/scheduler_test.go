package consolidate

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeRunner struct {
	cycles  int
	sources []int
	cancel  context.CancelFunc
}

func (f *fakeRunner) RunCycle(ctx context.Context) CycleSummary {
	found := 0
	if f.cycles < len(f.sources) {
		found = f.sources[f.cycles]
	}
	f.cycles++
	if f.cycles >= len(f.sources) {
		f.cancel()
	}
	return CycleSummary{SourcesFound: found}
}

func TestSchedulerLoopsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{sources: []int{3, 0, 5}, cancel: cancel}

	s := NewScheduler(runner, time.Millisecond, time.Millisecond, zerolog.Nop())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
	assert.Equal(t, 3, runner.cycles)
}

func TestSchedulerWaitHonorsContext(t *testing.T) {
	s := NewScheduler(nil, time.Hour, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.False(t, s.Wait(ctx, time.Hour))
	assert.Less(t, time.Since(start), time.Second)

	assert.True(t, s.Wait(context.Background(), time.Millisecond))
}
