package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"spreadwatch/internal/application/port"
)

type countingSource struct {
	name  string
	calls atomic.Int64
	err   error
}

func (s *countingSource) Name() string { return s.name }

func (s *countingSource) Fetch(ctx context.Context) error {
	s.calls.Add(1)
	return s.err
}

func TestSchedulerTicksAtFixedRate(t *testing.T) {
	src := &countingSource{name: "gate"}
	sched := NewScheduler([]port.PollSource{src}, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)

	time.Sleep(110 * time.Millisecond)
	cancel()
	sched.Wait()

	// immediate fetch + ~5 ticks; allow scheduling slack
	if n := src.calls.Load(); n < 3 {
		t.Fatalf("expected at least 3 fetches, got %d", n)
	}
}

func TestSchedulerSurvivesFetchErrors(t *testing.T) {
	src := &countingSource{name: "gate", err: errors.New("connection refused")}
	sched := NewScheduler([]port.PollSource{src}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)

	time.Sleep(60 * time.Millisecond)
	cancel()
	sched.Wait()

	// 错误被吞掉，循环继续按固定频率重试
	if n := src.calls.Load(); n < 3 {
		t.Fatalf("expected loop to keep retrying despite errors, got %d calls", n)
	}
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	src := &countingSource{name: "gate"}
	sched := NewScheduler([]port.PollSource{src}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	time.Sleep(30 * time.Millisecond)
	cancel()
	sched.Wait()

	n := src.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := src.calls.Load(); got != n {
		t.Fatalf("fetch called after cancel: %d -> %d", n, got)
	}
}

func TestSchedulerRunsSourcesIndependently(t *testing.T) {
	slow := &blockingSource{name: "kraken", block: 200 * time.Millisecond}
	fast := &countingSource{name: "gate"}
	sched := NewScheduler([]port.PollSource{slow, fast}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()
	sched.Wait()

	if n := fast.calls.Load(); n < 3 {
		t.Fatalf("slow source starved the fast one: %d calls", n)
	}
}

type blockingSource struct {
	name  string
	block time.Duration
}

func (s *blockingSource) Name() string { return s.name }

func (s *blockingSource) Fetch(ctx context.Context) error {
	select {
	case <-time.After(s.block):
	case <-ctx.Done():
	}
	return ctx.Err()
}
