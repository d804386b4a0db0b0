package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/efreitasn/matchbook/internal/domain"
)

// countingProcessor records calls to ProcessResting.
type countingProcessor struct {
	calls atomic.Int64
	err   error
}

func (p *countingProcessor) ProcessResting() error {
	p.calls.Add(1)
	return p.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRematchScheduler_Ticks(t *testing.T) {
	p := &countingProcessor{}
	r := NewRematchScheduler(10*time.Millisecond, p, discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	waitFor(t, func() bool { return r.Passes() >= 3 })
	if p.calls.Load() < 3 {
		t.Errorf("expected at least 3 calls, got %d", p.calls.Load())
	}
}

func TestRematchScheduler_KeepsRunningOnError(t *testing.T) {
	p := &countingProcessor{err: errors.New("boom")}
	r := NewRematchScheduler(10*time.Millisecond, p, discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	waitFor(t, func() bool { return r.Passes() >= 2 })
}

func TestRematchScheduler_StopsOnContextCancel(t *testing.T) {
	p := &countingProcessor{}
	r := NewRematchScheduler(10*time.Millisecond, p, discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	waitFor(t, func() bool { return r.Passes() >= 1 })
	cancel()

	// Allow an in-flight tick to finish, then the count must stay put.
	time.Sleep(50 * time.Millisecond)
	before := p.calls.Load()
	time.Sleep(100 * time.Millisecond)
	if after := p.calls.Load(); after != before {
		t.Errorf("scheduler kept running after cancel: %d → %d", before, after)
	}
}

func TestRematchScheduler_DisabledInterval(t *testing.T) {
	p := &countingProcessor{}
	r := NewRematchScheduler(0, p, discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	time.Sleep(50 * time.Millisecond)
	if p.calls.Load() != 0 {
		t.Errorf("expected no calls with interval 0, got %d", p.calls.Load())
	}
}

func TestRematchScheduler_FillsWaitingComposite(t *testing.T) {
	m, _, _ := newTestMatcher()
	m.rematchDependents = false

	mustAdd(t, m, newOrder("bc", "C", domain.OrderSideBuy, "130", "2"))
	mustAdd(t, m, newOrder("sa", "A", domain.OrderSideSell, "60", "2"))
	mustAdd(t, m, newOrder("sb", "B", domain.OrderSideSell, "60", "2"))

	r := NewRematchScheduler(10*time.Millisecond, m, discardLogger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	waitFor(t, func() bool { return !m.ContainsOrder("bc") })
}
