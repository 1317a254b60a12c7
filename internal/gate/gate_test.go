package gate_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"streamcap/internal/gate"
)

func TestGateNeverExceedsCapacity(t *testing.T) {
	const capacity = 3
	const workers = 20

	g := gate.New(capacity)
	ctx := context.Background()

	var active, peak atomic.Int32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if err := g.Acquire(ctx); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			now := active.Add(1)
			for {
				current := peak.Load()
				if now <= current || peak.CompareAndSwap(current, now) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			g.Release()
		}()
	}
	wg.Wait()

	if got := peak.Load(); got > capacity {
		t.Fatalf("observed %d concurrent holders, capacity %d", got, capacity)
	}
}

func TestGateAcquireHonorsContext(t *testing.T) {
	g := gate.New(1)
	if err := g.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := g.Acquire(ctx); err == nil {
		t.Fatal("expected context error while gate is full")
	}
}

func TestGateStrayReleaseIsNoop(t *testing.T) {
	g := gate.New(2)
	g.Release()
	g.Release()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := g.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}
	if got := g.InUse(); got != 2 {
		t.Fatalf("expected 2 permits in use, got %d", got)
	}

	timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := g.Acquire(timeout); err == nil {
		t.Fatal("stray releases must not mint extra permits")
	}
}

func TestGateMinimumCapacity(t *testing.T) {
	g := gate.New(0)
	if g.Capacity() != 1 {
		t.Fatalf("expected minimum capacity 1, got %d", g.Capacity())
	}
}
