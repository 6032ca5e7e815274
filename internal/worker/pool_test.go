package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolExecutesJobs(t *testing.T) {
	p := NewPool(Config{MinWorkers: 2, MaxWorkers: 4, QueueSize: 8})

	var ran int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		err := p.Submit(func() {
			atomic.AddInt64(&ran, 1)
			wg.Done()
		})
		if err != nil {
			wg.Done()
			t.Fatalf("submit %d: %v", i, err)
		}
	}
	wg.Wait()
	if got := atomic.LoadInt64(&ran); got != 20 {
		t.Fatalf("ran %d jobs, want 20", got)
	}
}

func TestPoolRejectsNilJob(t *testing.T) {
	p := NewPool(Config{MinWorkers: 1, MaxWorkers: 1, QueueSize: 1})
	if err := p.Submit(nil); err == nil {
		t.Fatalf("expected error for nil job")
	}
}

func TestPoolSaturationSurfacesBusy(t *testing.T) {
	p := NewPool(Config{MinWorkers: 1, MaxWorkers: 1, QueueSize: 1})

	release := make(chan struct{})
	defer close(release)

	// Capacity with one stuck worker: one job executing, one held by the
	// dispatcher, one in the queue. Submissions past that must be rejected.
	accepted := 0
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && accepted < 3 {
		if err := p.Submit(func() { <-release }); err == nil {
			accepted++
			continue
		}
		time.Sleep(5 * time.Millisecond)
	}
	if accepted != 3 {
		t.Fatalf("accepted %d stuck jobs, want 3", accepted)
	}

	time.Sleep(20 * time.Millisecond)
	if err := p.Submit(func() { <-release }); err != ErrDispatcherBusy {
		t.Fatalf("expected ErrDispatcherBusy while saturated, got %v", err)
	}
}

func TestPoolRecoversAfterDrain(t *testing.T) {
	p := NewPool(Config{MinWorkers: 1, MaxWorkers: 2, QueueSize: 2})

	release := make(chan struct{})
	for i := 0; i < 4; i++ {
		// Best effort: some of these may be rejected once saturated.
		_ = p.Submit(func() { <-release })
	}
	close(release)

	// Once the stuck jobs drain, new work is accepted and runs.
	done := make(chan struct{})
	deadline := time.After(2 * time.Second)
	for {
		err := p.Submit(func() { close(done) })
		if err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("pool did not recover: %v", err)
		case <-time.After(5 * time.Millisecond):
		}
	}
	select {
	case <-done:
	case <-deadline:
		t.Fatalf("job accepted but never ran")
	}
}

func TestPoolRetiresIdleWorkersAboveMinimum(t *testing.T) {
	p := NewPool(Config{MinWorkers: 1, MaxWorkers: 4, QueueSize: 4, IdleTimeout: 30 * time.Millisecond})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		if err := p.Submit(func() {
			time.Sleep(20 * time.Millisecond)
			wg.Done()
		}); err != nil {
			wg.Done()
		}
	}
	wg.Wait()

	// Give the purge loop a few ticks to shut the extras down.
	deadline := time.After(2 * time.Second)
	for {
		p.mu.Lock()
		running := p.running
		p.mu.Unlock()
		if running == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("still %d workers running, want 1", running)
		case <-time.After(20 * time.Millisecond):
		}
	}
}
