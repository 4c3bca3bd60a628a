package engine

import (
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, pool *ThreadPool, cond func() bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for !cond() {
		select {
		case <-pool.Done():
		case <-deadline:
			t.Fatalf("timed out waiting for pool jobs")
		}
	}
}

func TestThreadPoolRunsEveryJob(t *testing.T) {
	pool := NewThreadPool(4)
	defer pool.Close()

	var ran atomic.Int64
	for i := 0; i < 500; i++ {
		pool.Execute(func() { ran.Add(1) })
	}
	waitFor(t, pool, func() bool { return ran.Load() == 500 })
}

func TestThreadPoolSingleWorkerIsFIFO(t *testing.T) {
	pool := NewThreadPool(1)
	defer pool.Close()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 50; i++ {
		i := i
		pool.Execute(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}
	waitFor(t, pool, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 50
	})
	mu.Lock()
	defer mu.Unlock()
	if !slices.IsSorted(order) {
		t.Fatalf("expected jobs in submission order, got %v", order)
	}
}

func TestThreadPoolSizeDefaultsToCPUCount(t *testing.T) {
	pool := NewThreadPool(0)
	defer pool.Close()
	if pool.Size() != runtime.NumCPU() {
		t.Fatalf("expected %d workers, got %d", runtime.NumCPU(), pool.Size())
	}
	explicit := NewThreadPool(3)
	defer explicit.Close()
	if explicit.Size() != 3 {
		t.Fatalf("expected 3 workers, got %d", explicit.Size())
	}
}

func TestThreadPoolExecuteDoesNotWait(t *testing.T) {
	pool := NewThreadPool(1)
	defer pool.Close()

	release := make(chan struct{})
	var ran atomic.Int64
	pool.Execute(func() {
		<-release
		ran.Add(1)
	})
	submitted := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			pool.Execute(func() { ran.Add(1) })
		}
		close(submitted)
	}()
	select {
	case <-submitted:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected execute to return while the worker is busy")
	}
	close(release)
	waitFor(t, pool, func() bool { return ran.Load() == 11 })
}

func TestThreadPoolCloseDrainsQueue(t *testing.T) {
	pool := NewThreadPool(2)
	var ran atomic.Int64
	for i := 0; i < 20; i++ {
		pool.Execute(func() { ran.Add(1) })
	}
	pool.Close()
	waitFor(t, pool, func() bool { return ran.Load() == 20 })
}

func TestThreadPoolExecuteAfterClosePanics(t *testing.T) {
	pool := NewThreadPool(1)
	pool.Close()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected execute on a closed pool to panic")
		}
	}()
	pool.Execute(func() {})
}
