package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"objbase.io/objbase/internal/pkg/logger"
)

func init() {
	// Initialize logger for tests
	_ = logger.Init("error", "json")
}

func TestNewPool(t *testing.T) {
	pool, err := NewPool(context.Background(), "audit", 4)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer pool.Shutdown()

	metrics := pool.Metrics()
	if metrics["cap"] != 4 {
		t.Errorf("cap = %d, want 4", metrics["cap"])
	}
}

func TestPool_Submit(t *testing.T) {
	pool, err := NewPool(context.Background(), "audit", 4)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer pool.Shutdown()

	var executed atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)

	err = pool.Submit(context.Background(), func(ctx context.Context) {
		executed.Store(true)
		wg.Done()
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	wg.Wait()
	if !executed.Load() {
		t.Error("Task was not executed")
	}
}

func TestPool_Submit_CancelledContext(t *testing.T) {
	pool, err := NewPool(context.Background(), "audit", 4)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer pool.Shutdown()

	cancelledCtx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err = pool.Submit(cancelledCtx, func(ctx context.Context) {
		t.Error("Task should not execute with cancelled context")
	})
	if err != context.Canceled {
		t.Errorf("Submit() error = %v, want context.Canceled", err)
	}
}

func TestPool_SubmitDetached(t *testing.T) {
	pool, err := NewPool(context.Background(), "audit", 4)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}

	var executed atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)

	err = pool.SubmitDetached(func(ctx context.Context) {
		executed.Store(true)
		wg.Done()
	})
	if err != nil {
		t.Fatalf("SubmitDetached() error = %v", err)
	}

	wg.Wait()
	pool.Shutdown()

	if !executed.Load() {
		t.Error("Detached task was not executed")
	}
}

func TestPool_SubmitDetached_AfterShutdown(t *testing.T) {
	pool, err := NewPool(context.Background(), "audit", 1)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	pool.Shutdown()

	// The service context is cancelled, so a late task must not run.
	_ = pool.SubmitDetached(func(ctx context.Context) {
		t.Error("Task ran after shutdown")
	})
}
