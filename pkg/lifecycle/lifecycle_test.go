package lifecycle_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/JaimeStill/tribunal/pkg/lifecycle"
)

func TestReadyAfterStartup(t *testing.T) {
	lc := lifecycle.New()
	if lc.Ready() {
		t.Error("should not be ready before WaitForStartup")
	}

	var count atomic.Int32
	for range 3 {
		lc.OnStartup(func() { count.Add(1) })
	}
	lc.WaitForStartup()

	if !lc.Ready() {
		t.Error("should be ready after WaitForStartup")
	}
	if got := count.Load(); got != 3 {
		t.Errorf("startup hooks: got %d, want 3", got)
	}
}

func TestShutdownHooksWaitForCancel(t *testing.T) {
	lc := lifecycle.New()

	var cleaned atomic.Bool
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		cleaned.Store(true)
	})

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if !cleaned.Load() {
		t.Error("shutdown hook did not execute")
	}
}

func TestShutdownTimeout(t *testing.T) {
	lc := lifecycle.New()
	release := make(chan struct{})
	lc.OnShutdown(func() { <-release })
	defer close(release)

	if err := lc.Shutdown(10 * time.Millisecond); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestProbe(t *testing.T) {
	lc := lifecycle.New()
	errDown := errors.New("down")

	lc.RegisterCheck("database", func(ctx context.Context) error { return nil })
	lc.RegisterCheck("docstore", func(ctx context.Context) error { return errDown })

	results := lc.Probe(context.Background())

	if len(results) != 2 {
		t.Fatalf("results: got %d, want 2", len(results))
	}
	if results["database"] != nil {
		t.Errorf("database: got %v, want nil", results["database"])
	}
	if !errors.Is(results["docstore"], errDown) {
		t.Errorf("docstore: got %v, want %v", results["docstore"], errDown)
	}
}
