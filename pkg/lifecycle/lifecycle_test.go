package lifecycle_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/conduitworks/conduit/pkg/lifecycle"
)

func TestWaitForStartupRunsHooks(t *testing.T) {
	lc := lifecycle.New()

	var count atomic.Int32
	lc.OnStartup(func() { count.Add(1) })
	lc.OnStartup(func() { count.Add(1) })

	lc.WaitForStartup()

	if got := count.Load(); got != 2 {
		t.Errorf("startup hooks run = %d, want 2", got)
	}
}

func TestReadyAfterStartup(t *testing.T) {
	lc := lifecycle.New()

	if lc.Ready() {
		t.Error("Ready() = true before startup")
	}

	lc.WaitForStartup()

	if !lc.Ready() {
		t.Error("Ready() = false after startup")
	}
}

func TestShutdownCancelsContext(t *testing.T) {
	lc := lifecycle.New()

	if err := lc.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	select {
	case <-lc.Context().Done():
	default:
		t.Error("context not cancelled after Shutdown")
	}
}

func TestShutdownRunsHooks(t *testing.T) {
	lc := lifecycle.New()

	var ran atomic.Bool
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		ran.Store(true)
	})

	if err := lc.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !ran.Load() {
		t.Error("shutdown hook did not run")
	}
}

func TestShutdownTimeout(t *testing.T) {
	lc := lifecycle.New()

	release := make(chan struct{})
	defer close(release)
	lc.OnShutdown(func() { <-release })

	if err := lc.Shutdown(20 * time.Millisecond); err == nil {
		t.Error("Shutdown did not report a timeout for a stuck hook")
	}
}
