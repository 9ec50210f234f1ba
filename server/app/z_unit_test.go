package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countSweep struct{ n atomic.Int32 }

func (c *countSweep) Sweep(time.Time) int {
	c.n.Add(1)
	return 1
}

func TestSweeperRunsUntilShutdown(t *testing.T) {
	target := new(countSweep)
	s := NewSweeper(target, 5*time.Millisecond, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()

	deadline := time.Now().Add(2 * time.Second)
	for target.n.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if target.n.Load() < 2 {
		t.Fatalf("sweeper did not tick")
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("run: %v", err)
	}
	// 重複 Shutdown 不可 panic
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}

type closeFn func() error

func (f closeFn) Close() error { return f() }

func TestCloserClosesOnce(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("boom")
	c := NewCloser(closeFn(func() error {
		calls.Add(1)
		return boom
	}))
	done := make(chan error, 1)
	go func() { done <- c.Run() }()
	if err := c.Shutdown(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	_ = c.Shutdown(context.Background())
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("close called %d times", calls.Load())
	}
}

type errComp struct{ err error }

func (c errComp) Run() error                     { return c.err }
func (c errComp) Shutdown(context.Context) error { return nil }

func TestAppRunReturnsComponentError(t *testing.T) {
	boom := errors.New("listen failed")
	s := NewSweeper(new(countSweep), time.Hour, nil)
	a := NewWith(errComp{err: boom}, s)
	if err := a.Run(); !errors.Is(err, boom) {
		t.Fatalf("expected component error, got %v", err)
	}
}

func TestAppRunContextCancel(t *testing.T) {
	s := NewSweeper(new(countSweep), time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewWith(s).WithGrace(time.Second).RunContext(ctx); err != nil {
		t.Fatalf("cancel should stop cleanly, got %v", err)
	}
}
