// Copyright (c) 2025 Kishore Bharat

package ctxutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestCloseGroup(t *testing.T) {
	var cg CloseGroup

	var done atomic.Int32
	for i := 0; i < 100; i++ {
		cg.Go(func(ctx context.Context) {
			<-ctx.Done()
			done.Add(1)
		})
	}

	cg.Close()
	if n := done.Load(); n != 100 {
		t.Fatalf("want all 100 tasks finished after Close, got %d", n)
	}
}

func TestSleepReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go cancel()

	start := time.Now()
	Sleep(ctx, time.Hour)
	if d := time.Since(start); d > time.Second {
		t.Fatalf("sleep did not return promptly on cancellation: %v", d)
	}
}
