// Copyright (c) 2025 Kishore Bharat

package ctxutil

import (
	"context"
	"os"
	"sync"
)

// CloseGroup runs background goroutines against a shared context that is
// canceled by Close. Close waits for every goroutine to return. The zero
// value is ready to use.
type CloseGroup struct {
	closeCtx  context.Context
	causeFunc context.CancelCauseFunc

	wg sync.WaitGroup

	once sync.Once
}

func (cg *CloseGroup) init() {
	cg.closeCtx, cg.causeFunc = context.WithCancelCause(context.Background())
}

// Close cancels the group context and waits for all goroutines to finish.
func (cg *CloseGroup) Close() {
	cg.once.Do(cg.init)
	cg.causeFunc(os.ErrClosed)
	cg.wg.Wait()
}

// Go runs f in a new goroutine tracked by the group.
func (cg *CloseGroup) Go(f func(ctx context.Context)) {
	cg.once.Do(cg.init)

	cg.wg.Add(1)
	go func() {
		defer cg.wg.Done()
		f(cg.closeCtx)
	}()
}
