package session

import (
	"context"
	"time"
)

// CombineContext returns a context carrying ctx1's values that is canceled
// when either ctx1 or ctx2 is done. chromedp keeps the target in ctx1; ctx2
// carries the caller's deadline.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(ctx1)
	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}

type valueOnlyContext struct {
	context.Context
}

func (valueOnlyContext) Deadline() (deadline time.Time, ok bool) { return }
func (valueOnlyContext) Done() <-chan struct{}                   { return nil }
func (valueOnlyContext) Err() error                              { return nil }

// Detach returns a context with ctx's values but none of its cancellation.
// Used for teardown that must still reach the browser after the run's
// context is gone.
func Detach(ctx context.Context) context.Context {
	return valueOnlyContext{ctx}
}
