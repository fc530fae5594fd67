package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn under a deadline of timeout and stops waiting for it
// once the deadline passes; fn must honor its context to release resources.
// A non-positive timeout runs fn with ctx unchanged. The returned error
// wraps context.DeadlineExceeded when the deadline fired first.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%s exceeded %v: %w", name, timeout, context.Cause(ctx))
	}
}
