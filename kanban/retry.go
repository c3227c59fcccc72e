package kanban

import (
	"context"
	"time"
)

// RetryPolicy bounds how often a read that came back empty is polled again.
// Errors are never retried.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	// RetryEmpty also re-polls reads that answered with an empty list,
	// not only null bodies.
	RetryEmpty bool
}

// DefaultRetryPolicy polls up to three times, starting at 500ms and doubling.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: 500 * time.Millisecond}

// Retry calls fetch until it yields a usable result. fetch reports a null
// body through a nil slice. The last result is returned once the attempts
// are used up.
func Retry[T any](ctx context.Context, p RetryPolicy, fetch func(context.Context) ([]T, error)) ([]T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	var items []T
	for i := 0; i < attempts; i++ {
		var err error
		items, err = fetch(ctx)
		if err != nil {
			return nil, err
		}
		if items != nil && (len(items) > 0 || !p.RetryEmpty) {
			return items, nil
		}
		if i == attempts-1 {
			break
		}
		if delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			case <-t.C:
			}
			delay *= 2
		}
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}
