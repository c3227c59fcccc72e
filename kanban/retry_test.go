package kanban

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryStopsOnFirstNonEmpty(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), RetryPolicy{Attempts: 3, Delay: time.Millisecond}, func(context.Context) ([]int, error) {
		calls++
		if calls < 2 {
			return nil, nil
		}
		return []int{1}, nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 2 || len(got) != 1 {
		t.Fatalf("calls=%d got=%v", calls, got)
	}
}

func TestRetryIsBounded(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), RetryPolicy{Attempts: 3, Delay: time.Millisecond, RetryEmpty: true}, func(context.Context) ([]int, error) {
		calls++
		return []int{}, nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", got)
	}
}

func TestRetryEmptyListIsAnAnswerByDefault(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), RetryPolicy{Attempts: 3, Delay: time.Millisecond}, func(context.Context) ([]int, error) {
		calls++
		return []int{}, nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func TestRetryNeverRetriesErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Retry(context.Background(), RetryPolicy{Attempts: 5}, func(context.Context) ([]int, error) {
		calls++
		return nil, boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, RetryPolicy{Attempts: 3, Delay: time.Hour}, func(context.Context) ([]int, error) {
		calls++
		cancel()
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("calls=%d err=%v", calls, err)
	}
}
