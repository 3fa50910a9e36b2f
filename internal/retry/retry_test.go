package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPolicy_Delay(t *testing.T) {
	p := Policy{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 4 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 0},
		{2, 1 * time.Second},
		{3, 2 * time.Second},
		{4, 4 * time.Second},
		{5, 4 * time.Second}, // capped
	}

	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPolicy_Do(t *testing.T) {
	t.Run("SucceedsAfterRetries", func(t *testing.T) {
		p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

		calls := 0
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})

		if err != nil {
			t.Errorf("Do() = %v, want nil", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("ExhaustsAttempts", func(t *testing.T) {
		p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

		wantErr := errors.New("still broken")
		calls := 0
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return wantErr
		})

		if !errors.Is(err, wantErr) {
			t.Errorf("Do() = %v, want %v", err, wantErr)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})

	t.Run("StopsOnNonRetryable", func(t *testing.T) {
		permanent := errors.New("permanent")
		p := Policy{
			MaxAttempts: 5,
			BaseDelay:   time.Millisecond,
			Retryable:   func(err error) bool { return !errors.Is(err, permanent) },
		}

		calls := 0
		err := p.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return permanent
		})

		if !errors.Is(err, permanent) {
			t.Errorf("Do() = %v, want %v", err, permanent)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1", calls)
		}
	})

	t.Run("HonorsCancellation", func(t *testing.T) {
		p := Policy{MaxAttempts: 5, BaseDelay: time.Hour}

		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		err := p.Do(ctx, func(ctx context.Context) error {
			calls++
			return errors.New("transient")
		})

		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do() = %v, want context.Canceled", err)
		}
		if calls != 1 {
			t.Errorf("calls = %d, want 1 before the backoff wait", calls)
		}
	})
}
