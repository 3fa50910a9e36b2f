package stream

import (
	"testing"
	"time"
)

func TestFSM(t *testing.T) {
	base := 1 * time.Second
	max := 60 * time.Second

	t.Run("HappyPathReachesStreaming", func(t *testing.T) {
		f := NewFSM(base, max)

		f.Apply(EventStart)
		if f.State() != StateConnecting {
			t.Fatalf("after start: got %v, want connecting", f.State())
		}
		f.Apply(EventConnected)
		if f.State() != StateSubscribing {
			t.Fatalf("after connect: got %v, want subscribing", f.State())
		}
		f.Apply(EventSubscribed)
		if f.State() != StateStreaming {
			t.Fatalf("after subscribe: got %v, want streaming", f.State())
		}
	})

	t.Run("BackoffDoublesAndCaps", func(t *testing.T) {
		f := NewFSM(base, max)
		f.Apply(EventStart)

		want := []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
			32 * time.Second,
			60 * time.Second,
			60 * time.Second,
		}
		for i, w := range want {
			tr := f.Apply(EventFailure)
			if tr.Next != StateReconnecting {
				t.Fatalf("failure %d: got state %v, want reconnecting", i+1, tr.Next)
			}
			if tr.Wait != w {
				t.Errorf("failure %d: wait = %v, want %v", i+1, tr.Wait, w)
			}
			f.Apply(EventRetry)
		}
	})

	t.Run("SuccessResetsBackoff", func(t *testing.T) {
		f := NewFSM(base, max)
		f.Apply(EventStart)
		f.Apply(EventFailure)
		f.Apply(EventRetry)
		f.Apply(EventFailure)
		f.Apply(EventRetry)

		// Connection succeeds, backoff goes back to base.
		f.Apply(EventConnected)
		f.Apply(EventSubscribed)
		if f.State() != StateStreaming {
			t.Fatalf("got %v, want streaming", f.State())
		}

		tr := f.Apply(EventFailure)
		if tr.Wait != base {
			t.Errorf("wait after reset = %v, want %v", tr.Wait, base)
		}
	})

	t.Run("IgnoresOutOfOrderEvents", func(t *testing.T) {
		f := NewFSM(base, max)

		f.Apply(EventSubscribed)
		if f.State() != StateDisconnected {
			t.Errorf("subscribed in disconnected: got %v, want disconnected", f.State())
		}
		f.Apply(EventRetry)
		if f.State() != StateDisconnected {
			t.Errorf("retry in disconnected: got %v, want disconnected", f.State())
		}
	})
}
