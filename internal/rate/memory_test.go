package rate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_AllowsUpToMax(t *testing.T) {
	l := NewMemoryLimiter(3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "send")
		if err != nil {
			t.Fatalf("Allow %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("hit %d should be allowed", i+1)
		}
	}

	res, err := l.Allow(ctx, "send")
	if err != nil {
		t.Fatalf("Allow over limit: %v", err)
	}
	if res.Allowed {
		t.Fatalf("hit 4 of 3 must be denied")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("denied result must carry RetryAfter, got %v", res.RetryAfter)
	}
	if res.Remaining != 0 {
		t.Fatalf("expected 0 remaining, got %d", res.Remaining)
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(1, time.Hour)
	ctx := context.Background()

	if res, _ := l.Allow(ctx, "a"); !res.Allowed {
		t.Fatalf("first hit on a should pass")
	}
	if res, _ := l.Allow(ctx, "a"); res.Allowed {
		t.Fatalf("second hit on a should be denied")
	}
	if res, _ := l.Allow(ctx, "b"); !res.Allowed {
		t.Fatalf("key b must not share a's window")
	}
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	l := NewMemoryLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if res, _ := l.Allow(ctx, "send"); !res.Allowed {
		t.Fatalf("first hit should pass")
	}
	if res, _ := l.Allow(ctx, "send"); res.Allowed {
		t.Fatalf("second hit should be denied")
	}

	time.Sleep(60 * time.Millisecond)
	if res, _ := l.Allow(ctx, "send"); !res.Allowed {
		t.Fatalf("hit after the window must pass")
	}
}
