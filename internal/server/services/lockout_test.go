package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/authcore/internal/server/repositories/lockouts"
)

func newTestLockoutService(now time.Time) (*LockoutService, *lockouts.MemoryRepository) {
	repo := lockouts.NewMemoryRepository()
	svc := NewLockoutService(repo)
	svc.now = func() time.Time { return now }
	return svc, repo
}

func TestRecordFailure_BelowThreshold(t *testing.T) {
	t.Parallel()

	svc, _ := newTestLockoutService(time.Unix(1000, 0))
	ctx := context.Background()

	for i := 1; i < LockoutThreshold; i++ {
		locked, until, err := svc.RecordFailure(ctx, "u1")
		if err != nil {
			t.Fatalf("RecordFailure error: %v", err)
		}
		if locked || until != nil {
			t.Fatalf("attempt %d: expected no lock below threshold", i)
		}
	}

	locked, err := svc.IsLocked(ctx, "u1")
	if err != nil {
		t.Fatalf("IsLocked error: %v", err)
	}
	if locked {
		t.Fatalf("account must not be locked below threshold")
	}
}

func TestRecordFailure_ThresholdLocks(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	svc, _ := newTestLockoutService(now)
	ctx := context.Background()

	var locked bool
	var until *time.Time
	for i := 0; i < LockoutThreshold; i++ {
		var err error
		locked, until, err = svc.RecordFailure(ctx, "u1")
		if err != nil {
			t.Fatalf("RecordFailure error: %v", err)
		}
	}

	if !locked || until == nil {
		t.Fatalf("expected lock at failure %d", LockoutThreshold)
	}
	if want := now.Add(1 * time.Minute); !until.Equal(want) {
		t.Fatalf("unexpected deadline: got %v want %v", until, want)
	}

	isLocked, err := svc.IsLocked(ctx, "u1")
	if err != nil {
		t.Fatalf("IsLocked error: %v", err)
	}
	if !isLocked {
		t.Fatalf("expected IsLocked true")
	}
}

func TestRecordFailure_Escalation(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{5, 1 * time.Minute},
		{9, 1 * time.Minute},
		{10, 5 * time.Minute},
		{14, 5 * time.Minute},
		{15, 15 * time.Minute},
		{19, 15 * time.Minute},
		{20, 30 * time.Minute},
		{25, 30 * time.Minute},
	}

	for _, tc := range tests {
		svc, _ := newTestLockoutService(now)
		ctx := context.Background()

		var until *time.Time
		for i := 0; i < tc.failures; i++ {
			var err error
			_, until, err = svc.RecordFailure(ctx, "u1")
			if err != nil {
				t.Fatalf("RecordFailure error: %v", err)
			}
		}

		if until == nil {
			t.Fatalf("%d failures: expected a deadline", tc.failures)
		}
		if want := now.Add(tc.want); !until.Equal(want) {
			t.Fatalf("%d failures: got deadline %v want %v", tc.failures, until, want)
		}
	}
}

func TestRecordSuccess_ResetsCounter(t *testing.T) {
	t.Parallel()

	svc, repo := newTestLockoutService(time.Unix(1000, 0))
	ctx := context.Background()

	// Four failures, then a success: the window never opens and the counter
	// starts over.
	for i := 0; i < LockoutThreshold-1; i++ {
		if _, _, err := svc.RecordFailure(ctx, "u1"); err != nil {
			t.Fatalf("RecordFailure error: %v", err)
		}
	}
	if err := svc.RecordSuccess(ctx, "u1"); err != nil {
		t.Fatalf("RecordSuccess error: %v", err)
	}

	state, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if state.FailedCount != 0 || state.LockedUntil != nil {
		t.Fatalf("expected cleared state, got %+v", state)
	}

	locked, _, err := svc.RecordFailure(ctx, "u1")
	if err != nil {
		t.Fatalf("RecordFailure error: %v", err)
	}
	if locked {
		t.Fatalf("first failure after reset must not lock")
	}
}

func TestIsLocked_ExpiredWindow(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	svc, _ := newTestLockoutService(now)
	ctx := context.Background()

	for i := 0; i < LockoutThreshold; i++ {
		if _, _, err := svc.RecordFailure(ctx, "u1"); err != nil {
			t.Fatalf("RecordFailure error: %v", err)
		}
	}

	svc.now = func() time.Time { return now.Add(2 * time.Minute) }
	locked, err := svc.IsLocked(ctx, "u1")
	if err != nil {
		t.Fatalf("IsLocked error: %v", err)
	}
	if locked {
		t.Fatalf("lock must expire with the window")
	}
}

func TestIsLocked_UnknownUser(t *testing.T) {
	t.Parallel()

	svc, _ := newTestLockoutService(time.Unix(1000, 0))

	locked, err := svc.IsLocked(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("IsLocked error: %v", err)
	}
	if locked {
		t.Fatalf("unknown user must not be locked")
	}
}
