package authkit

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryUserStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()

	user, err := store.Create(ctx, "mem@example.com", "Mem", "hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, "mem@example.com", "Again", "hash"); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if _, err := store.FindByEmail(ctx, "other@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	matches, _ := store.RefreshTokenMatches(ctx, user.ID, "")
	if matches {
		t.Fatalf("a user without a stored token must not match")
	}

	if err := store.SetRefreshToken(ctx, user.ID, "digest-1"); err != nil {
		t.Fatalf("set refresh: %v", err)
	}
	rotated, _ := store.RotateRefreshToken(ctx, user.ID, "digest-0", "digest-2")
	if rotated {
		t.Fatalf("rotation with a stale digest must fail")
	}
	rotated, _ = store.RotateRefreshToken(ctx, user.ID, "digest-1", "digest-2")
	if !rotated {
		t.Fatalf("rotation with the current digest must succeed")
	}
	stored, _ := store.FindByID(ctx, user.ID)
	if stored.RefreshTokenDigest != "digest-2" {
		t.Fatalf("expected rotated digest, got %q", stored.RefreshTokenDigest)
	}

	if err := store.SetRefreshToken(ctx, "missing", "digest"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestFanOutMetrics(t *testing.T) {
	first := NewCounterMetrics()
	second := NewCounterMetrics()
	FanOutMetrics{first, nil, second}.Increment(metricAuthLoginSuccess)
	if first.Count(metricAuthLoginSuccess) != 1 || second.Count(metricAuthLoginSuccess) != 1 {
		t.Fatalf("expected event forwarded to every recorder")
	}
	snapshot := first.Snapshot()
	snapshot[metricAuthLoginSuccess] = 99
	if first.Count(metricAuthLoginSuccess) != 1 {
		t.Fatalf("expected snapshot to be a copy")
	}
}
