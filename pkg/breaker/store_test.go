package breaker

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_DefaultSnapshot(t *testing.T) {
	store := NewMemoryStore()

	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if snap.State != StateClosed {
		t.Errorf("State = %q, want closed by default", snap.State)
	}
	if snap.Failures != 0 {
		t.Errorf("Failures = %d, want 0", snap.Failures)
	}
}

func TestMemoryStore_SaveLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	openedAt := time.Now().Truncate(time.Second)
	in := Snapshot{State: StateOpen, Failures: 7, OpenedAt: openedAt}
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	out, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if out.State != StateOpen || out.Failures != 7 || !out.OpenedAt.Equal(openedAt) {
		t.Errorf("Load() = %+v, want %+v", out, in)
	}
}

func TestSnapshot_RemainingCooldown(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		snap Snapshot
		want time.Duration
	}{
		{"closed", Snapshot{State: StateClosed}, 0},
		{"half_open", Snapshot{State: StateHalfOpen}, 0},
		{"open mid cooldown", Snapshot{State: StateOpen, OpenedAt: now.Add(-10 * time.Second)}, 20 * time.Second},
		{"open elapsed", Snapshot{State: StateOpen, OpenedAt: now.Add(-40 * time.Second)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.snap.RemainingCooldown(30*time.Second, now)
			if got != tt.want {
				t.Errorf("RemainingCooldown() = %v, want %v", got, tt.want)
			}
		})
	}
}
