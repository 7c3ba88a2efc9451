package live

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestHub(t *testing.T) *Hub {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewHubWithClient(client)
}

func waitSnapshot[T any](t *testing.T, sub *Subscription[T]) T {
	t.Helper()
	select {
	case snapshot, ok := <-sub.Snapshots():
		if !ok {
			t.Fatalf("snapshot channel closed unexpectedly")
		}
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
		panic("unreachable")
	}
}

func TestWatchEmitsInitialSnapshot(t *testing.T) {
	hub := setupTestHub(t)

	sub := Watch(context.Background(), hub, "posts", func(context.Context) ([]string, error) {
		return []string{"first"}, nil
	})
	defer sub.Close()

	snapshot := waitSnapshot(t, sub)
	if len(snapshot) != 1 || snapshot[0] != "first" {
		t.Fatalf("unexpected initial snapshot: %v", snapshot)
	}
}

func TestWatchReloadsOnNotify(t *testing.T) {
	hub := setupTestHub(t)

	var loads atomic.Int64
	sub := Watch(context.Background(), hub, "posts", func(context.Context) (int64, error) {
		return loads.Add(1), nil
	})
	defer sub.Close()

	if got := waitSnapshot(t, sub); got != 1 {
		t.Fatalf("expected initial snapshot 1, got %d", got)
	}

	hub.Notify(context.Background(), "posts")

	if got := waitSnapshot(t, sub); got != 2 {
		t.Fatalf("expected reloaded snapshot 2, got %d", got)
	}
}

func TestWatchLatestSnapshotWins(t *testing.T) {
	hub := setupTestHub(t)

	var loads atomic.Int64
	sub := Watch(context.Background(), hub, "plants:ivy@example.com", func(context.Context) (int64, error) {
		return loads.Add(1), nil
	})
	defer sub.Close()

	// Let several notifications pile up before the consumer reads.
	waitSnapshot(t, sub)
	for i := 0; i < 3; i++ {
		hub.Notify(context.Background(), "plants:ivy@example.com")
	}

	// Stale pending snapshots are replaced, never queued: the stream reaches
	// the latest value without the consumer draining one read per notify.
	var got int64
	deadline := time.After(2 * time.Second)
	for got != 4 {
		select {
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				t.Fatalf("snapshot channel closed unexpectedly")
			}
			if snapshot < got {
				t.Fatalf("snapshot went backwards: %d after %d", snapshot, got)
			}
			got = snapshot
		case <-deadline:
			t.Fatalf("never reached latest snapshot, last was %d (loads=%d)", got, loads.Load())
		}
	}
}

func TestWatchCloseEndsStream(t *testing.T) {
	hub := setupTestHub(t)

	sub := Watch(context.Background(), hub, "profile:user-1", func(context.Context) (string, error) {
		return "profile", nil
	})
	waitSnapshot(t, sub)

	sub.Close()
	sub.Close() // idempotent

	select {
	case _, ok := <-sub.Snapshots():
		if ok {
			t.Fatalf("expected channel to close after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for channel close")
	}
}

func TestWatchContextCancelEndsStream(t *testing.T) {
	hub := setupTestHub(t)

	ctx, cancel := context.WithCancel(context.Background())
	sub := Watch(ctx, hub, "posts", func(context.Context) (string, error) {
		return "snapshot", nil
	})
	waitSnapshot(t, sub)

	cancel()

	select {
	case _, ok := <-sub.Snapshots():
		if ok {
			t.Fatalf("expected channel to close after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for channel close")
	}
}
