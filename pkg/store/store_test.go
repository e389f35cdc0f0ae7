package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// backends returns a named constructor for every Store implementation so the
// shared contract tests run against each.
func backends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemory()
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
			if err != nil {
				t.Fatalf("failed to create sqlite store: %v", err)
			}
			return s
		},
	}
}

func TestStore_IncrementWithin(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			ctx := context.Background()

			// Counts accumulate within the window
			for want := int64(1); want <= 3; want++ {
				got, err := s.IncrementWithin(ctx, "client-a", time.Minute)
				if err != nil {
					t.Fatalf("IncrementWithin failed: %v", err)
				}
				if got != want {
					t.Errorf("Expected count %d, got %d", want, got)
				}
			}

			// Independent keys do not interfere
			got, err := s.IncrementWithin(ctx, "client-b", time.Minute)
			if err != nil {
				t.Fatalf("IncrementWithin failed: %v", err)
			}
			if got != 1 {
				t.Errorf("Expected independent key to start at 1, got %d", got)
			}
		})
	}
}

func TestStore_IncrementWindowExpiry(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			ctx := context.Background()

			if _, err := s.IncrementWithin(ctx, "key", 50*time.Millisecond); err != nil {
				t.Fatalf("IncrementWithin failed: %v", err)
			}
			if _, err := s.IncrementWithin(ctx, "key", 50*time.Millisecond); err != nil {
				t.Fatalf("IncrementWithin failed: %v", err)
			}

			time.Sleep(80 * time.Millisecond)

			// Expired window restarts at 1 with a fresh expiry
			got, err := s.IncrementWithin(ctx, "key", time.Minute)
			if err != nil {
				t.Fatalf("IncrementWithin failed: %v", err)
			}
			if got != 1 {
				t.Errorf("Expected count reset to 1 after expiry, got %d", got)
			}

			ttl, ok, err := s.TTL(ctx, "key")
			if err != nil || !ok {
				t.Fatalf("TTL failed: ok=%v err=%v", ok, err)
			}
			if ttl < 50*time.Second {
				t.Errorf("Expected fresh ttl near 1m, got %v", ttl)
			}
		})
	}
}

func TestStore_GetSet(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			ctx := context.Background()

			// Missing key
			_, ok, err := s.Get(ctx, "missing")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if ok {
				t.Error("Expected miss for absent key")
			}

			// Round trip
			if err := s.Set(ctx, "k", []byte("payload"), time.Minute); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			value, ok, err := s.Get(ctx, "k")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if !ok || string(value) != "payload" {
				t.Errorf("Expected payload, got ok=%v value=%q", ok, value)
			}

			// Replace
			if err := s.Set(ctx, "k", []byte("updated"), time.Minute); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			value, _, _ = s.Get(ctx, "k")
			if string(value) != "updated" {
				t.Errorf("Expected updated value, got %q", value)
			}

			// Delete
			if err := s.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			if _, ok, _ := s.Get(ctx, "k"); ok {
				t.Error("Expected miss after delete")
			}
		})
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			ctx := context.Background()

			if err := s.Set(ctx, "short", []byte("v"), 50*time.Millisecond); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			if _, ok, _ := s.Get(ctx, "short"); !ok {
				t.Error("Expected hit before expiry")
			}

			time.Sleep(80 * time.Millisecond)

			if _, ok, _ := s.Get(ctx, "short"); ok {
				t.Error("Expected miss after expiry")
			}
		})
	}
}

func TestStore_InvalidTTL(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			ctx := context.Background()

			if _, err := s.IncrementWithin(ctx, "k", 0); err == nil {
				t.Error("Expected error for zero ttl increment")
			}
			if err := s.Set(ctx, "k", []byte("v"), -time.Second); err == nil {
				t.Error("Expected error for negative ttl set")
			}
		})
	}
}

func TestStore_Prune(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			ctx := context.Background()

			for i := 0; i < 5; i++ {
				key := fmt.Sprintf("expired-%d", i)
				if err := s.Set(ctx, key, []byte("v"), 10*time.Millisecond); err != nil {
					t.Fatalf("Set failed: %v", err)
				}
			}
			if err := s.Set(ctx, "live", []byte("v"), time.Minute); err != nil {
				t.Fatalf("Set failed: %v", err)
			}

			time.Sleep(30 * time.Millisecond)

			removed, err := s.Prune(ctx)
			if err != nil {
				t.Fatalf("Prune failed: %v", err)
			}
			if removed != 5 {
				t.Errorf("Expected 5 pruned entries, got %d", removed)
			}

			if _, ok, _ := s.Get(ctx, "live"); !ok {
				t.Error("Expected live entry to survive pruning")
			}
		})
	}
}

func TestStore_ConcurrentIncrement(t *testing.T) {
	for name, newStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			ctx := context.Background()

			const goroutines = 50
			var wg sync.WaitGroup

			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := s.IncrementWithin(ctx, "hot", time.Minute); err != nil {
						t.Errorf("IncrementWithin failed: %v", err)
					}
				}()
			}
			wg.Wait()

			final, err := s.IncrementWithin(ctx, "hot", time.Minute)
			if err != nil {
				t.Fatalf("IncrementWithin failed: %v", err)
			}
			if final != goroutines+1 {
				t.Errorf("Expected count %d after concurrent increments, got %d", goroutines+1, final)
			}
		})
	}
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")
	ctx := context.Background()

	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}
	if err := s.Set(ctx, "durable", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("failed to reopen sqlite store: %v", err)
	}
	defer reopened.Close()

	value, ok, err := reopened.Get(ctx, "durable")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || string(value) != "v" {
		t.Errorf("Expected value to survive reopen, got ok=%v value=%q", ok, value)
	}
}
