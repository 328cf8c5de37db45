package presence

import (
	"context"
	"sync"
	"testing"
)

func TestMultiDeviceSessions(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	if err := reg.Register(ctx, "u1", "s1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(ctx, "u1", "s2"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	sessions, err := reg.SessionsFor(ctx, "u1")
	if err != nil {
		t.Fatalf("SessionsFor: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}

	online, _ := reg.IsOnline(ctx, "u1")
	if !online {
		t.Fatal("expected u1 online with two sessions")
	}
}

func TestOfflineWhenLastSessionLeaves(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	reg.Register(ctx, "u1", "s1")
	reg.Register(ctx, "u1", "s2")

	reg.Unregister(ctx, "u1", "s1")
	if online, _ := reg.IsOnline(ctx, "u1"); !online {
		t.Fatal("u1 should stay online while s2 remains")
	}

	reg.Unregister(ctx, "u1", "s2")
	if online, _ := reg.IsOnline(ctx, "u1"); online {
		t.Fatal("u1 should be offline after last session leaves")
	}
}

func TestUnregisterUnknownSessionIsNoop(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	if err := reg.Unregister(ctx, "ghost", "s1"); err != nil {
		t.Fatalf("Unregister of unknown user should not error: %v", err)
	}
	if online, _ := reg.IsOnline(ctx, "ghost"); online {
		t.Fatal("unknown user should be offline")
	}
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	ctx := context.Background()
	reg := NewMemoryRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sid := string(rune('a' + n%26))
			reg.Register(ctx, "u1", sid)
			reg.Unregister(ctx, "u1", sid)
		}(i)
	}
	wg.Wait()

	if online, _ := reg.IsOnline(ctx, "u1"); online {
		t.Fatal("all sessions were unregistered; user should be offline")
	}
}
