package keys

import (
	"context"
	"encoding/hex"
	"sync"
	"testing"
	"time"

	"github.com/matchday-app/chat-service/internal/crypto"
	"github.com/matchday-app/chat-service/internal/domain"
	"github.com/matchday-app/chat-service/internal/repository"
)

// fakeRoomRepo implements repository.RoomRepository over a map. Only
// the key operations matter here.
type fakeRoomRepo struct {
	mu       sync.Mutex
	keys     map[string]string
	setCalls int
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{keys: map[string]string{}}
}

func (f *fakeRoomRepo) Create(ctx context.Context, room *domain.Room, keyHex string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[room.ID] = keyHex
	return nil
}

func (f *fakeRoomRepo) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	return nil, repository.ErrRoomNotFound
}

func (f *fakeRoomRepo) GetByContext(ctx context.Context, contextType domain.ContextType, contextID string) (*domain.Room, error) {
	return nil, repository.ErrRoomNotFound
}

func (f *fakeRoomRepo) AddParticipant(ctx context.Context, roomID, userID string) error { return nil }

func (f *fakeRoomRepo) ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Room, error) {
	return nil, nil
}

func (f *fakeRoomRepo) RoomKey(ctx context.Context, roomID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, ok := f.keys[roomID]
	if !ok {
		return "", repository.ErrRoomNotFound
	}
	return key, nil
}

func (f *fakeRoomRepo) SetRoomKey(ctx context.Context, roomID, keyHex string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	if f.keys[roomID] != "" {
		return false, nil
	}
	f.keys[roomID] = keyHex
	return true, nil
}

func (f *fakeRoomRepo) TouchLastMessage(ctx context.Context, roomID string, at time.Time) error {
	return nil
}

func TestGetExistingKey(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRoomRepo()

	key, _ := crypto.GenerateKey()
	repo.keys["r1"] = crypto.KeyToHex(key)

	m := NewManager(repo)
	got, err := m.GetOrCreateRoomKey(ctx, "r1")
	if err != nil {
		t.Fatalf("GetOrCreateRoomKey: %v", err)
	}
	if hex.EncodeToString(got) != crypto.KeyToHex(key) {
		t.Fatal("returned key does not match stored key")
	}
}

func TestBackfillsMissingKey(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRoomRepo()
	repo.keys["r1"] = ""

	m := NewManager(repo)
	got, err := m.GetOrCreateRoomKey(ctx, "r1")
	if err != nil {
		t.Fatalf("GetOrCreateRoomKey: %v", err)
	}
	if len(got) != crypto.KeySize {
		t.Fatalf("expected %d-byte key, got %d", crypto.KeySize, len(got))
	}
	if repo.keys["r1"] != hex.EncodeToString(got) {
		t.Fatal("generated key was not persisted")
	}
}

func TestUnknownRoom(t *testing.T) {
	m := NewManager(newFakeRoomRepo())
	if _, err := m.GetOrCreateRoomKey(context.Background(), "ghost"); err == nil {
		t.Fatal("expected error for unknown room")
	}
}

func TestConcurrentAccessYieldsOneKey(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRoomRepo()
	repo.keys["r1"] = ""

	m := NewManager(repo)

	const n = 32
	results := make([][]byte, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key, err := m.GetOrCreateRoomKey(ctx, "r1")
			if err != nil {
				t.Errorf("GetOrCreateRoomKey: %v", err)
				return
			}
			results[i] = key
		}(i)
	}
	wg.Wait()

	first := hex.EncodeToString(results[0])
	for i := 1; i < n; i++ {
		if hex.EncodeToString(results[i]) != first {
			t.Fatal("concurrent callers observed different keys")
		}
	}
}

func TestCachedKeySkipsRepository(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRoomRepo()
	repo.keys["r1"] = ""

	m := NewManager(repo)
	if _, err := m.GetOrCreateRoomKey(ctx, "r1"); err != nil {
		t.Fatalf("first access: %v", err)
	}
	calls := repo.setCalls

	if _, err := m.GetOrCreateRoomKey(ctx, "r1"); err != nil {
		t.Fatalf("second access: %v", err)
	}
	if repo.setCalls != calls {
		t.Fatal("cached access should not hit SetRoomKey again")
	}
}
