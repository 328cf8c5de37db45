package keys

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/matchday-app/chat-service/internal/crypto"
	"github.com/matchday-app/chat-service/internal/repository"
	"github.com/matchday-app/chat-service/pkg/log"
)

// Manager hands out per-room symmetric keys. Keys are generated once at
// room creation and never rotate; the manager caches them in memory and
// backfills a key for any room that somehow lacks one. Callers must
// have passed an access check for the room before asking.
type Manager struct {
	rooms repository.RoomRepository

	mu    sync.RWMutex
	cache map[string][]byte
	sf    singleflight.Group
}

// NewManager creates a key manager over the room repository.
func NewManager(rooms repository.RoomRepository) *Manager {
	return &Manager{
		rooms: rooms,
		cache: make(map[string][]byte),
	}
}

// GetOrCreateRoomKey returns the room's AES-256 key, generating and
// persisting one if the room has none. Concurrent first accesses for
// the same room collapse into a single flight and observe one key.
func (m *Manager) GetOrCreateRoomKey(ctx context.Context, roomID string) ([]byte, error) {
	m.mu.RLock()
	if key, ok := m.cache[roomID]; ok {
		m.mu.RUnlock()
		return key, nil
	}
	m.mu.RUnlock()

	v, err, _ := m.sf.Do(roomID, func() (interface{}, error) {
		return m.loadOrGenerate(ctx, roomID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (m *Manager) loadOrGenerate(ctx context.Context, roomID string) ([]byte, error) {
	keyHex, err := m.rooms.RoomKey(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if keyHex == "" {
		fresh, err := crypto.GenerateKey()
		if err != nil {
			return nil, err
		}
		set, err := m.rooms.SetRoomKey(ctx, roomID, crypto.KeyToHex(fresh))
		if err != nil {
			return nil, err
		}
		if !set {
			// Another process won; re-read its key.
			keyHex, err = m.rooms.RoomKey(ctx, roomID)
			if err != nil {
				return nil, err
			}
		} else {
			keyHex = crypto.KeyToHex(fresh)
			log.Ctx(ctx).Info().Str(log.FieldRoomID, roomID).Msg("generated room key")
		}
	}

	key, err := crypto.KeyFromHex(keyHex)
	if err != nil {
		return nil, fmt.Errorf("room %s has a malformed key: %w", roomID, err)
	}

	m.mu.Lock()
	m.cache[roomID] = key
	m.mu.Unlock()
	return key, nil
}
