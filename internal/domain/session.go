package domain

import (
	"sync"
	"time"
)

// Session is the per-connection state of the realtime gateway. The user
// is fixed at connect time after the identity token is validated; only
// the joined-rooms set mutates afterwards.
type Session struct {
	ID        string
	UserID    string
	Admin     bool
	CreatedAt time.Time

	mu           sync.RWMutex
	rooms        map[string]struct{}
	lastActiveAt time.Time
}

// NewSession creates a session for an authenticated actor.
func NewSession(id string, actor Actor) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		UserID:       actor.ID,
		Admin:        actor.Admin,
		CreatedAt:    now,
		rooms:        make(map[string]struct{}),
		lastActiveAt: now,
	}
}

// Actor returns the authenticated actor bound to this session.
func (s *Session) Actor() Actor {
	return Actor{ID: s.UserID, Admin: s.Admin}
}

// JoinRoom records that the session joined roomID.
func (s *Session) JoinRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomID] = struct{}{}
	s.lastActiveAt = time.Now()
}

// LeaveRoom records that the session left roomID.
func (s *Session) LeaveRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
	s.lastActiveAt = time.Now()
}

// InRoom reports whether the session has joined roomID.
func (s *Session) InRoom(roomID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[roomID]
	return ok
}

// Rooms returns the rooms this session has joined.
func (s *Session) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		out = append(out, id)
	}
	return out
}

// UpdateActivity refreshes the last-activity timestamp.
func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
}
