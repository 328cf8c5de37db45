package presence

import (
	"context"
	"sync"
)

// MemoryRegistry is an in-process Registry for single-instance
// deployments and tests.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]map[string]struct{} // userID -> sessionID set
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sessions: make(map[string]map[string]struct{}),
	}
}

func (r *MemoryRegistry) Register(_ context.Context, userID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sessions[userID]
	if !ok {
		set = make(map[string]struct{})
		r.sessions[userID] = set
	}
	set[sessionID] = struct{}{}
	return nil
}

func (r *MemoryRegistry) Unregister(_ context.Context, userID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sessions[userID]
	if !ok {
		return nil
	}
	delete(set, sessionID)
	if len(set) == 0 {
		delete(r.sessions, userID)
	}
	return nil
}

func (r *MemoryRegistry) SessionsFor(_ context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.sessions[userID]
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out, nil
}

func (r *MemoryRegistry) IsOnline(_ context.Context, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[userID]) > 0, nil
}
