package presence

import "context"

// Registry tracks which realtime sessions each user currently holds.
// A user may hold any number of simultaneous sessions (multi-device);
// they are online iff the set is non-empty.
type Registry interface {
	Register(ctx context.Context, userID, sessionID string) error
	Unregister(ctx context.Context, userID, sessionID string) error
	SessionsFor(ctx context.Context, userID string) ([]string, error)
	IsOnline(ctx context.Context, userID string) (bool, error)
}
