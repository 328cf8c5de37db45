package notify

import "context"

// TypeChatMessage is the notification type for offline chat fallback.
const TypeChatMessage = "chat_message"

// Notification is handed to the external notification pipeline, which
// owns rendering and transport (push, email, in-app).
type Notification struct {
	Recipient string            `json:"recipient"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// Notifier delivers notifications best-effort. Callers treat failures
// as log-and-continue; a failed notification never fails the operation
// that triggered it.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
	Close() error
}
