package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Actor (matches internal/handler context keys)
	FieldUserID = "user_id"

	// Chat
	FieldRoomID    = "room_id"
	FieldMessageID = "message_id"
	FieldSessionID = "session_id"

	// Service
	FieldService = "service"
)
