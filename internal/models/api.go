package models

// WebSocket message envelope
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	EventSessionStarted = "session_started"
	EventSessionPaused  = "session_paused"
	EventSessionResumed = "session_resumed"
	EventSessionStopped = "session_stopped"
	EventSessionDeleted = "session_deleted"
)

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
