package monitor

import "time"

// EventType 表示监控事件类型。
type EventType string

const (
	EventCommitted EventType = "invocation_committed"
	EventAborted   EventType = "invocation_aborted"
	EventError     EventType = "error"
)

// Event 封装通用监控事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// InvocationPayload 记录一次调用的回执。
type InvocationPayload struct {
	InvocationID string            `json:"invocation_id"`
	Operation    string            `json:"operation"`
	Contract     string            `json:"contract,omitempty"`
	Committed    bool              `json:"committed"`
	Error        string            `json:"error,omitempty"`
	Code         *uint32           `json:"code,omitempty"`
	Annotations  map[string]string `json:"annotations,omitempty"`
	DurationMS   float64           `json:"duration_ms"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
