package transport

import "time"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope wraps every admin API and health response.
type Envelope struct {
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
	Data   any    `json:"data,omitempty"`
	Error  any    `json:"error,omitempty"`
	Meta   any    `json:"meta,omitempty"`
}

// ListMeta describes a task list snapshot.
type ListMeta struct {
	View  string `json:"view"`
	Count int    `json:"count"`
}

// Health is the body of GET /health.
type Health struct {
	Timestamp time.Time       `json:"timestamp"`
	LastCheck time.Time       `json:"last_check"`
	Services  map[string]bool `json:"services"`
}

func NewSuccess(data, meta any) Envelope {
	return Envelope{Status: StatusSuccess, Data: data, Meta: meta}
}

// NewError builds an error envelope; meta may carry partial data such as a degraded health report.
func NewError(code string, message any, meta any) Envelope {
	return Envelope{Status: StatusError, Code: code, Error: message, Meta: meta}
}
