package model

import "strings"

// Item is a single task tracked by the server.
type Item struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Done      bool   `json:"done"`
	CreatedAt int64  `json:"createdAt"`
}

type Method string

const (
	POST   Method = "POST"
	PUT    Method = "PUT"
	DELETE Method = "DELETE"
)

// ParseMethod accepts only the write methods that may be queued.
func ParseMethod(s string) (Method, bool) {
	switch m := Method(strings.ToUpper(strings.TrimSpace(s))); m {
	case POST, PUT, DELETE:
		return m, true
	}
	return "", false
}

// Operation is a write that could not reach the server and waits for replay.
// Seq is assigned by the queue and defines replay order.
type Operation struct {
	Seq        int64   `json:"seq"`
	ID         string  `json:"id"`
	Path       string  `json:"path"`
	Method     Method  `json:"method"`
	Body       *string `json:"body,omitempty"`
	EnqueuedAt int64   `json:"enqueuedAt"`
}

// Filter narrows a list read. A nil Done matches both states.
type Filter struct {
	Done  *bool
	Query string
}

// Matches reports whether item passes the filter.
func (f Filter) Matches(item Item) bool {
	if f.Done != nil && item.Done != *f.Done {
		return false
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		return strings.Contains(strings.ToLower(item.Text), strings.ToLower(q))
	}
	return true
}

type ToggleSummary struct {
	Updated int  `json:"updated"`
	Done    bool `json:"done"`
}

type ClearSummary struct {
	Removed int `json:"removed"`
}

type Stats struct {
	Total     int `json:"total"`
	Done      int `json:"done"`
	Remaining int `json:"remaining"`
}
