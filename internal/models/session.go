package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session is the per-profile record persisted across restarts: identity, the
// rolling query counter, and the conversation history.
type Session struct {
	SessionID   string     `json:"sessionId"`
	QueryCount  int        `json:"queryCount"`
	WindowStart time.Time  `json:"windowStart"`
	History     []*Message `json:"history"`
}

// PendingExchange is the most recent completed question/answer pair. It lives
// only in memory and backs the "make it harder" follow-up.
type PendingExchange struct {
	Question string
	Answer   string
}

// NewSessionID mints an identifier for a fresh session.
func NewSessionID(at time.Time) string {
	return fmt.Sprintf("session_%d_%s", at.UnixMilli(), uuid.NewString()[:8])
}
