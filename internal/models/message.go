package models

import (
	"strconv"
	"time"
)

// Message is one entry in a conversation transcript. Once appended its text
// is never rewritten; only presentation tags (reactions) may be added.
type Message struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	IsUser      bool      `json:"isUser"`
	Timestamp   string    `json:"timestamp"`
	Attachments []FileRef `json:"attachments,omitempty"`
	IsFallback  bool      `json:"isFallback,omitempty"`
	Reactions   []string  `json:"reactions,omitempty"`
}

// FileRef describes an attachment carried by a message.
type FileRef struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
	Path     string `json:"path,omitempty"`
}

// NewMessageID returns a nanosecond-timestamp identifier. IDs only need to be
// unique and roughly ordered within a single transcript.
func NewMessageID(at time.Time) string {
	return strconv.FormatInt(at.UnixNano(), 10)
}

// NewMessage builds a message stamped with the given wall-clock time.
func NewMessage(text string, isUser bool, at time.Time) *Message {
	return &Message{
		ID:        NewMessageID(at),
		Text:      text,
		IsUser:    isUser,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	}
}
