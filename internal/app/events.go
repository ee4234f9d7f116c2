package app

import "github.com/dangvu0502/homework-pinecone/internal/model"

// ChatEventType discriminates the events produced while answering one chat
// message.
type ChatEventType string

const (
	ChatEventConnected ChatEventType = "connected"
	ChatEventSource    ChatEventType = "source"
	ChatEventToken     ChatEventType = "token"
	ChatEventDone      ChatEventType = "done"
	ChatEventError     ChatEventType = "error"
)

// ChatEvent is one element of the answer stream. For a single message the
// order is connected, optionally source, zero or more tokens, then exactly
// one of done or error. The transport adapter serializes events to the wire.
type ChatEvent struct {
	Type      ChatEventType  `json:"type"`
	SessionID uint           `json:"sessionId,omitempty"`
	Sources   []model.Source `json:"sources,omitempty"`
	Content   string         `json:"content,omitempty"`
	Message   string         `json:"message,omitempty"`
	Code      string         `json:"code,omitempty"`
}
