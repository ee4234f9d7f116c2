package model

import (
	"encoding/json"
	"time"
)

// Source is a retrieval citation attached to an assistant message.
type Source struct {
	DocumentID     string  `json:"documentId"`
	Filename       string  `json:"filename"`
	Snippet        string  `json:"snippet"`
	RelevanceScore float64 `json:"relevanceScore"`
	ChunkIndex     int     `json:"chunkIndex"`
}

// ChatMessage is one side of a chat exchange. Sources are stored as a JSON
// array and are only present on assistant messages answered with retrieval.
// The raw Sources string keeps its value across the persistence queue; API
// responses decode it via SourceList.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID uint      `gorm:"not null;index" json:"sessionId"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:longtext;not null" json:"content"`
	Sources   string    `gorm:"type:text" json:"sources,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SourceList returns the parsed citations; empty on parse error.
func (m *ChatMessage) SourceList() []Source {
	if m.Sources == "" {
		return nil
	}
	var sources []Source
	_ = json.Unmarshal([]byte(m.Sources), &sources)
	return sources
}

// SetSources stores the citations as JSON.
func (m *ChatMessage) SetSources(sources []Source) {
	if len(sources) == 0 {
		m.Sources = ""
		return
	}
	b, _ := json.Marshal(sources)
	m.Sources = string(b)
}
