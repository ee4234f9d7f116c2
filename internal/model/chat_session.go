package model

import (
	"encoding/json"
	"time"
)

// ChatSession scopes retrieval to a set of documents. The document ids are
// stored as a JSON array for portability; a session does not own the
// documents it references.
type ChatSession struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DocumentIDs string    `gorm:"type:text;not null" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DocumentIDList returns the parsed document id scope; empty on parse error.
func (s *ChatSession) DocumentIDList() []string {
	if s.DocumentIDs == "" {
		return nil
	}
	var ids []string
	_ = json.Unmarshal([]byte(s.DocumentIDs), &ids)
	return ids
}

// SetDocumentIDs stores the document id scope as JSON.
func (s *ChatSession) SetDocumentIDs(ids []string) {
	if len(ids) == 0 {
		s.DocumentIDs = "[]"
		return
	}
	b, _ := json.Marshal(ids)
	s.DocumentIDs = string(b)
}
