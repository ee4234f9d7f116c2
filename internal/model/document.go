package model

import "time"

// DocumentStatus is the document lifecycle state.
type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusFailed     DocumentStatus = "failed"
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusUploaded, StatusProcessing, StatusProcessed, StatusFailed:
		return true
	}
	return false
}

// Document tracks an uploaded file through the ingestion lifecycle.
// ExtractedText and ChunkCount are set only on the transition into
// "processed"; ErrorMessage only on the transition into "failed".
type Document struct {
	ID                 string         `gorm:"primaryKey;size:36" json:"id"`
	Filename           string         `gorm:"size:256;not null" json:"filename"`
	ContentType        string         `gorm:"size:128;not null" json:"contentType"`
	Size               int64          `gorm:"not null" json:"size"`
	StorageKey         string         `gorm:"size:128;not null" json:"-"`
	Status             DocumentStatus `gorm:"size:16;not null;index" json:"status"`
	ExtractedText      *string        `gorm:"type:longtext" json:"-"`
	ChunkCount         *int           `json:"chunkCount,omitempty"`
	ErrorMessage       *string        `gorm:"size:1024" json:"errorMessage,omitempty"`
	Summary            *string        `gorm:"type:text" json:"-"`
	UploadedAt         time.Time      `gorm:"autoCreateTime" json:"uploadedAt"`
	ProcessedAt        *time.Time     `json:"processedAt,omitempty"`
	SummaryGeneratedAt *time.Time     `json:"-"`
}
