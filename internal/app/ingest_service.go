package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dangvu0502/homework-pinecone/internal/model"
	"github.com/dangvu0502/homework-pinecone/internal/notify"
	"github.com/dangvu0502/homework-pinecone/internal/pkg/logger"
	"github.com/dangvu0502/homework-pinecone/internal/vectorstore"
)

// DocumentStore persists document records and their lifecycle transitions.
type DocumentStore interface {
	Create(doc *model.Document) error
	GetByID(id string) (*model.Document, error)
	List() ([]model.Document, error)
	UpdateStatus(id string, status model.DocumentStatus) error
	MarkProcessed(id string, extractedText string, chunkCount int) error
	MarkFailed(id string, message string) error
	SetSummary(id string, summary string, generatedAt time.Time) error
	Delete(id string) error
}

// FileStore keeps uploaded file bytes addressable by storage key.
type FileStore interface {
	Save(filename string, data []byte) (string, error)
	Path(key string) string
	Delete(key string) error
}

// TextExtractor turns a stored file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, filePath, contentType string) (string, error)
}

// Chunker splits extracted text into retrieval units. It never fails.
type Chunker interface {
	Chunk(ctx context.Context, text, filename string) []string
}

// StatusNotifier broadcasts document lifecycle transitions to listeners.
type StatusNotifier interface {
	Publish(update notify.StatusUpdate)
}

// IngestService runs the processing pipeline for an uploaded document:
// extract, chunk, index, then mark the record processed or failed. Every run
// ends in a terminal status with a matching notification.
type IngestService struct {
	docs      DocumentStore
	files     FileStore
	extractor TextExtractor
	chunker   Chunker
	vectors   vectorstore.Store
	notifier  StatusNotifier
	log       *logger.Logger

	inflight sync.Map // documentID -> chan struct{}
}

func NewIngestService(docs DocumentStore, files FileStore, extractor TextExtractor,
	chunker Chunker, vectors vectorstore.Store, notifier StatusNotifier, log *logger.Logger) *IngestService {
	return &IngestService{
		docs:      docs,
		files:     files,
		extractor: extractor,
		chunker:   chunker,
		vectors:   vectors,
		notifier:  notifier,
		log:       log,
	}
}

// Trigger starts processing the document in the background and returns a
// channel that is closed when the run finishes. If a run for the same
// document is already in flight, the existing run's channel is returned and
// no second run starts.
func (s *IngestService) Trigger(documentID string) <-chan struct{} {
	done := make(chan struct{})
	if existing, loaded := s.inflight.LoadOrStore(documentID, done); loaded {
		return existing.(chan struct{})
	}

	go func() {
		defer close(done)
		defer s.inflight.Delete(documentID)

		if err := s.Process(context.Background(), documentID); err != nil {
			s.log.Error("background document processing failed",
				"documentId", documentID, "error", err)
		}
	}()
	return done
}

// Process runs the full pipeline synchronously. The document ends up in
// status processed or failed unless the record itself cannot be loaded.
func (s *IngestService) Process(ctx context.Context, documentID string) error {
	doc, err := s.docs.GetByID(documentID)
	if err != nil {
		return fmt.Errorf("load document failed: %w", err)
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	s.log.Info("starting document processing",
		"documentId", documentID, "filename", doc.Filename, "contentType", doc.ContentType)

	if err := s.docs.UpdateStatus(documentID, model.StatusProcessing); err != nil {
		return s.fail(documentID, doc.Filename, fmt.Errorf("mark processing failed: %w", err))
	}
	s.notifier.Publish(notify.StatusUpdate{
		DocumentID: documentID,
		Status:     model.StatusProcessing,
		Filename:   doc.Filename,
	})

	text, chunkCount, err := s.run(ctx, doc)
	if err != nil {
		return s.fail(documentID, doc.Filename, err)
	}

	if err := s.docs.MarkProcessed(documentID, text, chunkCount); err != nil {
		return s.fail(documentID, doc.Filename, fmt.Errorf("mark processed failed: %w", err))
	}
	s.notifier.Publish(notify.StatusUpdate{
		DocumentID: documentID,
		Status:     model.StatusProcessed,
		Filename:   doc.Filename,
		ChunkCount: chunkCount,
	})

	s.log.Info("document processing completed",
		"documentId", documentID, "chunkCount", chunkCount)
	return nil
}

func (s *IngestService) run(ctx context.Context, doc *model.Document) (string, int, error) {
	text, err := s.extractor.Extract(ctx, s.files.Path(doc.StorageKey), doc.ContentType)
	if err != nil {
		return "", 0, fmt.Errorf("text extraction failed: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", 0, errors.New("no text could be extracted from the document")
	}

	pieces := s.chunker.Chunk(ctx, text, doc.Filename)
	chunks := make([]vectorstore.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = vectorstore.Chunk{
			ID:   vectorstore.ChunkID(doc.ID, i),
			Text: piece,
			Metadata: vectorstore.Metadata{
				DocumentID:  doc.ID,
				Filename:    doc.Filename,
				ChunkIndex:  i,
				TotalChunks: len(pieces),
				ContentType: doc.ContentType,
				WordCount:   len(strings.Fields(piece)),
			},
		}
	}

	if err := s.vectors.Upsert(ctx, chunks); err != nil {
		return "", 0, fmt.Errorf("vector upsert failed: %w", err)
	}
	return text, len(chunks), nil
}

func (s *IngestService) fail(documentID, filename string, cause error) error {
	s.log.Error("document processing failed", "documentId", documentID, "error", cause)

	if err := s.docs.MarkFailed(documentID, cause.Error()); err != nil {
		s.log.Error("recording failure status errored", "documentId", documentID, "error", err)
	}
	s.notifier.Publish(notify.StatusUpdate{
		DocumentID: documentID,
		Status:     model.StatusFailed,
		Filename:   filename,
		Error:      cause.Error(),
	})
	return cause
}
