package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dangvu0502/homework-pinecone/internal/ai"
	"github.com/dangvu0502/homework-pinecone/internal/model"
	"github.com/dangvu0502/homework-pinecone/internal/pkg/logger"
	"github.com/dangvu0502/homework-pinecone/internal/vectorstore"
)

const summaryChunkLimit = 5

// Completer produces a single completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// SummaryCache is a lookaside cache for generated document summaries.
type SummaryCache interface {
	Get(ctx context.Context, documentID string) (string, bool, error)
	Set(ctx context.Context, documentID, summary string) error
	Delete(ctx context.Context, documentID string) error
}

// IngestTrigger starts background processing for a document.
type IngestTrigger interface {
	Trigger(documentID string) <-chan struct{}
}

// DocumentService owns the document lifecycle outside of the processing
// pipeline: upload, listing, retry, deletion, per-document search, chunk
// browsing and on-demand summaries.
type DocumentService struct {
	docs      DocumentStore
	files     FileStore
	vectors   vectorstore.Store
	ingest    IngestTrigger
	llm       Completer
	summaries SummaryCache
	topK      int
	log       *logger.Logger
}

func NewDocumentService(docs DocumentStore, files FileStore, vectors vectorstore.Store,
	ingest IngestTrigger, llm Completer, summaries SummaryCache, topK int, log *logger.Logger) *DocumentService {
	if topK <= 0 {
		topK = 5
	}
	return &DocumentService{
		docs:      docs,
		files:     files,
		vectors:   vectors,
		ingest:    ingest,
		llm:       llm,
		summaries: summaries,
		topK:      topK,
		log:       log,
	}
}

// UploadInput carries one uploaded file.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// Upload stores the file, creates the document record in status uploaded and
// kicks off background processing.
func (s *DocumentService) Upload(ctx context.Context, input UploadInput) (*model.Document, error) {
	if input.Filename == "" || len(input.Data) == 0 {
		return nil, ErrInvalidInput
	}

	key, err := s.files.Save(input.Filename, input.Data)
	if err != nil {
		return nil, fmt.Errorf("store uploaded file failed: %w", err)
	}

	doc := &model.Document{
		ID:          uuid.NewString(),
		Filename:    input.Filename,
		ContentType: input.ContentType,
		Size:        input.Size,
		StorageKey:  key,
		Status:      model.StatusUploaded,
		UploadedAt:  time.Now(),
	}
	if err := s.docs.Create(doc); err != nil {
		return nil, fmt.Errorf("create document record failed: %w", err)
	}

	s.log.Info("document uploaded", "documentId", doc.ID,
		"filename", doc.Filename, "size", doc.Size)
	s.ingest.Trigger(doc.ID)
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	return s.docs.List()
}

func (s *DocumentService) Get(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.docs.GetByID(id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// Retry re-runs processing for a document. Any status is accepted; the
// pipeline moves the record to processing immediately.
func (s *DocumentService) Retry(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("document processing retry requested", "documentId", id, "status", doc.Status)
	s.ingest.Trigger(id)
	return doc, nil
}

// Delete removes the document record along with its vectors, stored file and
// cached summary. Vector and file cleanup are best effort; the record is
// deleted regardless.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.vectors.DeleteByDocument(ctx, id); err != nil {
		s.log.Warn("vector cleanup failed, continuing delete", "documentId", id, "error", err)
	}
	if err := s.files.Delete(doc.StorageKey); err != nil {
		s.log.Warn("stored file cleanup failed, continuing delete", "documentId", id, "error", err)
	}
	if err := s.summaries.Delete(ctx, id); err != nil {
		s.log.Warn("summary cache cleanup failed, continuing delete", "documentId", id, "error", err)
	}

	if err := s.docs.Delete(id); err != nil {
		return fmt.Errorf("delete document record failed: %w", err)
	}
	s.log.Info("document deleted", "documentId", id, "filename", doc.Filename)
	return nil
}

// SearchOutput is the result of a scoped similarity search. When the
// document cannot be searched the results are empty and Message explains why;
// that case is not an error.
type SearchOutput struct {
	Query       string                     `json:"query"`
	Results     []vectorstore.SearchResult `json:"results"`
	ResultCount int                        `json:"resultCount"`
	Message     string                     `json:"message,omitempty"`
}

// Search runs a similarity search restricted to one document.
func (s *DocumentService) Search(ctx context.Context, id, query string) (*SearchOutput, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &SearchOutput{Query: query, Results: []vectorstore.SearchResult{}}
	if doc.Status == model.StatusFailed || doc.ChunkCount == nil || *doc.ChunkCount == 0 {
		out.Message = "This document has no searchable content. Try re-uploading it."
		return out, nil
	}

	results, err := s.vectors.SearchByText(ctx, query, s.topK, []string{id})
	if err != nil {
		s.log.Error("document search failed", "documentId", id, "error", err)
		out.Message = "Search is temporarily unavailable for this document."
		return out, nil
	}
	out.Results = results
	out.ResultCount = len(results)
	return out, nil
}

// SummaryOutput reports a document summary, or a Message when none can be
// produced yet.
type SummaryOutput struct {
	Summary     *string    `json:"summary"`
	Cached      bool       `json:"cached"`
	GeneratedAt *time.Time `json:"generatedAt,omitempty"`
	Message     string     `json:"message,omitempty"`
}

// Summary returns the document summary, generating and persisting one from
// the first indexed chunks when neither the cache nor the record has it.
func (s *DocumentService) Summary(ctx context.Context, id string) (*SummaryOutput, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if cached, ok, cerr := s.summaries.Get(ctx, id); cerr == nil && ok {
		return &SummaryOutput{Summary: &cached, Cached: true, GeneratedAt: doc.SummaryGeneratedAt}, nil
	} else if cerr != nil {
		s.log.Warn("summary cache read failed", "documentId", id, "error", cerr)
	}

	if doc.Summary != nil {
		if err := s.summaries.Set(ctx, id, *doc.Summary); err != nil {
			s.log.Warn("summary cache write failed", "documentId", id, "error", err)
		}
		return &SummaryOutput{Summary: doc.Summary, Cached: true, GeneratedAt: doc.SummaryGeneratedAt}, nil
	}

	if doc.Status != model.StatusProcessed || doc.ChunkCount == nil || *doc.ChunkCount == 0 {
		return &SummaryOutput{Message: "Summary is not available until the document has been processed."}, nil
	}

	chunks, err := s.vectors.FetchByDocument(ctx, id, *doc.ChunkCount)
	if err != nil || len(chunks) == 0 {
		if err != nil {
			s.log.Error("fetching chunks for summary failed", "documentId", id, "error", err)
		}
		return &SummaryOutput{Message: "Summary is temporarily unavailable."}, nil
	}
	if len(chunks) > summaryChunkLimit {
		chunks = chunks[:summaryChunkLimit]
	}
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	prompt := fmt.Sprintf(
		"Summarize the following document excerpt in 2-3 sentences. Focus on the main topic and key points.\n\nDocument: %s\n\n%s",
		doc.Filename, strings.Join(texts, "\n\n"))
	summary, err := s.llm.Complete(ctx, []ai.ChatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		s.log.Error("summary generation failed", "documentId", id, "error", err)
		return &SummaryOutput{Message: "Summary generation failed. Please try again later."}, nil
	}
	summary = strings.TrimSpace(summary)

	now := time.Now()
	if err := s.docs.SetSummary(id, summary, now); err != nil {
		s.log.Warn("persisting summary failed", "documentId", id, "error", err)
	}
	if err := s.summaries.Set(ctx, id, summary); err != nil {
		s.log.Warn("summary cache write failed", "documentId", id, "error", err)
	}
	return &SummaryOutput{Summary: &summary, Cached: false, GeneratedAt: &now}, nil
}

// ChunksOutput lists a document's indexed chunks in order.
type ChunksOutput struct {
	DocumentID string              `json:"documentId"`
	Chunks     []vectorstore.Chunk `json:"chunks"`
	ChunkCount int                 `json:"chunkCount"`
	Message    string              `json:"message,omitempty"`
}

// Chunks returns the indexed chunks for a processed document.
func (s *DocumentService) Chunks(ctx context.Context, id string) (*ChunksOutput, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	out := &ChunksOutput{DocumentID: id, Chunks: []vectorstore.Chunk{}}
	if doc.Status != model.StatusProcessed || doc.ChunkCount == nil || *doc.ChunkCount == 0 {
		out.Message = "This document has no indexed chunks yet."
		return out, nil
	}

	chunks, err := s.vectors.FetchByDocument(ctx, id, *doc.ChunkCount)
	if err != nil {
		s.log.Error("fetching chunks failed", "documentId", id, "error", err)
		out.Message = "Chunks are temporarily unavailable."
		return out, nil
	}
	out.Chunks = chunks
	out.ChunkCount = len(chunks)
	return out, nil
}
