package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangvu0502/homework-pinecone/internal/model"
	"github.com/dangvu0502/homework-pinecone/internal/pkg/logger"
)

func uploadedDoc(id string) *model.Document {
	return &model.Document{
		ID:          id,
		Filename:    "report.pdf",
		ContentType: "application/pdf",
		Size:        1024,
		StorageKey:  "key-report.pdf",
		Status:      model.StatusUploaded,
		UploadedAt:  time.Now(),
	}
}

func newIngestFixture(docs *fakeDocumentStore, ext *fakeExtractor, chk *fakeChunker,
	vec *fakeVectorStore, ntf *fakeNotifier) *IngestService {
	return NewIngestService(docs, newFakeFileStore(), ext, chk, vec, ntf, logger.NewNop())
}

func TestProcess_Success(t *testing.T) {
	docs := newFakeDocumentStore(uploadedDoc("doc-1"))
	ext := &fakeExtractor{fn: func(_ context.Context, _, _ string) (string, error) {
		return "extracted body text", nil
	}}
	chk := &fakeChunker{chunks: []string{"first chunk here", "second chunk"}}
	vec := &fakeVectorStore{}
	ntf := &fakeNotifier{}
	svc := newIngestFixture(docs, ext, chk, vec, ntf)

	require.NoError(t, svc.Process(context.Background(), "doc-1"))

	doc, _ := docs.GetByID("doc-1")
	assert.Equal(t, model.StatusProcessed, doc.Status)
	require.NotNil(t, doc.ExtractedText)
	assert.Equal(t, "extracted body text", *doc.ExtractedText)
	require.NotNil(t, doc.ChunkCount)
	assert.Equal(t, 2, *doc.ChunkCount)
	assert.Nil(t, doc.ErrorMessage)
	require.NotNil(t, doc.ProcessedAt)

	require.Len(t, vec.upserted, 1)
	chunks := vec.upserted[0]
	require.Len(t, chunks, 2)
	assert.Equal(t, "doc-1-chunk-0", chunks[0].ID)
	assert.Equal(t, "doc-1-chunk-1", chunks[1].ID)
	assert.Equal(t, "doc-1", chunks[0].Metadata.DocumentID)
	assert.Equal(t, "report.pdf", chunks[0].Metadata.Filename)
	assert.Equal(t, 2, chunks[0].Metadata.TotalChunks)
	assert.Equal(t, 3, chunks[0].Metadata.WordCount)
	assert.Equal(t, 1, chunks[1].Metadata.ChunkIndex)

	updates := ntf.all()
	require.Len(t, updates, 2)
	assert.Equal(t, model.StatusProcessing, updates[0].Status)
	assert.Equal(t, model.StatusProcessed, updates[1].Status)
	assert.Equal(t, 2, updates[1].ChunkCount)
}

func TestProcess_ExtractionFailure(t *testing.T) {
	docs := newFakeDocumentStore(uploadedDoc("doc-1"))
	ext := &fakeExtractor{fn: func(_ context.Context, _, _ string) (string, error) {
		return "", errors.New("unreadable file")
	}}
	ntf := &fakeNotifier{}
	svc := newIngestFixture(docs, ext, &fakeChunker{}, &fakeVectorStore{}, ntf)

	err := svc.Process(context.Background(), "doc-1")
	require.Error(t, err)

	doc, _ := docs.GetByID("doc-1")
	assert.Equal(t, model.StatusFailed, doc.Status)
	require.NotNil(t, doc.ErrorMessage)
	assert.Contains(t, *doc.ErrorMessage, "text extraction failed")

	updates := ntf.all()
	require.Len(t, updates, 2)
	assert.Equal(t, model.StatusProcessing, updates[0].Status)
	assert.Equal(t, model.StatusFailed, updates[1].Status)
	assert.NotEmpty(t, updates[1].Error)
}

func TestProcess_EmptyExtractedText(t *testing.T) {
	docs := newFakeDocumentStore(uploadedDoc("doc-1"))
	ext := &fakeExtractor{fn: func(_ context.Context, _, _ string) (string, error) {
		return "  \n\t ", nil
	}}
	svc := newIngestFixture(docs, ext, &fakeChunker{}, &fakeVectorStore{}, &fakeNotifier{})

	err := svc.Process(context.Background(), "doc-1")
	require.Error(t, err)

	doc, _ := docs.GetByID("doc-1")
	assert.Equal(t, model.StatusFailed, doc.Status)
}

func TestProcess_UpsertFailure(t *testing.T) {
	docs := newFakeDocumentStore(uploadedDoc("doc-1"))
	ext := &fakeExtractor{fn: func(_ context.Context, _, _ string) (string, error) {
		return "some text", nil
	}}
	vec := &fakeVectorStore{upsertErr: errors.New("index unavailable")}
	ntf := &fakeNotifier{}
	svc := newIngestFixture(docs, ext, &fakeChunker{}, vec, ntf)

	err := svc.Process(context.Background(), "doc-1")
	require.Error(t, err)

	doc, _ := docs.GetByID("doc-1")
	assert.Equal(t, model.StatusFailed, doc.Status)
	require.NotNil(t, doc.ErrorMessage)
	assert.Contains(t, *doc.ErrorMessage, "vector upsert failed")
}

func TestProcess_UnknownDocument(t *testing.T) {
	svc := newIngestFixture(newFakeDocumentStore(), &fakeExtractor{}, &fakeChunker{}, &fakeVectorStore{}, &fakeNotifier{})

	err := svc.Process(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestProcess_RetryFromFailedClearsError(t *testing.T) {
	doc := uploadedDoc("doc-1")
	failedMsg := "previous failure"
	doc.Status = model.StatusFailed
	doc.ErrorMessage = &failedMsg
	docs := newFakeDocumentStore(doc)

	ext := &fakeExtractor{fn: func(_ context.Context, _, _ string) (string, error) {
		return "recovered text", nil
	}}
	svc := newIngestFixture(docs, ext, &fakeChunker{}, &fakeVectorStore{}, &fakeNotifier{})

	require.NoError(t, svc.Process(context.Background(), "doc-1"))

	updated, _ := docs.GetByID("doc-1")
	assert.Equal(t, model.StatusProcessed, updated.Status)
	assert.Nil(t, updated.ErrorMessage)
}

func TestTrigger_DeduplicatesInFlightRuns(t *testing.T) {
	docs := newFakeDocumentStore(uploadedDoc("doc-1"))
	release := make(chan struct{})
	ext := &fakeExtractor{fn: func(_ context.Context, _, _ string) (string, error) {
		<-release
		return "text", nil
	}}
	svc := newIngestFixture(docs, ext, &fakeChunker{}, &fakeVectorStore{}, &fakeNotifier{})

	first := svc.Trigger("doc-1")
	second := svc.Trigger("doc-1")
	assert.True(t, first == second, "concurrent triggers should share one run")

	close(release)
	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for processing to finish")
	}
	assert.Equal(t, 1, ext.callCount())

	// A later trigger starts a fresh run.
	third := svc.Trigger("doc-1")
	select {
	case <-third:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second run")
	}
	assert.Equal(t, 2, ext.callCount())
}
