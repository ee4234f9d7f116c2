package app

import (
	"context"
	"sync"
	"time"

	"github.com/dangvu0502/homework-pinecone/internal/ai"
	"github.com/dangvu0502/homework-pinecone/internal/model"
	"github.com/dangvu0502/homework-pinecone/internal/notify"
	"github.com/dangvu0502/homework-pinecone/internal/vectorstore"
)

type fakeDocumentStore struct {
	mu        sync.Mutex
	docs      map[string]*model.Document
	deleted   []string
	deleteErr error
}

func newFakeDocumentStore(docs ...*model.Document) *fakeDocumentStore {
	s := &fakeDocumentStore{docs: make(map[string]*model.Document)}
	for _, doc := range docs {
		s.docs[doc.ID] = doc
	}
	return s
}

func (s *fakeDocumentStore) Create(doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *doc
	s.docs[doc.ID] = &copied
	return nil
}

func (s *fakeDocumentStore) GetByID(id string) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (s *fakeDocumentStore) List() ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var docs []model.Document
	for _, doc := range s.docs {
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (s *fakeDocumentStore) UpdateStatus(id string, status model.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok {
		doc.Status = status
	}
	return nil
}

func (s *fakeDocumentStore) MarkProcessed(id, extractedText string, chunkCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok {
		doc.Status = model.StatusProcessed
		doc.ExtractedText = &extractedText
		doc.ChunkCount = &chunkCount
		doc.ErrorMessage = nil
		now := time.Now()
		doc.ProcessedAt = &now
	}
	return nil
}

func (s *fakeDocumentStore) MarkFailed(id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok {
		doc.Status = model.StatusFailed
		doc.ErrorMessage = &message
	}
	return nil
}

func (s *fakeDocumentStore) SetSummary(id, summary string, generatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok {
		doc.Summary = &summary
		doc.SummaryGeneratedAt = &generatedAt
	}
	return nil
}

func (s *fakeDocumentStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.docs, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type fakeFileStore struct {
	mu        sync.Mutex
	files     map[string][]byte
	saveErr   error
	deleteErr error
	deleted   []string
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{files: make(map[string][]byte)}
}

func (s *fakeFileStore) Save(filename string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return "", s.saveErr
	}
	key := "key-" + filename
	s.files[key] = data
	return key, nil
}

func (s *fakeFileStore) Path(key string) string {
	return "/uploads/" + key
}

func (s *fakeFileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.files, key)
	return nil
}

type fakeExtractor struct {
	mu    sync.Mutex
	fn    func(ctx context.Context, filePath, contentType string) (string, error)
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, filePath, contentType string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ctx, filePath, contentType)
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeChunker struct {
	chunks []string
}

func (f *fakeChunker) Chunk(_ context.Context, text, _ string) []string {
	if f.chunks != nil {
		return f.chunks
	}
	return []string{text}
}

type fakeNotifier struct {
	mu      sync.Mutex
	updates []notify.StatusUpdate
}

func (f *fakeNotifier) Publish(update notify.StatusUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
}

func (f *fakeNotifier) all() []notify.StatusUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.StatusUpdate(nil), f.updates...)
}

type fakeVectorStore struct {
	mu          sync.Mutex
	upserted    [][]vectorstore.Chunk
	searchCalls int
	deletedDocs []string

	upsertErr error
	searchFn  func(query string, topK int, documentIDs []string) ([]vectorstore.SearchResult, error)
	fetchFn   func(documentID string, totalChunks int) ([]vectorstore.Chunk, error)
	deleteErr error
}

func (f *fakeVectorStore) Upsert(_ context.Context, chunks []vectorstore.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, chunks)
	return nil
}

func (f *fakeVectorStore) SearchByText(_ context.Context, query string, topK int, documentIDs []string) ([]vectorstore.SearchResult, error) {
	f.mu.Lock()
	f.searchCalls++
	f.mu.Unlock()
	if f.searchFn != nil {
		return f.searchFn(query, topK, documentIDs)
	}
	return nil, nil
}

func (f *fakeVectorStore) FetchByDocument(_ context.Context, documentID string, totalChunks int) ([]vectorstore.Chunk, error) {
	if f.fetchFn != nil {
		return f.fetchFn(documentID, totalChunks)
	}
	return nil, nil
}

func (f *fakeVectorStore) DeleteByDocument(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedDocs = append(f.deletedDocs, documentID)
	return f.deleteErr
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[uint]*model.ChatSession
	nextID   uint
}

func newFakeSessionStore(sessions ...*model.ChatSession) *fakeSessionStore {
	s := &fakeSessionStore{sessions: make(map[uint]*model.ChatSession), nextID: 1}
	for _, session := range sessions {
		s.sessions[session.ID] = session
		if session.ID >= s.nextID {
			s.nextID = session.ID + 1
		}
	}
	return s
}

func (s *fakeSessionStore) Create(session *model.ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.ID = s.nextID
	s.nextID++
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *fakeSessionStore) GetByID(id uint) (*model.ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

type fakeMessageStore struct {
	mu       sync.Mutex
	messages map[uint][]model.ChatMessage
	calls    int
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{messages: make(map[uint][]model.ChatMessage)}
}

func (s *fakeMessageStore) ListBySessionID(sessionID uint, _ int) ([]model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.messages[sessionID], nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []model.ChatMessage
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, msg model.ChatMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakePublisher) all() []model.ChatMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.ChatMessage(nil), p.messages...)
}

type fakeHistoryCache struct {
	mu       sync.Mutex
	history  map[uint][]model.ChatMessage
	dirty    map[uint]bool
	setCalls int
}

func newFakeHistoryCache() *fakeHistoryCache {
	return &fakeHistoryCache{
		history: make(map[uint][]model.ChatMessage),
		dirty:   make(map[uint]bool),
	}
}

func (c *fakeHistoryCache) GetHistory(_ context.Context, sessionID uint) ([]model.ChatMessage, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	messages, ok := c.history[sessionID]
	return messages, ok, nil
}

func (c *fakeHistoryCache) SetHistory(_ context.Context, sessionID uint, messages []model.ChatMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setCalls++
	c.history[sessionID] = messages
	return nil
}

func (c *fakeHistoryCache) DeleteHistory(_ context.Context, sessionID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.history, sessionID)
	return nil
}

func (c *fakeHistoryCache) MarkDirty(_ context.Context, sessionID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty[sessionID] = true
	return nil
}

func (c *fakeHistoryCache) IsDirty(_ context.Context, sessionID uint) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty[sessionID], nil
}

type fakeStreamer struct {
	mu      sync.Mutex
	fn      func(messages []ai.ChatMessage, onChunk func(string) error) (string, error)
	prompts [][]ai.ChatMessage
}

func (s *fakeStreamer) StreamComplete(_ context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, messages)
	s.mu.Unlock()
	return s.fn(messages, onChunk)
}

func (s *fakeStreamer) lastPrompt() []ai.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return nil
	}
	return s.prompts[len(s.prompts)-1]
}

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts [][]ai.ChatMessage
}

func (c *fakeCompleter) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, messages)
	return c.reply, c.err
}

type fakeSummaryCache struct {
	mu        sync.Mutex
	summaries map[string]string
	deleted   []string
	getErr    error
	deleteErr error
}

func newFakeSummaryCache() *fakeSummaryCache {
	return &fakeSummaryCache{summaries: make(map[string]string)}
}

func (c *fakeSummaryCache) Get(_ context.Context, documentID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return "", false, c.getErr
	}
	summary, ok := c.summaries[documentID]
	return summary, ok, nil
}

func (c *fakeSummaryCache) Set(_ context.Context, documentID, summary string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries[documentID] = summary
	return nil
}

func (c *fakeSummaryCache) Delete(_ context.Context, documentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, documentID)
	if c.deleteErr != nil {
		return c.deleteErr
	}
	delete(c.summaries, documentID)
	return nil
}

type fakeTrigger struct {
	mu  sync.Mutex
	ids []string
}

func (t *fakeTrigger) Trigger(documentID string) <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ids = append(t.ids, documentID)
	done := make(chan struct{})
	close(done)
	return done
}

func (t *fakeTrigger) triggered() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.ids...)
}
