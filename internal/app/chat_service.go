package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dangvu0502/homework-pinecone/internal/ai"
	"github.com/dangvu0502/homework-pinecone/internal/model"
	"github.com/dangvu0502/homework-pinecone/internal/pkg/logger"
	"github.com/dangvu0502/homework-pinecone/internal/vectorstore"
)

const (
	snippetRuneLimit = 200

	streamErrorCode    = "STREAM_ERROR"
	streamErrorMessage = "An error occurred during response generation"

	groundingInstruction = "You are a helpful assistant that answers questions based on the provided document context. " +
		"Use only the information from the context to answer. If the context does not contain enough " +
		"information to answer the question, say so."
)

// SessionStore persists chat sessions.
type SessionStore interface {
	Create(session *model.ChatSession) error
	GetByID(id uint) (*model.ChatSession, error)
}

// MessageStore reads persisted chat messages.
type MessageStore interface {
	ListBySessionID(sessionID uint, limit int) ([]model.ChatMessage, error)
}

// AsyncMessagePublisher enqueues a chat message for durable persistence.
type AsyncMessagePublisher interface {
	Publish(ctx context.Context, msg model.ChatMessage) error
}

// HistoryCache is a lookaside cache for session history with a dirty marker
// covering the persistence queue lag.
type HistoryCache interface {
	GetHistory(ctx context.Context, sessionID uint) ([]model.ChatMessage, bool, error)
	SetHistory(ctx context.Context, sessionID uint, messages []model.ChatMessage) error
	DeleteHistory(ctx context.Context, sessionID uint) error
	MarkDirty(ctx context.Context, sessionID uint) error
	IsDirty(ctx context.Context, sessionID uint) (bool, error)
}

// CompletionStreamer streams a completion token by token.
type CompletionStreamer interface {
	StreamComplete(ctx context.Context, messages []ai.ChatMessage, onChunk func(string) error) (string, error)
}

// ChatService orchestrates retrieval-augmented chat: sessions, history reads
// and the answer stream for a single message. Streams for the same session
// run one at a time.
type ChatService struct {
	sessions  SessionStore
	messages  MessageStore
	publisher AsyncMessagePublisher
	history   HistoryCache
	vectors   vectorstore.Store
	llm       CompletionStreamer
	topK      int
	log       *logger.Logger

	mu           sync.Mutex
	sessionLocks map[uint]*sync.Mutex
}

func NewChatService(sessions SessionStore, messages MessageStore, publisher AsyncMessagePublisher,
	history HistoryCache, vectors vectorstore.Store, llm CompletionStreamer, topK int, log *logger.Logger) *ChatService {
	if topK <= 0 {
		topK = 5
	}
	return &ChatService{
		sessions:     sessions,
		messages:     messages,
		publisher:    publisher,
		history:      history,
		vectors:      vectors,
		llm:          llm,
		topK:         topK,
		log:          log,
		sessionLocks: make(map[uint]*sync.Mutex),
	}
}

// CreateSession opens a new session scoped to the given document ids. The ids
// are not validated against existing documents; stale references are ignored
// at retrieval time.
func (s *ChatService) CreateSession(ctx context.Context, documentIDs []string) (*model.ChatSession, error) {
	session := &model.ChatSession{CreatedAt: time.Now()}
	session.SetDocumentIDs(documentIDs)
	if err := s.sessions.Create(session); err != nil {
		return nil, fmt.Errorf("create chat session failed: %w", err)
	}
	s.log.Info("chat session created", "sessionId", session.ID, "documents", len(documentIDs))
	return session, nil
}

func (s *ChatService) GetSession(ctx context.Context, id uint) (*model.ChatSession, error) {
	session, err := s.sessions.GetByID(id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// History returns the session's messages in chronological order, served from
// cache when it is fresh.
func (s *ChatService) History(ctx context.Context, sessionID uint, limit int) ([]model.ChatMessage, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	dirty, err := s.history.IsDirty(ctx, sessionID)
	if err != nil {
		s.log.Warn("history dirty check failed", "sessionId", sessionID, "error", err)
		dirty = true
	}
	if !dirty {
		if cached, ok, err := s.history.GetHistory(ctx, sessionID); err == nil && ok {
			return cached, nil
		} else if err != nil {
			s.log.Warn("history cache read failed", "sessionId", sessionID, "error", err)
		}
	}

	messages, err := s.messages.ListBySessionID(sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("load chat history failed: %w", err)
	}
	if !dirty {
		if err := s.history.SetHistory(ctx, sessionID, messages); err != nil {
			s.log.Warn("history cache write failed", "sessionId", sessionID, "error", err)
		}
	}
	return messages, nil
}

// StreamInput is one chat message to answer.
type StreamInput struct {
	SessionID uint
	Message   string
	UseRAG    bool
}

// Stream validates the input synchronously, then answers in the background.
// The returned channel delivers connected, optionally source, zero or more
// tokens and finally done or error, and is closed afterwards. Generation is
// not tied to the caller's context; disconnecting consumers should keep
// draining the channel.
func (s *ChatService) Stream(ctx context.Context, input StreamInput) (<-chan ChatEvent, error) {
	content := strings.TrimSpace(input.Message)
	if content == "" {
		return nil, ErrMessageEmpty
	}
	session, err := s.GetSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	events := make(chan ChatEvent, 16)
	go s.generate(session, content, input.UseRAG, events)
	return events, nil
}

func (s *ChatService) generate(session *model.ChatSession, content string, useRAG bool, events chan<- ChatEvent) {
	defer close(events)

	lock := s.sessionLock(session.ID)
	lock.Lock()
	defer lock.Unlock()

	ctx := context.Background()
	events <- ChatEvent{Type: ChatEventConnected, SessionID: session.ID}

	// The question is made durable before any retrieval or generation, so a
	// failed answer never loses it.
	userMsg := model.ChatMessage{
		SessionID: session.ID,
		Role:      "user",
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.persist(ctx, userMsg); err != nil {
		s.log.Error("persisting user message failed", "sessionId", session.ID, "error", err)
		events <- ChatEvent{Type: ChatEventError, Message: streamErrorMessage, Code: streamErrorCode}
		return
	}

	var sources []model.Source
	var contextBlock string
	if docIDs := session.DocumentIDList(); useRAG && len(docIDs) > 0 {
		results, err := s.vectors.SearchByText(ctx, content, s.topK, docIDs)
		if err != nil {
			s.log.Error("retrieval failed", "sessionId", session.ID, "error", err)
			events <- ChatEvent{Type: ChatEventError, Message: streamErrorMessage, Code: streamErrorCode}
			return
		}
		if len(results) > 0 {
			sources = make([]model.Source, len(results))
			texts := make([]string, len(results))
			for i, r := range results {
				sources[i] = model.Source{
					DocumentID:     r.DocumentID,
					Filename:       r.Filename,
					Snippet:        snippet(r.Text),
					RelevanceScore: r.RelevanceScore,
					ChunkIndex:     r.ChunkIndex,
				}
				texts[i] = r.Text
			}
			events <- ChatEvent{Type: ChatEventSource, Sources: sources}
			contextBlock = strings.Join(texts, "\n\n")
		}
	}

	answer, err := s.llm.StreamComplete(ctx, buildPrompt(content, contextBlock), func(chunk string) error {
		events <- ChatEvent{Type: ChatEventToken, Content: chunk}
		return nil
	})
	if err != nil {
		// Partial output already sent to the client is discarded; nothing of
		// the failed answer is persisted.
		s.log.Error("completion stream failed", "sessionId", session.ID, "error", err)
		events <- ChatEvent{Type: ChatEventError, Message: streamErrorMessage, Code: streamErrorCode}
		return
	}

	assistantMsg := model.ChatMessage{
		SessionID: session.ID,
		Role:      "assistant",
		Content:   strings.TrimSpace(answer),
		CreatedAt: time.Now(),
	}
	assistantMsg.SetSources(sources)
	if err := s.persist(ctx, assistantMsg); err != nil {
		s.log.Error("persisting assistant message failed", "sessionId", session.ID, "error", err)
	}

	events <- ChatEvent{Type: ChatEventDone}
}

// persist invalidates the cached history, marks it dirty for the duration of
// the queue lag, then enqueues the message.
func (s *ChatService) persist(ctx context.Context, msg model.ChatMessage) error {
	if err := s.history.MarkDirty(ctx, msg.SessionID); err != nil {
		s.log.Warn("marking history dirty failed", "sessionId", msg.SessionID, "error", err)
	}
	if err := s.history.DeleteHistory(ctx, msg.SessionID); err != nil {
		s.log.Warn("invalidating history cache failed", "sessionId", msg.SessionID, "error", err)
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("enqueue chat message failed: %w", err)
	}
	return nil
}

func (s *ChatService) sessionLock(sessionID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.sessionLocks[sessionID] = lock
	}
	return lock
}

// buildPrompt grounds the question in retrieved context when there is any;
// otherwise the bare question goes out on its own.
func buildPrompt(question, contextBlock string) []ai.ChatMessage {
	if contextBlock == "" {
		return []ai.ChatMessage{{Role: "user", Content: question}}
	}
	return []ai.ChatMessage{
		{Role: "system", Content: groundingInstruction},
		{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nAnswer:", contextBlock, question)},
	}
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetRuneLimit {
		return text
	}
	return string(runes[:snippetRuneLimit]) + "..."
}
