package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dangvu0502/homework-pinecone/internal/app"
	"github.com/dangvu0502/homework-pinecone/internal/model"
	"github.com/dangvu0502/homework-pinecone/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

type CreateSessionRequest struct {
	DocumentIDs []string `json:"documentIds"`
}

type StreamMessageRequest struct {
	Message string `json:"message"`
	UseRAG  *bool  `json:"useRag"`
}

type historyMessage struct {
	ID        uint           `json:"id"`
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	Sources   []model.Source `json:"sources,omitempty"`
	CreatedAt string         `json:"createdAt"`
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidRequest, "invalid request payload")
		return
	}

	session, err := h.chatService.CreateSession(c.Request.Context(), req.DocumentIDs)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError, "create session failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":          session.ID,
		"documentIds": session.DocumentIDList(),
		"createdAt":   session.CreatedAt,
	})
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	session, err := h.chatService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		h.writeError(c, err, "get session failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          session.ID,
		"documentIds": session.DocumentIDList(),
		"createdAt":   session.CreatedAt,
	})
}

func (h *ChatHandler) History(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	messages, err := h.chatService.History(c.Request.Context(), sessionID, limit)
	if err != nil {
		h.writeError(c, err, "get history failed")
		return
	}

	out := make([]historyMessage, len(messages))
	for i, msg := range messages {
		out[i] = historyMessage{
			ID:        msg.ID,
			Role:      msg.Role,
			Content:   msg.Content,
			Sources:   msg.SourceList(),
			CreatedAt: msg.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		}
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "messages": out, "count": len(out)})
}

// StreamMessage answers one chat message over SSE. Once the stream opens,
// errors travel as error events in-band. A dropped client does not stop
// generation; the handler keeps draining so the answer is still persisted.
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	sessionID, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req StreamMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidMessage, "message is required")
		return
	}
	useRAG := req.UseRAG == nil || *req.UseRAG

	events, err := h.chatService.Stream(c.Request.Context(), app.StreamInput{
		SessionID: sessionID,
		Message:   req.Message,
		UseRAG:    useRAG,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeInvalidMessage, "message is required")
		case errors.Is(err, app.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "chat session not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalError, "stream failed")
		}
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, canFlush := c.Writer.(http.Flusher)
	clientGone := false
	for event := range events {
		if clientGone {
			continue
		}
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		if _, err := c.Writer.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
			clientGone = true
			continue
		}
		if canFlush {
			flusher.Flush()
		}
	}
}

func (h *ChatHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrSessionNotFound):
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "chat session not found")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError, fallback)
	}
}

func parseSessionID(c *gin.Context) (uint, bool) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id64 == 0 {
		response.Error(c, http.StatusNotFound, response.CodeSessionNotFound, "chat session not found")
		return 0, false
	}
	return uint(id64), true
}
