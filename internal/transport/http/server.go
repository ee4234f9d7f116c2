package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dangvu0502/homework-pinecone/internal/ai"
	appsvc "github.com/dangvu0502/homework-pinecone/internal/app"
	"github.com/dangvu0502/homework-pinecone/internal/bootstrap"
	"github.com/dangvu0502/homework-pinecone/internal/cache"
	"github.com/dangvu0502/homework-pinecone/internal/chunker"
	"github.com/dangvu0502/homework-pinecone/internal/extractor"
	rabbitmqClient "github.com/dangvu0502/homework-pinecone/internal/platform/rabbitmq"
	"github.com/dangvu0502/homework-pinecone/internal/repository"
	"github.com/dangvu0502/homework-pinecone/internal/storage"
	"github.com/dangvu0502/homework-pinecone/internal/transport/http/handler"
	"github.com/dangvu0502/homework-pinecone/internal/vectorstore/pinecone"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	llm := ai.NewOpenAICompatibleClient(ai.Config{
		BaseURL:     app.Config.LLM.BaseURL,
		APIKey:      app.Config.LLM.APIKey,
		Model:       app.Config.LLM.Model,
		VisionModel: app.Config.LLM.VisionModel,
		ChunkModel:  app.Config.LLM.ChunkModel,
	})
	vectors := pinecone.New(pinecone.Config{
		Host:      app.Config.Pinecone.Host,
		APIKey:    app.Config.Pinecone.APIKey,
		Namespace: app.Config.Pinecone.Namespace,
	})
	files := storage.NewLocalStorage(app.Config.Storage.UploadDir)

	docRepo := repository.NewDocumentRepository(app.MySQL)
	sessionRepo := repository.NewChatSessionRepository(app.MySQL)
	messageRepo := repository.NewChatMessageRepository(app.MySQL)

	historyCache := cache.NewHistoryCache(app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second)
	summaryCache := cache.NewSummaryCache(app.Redis,
		time.Duration(app.Config.Redis.SummaryTTLSeconds)*time.Second)
	messagePublisher := rabbitmqClient.NewMessagePublisher(app.MQConn, app.Config.RabbitMQ.MessagePersistQueue)

	ingestService := appsvc.NewIngestService(
		docRepo, files,
		extractor.New(llm, app.Log),
		chunker.New(llm, app.Log),
		vectors, app.Hub, app.Log,
	)
	documentService := appsvc.NewDocumentService(
		docRepo, files, vectors, ingestService, llm, summaryCache,
		app.Config.Chat.TopK, app.Log,
	)
	chatService := appsvc.NewChatService(
		sessionRepo, messageRepo, messagePublisher, historyCache,
		vectors, llm, app.Config.Chat.TopK, app.Log,
	)

	documentHandler := handler.NewDocumentHandler(documentService)
	chatHandler := handler.NewChatHandler(chatService)
	eventsHandler := handler.NewEventsHandler(app.Hub)

	api := router.Group("/api")

	documents := api.Group("/documents")
	documents.POST("", documentHandler.Upload)
	documents.GET("", documentHandler.List)
	documents.GET("/events", eventsHandler.Stream)
	documents.GET("/:id", documentHandler.Get)
	documents.GET("/:id/status", documentHandler.Status)
	documents.GET("/:id/summary", documentHandler.Summary)
	documents.GET("/:id/chunks", documentHandler.Chunks)
	documents.POST("/:id/search", documentHandler.Search)
	documents.POST("/:id/retry", documentHandler.Retry)
	documents.DELETE("/:id", documentHandler.Delete)

	chat := api.Group("/chat")
	chat.POST("/sessions", chatHandler.CreateSession)
	chat.GET("/sessions/:id", chatHandler.GetSession)
	chat.GET("/sessions/:id/messages", chatHandler.History)
	chat.POST("/sessions/:id/messages", chatHandler.StreamMessage)

	return router
}
