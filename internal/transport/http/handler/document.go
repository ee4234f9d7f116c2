package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dangvu0502/homework-pinecone/internal/app"
	"github.com/dangvu0502/homework-pinecone/internal/transport/http/response"
)

type DocumentHandler struct {
	documents *app.DocumentService
}

func NewDocumentHandler(documents *app.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

type SearchDocumentRequest struct {
	Query string `json:"query" binding:"required"`
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeNoFile, "no file provided")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeNoFile, "uploaded file could not be read")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeNoFile, "uploaded file could not be read")
		return
	}

	doc, err := h.documents.Upload(c.Request.Context(), app.UploadInput{
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Data:        data,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeNoFile, "no file provided")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalError, "upload failed")
		}
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError, "list documents failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "get document failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":          doc.ID,
		"filename":    doc.Filename,
		"contentType": doc.ContentType,
		"size":        doc.Size,
		"status":      doc.Status,
		"chunkCount":  doc.ChunkCount,
		"error":       doc.ErrorMessage,
		"uploadedAt":  doc.UploadedAt,
		"processedAt": doc.ProcessedAt,
		"hasSummary":  doc.Summary != nil,
	})
}

func (h *DocumentHandler) Status(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "get document status failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         doc.ID,
		"filename":   doc.Filename,
		"status":     doc.Status,
		"chunkCount": doc.ChunkCount,
		"error":      doc.ErrorMessage,
	})
}

func (h *DocumentHandler) Summary(c *gin.Context) {
	out, err := h.documents.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "get document summary failed")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *DocumentHandler) Chunks(c *gin.Context) {
	out, err := h.documents.Chunks(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "get document chunks failed")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *DocumentHandler) Search(c *gin.Context) {
	var req SearchDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidQuery, "query is required")
		return
	}

	out, err := h.documents.Search(c.Request.Context(), c.Param("id"), req.Query)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeInvalidQuery, "query is required")
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalError, "document search failed")
		}
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *DocumentHandler) Retry(c *gin.Context) {
	doc, err := h.documents.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "retry document processing failed")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": doc.ID, "status": "processing"})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.documents.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err, "delete document failed")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DocumentHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrDocumentNotFound):
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalError, fallback)
	}
}
