// Package response defines the error envelope shared by every API endpoint.
package response

import "github.com/gin-gonic/gin"

const (
	CodeNoFile           = "NO_FILE"
	CodeDocumentNotFound = "DOCUMENT_NOT_FOUND"
	CodeSessionNotFound  = "SESSION_NOT_FOUND"
	CodeInvalidQuery     = "INVALID_QUERY"
	CodeInvalidMessage   = "INVALID_MESSAGE"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInternalError    = "INTERNAL_ERROR"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Error errorBody `json:"error"`
}

// Error writes the uniform error envelope: {"error":{"code":...,"message":...}}.
func Error(c *gin.Context, httpStatus int, code, message string) {
	c.JSON(httpStatus, envelope{Error: errorBody{Code: code, Message: message}})
}
