package extractor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dangvu0502/homework-pinecone/internal/pkg/logger"
	"github.com/dangvu0502/homework-pinecone/internal/pkg/pdfextract"
)

// ErrUnsupportedContentType marks declared types the extractor cannot handle.
var ErrUnsupportedContentType = errors.New("unsupported content type")

const visionInstruction = "Extract all text content from this document. " +
	"Include tables, headers, paragraphs, and all readable text. Preserve the " +
	"structure and formatting where possible. Return only the extracted text content."

// VisionClient transcribes an image with a vision-capable model.
type VisionClient interface {
	CompleteVision(ctx context.Context, instruction, mimeType string, data []byte) (string, error)
}

// Extractor turns an uploaded file into plain text based on its declared
// content type.
type Extractor struct {
	vision VisionClient
	log    *logger.Logger
}

func New(vision VisionClient, log *logger.Logger) *Extractor {
	return &Extractor{vision: vision, log: log}
}

// Extract returns the plain text of the file at filePath. Plain text files
// are read verbatim, PDFs are parsed page by page (degrading to a placeholder
// on parse failure), and images go through the vision model. Other declared
// types fail with ErrUnsupportedContentType.
func (e *Extractor) Extract(ctx context.Context, filePath, contentType string) (string, error) {
	e.log.Info("starting text extraction", "path", filePath, "contentType", contentType)

	var text string
	var err error
	switch contentType {
	case "text/plain", "text/csv":
		text, err = e.extractTextFile(filePath)
	case "application/pdf":
		text, err = e.extractPDF(filePath)
	case "image/png", "image/jpeg", "image/gif", "image/webp":
		text, err = e.extractImage(ctx, filePath, contentType)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
	}
	if err != nil {
		return "", err
	}

	e.log.Info("text extraction completed", "path", filePath, "textLength", len(text))
	return text, nil
}

func (e *Extractor) extractTextFile(filePath string) (string, error) {
	b, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("read text file failed: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (e *Extractor) extractPDF(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}
	defer f.Close()

	text, err := pdfextract.ExtractText(f)
	if err != nil {
		// A broken PDF should not abort ingestion. Downstream continues with
		// degraded content.
		e.log.Warn("pdf extraction failed, returning placeholder", "path", filePath, "error", err)
		return fmt.Sprintf("Unable to extract text from PDF %q: the file could not be parsed.", filepath.Base(filePath)), nil
	}
	return text, nil
}

func (e *Extractor) extractImage(ctx context.Context, filePath, contentType string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("read image failed: %w", err)
	}

	text, err := e.vision.CompleteVision(ctx, visionInstruction, contentType, data)
	if err != nil {
		return "", fmt.Errorf("vision extraction failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}
