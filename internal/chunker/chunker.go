package chunker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dangvu0502/homework-pinecone/internal/ai"
	"github.com/dangvu0502/homework-pinecone/internal/pkg/logger"
)

const (
	// Documents above this rune count are batched into word-bounded parts.
	wordBatchThreshold = 50_000
	// Documents above this rune count are split into two parts.
	twoPartThreshold = 30_000

	// DefaultPartWords is the word budget per part for very large documents.
	DefaultPartWords = 6000
	// DefaultChunkSize is the fallback sliding-window size in runes.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the fallback window overlap in runes.
	DefaultChunkOverlap = 200
)

const chunkingSystemPrompt = `You are an expert at chunking documents semantically. Create chunks that:
1. Preserve semantic meaning and context
2. Keep related information together
3. Target 500-1000 tokens per chunk for optimal embedding
4. Maintain natural boundaries (sections, paragraphs, topics)
5. Include context clues at chunk boundaries

Return as JSON with structure: {"chunks": ["chunk1", "chunk2", ...]}`

const continuationNote = "\n\n[Content continues in the next part]"

// CompletionClient produces a JSON-formatted completion. The chunker parses
// the reply as {"chunks": [...]}.
type CompletionClient interface {
	CompleteJSON(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// Chunker splits extracted text into retrieval-sized pieces. Semantic
// boundaries come from the language model; every part degrades independently
// to deterministic sliding-window chunking when that call fails.
type Chunker struct {
	llm       CompletionClient
	log       *logger.Logger
	partWords int
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithPartWords sets the word budget per part for large documents.
func WithPartWords(words int) Option {
	return func(c *Chunker) {
		if words > 0 {
			c.partWords = words
		}
	}
}

// WithChunkSize sets the fallback window size in runes.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the fallback window overlap in runes.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

func New(llm CompletionClient, log *logger.Logger, opts ...Option) *Chunker {
	c := &Chunker{
		llm:       llm,
		log:       log,
		partWords: DefaultPartWords,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// Chunk splits text into an ordered list of chunk strings. It never fails:
// total loss of the language model degrades to pure fallback chunking, and
// empty input yields a single chunk holding the input.
func (c *Chunker) Chunk(ctx context.Context, text, filename string) []string {
	if len(text) == 0 {
		return []string{text}
	}

	docType := detectDocumentType(filename)
	parts := c.splitIntoParts(text)
	c.log.Info("chunking document", "filename", filename, "documentType", docType,
		"textLength", len(text), "parts", len(parts))

	results := make([][]string, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	for i, part := range parts {
		i, part := i, part
		g.Go(func() error {
			results[i] = c.chunkPart(gctx, part, docType, filename)
			return nil
		})
	}
	// Parts never report errors; each one falls back on its own.
	_ = g.Wait()

	var chunks []string
	for _, partChunks := range results {
		chunks = append(chunks, partChunks...)
	}
	c.log.Info("chunking completed", "filename", filename, "chunkCount", len(chunks))
	return chunks
}

func (c *Chunker) chunkPart(ctx context.Context, part, docType, filename string) []string {
	if c.llm == nil {
		return c.fallbackChunk(part)
	}

	chunks, err := c.semanticChunk(ctx, part, docType)
	if err != nil || len(chunks) == 0 {
		c.log.Warn("semantic chunking failed, using fallback", "filename", filename, "error", err)
		return c.fallbackChunk(part)
	}
	return chunks
}

func (c *Chunker) semanticChunk(ctx context.Context, part, docType string) ([]string, error) {
	messages := []ai.ChatMessage{
		{Role: "system", Content: chunkingSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Document Type: %s\n\nPlease chunk this document intelligently:\n\n%s\n\nReturn chunks as a JSON array.", docType, part)},
	}

	raw, err := c.llm.CompleteJSON(ctx, messages)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Chunks []string `json:"chunks"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse chunking response failed: %w", err)
	}

	chunks := make([]string, 0, len(parsed.Chunks))
	for _, chunk := range parsed.Chunks {
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

// fallbackChunk is a pure function of (text, chunkSize, overlap): a sliding
// window over runes that never splits multi-byte characters.
func (c *Chunker) fallbackChunk(text string) []string {
	runes := []rune(text)
	stride := c.chunkSize - c.overlap

	var chunks []string
	for i := 0; i < len(runes); i += stride {
		end := i + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	if len(chunks) == 0 {
		chunks = []string{text}
	}
	return chunks
}

// splitIntoParts bounds the size of each semantic chunking request. Large
// documents become word-bounded parts; moderately large ones split in two at
// a fixed point with a continuation note on the first half.
func (c *Chunker) splitIntoParts(text string) []string {
	runes := []rune(text)
	switch {
	case len(runes) > wordBatchThreshold:
		return splitByWords(text, c.partWords)
	case len(runes) > twoPartThreshold:
		return []string{
			string(runes[:twoPartThreshold]) + continuationNote,
			string(runes[twoPartThreshold:]),
		}
	default:
		return []string{text}
	}
}

// splitByWords greedily accumulates whole words up to maxWords per part.
func splitByWords(text string, maxWords int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{text}
	}

	var parts []string
	for i := 0; i < len(words); i += maxWords {
		end := i + maxWords
		if end > len(words) {
			end = len(words)
		}
		parts = append(parts, strings.Join(words[i:end], " "))
	}
	return parts
}

func detectDocumentType(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return "unknown"
	}
	ext := strings.ToLower(filename[idx+1:])

	typeMap := map[string]string{
		"pdf":  "pdf",
		"docx": "document",
		"doc":  "document",
		"xlsx": "spreadsheet",
		"xls":  "spreadsheet",
		"csv":  "spreadsheet",
		"pptx": "presentation",
		"ppt":  "presentation",
		"txt":  "text",
		"md":   "markdown",
		"jpg":  "image",
		"jpeg": "image",
		"png":  "image",
		"gif":  "image",
	}
	if t, ok := typeMap[ext]; ok {
		return t
	}
	return "unknown"
}
