// Package pinecone is a REST client for the Pinecone data plane, targeting
// indexes with integrated inference: records carry raw text and the service
// embeds both records and queries itself.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dangvu0502/homework-pinecone/internal/vectorstore"
)

const apiVersion = "2025-01"

type Config struct {
	// Host is the index-specific data plane endpoint,
	// e.g. https://my-index-abc123.svc.aped-4627-b74a.pinecone.io
	Host      string
	APIKey    string
	Namespace string
	Timeout   time.Duration
}

type Store struct {
	host      string
	apiKey    string
	namespace string
	client    *http.Client
}

var _ vectorstore.Store = (*Store)(nil)

func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "default"
	}
	return &Store{
		host:      strings.TrimRight(cfg.Host, "/"),
		apiKey:    cfg.APIKey,
		namespace: namespace,
		client:    &http.Client{Timeout: timeout},
	}
}

// record is the wire shape for integrated-inference upserts: _id plus flat
// fields, one JSON object per NDJSON line. The text field is embedded
// server-side.
type record struct {
	ID          string `json:"_id"`
	Text        string `json:"text"`
	DocumentID  string `json:"documentId"`
	Filename    string `json:"filename"`
	ChunkIndex  int    `json:"chunkIndex"`
	TotalChunks int    `json:"totalChunks"`
	ContentType string `json:"contentType"`
	WordCount   int    `json:"wordCount"`
}

func (s *Store) Upsert(ctx context.Context, chunks []vectorstore.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, chunk := range chunks {
		rec := record{
			ID:          chunk.ID,
			Text:        chunk.Text,
			DocumentID:  chunk.Metadata.DocumentID,
			Filename:    chunk.Metadata.Filename,
			ChunkIndex:  chunk.Metadata.ChunkIndex,
			TotalChunks: chunk.Metadata.TotalChunks,
			ContentType: chunk.Metadata.ContentType,
			WordCount:   chunk.Metadata.WordCount,
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encode upsert record failed: %w", err)
		}
	}

	endpoint := fmt.Sprintf("%s/records/namespaces/%s/upsert", s.host, url.PathEscape(s.namespace))
	return s.do(ctx, http.MethodPost, endpoint, "application/x-ndjson", body.Bytes(), nil)
}

func (s *Store) SearchByText(ctx context.Context, query string, topK int, documentIDs []string) ([]vectorstore.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}

	queryBody := map[string]interface{}{
		"inputs": map[string]string{"text": query},
		"top_k":  topK,
	}
	if len(documentIDs) > 0 {
		queryBody["filter"] = map[string]interface{}{
			"documentId": map[string]interface{}{"$in": documentIDs},
		}
	}
	reqBody := map[string]interface{}{
		"query":  queryBody,
		"fields": []string{"text", "documentId", "filename", "chunkIndex"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search request failed: %w", err)
	}

	var resp struct {
		Result struct {
			Hits []struct {
				ID     string                 `json:"_id"`
				Score  float64                `json:"_score"`
				Fields map[string]interface{} `json:"fields"`
			} `json:"hits"`
		} `json:"result"`
	}
	endpoint := fmt.Sprintf("%s/records/namespaces/%s/search", s.host, url.PathEscape(s.namespace))
	if err := s.do(ctx, http.MethodPost, endpoint, "application/json", payload, &resp); err != nil {
		return nil, err
	}

	results := make([]vectorstore.SearchResult, 0, len(resp.Result.Hits))
	for _, hit := range resp.Result.Hits {
		result := vectorstore.SearchResult{RelevanceScore: hit.Score}
		if v, ok := hit.Fields["documentId"].(string); ok {
			result.DocumentID = v
		}
		if v, ok := hit.Fields["filename"].(string); ok {
			result.Filename = v
		}
		if v, ok := hit.Fields["text"].(string); ok {
			result.Text = v
		}
		if v, ok := hit.Fields["chunkIndex"].(float64); ok {
			result.ChunkIndex = int(v)
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Store) FetchByDocument(ctx context.Context, documentID string, totalChunks int) ([]vectorstore.Chunk, error) {
	if totalChunks <= 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("namespace", s.namespace)
	for i := 0; i < totalChunks; i++ {
		params.Add("ids", vectorstore.ChunkID(documentID, i))
	}

	var resp struct {
		Vectors map[string]struct {
			ID       string                 `json:"id"`
			Metadata map[string]interface{} `json:"metadata"`
		} `json:"vectors"`
	}
	endpoint := fmt.Sprintf("%s/vectors/fetch?%s", s.host, params.Encode())
	if err := s.do(ctx, http.MethodGet, endpoint, "", nil, &resp); err != nil {
		return nil, err
	}

	chunks := make([]vectorstore.Chunk, 0, len(resp.Vectors))
	for id, vec := range resp.Vectors {
		chunk := vectorstore.Chunk{ID: id}
		if v, ok := vec.Metadata["text"].(string); ok {
			chunk.Text = v
		}
		if v, ok := vec.Metadata["documentId"].(string); ok {
			chunk.Metadata.DocumentID = v
		}
		if v, ok := vec.Metadata["filename"].(string); ok {
			chunk.Metadata.Filename = v
		}
		if v, ok := vec.Metadata["chunkIndex"].(float64); ok {
			chunk.Metadata.ChunkIndex = int(v)
		}
		if v, ok := vec.Metadata["totalChunks"].(float64); ok {
			chunk.Metadata.TotalChunks = int(v)
		}
		if v, ok := vec.Metadata["contentType"].(string); ok {
			chunk.Metadata.ContentType = v
		}
		if v, ok := vec.Metadata["wordCount"].(float64); ok {
			chunk.Metadata.WordCount = int(v)
		}
		chunks = append(chunks, chunk)
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Metadata.ChunkIndex < chunks[j].Metadata.ChunkIndex
	})
	return chunks, nil
}

func (s *Store) DeleteByDocument(ctx context.Context, documentID string) error {
	reqBody := map[string]interface{}{
		"filter": map[string]interface{}{
			"documentId": map[string]interface{}{"$eq": documentID},
		},
		"namespace": s.namespace,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal delete request failed: %w", err)
	}
	return s.do(ctx, http.MethodPost, s.host+"/vectors/delete", "application/json", payload, nil)
}

func (s *Store) do(ctx context.Context, method, endpoint, contentType string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build pinecone request failed: %w", err)
	}
	req.Header.Set("Api-Key", s.apiKey)
	req.Header.Set("X-Pinecone-Api-Version", apiVersion)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read pinecone response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("pinecone response status %d: %s", resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("parse pinecone response failed: %w", err)
		}
	}
	return nil
}
