package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const vectorMaxResponseSizeBytes = 2 << 20

// VectorStoreOption customizes UpstashVectorStore.
type VectorStoreOption func(*UpstashVectorStore)

func WithVectorHTTPClient(client *http.Client) VectorStoreOption {
	return func(s *UpstashVectorStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

type UpstashVectorConfig struct {
	URL     string        `envconfig:"URL" split_words:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// UpstashVectorStore implements SemanticStore over the Upstash Vector REST
// API with server-side embedding.
type UpstashVectorStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ SemanticStore = (*UpstashVectorStore)(nil)

func NewUpstashVectorStore(cfg UpstashVectorConfig, opts ...VectorStoreOption) (*UpstashVectorStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash vector url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid vector rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash vector token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashVectorStore{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	return store, nil
}

type upsertPayload struct {
	ID       string            `json:"id"`
	Data     string            `json:"data"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type queryPayload struct {
	Data            string `json:"data"`
	TopK            int    `json:"topK"`
	Filter          string `json:"filter,omitempty"`
	IncludeMetadata bool   `json:"includeMetadata"`
}

type queryMatch struct {
	ID       string            `json:"id"`
	Data     string            `json:"data"`
	Metadata map[string]string `json:"metadata"`
}

// Add upserts the documents with their role/session/tenant metadata.
func (s *UpstashVectorStore) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	payload := make([]upsertPayload, 0, len(docs))
	for _, doc := range docs {
		payload = append(payload, upsertPayload{
			ID:       doc.ID,
			Data:     doc.Content,
			Metadata: doc.Metadata,
		})
	}

	_, err := s.exec(ctx, "/upsert-data", payload)
	return err
}

// Search runs a similarity query filtered by session and tenant equality.
func (s *UpstashVectorStore) Search(ctx context.Context, sessionID, tenantID string, topK int) ([]Document, error) {
	raw, err := s.exec(ctx, "/query-data", queryPayload{
		TopK:            topK,
		Filter:          sessionFilter(sessionID, tenantID),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}

	var matches []queryMatch
	if err := json.Unmarshal(raw, &matches); err != nil {
		return nil, fmt.Errorf("decode vector matches: %w", err)
	}

	docs := make([]Document, 0, len(matches))
	for _, m := range matches {
		docs = append(docs, Document{
			ID:       m.ID,
			Content:  m.Data,
			Metadata: m.Metadata,
		})
	}
	return docs, nil
}

func sessionFilter(sessionID, tenantID string) string {
	return fmt.Sprintf("sessionId = '%s' AND tenantId = '%s'",
		escapeFilterValue(sessionID), escapeFilterValue(tenantID))
}

func escapeFilterValue(v string) string {
	return strings.ReplaceAll(v, "'", `\'`)
}

type vectorRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

func (s *UpstashVectorStore) exec(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal vector payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build vector request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute vector request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, vectorMaxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read vector response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("vector http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed vectorRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode vector response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return parsed.Result, nil
}
