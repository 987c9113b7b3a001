package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
)

// Store is a minimal REST client to Qdrant. A vector table maps to one
// collection created with Euclidean distance, so scores order the same
// way as the local sqlite backend.
type Store struct {
	url    string
	apiKey string
	client *http.Client

	mu   sync.Mutex
	dims map[string]int // collection -> embedding size
}

// Config contains connection details for a Qdrant server.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
		dims:   make(map[string]int),
	}
}

// CreateOrReplace drops any existing collection of the same name and
// recreates it with the given records.
func (s *Store) CreateOrReplace(ctx context.Context, table string, records []vectorstore.Record, schema vectorstore.Schema) error {
	// Best-effort drop; a 404 for a collection that never existed is fine.
	_ = s.do(ctx, http.MethodDelete, fmt.Sprintf("%s/collections/%s", s.url, table), nil, nil)

	create := map[string]any{
		"vectors": map[string]any{
			"size":     schema.Dims,
			"distance": "Euclid",
		},
	}
	if err := s.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", s.url, table), create, nil); err != nil {
		return &domain.StoreError{Op: "create", Err: err}
	}

	points := make([]map[string]any, len(records))
	for i, r := range records {
		if len(r.Embedding) != schema.Dims {
			return fmt.Errorf("%w: row %d has %d components, schema declares %d",
				domain.ErrDimensionMismatch, i, len(r.Embedding), schema.Dims)
		}
		points[i] = map[string]any{
			"id":     r.ID,
			"vector": r.Embedding,
			"payload": map[string]any{
				"content": r.Content,
				"title":   r.Title,
				"pos":     i,
			},
		}
	}
	upsert := map[string]any{"points": points}
	if err := s.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, table), upsert, nil); err != nil {
		return &domain.StoreError{Op: "insert", Err: err}
	}

	s.mu.Lock()
	s.dims[table] = schema.Dims
	s.mu.Unlock()
	return nil
}

// Search asks Qdrant for the nearest points and maps payloads back to
// retrieval results. Qdrant already returns them nearest-first.
func (s *Store) Search(ctx context.Context, table string, query []float32, limit int) ([]domain.RetrievalResult, error) {
	dims, err := s.tableDims(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(query) != dims {
		return nil, fmt.Errorf("%w: query has %d components, collection %q declares %d",
			domain.ErrDimensionMismatch, len(query), table, dims)
	}

	req := map[string]any{
		"vector":       query,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, fmt.Sprintf("%s/collections/%s/points/search", s.url, table), req, &resp); err != nil {
		return nil, &domain.StoreError{Op: "search", Err: err}
	}

	results := make([]domain.RetrievalResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		content, _ := r.Payload["content"].(string)
		results = append(results, domain.RetrievalResult{Content: content, Score: r.Score})
	}
	return results, nil
}

// tableDims returns the embedding size of a collection, fetching the
// collection info once per table for sessions that only query.
func (s *Store) tableDims(ctx context.Context, table string) (int, error) {
	s.mu.Lock()
	dims, ok := s.dims[table]
	s.mu.Unlock()
	if ok {
		return dims, nil
	}

	var resp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s", s.url, table), nil, &resp); err != nil {
		return 0, &domain.StoreError{Op: "search", Err: err}
	}
	dims = resp.Result.Config.Params.Vectors.Size
	if dims <= 0 {
		return 0, &domain.StoreError{Op: "search", Err: fmt.Errorf("collection %q has no vector config", table)}
	}

	s.mu.Lock()
	s.dims[table] = dims
	s.mu.Unlock()
	return dims, nil
}

func (s *Store) do(ctx context.Context, method, url string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
