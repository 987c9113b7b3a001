package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
)

// fakeQdrant records collection lifecycle calls and serves canned
// search results.
type fakeQdrant struct {
	deleted  []string
	created  map[string]int
	upserted map[string][]map[string]any
}

func newFake() *fakeQdrant {
	return &fakeQdrant{created: map[string]int{}, upserted: map[string][]map[string]any{}}
}

func (f *fakeQdrant) handler(t *testing.T) http.Handler {
	// Go 1.21's ServeMux has no method/wildcard patterns, so route by hand.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) < 2 || parts[0] != "collections" {
			http.NotFound(w, r)
			return
		}
		name := parts[1]
		rest := strings.Join(parts[2:], "/")
		switch {
		case r.Method == http.MethodDelete && rest == "":
			f.deleted = append(f.deleted, name)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut && rest == "":
			var body struct {
				Vectors struct {
					Size int `json:"size"`
				} `json:"vectors"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.created[name] = body.Vectors.Size
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut && rest == "points":
			var body struct {
				Points []map[string]any `json:"points"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.upserted[name] = body.Points
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && rest == "points/search":
			resp := map[string]any{
				"result": []map[string]any{
					{"score": 0.1, "payload": map[string]any{"content": "closest"}},
					{"score": 0.4, "payload": map[string]any{"content": "further"}},
				},
			}
			json.NewEncoder(w).Encode(resp)
		case r.Method == http.MethodGet && rest == "":
			resp := map[string]any{
				"result": map[string]any{
					"config": map[string]any{
						"params": map[string]any{
							"vectors": map[string]any{"size": 2},
						},
					},
				},
			}
			json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	})
}

func TestCreateOrReplaceDeletesThenRecreates(t *testing.T) {
	fake := newFake()
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	s := New(Config{URL: srv.URL})
	schema, _ := vectorstore.NewSchema(2)
	records := []vectorstore.Record{
		{ID: "a", Content: "one", Title: "t", Embedding: []float32{1, 2}},
	}
	require.NoError(t, s.CreateOrReplace(context.Background(), "docs", records, schema))

	assert.Equal(t, []string{"docs"}, fake.deleted)
	assert.Equal(t, 2, fake.created["docs"])
	require.Len(t, fake.upserted["docs"], 1)
	assert.Equal(t, "a", fake.upserted["docs"][0]["id"])
}

func TestSearchMapsPayloads(t *testing.T) {
	fake := newFake()
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	s := New(Config{URL: srv.URL})
	schema, _ := vectorstore.NewSchema(2)
	require.NoError(t, s.CreateOrReplace(context.Background(), "docs", nil, schema))

	results, err := s.Search(context.Background(), "docs", []float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "closest", results[0].Content)
	assert.Equal(t, 0.1, results[0].Score)
}

func TestSearchDimensionMismatch(t *testing.T) {
	fake := newFake()
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	s := New(Config{URL: srv.URL})
	// Dims unknown locally; fetched from the collection info endpoint.
	_, err := s.Search(context.Background(), "docs", []float32{1, 2, 3}, 2)
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(Config{URL: srv.URL})
	_, err := s.Search(context.Background(), "docs", []float32{1}, 2)
	require.Error(t, err)
	var storeErr *domain.StoreError
	assert.ErrorAs(t, err, &storeErr)
}
