package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
	"ragchat/internal/vectorstore"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "vectors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustRecords(t *testing.T, schema vectorstore.Schema, ids, contents []string, embeddings [][]float32) []vectorstore.Record {
	t.Helper()
	titles := make([]string, len(ids))
	for i := range titles {
		titles[i] = "doc"
	}
	records, err := vectorstore.BuildRecords(ids, contents, titles, embeddings, schema)
	require.NoError(t, err)
	return records
}

func TestRetrievalRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	schema, err := vectorstore.NewSchema(4)
	require.NoError(t, err)

	records := mustRecords(t, schema,
		[]string{"1", "2", "3"},
		[]string{"A", "B", "C"},
		[][]float32{
			{0.1, 0.2, 0.3, 0.4},
			{0.9, 0.8, 0.7, 0.6},
			{0.4, 0.4, 0.4, 0.4},
		})
	require.NoError(t, s.CreateOrReplace(ctx, "docs_embeddings", records, schema))

	results, err := s.Search(ctx, "docs_embeddings", []float32{0.6, 0.7, 0.8, 0.5}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "B", results[0].Content)
}

func TestSearchOrderingAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	schema, _ := vectorstore.NewSchema(2)

	records := mustRecords(t, schema,
		[]string{"1", "2", "3", "4"},
		[]string{"far", "near", "mid", "nearest"},
		[][]float32{{9, 9}, {1, 1}, {4, 4}, {0, 0}})
	require.NoError(t, s.CreateOrReplace(ctx, "t", records, schema))

	results, err := s.Search(ctx, "t", []float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "nearest", results[0].Content)
	assert.Equal(t, "near", results[1].Content)
	assert.Equal(t, "mid", results[2].Content)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestCreateOrReplaceOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	schema, _ := vectorstore.NewSchema(2)

	first := mustRecords(t, schema, []string{"1"}, []string{"old"}, [][]float32{{1, 1}})
	require.NoError(t, s.CreateOrReplace(ctx, "t", first, schema))

	second := mustRecords(t, schema, []string{"2"}, []string{"new"}, [][]float32{{2, 2}})
	require.NoError(t, s.CreateOrReplace(ctx, "t", second, schema))

	results, err := s.Search(ctx, "t", []float32{0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Content)
}

func TestSearchQueryDimensionMismatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	schema, _ := vectorstore.NewSchema(3)

	records := mustRecords(t, schema, []string{"1"}, []string{"a"}, [][]float32{{1, 2, 3}})
	require.NoError(t, s.CreateOrReplace(ctx, "t", records, schema))

	_, err := s.Search(ctx, "t", []float32{1, 2}, 5)
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestSearchMissingTable(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Search(context.Background(), "absent", []float32{1}, 5)
	require.Error(t, err)
	var storeErr *domain.StoreError
	assert.ErrorAs(t, err, &storeErr)
}

func TestSearchFewerRowsThanLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	schema, _ := vectorstore.NewSchema(1)

	records := mustRecords(t, schema, []string{"1", "2"}, []string{"a", "b"}, [][]float32{{1}, {2}})
	require.NoError(t, s.CreateOrReplace(ctx, "t", records, schema))

	results, err := s.Search(ctx, "t", []float32{0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestVectorBlobRoundTrip(t *testing.T) {
	in := []float32{0.1, -2.5, 3e7, 0}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestInvalidTableName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	schema, _ := vectorstore.NewSchema(1)
	err := s.CreateOrReplace(ctx, `bad"name`, nil, schema)
	require.Error(t, err)
	_, err = s.Search(ctx, "drop table;", []float32{1}, 1)
	require.Error(t, err)
}
