package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"

	"ragchat/internal/domain"
)

// Schema declares the row shape of one vector table: id, content and
// title strings plus a fixed-length float32 embedding column.
type Schema struct {
	Dims int
}

// NewSchema validates the embedding dimensionality for a table.
func NewSchema(dims int) (Schema, error) {
	if dims <= 0 {
		return Schema{}, fmt.Errorf("%w: dims must be positive, got %d", domain.ErrInvalidConfig, dims)
	}
	return Schema{Dims: dims}, nil
}

// Record is the persisted unit: one chunk plus its embedding.
type Record struct {
	ID        string
	Content   string
	Title     string
	Embedding []float32
}

// BuildRecords zips the column slices into rows, checking that all four
// have equal length and that every embedding matches the schema. A
// mismatch is a configuration error, not a per-row skip.
func BuildRecords(ids, contents, titles []string, embeddings [][]float32, schema Schema) ([]Record, error) {
	n := len(ids)
	if len(contents) != n || len(titles) != n || len(embeddings) != n {
		return nil, fmt.Errorf("column length mismatch: ids=%d contents=%d titles=%d embeddings=%d",
			n, len(contents), len(titles), len(embeddings))
	}
	records := make([]Record, n)
	for i := 0; i < n; i++ {
		if len(embeddings[i]) != schema.Dims {
			return nil, fmt.Errorf("%w: row %d has %d components, schema declares %d",
				domain.ErrDimensionMismatch, i, len(embeddings[i]), schema.Dims)
		}
		records[i] = Record{
			ID:        ids[i],
			Content:   contents[i],
			Title:     titles[i],
			Embedding: embeddings[i],
		}
	}
	return records, nil
}

// Store persists records and answers nearest-neighbor queries.
// CreateOrReplace overwrites an existing table of the same name
// wholesale; there is no incremental append.
type Store interface {
	CreateOrReplace(ctx context.Context, table string, records []Record, schema Schema) error
	Search(ctx context.Context, table string, query []float32, limit int) ([]domain.RetrievalResult, error)
}

// Euclidean returns the L2 distance between two equal-length vectors.
func Euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// RankNearest brute-force ranks records by Euclidean distance to the
// query, nearest first, ties broken by insertion order, truncated to
// limit. Shared by the in-process backends.
func RankNearest(records []Record, query []float32, limit int) []domain.RetrievalResult {
	type scored struct {
		pos   int
		score float64
	}
	ranked := make([]scored, len(records))
	for i, r := range records {
		ranked[i] = scored{pos: i, score: Euclidean(r.Embedding, query)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score < ranked[j].score })

	if limit > len(ranked) {
		limit = len(ranked)
	}
	results := make([]domain.RetrievalResult, 0, limit)
	for _, s := range ranked[:limit] {
		results = append(results, domain.RetrievalResult{
			Content: records[s.pos].Content,
			Score:   s.score,
		})
	}
	return results
}
