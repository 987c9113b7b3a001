package chunker

import (
	"fmt"

	"github.com/google/uuid"

	"ragchat/internal/domain"
)

// WindowChunker splits document contents into overlapping fixed-size
// windows of Unicode code points.
type WindowChunker struct {
	chunkSize int
	overlap   int
}

// New validates the window parameters. Overlap must leave room for the
// cursor to advance, otherwise chunking cannot terminate.
func New(chunkSize, overlap int) (*WindowChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", domain.ErrInvalidConfig, overlap, chunkSize)
	}
	return &WindowChunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split emits the windows of one document in order. Each chunk gets a
// fresh random id; ids are not stable across runs. Splitting operates on
// runes so multi-byte characters are never cut mid-codepoint.
func (c *WindowChunker) Split(doc domain.Document) []domain.Chunk {
	runes := []rune(doc.Contents)
	if len(runes) == 0 {
		return nil
	}

	step := c.chunkSize - c.overlap
	var chunks []domain.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			ID:      uuid.New().String(),
			Title:   doc.Title,
			Content: string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}
