package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/domain"
)

func TestNewRejectsBadParameters(t *testing.T) {
	cases := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{"zero chunk size", 0, 0},
		{"negative chunk size", -5, 0},
		{"overlap equals chunk size", 4, 4},
		{"overlap exceeds chunk size", 4, 7},
		{"negative overlap", 4, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.chunkSize, tc.overlap)
			require.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestSplitExactWindows(t *testing.T) {
	c, err := New(4, 1)
	require.NoError(t, err)

	chunks := c.Split(domain.Document{Title: "doc", Contents: "ABCDEFGHIJ"})
	require.Len(t, chunks, 3)
	assert.Equal(t, "ABCD", chunks[0].Content)
	assert.Equal(t, "DEFG", chunks[1].Content)
	assert.Equal(t, "GHIJ", chunks[2].Content)
	for _, ch := range chunks {
		assert.Equal(t, "doc", ch.Title)
		assert.NotEmpty(t, ch.ID)
	}
}

func TestSplitShortDocumentSingleChunk(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	chunks := c.Split(domain.Document{Title: "t", Contents: "abc"})
	require.Len(t, chunks, 1)
	assert.Equal(t, "abc", chunks[0].Content)
}

func TestSplitEmptyDocument(t *testing.T) {
	c, err := New(8, 2)
	require.NoError(t, err)
	assert.Empty(t, c.Split(domain.Document{Title: "t"}))
}

func TestSplitCoverageAndOverlap(t *testing.T) {
	const text = "The quick brown fox jumps over the lazy dog near the river bank."
	cases := []struct {
		chunkSize int
		overlap   int
	}{
		{4, 0}, {4, 1}, {7, 3}, {16, 5}, {100, 10},
	}
	for _, tc := range cases {
		c, err := New(tc.chunkSize, tc.overlap)
		require.NoError(t, err)
		chunks := c.Split(domain.Document{Title: "t", Contents: text})

		// Reconstructing the text from windows minus their overlap must
		// reproduce the document exactly: full coverage, exact overlap.
		var rebuilt strings.Builder
		for i, ch := range chunks {
			runes := []rune(ch.Content)
			if i == 0 {
				rebuilt.WriteString(ch.Content)
				continue
			}
			require.GreaterOrEqual(t, len(runes), tc.overlap)
			rebuilt.WriteString(string(runes[tc.overlap:]))
		}
		assert.Equal(t, text, rebuilt.String(), "chunk_size=%d overlap=%d", tc.chunkSize, tc.overlap)

		// Count identity for L > 0: ceil((L-O)/(C-O)).
		l := len([]rune(text))
		step := tc.chunkSize - tc.overlap
		want := (l - tc.overlap + step - 1) / step
		assert.Len(t, chunks, want, "chunk_size=%d overlap=%d", tc.chunkSize, tc.overlap)
	}
}

func TestSplitMultiByteRunes(t *testing.T) {
	c, err := New(3, 1)
	require.NoError(t, err)

	chunks := c.Split(domain.Document{Title: "t", Contents: "日本語のテキスト"})
	for _, ch := range chunks {
		assert.True(t, len([]rune(ch.Content)) <= 3)
		assert.Equal(t, ch.Content, string([]rune(ch.Content)))
	}
}

func TestSplitFreshIDs(t *testing.T) {
	c, err := New(4, 0)
	require.NoError(t, err)

	doc := domain.Document{Title: "t", Contents: "ABCDEFGH"}
	first := c.Split(doc)
	second := c.Split(doc)
	require.Len(t, first, 2)
	require.Len(t, second, 2)
	assert.NotEqual(t, first[0].ID, second[0].ID)
	assert.NotEqual(t, first[0].ID, first[1].ID)
}
