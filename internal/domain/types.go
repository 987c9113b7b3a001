package domain

// Document is a single source text loaded into the system.
type Document struct {
	Title    string
	Contents string
}

// Chunk is a contiguous window of one document's contents, the atomic
// unit of embedding and retrieval.
type Chunk struct {
	ID      string
	Title   string
	Content string
}

// RetrievalResult is one retrieved chunk content with its distance to
// the query vector (smaller is closer).
type RetrievalResult struct {
	Content string
	Score   float64
}
