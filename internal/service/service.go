package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ragchat/internal/chunker"
	"ragchat/internal/domain"
	"ragchat/internal/prompt"
	"ragchat/internal/provider"
	"ragchat/internal/vectorstore"
)

// Service runs the two session modes: indexing a document into the
// vector store, and answering questions either grounded in retrieved
// context or as plain chat.
type Service struct {
	chunker  *chunker.WindowChunker
	embedder provider.Provider
	chat     provider.Provider
	store    vectorstore.Store
	table    string
	schema   vectorstore.Schema
	limit    int
	log      *zap.Logger
}

// Options collects the retrieval-side settings.
type Options struct {
	Table string
	Dims  int
	Limit int
}

// New wires the pipeline. The embedder may differ from the chat
// provider: chat-only backends still need an embedding-capable one for
// the indexing and retrieval phases.
func New(ch *chunker.WindowChunker, embedder, chat provider.Provider, store vectorstore.Store, opts Options, log *zap.Logger) (*Service, error) {
	schema, err := vectorstore.NewSchema(opts.Dims)
	if err != nil {
		return nil, err
	}
	if opts.Limit <= 0 {
		return nil, fmt.Errorf("%w: retrieval limit must be positive, got %d", domain.ErrInvalidConfig, opts.Limit)
	}
	if opts.Table == "" {
		return nil, fmt.Errorf("%w: table name must not be empty", domain.ErrInvalidConfig)
	}
	return &Service{
		chunker:  ch,
		embedder: embedder,
		chat:     chat,
		store:    store,
		table:    opts.Table,
		schema:   schema,
		limit:    opts.Limit,
		log:      log,
	}, nil
}

// Index splits the document, embeds every chunk in one batch and
// replaces the table with the result. Any failure aborts the whole
// operation; nothing is partially written.
func (s *Service) Index(ctx context.Context, doc domain.Document) (int, error) {
	chunks := s.chunker.Split(doc)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document %q produced no chunks", doc.Title)
	}
	s.log.Info("indexing document",
		zap.String("title", doc.Title),
		zap.Int("chunks", len(chunks)))

	ids := make([]string, len(chunks))
	contents := make([]string, len(chunks))
	titles := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		contents[i] = c.Content
		titles[i] = c.Title
	}

	embeddings, err := s.embedder.Embed(ctx, contents)
	if err != nil {
		return 0, err
	}
	records, err := vectorstore.BuildRecords(ids, contents, titles, embeddings, s.schema)
	if err != nil {
		return 0, err
	}
	if err := s.store.CreateOrReplace(ctx, s.table, records, s.schema); err != nil {
		return 0, err
	}
	s.log.Info("document indexed", zap.String("table", s.table), zap.Int("records", len(records)))
	return len(records), nil
}

// Answer retrieves the nearest chunks for the question and asks the
// chat provider to reply grounded in them.
func (s *Service) Answer(ctx context.Context, question string) (string, error) {
	grounded, err := s.groundedPrompt(ctx, question)
	if err != nil {
		return "", err
	}
	return s.chat.Chat(ctx, grounded)
}

// AnswerStream is Answer with a streamed reply.
func (s *Service) AnswerStream(ctx context.Context, question string) (provider.Stream, error) {
	grounded, err := s.groundedPrompt(ctx, question)
	if err != nil {
		return nil, err
	}
	return s.chat.ChatStream(ctx, grounded)
}

// Chat forwards the message to the chat provider without retrieval.
func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	return s.chat.Chat(ctx, message)
}

// ChatStream is Chat with a streamed reply.
func (s *Service) ChatStream(ctx context.Context, message string) (provider.Stream, error) {
	return s.chat.ChatStream(ctx, message)
}

func (s *Service) groundedPrompt(ctx context.Context, question string) (string, error) {
	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return "", err
	}
	if len(vectors) != 1 {
		return "", fmt.Errorf("expected 1 query embedding, got %d", len(vectors))
	}
	results, err := s.store.Search(ctx, s.table, vectors[0], s.limit)
	if err != nil {
		return "", err
	}
	s.log.Debug("retrieved context", zap.Int("results", len(results)))

	contents := make([]string, len(results))
	for i, r := range results {
		contents[i] = r.Content
	}
	return prompt.Build(question, prompt.JoinContext(contents))
}
