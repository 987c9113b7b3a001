package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	openai "github.com/sashabaranov/go-openai"

	"ragchat/internal/domain"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// openAIProvider serves both the OpenAI backend and any
// OpenAI-compatible endpoint (Groq) through the same SDK. Embedding is
// enabled only when an embedding model is configured for the backend.
type openAIProvider struct {
	name           string
	client         *openai.Client
	model          string
	embeddingModel string
}

func newOpenAI(apiKey string, cfg Config) *openAIProvider {
	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = string(openai.SmallEmbedding3)
	}
	return &openAIProvider{
		name:           BackendOpenAI,
		client:         openai.NewClientWithConfig(clientConfig),
		model:          model,
		embeddingModel: embeddingModel,
	}
}

func newGroq(apiKey string, cfg Config) *openAIProvider {
	clientConfig := openai.DefaultConfig(apiKey)
	clientConfig.BaseURL = groqBaseURL
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	// Groq serves chat only; no embedding model.
	return &openAIProvider{
		name:   BackendGroq,
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

func (p *openAIProvider) Name() string { return p.name }

func (p *openAIProvider) Chat(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", providerErr(p.name, "chat", err)
	}
	if len(resp.Choices) == 0 {
		return "", providerErr(p.name, "chat", errors.New("no choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *openAIProvider) ChatStream(ctx context.Context, prompt string) (Stream, error) {
	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		return nil, providerErr(p.name, "chat_stream", err)
	}
	return &openAIStream{backend: p.name, stream: stream}, nil
}

func (p *openAIProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if p.embeddingModel == "" {
		return nil, fmt.Errorf("%w: backend %s has no embedding model", domain.ErrUnsupportedCapability, p.name)
	}
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.embeddingModel),
		Input: inputs,
	})
	if err != nil {
		return nil, providerErr(p.name, "embed", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, providerErr(p.name, "embed",
			fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(inputs)))
	}
	// The API annotates each vector with its input index; order by it so
	// result[i] always corresponds to inputs[i].
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })
	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// openAIStream adapts the SDK's pull stream to the Stream interface.
type openAIStream struct {
	backend string
	stream  *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		return "", io.EOF
	}
	if err != nil {
		return "", providerErr(s.backend, "chat_stream", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *openAIStream) Close() error { return s.stream.Close() }
