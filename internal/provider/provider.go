package provider

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"ragchat/internal/domain"
)

// Stream is a lazy, finite, non-restartable sequence of completion
// fragments. Recv blocks until the next fragment arrives and returns
// io.EOF when the backend finishes normally. Fragments already
// delivered are never retracted, even if the stream later fails.
type Stream interface {
	Recv() (string, error)
	Close() error
}

// Provider is a chat/embedding backend. Implementations are immutable
// after construction and safe for concurrent use within one session.
// Embedding is an optional capability: chat-only backends return
// domain.ErrUnsupportedCapability from Embed.
type Provider interface {
	Name() string
	Chat(ctx context.Context, prompt string) (string, error)
	ChatStream(ctx context.Context, prompt string) (Stream, error)
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Config carries per-backend construction settings. The API key itself
// is never stored in config files; only the env variable name is.
type Config struct {
	APIKeyEnv      string
	Model          string
	EmbeddingModel string
	BaseURL        string
	Timeout        time.Duration
}

// Backend names accepted by New.
const (
	BackendOpenAI = "openai"
	BackendGroq   = "groq"
	BackendGemini = "gemini"
)

// New constructs the named backend, reading its credential from the
// configured environment variable. A missing variable is a fatal
// configuration error that names the variable.
func New(backend string, cfg Config) (Provider, error) {
	key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if key == "" {
		return nil, fmt.Errorf("%w: environment variable %s is not set (required by backend %s)",
			domain.ErrInvalidConfig, cfg.APIKeyEnv, backend)
	}
	switch backend {
	case BackendOpenAI:
		return newOpenAI(key, cfg), nil
	case BackendGroq:
		return newGroq(key, cfg), nil
	case BackendGemini:
		return newGemini(key, cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", domain.ErrInvalidConfig, backend)
	}
}

func providerErr(backend, op string, err error) error {
	return &domain.ProviderError{Backend: backend, Op: op, Err: err}
}
