package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ragchat/internal/domain"
)

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// geminiProvider talks to the Generative Language REST API directly.
// Chat-only: embeddings come from a different backend in this tool.
type geminiProvider struct {
	baseURL    string
	apiKey     string
	model      string
	client     *http.Client
	maxRetries int
}

func newGemini(apiKey string, cfg Config) *geminiProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash-lite"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &geminiProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		client:     &http.Client{Timeout: timeout},
		maxRetries: 3,
	}
}

func (p *geminiProvider) Name() string { return BackendGemini }

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (r geminiResponse) text() string {
	var out strings.Builder
	for _, c := range r.Candidates {
		for _, part := range c.Content.Parts {
			out.WriteString(part.Text)
		}
	}
	return out.String()
}

func (p *geminiProvider) Chat(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model)
	body, err := p.post(ctx, url, prompt)
	if err != nil {
		return "", providerErr(BackendGemini, "chat", err)
	}
	defer body.Close()

	var out geminiResponse
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		return "", providerErr(BackendGemini, "chat", err)
	}
	if len(out.Candidates) == 0 {
		return "", providerErr(BackendGemini, "chat", errors.New("no candidates in response"))
	}
	return out.text(), nil
}

func (p *geminiProvider) ChatStream(ctx context.Context, prompt string) (Stream, error) {
	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", p.baseURL, p.model)
	body, err := p.post(ctx, url, prompt)
	if err != nil {
		return nil, providerErr(BackendGemini, "chat_stream", err)
	}
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &geminiStream{body: body, scanner: scanner}, nil
}

func (p *geminiProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	return nil, fmt.Errorf("%w: backend %s is chat-only", domain.ErrUnsupportedCapability, BackendGemini)
}

// post sends the prompt, retrying with backoff on rate limits and
// server errors. The caller owns the returned body.
func (p *geminiProvider) post(ctx context.Context, url, prompt string) (io.ReadCloser, error) {
	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay(attempt - 1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", p.apiKey)

		resp, err := p.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("gemini request failed: %s", resp.Status)
			continue
		}
		if resp.StatusCode >= 300 {
			defer resp.Body.Close()
			detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("gemini request failed: %s: %s", resp.Status, strings.TrimSpace(string(detail)))
		}
		return resp.Body, nil
	}
	return nil, lastErr
}

func retryDelay(attempt int) time.Duration {
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

// geminiStream reads server-sent events, yielding the text of each
// chunk as one fragment.
type geminiStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

func (s *geminiStream) Recv() (string, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		var chunk geminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", providerErr(BackendGemini, "chat_stream", err)
		}
		return chunk.text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", providerErr(BackendGemini, "chat_stream", err)
	}
	return "", io.EOF
}

func (s *geminiStream) Close() error { return s.body.Close() }
