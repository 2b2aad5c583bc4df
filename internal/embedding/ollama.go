package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaEmbedder generates embeddings through a local Ollama server.
type OllamaEmbedder struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// NewOllamaEmbedder builds an embedder for the given host URL and model.
func NewOllamaEmbedder(host, model string, httpClient *http.Client, timeout time.Duration) (*OllamaEmbedder, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama host %q: %w", host, err)
	}
	if hostURL.Scheme == "" || hostURL.Host == "" {
		return nil, fmt.Errorf("ollama host %q must include scheme and host", host)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OllamaEmbedder{
		client:  api.NewClient(hostURL, httpClient),
		model:   model,
		timeout: timeout,
	}, nil
}

func (e *OllamaEmbedder) Model() string {
	return e.model
}

// EmbedText generates an embedding for one text with a bounded timeout.
func (e *OllamaEmbedder) EmbedText(ctx context.Context, text string) ([]float64, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Embeddings(ctxWithTimeout, &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embedding: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama embedding: empty vector for model %s", e.model)
	}
	return resp.Embedding, nil
}
