// Package hf provides an embeddings provider backed by the Hugging Face
// inference API (sentence-transformers feature-extraction pipeline).
//
// The inference endpoint returns either a bare vector or a length-1 outer
// list wrapping it, depending on model and pipeline version; the provider
// unwraps both shapes.
package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/verifyxo/engine/pkg/provider/embeddings"
)

// DefaultModel is the multilingual sentence-transformers model the corpus was
// originally embedded with.
const DefaultModel = "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2"

const defaultBaseURL = "https://api-inference.huggingface.co/models/"

// modelDims maps known models to their output dimensionality.
var modelDims = map[string]int{
	"sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2": 384,
	"sentence-transformers/all-MiniLM-L6-v2":                      384,
}

var _ embeddings.Provider = (*Provider)(nil)

// Provider implements embeddings.Provider against the Hugging Face inference
// API.
type Provider struct {
	token   string
	model   string
	baseURL string
	client  *http.Client
}

type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the inference API base URL (must end with a slash).
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a Hugging Face embeddings Provider.
// If model is empty, DefaultModel is used.
func New(token, model string, opts ...Option) (*Provider, error) {
	if token == "" {
		return nil, fmt.Errorf("hf embeddings: token must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{baseURL: defaultBaseURL}
	for _, o := range opts {
		o(cfg)
	}

	return &Provider{
		token:   token,
		model:   model,
		baseURL: cfg.baseURL,
		client:  &http.Client{Timeout: cfg.timeout},
	}, nil
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.request(ctx, map[string]any{"inputs": text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("hf embeddings: expected 1 vector, got %d", len(vectors))
	}
	return vectors[0], nil
}

// EmbedBatch implements embeddings.Provider.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := p.request(ctx, map[string]any{"inputs": texts})
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("hf embeddings: expected %d vectors, got %d", len(texts), len(vectors))
	}
	return vectors, nil
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int {
	if d, ok := modelDims[p.model]; ok {
		return d
	}
	return 384
}

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string {
	return p.model
}

// request posts the payload and normalizes the response to a vector list.
func (p *Provider) request(ctx context.Context, payload map[string]any) ([][]float32, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("hf embeddings: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+p.model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("hf embeddings: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hf embeddings: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("hf embeddings: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hf embeddings: status %d: %s", resp.StatusCode, raw)
	}

	return decodeVectors(raw)
}

// decodeVectors accepts both response shapes the pipeline produces:
// a single vector ([0.1, …]) or a list of vectors ([[0.1, …], …]).
func decodeVectors(raw []byte) ([][]float32, error) {
	var nested [][]float32
	if err := json.Unmarshal(raw, &nested); err == nil {
		return nested, nil
	}
	var flat []float32
	if err := json.Unmarshal(raw, &flat); err == nil {
		return [][]float32{flat}, nil
	}
	return nil, fmt.Errorf("hf embeddings: unrecognized response shape: %s", truncate(raw, 200))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "…"
}
