// Package openai provides the embeddings client for the OpenAI API or any
// OpenAI-compatible inference gateway.
//
// The corpus store's vector column has a fixed dimensionality, so the
// provider must know the model's output dimension up front. First-party
// OpenAI models are resolved from a built-in table; models served through a
// gateway (base URL override) must state their dimension with
// [WithDimensions] so it matches the store schema.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/verifyxo/engine/pkg/provider/embeddings"
)

// DefaultModel is the model used when the config names none.
const DefaultModel = oai.EmbeddingModelTextEmbedding3Small

// maxBatchInputs is the API's per-request input cap. Seeding runs over the
// whole corpus; EmbedBatch splits oversized batches transparently.
const maxBatchInputs = 2048

// knownModelDims maps first-party OpenAI embedding models to their output
// dimensionality.
var knownModelDims = map[string]int{
	oai.EmbeddingModelTextEmbedding3Large: 3072,
	oai.EmbeddingModelTextEmbedding3Small: 1536,
	oai.EmbeddingModelTextEmbeddingAda002: 1536,
}

var _ embeddings.Provider = (*Provider)(nil)

// Provider implements embeddings.Provider against the OpenAI embeddings API.
type Provider struct {
	client oai.Client
	model  string
	dims   int
}

type config struct {
	baseURL string
	timeout time.Duration
	dims    int
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL points the client at an OpenAI-compatible inference gateway
// instead of api.openai.com. Gateway-hosted models are usually not in the
// built-in dimension table; combine with [WithDimensions].
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

// WithDimensions declares the model's output dimensionality. Required for
// models the built-in table does not know; must equal the corpus store's
// embedding column dimension.
func WithDimensions(dims int) Option {
	return func(c *config) {
		c.dims = dims
	}
}

// New constructs a Provider. If model is empty, [DefaultModel] is used.
// Unknown models without a [WithDimensions] override are rejected rather
// than silently guessed — a wrong dimension fails at the store on every
// single insert.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai embeddings: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	dims := cfg.dims
	if dims <= 0 {
		known, ok := knownModelDims[model]
		if !ok {
			return nil, fmt.Errorf("openai embeddings: unknown model %q; set its dimensions explicitly", model)
		}
		dims = known
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{
		client: oai.NewClient(reqOpts...),
		model:  model,
		dims:   dims,
	}, nil
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.request(ctx, oai.EmbeddingNewParamsInputUnion{
		OfString: param.NewOpt(text),
	}, 1)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch implements embeddings.Provider. Batches beyond the API's input
// cap are split into sequential requests; on any failure the whole result is
// discarded, matching the interface's no-partial-results contract.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchInputs {
		end := min(start+maxBatchInputs, len(texts))
		chunk := texts[start:end]

		vectors, err := p.request(ctx, oai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: chunk,
		}, len(chunk))
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int {
	return p.dims
}

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string {
	return p.model
}

// request issues one embeddings call and reassembles the response by index
// into exactly want vectors.
func (p *Provider) request(ctx context.Context, input oai.EmbeddingNewParamsInputUnion, want int) ([][]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: p.model,
		Input: input,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: embed: %w", err)
	}
	if len(resp.Data) != want {
		return nil, fmt.Errorf("openai embeddings: expected %d embeddings, got %d", want, len(resp.Data))
	}

	vectors := make([][]float32, want)
	for _, d := range resp.Data {
		if int(d.Index) >= want || vectors[d.Index] != nil {
			return nil, fmt.Errorf("openai embeddings: unexpected index %d in response", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors[d.Index] = vec
	}
	return vectors, nil
}
