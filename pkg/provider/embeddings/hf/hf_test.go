package hf_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/verifyxo/engine/pkg/provider/embeddings/hf"
)

// newTestProvider points a provider at a stub inference server.
func newTestProvider(t *testing.T, response string) *hf.Provider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	p, err := hf.New("test-token", "test-model", hf.WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestEmbed_UnwrapsOuterList(t *testing.T) {
	t.Parallel()

	// Some pipeline versions wrap the single vector in a length-1 list.
	p := newTestProvider(t, `[[0.1, 0.2, 0.3]]`)

	vec, err := p.Embed(context.Background(), "Indian Express")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("vec = %v, want the unwrapped 3-dim vector", vec)
	}
}

func TestEmbed_AcceptsBareVector(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, `[0.5, 0.5]`)

	vec, err := p.Embed(context.Background(), "Hindu")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 || vec[1] != 0.5 {
		t.Errorf("vec = %v, want the bare 2-dim vector", vec)
	}
}

func TestEmbedBatch_LengthMismatchIsError(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, `[[0.1], [0.2]]`)

	if _, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"}); err == nil {
		t.Error("EmbedBatch accepted a response with the wrong vector count")
	}
}

func TestEmbed_NonOKStatusIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	p, err := hf.New("test-token", "test-model", hf.WithBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Embed(context.Background(), "Awaz"); err == nil {
		t.Error("Embed accepted a 503 response")
	}
}
