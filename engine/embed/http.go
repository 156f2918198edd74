package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPEmbedder calls an Ollama-compatible embedding server
// (POST /api/embed with a batched input array).
type HTTPEmbedder struct {
	baseURL string
	model   string
	dims    int
	client  *http.Client
}

// NewHTTP creates an embedding client for the given server and model.
func NewHTTP(baseURL, model string, dims int) *HTTPEmbedder {
	if dims <= 0 {
		dims = Dims
	}
	return &HTTPEmbedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		dims:    dims,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Dims returns the vector dimension.
func (c *HTTPEmbedder) Dims() int { return c.dims }

type embedReq struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResp struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed returns one vector per input text, in input order. Texts are
// lowercased before embedding, matching how the index was built. Empty
// strings are not sent to the model and map to a zero vector.
func (c *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	// Only non-empty texts go to the model; remember where they came from.
	idx := make([]int, 0, len(texts))
	input := make([]string, 0, len(texts))
	for i, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			out[i] = make([]float32, c.dims)
			continue
		}
		idx = append(idx, i)
		input = append(input, strings.ToLower(t))
	}
	if len(input) == 0 {
		return out, nil
	}

	body, _ := json.Marshal(embedReq{Model: c.model, Input: input})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed: status %d", resp.StatusCode)
	}

	var result embedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embed decode: %w", err)
	}
	if len(result.Embeddings) != len(input) {
		return nil, fmt.Errorf("embed: got %d vectors for %d texts", len(result.Embeddings), len(input))
	}

	for j, emb := range result.Embeddings {
		if len(emb) != c.dims {
			return nil, fmt.Errorf("embed: vector dim %d, want %d", len(emb), c.dims)
		}
		vec := make([]float32, len(emb))
		for k, v := range emb {
			vec[k] = float32(v)
		}
		out[idx[j]] = vec
	}
	return out, nil
}
