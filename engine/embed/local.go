package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// LocalEmbedder produces deterministic hashed bag-of-words vectors.
// It is not a semantic model; it exists so tests and offline runs can
// exercise the full vector path without an embedding server.
type LocalEmbedder struct {
	dims int
}

// NewLocal creates a LocalEmbedder with the given dimension.
func NewLocal(dims int) *LocalEmbedder {
	if dims <= 0 {
		dims = Dims
	}
	return &LocalEmbedder{dims: dims}
}

// Dims returns the vector dimension.
func (e *LocalEmbedder) Dims() int { return e.dims }

// Embed hashes each token into a bucket and L2-normalizes the result.
// Empty strings map to a zero vector.
func (e *LocalEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embedOne(t)
	}
	return out, nil
}

func (e *LocalEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dims)
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return vec
	}
	for _, tok := range fields {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dims)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for j := range vec {
			vec[j] *= inv
		}
	}
	return vec
}
