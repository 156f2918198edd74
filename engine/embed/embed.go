// Package embed maps batches of text to fixed-length vectors for the
// similarity-search backends. The model itself is an external service;
// this package only isolates the call so it can be parallelized
// independently of the I/O-bound store submission.
package embed

import "context"

// Dims is the output dimension of the default sentence-embedding model.
const Dims = 384

// Embedder maps a batch of strings to an equal-length, order-preserving
// sequence of fixed-dimension vectors. Empty strings yield a zero
// vector rather than a model call.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dims() int
}
