package local_provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/cliofer/docchat/models"
)

// Embedder is a deterministic, offline embedding backend. It hashes word
// unigrams and bigrams into a fixed number of buckets and L2-normalises the
// result, so identical texts always produce identical vectors. Useful for
// development and tests; it carries no semantic model and supports no completions.
type Embedder struct {
	dimensions int
}

// NewEmbedder creates a local hashing embedder with the given dimensionality.
func NewEmbedder(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &Embedder{dimensions: dimensions}
}

// Embed maps each text to a normalised bag-of-features vector.
func (e *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		vecs[i] = e.embedOne(text)
	}
	return vecs, nil
}

// Complete is not supported by the local backend.
func (e *Embedder) Complete(context.Context, string) (string, error) {
	return "", fmt.Errorf("%w: local provider has no completion model", models.ErrCompletion)
}

func (e *Embedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dimensions)
	tokens := tokenize(text)
	for i, tok := range tokens {
		vec[e.bucket(tok)]++
		if i+1 < len(tokens) {
			vec[e.bucket(tok+" "+tokens[i+1])]++
		}
	}
	return l2Normalize(vec)
}

func (e *Embedder) bucket(token string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(e.dimensions))
}

func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func l2Normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
