package local_provider

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/cliofer/docchat/models"
)

func TestEmbedDimensions(t *testing.T) {
	e := NewEmbedder(64)
	vecs, err := e.Embed(context.Background(), []string{"first text", "second text", ""})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	for i, vec := range vecs {
		if len(vec) != 64 {
			t.Fatalf("vector %d has %d dimensions, expected 64", i, len(vec))
		}
	}
}

func TestEmbedDeterministic(t *testing.T) {
	e := NewEmbedder(128)
	a, err := e.Embed(context.Background(), []string{"the same sentence twice"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := e.Embed(context.Background(), []string{"the same sentence twice"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, a[0][i], b[0][i])
		}
	}
}

func TestEmbedNormalised(t *testing.T) {
	e := NewEmbedder(128)
	vecs, err := e.Embed(context.Background(), []string{"some words for a unit length check"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	var sum float64
	for _, v := range vecs[0] {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1) > 1e-5 {
		t.Fatalf("vector norm %v, expected 1", math.Sqrt(sum))
	}
}

func TestEmbedDistinguishesTexts(t *testing.T) {
	e := NewEmbedder(128)
	vecs, err := e.Embed(context.Background(), []string{"cats sleep all day", "compilers rewrite intermediate code"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	equal := true
	for i := range vecs[0] {
		if vecs[0][i] != vecs[1][i] {
			equal = false
			break
		}
	}
	if equal {
		t.Fatal("unrelated texts produced identical vectors")
	}
}

func TestDefaultDimensions(t *testing.T) {
	e := NewEmbedder(0)
	vecs, err := e.Embed(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs[0]) != 256 {
		t.Fatalf("expected default 256 dimensions, got %d", len(vecs[0]))
	}
}

func TestCompleteUnsupported(t *testing.T) {
	e := NewEmbedder(64)
	_, err := e.Complete(context.Background(), "prompt")
	if !errors.Is(err, models.ErrCompletion) {
		t.Fatalf("expected ErrCompletion, got %v", err)
	}
}
