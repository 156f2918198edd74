package embed

import (
	"context"
	"math"
	"testing"
)

func TestLocalEmbedderDeterministic(t *testing.T) {
	e := NewLocal(Dims)
	ctx := context.Background()

	a, err := e.Embed(ctx, []string{"Merlot Foo 2010 dark fruit"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := e.Embed(ctx, []string{"Merlot Foo 2010 dark fruit"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, a[0][i], b[0][i])
		}
	}
}

func TestLocalEmbedderLowercases(t *testing.T) {
	e := NewLocal(Dims)
	ctx := context.Background()

	upper, _ := e.Embed(ctx, []string{"MERLOT SICILY"})
	lower, _ := e.Embed(ctx, []string{"merlot sicily"})
	for i := range upper[0] {
		if upper[0][i] != lower[0][i] {
			t.Fatal("embedding is case sensitive, want lowercased input")
		}
	}
}

func TestLocalEmbedderDimsAndNorm(t *testing.T) {
	e := NewLocal(Dims)
	vecs, err := e.Embed(context.Background(), []string{"zinfandel", "riesling"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors, want 2", len(vecs))
	}
	for _, v := range vecs {
		if len(v) != Dims {
			t.Fatalf("len = %d, want %d", len(v), Dims)
		}
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if math.Abs(math.Sqrt(norm)-1) > 1e-5 {
			t.Errorf("norm = %f, want 1", math.Sqrt(norm))
		}
	}
}

func TestLocalEmbedderEmptyTextZeroVector(t *testing.T) {
	e := NewLocal(Dims)
	vecs, err := e.Embed(context.Background(), []string{""})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	for _, x := range vecs[0] {
		if x != 0 {
			t.Fatal("empty text should embed to the zero vector")
		}
	}
}
