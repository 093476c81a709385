package hash

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i] * b[i])
	}
	return s
}

func TestEmbedder_Deterministic(t *testing.T) {
	e := New(0)
	require.Equal(t, DefaultDimensions, e.Dimensions())

	a, err := e.Embed(context.Background(), "Binary search, on sorted arrays")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "binary SEARCH on sorted arrays!")
	require.NoError(t, err)

	assert.Len(t, a, DefaultDimensions)
	assert.Equal(t, a, b)
	assert.InDelta(t, 1.0, dot(a, a), 1e-5)
}

func TestEmbedder_SharedWordsAreCloser(t *testing.T) {
	e := New(512)
	ctx := context.Background()

	query, _ := e.Embed(ctx, "goroutine scheduling")
	near, _ := e.Embed(ctx, "how does goroutine scheduling work")
	far, _ := e.Embed(ctx, "bake a chocolate cake")

	assert.Greater(t, dot(query, near), dot(query, far))
}

func TestEmbedder_EmptyText(t *testing.T) {
	e := New(16)

	v, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}

	v, err = e.Embed(context.Background(), "?!")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, math.Sqrt(dot(v, v)), 1e-5)
}

func TestEmbedder_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(8).Embed(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
}
