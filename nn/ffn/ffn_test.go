package ffn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollama/bitnet/nn/bitlinear"
)

func TestReluSquaredActivation(t *testing.T) {
	out := ActivationReluSquared.apply([]float32{-2, 0, 3})
	assert.Equal(t, []float32{0, 0, 9}, out)
}

func TestSiLUActivationAtZero(t *testing.T) {
	out := ActivationSiLU.apply([]float32{0})
	assert.InDelta(t, 0, out[0], 1e-6)
}

func TestSiLUActivationPositive(t *testing.T) {
	out := ActivationSiLU.apply([]float32{2})
	// 2 * sigmoid(2) ~= 2 * 0.8808 = 1.7616
	assert.InDelta(t, 1.7616, out[0], 1e-3)
}

func identityLayer(dim int) *bitlinear.Layer {
	w := make([]int8, dim*dim)
	scale := make([]float32, dim)
	for i := 0; i < dim; i++ {
		w[i*dim+i] = 1
		scale[i] = 1
	}
	return &bitlinear.Layer{In: dim, Out: dim, Weight: w, WeightScale: scale}
}

func TestBlockForwardUngated(t *testing.T) {
	b := &Block{Activation: ActivationReluSquared, Up: identityLayer(2), Down: identityLayer(2)}
	out := b.Forward([]float32{-1, 3}, 1)
	require.Len(t, out, 2)
	assert.Equal(t, []float32{0, 9}, out)
}

func TestBlockForwardGatedMultipliesGateAndUp(t *testing.T) {
	b := &Block{
		Activation: ActivationReluSquared,
		Up:         identityLayer(2),
		Gate:       identityLayer(2),
		Down:       identityLayer(2),
	}
	out := b.Forward([]float32{2, 2}, 1)
	require.Len(t, out, 2)
	// gate activated = relu(2)^2 = 4, up = 2, product = 8
	assert.Equal(t, []float32{8, 8}, out)
}
