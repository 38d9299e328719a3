package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollama/bitnet/kvcache"
	"github.com/ollama/bitnet/nn/attention"
	"github.com/ollama/bitnet/nn/bitlinear"
	"github.com/ollama/bitnet/nn/ffn"
)

func identityLayer(dim int) *bitlinear.Layer {
	w := make([]int8, dim*dim)
	scale := make([]float32, dim)
	for i := 0; i < dim; i++ {
		w[i*dim+i] = 1
		scale[i] = 1
	}
	return &bitlinear.Layer{In: dim, Out: dim, Weight: w, WeightScale: scale}
}

func unitNorm(dim int) []float32 {
	w := make([]float32, dim)
	for i := range w {
		w[i] = 1
	}
	return w
}

func TestBlockForwardProducesResidualShape(t *testing.T) {
	dim := 4
	block := &Block{
		HiddenSize:             dim,
		InputLayerNorm:         unitNorm(dim),
		PostAttentionLayerNorm: unitNorm(dim),
		Attention: &attention.Block{
			Config: attention.Config{NumHeads: 1, NumKVHeads: 1, HeadDim: dim, RopeBase: 10000},
			QProj:  identityLayer(dim),
			KProj:  identityLayer(dim),
			VProj:  identityLayer(dim),
			OProj:  identityLayer(dim),
		},
		FFN: &ffn.Block{
			Activation: ffn.ActivationReluSquared,
			Up:         identityLayer(dim),
			Down:       identityLayer(dim),
		},
	}
	cache := kvcache.New(1, dim, 8)

	out := block.Forward([]float32{1, 2, 3, 4}, 1, cache)
	require.Len(t, out, dim)
	assert.Equal(t, 0, cache.SeqLen, "layer forward alone must not advance SeqLen")
}
