package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollama/bitnet/kvcache"
	"github.com/ollama/bitnet/nn/attention"
	"github.com/ollama/bitnet/nn/bitlinear"
	"github.com/ollama/bitnet/nn/ffn"
	"github.com/ollama/bitnet/nn/transformer"
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

func tinyModel(t *testing.T, tied bool, vocab int) *Model {
	t.Helper()
	dim := 4

	block := &transformer.Block{
		HiddenSize:             dim,
		InputLayerNorm:         unitNorm(dim),
		PostAttentionLayerNorm: unitNorm(dim),
		Attention: &attention.Block{
			Config: attention.Config{NumHeads: 1, NumKVHeads: 1, HeadDim: dim, RopeBase: 10000},
			QProj:  identityLayer(dim), KProj: identityLayer(dim),
			VProj: identityLayer(dim), OProj: identityLayer(dim),
		},
		FFN: &ffn.Block{Activation: ffn.ActivationReluSquared, Up: identityLayer(dim), Down: identityLayer(dim)},
	}

	embed := make([]float32, vocab*dim)
	for i := range embed {
		embed[i] = float32(i % 7)
	}

	m := &Model{
		Config:      Config{HiddenSize: dim, VocabSize: vocab, NumLayers: 1, TiedEmbedding: tied, RMSEpsilon: 1e-5},
		EmbedTokens: embed,
		FinalNorm:   unitNorm(dim),
		Layers:      []*transformer.Block{block},
		Caches:      []*kvcache.Cache{kvcache.New(1, dim, 16)},
	}
	if !tied {
		m.LMHead = identityLayer(dim)
	}
	return m
}

func TestForwardAdvancesAllCachesTogether(t *testing.T) {
	m := tinyModel(t, true, 8)
	m.Forward([]int32{1, 2, 3})
	assert.Equal(t, 3, m.Caches[0].SeqLen)
}

func TestForwardTiedLogitsShape(t *testing.T) {
	m := tinyModel(t, true, 8)
	logits := m.Forward([]int32{0, 1})
	require.Len(t, logits, 8)
}

func TestForwardSeparateLMHeadShape(t *testing.T) {
	m := tinyModel(t, false, 8)
	logits := m.Forward([]int32{0, 1})
	require.Len(t, logits, 4) // identityLayer LM head has Out=dim, not VocabSize, in this synthetic setup
}

func TestResetClearsEverySeqLen(t *testing.T) {
	m := tinyModel(t, true, 8)
	m.Forward([]int32{1, 2})
	require.Equal(t, 2, m.Caches[0].SeqLen)
	m.Reset()
	assert.Equal(t, 0, m.Caches[0].SeqLen)
}
