// Package transformer - Transformer-Block-Montage (C9)
//
// Pre-Norm-Residual-Verknuepfung von Attention und FFN, gegrounded auf
// original_source's transformer.rs. Die eigentlichen Unterschichten
// kommen aus nn/attention und nn/ffn; dieses Paket verdrahtet nur die
// Residual-Pfade.
package transformer

import (
	"github.com/ollama/bitnet/kvcache"
	"github.com/ollama/bitnet/nn/attention"
	"github.com/ollama/bitnet/nn/bitlinear"
	"github.com/ollama/bitnet/nn/ffn"
)

// Block is one transformer layer: h1 = x + attention(input_layernorm(x));
// h2 = h1 + ffn(post_attention_layernorm(h1)).
type Block struct {
	HiddenSize int

	InputLayerNorm         []float32
	PostAttentionLayerNorm []float32
	LayerNormEpsilon       float32

	Attention *attention.Block
	FFN       *ffn.Block
}

// Forward runs one transformer layer over n rows of width HiddenSize.
func (b *Block) Forward(x []float32, n int, cache *kvcache.Cache) []float32 {
	h := b.HiddenSize

	normed := bitlinear.RMSNorm(x, n, h, b.InputLayerNorm, b.LayerNormEpsilon)
	attnOut := b.Attention.Forward(normed, n, cache)

	h1 := make([]float32, n*h)
	for i := range h1 {
		h1[i] = x[i] + attnOut[i]
	}

	normed2 := bitlinear.RMSNorm(h1, n, h, b.PostAttentionLayerNorm, b.LayerNormEpsilon)
	ffnOut := b.FFN.Forward(normed2, n)

	h2 := make([]float32, n*h)
	for i := range h2 {
		h2[i] = h1[i] + ffnOut[i]
	}
	return h2
}
