// Package model - Modellmontage und Forward (C10)
//
// Baut die Schicht-Stapel aus nn/transformer-Bloecken zusammen und
// implementiert den Gesamt-Forward: Embedding-Lookup, Schicht-Stapel,
// Abschluss-RMSNorm, LM-Head. Gegrounded auf original_source's
// nn/model.rs; die Registrierungs-Idee (Register/New) stammt aus dem
// Lehrer-Repo's model/model.go, hier auf eine einzelne Architektur
// ("bitnet") verengt, da die Spezifikation keine weiteren Architekturen
// vorsieht.
package model

import (
	"github.com/ollama/bitnet/kvcache"
	"github.com/ollama/bitnet/nn/bitlinear"
	"github.com/ollama/bitnet/nn/transformer"
)

// Model is a fully loaded, GPU-backed BitNet model ready for forward
// calls.
type Model struct {
	Config

	// EmbedTokens is [VocabSize, HiddenSize], row-major, always f32 on
	// the host regardless of the on-device storage dtype (spec.md §4.9
	// converts f16 embeddings to f32 on read).
	EmbedTokens []float32

	Layers []*transformer.Block
	Caches []*kvcache.Cache

	FinalNorm []float32

	// LMHead is nil when TiedEmbedding is true; the model then reuses
	// EmbedTokens as the output projection.
	LMHead *bitlinear.Layer
}

// Forward runs the full model over ids, a batch of N token ids, and
// returns logits for the last token only, shape [1, VocabSize] (spec.md
// §4.9). Every layer's KV cache must hold the same seq_len on entry;
// Forward advances every cache together once all layers have run.
func (m *Model) Forward(ids []int32) []float32 {
	n := len(ids)
	h := m.HiddenSize

	hidden := make([]float32, n*h)
	for row, id := range ids {
		copy(hidden[row*h:(row+1)*h], m.EmbedTokens[int(id)*h:int(id)*h+h])
	}

	for i, layer := range m.Layers {
		hidden = layer.Forward(hidden, n, m.Caches[i])
	}

	for _, cache := range m.Caches {
		cache.SeqLen += n
	}

	lastRow := hidden[(n-1)*h : n*h]
	normed := bitlinear.RMSNorm(lastRow, 1, h, m.FinalNorm, m.RMSEpsilon)

	if m.TiedEmbedding {
		return m.tiedLogits(normed)
	}
	return m.LMHead.Forward(normed, 1)
}

// tiedLogits computes logits = EmbedTokens . normed^T for the tied-
// embedding case: an f32 matmul against the embedding table directly,
// not a BitLinear (spec.md §4.9).
func (m *Model) tiedLogits(normed []float32) []float32 {
	h := m.HiddenSize
	logits := make([]float32, m.VocabSize)
	for v := 0; v < m.VocabSize; v++ {
		row := m.EmbedTokens[v*h : (v+1)*h]
		var acc float32
		for i := 0; i < h; i++ {
			acc += row[i] * normed[i]
		}
		logits[v] = acc
	}
	return logits
}

// Reset clears every layer's KV cache, used at the start of a new
// generation call (spec.md §4.11 Prefill).
func (m *Model) Reset() {
	for _, cache := range m.Caches {
		cache.Reset()
	}
}
