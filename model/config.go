// Package model - Modellkonfiguration und Presets
//
// Config ist die unveraenderliche Form-Beschreibung eines BitNet-
// Modells (spec.md §3). Die beiden Presets spiegeln original_source's
// zwei konkreten ModelConfig-Defaults (src/model/config.rs) wider.
package model

import "github.com/ollama/bitnet/nn/ffn"

// Config is the immutable shape of a BitNet model, fixed at build time.
type Config struct {
	VocabSize        int
	HiddenSize       int
	IntermediateSize int
	NumLayers        int
	NumHeads         int
	NumKVHeads       int
	HeadDim          int
	MaxContext       int
	RMSEpsilon       float32
	RopeBase         float64
	TiedEmbedding    bool
	Activation       ffn.Activation
}

// Preset2B matches the 2B-parameter BitNet b1.58 reference configuration.
func Preset2B() Config {
	return Config{
		VocabSize:        128256,
		HiddenSize:       2560,
		IntermediateSize: 6912,
		NumLayers:        30,
		NumHeads:         20,
		NumKVHeads:       5,
		HeadDim:          128,
		MaxContext:       4096,
		RMSEpsilon:       1e-5,
		RopeBase:         500000,
		TiedEmbedding:    false,
		Activation:       ffn.ActivationReluSquared,
	}
}

// PresetSmall is a reduced configuration used for local experimentation;
// the CLI loads every model with it.
func PresetSmall() Config {
	return Config{
		VocabSize:        32000,
		HiddenSize:       256,
		IntermediateSize: 768,
		NumLayers:        4,
		NumHeads:         8,
		NumKVHeads:       2,
		HeadDim:          32,
		MaxContext:       2048,
		RMSEpsilon:       1e-5,
		RopeBase:         10000,
		TiedEmbedding:    true,
		Activation:       ffn.ActivationSiLU,
	}
}
