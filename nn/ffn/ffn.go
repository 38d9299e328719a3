// Package ffn - Gated Feed-Forward-Block (C8)
//
// Gegrounded auf original_source's ffn.rs fuer die Aktivierungs-
// varianten und die gated/ungated-Unterscheidung; die BitLinear-
// Unterschichten selbst kommen aus nn/bitlinear.
package ffn

import (
	"math"

	"github.com/ollama/bitnet/nn/bitlinear"
)

// Activation selects the nonlinearity applied to the gate (gated form)
// or directly to up(x) (ungated form).
type Activation int

const (
	// ActivationReluSquared computes max(x,0)^2.
	ActivationReluSquared Activation = iota
	// ActivationSiLU computes x * sigmoid(x).
	ActivationSiLU
)

func (a Activation) apply(x []float32) []float32 {
	switch a {
	case ActivationSiLU:
		out := make([]float32, len(x))
		for i, v := range x {
			out[i] = v * sigmoid(v)
		}
		return out
	default:
		out := make([]float32, len(x))
		for i, v := range x {
			if v < 0 {
				v = 0
			}
			out[i] = v * v
		}
		return out
	}
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// Block is a single transformer layer's FFN sublayer. Gate is nil for
// the ungated form: out = down(activation(up(x))).
type Block struct {
	Activation Activation

	Up   *bitlinear.Layer
	Gate *bitlinear.Layer // nil for ungated
	Down *bitlinear.Layer
}

// Forward runs the gated or ungated FFN over n rows.
func (b *Block) Forward(x []float32, n int) []float32 {
	up := b.Up.Forward(x, n)

	var activated []float32
	if b.Gate != nil {
		gate := b.Gate.Forward(x, n)
		act := b.Activation.apply(gate)
		activated = make([]float32, len(up))
		for i := range activated {
			activated[i] = act[i] * up[i]
		}
	} else {
		activated = b.Activation.apply(up)
	}

	return b.Down.Forward(activated, n)
}
