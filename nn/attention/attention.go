// Package attention - Grouped-Query-Attention mit RoPE und KV-Cache (C7)
//
// Rein hostseitige Ausformulierung der Kernel-Mathematik, analog zu
// bitlinear: Q/K/V-Projektionen sind bitlinear.Layer-Werte, die
// eigentliche Score/Softmax/Weighted-Sum-Rechnung laeuft in Go.
// Gegrounded auf original_source's attention.rs fuer die exakte
// Rechenvorschrift (RoPE-Paarung, Skalierung, Causal-Maske) und auf
// kvcache/forward.go's Methodennamen-Konventionen im Lehrer-Repo,
// vereinfacht auf eine einzelne Sequenz mit fester Cache-Groesse statt
// Sliding-Window/Multi-Sequenz.
package attention

import (
	"math"

	"github.com/ollama/bitnet/kvcache"
	"github.com/ollama/bitnet/nn/bitlinear"
)

// Config carries the shape parameters needed to run one attention block.
type Config struct {
	NumHeads   int // A
	NumKVHeads int // K_h
	HeadDim    int // D
	RopeBase   float64
}

// Block is one transformer layer's attention sublayer.
type Block struct {
	Config

	QProj, KProj, VProj, OProj *bitlinear.Layer

	// SubNorm is applied to the attention output before OProj when the
	// layer binds a "sub_norm" weight; nil otherwise.
	SubNorm *bitlinear.Layer
}

// Forward runs projection, RoPE, cache append, scaled-dot-product
// attention and output projection for n new tokens against a cache
// holding P prior tokens. It does NOT advance cache.SeqLen; the caller
// advances every layer's cache together after the full model forward
// completes (spec.md §4.9, §5).
func (b *Block) Forward(input []float32, n int, cache *kvcache.Cache) []float32 {
	h := b.NumHeads * b.HeadDim
	kvWidth := b.NumKVHeads * b.HeadDim

	q := b.QProj.Forward(input, n)
	k := b.KProj.Forward(input, n)
	v := b.VProj.Forward(input, n)

	p := cache.SeqLen
	applyRope(q, n, b.NumHeads, b.HeadDim, p, b.RopeBase)
	applyRope(k, n, b.NumKVHeads, b.HeadDim, p, b.RopeBase)

	cache.Append(k, v, p, n)

	group := b.NumHeads / b.NumKVHeads
	total := p + n
	y := make([]float32, n*h)

	scale := 1 / math.Sqrt(float64(b.HeadDim))
	scores := make([]float64, total)

	for head := 0; head < b.NumHeads; head++ {
		kvHead := head / group
		for row := 0; row < n; row++ {
			qVec := q[row*h+head*b.HeadDim : row*h+(head+1)*b.HeadDim]

			maxScore := math.Inf(-1)
			absPos := p + row
			for t := 0; t < total; t++ {
				if t > absPos {
					scores[t] = math.Inf(-1)
					continue
				}
				kVec := cache.K[t*kvWidth+kvHead*b.HeadDim : t*kvWidth+(kvHead+1)*b.HeadDim]
				var dot float64
				for d := 0; d < b.HeadDim; d++ {
					dot += float64(qVec[d]) * float64(kVec[d])
				}
				s := dot * scale
				scores[t] = s
				if s > maxScore {
					maxScore = s
				}
			}

			var sum float64
			for t := 0; t < total; t++ {
				if math.IsInf(scores[t], -1) {
					scores[t] = 0
					continue
				}
				e := math.Exp(scores[t] - maxScore)
				scores[t] = e
				sum += e
			}

			out := y[row*h+head*b.HeadDim : row*h+(head+1)*b.HeadDim]
			for t := 0; t < total; t++ {
				weight := scores[t] / sum
				if weight == 0 {
					continue
				}
				vVec := cache.V[t*kvWidth+kvHead*b.HeadDim : t*kvWidth+(kvHead+1)*b.HeadDim]
				for d := 0; d < b.HeadDim; d++ {
					out[d] += float32(weight) * vVec[d]
				}
			}
		}
	}

	if b.SubNorm != nil {
		y = bitlinear.RMSNorm(y, n, h, b.SubNorm.NormWeight, b.SubNorm.NormEps)
	}
	return b.OProj.Forward(y, n)
}

// applyRope rotates each (2j, 2j+1) dimension pair of every head in x
// ([n, numHeads*headDim]) by the angle p,j = (p+row)*base^(-2j/headDim).
func applyRope(x []float32, n, numHeads, headDim int, p int, base float64) {
	half := headDim / 2
	width := numHeads * headDim
	for row := 0; row < n; row++ {
		pos := float64(p + row)
		for head := 0; head < numHeads; head++ {
			vec := x[row*width+head*headDim : row*width+(head+1)*headDim]
			for j := 0; j < half; j++ {
				theta := pos * math.Pow(base, -2*float64(j)/float64(headDim))
				cos, sin := math.Cos(theta), math.Sin(theta)
				a, bb := vec[2*j], vec[2*j+1]
				vec[2*j] = a*float32(cos) - bb*float32(sin)
				vec[2*j+1] = a*float32(sin) + bb*float32(cos)
			}
		}
	}
}
