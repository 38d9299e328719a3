// Package sample - Logit-Sampler (C11)
//
// Reiner Go-Code ohne GPU-Abhaengigkeit: Repetition-Penalty, Temperatur-
// Skalierung, Top-K per O(V)-Min-Heap, numerisch stabiler Softmax,
// Inverse-CDF-Sampling. Gegrounded AUSSCHLIESSLICH auf original_source's
// sampling.rs (sample_token) — nicht auf llama/llama_sampling.go des
// Lehrer-Repos, da jenes via cgo gegen llama.cpp dispatcht und diese
// Spezifikation reines Go verlangt.
package sample

import (
	"container/heap"
	"math"
	"math/rand/v2"
)

// Options configures one sampling call (spec.md §4.10, §6 defaults).
type Options struct {
	Temperature   float32
	TopK          int
	RepeatPenalty float32
	RecentTokens  []int32
}

// DefaultOptions matches spec.md §6's stated defaults.
func DefaultOptions() Options {
	return Options{
		Temperature:   1.0,
		TopK:          50,
		RepeatPenalty: 1.0,
	}
}

// Sample mutates logits in place (penalty, temperature, top-k masking,
// softmax) and returns the sampled token id. It never fails: degenerate
// distributions (all-zero sum) fall through to the last index (spec.md
// §4.12).
func Sample(logits []float32, opts Options) int32 {
	applyRepeatPenalty(logits, opts.RepeatPenalty, opts.RecentTokens)
	applyTemperature(logits, opts.Temperature)
	applyTopK(logits, opts.TopK)
	return softmaxSample(logits)
}

func applyRepeatPenalty(logits []float32, penalty float32, recent []int32) {
	if penalty == 1.0 || len(recent) == 0 {
		return
	}
	for _, id := range recent {
		idx := int(id)
		if idx < 0 || idx >= len(logits) {
			continue
		}
		if logits[idx] > 0 {
			logits[idx] /= penalty
		} else {
			logits[idx] *= penalty
		}
	}
}

func applyTemperature(logits []float32, temperature float32) {
	if temperature == 1.0 {
		return
	}
	invTemp := 1 / temperature
	for i := range logits {
		logits[i] *= invTemp
	}
}

// applyTopK retains the k largest logits (ties broken by lower index
// kept, matching the min-heap's natural preference for the earliest-seen
// value on equal comparisons) and sets every other logit to -Inf.
func applyTopK(logits []float32, k int) {
	v := len(logits)
	if k <= 0 || k >= v {
		return
	}

	h := make(topKHeap, k)
	for i := range h {
		h[i] = i
	}
	ih := &indexedHeap{h, logits}
	heap.Init(ih)

	for i := k; i < v; i++ {
		if logits[i] > logits[h[0]] {
			h[0] = i
			heap.Fix(ih, 0)
		}
	}

	keep := make(map[int]struct{}, k)
	for _, idx := range h {
		keep[idx] = struct{}{}
	}
	for i := range logits {
		if _, ok := keep[i]; !ok {
			logits[i] = float32(math.Inf(-1))
		}
	}
}

func softmaxSample(logits []float32) int32 {
	maxVal := float32(math.Inf(-1))
	for _, v := range logits {
		if v > maxVal {
			maxVal = v
		}
	}

	var sum float32
	for i, v := range logits {
		e := float32(math.Exp(float64(v - maxVal)))
		logits[i] = e
		sum += e
	}

	if sum == 0 {
		return int32(len(logits) - 1)
	}

	r := rand.Float32() * sum
	var cumsum float32
	for i, v := range logits {
		cumsum += v
		if cumsum >= r {
			return int32(i)
		}
	}
	return int32(len(logits) - 1)
}

// topKHeap holds indices into the logits slice being ranked.
type topKHeap []int

// indexedHeap implements heap.Interface over topKHeap, ordering by the
// referenced logit value (min-heap: smallest logit at the root, so a
// larger incoming value evicts it).
type indexedHeap struct {
	idx    topKHeap
	logits []float32
}

func (h *indexedHeap) Len() int { return len(h.idx) }
func (h *indexedHeap) Less(i, j int) bool {
	return h.logits[h.idx[i]] < h.logits[h.idx[j]]
}
func (h *indexedHeap) Swap(i, j int) { h.idx[i], h.idx[j] = h.idx[j], h.idx[i] }
func (h *indexedHeap) Push(x any)    { h.idx = append(h.idx, x.(int)) }
func (h *indexedHeap) Pop() any {
	old := h.idx
	n := len(old)
	v := old[n-1]
	h.idx = old[:n-1]
	return v
}
