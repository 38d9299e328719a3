// Package kvcache - Konstruktoren und Initialisierung
//
// Dieses Modul enthaelt die Factory-Funktion fuer den Key/Value-Cache
// einer einzelnen Sequenz mit fester Kapazitaet (spec.md §3, §4.6):
// zwei f32-Puffer der Form [C_max, K_h, D] pro Schicht plus ein
// gemeinsamer seq_len-Zaehler. Vereinfacht gegenueber dem urspruenglichen
// Causal-Cache des Lehrer-Repos (Multi-Sequenz, Sliding-Window,
// Chunked-Attention), da dieser Lauf ausschliesslich eine Sequenz ohne
// Fenster-Eviction bedient.
package kvcache

// Cache holds one transformer layer's key/value history for a single
// sequence up to a fixed maximum length.
type Cache struct {
	KVHeads int
	HeadDim int
	MaxLen  int

	// K and V are row-major [MaxLen, KVHeads*HeadDim] buffers.
	K []float32
	V []float32

	// SeqLen is the number of valid rows currently written. It advances
	// for every layer together after a full model forward completes
	// (spec.md §4.9) — individual layers must not bump it mid-forward.
	SeqLen int
}

// New builds an empty cache sized for maxLen tokens.
func New(kvHeads, headDim, maxLen int) *Cache {
	width := kvHeads * headDim
	return &Cache{
		KVHeads: kvHeads,
		HeadDim: headDim,
		MaxLen:  maxLen,
		K:       make([]float32, maxLen*width),
		V:       make([]float32, maxLen*width),
	}
}

// Reset zeros SeqLen without clearing the backing buffers; stale rows
// beyond the new SeqLen are never read because every consumer bounds
// its loop by SeqLen.
func (c *Cache) Reset() {
	c.SeqLen = 0
}
