// Package kvcache - Schreiben waehrend des Forward-Durchlaufs
//
// Dieses Modul enthaelt Append, das rotierte K/V-Zeilen an der Position
// offset in den Cache schreibt, ohne seq_len zu veraendern — das
// Voranschreiten des Zaehlers obliegt dem model-Paket nach Abschluss
// aller Schichten eines Forward-Aufrufs (spec.md §4.6, §4.9).
package kvcache

import "fmt"

// Append writes n rows of k and v (each [n, KVHeads*HeadDim]) into the
// cache starting at token offset. It panics if offset+n exceeds MaxLen,
// since that would indicate the caller exceeded the context window the
// cache was built for.
func (c *Cache) Append(k, v []float32, offset, n int) {
	width := c.KVHeads * c.HeadDim
	if offset+n > c.MaxLen {
		panic(fmt.Errorf("kvcache: append would exceed capacity %d at offset %d with %d new tokens", c.MaxLen, offset, n))
	}

	copy(c.K[offset*width:(offset+n)*width], k)
	copy(c.V[offset*width:(offset+n)*width], v)
}
