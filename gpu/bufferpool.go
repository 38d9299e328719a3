// Package gpu - Buffer-Pool (C5)
//
// Weist GPU-Puffer in auf Alignment gerundeten Groessenklassen zu und
// recycelt freigegebene Puffer passender Groesse, statt bei jedem
// Forward-Call neu zu allokieren (spec.md §4.4). Kein Build-Tag: die
// Pool-Buchhaltung ist reines Go, nur Device.NewBuffer dahinter ist
// Backend-spezifisch.
package gpu

import "sync"

const defaultAlignment = 256

// BufferPool hands out GPU buffers rounded up to a fixed alignment and
// keeps released buffers around for reuse by later requests of the same
// rounded size.
type BufferPool struct {
	device    *Device
	alignment uint64

	mu   sync.Mutex
	free map[uint64][]*Buffer
}

// NewBufferPool builds a pool backed by device. alignment <= 0 uses the
// default of 256 bytes.
func NewBufferPool(device *Device, alignment uint64) *BufferPool {
	if alignment == 0 {
		alignment = defaultAlignment
	}
	return &BufferPool{
		device:    device,
		alignment: alignment,
		free:      make(map[uint64][]*Buffer),
	}
}

// roundUp rounds size up to the pool's alignment, with a 4-byte floor so
// a zero-length request still gets an addressable buffer.
func (p *BufferPool) roundUp(size uint64) uint64 {
	if size < 4 {
		size = 4
	}
	if rem := size % p.alignment; rem != 0 {
		size += p.alignment - rem
	}
	return size
}

// Acquire returns a buffer of at least size bytes (rounded up to the
// pool's alignment), reusing a released buffer of the same rounded size
// when one is available.
func (p *BufferPool) Acquire(size uint64, usage BufferUsage) (*Buffer, error) {
	rounded := p.roundUp(size)

	p.mu.Lock()
	if bucket := p.free[rounded]; len(bucket) > 0 {
		b := bucket[len(bucket)-1]
		p.free[rounded] = bucket[:len(bucket)-1]
		p.mu.Unlock()
		return b, nil
	}
	p.mu.Unlock()

	return p.device.NewBuffer(rounded, usage)
}

// Release returns b to the pool for reuse by a future Acquire of the
// same rounded size. Callers must not use b again until it is
// re-acquired.
func (p *BufferPool) Release(b *Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	size := b.Size()
	p.free[size] = append(p.free[size], b)
}

// Drain releases every pooled buffer back to the device and clears the
// pool.
func (p *BufferPool) Drain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for size, bucket := range p.free {
		for _, b := range bucket {
			b.Release()
		}
		delete(p.free, size)
	}
}
