// Package weights - Gewichts-Speicher (C2)
//
// Haelt jedes hochgeladene Tensor-Buffer unter seinem kanonischen Namen
// fest. Upload ist dumm: kein Remapping, kein Scale-Synthese, das macht
// der Loader (model-Paket) davor. Gegrounded auf ml/backend/ggml/
// backend.go's tensors-Map-Muster im Lehrer-Repo und auf original_
// source's WeightStore (src/model/weights.rs) fuer den genauen Upload/
// Shard-Vertrag.
package weights

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ollama/bitnet/bnerrors"
	"github.com/ollama/bitnet/config"
	"github.com/ollama/bitnet/gpu"
)

// Store maps canonical tensor names to device-resident buffers.
type Store struct {
	device *gpu.Device

	mu      sync.RWMutex
	buffers map[string]*gpu.Buffer
}

// New builds an empty Store backed by device.
func New(device *gpu.Device) *Store {
	return &Store{
		device:  device,
		buffers: make(map[string]*gpu.Buffer),
	}
}

// Upload creates a storage buffer sized max(len(data), 4) bytes, writes
// data into it and records it under name. A second Upload under the
// same name replaces the previous binding; it does not release the old
// buffer, since callers that reuse the pool's backing buffers manage
// their own lifetime.
func (s *Store) Upload(name string, data []byte) error {
	size := uint64(len(data))
	if size < 4 {
		size = 4
	}

	buf, err := s.device.NewBuffer(size, gpu.UsageStorage|gpu.UsageCopyDst)
	if err != nil {
		return fmt.Errorf("weights: upload %q: %w", name, err)
	}
	if err := s.device.WriteBuffer(buf, 0, data); err != nil {
		return fmt.Errorf("weights: upload %q: %w", name, err)
	}

	s.mu.Lock()
	s.buffers[name] = buf
	s.mu.Unlock()
	return nil
}

// UploadSharded splits data into successive shards no larger than
// maxBindingSize bytes, uploads each under "name.shard_{k}" concurrently
// (at most config.UploadConcurrency() at a time; each shard is an
// independent NewBuffer+WriteBuffer round trip, so nothing else
// serializes them but the device's own internal locking), and
// aliases shard 0 under the unsharded name so callers that don't need
// sharding never have to know it happened.
func (s *Store) UploadSharded(name string, data []byte, maxBindingSize uint64) error {
	bounds := shardBounds(uint64(len(data)), maxBindingSize)
	if len(bounds) == 1 {
		return s.Upload(name, data)
	}

	var g errgroup.Group
	g.SetLimit(config.UploadConcurrency())
	for k, b := range bounds {
		k, b := k, b
		g.Go(func() error {
			shardName := fmt.Sprintf("%s.shard_%d", name, k)
			return s.Upload(shardName, data[b[0]:b[1]])
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	shard0, _ := s.Get(fmt.Sprintf("%s.shard_%d", name, 0))
	s.mu.Lock()
	s.buffers[name] = shard0
	s.mu.Unlock()
	return nil
}

// shardBounds splits [0, total) into consecutive [start, end) windows
// no larger than maxBindingSize. A maxBindingSize of 0 or a total that
// already fits yields a single window spanning the whole range.
func shardBounds(total, maxBindingSize uint64) [][2]uint64 {
	if maxBindingSize == 0 || total <= maxBindingSize {
		return [][2]uint64{{0, total}}
	}

	var bounds [][2]uint64
	for off := uint64(0); off < total; {
		end := off + maxBindingSize
		if end > total {
			end = total
		}
		bounds = append(bounds, [2]uint64{off, end})
		off = end
	}
	return bounds
}

// Get returns the buffer registered under name, or false if none exists.
// It never synthesizes a placeholder.
func (s *Store) Get(name string) (*gpu.Buffer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buffers[name]
	return b, ok
}

// MustGet is Get, but returns bnerrors.MissingWeight(name) instead of a
// boolean, for callers that treat a missing weight as fatal.
func (s *Store) MustGet(name string) (*gpu.Buffer, error) {
	b, ok := s.Get(name)
	if !ok {
		return nil, bnerrors.MissingWeight(name)
	}
	return b, nil
}

// Has reports whether name has been uploaded.
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buffers[name]
	return ok
}

// Names returns every registered logical name, for diagnostics.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.buffers))
	for name := range s.buffers {
		names = append(names, name)
	}
	return names
}
