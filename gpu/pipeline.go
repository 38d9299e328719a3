// Package gpu - Pipeline-Cache (C4)
//
// Kompilierte Compute-Pipelines sind teuer; der Cache haelt sie ueber die
// Lebensdauer eines Device am Schluessel (logischer Name, Entry-Point,
// Spezialisierungskonstanten) fest, sodass ein wiederholter Forward-Call
// nie neu kompiliert (spec.md §4.4). Kein Build-Tag: die Cache-Logik ist
// reines Go, nur Device.CompilePipeline dahinter ist Backend-spezifisch.
package gpu

import (
	"encoding/json"
	"fmt"
	"sync"
)

// PipelineKey identifies one specialization of a compiled shader.
type PipelineKey struct {
	Name           string
	EntryPoint     string
	Specialization map[string]uint32
}

func (k PipelineKey) cacheKey() string {
	spec, _ := json.Marshal(k.Specialization)
	return fmt.Sprintf("%s/%s/%s", k.Name, k.EntryPoint, spec)
}

// PipelineCache memoizes compiled pipelines per Device so that repeated
// dispatches of the same kernel across decode steps never recompile.
type PipelineCache struct {
	device *Device
	source func(name string, specialization map[string]uint32) (string, error)

	mu    sync.Mutex
	cache map[string]*Pipeline
}

// NewPipelineCache builds a cache backed by device, using source to
// render WGSL text for a logical shader name plus its specialization
// constants on first use.
func NewPipelineCache(device *Device, source func(name string, specialization map[string]uint32) (string, error)) *PipelineCache {
	return &PipelineCache{
		device: device,
		source: source,
		cache:  make(map[string]*Pipeline),
	}
}

// Get returns the pipeline for key, compiling and caching it on miss.
func (c *PipelineCache) Get(key PipelineKey) (*Pipeline, error) {
	ck := key.cacheKey()

	c.mu.Lock()
	if p, ok := c.cache[ck]; ok {
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	src, err := c.source(key.Name, key.Specialization)
	if err != nil {
		return nil, fmt.Errorf("gpu: render shader %q: %w", key.Name, err)
	}

	p, err := c.device.CompilePipeline(src, key.EntryPoint)
	if err != nil {
		return nil, fmt.Errorf("gpu: compile pipeline %q: %w", key.Name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.cache[ck]; ok {
		return existing, nil
	}
	c.cache[ck] = p
	return p, nil
}

// Len reports how many distinct pipelines are currently cached, mostly
// useful for tests and diagnostics.
func (c *PipelineCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}
