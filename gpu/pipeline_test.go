package gpu

import "testing"

func TestPipelineKeyCacheKeyDistinguishesSpecialization(t *testing.T) {
	a := PipelineKey{Name: "bitlinear_matmul", EntryPoint: "main", Specialization: map[string]uint32{"TILE": 16}}
	b := PipelineKey{Name: "bitlinear_matmul", EntryPoint: "main", Specialization: map[string]uint32{"TILE": 32}}

	if a.cacheKey() == b.cacheKey() {
		t.Fatalf("expected distinct cache keys for different specialization constants")
	}
}

func TestPipelineKeyCacheKeyStableForEqualSpecialization(t *testing.T) {
	a := PipelineKey{Name: "softmax", EntryPoint: "main", Specialization: map[string]uint32{"N": 8}}
	b := PipelineKey{Name: "softmax", EntryPoint: "main", Specialization: map[string]uint32{"N": 8}}

	if a.cacheKey() != b.cacheKey() {
		t.Fatalf("expected identical cache keys for identical specialization")
	}
}

func TestPipelineCacheGetInvokesSourceOnMiss(t *testing.T) {
	calls := 0
	cache := NewPipelineCache(nil, func(name string, spec map[string]uint32) (string, error) {
		calls++
		return "dummy wgsl for " + name, nil
	})
	// The stub build's Device always fails CompilePipeline, so Get
	// renders the source once and then returns the compile error.
	cache.device = &Device{}

	key := PipelineKey{Name: "rope_apply", EntryPoint: "main"}

	if _, err := cache.Get(key); err == nil {
		t.Fatalf("expected stub device to fail compilation")
	}
	if calls != 1 {
		t.Fatalf("expected source to be invoked once on miss, got %d", calls)
	}
}
