package weights

import "testing"

func TestShardBoundsFitsInOneWindow(t *testing.T) {
	bounds := shardBounds(100, 256)
	if len(bounds) != 1 || bounds[0] != [2]uint64{0, 100} {
		t.Fatalf("expected single window, got %v", bounds)
	}
}

func TestShardBoundsZeroLimitIsOneWindow(t *testing.T) {
	bounds := shardBounds(100, 0)
	if len(bounds) != 1 || bounds[0] != [2]uint64{0, 100} {
		t.Fatalf("expected single window for maxBindingSize=0, got %v", bounds)
	}
}

func TestShardBoundsSplitsOnExactMultiple(t *testing.T) {
	bounds := shardBounds(300, 100)
	want := [][2]uint64{{0, 100}, {100, 200}, {200, 300}}
	if len(bounds) != len(want) {
		t.Fatalf("expected %d shards, got %d: %v", len(want), len(bounds), bounds)
	}
	for i := range want {
		if bounds[i] != want[i] {
			t.Errorf("shard %d: got %v want %v", i, bounds[i], want[i])
		}
	}
}

func TestShardBoundsTrailingPartial(t *testing.T) {
	bounds := shardBounds(250, 100)
	want := [][2]uint64{{0, 100}, {100, 200}, {200, 250}}
	if len(bounds) != len(want) {
		t.Fatalf("expected %d shards, got %d: %v", len(want), len(bounds), bounds)
	}
	for i := range want {
		if bounds[i] != want[i] {
			t.Errorf("shard %d: got %v want %v", i, bounds[i], want[i])
		}
	}
}

func TestStoreGetMissingIsMissing(t *testing.T) {
	s := New(nil)
	if _, ok := s.Get("model.norm.weight"); ok {
		t.Fatalf("expected missing tensor to report absent")
	}
	if s.Has("model.norm.weight") {
		t.Fatalf("expected Has to report false for an unuploaded name")
	}
}

func TestStoreMustGetWrapsMissingWeight(t *testing.T) {
	s := New(nil)
	_, err := s.MustGet("lm_head.weight")
	if err == nil {
		t.Fatalf("expected an error for a missing weight")
	}
}
