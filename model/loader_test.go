package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/ollama/bitnet/fs/gguf"
)

// buildI2STensor turns already-packed ternary bytes (2 bits per value,
// 4 values per byte, in the fixed 2-bit mapping) into a raw I2_S byte
// blob by appending a trailing 32-byte scale block whose first 4 bytes
// hold scale.
func buildI2STensor(packed []byte, scale float32, shape []uint64) (*gguf.Tensor, []byte) {
	block := make([]byte, 32)
	binary.LittleEndian.PutUint32(block, math.Float32bits(scale))

	raw := append(append([]byte{}, packed...), block...)
	return &gguf.Tensor{
		Name:  "blk.0.attn_q.weight",
		Kind:  gguf.TensorTypeI2S,
		Shape: shape,
	}, raw
}

func TestDecodeTensorExtractsI2SScaleAndOutDim(t *testing.T) {
	// 8 elements -> packedLen = 2 bytes; shape [4, 2] means outDim = 2.
	tensor, raw := buildI2STensor([]byte{0xE4, 0xE4}, 0.5, []uint64{4, 2})

	got, err := decodeTensor(tensor, raw, 0, nil)
	if err != nil {
		t.Fatalf("decodeTensor: %v", err)
	}
	if got.tensorScale != 0.5 {
		t.Errorf("tensorScale = %v, want 0.5", got.tensorScale)
	}
	if got.outDim != 2 {
		t.Errorf("outDim = %d, want 2", got.outDim)
	}
	want := []int8{0, 1, -1, 0, 0, 1, -1, 0}
	if len(got.ternary) != len(want) {
		t.Fatalf("ternary length = %d, want %d", len(got.ternary), len(want))
	}
	for i := range want {
		if got.ternary[i] != want[i] {
			t.Errorf("ternary[%d] = %d, want %d", i, got.ternary[i], want[i])
		}
	}
}

func TestSynthesizeI2SScalesBroadcastsTrailingScale(t *testing.T) {
	named := map[string]*loadedTensor{
		"model.layers.0.self_attn.q_proj.weight": {
			ternary:     []int8{0, 1, -1, 0},
			tensorScale: 0.25,
			outDim:      3,
		},
	}

	synthesizeI2SScales(named)

	scale, ok := named["model.layers.0.self_attn.q_proj.weight_scale"]
	if !ok {
		t.Fatalf("expected a synthesized weight_scale entry")
	}
	want := []float32{0.25, 0.25, 0.25}
	if len(scale.f32) != len(want) {
		t.Fatalf("scale length = %d, want %d", len(scale.f32), len(want))
	}
	for i := range want {
		if scale.f32[i] != want[i] {
			t.Errorf("scale[%d] = %v, want %v", i, scale.f32[i], want[i])
		}
	}
}

func TestSynthesizeI2SScalesDoesNotOverwriteExplicitScale(t *testing.T) {
	explicit := []float32{9, 9, 9}
	named := map[string]*loadedTensor{
		"model.layers.0.self_attn.q_proj.weight": {
			ternary:     []int8{0, 1, -1, 0},
			tensorScale: 0.25,
			outDim:      3,
		},
		"model.layers.0.self_attn.q_proj.weight_scale": {f32: explicit},
	}

	synthesizeI2SScales(named)

	got := named["model.layers.0.self_attn.q_proj.weight_scale"].f32
	if len(got) != 3 || got[0] != 9 {
		t.Fatalf("expected the explicit weight_scale entry to survive untouched, got %v", got)
	}
}

func TestRemapNameTopLevelAliases(t *testing.T) {
	cases := map[string]string{
		"token_embd.weight":  "model.embed_tokens.weight",
		"output_norm.weight": "model.norm.weight",
		"output.weight":      "lm_head.weight",
	}
	for in, want := range cases {
		if got := remapName(in); got != want {
			t.Errorf("remapName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRemapNameBlockComponents(t *testing.T) {
	cases := map[string]string{
		"blk.0.attn_q.weight":       "model.layers.0.self_attn.q_proj.weight",
		"blk.12.attn_output.weight": "model.layers.12.self_attn.o_proj.weight",
		"blk.3.ffn_gate.weight":     "model.layers.3.mlp.gate_proj.weight",
		"blk.3.ffn_sub_norm.weight": "model.layers.3.mlp.sub_norm.weight",
	}
	for in, want := range cases {
		if got := remapName(in); got != want {
			t.Errorf("remapName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRemapNameUnknownComponentPassesThroughUnderLayerPrefix(t *testing.T) {
	got := remapName("blk.2.some_future_tensor.weight")
	want := "model.layers.2.some_future_tensor.weight"
	if got != want {
		t.Errorf("remapName = %q, want %q", got, want)
	}
}

func TestRemapNameFuzzyMatchesNearMissComponent(t *testing.T) {
	// "attn-output.weight" (hyphen instead of underscore) is a 1-edit
	// variant of the known "attn_output.weight" alias.
	got := remapName("blk.5.attn-output.weight")
	want := "model.layers.5.self_attn.o_proj.weight"
	if got != want {
		t.Errorf("remapName = %q, want %q", got, want)
	}
}

func TestRemapNameNonBlockPrefixUnchanged(t *testing.T) {
	got := remapName("general.architecture")
	if got != "general.architecture" {
		t.Errorf("remapName changed a non-tensor name: %q", got)
	}
}
