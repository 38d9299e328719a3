// Package model - Loader (C13)
//
// Treibt C1 (fs/gguf) und C2 (nn/weights) an: remapt Container-Namen auf
// das kanonische Schema, dekodiert pro Tensortyp, synthetisiert fehlende
// weight_scale-Tensoren und erkennt tied embeddings. Gegrounded auf
// original_source's loader.rs (load_gguf) fuer die Namens- und Scale-
// Regeln und auf das Lehrer-Repos Registrierungsmuster (model/model.go)
// fuer den Aufbau-Ablauf.
package model

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"

	"github.com/ollama/bitnet/bnerrors"
	"github.com/ollama/bitnet/fs/gguf"
	"github.com/ollama/bitnet/gpu"
	"github.com/ollama/bitnet/kvcache"
	"github.com/ollama/bitnet/nn/attention"
	"github.com/ollama/bitnet/nn/bitlinear"
	"github.com/ollama/bitnet/nn/ffn"
	"github.com/ollama/bitnet/nn/transformer"
	"github.com/ollama/bitnet/nn/weights"
)

// Load builds a Model from a decoded GGUF file plus its raw tensor-data
// byte slice, using store to keep the device-resident copy of each
// uploaded tensor alive for the session (spec.md §4.3). runtime, when
// non-nil, routes every ternary tensor's 2-bit-to-f32 dequantization
// through a real GPU compute dispatch (spec.md §4.4) instead of the
// host loop; it is nil whenever no GPU runtime could be constructed
// (e.g. the stub build), in which case the host path is authoritative.
func Load(f *gguf.File, data []byte, cfg Config, store *weights.Store, runtime *gpu.Runtime) (*Model, error) {
	tensors := f.Tensors()

	named := make(map[string]*loadedTensor)
	for _, t := range tensors.Items {
		decoded, err := decodeTensor(t, data, tensors.Offset, runtime)
		if err != nil {
			return nil, fmt.Errorf("model: decode tensor %q: %w", t.Name, err)
		}
		name := remapName(t.Name)
		named[name] = decoded

		if store != nil {
			if err := store.Upload(name, decoded.raw); err != nil {
				return nil, err
			}
		}
	}

	synthesizeI2SScales(named)

	tiedEmbedding := named["output.weight"] == nil && named["lm_head.weight"] == nil
	cfg.TiedEmbedding = tiedEmbedding

	m := &Model{Config: cfg}

	embed, err := requireF32(named, "model.embed_tokens.weight")
	if err != nil {
		return nil, err
	}
	m.EmbedTokens = embed

	m.FinalNorm, err = requireF32(named, "model.norm.weight")
	if err != nil {
		return nil, err
	}

	for i := 0; i < cfg.NumLayers; i++ {
		block, err := loadLayer(named, cfg, i)
		if err != nil {
			return nil, err
		}
		m.Layers = append(m.Layers, block)
		m.Caches = append(m.Caches, kvcache.New(cfg.NumKVHeads, cfg.HeadDim, cfg.MaxContext))
	}

	if !tiedEmbedding {
		lmHead, err := buildBitLinear(named, "lm_head", cfg.HiddenSize, cfg.VocabSize, nil, 0)
		if err != nil {
			return nil, err
		}
		m.LMHead = lmHead
	}

	return m, nil
}

func loadLayer(named map[string]*loadedTensor, cfg Config, i int) (*transformer.Block, error) {
	prefix := fmt.Sprintf("model.layers.%d", i)

	inputNorm, err := requireF32(named, prefix+".input_layernorm.weight")
	if err != nil {
		return nil, err
	}
	postNorm, err := requireF32(named, prefix+".post_attention_layernorm.weight")
	if err != nil {
		return nil, err
	}

	q, err := buildBitLinear(named, prefix+".self_attn.q_proj", cfg.HiddenSize, cfg.NumHeads*cfg.HeadDim, nil, 0)
	if err != nil {
		return nil, err
	}
	k, err := buildBitLinear(named, prefix+".self_attn.k_proj", cfg.HiddenSize, cfg.NumKVHeads*cfg.HeadDim, nil, 0)
	if err != nil {
		return nil, err
	}
	v, err := buildBitLinear(named, prefix+".self_attn.v_proj", cfg.HiddenSize, cfg.NumKVHeads*cfg.HeadDim, nil, 0)
	if err != nil {
		return nil, err
	}
	o, err := buildBitLinear(named, prefix+".self_attn.o_proj", cfg.NumHeads*cfg.HeadDim, cfg.HiddenSize, nil, 0)
	if err != nil {
		return nil, err
	}

	var attnSubNorm *bitlinear.Layer
	if sn, ok := named[prefix+".self_attn.sub_norm.weight"]; ok {
		attnSubNorm = &bitlinear.Layer{NormWeight: sn.f32, NormEps: cfg.RMSEpsilon}
	}

	up, err := buildBitLinear(named, prefix+".mlp.up_proj", cfg.HiddenSize, cfg.IntermediateSize, nil, 0)
	if err != nil {
		return nil, err
	}
	var gate *bitlinear.Layer
	if _, ok := named[prefix+".mlp.gate_proj.weight"]; ok {
		gate, err = buildBitLinear(named, prefix+".mlp.gate_proj", cfg.HiddenSize, cfg.IntermediateSize, nil, 0)
		if err != nil {
			return nil, err
		}
	}

	var downSubNorm []float32
	var downSubNormEps float32
	if sn, ok := named[prefix+".mlp.sub_norm.weight"]; ok {
		downSubNorm = sn.f32
		downSubNormEps = cfg.RMSEpsilon
	}
	down, err := buildBitLinear(named, prefix+".mlp.down_proj", cfg.IntermediateSize, cfg.HiddenSize, downSubNorm, downSubNormEps)
	if err != nil {
		return nil, err
	}

	return &transformer.Block{
		HiddenSize:             cfg.HiddenSize,
		InputLayerNorm:         inputNorm,
		PostAttentionLayerNorm: postNorm,
		LayerNormEpsilon:       cfg.RMSEpsilon,
		Attention: &attention.Block{
			Config: attention.Config{
				NumHeads:   cfg.NumHeads,
				NumKVHeads: cfg.NumKVHeads,
				HeadDim:    cfg.HeadDim,
				RopeBase:   cfg.RopeBase,
			},
			QProj: q, KProj: k, VProj: v, OProj: o,
			SubNorm: attnSubNorm,
		},
		FFN: &ffn.Block{
			Activation: cfg.Activation,
			Up:         up,
			Gate:       gate,
			Down:       down,
		},
	}, nil
}

// synthesizeI2SScales registers a "<name>.weight_scale" entry for every
// ternary tensor's trailing per-tensor f32 scale, broadcast across its
// output dimension, unless the container already provides one
// explicitly (spec.md §4.3, original_source's loader.rs: "extract
// per-tensor scale" / "create_dummy_scales" only fills in what's
// genuinely still missing).
func synthesizeI2SScales(named map[string]*loadedTensor) {
	for name, t := range named {
		if t.ternary == nil {
			continue
		}
		scaleName := strings.Replace(name, ".weight", ".weight_scale", 1)
		if _, ok := named[scaleName]; ok {
			continue
		}
		named[scaleName] = &loadedTensor{f32: broadcastScale([]float32{t.tensorScale}, t.outDim)}
	}
}

// buildBitLinear assembles a BitLinear layer from the ternary weight and
// weight_scale tensors under the given prefix, synthesizing an all-ones
// scale if weight_scale is missing (spec.md §4.3).
func buildBitLinear(named map[string]*loadedTensor, prefix string, in, out int, normWeight []float32, normEps float32) (*bitlinear.Layer, error) {
	w, ok := named[prefix+".weight"]
	if !ok {
		return nil, bnerrors.MissingWeight(prefix + ".weight")
	}
	if w.ternary == nil {
		return nil, fmt.Errorf("model: %s.weight is not a ternary tensor", prefix)
	}

	scale := make([]float32, out)
	if s, ok := named[prefix+".weight_scale"]; ok {
		copy(scale, broadcastScale(s.f32, out))
	} else {
		for i := range scale {
			scale[i] = 1
		}
	}

	return &bitlinear.Layer{
		In: in, Out: out,
		Weight:      w.ternary,
		WeightScale: scale,
		NormWeight:  normWeight,
		NormEps:     normEps,
	}, nil
}

// broadcastScale expands a single per-tensor scale to length n, or
// returns s unchanged if it's already per-row.
func broadcastScale(s []float32, n int) []float32 {
	if len(s) == n {
		return s
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = s[0]
	}
	return out
}

func requireF32(named map[string]*loadedTensor, name string) ([]float32, error) {
	t, ok := named[name]
	if !ok {
		return nil, bnerrors.MissingWeight(name)
	}
	return t.f32, nil
}

// loadedTensor holds a container tensor decoded to a host-usable form:
// f32 for norms/embeddings/scales, ternary int8 for BitLinear weights,
// plus the raw upload bytes handed to the weight store. tensorScale and
// outDim are only populated for I2_S tensors, carrying the trailing
// per-tensor f32 scale and the dimension it broadcasts across so Load
// can synthesize the ".weight_scale" entry buildBitLinear expects.
type loadedTensor struct {
	raw     []byte
	f32     []float32
	ternary []int8

	tensorScale float32
	outDim      int
}

// decodeTernaryValues unpacks packed 2-bit ternary codes into n signed
// int8 values. When runtime is non-nil the unpacking runs as a GPU
// compute dispatch (gpu.Runtime.DequantizeTernary) through the pipeline
// cache and buffer pool; the shader only ever emits the exact values
// 0, 1 or -1, so narrowing its f32 output back to int8 is lossless.
// runtime is nil outside a real wgpu build, in which case the host
// loop in bitlinear.DecodeTernary is authoritative.
func decodeTernaryValues(packed []byte, n int, runtime *gpu.Runtime) ([]int8, error) {
	if runtime == nil {
		return bitlinear.DecodeTernary(packed, n), nil
	}

	dequantized, err := runtime.DequantizeTernary(packed, n)
	if err != nil {
		return nil, fmt.Errorf("gpu dequantize: %w", err)
	}
	out := make([]int8, n)
	for i, v := range dequantized {
		out[i] = int8(v)
	}
	return out, nil
}

func decodeTensor(t *gguf.Tensor, data []byte, base uint64, runtime *gpu.Runtime) (*loadedTensor, error) {
	off := base + t.Offset
	size := t.Size()
	if off+size > uint64(len(data)) {
		return nil, fmt.Errorf("tensor %q extends past tensor-data region", t.Name)
	}
	raw := data[off : off+size]

	switch {
	case t.Kind.IsTernary():
		numel := t.Elements()
		packedLen := (numel + 3) / 4
		ternary, err := decodeTernaryValues(raw[:packedLen], int(numel), runtime)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", t.Name, err)
		}

		// t.Size() (fs/gguf/tensor.go) always reserves the full 32-byte
		// scale block beyond packedLen, so raw is guaranteed long enough
		// here once the bounds check above has passed.
		scaleBits := binary.LittleEndian.Uint32(raw[packedLen : packedLen+4])
		tensorScale := math.Float32frombits(scaleBits)

		outDim := 1
		if len(t.Shape) > 1 {
			outDim = int(t.Shape[1])
		}

		return &loadedTensor{raw: raw, ternary: ternary, tensorScale: tensorScale, outDim: outDim}, nil

	case t.Kind == gguf.TensorTypeF16:
		numel := t.Elements()
		f32 := make([]float32, numel)
		for i := range f32 {
			bits := uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
			f32[i] = float16.Frombits(bits).Float32()
		}
		return &loadedTensor{raw: raw, f32: f32}, nil

	case t.Kind == gguf.TensorTypeF32:
		numel := t.Elements()
		f32 := make([]float32, numel)
		for i := range f32 {
			bits := binary.LittleEndian.Uint32(raw[4*i:])
			f32[i] = math.Float32frombits(bits)
		}
		return &loadedTensor{raw: raw, f32: f32}, nil

	case t.Kind == gguf.TensorTypeBF16:
		f32 := bfloat16.DecodeFloat32(raw)
		return &loadedTensor{raw: raw, f32: f32}, nil

	default:
		return nil, fmt.Errorf("%w: %s", bnerrors.ErrUnsupportedTyp, t.Kind)
	}
}

// topLevelAliases maps llama.cpp-style GGUF export names to the
// canonical top-level tensor names spec.md §3 defines.
var topLevelAliases = map[string]string{
	"token_embd.weight":  "model.embed_tokens.weight",
	"output_norm.weight": "model.norm.weight",
	"output.weight":      "lm_head.weight",
}

// blockComponentAliases maps the component suffix of a "blk.{i}."
// tensor name to its canonical per-layer suffix.
var blockComponentAliases = map[string]string{
	"attn_q.weight":        "self_attn.q_proj.weight",
	"attn_k.weight":        "self_attn.k_proj.weight",
	"attn_v.weight":        "self_attn.v_proj.weight",
	"attn_output.weight":   "self_attn.o_proj.weight",
	"attn_norm.weight":     "input_layernorm.weight",
	"ffn_norm.weight":      "post_attention_layernorm.weight",
	"attn_sub_norm.weight": "self_attn.sub_norm.weight",
	"ffn_sub_norm.weight":  "mlp.sub_norm.weight",
	"ffn_up.weight":        "mlp.up_proj.weight",
	"ffn_down.weight":      "mlp.down_proj.weight",
	"ffn_gate.weight":      "mlp.gate_proj.weight",
}

// remapName maps a container-native tensor name onto the canonical
// schema spec.md §3 defines, following the same llama.cpp "blk.{i}."
// export convention original_source's loader.rs (remap_gguf_name)
// normalizes. Component suffixes that don't match any known alias
// exactly (a differently-punctuated exporter, e.g. "attn-output.weight")
// fall back to the closest known alias by Levenshtein distance, so a
// near-miss still lands on the right canonical tensor instead of being
// silently dropped as an unrecognized extra.
func remapName(name string) string {
	if canon, ok := topLevelAliases[name]; ok {
		return canon
	}

	rest, ok := strings.CutPrefix(name, "blk.")
	if !ok {
		return name
	}
	dot := strings.IndexByte(rest, '.')
	if dot < 0 {
		return name
	}
	layer := rest[:dot]
	if _, err := strconv.Atoi(layer); err != nil {
		return name
	}
	component := rest[dot+1:]
	prefix := "model.layers." + layer + "."

	if canon, ok := blockComponentAliases[component]; ok {
		return prefix + canon
	}
	if canon, ok := closestBlockAlias(component); ok {
		return prefix + canon
	}
	return prefix + component
}

// closestBlockAlias returns the known block-component alias within
// editDistanceThreshold of component, if any. Used only for exporter
// spelling variants of an otherwise-recognized component name.
const editDistanceThreshold = 3

func closestBlockAlias(component string) (string, bool) {
	best := ""
	bestDist := editDistanceThreshold + 1
	for known, canon := range blockComponentAliases {
		d := levenshtein.ComputeDistance(component, known)
		if d < bestDist {
			bestDist = d
			best = canon
		}
	}
	if bestDist > editDistanceThreshold {
		return "", false
	}
	return best, true
}
