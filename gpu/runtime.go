// Package gpu - Laufzeit-Buendel (Runtime)
//
// Buendelt ein Device mit dem Pipeline-Cache (C4) und dem Buffer-Pool
// (C5) zu einem einzigen Griff, den der Loader fuer echte Compute-
// Dispatches verwendet, statt die drei Bausteine einzeln zu verdrahten.
// DequantizeTernary ist der erste reale Dispatch: das Entpacken der
// 2-Bit-Ternaer-Codes in dichte f32-Werte ist "embarrassingly parallel"
// (ein Thread pro Element, keine Shared-Memory-Reduktion) und damit der
// risikoaermste Kernel, um Pipeline-Cache, Buffer-Pool und Encoder an
// einen echten Inferenz-Pfad zu binden (spec.md §2, §4.4, §4.5).
package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Runtime bundles a Device with the pipeline cache and buffer pool that
// back its compute dispatches, so callers outside this package never
// have to wire the three together themselves.
type Runtime struct {
	Device    *Device
	Pipelines *PipelineCache
	Buffers   *BufferPool
}

// NewRuntime builds a Runtime backed by device, using the package's
// built-in shader sources for every known PipelineKey.Name.
func NewRuntime(device *Device) *Runtime {
	return &Runtime{
		Device:    device,
		Pipelines: NewPipelineCache(device, shaderSource),
		Buffers:   NewBufferPool(device, 0),
	}
}

const ternaryDequantizeShader = "ternary_dequantize"

// shaderSource renders the WGSL text for a logical shader name. It is
// the PipelineCache's source function for every Runtime.
func shaderSource(name string, _ map[string]uint32) (string, error) {
	switch name {
	case ternaryDequantizeShader:
		return ternaryDequantizeWGSL, nil
	default:
		return "", fmt.Errorf("gpu: unknown shader %q", name)
	}
}

// ternaryDequantizeWGSL unpacks 2-bit ternary codes (4 per byte, 16 per
// packed u32 word) into dense f32 values using the fixed convention
// bitlinear.DecodeTernary applies on the host: 00->0, 01->+1, 10->-1,
// 11->0. One invocation per output element; no shared memory, no
// reduction, so thread ordering never affects the result.
const ternaryDequantizeWGSL = `
@group(0) @binding(0) var<storage, read> packed: array<u32>;
@group(0) @binding(1) var<storage, read_write> out: array<f32>;

@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
	let i = gid.x;
	if (i >= arrayLength(&out)) {
		return;
	}
	let byte_index = i / 4u;
	let word = packed[byte_index / 4u];
	let byte = (word >> ((byte_index % 4u) * 8u)) & 0xFFu;
	let bits = (byte >> ((i % 4u) * 2u)) & 0x3u;

	var value: f32 = 0.0;
	if (bits == 1u) {
		value = 1.0;
	} else if (bits == 2u) {
		value = -1.0;
	}
	out[i] = value;
}
`

// DequantizeTernary decodes n packed 2-bit ternary codes (ceil(n/4)
// bytes in packed) into n f32 values via a GPU compute dispatch routed
// through the Runtime's pipeline cache and buffer pool.
func (r *Runtime) DequantizeTernary(packed []byte, n int) ([]float32, error) {
	pipeline, err := r.Pipelines.Get(PipelineKey{Name: ternaryDequantizeShader, EntryPoint: "main"})
	if err != nil {
		return nil, fmt.Errorf("gpu: dequantize ternary: %w", err)
	}

	inBuf, err := r.Buffers.Acquire(uint64(max(len(packed), 1)), UsageStorage|UsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("gpu: dequantize ternary: acquire input buffer: %w", err)
	}
	defer r.Buffers.Release(inBuf)
	if err := r.Device.WriteBuffer(inBuf, 0, packed); err != nil {
		return nil, fmt.Errorf("gpu: dequantize ternary: write input buffer: %w", err)
	}

	outBuf, err := r.Buffers.Acquire(uint64(n)*4, UsageStorage|UsageCopySrc)
	if err != nil {
		return nil, fmt.Errorf("gpu: dequantize ternary: acquire output buffer: %w", err)
	}
	defer r.Buffers.Release(outBuf)

	enc := NewEncoder()
	enc.Add(Dispatch{
		Pipeline: pipeline,
		Bindings: []Binding{
			{Index: 0, Buffer: inBuf},
			{Index: 1, Buffer: outBuf},
		},
		WorkgroupX: uint32((n + 63) / 64),
		WorkgroupY: 1,
		WorkgroupZ: 1,
	})
	if err := r.Device.Dispatch(enc); err != nil {
		return nil, fmt.Errorf("gpu: dequantize ternary: dispatch: %w", err)
	}

	raw, err := r.Device.ReadBuffer(outBuf)
	if err != nil {
		return nil, fmt.Errorf("gpu: dequantize ternary: read output buffer: %w", err)
	}

	out := make([]float32, n)
	for i := range out {
		bits := binary.LittleEndian.Uint32(raw[4*i:])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}
