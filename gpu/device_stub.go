//go:build !wgpu

// Package gpu wraps the cross-platform GPU compute API (wgpu-native)
// backing the container's BitLinear/attention/FFN kernels (spec.md §4.4).
// This file is the stub variant, selected by default so the module
// builds on machines without the wgpu-native C library and headers
// configured; build with -tags wgpu to link the real implementation in
// device_cgo.go.
package gpu

import "github.com/ollama/bitnet/bnerrors"

// Device is a stub GPU device handle.
type Device struct{}

// Buffer is a stub GPU buffer handle.
type Buffer struct {
	size  uint64
	usage BufferUsage
}

// Pipeline is a stub compiled compute pipeline handle.
type Pipeline struct{}

// Open always fails in the stub build — there is no adapter to acquire.
func Open(backend string) (*Device, error) {
	return nil, bnerrors.New(bnerrors.KindGPUInit, "gpu.Open", bnerrors.ErrNoAdapter)
}

func (d *Device) Close() {}

func (d *Device) NewBuffer(size uint64, usage BufferUsage) (*Buffer, error) {
	return nil, bnerrors.New(bnerrors.KindGPUInit, "gpu.NewBuffer", bnerrors.ErrNoAdapter)
}

func (d *Device) NewBufferWithData(data []byte, usage BufferUsage) (*Buffer, error) {
	return nil, bnerrors.New(bnerrors.KindGPUInit, "gpu.NewBufferWithData", bnerrors.ErrNoAdapter)
}

func (d *Device) WriteBuffer(b *Buffer, offset uint64, data []byte) error {
	return bnerrors.New(bnerrors.KindGPUInit, "gpu.WriteBuffer", bnerrors.ErrNoAdapter)
}

func (d *Device) ReadBuffer(b *Buffer) ([]byte, error) {
	return nil, bnerrors.New(bnerrors.KindGPUInit, "gpu.ReadBuffer", bnerrors.ErrNoAdapter)
}

func (d *Device) CompilePipeline(shaderSource, entryPoint string) (*Pipeline, error) {
	return nil, bnerrors.New(bnerrors.KindGPUInit, "gpu.CompilePipeline", bnerrors.ErrNoAdapter)
}

func (d *Device) Dispatch(enc *Encoder) error {
	return bnerrors.New(bnerrors.KindGPURuntime, "gpu.Dispatch", bnerrors.ErrNoAdapter)
}

func (b *Buffer) Size() uint64 { return b.size }

func (b *Buffer) Release() {}
