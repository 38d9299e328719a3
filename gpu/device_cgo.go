//go:build wgpu

// Package gpu - wgpu-native Bindgung (C3 GPU-Kontext, C4 Pipeline-Cache
// Handle-Seite, C5 Buffer-Pool Handle-Seite)
//
// Bindet direkt gegen die wgpu-native C-API (wgpu.h). Es existiert kein
// Go-Modul fuer wgpu; diese Datei ist daher eine echte cgo-Anbindung statt
// einer vorgetaeuschten go.mod-Abhaengigkeit, nach dem Stub+cgo-Muster von
// pkg/gpu/opencl im Referenz-Repo. Build mit "-tags wgpu" bei konfiguriertem
// wgpu-native-Toolchain; ohne das Tag wird device_stub.go verwendet.
package gpu

/*
#cgo LDFLAGS: -lwgpu_native
#include <stdlib.h>
#include <string.h>
#include "wgpu.h"

static WGPUInstance bn_create_instance(void) {
    WGPUInstanceDescriptor desc = {0};
    return wgpuCreateInstance(&desc);
}
*/
import "C"

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ollama/bitnet/bnerrors"
)

// Device owns the wgpu instance/adapter/device/queue for the lifetime of
// a loaded model (spec.md §4.4).
type Device struct {
	mu       sync.Mutex
	instance C.WGPUInstance
	adapter  C.WGPUAdapter
	device   C.WGPUDevice
	queue    C.WGPUQueue
}

// Buffer wraps a wgpu storage/uniform buffer.
type Buffer struct {
	handle C.WGPUBuffer
	size   uint64
	usage  BufferUsage
}

// Pipeline wraps a compiled compute pipeline and its bind-group layout
// (spec.md §4.4: the pipeline cache extracts the layout from group 0).
type Pipeline struct {
	handle C.WGPUComputePipeline
	layout C.WGPUBindGroupLayout
}

// Open acquires a high-performance adapter and requests a device with
// every relevant limit raised to the adapter's maximum (spec.md §4.4).
func Open(backend string) (*Device, error) {
	instance := C.bn_create_instance()
	if instance == nil {
		return nil, bnerrors.New(bnerrors.KindGPUInit, "gpu.Open", bnerrors.ErrNoAdapter)
	}

	d := &Device{instance: instance}
	runtime.SetFinalizer(d, (*Device).Close)

	var adapterOpts C.WGPURequestAdapterOptions
	adapterOpts.powerPreference = C.WGPUPowerPreference_HighPerformance
	switch backend {
	case "vulkan":
		adapterOpts.backendType = C.WGPUBackendType_Vulkan
	case "metal":
		adapterOpts.backendType = C.WGPUBackendType_Metal
	case "dx12":
		adapterOpts.backendType = C.WGPUBackendType_D3D12
	}

	var adapterErr error
	var adapter C.WGPUAdapter
	cb := func(status C.WGPURequestAdapterStatus, got C.WGPUAdapter, msg *C.char) {
		if status != C.WGPURequestAdapterStatus_Success {
			adapterErr = fmt.Errorf("%w: %s", bnerrors.ErrNoAdapter, C.GoString(msg))
			return
		}
		adapter = got
	}
	requestAdapterSync(instance, &adapterOpts, cb)
	if adapterErr != nil {
		return nil, bnerrors.New(bnerrors.KindGPUInit, "gpu.Open", adapterErr)
	}
	d.adapter = adapter

	var supported C.WGPUSupportedLimits
	C.wgpuAdapterGetLimits(adapter, &supported)

	var required C.WGPURequiredLimits
	required.limits = supported.limits

	var devDesc C.WGPUDeviceDescriptor
	devDesc.requiredLimits = &required

	var deviceErr error
	var device C.WGPUDevice
	dcb := func(status C.WGPURequestDeviceStatus, got C.WGPUDevice, msg *C.char) {
		if status != C.WGPURequestDeviceStatus_Success {
			deviceErr = fmt.Errorf("%w: %s", bnerrors.ErrDeviceRequest, C.GoString(msg))
			return
		}
		device = got
	}
	requestDeviceSync(adapter, &devDesc, dcb)
	if deviceErr != nil {
		return nil, bnerrors.New(bnerrors.KindGPUInit, "gpu.Open", deviceErr)
	}
	d.device = device
	d.queue = C.wgpuDeviceGetQueue(device)

	return d, nil
}

func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.device != nil {
		C.wgpuDeviceRelease(d.device)
		d.device = nil
	}
	if d.adapter != nil {
		C.wgpuAdapterRelease(d.adapter)
		d.adapter = nil
	}
	if d.instance != nil {
		C.wgpuInstanceRelease(d.instance)
		d.instance = nil
	}
}

func (d *Device) NewBuffer(size uint64, usage BufferUsage) (*Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var desc C.WGPUBufferDescriptor
	desc.size = C.uint64_t(size)
	desc.usage = toWGPUUsage(usage)

	h := C.wgpuDeviceCreateBuffer(d.device, &desc)
	if h == nil {
		return nil, bnerrors.New(bnerrors.KindGPURuntime, "gpu.NewBuffer", bnerrors.ErrBufferMap)
	}
	return &Buffer{handle: h, size: size, usage: usage}, nil
}

func (d *Device) NewBufferWithData(data []byte, usage BufferUsage) (*Buffer, error) {
	b, err := d.NewBuffer(uint64(max(len(data), 4)), usage|UsageCopyDst)
	if err != nil {
		return nil, err
	}
	if err := d.WriteBuffer(b, 0, data); err != nil {
		return nil, err
	}
	return b, nil
}

func (d *Device) WriteBuffer(b *Buffer, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(data) == 0 {
		return nil
	}
	C.wgpuQueueWriteBuffer(d.queue, b.handle, C.uint64_t(offset), unsafe.Pointer(&data[0]), C.size_t(len(data)))
	return nil
}

// ReadBuffer maps a staging copy of b and blocks until the device polls
// the map as ready (spec.md §5: logits readback is the only point a
// forward call suspends on device activity besides submission itself).
func (d *Device) ReadBuffer(b *Buffer) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var desc C.WGPUBufferDescriptor
	desc.size = C.uint64_t(b.size)
	desc.usage = C.WGPUBufferUsage_MapRead | C.WGPUBufferUsage_CopyDst
	staging := C.wgpuDeviceCreateBuffer(d.device, &desc)
	if staging == nil {
		return nil, bnerrors.New(bnerrors.KindBufferMap, "gpu.ReadBuffer", bnerrors.ErrBufferMap)
	}
	defer C.wgpuBufferRelease(staging)

	encoder := C.wgpuDeviceCreateCommandEncoder(d.device, nil)
	C.wgpuCommandEncoderCopyBufferToBuffer(encoder, b.handle, 0, staging, 0, C.uint64_t(b.size))
	cmd := C.wgpuCommandEncoderFinish(encoder, nil)
	C.wgpuQueueSubmit(d.queue, 1, &cmd)

	var mapErr error
	mapped := false
	mapCB := func(status C.WGPUBufferMapAsyncStatus) {
		if status != C.WGPUBufferMapAsyncStatus_Success {
			mapErr = bnerrors.ErrBufferMap
			return
		}
		mapped = true
	}
	mapBufferAsync(staging, 0, b.size, mapCB)
	for !mapped && mapErr == nil {
		C.wgpuDevicePoll(d.device, C.bool(true), nil)
	}
	if mapErr != nil {
		return nil, bnerrors.New(bnerrors.KindBufferMap, "gpu.ReadBuffer", mapErr)
	}

	ptr := C.wgpuBufferGetConstMappedRange(staging, 0, C.size_t(b.size))
	out := C.GoBytes(ptr, C.int(b.size))
	C.wgpuBufferUnmap(staging)
	return out, nil
}

func (d *Device) CompilePipeline(shaderSource, entryPoint string) (*Pipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	src := C.CString(shaderSource)
	defer C.free(unsafe.Pointer(src))

	var wgslDesc C.WGPUShaderModuleWGSLDescriptor
	wgslDesc.chain.sType = C.WGPUSType_ShaderModuleWGSLDescriptor
	wgslDesc.code = src

	var shaderDesc C.WGPUShaderModuleDescriptor
	shaderDesc.nextInChain = (*C.WGPUChainedStruct)(unsafe.Pointer(&wgslDesc))

	module := C.wgpuDeviceCreateShaderModule(d.device, &shaderDesc)
	if module == nil {
		return nil, bnerrors.New(bnerrors.KindGPURuntime, "gpu.CompilePipeline", bnerrors.ErrDeviceRequest)
	}
	defer C.wgpuShaderModuleRelease(module)

	entry := C.CString(entryPoint)
	defer C.free(unsafe.Pointer(entry))

	var pipelineDesc C.WGPUComputePipelineDescriptor
	pipelineDesc.compute.module = module
	pipelineDesc.compute.entryPoint = entry

	handle := C.wgpuDeviceCreateComputePipeline(d.device, &pipelineDesc)
	if handle == nil {
		return nil, bnerrors.New(bnerrors.KindGPURuntime, "gpu.CompilePipeline", bnerrors.ErrDeviceRequest)
	}

	layout := C.wgpuComputePipelineGetBindGroupLayout(handle, 0)
	return &Pipeline{handle: handle, layout: layout}, nil
}

// Dispatch builds one command encoder for every dispatch in enc, in
// program order, and submits it once (spec.md §5).
func (d *Device) Dispatch(enc *Encoder) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	encoder := C.wgpuDeviceCreateCommandEncoder(d.device, nil)
	for _, disp := range enc.Dispatches {
		pass := C.wgpuCommandEncoderBeginComputePass(encoder, nil)
		C.wgpuComputePassEncoderSetPipeline(pass, disp.Pipeline.handle)

		entries := make([]C.WGPUBindGroupEntry, len(disp.Bindings))
		for i, bind := range disp.Bindings {
			entries[i].binding = C.uint32_t(bind.Index)
			entries[i].buffer = bind.Buffer.handle
			entries[i].size = C.uint64_t(bind.Buffer.size)
		}

		var groupDesc C.WGPUBindGroupDescriptor
		groupDesc.layout = disp.Pipeline.layout
		if len(entries) > 0 {
			groupDesc.entries = &entries[0]
			groupDesc.entryCount = C.size_t(len(entries))
		}
		group := C.wgpuDeviceCreateBindGroup(d.device, &groupDesc)

		C.wgpuComputePassEncoderSetBindGroup(pass, 0, group, 0, nil)
		C.wgpuComputePassEncoderDispatchWorkgroups(pass, C.uint32_t(disp.WorkgroupX), C.uint32_t(disp.WorkgroupY), C.uint32_t(disp.WorkgroupZ))
		C.wgpuComputePassEncoderEnd(pass)
		C.wgpuBindGroupRelease(group)
	}

	cmd := C.wgpuCommandEncoderFinish(encoder, nil)
	C.wgpuQueueSubmit(d.queue, 1, &cmd)
	return nil
}

func (b *Buffer) Size() uint64 { return b.size }

func (b *Buffer) Release() {
	if b.handle != nil {
		C.wgpuBufferRelease(b.handle)
		b.handle = nil
	}
}

func toWGPUUsage(u BufferUsage) C.WGPUBufferUsageFlags {
	var flags C.WGPUBufferUsageFlags
	if u&UsageStorage != 0 {
		flags |= C.WGPUBufferUsage_Storage
	}
	if u&UsageUniform != 0 {
		flags |= C.WGPUBufferUsage_Uniform
	}
	if u&UsageCopySrc != 0 {
		flags |= C.WGPUBufferUsage_CopySrc
	}
	if u&UsageCopyDst != 0 {
		flags |= C.WGPUBufferUsage_CopyDst
	}
	if u&UsageMapRead != 0 {
		flags |= C.WGPUBufferUsage_MapRead
	}
	return flags
}
