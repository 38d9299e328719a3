//go:build wgpu

package gpu

/*
#include "wgpu.h"

extern void bn_adapter_cb(WGPURequestAdapterStatus status, WGPUAdapter adapter, char const *message, void *userdata);
extern void bn_device_cb(WGPURequestDeviceStatus status, WGPUDevice device, char const *message, void *userdata);
extern void bn_map_cb(WGPUBufferMapAsyncStatus status, void *userdata);

static void bn_request_adapter(WGPUInstance instance, WGPURequestAdapterOptions const *options, void *userdata) {
    wgpuInstanceRequestAdapter(instance, options, bn_adapter_cb, userdata);
}

static void bn_request_device(WGPUAdapter adapter, WGPUDeviceDescriptor const *desc, void *userdata) {
    wgpuAdapterRequestDevice(adapter, desc, bn_device_cb, userdata);
}

static void bn_map_async(WGPUBuffer buffer, WGPUMapModeFlags mode, size_t offset, size_t size, void *userdata) {
    wgpuBufferMapAsync(buffer, mode, offset, size, bn_map_cb, userdata);
}
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"
)

// requestAdapterSync, requestDeviceSync and mapBufferAsync bridge
// wgpu-native's callback-based async API to a synchronous Go call using
// runtime/cgo.Handle to pass the Go closure across the cgo boundary,
// matching the handle-passing style used in the teacher's ggml context
// for long-lived C object identities.

func requestAdapterSync(instance C.WGPUInstance, opts *C.WGPURequestAdapterOptions, cb func(C.WGPURequestAdapterStatus, C.WGPUAdapter, *C.char)) {
	h := cgo.NewHandle(cb)
	defer h.Delete()
	C.bn_request_adapter(instance, opts, unsafe.Pointer(&h))
}

func requestDeviceSync(adapter C.WGPUAdapter, desc *C.WGPUDeviceDescriptor, cb func(C.WGPURequestDeviceStatus, C.WGPUDevice, *C.char)) {
	h := cgo.NewHandle(cb)
	defer h.Delete()
	C.bn_request_device(adapter, desc, unsafe.Pointer(&h))
}

func mapBufferAsync(buffer C.WGPUBuffer, offset, size uint64, cb func(C.WGPUBufferMapAsyncStatus)) {
	h := cgo.NewHandle(cb)
	defer h.Delete()
	C.bn_map_async(buffer, C.WGPUMapMode_Read, C.size_t(offset), C.size_t(size), unsafe.Pointer(&h))
}

//export bn_adapter_cb
func bn_adapter_cb(status C.WGPURequestAdapterStatus, adapter C.WGPUAdapter, message *C.char, userdata unsafe.Pointer) {
	h := *(*cgo.Handle)(userdata)
	h.Value().(func(C.WGPURequestAdapterStatus, C.WGPUAdapter, *C.char))(status, adapter, message)
}

//export bn_device_cb
func bn_device_cb(status C.WGPURequestDeviceStatus, device C.WGPUDevice, message *C.char, userdata unsafe.Pointer) {
	h := *(*cgo.Handle)(userdata)
	h.Value().(func(C.WGPURequestDeviceStatus, C.WGPUDevice, *C.char))(status, device, message)
}

//export bn_map_cb
func bn_map_cb(status C.WGPUBufferMapAsyncStatus, userdata unsafe.Pointer) {
	h := *(*cgo.Handle)(userdata)
	h.Value().(func(C.WGPUBufferMapAsyncStatus))(status)
}
