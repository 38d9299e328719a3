// Package gguf - Tensor-Verzeichnis und Typinformationen
//
// Enthaelt TensorType (inklusive der ternaeren BitNet-Erweiterung I2_S),
// die Tensor/Tensors/Layer-Datenstrukturen und die Byte-Groessen-
// Berechnung pro Typ (spec.md §4.1).
package gguf

import (
	"fmt"
	"strings"
)

// TensorType entspricht dem ggml_type-Feld im Tensor-Verzeichnis.
type TensorType uint32

const (
	TensorTypeF32 TensorType = iota
	TensorTypeF16
	TensorTypeQ4_0
	TensorTypeQ4_1
	_
	_
	TensorTypeQ5_0
	TensorTypeQ5_1
	TensorTypeQ8_0
	TensorTypeQ8_1
	TensorTypeQ2_K
	TensorTypeQ3_K
	TensorTypeQ4_K
	TensorTypeQ5_K
	TensorTypeQ6_K
	TensorTypeQ8_K
	_
	_
	_
	_
	_
	_
	_
	_
	TensorTypeI8
	TensorTypeI16
	TensorTypeI32
	TensorTypeI64
	TensorTypeF64
	_
	TensorTypeBF16

	// TensorTypeI2S is not part of the stock GGML tensor-type enum. BitNet
	// checkpoints use it for ternary-packed weights (2 bits/value, 4/byte);
	// the wire value is the vendor-assigned id used by BitNet GGUF exports.
	TensorTypeI2S TensorType = 36
)

// ParseTensorType parses a textual tensor type name such as "F16" or "I2_S".
func ParseTensorType(s string) (TensorType, error) {
	switch strings.ToUpper(s) {
	case "F32":
		return TensorTypeF32, nil
	case "F16":
		return TensorTypeF16, nil
	case "BF16":
		return TensorTypeBF16, nil
	case "I2_S", "I2S":
		return TensorTypeI2S, nil
	case "Q8_0":
		return TensorTypeQ8_0, nil
	default:
		return 0, fmt.Errorf("%w: unsupported tensor type %q", ErrUnsupportedType, s)
	}
}

func (t TensorType) IsQuantized() bool {
	switch t {
	case TensorTypeF32, TensorTypeF16, TensorTypeBF16:
		return false
	default:
		return true
	}
}

func (t TensorType) IsTernary() bool {
	return t == TensorTypeI2S
}

func (t TensorType) String() string {
	switch t {
	case TensorTypeF32:
		return "F32"
	case TensorTypeF16:
		return "F16"
	case TensorTypeBF16:
		return "BF16"
	case TensorTypeI2S:
		return "I2_S"
	case TensorTypeQ8_0:
		return "Q8_0"
	case TensorTypeI8:
		return "I8"
	case TensorTypeI16:
		return "I16"
	case TensorTypeI32:
		return "I32"
	case TensorTypeI64:
		return "I64"
	case TensorTypeF64:
		return "F64"
	default:
		return "unknown"
	}
}

// i2sScaleBlockSize is the trailing per-tensor scale block appended after
// the packed ternary data (spec.md §4.1, §9 open question: fixed at 32
// bytes; first 4 bytes hold the f32 scale, the remainder is reserved).
const i2sScaleBlockSize = 32

// Size returns the on-disk byte size of a tensor with the given element
// count, per spec.md §4.1.
func (t TensorType) Size(numel uint64) uint64 {
	switch t {
	case TensorTypeI2S:
		return (numel+3)/4 + i2sScaleBlockSize
	case TensorTypeF16, TensorTypeBF16:
		return 2 * numel
	case TensorTypeF32:
		return 4 * numel
	case TensorTypeI8:
		return numel
	case TensorTypeI16:
		return 2 * numel
	case TensorTypeI32:
		return 4 * numel
	case TensorTypeI64, TensorTypeF64:
		return 8 * numel
	case TensorTypeQ8_0:
		const blockSize = 32
		return (2 + blockSize) * ((numel + blockSize - 1) / blockSize)
	default:
		return 0
	}
}

// Tensor is one entry in the container's tensor directory.
type Tensor struct {
	Name   string
	Kind   TensorType
	Offset uint64
	Shape  []uint64
}

func (t Tensor) Elements() uint64 {
	n := uint64(1)
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Size is the byte length of this tensor's data region.
func (t Tensor) Size() uint64 {
	return t.Kind.Size(t.Elements())
}

// Tensors is the ordered tensor directory of a parsed container.
type Tensors struct {
	Items  []*Tensor
	Offset uint64
}

// Named looks up a single tensor by its exact container-native name.
func (ts Tensors) Named(name string) (*Tensor, bool) {
	for _, t := range ts.Items {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// WithPrefix filters the directory to tensors whose name starts with prefix.
func (ts Tensors) WithPrefix(prefix string) []*Tensor {
	var out []*Tensor
	for _, t := range ts.Items {
		if strings.HasPrefix(t.Name, prefix) {
			out = append(out, t)
		}
	}
	return out
}
