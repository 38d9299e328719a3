// Package gguf - Array-Dekodierung
//
// Enthaelt die generische array[T]-Struktur fuer GGUF-Metadaten-Arrays
// sowie die Lesefunktionen fuer jeden Elementtyp.
package gguf

import (
	"encoding/json"
	"fmt"
	"io"
)

// array haelt die dekodierten Werte eines GGUF-Metadaten-Arrays.
type array[T any] struct {
	size   int
	values []T
}

func (a *array[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.values)
}

func newArray[T any](size int) *array[T] {
	return &array[T]{size: size, values: make([]T, size)}
}

func readArray(f *File, r io.Reader) (any, error) {
	t, err := readValue[uint32](f, r)
	if err != nil {
		return nil, err
	}

	n, err := readValue[uint64](f, r)
	if err != nil {
		return nil, err
	}

	switch t {
	case wireTypeUint8:
		return readArrayData(f, r, newArray[uint8](int(n)))
	case wireTypeInt8:
		return readArrayData(f, r, newArray[int8](int(n)))
	case wireTypeUint16:
		return readArrayData(f, r, newArray[uint16](int(n)))
	case wireTypeInt16:
		return readArrayData(f, r, newArray[int16](int(n)))
	case wireTypeUint32:
		return readArrayData(f, r, newArray[uint32](int(n)))
	case wireTypeInt32:
		return readArrayData(f, r, newArray[int32](int(n)))
	case wireTypeUint64:
		return readArrayData(f, r, newArray[uint64](int(n)))
	case wireTypeInt64:
		return readArrayData(f, r, newArray[int64](int(n)))
	case wireTypeFloat32:
		return readArrayData(f, r, newArray[float32](int(n)))
	case wireTypeFloat64:
		return readArrayData(f, r, newArray[float64](int(n)))
	case wireTypeBool:
		return readArrayData(f, r, newArray[bool](int(n)))
	case wireTypeString:
		return readStringArrayData(f, r, newArray[string](int(n)))
	default:
		return nil, fmt.Errorf("%w: invalid array element type %d", ErrMalformedContainer, t)
	}
}

func readArrayData[T any](f *File, r io.Reader, a *array[T]) (any, error) {
	for i := range a.size {
		v, err := readValue[T](f, r)
		if err != nil {
			return nil, err
		}
		a.values[i] = v
	}
	return a, nil
}

func readStringArrayData(f *File, r io.Reader, a *array[string]) (any, error) {
	for i := range a.size {
		s, err := readString(f, r)
		if err != nil {
			return nil, err
		}
		a.values[i] = s
	}
	return a, nil
}
