// Package gguf decodes the GGUF container format (spec.md §4.1): a
// 4-byte magic, a metadata key/value table, a tensor directory, and an
// alignment-padded tensor-data region. It operates on any io.ReadSeeker
// backed by a contiguous byte range — typically bytes.NewReader(buf) over
// a fully-read model file, which is the access pattern the loader needs.
package gguf

import (
	"encoding/binary"
	"fmt"
	"io"
)

var magic = [4]byte{'G', 'G', 'U', 'F'}

// File is a decoded GGUF container: its metadata table and tensor
// directory. Tensor bytes themselves are not copied into File — callers
// read them from the source reader at Tensors().Offset + tensor.Offset.
type File struct {
	Version uint32

	kv      KV
	tensors []*Tensor

	tensorDataOffset uint64
	scratch          [8 << 10]byte
}

// Decode reads and validates a GGUF header, then the metadata table and
// tensor directory, from rs. rs's read position after Decode is the
// start of the tensor-data region (== KV().Alignment()-aligned).
func Decode(rs io.ReadSeeker) (*File, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(rs, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMagic, err)
	}
	if hdr != magic {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, hdr)
	}

	f := &File{kv: make(KV)}

	var version uint32
	if err := binary.Read(rs, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedContainer, err)
	}
	if version != 2 && version != 3 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	f.Version = version

	var tensorCount, kvCount uint64
	if version == 2 {
		var tc, kc uint32
		if err := binary.Read(rs, binary.LittleEndian, &tc); err != nil {
			return nil, err
		}
		if err := binary.Read(rs, binary.LittleEndian, &kc); err != nil {
			return nil, err
		}
		tensorCount, kvCount = uint64(tc), uint64(kc)
	} else {
		if err := binary.Read(rs, binary.LittleEndian, &tensorCount); err != nil {
			return nil, err
		}
		if err := binary.Read(rs, binary.LittleEndian, &kvCount); err != nil {
			return nil, err
		}
	}

	for range kvCount {
		key, err := readString(f, rs)
		if err != nil {
			return nil, fmt.Errorf("%w: reading kv key: %v", ErrMalformedContainer, err)
		}

		typ, err := readValue[uint32](f, rs)
		if err != nil {
			return nil, fmt.Errorf("%w: reading kv type for %q: %v", ErrMalformedContainer, key, err)
		}

		val, err := readTypedValue(f, rs, typ)
		if err != nil {
			return nil, fmt.Errorf("%w: reading kv value for %q: %v", ErrMalformedContainer, key, err)
		}
		f.kv[key] = val
	}

	for range tensorCount {
		name, err := readString(f, rs)
		if err != nil {
			return nil, fmt.Errorf("%w: reading tensor name: %v", ErrMalformedContainer, err)
		}

		ndims, err := readValue[uint32](f, rs)
		if err != nil {
			return nil, err
		}

		shape := make([]uint64, ndims)
		for i := range shape {
			if shape[i], err = readValue[uint64](f, rs); err != nil {
				return nil, err
			}
		}

		kind, err := readValue[uint32](f, rs)
		if err != nil {
			return nil, err
		}

		offset, err := readValue[uint64](f, rs)
		if err != nil {
			return nil, err
		}

		f.tensors = append(f.tensors, &Tensor{
			Name:   name,
			Kind:   TensorType(kind),
			Offset: offset,
			Shape:  shape,
		})
	}

	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	alignment := int64(f.kv.Alignment())
	f.tensorDataOffset = uint64(pos + padding(pos, alignment))

	if _, err := rs.Seek(int64(f.tensorDataOffset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seeking to tensor data: %v", ErrMalformedContainer, err)
	}

	return f, nil
}

func (f *File) KV() KV { return f.kv }

func (f *File) Tensors() Tensors {
	return Tensors{Items: f.tensors, Offset: f.tensorDataOffset}
}

func padding(offset, alignment int64) int64 {
	if alignment <= 0 {
		return 0
	}
	return (alignment - offset%alignment) % alignment
}

func readTypedValue(f *File, r io.Reader, typ uint32) (any, error) {
	switch typ {
	case wireTypeUint8:
		return readValue[uint8](f, r)
	case wireTypeInt8:
		return readValue[int8](f, r)
	case wireTypeUint16:
		return readValue[uint16](f, r)
	case wireTypeInt16:
		return readValue[int16](f, r)
	case wireTypeUint32:
		return readValue[uint32](f, r)
	case wireTypeInt32:
		return readValue[int32](f, r)
	case wireTypeUint64:
		return readValue[uint64](f, r)
	case wireTypeInt64:
		return readValue[int64](f, r)
	case wireTypeFloat32:
		return readValue[float32](f, r)
	case wireTypeFloat64:
		return readValue[float64](f, r)
	case wireTypeBool:
		return readValue[bool](f, r)
	case wireTypeString:
		return readString(f, r)
	case wireTypeArray:
		return readArray(f, r)
	default:
		return nil, fmt.Errorf("invalid metadata value type: %d", typ)
	}
}

func readValue[T any](f *File, r io.Reader) (T, error) {
	var v T
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readString(f *File, r io.Reader) (string, error) {
	length, err := readValue[uint64](f, r)
	if err != nil {
		return "", err
	}

	var buf []byte
	if length <= uint64(len(f.scratch)) {
		buf = f.scratch[:length]
	} else {
		buf = make([]byte, length)
	}

	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
