package gguf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeEmptyHeader(t *testing.T) {
	// magic "GGUF", version=3, tensor_count=0, meta_count=0 (spec.md §8 scenario 1)
	raw := []byte{
		'G', 'G', 'U', 'F',
		0x03, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	f, err := Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, uint32(3), f.Version)
	require.Equal(t, uint64(32), f.Tensors().Offset)
}

func TestDecodeInvalidMagic(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("gguf")))
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	raw := []byte{'G', 'G', 'U', 'F', 0x01, 0x00, 0x00, 0x00}
	_, err := Decode(bytes.NewReader(raw))
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestTensorTypeI2SSize(t *testing.T) {
	// 64 packed ternary values -> ceil(64/4) + 32 trailing scale bytes.
	require.Equal(t, uint64(16+32), TensorTypeI2S.Size(64))
}

func TestKVAccessorsDefault(t *testing.T) {
	kv := KV{"general.architecture": "bitnet"}
	require.Equal(t, "bitnet", kv.Architecture())
	require.Equal(t, uint32(32), kv.Alignment())
	require.Equal(t, uint64(7), kv.Uint("missing", 7))
}
