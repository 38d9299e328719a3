package kvcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAllocatesRowMajorBuffers(t *testing.T) {
	c := New(2, 4, 8)
	assert.Len(t, c.K, 8*2*4)
	assert.Len(t, c.V, 8*2*4)
	assert.Equal(t, 0, c.SeqLen)
}

func TestAppendWritesAtOffset(t *testing.T) {
	c := New(1, 2, 4)
	c.Append([]float32{1, 2}, []float32{3, 4}, 1, 1)

	assert.Equal(t, float32(1), c.K[2])
	assert.Equal(t, float32(2), c.K[3])
	assert.Equal(t, float32(3), c.V[2])
	assert.Equal(t, float32(4), c.V[3])
	assert.Equal(t, 0, c.SeqLen, "Append must not advance SeqLen")
}

func TestAppendBeyondCapacityPanics(t *testing.T) {
	c := New(1, 2, 2)
	require.Panics(t, func() {
		c.Append([]float32{1, 2}, []float32{3, 4}, 2, 1)
	})
}

func TestResetClearsSeqLenOnly(t *testing.T) {
	c := New(1, 2, 4)
	c.Append([]float32{1, 2}, []float32{3, 4}, 0, 1)
	c.SeqLen = 1
	c.Reset()
	assert.Equal(t, 0, c.SeqLen)
	assert.Equal(t, float32(1), c.K[0], "Reset must not clear backing buffers")
}
