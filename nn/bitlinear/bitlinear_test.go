package bitlinear

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTernaryFixedMapping(t *testing.T) {
	// 0xE4 = 0b11_10_01_00 -> values [0, +1, -1, 0] reading LSB-first.
	got := DecodeTernary([]byte{0xE4}, 4)
	assert.Equal(t, []int8{0, 1, -1, 0}, got)
}

func TestDecodeTernaryAllZeroByte(t *testing.T) {
	got := DecodeTernary([]byte{0x00, 0x00}, 8)
	for _, v := range got {
		assert.Equal(t, int8(0), v)
	}
}

func TestRMSNormUnitWeightPreservesScale(t *testing.T) {
	x := []float32{3, 4}
	w := []float32{1, 1}
	out := RMSNorm(x, 1, 2, w, 0)
	require.Len(t, out, 2)
	// rms = sqrt((9+16)/2 + eps) ~= sqrt(12.5)
	assert.InDelta(t, 3.0/3.5355339, out[0], 1e-3)
	assert.InDelta(t, 4.0/3.5355339, out[1], 1e-3)
}

func TestQuantizeRowsAbsmaxScale(t *testing.T) {
	x := []float32{127, -63.5, 0}
	q, scales := QuantizeRows(x, 1, 3)
	require.Len(t, scales, 1)
	assert.InDelta(t, 1.0, scales[0], 1e-6)
	assert.Equal(t, float32(127), q[0])
	assert.Equal(t, float32(-64), q[1]) // round(-63.5) rounds to -64
	assert.Equal(t, float32(0), q[2])
}

func TestQuantizeRowsZeroRowUsesUnitScale(t *testing.T) {
	_, scales := QuantizeRows([]float32{0, 0, 0}, 1, 3)
	assert.Equal(t, float32(1), scales[0])
}

func TestMatmulTernaryCombinesScales(t *testing.T) {
	// n=1, in=2, out=1: q=[2,3], w=[+1,-1], inputScale=2, weightScale=5
	q := []float32{2, 3}
	w := []int8{1, -1}
	out := MatmulTernary(q, 1, 2, w, 1, []float32{2}, []float32{5})
	// acc = 2*1 + 3*-1 = -1; out = -1 * 2 * 5 = -10
	assert.Equal(t, []float32{-10}, out)
}

func TestLayerForwardWithoutNorm(t *testing.T) {
	l := &Layer{
		In: 2, Out: 1,
		Weight:      []int8{1, 1},
		WeightScale: []float32{1},
	}
	out := l.Forward([]float32{3, 4}, 1)
	require.Len(t, out, 1)
	// absmax(3,4)=4, scale=4/127; q = round(3/scale), round(4/scale)
	assert.InDelta(t, 7, out[0], 0.5)
}
