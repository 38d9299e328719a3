package sample

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRepeatPenaltyDividesPositiveLogits(t *testing.T) {
	logits := []float32{4, -4}
	applyRepeatPenalty(logits, 2.0, []int32{0, 1})
	assert.Equal(t, float32(2), logits[0])
	assert.Equal(t, float32(-8), logits[1])
}

func TestApplyRepeatPenaltyNoopAtUnitPenalty(t *testing.T) {
	logits := []float32{1, 2, 3}
	applyRepeatPenalty(logits, 1.0, []int32{0, 1, 2})
	assert.Equal(t, []float32{1, 2, 3}, logits)
}

func TestApplyTemperatureScalesAll(t *testing.T) {
	logits := []float32{2, 4}
	applyTemperature(logits, 2.0)
	assert.Equal(t, []float32{1, 2}, logits)
}

func TestApplyTopKMasksBelowThreshold(t *testing.T) {
	logits := []float32{5, 1, 4, 2, 3}
	applyTopK(logits, 2)
	// top-2 are 5 and 4; everything else becomes -Inf.
	assert.Equal(t, float32(5), logits[0])
	assert.Equal(t, float32(4), logits[2])
	assert.True(t, logits[1] < -1e30)
	assert.True(t, logits[3] < -1e30)
	assert.True(t, logits[4] < -1e30)
}

func TestApplyTopKKeepsExactlyKOnTies(t *testing.T) {
	// Three logits tie at the k-th largest value (3); only the lower-
	// index ties may survive so exactly k=2 entries remain.
	logits := []float32{3, 5, 3, 3, 1}
	applyTopK(logits, 2)

	kept := 0
	for _, v := range logits {
		if v > -1e30 {
			kept++
		}
	}
	assert.Equal(t, 2, kept)
	assert.Equal(t, float32(5), logits[1])
	assert.Equal(t, float32(3), logits[0], "lower-index tie must be the one kept")
}

func TestApplyTopKNoopWhenKCoversVocab(t *testing.T) {
	logits := []float32{1, 2, 3}
	applyTopK(logits, 3)
	assert.Equal(t, []float32{1, 2, 3}, logits)
}

func TestSoftmaxSampleDegenerateFallsBackToLastIndex(t *testing.T) {
	// Every logit at -Inf makes every cumsum comparison false (NaN
	// propagation), so sampling falls through to the last index, per
	// spec.md §4.12's "sampling never fails" guarantee.
	logits := []float32{float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1))}
	id := softmaxSample(logits)
	assert.Equal(t, int32(len(logits)-1), id)
}

func TestSoftmaxSampleSingleSurvivorIsDeterministic(t *testing.T) {
	logits := make([]float32, 5)
	for i := range logits {
		logits[i] = -1e30
	}
	logits[2] = 10
	id := softmaxSample(logits)
	assert.Equal(t, int32(2), id)
}

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(3)
	w.Push(1)
	w.Push(2)
	w.Push(3)
	w.Push(4)
	require.Equal(t, []int32{2, 3, 4}, w.Ids())
}

func TestSampleEndToEndReturnsInRangeId(t *testing.T) {
	logits := []float32{1, 2, 3, 4, 5}
	id := Sample(logits, DefaultOptions())
	assert.True(t, id >= 0 && int(id) < 5)
}
