// Package floatsunrolled provides loop unrolled slice kernels for the recurrent network and
// gradient clipping hot paths. Slices of any length are accepted; the remainder past the last
// full batch is handled element by element.
package floatsunrolled

import (
	"errors"
)

const UnrollBatch = 4

var (
	ErrSliceLengthMismatch       = errors.New("slices must have equal lengths")
	ErrOutputSliceLengthMismatch = errors.New("output slice length not the same as input")
)

func batched(n int) int {
	return n - n%UnrollBatch
}

// Dot returns the inner product of a and b
func Dot(a, b []float64) float64 {
	if len(a) != len(b) {
		panic(ErrSliceLengthMismatch)
	}

	var sum float64
	m := batched(len(a))
	for i := 0; i < m; i += UnrollBatch {
		aTmp := a[i : i+UnrollBatch : i+UnrollBatch]
		bTmp := b[i : i+UnrollBatch : i+UnrollBatch]
		s0 := aTmp[0] * bTmp[0]
		s1 := aTmp[1] * bTmp[1]
		s2 := aTmp[2] * bTmp[2]
		s3 := aTmp[3] * bTmp[3]
		sum += s0 + s1 + s2 + s3
	}
	for i := m; i < len(a); i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Add adds s into dst element wise and returns dst
func Add(dst, s []float64) []float64 {
	if len(dst) != len(s) {
		panic(ErrSliceLengthMismatch)
	}

	m := batched(len(s))
	for i := 0; i < m; i += UnrollBatch {
		dstTmp := dst[i : i+UnrollBatch : i+UnrollBatch]
		sTmp := s[i : i+UnrollBatch : i+UnrollBatch]
		dstTmp[0] += sTmp[0]
		dstTmp[1] += sTmp[1]
		dstTmp[2] += sTmp[2]
		dstTmp[3] += sTmp[3]
	}
	for i := m; i < len(s); i++ {
		dst[i] += s[i]
	}
	return dst
}

// SubTo stores s - t in dst, allocating dst when nil
func SubTo(dst, s, t []float64) []float64 {
	if len(s) != len(t) {
		panic(ErrSliceLengthMismatch)
	}

	if dst == nil {
		dst = make([]float64, len(s))
	} else if len(dst) != len(s) {
		panic(ErrOutputSliceLengthMismatch)
	}

	m := batched(len(s))
	for i := 0; i < m; i += UnrollBatch {
		dstTmp := dst[i : i+UnrollBatch : i+UnrollBatch]
		sTmp := s[i : i+UnrollBatch : i+UnrollBatch]
		tTmp := t[i : i+UnrollBatch : i+UnrollBatch]
		dstTmp[0] = sTmp[0] - tTmp[0]
		dstTmp[1] = sTmp[1] - tTmp[1]
		dstTmp[2] = sTmp[2] - tTmp[2]
		dstTmp[3] = sTmp[3] - tTmp[3]
	}
	for i := m; i < len(s); i++ {
		dst[i] = s[i] - t[i]
	}
	return dst
}

// ScaleTo stores c*s in dst, allocating dst when nil. dst and s may alias.
func ScaleTo(dst []float64, c float64, s []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(s))
	} else if len(dst) != len(s) {
		panic(ErrOutputSliceLengthMismatch)
	}

	m := batched(len(s))
	for i := 0; i < m; i += UnrollBatch {
		dstTmp := dst[i : i+UnrollBatch : i+UnrollBatch]
		sTmp := s[i : i+UnrollBatch : i+UnrollBatch]
		dstTmp[0] = c * sTmp[0]
		dstTmp[1] = c * sTmp[1]
		dstTmp[2] = c * sTmp[2]
		dstTmp[3] = c * sTmp[3]
	}
	for i := m; i < len(s); i++ {
		dst[i] = c * s[i]
	}
	return dst
}
