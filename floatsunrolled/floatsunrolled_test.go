package floatsunrolled

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
)

func checkPanic(t *testing.T, err error) {
	r := recover()
	if r == nil {
		return
	}
	if err != nil {
		rErr, ok := r.(error)
		assert.True(t, ok)
		assert.EqualError(t, rErr, err.Error())
		return
	}

	assert.Nil(t, r)
}

func TestDot(t *testing.T) {
	testData := map[string]struct {
		a        []float64
		b        []float64
		err      error
		expected float64
	}{
		"length mismatch": {
			a:   []float64{1, 2, 3},
			b:   []float64{1, 2},
			err: ErrSliceLengthMismatch,
		},
		"empty": {
			a: []float64{},
			b: []float64{},
		},
		"full batch": {
			a:        []float64{1, 2, 3, 4},
			b:        []float64{4, 3, 2, 1},
			expected: 20,
		},
		"with remainder": {
			a:        []float64{1, 2, 3, 4, 5, 6},
			b:        []float64{1, 1, 1, 1, 2, 3},
			expected: 38,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			defer checkPanic(t, td.err)
			res := Dot(td.a, td.b)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestAdd(t *testing.T) {
	testData := map[string]struct {
		dst      []float64
		s        []float64
		err      error
		expected []float64
	}{
		"length mismatch": {
			dst: []float64{1, 2, 3},
			s:   []float64{1, 2},
			err: ErrSliceLengthMismatch,
		},
		"remainder only": {
			dst:      []float64{1, 2, 3},
			s:        []float64{1, 2, 3},
			expected: []float64{2, 4, 6},
		},
		"full batch with remainder": {
			dst:      []float64{1, 2, 3, 4, 5},
			s:        []float64{4, 3, 2, 1, 0.5},
			expected: []float64{5, 5, 5, 5, 5.5},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			defer checkPanic(t, td.err)
			res := Add(td.dst, td.s)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestSubTo(t *testing.T) {
	testData := map[string]struct {
		dst      []float64
		s        []float64
		t        []float64
		err      error
		expected []float64
	}{
		"length mismatch": {
			s:   []float64{1, 2, 3},
			t:   []float64{1, 2},
			err: ErrSliceLengthMismatch,
		},
		"no destination": {
			s:        []float64{1, 2, 3, 4, 5},
			t:        []float64{4, 3, 2, 1, 5},
			expected: []float64{-3, -1, 1, 3, 0},
		},
		"with destination": {
			dst:      make([]float64, 4),
			s:        []float64{1, 2, 3, 4},
			t:        []float64{4, 3, 2, 1},
			expected: []float64{-3, -1, 1, 3},
		},
		"invalid destination": {
			dst: make([]float64, 3),
			s:   []float64{1, 2, 3, 4},
			t:   []float64{4, 3, 2, 1},
			err: ErrOutputSliceLengthMismatch,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			defer checkPanic(t, td.err)
			res := SubTo(td.dst, td.s, td.t)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestScaleTo(t *testing.T) {
	testData := map[string]struct {
		dst      []float64
		c        float64
		s        []float64
		err      error
		expected []float64
	}{
		"no destination": {
			c:        3,
			s:        []float64{1, 2, 3},
			expected: []float64{3, 6, 9},
		},
		"with destination": {
			dst:      make([]float64, 5),
			c:        3,
			s:        []float64{1, 2, 3, 4, 5},
			expected: []float64{3, 6, 9, 12, 15},
		},
		"invalid destination": {
			dst: make([]float64, 3),
			c:   3,
			s:   []float64{1, 2, 3, 4},
			err: ErrOutputSliceLengthMismatch,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			defer checkPanic(t, td.err)
			res := ScaleTo(td.dst, td.c, td.s)
			assert.Equal(t, td.expected, res)
		})
	}
}

func TestMatchesFloats(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 5))
	for _, n := range []int{1, 7, 100, 203} {
		a := generateRandomSlice(n, rng)
		b := generateRandomSlice(n, rng)

		assert.InDelta(t, floats.Dot(a, b), Dot(a, b), 1e-9, "dot %d", n)
		assert.InDeltaSlice(t, floats.SubTo(make([]float64, n), a, b), SubTo(nil, a, b), 1e-12, "subto %d", n)
		assert.InDeltaSlice(t, floats.ScaleTo(make([]float64, n), 0.5, a), ScaleTo(nil, 0.5, a), 1e-12, "scaleto %d", n)

		expected := append([]float64(nil), a...)
		floats.Add(expected, b)
		assert.InDeltaSlice(t, expected, Add(append([]float64(nil), a...), b), 1e-12, "add %d", n)
	}
}

func generateRandomSlice(size int, rng *rand.Rand) []float64 {
	a := make([]float64, size)
	for i := 0; i < len(a); i++ {
		a[i] = rng.NormFloat64()
	}
	return a
}

// 4 gates of 50 hidden units
const benchSize = 200

func BenchmarkDot(b *testing.B) {
	a := generateRandomSlice(benchSize, rand.New(rand.NewPCG(1, 1)))
	for b.Loop() {
		Dot(a, a)
	}
}

func BenchmarkNaiveDot(b *testing.B) {
	a := generateRandomSlice(benchSize, rand.New(rand.NewPCG(1, 1)))
	for b.Loop() {
		floats.Dot(a, a)
	}
}

func BenchmarkAdd(b *testing.B) {
	a := generateRandomSlice(benchSize, rand.New(rand.NewPCG(1, 1)))
	for b.Loop() {
		Add(a, a)
	}
}

func BenchmarkNaiveAdd(b *testing.B) {
	a := generateRandomSlice(benchSize, rand.New(rand.NewPCG(1, 1)))
	for b.Loop() {
		floats.Add(a, a)
	}
}

func BenchmarkScaleTo(b *testing.B) {
	a := generateRandomSlice(benchSize, rand.New(rand.NewPCG(1, 1)))
	for b.Loop() {
		ScaleTo(a, 0.5, a)
	}
}

func BenchmarkNaiveScaleTo(b *testing.B) {
	a := generateRandomSlice(benchSize, rand.New(rand.NewPCG(1, 1)))
	for b.Loop() {
		floats.ScaleTo(a, 0.5, a)
	}
}
