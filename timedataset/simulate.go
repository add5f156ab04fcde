package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

// GenerateTFrom returns n time points spaced by interval starting at start
func GenerateTFrom(start time.Time, n int, interval time.Duration) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, start.Add(interval*time.Duration(i)))
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

func GenerateWaveY(t []time.Time, amp, periodSec, order, timeOffset float64) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		val := amp * math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset))
		y = append(y, val)
	}
	return Series(y)
}

// GenerateNoise generates gaussian noise with a standard deviation of noiseScale. A nil rng
// falls back to the global source.
func GenerateNoise(n int, noiseScale float64, rng *rand.Rand) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		var z float64
		if rng == nil {
			z = rand.NormFloat64()
		} else {
			z = rng.NormFloat64()
		}
		y = append(y, z*noiseScale)
	}
	return Series(y)
}

// GenerateTrend generates a linear ramp increasing by slope per point
func GenerateTrend(n int, slope float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, slope*float64(i))
	}
	return Series(y)
}

// GenerateAR generates an autoregressive process y[i] = sum(phi[j]*y[i-j-1]) + e[i] where e is
// gaussian noise with a standard deviation of noiseScale.
func GenerateAR(n int, phi []float64, noiseScale float64, rng *rand.Rand) Series {
	noise := GenerateNoise(n, noiseScale, rng)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		val := noise[i]
		for j, c := range phi {
			if i-j-1 < 0 {
				break
			}
			val += c * y[i-j-1]
		}
		y[i] = val
	}
	return Series(y)
}
