package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrCannotInferFreq = errors.New("cannot infer frequency from time slice")
	ErrNonUniformFreq  = errors.New("time slice is not uniformly spaced")
)

type TimeSlice []time.Time

func (t TimeSlice) StartTime() time.Time {
	var startTime time.Time
	if len(t) < 1 {
		return startTime
	}
	return t[0]
}

func (t TimeSlice) EndTime() time.Time {
	var lastTime time.Time
	if len(t) < 1 {
		return lastTime
	}

	lastTime = t[len(t)-1]
	return lastTime
}

// EstimateFreq returns the most common spacing between consecutive points. Ties are resolved
// towards the smaller spacing.
func (t TimeSlice) EstimateFreq() (time.Duration, error) {
	if len(t) < 2 {
		return 0, ErrCannotInferFreq
	}

	frequencies := make(map[time.Duration]int)
	for i := 1; i < len(t); i++ {
		delta := t[i].Sub(t[i-1])
		frequencies[delta] += 1
	}

	var maxCnt int
	maxDelta := time.Duration(math.MaxInt64)

	for delta, cnt := range frequencies {
		if cnt > maxCnt || (cnt == maxCnt && delta < maxDelta) {
			maxCnt = cnt
			maxDelta = delta
		}
	}
	return maxDelta, nil
}

// Uniform validates that every consecutive pair of points is spaced by exactly freq
func (t TimeSlice) Uniform(freq time.Duration) error {
	for i := 1; i < len(t); i++ {
		if delta := t[i].Sub(t[i-1]); delta != freq {
			return fmt.Errorf("spacing of %s at %d, expected %s, %w", delta, i, freq, ErrNonUniformFreq)
		}
	}
	return nil
}

// Horizon generates n time points spaced by freq starting one interval after the end time
func (t TimeSlice) Horizon(n int, freq time.Duration) []time.Time {
	if n < 1 {
		return nil
	}
	lastTime := t.EndTime()
	horizon := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		horizon = append(horizon, lastTime.Add(time.Duration(i+1)*freq))
	}
	return horizon
}
