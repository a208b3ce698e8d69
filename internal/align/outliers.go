package align

import (
	"math"
	"sort"
	"time"
)

const iqrFactor = 1.5

// FilterOutliers removes implausible clock readings in two passes.
//
// The first pass drops every reading that is smaller than the reading
// immediately before it in the original list. The second pass drops readings
// outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR] of the survivors, with quartiles
// computed by linear interpolation over whole seconds.
func FilterOutliers(ts []time.Duration) []time.Duration {
	if len(ts) == 0 {
		return nil
	}

	mono := make([]time.Duration, 0, len(ts))
	mono = append(mono, ts[0])
	for i := 1; i < len(ts); i++ {
		if ts[i] >= ts[i-1] {
			mono = append(mono, ts[i])
		}
	}

	secs := make([]float64, len(mono))
	for i, t := range mono {
		secs[i] = math.Floor(t.Seconds())
	}
	sorted := append([]float64(nil), secs...)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1
	lo, hi := q1-iqrFactor*iqr, q3+iqrFactor*iqr

	out := make([]time.Duration, 0, len(mono))
	for i, t := range mono {
		if secs[i] >= lo && secs[i] <= hi {
			out = append(out, t)
		}
	}
	return out
}

// percentile returns the p-th percentile of sorted using linear
// interpolation between closest ranks.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// mean returns the arithmetic mean of ts.
func mean(ts []time.Duration) time.Duration {
	var sum time.Duration
	for _, t := range ts {
		sum += t
	}
	return sum / time.Duration(len(ts))
}
