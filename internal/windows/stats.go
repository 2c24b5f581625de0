package windows

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Median returns the median of values: sort a local copy (values is never
// mutated), then the middle element for odd n or the mean of the two
// middle elements for even n. gonum's stat.Quantile with the Empirical
// CumulantKind does not interpolate between the two middle elements on an
// even-length input, so it is not used here; LinInterp would, but this
// function needs only p=0.5 and is clearer written directly.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// StdDev returns the population standard deviation of values (divisor n,
// not n-1). gonum's stat.StdDev computes the unbiased sample estimator,
// which divides by n-1, so it is not used here: the per-event stability
// window is a full population of recent samples, not a sample drawn from a
// larger population.
func StdDev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	mean := stat.Mean(values, nil)
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n))
}

// Acceleration computes (cur-prev)/dt, returning zero for non-positive dt
// rather than dividing by zero or flipping sign on a negative time step.
func Acceleration(cur, prev, dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	return (cur - prev) / dt
}
