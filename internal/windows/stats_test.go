package windows

import "testing"

func approxEqual(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

func TestMedianOddEven(t *testing.T) {
	if got := Median([]float64{1, 3, 2}); got != 2 {
		t.Errorf("Median(odd) = %v, want 2", got)
	}
	if got := Median([]float64{1, 2, 3, 4}); got != 2.5 {
		t.Errorf("Median(even) = %v, want 2.5", got)
	}
	if got := Median(nil); got != 0 {
		t.Errorf("Median(empty) = %v, want 0", got)
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{1, 2, 3}); got != 2 {
		t.Errorf("Mean = %v, want 2", got)
	}
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(empty) = %v, want 0", got)
	}
}

func TestStdDevPopulation(t *testing.T) {
	// Population stddev of [2, 4, 4, 4, 5, 5, 7, 9] is 2.0 (textbook example).
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	got := StdDev(values)
	if !approxEqual(got, 2.0, 1e-9) {
		t.Errorf("StdDev = %v, want 2.0", got)
	}
}

func TestAcceleration(t *testing.T) {
	if got := Acceleration(10, 5, 0.5); !approxEqual(got, 10, 1e-9) {
		t.Errorf("Acceleration = %v, want 10", got)
	}
	if got := Acceleration(10, 5, 0); got != 0 {
		t.Errorf("Acceleration with dt=0 = %v, want 0", got)
	}
	if got := Acceleration(10, 5, -1); got != 0 {
		t.Errorf("Acceleration with negative dt = %v, want 0", got)
	}
}
