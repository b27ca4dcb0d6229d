package common

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	if got := Mean([]float64{1, 2, 3, 4}); got != 2.5 {
		t.Errorf("Mean = %v, want 2.5", got)
	}
	if got := Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %v, want 0", got)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name string
		data []float64
		want float64
	}{
		{"odd", []float64{3, 1, 2}, 2},
		{"even", []float64{4, 1, 3, 2}, 2.5},
		{"single", []float64{7}, 7},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Median(tt.data); got != tt.want {
				t.Errorf("Median(%v) = %v, want %v", tt.data, got, tt.want)
			}
		})
	}
}

func TestMedianDoesNotMutate(t *testing.T) {
	data := []float64{3, 1, 2}
	Median(data)
	if data[0] != 3 || data[1] != 1 || data[2] != 2 {
		t.Errorf("Median mutated input: %v", data)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(-50, -40, 0); got != -40 {
		t.Errorf("Clamp(-50) = %v, want -40", got)
	}
	if got := Clamp(5, -40, 0); got != 0 {
		t.Errorf("Clamp(5) = %v, want 0", got)
	}
	if got := Clamp(-10, -40, 0); got != -10 {
		t.Errorf("Clamp(-10) = %v, want -10", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float64{1, 0, 0}
	if got := CosineSimilarity(a, a); math.Abs(got-1) > 1e-12 {
		t.Errorf("self similarity = %v, want 1", got)
	}
	if got := CosineSimilarity(a, []float64{0, 1, 0}); math.Abs(got) > 1e-12 {
		t.Errorf("orthogonal similarity = %v, want 0", got)
	}
	if got := CosineSimilarity(a, []float64{0, 0, 0}); got != 0 {
		t.Errorf("zero-norm similarity = %v, want 0", got)
	}
	if got := CosineSimilarity(a, []float64{1, 2}); got != 0 {
		t.Errorf("length mismatch similarity = %v, want 0", got)
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 1}, {1, 1}, {2, 2}, {3, 4}, {1000, 1024},
	}
	for _, tt := range tests {
		if got := NextPowerOfTwo(tt.in); got != tt.want {
			t.Errorf("NextPowerOfTwo(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
