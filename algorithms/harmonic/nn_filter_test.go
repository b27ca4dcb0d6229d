package harmonic

import (
	"testing"
)

// sustainedWithSpike builds a 4-bin matrix where bin 1 holds a steady tone
// and frame `spikeAt` carries a broadband transient.
func sustainedWithSpike(numFrames, spikeAt int) [][]float64 {
	mag := make([][]float64, 4)
	for bin := range mag {
		mag[bin] = make([]float64, numFrames)
	}
	for t := 0; t < numFrames; t++ {
		mag[1][t] = 1.0
	}
	for bin := range mag {
		mag[bin][spikeAt] += 5.0
	}
	return mag
}

func TestNNFilterShape(t *testing.T) {
	mag := sustainedWithSpike(16, 7)
	filtered := NewNNFilter().Apply(mag)

	if len(filtered) != len(mag) {
		t.Fatalf("bins = %d, want %d", len(filtered), len(mag))
	}
	for bin := range filtered {
		if len(filtered[bin]) != len(mag[bin]) {
			t.Fatalf("bin %d frames = %d, want %d", bin, len(filtered[bin]), len(mag[bin]))
		}
	}
}

func TestNNFilterSuppressesTransient(t *testing.T) {
	mag := sustainedWithSpike(16, 7)
	filtered := NewNNFilterK(5).Apply(mag)

	// The broadband spike in bin 0 has no recurring neighbors and should be
	// voted down by the median
	if filtered[0][7] >= mag[0][7] {
		t.Errorf("transient not suppressed: %v -> %v", mag[0][7], filtered[0][7])
	}

	// The sustained tone in bin 1 should survive
	if filtered[1][3] != 1.0 {
		t.Errorf("sustained tone altered: got %v, want 1.0", filtered[1][3])
	}
}

func TestNNFilterExcludesSelfNeighbor(t *testing.T) {
	// Five frames of a steady tone, one orthogonal transient frame. If the
	// frame could vote for itself its perfect self-similarity would always
	// rank first and keep the transient in its own median; with only the
	// other frames as neighbors it is replaced entirely.
	mag := [][]float64{
		{1, 1, 0, 1, 1},
		{0, 0, 10, 0, 0},
	}
	filtered := NewNNFilterK(2).Apply(mag)

	if filtered[0][2] != 1.0 {
		t.Errorf("filtered[0][2] = %v, want 1.0", filtered[0][2])
	}
	if filtered[1][2] != 0.0 {
		t.Errorf("filtered[1][2] = %v, want 0.0", filtered[1][2])
	}
}

func TestNNFilterShortInputPassthrough(t *testing.T) {
	mag := [][]float64{{1, 2}, {3, 4}}
	filtered := NewNNFilter().Apply(mag)

	for bin := range mag {
		for frame := range mag[bin] {
			if filtered[bin][frame] != mag[bin][frame] {
				t.Errorf("short input modified at [%d][%d]", bin, frame)
			}
		}
	}
}

func TestNNFilterDoesNotMutateInput(t *testing.T) {
	mag := sustainedWithSpike(16, 7)
	want := sustainedWithSpike(16, 7)

	NewNNFilter().Apply(mag)

	for bin := range mag {
		for frame := range mag[bin] {
			if mag[bin][frame] != want[bin][frame] {
				t.Fatalf("input mutated at [%d][%d]", bin, frame)
			}
		}
	}
}

func TestNNFilterEmpty(t *testing.T) {
	if got := NewNNFilter().Apply(nil); len(got) != 0 {
		t.Errorf("empty input should yield empty output, got %d rows", len(got))
	}
}

func TestNNFilterDeterministic(t *testing.T) {
	mag := sustainedWithSpike(32, 11)
	first := NewNNFilter().Apply(mag)
	second := NewNNFilter().Apply(mag)

	for bin := range first {
		for frame := range first[bin] {
			if first[bin][frame] != second[bin][frame] {
				t.Fatalf("non-deterministic result at [%d][%d]", bin, frame)
			}
		}
	}
}
