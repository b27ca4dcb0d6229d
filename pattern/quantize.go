package pattern

import (
	"github.com/probeat/beatgrid/algorithms/spectral"
	"github.com/probeat/beatgrid/music"
)

// StepQuantizer reduces a constant-Q magnitude matrix to per-step pitch
// activations. The matrix is converted to dB relative to its global
// maximum, each step's frame range is max-pooled into one spectrum, and
// strict local maxima at or above the cutoff become activations.
type StepQuantizer struct {
	thresholdDB float64 // accepted band below the maximum, 10-80 dB
}

// NewStepQuantizer creates a quantizer with the given dB margin
func NewStepQuantizer(thresholdDB float64) *StepQuantizer {
	return &StepQuantizer{thresholdDB: thresholdDB}
}

// Quantize walks the grid's steps over the magnitude matrix and records
// every peak pitch. Steps whose frame range starts past the last available
// frame terminate the scan; nothing is fabricated beyond the signal's end.
func (q *StepQuantizer) Quantize(magnitude [][]float64, grid StepGrid, sampleRate, hopSize int) *Detection {
	db := spectral.AmplitudeToDB(magnitude)

	globalMax := matrixMax(db)
	cutoff := globalMax - q.thresholdDB

	det := NewDetection(grid, cutoff, q.thresholdDB)

	numFrames := 0
	if len(db) > 0 {
		numFrames = len(db[0])
	}
	if numFrames == 0 {
		return det
	}

	framesPerStep := grid.StepDuration * float64(sampleRate) / float64(hopSize)
	spectrum := make([]float64, music.NumKeys)

	for step := 0; step < grid.TargetSteps; step++ {
		startFrame := int(float64(step) * framesPerStep)
		endFrame := int(float64(step+1) * framesPerStep)

		if startFrame >= numFrames {
			break
		}
		endFrame = min(endFrame, numFrames)

		// Max-pool the step's frames into a single spectrum
		for bin := 0; bin < music.NumKeys; bin++ {
			if startFrame == endFrame {
				spectrum[bin] = db[bin][startFrame]
				continue
			}
			peak := db[bin][startFrame]
			for frame := startFrame + 1; frame < endFrame; frame++ {
				if db[bin][frame] > peak {
					peak = db[bin][frame]
				}
			}
			spectrum[bin] = peak
		}

		for _, bin := range findPeaks(spectrum, cutoff) {
			det.Record(music.IndexFromBin(bin), step, spectrum[bin])
		}
	}

	return det
}

// findPeaks returns the bins that are strict local maxima at or above the
// height threshold. Adjacent bins count as independent candidates (minimum
// separation of one bin); the first and last bins are never peaks.
func findPeaks(spectrum []float64, height float64) []int {
	var peaks []int
	for i := 1; i < len(spectrum)-1; i++ {
		if spectrum[i] > spectrum[i-1] &&
			spectrum[i] > spectrum[i+1] &&
			spectrum[i] >= height {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

func matrixMax(matrix [][]float64) float64 {
	maxVal := 0.0
	first := true
	for _, row := range matrix {
		for _, v := range row {
			if first || v > maxVal {
				maxVal = v
				first = false
			}
		}
	}
	return maxVal
}
