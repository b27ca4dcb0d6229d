package temporal

import (
	"math"
	"math/cmplx"

	"github.com/probeat/beatgrid/algorithms/spectral"
)

// OnsetStrength computes a spectral-flux onset envelope: the per-frame sum
// of positive log-magnitude increases across frequency bins. Note attacks
// show up as spikes; steady tones contribute nothing.
type OnsetStrength struct {
	fft        *spectral.FFT
	windowSize int
	hopSize    int
}

// NewOnsetStrength creates an onset envelope extractor with the standard
// 1024/512 framing.
func NewOnsetStrength() *OnsetStrength {
	return &OnsetStrength{
		fft:        spectral.NewFFT(),
		windowSize: 1024,
		hopSize:    512,
	}
}

// HopSize returns the envelope's hop size in samples
func (os *OnsetStrength) HopSize() int {
	return os.hopSize
}

// Compute returns one flux value per frame. Signals shorter than one window
// yield an empty envelope.
func (os *OnsetStrength) Compute(signal []float64, sampleRate int) []float64 {
	if len(signal) < os.windowSize {
		return []float64{}
	}

	numFrames := (len(signal)-os.windowSize)/os.hopSize + 1
	freqBins := os.windowSize/2 + 1

	window := hannWindow(os.windowSize)
	frame := make([]float64, os.windowSize)

	prev := make([]float64, freqBins)
	current := make([]float64, freqBins)
	envelope := make([]float64, numFrames)

	for frameIdx := 0; frameIdx < numFrames; frameIdx++ {
		start := frameIdx * os.hopSize
		for i := 0; i < os.windowSize; i++ {
			frame[i] = signal[start+i] * window[i]
		}

		fftResult := os.fft.Compute(frame)
		for i := 0; i < freqBins; i++ {
			current[i] = math.Log1p(cmplx.Abs(fftResult[i]))
		}

		if frameIdx > 0 {
			flux := 0.0
			for i := 0; i < freqBins; i++ {
				if diff := current[i] - prev[i]; diff > 0 {
					flux += diff
				}
			}
			envelope[frameIdx] = flux
		}

		prev, current = current, prev
	}

	return envelope
}

// hannWindow generates a Hann window of the given length
func hannWindow(length int) []float64 {
	window := make([]float64, length)
	for i := range window {
		window[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(length-1)))
	}
	return window
}
