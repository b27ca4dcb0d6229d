package spectral

import (
	"math"
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/probeat/beatgrid/algorithms/common"
	"github.com/probeat/beatgrid/music"
)

// PitchCQT computes a constant-Q magnitude spectrogram over the 88 piano
// keys, one bin per semitone from A0 (27.5 Hz) to C8.
//
// CQT frequency spacing: f_k = f_min * 2^(k/bins_per_octave), which matches
// musical note spacing where each octave doubles in frequency. Each bin
// therefore aligns with exactly one named pitch, unlike an STFT whose linear
// bins smear across several low notes.
//
// The transform follows the kernel method: each bin has a Gaussian-windowed
// complex exponential whose length is inversely proportional to frequency
// (constant Q = frequency/bandwidth); frames are correlated against the
// pre-computed kernel spectra in the frequency domain.
type PitchCQT struct {
	sampleRate int
	fft        *FFT
	qFactor    float64 // Quality factor (frequency/bandwidth)

	// Pre-computed kernel spectra, one per pitch bin
	kernel         [][]complex128
	fftSize        int
	kernelComputed bool
}

// NewPitchCQT creates a piano-range constant-Q analyzer for the sample rate
func NewPitchCQT(sampleRate int) *PitchCQT {
	return &PitchCQT{
		sampleRate: sampleRate,
		fft:        NewFFT(),
		qFactor:    25.0,
	}
}

// Compute returns the magnitude matrix indexed [bin][frame], with
// music.NumKeys rows and one column per hop. A zero-length signal yields 88
// empty rows, not an error; downstream treats that as nothing detected.
func (cqt *PitchCQT) Compute(signal []float64, hopSize int) ([][]float64, error) {
	magnitude := make([][]float64, music.NumKeys)

	if len(signal) == 0 || hopSize <= 0 {
		for bin := range magnitude {
			magnitude[bin] = []float64{}
		}
		return magnitude, nil
	}

	if !cqt.kernelComputed {
		cqt.computeKernel()
	}

	numFrames := 1 + (len(signal)-1)/hopSize
	for bin := range magnitude {
		magnitude[bin] = make([]float64, numFrames)
	}

	// Frames are independent; fan out across workers. Every frame writes
	// only its own column so the result is deterministic.
	numWorkers := min(runtime.NumCPU(), numFrames)

	jobs := make(chan int, numFrames)
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			frameBuffer := make([]float64, cqt.fftSize)

			for frameIdx := range jobs {
				startIdx := frameIdx * hopSize

				// Extract frame with zero-padding past the signal end
				for i := 0; i < cqt.fftSize; i++ {
					if startIdx+i < len(signal) {
						frameBuffer[i] = signal[startIdx+i]
					} else {
						frameBuffer[i] = 0
					}
				}

				frameFFT := cqt.fft.Compute(frameBuffer)

				for bin := 0; bin < music.NumKeys; bin++ {
					acc := complex(0, 0)
					for n := range frameFFT {
						acc += frameFFT[n] * cmplx.Conj(cqt.kernel[bin][n])
					}
					magnitude[bin][frameIdx] = cmplx.Abs(acc) / float64(cqt.fftSize)
				}
			}
		}()
	}

	for frameIdx := 0; frameIdx < numFrames; frameIdx++ {
		jobs <- frameIdx
	}
	close(jobs)
	wg.Wait()

	return magnitude, nil
}

// computeKernel pre-computes the per-bin kernel spectra
func (cqt *PitchCQT) computeKernel() {
	// The lowest frequency has the longest kernel and fixes the FFT size
	maxKernelLength := cqt.kernelLength(music.BinFrequency(0))
	cqt.fftSize = common.NextPowerOfTwo(maxKernelLength * 2)

	cqt.kernel = make([][]complex128, music.NumKeys)

	for bin := 0; bin < music.NumKeys; bin++ {
		freq := music.BinFrequency(bin)
		kernelLength := cqt.kernelLength(freq)

		kernel := make([]complex128, cqt.fftSize)

		bandwidth := freq / cqt.qFactor
		sigma := float64(cqt.sampleRate) / (2.0 * math.Pi * bandwidth)

		center := kernelLength / 2
		norm := 1.0 / float64(kernelLength)
		for n := 0; n < kernelLength; n++ {
			t := float64(n - center)

			window := math.Exp(-(t * t) / (2.0 * sigma * sigma))
			phase := 2.0 * math.Pi * freq * t / float64(cqt.sampleRate)

			kernel[n] = complex(norm*window, 0) * cmplx.Exp(complex(0, phase))
		}

		cqt.kernel[bin] = cqt.fft.ComputeComplex(kernel)
	}

	cqt.kernelComputed = true
}

// kernelLength calculates the kernel length for a given frequency
func (cqt *PitchCQT) kernelLength(frequency float64) int {
	kernelLength := int(cqt.qFactor * float64(cqt.sampleRate) / frequency)

	// Odd length for symmetry
	if kernelLength%2 == 0 {
		kernelLength++
	}

	kernelLength = max(kernelLength, 3)
	kernelLength = min(kernelLength, cqt.sampleRate/2)

	return kernelLength
}
