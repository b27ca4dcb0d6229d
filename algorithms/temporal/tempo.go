// Package temporal estimates tempo from an onset-strength envelope.
//
// The estimator is deliberately fail-soft: it always returns a usable BPM
// and never an error, because a bad tempo guess still produces a playable
// grid while an aborted conversion produces nothing.
package temporal

import (
	"math"
)

// DefaultBPM is returned whenever the signal gives nothing to lock onto
// (silence, too short, no periodicity).
const DefaultBPM = 120.0

// Search range for the autocorrelation peak.
const (
	minTempoBPM = 60.0
	maxTempoBPM = 180.0
)

// TempoEstimator derives a BPM value from an audio signal
type TempoEstimator struct {
	onset *OnsetStrength
}

// NewTempoEstimator creates a tempo estimator with default onset analysis
func NewTempoEstimator() *TempoEstimator {
	return &TempoEstimator{
		onset: NewOnsetStrength(),
	}
}

// Estimate returns the estimated tempo in BPM. The result is always > 0.
func (te *TempoEstimator) Estimate(signal []float64, sampleRate int) float64 {
	if len(signal) == 0 || sampleRate <= 0 {
		return DefaultBPM
	}

	envelope := te.onset.Compute(signal, sampleRate)
	if len(envelope) < 10 {
		return DefaultBPM
	}

	autocorr := autocorrelate(envelope, len(envelope)/2)

	tempo := te.tempoFromAutocorrelation(autocorr, te.onset.HopSize(), sampleRate)
	if tempo <= 0 {
		return DefaultBPM
	}
	return tempo
}

// autocorrelate computes the normalized autocorrelation of an envelope
func autocorrelate(envelope []float64, maxLag int) []float64 {
	maxLag = min(maxLag, len(envelope))

	autocorr := make([]float64, maxLag)
	for lag := 0; lag < maxLag; lag++ {
		sum := 0.0
		count := 0
		for i := 0; i < len(envelope)-lag; i++ {
			sum += envelope[i] * envelope[i+lag]
			count++
		}
		if count > 0 {
			autocorr[lag] = sum / float64(count)
		}
	}

	if len(autocorr) > 0 && autocorr[0] > 0 {
		for i := range autocorr {
			autocorr[i] /= autocorr[0]
		}
	}

	return autocorr
}

// tempoFromAutocorrelation picks the strongest local maximum whose lag falls
// inside the tempo search range. Returns 0 when no peak exists.
func (te *TempoEstimator) tempoFromAutocorrelation(autocorr []float64, hopSize, sampleRate int) float64 {
	if len(autocorr) < 3 {
		return 0
	}

	timePerFrame := float64(hopSize) / float64(sampleRate)

	minLag := int((60.0 / maxTempoBPM) / timePerFrame)
	maxLag := int((60.0 / minTempoBPM) / timePerFrame)

	minLag = max(minLag, 1)
	maxLag = min(maxLag, len(autocorr)-2)

	bestLag := 0
	bestVal := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		if autocorr[lag] > autocorr[lag-1] &&
			autocorr[lag] > autocorr[lag+1] &&
			autocorr[lag] > bestVal {
			bestVal = autocorr[lag]
			bestLag = lag
		}
	}

	if bestLag == 0 {
		return 0
	}

	period := float64(bestLag) * timePerFrame
	tempo := 60.0 / period

	// Fold octave errors back into the search range
	for tempo > maxTempoBPM {
		tempo /= 2.0
	}
	for tempo < minTempoBPM {
		tempo *= 2.0
	}

	if math.IsNaN(tempo) || math.IsInf(tempo, 0) || tempo <= 0 {
		return 0
	}
	return tempo
}
