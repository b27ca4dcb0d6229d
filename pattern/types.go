// Package pattern turns continuous pitch-energy analysis into the discrete
// step-sequencer structure the frontend consumes: a fixed tempo, a step
// grid, and 88 boolean tracks with derived volumes.
package pattern

import (
	"math"

	"github.com/probeat/beatgrid/music"
)

// Sixteenth-note subdivision: four steps per beat.
const stepsPerBeat = 4.0

// StepGrid maps wall-clock time onto sequencer steps for a given tempo.
type StepGrid struct {
	BPM          float64 `json:"bpm"`
	StepDuration float64 `json:"step_duration"` // seconds per sixteenth step
	TotalSteps   int     `json:"total_steps"`   // steps covering the audio duration
	TargetSteps  int     `json:"target_steps"`  // TotalSteps rounded up to a bar, capped
}

// NewStepGrid builds the grid for a tempo and signal duration. TargetSteps
// is always a positive multiple of 16 and never exceeds maxSteps, so even a
// zero-length signal yields one editable bar. A cap that is not itself a
// multiple of 16 is floored to the nearest full bar.
func NewStepGrid(bpm float64, durationSeconds float64, maxSteps int) StepGrid {
	stepDuration := 60.0 / bpm / stepsPerBeat
	totalSteps := int(math.Ceil(durationSeconds / stepDuration))

	rounded := ((max(totalSteps, 1) + 15) / 16) * 16
	ceiling := max(maxSteps-maxSteps%16, 16)
	targetSteps := min(ceiling, rounded)

	return StepGrid{
		BPM:          bpm,
		StepDuration: stepDuration,
		TotalSteps:   totalSteps,
		TargetSteps:  targetSteps,
	}
}

// StepRange converts a time interval in seconds to the inclusive range of
// steps it covers, clipped to the grid.
func (g StepGrid) StepRange(startSeconds, endSeconds float64) (int, int) {
	start := int(startSeconds / g.StepDuration)
	end := int(endSeconds / g.StepDuration)

	start = max(start, 0)
	end = min(end, g.TargetSteps-1)
	return start, end
}

// NoteActivation records which steps one pitch sounds in and the raw
// magnitudes observed there, prior to volume/visibility resolution.
type NoteActivation struct {
	Steps      []bool    // length TargetSteps, true where the pitch sounds
	Magnitudes []float64 // one entry per recorded activation
}

// Active reports whether any activation was recorded for this pitch
func (a *NoteActivation) Active() bool {
	return len(a.Magnitudes) > 0
}

// Detection is the back-end-agnostic result every detector produces: a
// fixed array of 88 activation records addressed by track index (0 = C8,
// 87 = A0), plus the threshold the detector applied.
//
// Cutoff is signed: a negative value is a dB-relative cutoff (spectral
// detector) and selects the dB volume map; a non-negative value means the
// magnitudes are already normalized amplitudes (note-event back-ends) and
// selects the amplitude volume map. Span is the width in dB of the accepted
// band below the maximum, used only by the dB map.
type Detection struct {
	Grid        StepGrid
	Activations [music.NumKeys]NoteActivation
	Cutoff      float64
	Span        float64
}

// NewDetection creates an empty detection with step slices sized to the grid
func NewDetection(grid StepGrid, cutoff, span float64) *Detection {
	det := &Detection{
		Grid:   grid,
		Cutoff: cutoff,
		Span:   span,
	}
	for i := range det.Activations {
		det.Activations[i].Steps = make([]bool, grid.TargetSteps)
	}
	return det
}

// Record marks a (pitch index, step) activation with its magnitude. Step
// indices outside the grid are dropped defensively.
func (d *Detection) Record(index, step int, magnitude float64) {
	if index < 0 || index >= music.NumKeys {
		return
	}
	if step < 0 || step >= d.Grid.TargetSteps {
		return
	}
	d.Activations[index].Steps[step] = true
	d.Activations[index].Magnitudes = append(d.Activations[index].Magnitudes, magnitude)
}

// TrackSettings carries the fixed timbre/envelope parameters attached to
// every track. Only Pitch varies per track.
type TrackSettings struct {
	Pitch      int     `json:"pitch"` // semitones relative to C4
	Decay      float64 `json:"decay"`
	Attack     float64 `json:"attack"`
	Distortion float64 `json:"distortion"`
	Sustain    float64 `json:"sustain"`
	Release    float64 `json:"release"`
	Cutoff     float64 `json:"cutoff"`
	Resonance  float64 `json:"resonance"`
}

// defaultSettings returns the fixed envelope defaults for a semitone offset
func defaultSettings(semitones int) TrackSettings {
	return TrackSettings{
		Pitch:      semitones,
		Decay:      0.5,
		Attack:     0.01,
		Distortion: 0,
		Sustain:    0.3,
		Release:    0.8,
		Cutoff:     20000,
		Resonance:  1,
	}
}

// Track is one pitch row of the final pattern
type Track struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Type     string        `json:"type"`
	Steps    []bool        `json:"steps"`
	Mute     bool          `json:"mute"`
	Solo     bool          `json:"solo"`
	Volume   float64       `json:"volume"`
	Pan      float64       `json:"pan"`
	Settings TrackSettings `json:"settings"`
	Hidden   bool          `json:"hidden"`
}

// Pattern is the complete conversion result: always exactly 88 tracks,
// ordered from C8 down to A0.
type Pattern struct {
	BPM       int     `json:"bpm"`
	StepCount int     `json:"stepCount"`
	Tracks    []Track `json:"tracks"`
}

// VisibleTracks counts the tracks not hidden
func (p *Pattern) VisibleTracks() int {
	count := 0
	for i := range p.Tracks {
		if !p.Tracks[i].Hidden {
			count++
		}
	}
	return count
}
