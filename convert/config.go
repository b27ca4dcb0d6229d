// Package convert is the public entry point: it turns an audio file into a
// quantized step-sequencer pattern using one of several detection back-ends.
package convert

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig marks configuration failures. Validation always runs
// before any audio is opened.
var ErrInvalidConfig = errors.New("invalid configuration")

// Method selects a detection back-end
type Method string

const (
	// MethodSpectral is the built-in constant-Q analysis pipeline
	MethodSpectral Method = "spectral"

	// MethodNoteEvents consumes a JSON note-event file produced by an
	// external pitch-detection model
	MethodNoteEvents Method = "note-events"

	// MethodMIDI consumes a Standard MIDI File produced by an external
	// transcription model
	MethodMIDI Method = "midi"
)

// Bounds on the tunable parameters.
const (
	MinSteps = 16
	MaxSteps = 1024

	MinThresholdDB = 10.0
	MaxThresholdDB = 80.0
)

// Config is the conversion configuration surface
type Config struct {
	Method Method `json:"method"`

	// BPMOverride skips tempo detection when > 0
	BPMOverride float64 `json:"bpm_override,omitempty"`

	// MaxSteps caps the grid length; the result is always a multiple of 16
	MaxSteps int `json:"max_steps"`

	// ThresholdDB is the accepted band below the spectral maximum
	ThresholdDB float64 `json:"threshold_db"`

	// MinNoteDuration drops shorter events on the note-event back-ends
	MinNoteDuration float64 `json:"min_note_duration"`

	// HarmonicEnhancement toggles the nearest-neighbor median filter
	HarmonicEnhancement bool `json:"harmonic_enhancement"`

	// HopLength is the analysis hop size in samples
	HopLength int `json:"hop_length"`

	// EventsPath locates the external back-end's output file; required for
	// the note-events and midi methods, ignored by spectral
	EventsPath string `json:"events_path,omitempty"`
}

// DefaultConfig returns the standard conversion configuration
func DefaultConfig() *Config {
	return &Config{
		Method:              MethodSpectral,
		MaxSteps:            256,
		ThresholdDB:         40,
		MinNoteDuration:     0.1,
		HarmonicEnhancement: true,
		HopLength:           512,
	}
}

// Validate checks all parameters and reports the first violation
func (c *Config) Validate() error {
	switch c.Method {
	case MethodSpectral, MethodNoteEvents, MethodMIDI:
	default:
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidConfig, c.Method)
	}

	if c.BPMOverride < 0 {
		return fmt.Errorf("%w: bpm_override must be positive, got %v", ErrInvalidConfig, c.BPMOverride)
	}

	if c.MaxSteps < MinSteps || c.MaxSteps > MaxSteps {
		return fmt.Errorf("%w: max_steps must be between %d and %d, got %d",
			ErrInvalidConfig, MinSteps, MaxSteps, c.MaxSteps)
	}

	if c.ThresholdDB < MinThresholdDB || c.ThresholdDB > MaxThresholdDB {
		return fmt.Errorf("%w: threshold_db must be between %v and %v, got %v",
			ErrInvalidConfig, MinThresholdDB, MaxThresholdDB, c.ThresholdDB)
	}

	if c.MinNoteDuration <= 0 {
		return fmt.Errorf("%w: min_note_duration must be positive, got %v",
			ErrInvalidConfig, c.MinNoteDuration)
	}

	if c.HopLength <= 0 {
		return fmt.Errorf("%w: hop_length must be positive, got %d", ErrInvalidConfig, c.HopLength)
	}

	if (c.Method == MethodNoteEvents || c.Method == MethodMIDI) && c.EventsPath == "" {
		return fmt.Errorf("%w: method %q requires events_path", ErrInvalidConfig, c.Method)
	}

	return nil
}
