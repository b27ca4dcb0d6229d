package pattern

import (
	"math"

	"github.com/probeat/beatgrid/algorithms/common"
	"github.com/probeat/beatgrid/music"
)

const (
	trackType = "piano"

	// Volume bounds and defaults in the sequencer's dB-ish scale
	volumeFloor   = -40.0
	volumeCeiling = 0.0
	volumeDefault = -5.0

	// Fallback visibility band when nothing is detected: two octaves
	// centered on C4 (C3 through C5 in MIDI numbers)
	fallbackLowMIDI  = 48
	fallbackHighMIDI = 72
)

// Build maps a Detection into the final Pattern: exactly 88 tracks ordered
// C8 down to A0, each with a step sequence of the grid's length, a derived
// volume and a visibility flag. When no pitch at all was detected, the
// middle-register band is forced visible so the result is never a fully
// empty, uneditable pattern.
func Build(det *Detection) *Pattern {
	tracks := make([]Track, music.NumKeys)

	for index := 0; index < music.NumKeys; index++ {
		name := music.Name(index)
		act := &det.Activations[index]

		steps := make([]bool, det.Grid.TargetSteps)
		copy(steps, act.Steps)

		volume := volumeDefault
		visible := false

		if act.Active() {
			volume = trackVolume(common.Mean(act.Magnitudes), det.Cutoff, det.Span)
			visible = true
		}

		tracks[index] = Track{
			ID:       "piano-" + name,
			Name:     name,
			Type:     trackType,
			Steps:    steps,
			Mute:     false,
			Solo:     false,
			Volume:   volume,
			Pan:      0,
			Settings: defaultSettings(music.SemitoneOffset(name)),
			Hidden:   !visible,
		}
	}

	allHidden := true
	for i := range tracks {
		if !tracks[i].Hidden {
			allHidden = false
			break
		}
	}
	if allHidden {
		for i := range tracks {
			midi := music.MIDIFromIndex(i)
			if midi >= fallbackLowMIDI && midi <= fallbackHighMIDI {
				tracks[i].Hidden = false
			}
		}
	}

	return &Pattern{
		BPM:       int(math.Round(det.Grid.BPM)),
		StepCount: det.Grid.TargetSteps,
		Tracks:    tracks,
	}
}

// trackVolume maps an average magnitude to the playback volume range.
//
// Two intentionally separate policies, keyed by the sign of the cutoff the
// detector reported: dB-relative magnitudes are rescaled by their distance
// to the cutoff across the span, amplitude-relative magnitudes (already in
// [0,1]) are used directly. Either way the result lands in [-40, 0].
func trackVolume(avgMagnitude, cutoff, span float64) float64 {
	var normalized float64
	if cutoff < 0 {
		normalized = (avgMagnitude - cutoff) / span
	} else {
		normalized = avgMagnitude
	}

	volume := common.RoundTo(-30.0+normalized*30.0, 1)
	return common.Clamp(volume, volumeFloor, volumeCeiling)
}
