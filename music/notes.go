// Package music defines the canonical 88-key piano pitch space shared by the
// analyzer, the quantizer and the pattern builder. Tracks are ordered from
// C8 (index 0) down to A0 (index 87); constant-Q bins run the other way,
// from A0 (bin 0) up to C8 (bin 87).
package music

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// NumKeys is the number of piano keys and therefore of pitch bins,
	// track rows and activation slots everywhere in the pipeline.
	NumKeys = 88

	// MIDIA0 and MIDIC8 bound the piano range in MIDI note numbers.
	MIDIA0 = 21
	MIDIC8 = 108

	// MIDIC4 is the reference pitch: semitone offsets are relative to it.
	MIDIC4 = 60

	// FreqA0 is the fundamental of the lowest piano key in Hz.
	FreqA0 = 27.5

	// TuningA4 is concert pitch in Hz.
	TuningA4 = 440.0

	// BinsPerOctave is the semitone resolution of the pitch analysis.
	BinsPerOctave = 12
)

// pitchClasses indexed by midi % 12, sharps only to match track naming.
var pitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Name returns the note name for a track index (0 = C8 ... 87 = A0).
func Name(index int) string {
	return MIDIToNote(MIDIFromIndex(index))
}

// MIDIFromIndex converts a track index to a MIDI note number.
func MIDIFromIndex(index int) int {
	return MIDIC8 - index
}

// IndexFromMIDI converts a MIDI note number to a track index, or -1 when the
// pitch falls outside the piano range.
func IndexFromMIDI(midi int) int {
	if midi < MIDIA0 || midi > MIDIC8 {
		return -1
	}
	return MIDIC8 - midi
}

// IndexFromBin converts a constant-Q bin (0 = A0) to a track index (0 = C8).
func IndexFromBin(bin int) int {
	return NumKeys - 1 - bin
}

// BinFrequency returns the center frequency of a constant-Q bin in Hz.
// Bins are spaced one semitone apart starting at A0.
func BinFrequency(bin int) float64 {
	return FreqA0 * math.Pow(2.0, float64(bin)/float64(BinsPerOctave))
}

// MIDIToNote converts a MIDI note number to a name like "A#4".
func MIDIToNote(midi int) string {
	pc := midi % 12
	if pc < 0 {
		pc += 12
	}
	octave := midi/12 - 1
	return fmt.Sprintf("%s%d", pitchClasses[pc], octave)
}

// NoteToMIDI parses a note name like "C4" or "A#3" into a MIDI note number.
func NoteToMIDI(name string) (int, error) {
	if len(name) < 2 {
		return 0, fmt.Errorf("invalid note name: %q", name)
	}

	split := 1
	if len(name) > 2 && (name[1] == '#' || name[1] == 'b') {
		split = 2
	}

	pcName := name[:split]
	pc := -1
	for i, candidate := range pitchClasses {
		if strings.EqualFold(candidate, pcName) {
			pc = i
			break
		}
	}
	if pc == -1 {
		// Flats are stored as the enharmonic sharp
		if strings.HasSuffix(pcName, "b") {
			base := strings.ToUpper(pcName[:1])
			for i, candidate := range pitchClasses {
				if candidate == base {
					pc = (i + 11) % 12
					break
				}
			}
		}
	}
	if pc == -1 {
		return 0, fmt.Errorf("invalid pitch class in note name: %q", name)
	}

	octave, err := strconv.Atoi(name[split:])
	if err != nil {
		return 0, fmt.Errorf("invalid octave in note name %q: %w", name, err)
	}

	return (octave+1)*12 + pc, nil
}

// NoteToHz returns the equal-tempered frequency of a note name in Hz.
func NoteToHz(name string) (float64, error) {
	midi, err := NoteToMIDI(name)
	if err != nil {
		return 0, err
	}
	return MIDIToHz(midi), nil
}

// MIDIToHz returns the equal-tempered frequency of a MIDI note number.
func MIDIToHz(midi int) float64 {
	return TuningA4 * math.Pow(2.0, float64(midi-69)/12.0)
}

// HzToMIDI returns the fractional MIDI note number of a frequency.
func HzToMIDI(freq float64) float64 {
	if freq <= 0 {
		return 0
	}
	return 69.0 + 12.0*math.Log2(freq/TuningA4)
}

// SemitoneOffset returns the signed semitone distance of a note name from
// the C4 reference pitch. Unknown names resolve to 0 rather than an error so
// track construction never aborts on a naming problem.
func SemitoneOffset(name string) int {
	midi, err := NoteToMIDI(name)
	if err != nil {
		return 0
	}
	return midi - MIDIC4
}
