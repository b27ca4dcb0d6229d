package music

import (
	"math"
	"testing"
)

func TestTrackOrderBounds(t *testing.T) {
	if got := Name(0); got != "C8" {
		t.Errorf("Name(0) = %q, want C8", got)
	}
	if got := Name(NumKeys - 1); got != "A0" {
		t.Errorf("Name(87) = %q, want A0", got)
	}
}

func TestNoteToMIDIRoundTrip(t *testing.T) {
	for index := 0; index < NumKeys; index++ {
		name := Name(index)
		midi, err := NoteToMIDI(name)
		if err != nil {
			t.Fatalf("NoteToMIDI(%q): %v", name, err)
		}
		if midi != MIDIFromIndex(index) {
			t.Errorf("NoteToMIDI(%q) = %d, want %d", name, midi, MIDIFromIndex(index))
		}
		if IndexFromMIDI(midi) != index {
			t.Errorf("IndexFromMIDI(%d) = %d, want %d", midi, IndexFromMIDI(midi), index)
		}
	}
}

func TestNoteToMIDI(t *testing.T) {
	tests := []struct {
		name string
		midi int
	}{
		{"C4", 60},
		{"A4", 69},
		{"A#4", 70},
		{"Bb4", 70},
		{"A0", 21},
		{"C8", 108},
		{"c#3", 49},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NoteToMIDI(tt.name)
			if err != nil {
				t.Fatalf("NoteToMIDI(%q): %v", tt.name, err)
			}
			if got != tt.midi {
				t.Errorf("NoteToMIDI(%q) = %d, want %d", tt.name, got, tt.midi)
			}
		})
	}
}

func TestNoteToMIDIInvalid(t *testing.T) {
	for _, name := range []string{"", "X", "H4", "C", "C#x"} {
		if _, err := NoteToMIDI(name); err == nil {
			t.Errorf("NoteToMIDI(%q): expected error", name)
		}
	}
}

func TestFrequencies(t *testing.T) {
	if hz, _ := NoteToHz("A4"); math.Abs(hz-440.0) > 1e-9 {
		t.Errorf("NoteToHz(A4) = %v, want 440", hz)
	}
	if hz := BinFrequency(0); math.Abs(hz-FreqA0) > 1e-9 {
		t.Errorf("BinFrequency(0) = %v, want %v", hz, FreqA0)
	}
	// Bin 87 is C8
	if hz := BinFrequency(NumKeys - 1); math.Abs(hz-MIDIToHz(MIDIC8)) > 1e-6 {
		t.Errorf("BinFrequency(87) = %v, want %v", hz, MIDIToHz(MIDIC8))
	}
	// One bin per semitone: adjacent bins differ by 2^(1/12)
	ratio := BinFrequency(40) / BinFrequency(39)
	if math.Abs(ratio-math.Pow(2, 1.0/12.0)) > 1e-12 {
		t.Errorf("bin spacing ratio = %v, want semitone", ratio)
	}
}

func TestSemitoneOffset(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"C4", 0},
		{"C5", 12},
		{"C3", -12},
		{"A#4", 10},
		{"bogus", 0}, // resolution failure defaults to 0
	}
	for _, tt := range tests {
		if got := SemitoneOffset(tt.name); got != tt.want {
			t.Errorf("SemitoneOffset(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}
