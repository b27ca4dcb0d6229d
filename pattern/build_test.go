package pattern

import (
	"testing"

	"github.com/probeat/beatgrid/music"
)

func TestBuildStructure(t *testing.T) {
	grid := NewStepGrid(120, 2.0, 256)
	det := NewDetection(grid, -40, 40)
	det.Record(39, 0, -10) // A4

	p := Build(det)

	if len(p.Tracks) != music.NumKeys {
		t.Fatalf("tracks = %d, want %d", len(p.Tracks), music.NumKeys)
	}
	if p.StepCount != grid.TargetSteps {
		t.Errorf("StepCount = %d, want %d", p.StepCount, grid.TargetSteps)
	}
	if p.StepCount%16 != 0 {
		t.Errorf("StepCount = %d, not a multiple of 16", p.StepCount)
	}
	for i, tr := range p.Tracks {
		if len(tr.Steps) != p.StepCount {
			t.Fatalf("track %d steps = %d, want %d", i, len(tr.Steps), p.StepCount)
		}
	}

	// Fixed canonical order, highest to lowest
	if p.Tracks[0].Name != "C8" || p.Tracks[87].Name != "A0" {
		t.Errorf("track order wrong: first %q last %q", p.Tracks[0].Name, p.Tracks[87].Name)
	}
	if p.Tracks[39].ID != "piano-A4" || p.Tracks[39].Type != "piano" {
		t.Errorf("track identity wrong: %+v", p.Tracks[39])
	}
}

func TestBuildBPMRounded(t *testing.T) {
	grid := NewStepGrid(117.6, 2.0, 256)
	p := Build(NewDetection(grid, -40, 40))
	if p.BPM != 118 {
		t.Errorf("BPM = %d, want 118", p.BPM)
	}
}

func TestBuildVisibilityAndDefaults(t *testing.T) {
	grid := NewStepGrid(120, 2.0, 256)
	det := NewDetection(grid, -40, 40)
	det.Record(39, 2, -10)

	p := Build(det)

	if p.Tracks[39].Hidden {
		t.Error("detected track should be visible")
	}
	if !p.Tracks[40].Hidden {
		t.Error("silent track should be hidden")
	}
	if p.Tracks[40].Volume != volumeDefault {
		t.Errorf("silent track volume = %v, want %v", p.Tracks[40].Volume, volumeDefault)
	}
	if p.Tracks[40].Mute || p.Tracks[40].Solo || p.Tracks[40].Pan != 0 {
		t.Error("mute/solo/pan defaults wrong")
	}

	s := p.Tracks[39].Settings
	if s.Decay != 0.5 || s.Attack != 0.01 || s.Sustain != 0.3 || s.Release != 0.8 ||
		s.Cutoff != 20000 || s.Resonance != 1 || s.Distortion != 0 {
		t.Errorf("envelope defaults wrong: %+v", s)
	}
	if s.Pitch != music.SemitoneOffset("A4") {
		t.Errorf("pitch offset = %d, want %d", s.Pitch, music.SemitoneOffset("A4"))
	}
}

func TestBuildVolumeDBPath(t *testing.T) {
	grid := NewStepGrid(120, 2.0, 256)

	// Cutoff -40, span 40: a -10 dB magnitude normalizes to 0.75
	det := NewDetection(grid, -40, 40)
	det.Record(10, 0, -10)

	p := Build(det)
	want := -7.5 // -30 + 0.75*30
	if p.Tracks[10].Volume != want {
		t.Errorf("volume = %v, want %v", p.Tracks[10].Volume, want)
	}
}

func TestBuildVolumeAmplitudePath(t *testing.T) {
	grid := NewStepGrid(120, 2.0, 256)

	// Non-negative cutoff selects the amplitude map: norm = avg
	det := NewDetection(grid, 0.5, 40)
	det.Record(10, 0, 0.5)

	p := Build(det)
	want := -15.0 // -30 + 0.5*30
	if p.Tracks[10].Volume != want {
		t.Errorf("volume = %v, want %v", p.Tracks[10].Volume, want)
	}
}

func TestBuildVolumeClamped(t *testing.T) {
	grid := NewStepGrid(120, 2.0, 256)

	tests := []struct {
		name      string
		magnitude float64
		want      float64
	}{
		{"far above range", 1e6, 0},
		{"far below range", -1e6, -40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := NewDetection(grid, -40, 40)
			det.Record(10, 0, tt.magnitude)
			p := Build(det)
			if got := p.Tracks[10].Volume; got != tt.want {
				t.Errorf("volume = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildFallbackBand(t *testing.T) {
	grid := NewStepGrid(120, 2.0, 256)
	p := Build(NewDetection(grid, -40, 40)) // nothing detected

	for i, tr := range p.Tracks {
		midi := music.MIDIFromIndex(i)
		inBand := midi >= fallbackLowMIDI && midi <= fallbackHighMIDI

		if inBand && tr.Hidden {
			t.Errorf("track %s in fallback band should be visible", tr.Name)
		}
		if !inBand && !tr.Hidden {
			t.Errorf("track %s outside fallback band should stay hidden", tr.Name)
		}

		// The fallback changes visibility only, never activation
		for step, on := range tr.Steps {
			if on {
				t.Errorf("track %s step %d true for silent input", tr.Name, step)
			}
		}
	}
}

func TestBuildNoFallbackWhenAnythingDetected(t *testing.T) {
	grid := NewStepGrid(120, 2.0, 256)
	det := NewDetection(grid, -40, 40)
	det.Record(0, 0, -5) // C8, outside the fallback band

	p := Build(det)

	if p.VisibleTracks() != 1 {
		t.Errorf("visible tracks = %d, want 1", p.VisibleTracks())
	}
	if p.Tracks[0].Hidden {
		t.Error("detected C8 should be visible")
	}
}
