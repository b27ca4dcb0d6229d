package pattern

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/probeat/beatgrid/music"
)

const ticksPerQuarter = 480

// ExportMIDI renders a Pattern as a single-track Standard MIDI File at the
// pattern's tempo. Contiguous true steps of a track merge into one sustained
// note; velocity is derived from the track volume. Hidden tracks are
// skipped.
func ExportMIDI(p *Pattern) ([]byte, error) {
	if p == nil {
		return nil, errors.New("nil pattern")
	}

	bpm := float64(p.BPM)
	if bpm <= 0 {
		bpm = 120.0
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	var track smf.Track

	// Tempo meta event
	microsecondsPerBeat := uint32(60000000.0 / bpm)
	track.Add(0, smf.Message([]byte{
		0xFF, 0x51, 0x03,
		byte(microsecondsPerBeat >> 16),
		byte(microsecondsPerBeat >> 8),
		byte(microsecondsPerBeat),
	}))

	// 4/4 time signature
	track.Add(0, smf.Message([]byte{0xFF, 0x58, 0x04, 0x04, 0x02, 0x18, 0x08}))

	ticksPerStep := uint32(ticksPerQuarter) / 4

	type timedEvent struct {
		tick uint32
		off  bool // note-offs sort before note-ons at the same tick
		key  uint8
		msg  []byte
	}

	var events []timedEvent
	channel := uint8(0)

	for i := range p.Tracks {
		tr := &p.Tracks[i]
		if tr.Hidden {
			continue
		}

		midiNote, err := music.NoteToMIDI(tr.Name)
		if err != nil {
			continue
		}
		key := uint8(midiNote)
		velocity := velocityFromVolume(tr.Volume)

		// Merge runs of consecutive true steps into single notes
		step := 0
		for step < len(tr.Steps) {
			if !tr.Steps[step] {
				step++
				continue
			}
			runEnd := step
			for runEnd+1 < len(tr.Steps) && tr.Steps[runEnd+1] {
				runEnd++
			}

			onTick := uint32(step) * ticksPerStep
			offTick := uint32(runEnd+1) * ticksPerStep

			events = append(events,
				timedEvent{tick: onTick, key: key, msg: midi.NoteOn(channel, key, velocity)},
				timedEvent{tick: offTick, off: true, key: key, msg: midi.NoteOff(channel, key)},
			)

			step = runEnd + 1
		}
	}

	sort.SliceStable(events, func(a, b int) bool {
		if events[a].tick != events[b].tick {
			return events[a].tick < events[b].tick
		}
		if events[a].off != events[b].off {
			return events[a].off
		}
		return events[a].key < events[b].key
	})

	var currentTick uint32
	for _, ev := range events {
		track.Add(ev.tick-currentTick, ev.msg)
		currentTick = ev.tick
	}

	// Pad to the full pattern length so the bar count is preserved
	totalTicks := uint32(p.StepCount) * ticksPerStep
	if currentTick < totalTicks {
		track.Add(totalTicks-currentTick, smf.Message([]byte{0xFF, 0x06, 0x00}))
	}

	track.Close(0)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteMIDIFile writes the pattern's MIDI rendition to a file
func WriteMIDIFile(p *Pattern, path string) error {
	data, err := ExportMIDI(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// velocityFromVolume maps the [-40, 0] volume scale onto MIDI velocity 1-127
func velocityFromVolume(volume float64) uint8 {
	normalized := (volume - volumeFloor) / (volumeCeiling - volumeFloor)
	normalized = math.Max(0, math.Min(1, normalized))
	return uint8(1 + math.Round(normalized*126))
}
