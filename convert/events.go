package convert

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/probeat/beatgrid/music"
	"github.com/probeat/beatgrid/pattern"
	"github.com/probeat/beatgrid/transcode"
)

// NoteEvent is the common note representation every external detection
// back-end is normalized to: a time interval, a MIDI pitch and an amplitude
// in [0, 1].
type NoteEvent struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Pitch     int     `json:"pitch"`
	Amplitude float64 `json:"amplitude"`
}

// applyNoteEvents folds note events into per-pitch step activations using
// the grid's step duration, dropping events shorter than minDuration and
// pitches outside the piano range.
func applyNoteEvents(det *pattern.Detection, events []NoteEvent, minDuration float64) {
	for _, ev := range events {
		if ev.End-ev.Start < minDuration {
			continue
		}

		index := music.IndexFromMIDI(ev.Pitch)
		if index < 0 {
			continue
		}

		startStep, endStep := det.Grid.StepRange(ev.Start, ev.End)
		for step := startStep; step <= endStep; step++ {
			det.Record(index, step, ev.Amplitude)
		}
	}
}

// noteEventsDetector reads a JSON array of note events written by an
// external pitch-detection model and adapts it to the common detection
// shape. Magnitudes are amplitudes in [0, 1], so the reported cutoff is
// non-negative and the builder applies the amplitude volume map.
type noteEventsDetector struct {
	path            string
	minNoteDuration float64
	thresholdDB     float64
}

func (d *noteEventsDetector) Detect(ctx context.Context, audio *transcode.AudioData, grid pattern.StepGrid) (*pattern.Detection, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("reading note events %s: %w", d.path, err)
	}

	var events []NoteEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parsing note events %s: %w", d.path, err)
	}

	det := pattern.NewDetection(grid, d.thresholdDB, d.thresholdDB)
	applyNoteEvents(det, events, d.minNoteDuration)
	return det, nil
}

// midiEventsDetector reads a Standard MIDI File produced by an external
// transcription model and adapts its notes to the common detection shape.
// Velocities map to amplitudes as velocity/127.
type midiEventsDetector struct {
	path            string
	minNoteDuration float64
	thresholdDB     float64
}

func (d *midiEventsDetector) Detect(ctx context.Context, audio *transcode.AudioData, grid pattern.StepGrid) (*pattern.Detection, error) {
	events, err := readSMFNoteEvents(d.path)
	if err != nil {
		return nil, err
	}

	det := pattern.NewDetection(grid, d.thresholdDB, d.thresholdDB)
	applyNoteEvents(det, events, d.minNoteDuration)
	return det, nil
}

// readSMFNoteEvents extracts note events with absolute times in seconds
// from a MIDI file. Tick-to-seconds conversion honors every tempo meta
// event at its own tick, so notes before, across and after a tempo change
// all land at their exact times (default 120 BPM before the first change).
func readSMFNoteEvents(path string) ([]NoteEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading MIDI %s: %w", path, err)
	}
	defer file.Close()

	s, err := smf.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("parsing MIDI %s: %w", path, err)
	}

	ticksPerQuarter := uint16(480)
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		ticksPerQuarter = mt.Resolution()
	}

	tempos := newTempoMap(s, ticksPerQuarter)

	var events []NoteEvent

	for _, track := range s.Tracks {
		var currentTick int64

		// Pending note-on ticks per pitch, with velocity
		type pending struct {
			tick     int64
			velocity uint8
		}
		open := make(map[uint8]pending)

		for _, ev := range track {
			currentTick += int64(ev.Delta)
			msg := ev.Message

			if len(msg) < 3 {
				continue
			}
			status, key, velocity := msg[0], msg[1], msg[2]

			// Note On (0x90-0x9F) with velocity, else Note Off
			if status >= 0x90 && status <= 0x9F && velocity > 0 {
				open[key] = pending{tick: currentTick, velocity: velocity}
				continue
			}
			isOff := (status >= 0x80 && status <= 0x8F) ||
				(status >= 0x90 && status <= 0x9F && velocity == 0)
			if !isOff {
				continue
			}

			start, ok := open[key]
			if !ok {
				continue
			}
			delete(open, key)

			events = append(events, NoteEvent{
				Start:     tempos.seconds(start.tick),
				End:       tempos.seconds(currentTick),
				Pitch:     int(key),
				Amplitude: float64(start.velocity) / 127.0,
			})
		}
	}

	return events, nil
}

// tempoChange is one tempo meta event at an absolute tick
type tempoChange struct {
	tick  int64
	tempo float64 // BPM
}

// tempoMap converts absolute ticks to seconds across a file's tempo
// changes. SMF stores tempo in whichever track carries the meta events, so
// the map is built from all tracks before any notes are converted.
type tempoMap struct {
	ticksPerQuarter uint16
	changes         []tempoChange // sorted by tick
}

func newTempoMap(s *smf.SMF, ticksPerQuarter uint16) *tempoMap {
	m := &tempoMap{ticksPerQuarter: ticksPerQuarter}

	for _, track := range s.Tracks {
		var currentTick int64
		for _, ev := range track {
			currentTick += int64(ev.Delta)
			msg := ev.Message

			// Tempo meta message (FF 51 03 ...)
			if len(msg) < 6 || msg[0] != 0xFF || msg[1] != 0x51 || msg[2] != 0x03 {
				continue
			}
			microsecondsPerBeat := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
			if microsecondsPerBeat == 0 {
				continue
			}
			m.changes = append(m.changes, tempoChange{
				tick:  currentTick,
				tempo: 60000000.0 / float64(microsecondsPerBeat),
			})
		}
	}

	sort.SliceStable(m.changes, func(a, b int) bool {
		return m.changes[a].tick < m.changes[b].tick
	})
	return m
}

// seconds converts an absolute tick into seconds, applying each tempo
// segment up to the tick.
func (m *tempoMap) seconds(tick int64) float64 {
	elapsed := 0.0
	tempo := 120.0
	lastTick := int64(0)

	for _, change := range m.changes {
		if change.tick >= tick {
			break
		}
		elapsed += float64(change.tick-lastTick) * 60.0 / (tempo * float64(m.ticksPerQuarter))
		lastTick = change.tick
		tempo = change.tempo
	}

	return elapsed + float64(tick-lastTick)*60.0/(tempo*float64(m.ticksPerQuarter))
}
