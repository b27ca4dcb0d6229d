package transcode

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/probeat/beatgrid/logging"
)

func TestDecodeFileMissing(t *testing.T) {
	d := NewDecoder(nil, &logging.NoOpLogger{})
	_, err := d.DecodeFile(context.Background(), "/nonexistent/audio.mp3")
	if !errors.Is(err, ErrInputNotFound) {
		t.Errorf("err = %v, want ErrInputNotFound", err)
	}
}

func TestDefaultDecoderConfig(t *testing.T) {
	cfg := DefaultDecoderConfig()
	if cfg.FFmpegPath != "ffmpeg" || cfg.FFprobePath != "ffprobe" {
		t.Errorf("unexpected binary paths: %+v", cfg)
	}
	if cfg.Timeout <= 0 {
		t.Error("timeout must be positive")
	}
}

func TestParsePCMF64LE(t *testing.T) {
	samples := []float64{0.0, 0.5, -1.0}
	data := make([]byte, len(samples)*8)
	for i, s := range samples {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(s))
	}

	pcm, err := parsePCMF64LE(data)
	if err != nil {
		t.Fatalf("parsePCMF64LE: %v", err)
	}
	if len(pcm) != len(samples) {
		t.Fatalf("samples = %d, want %d", len(pcm), len(samples))
	}
	for i := range samples {
		if pcm[i] != samples[i] {
			t.Errorf("sample %d = %v, want %v", i, pcm[i], samples[i])
		}
	}
}

func TestParsePCMF64LESanitizes(t *testing.T) {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint64(data[0:], math.Float64bits(math.NaN()))
	binary.LittleEndian.PutUint64(data[8:], math.Float64bits(math.Inf(1)))

	pcm, err := parsePCMF64LE(data)
	if err != nil {
		t.Fatalf("parsePCMF64LE: %v", err)
	}
	if pcm[0] != 0 || pcm[1] != 0 {
		t.Errorf("NaN/Inf not sanitized: %v", pcm)
	}
}

func TestParsePCMF64LEEmpty(t *testing.T) {
	if _, err := parsePCMF64LE(nil); !errors.Is(err, ErrDecode) {
		t.Errorf("err = %v, want ErrDecode", err)
	}
}

func TestParsePCMF64LEDropsPartialSample(t *testing.T) {
	data := make([]byte, 12) // one full sample + 4 stray bytes
	pcm, err := parsePCMF64LE(data)
	if err != nil {
		t.Fatalf("parsePCMF64LE: %v", err)
	}
	if len(pcm) != 1 {
		t.Errorf("samples = %d, want 1", len(pcm))
	}
}

func TestAudioDataDurationSeconds(t *testing.T) {
	a := &AudioData{PCM: make([]float64, 8000), SampleRate: 8000}
	if got := a.DurationSeconds(); got != 1.0 {
		t.Errorf("DurationSeconds = %v, want 1.0", got)
	}
}
