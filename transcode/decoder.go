// Package transcode loads audio files into mono float64 PCM using FFmpeg.
// Decoding is a one-shot scoped acquisition: probe, decode fully, release —
// there is no streaming path in the conversion engine.
package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/probeat/beatgrid/logging"
)

// Sentinel errors distinguishing the fail-fast input cases.
var (
	ErrInputNotFound = errors.New("audio file not found")
	ErrDecode        = errors.New("audio decode failed")
)

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64     `json:"-"` // mono samples
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"` // channel count of the source
	Duration   time.Duration `json:"duration"`
}

// DurationSeconds returns the decoded duration in seconds
func (a *AudioData) DurationSeconds() float64 {
	return float64(len(a.PCM)) / float64(a.SampleRate)
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	FFmpegPath  string        `json:"ffmpeg_path"`  // Path to ffmpeg binary
	FFprobePath string        `json:"ffprobe_path"` // Path to ffprobe binary
	Timeout     time.Duration `json:"timeout"`      // Timeout for ffmpeg operations
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		FFmpegPath:  "ffmpeg",  // Assume in PATH
		FFprobePath: "ffprobe", // Assume in PATH
		Timeout:     60 * time.Second,
	}
}

// Decoder handles audio decoding using FFmpeg
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig, logger logging.Logger) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{
		config: config,
		logger: logging.OrDefault(logger),
	}
}

// probedMetadata holds detected audio properties from FFprobe
type probedMetadata struct {
	SampleRate int
	Channels   int
	Codec      string
	Duration   float64
}

// DecodeFile decodes an audio file and returns mono PCM at the file's
// native sample rate. Multi-channel sources are downmixed.
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*AudioData, error) {
	logger := d.logger.WithFields(logging.Fields{
		"component": "audio_decoder",
		"filename":  filename,
	})

	if _, err := os.Stat(filename); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, filename)
	}

	metadata, err := d.probeFile(ctx, filename)
	if err != nil {
		logger.Error(err, "Failed to probe audio file")
		return nil, err
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"sample_rate": metadata.SampleRate,
		"channels":    metadata.Channels,
		"codec":       metadata.Codec,
		"duration":    metadata.Duration,
	})

	pcm, err := d.decodePCM(ctx, filename, metadata.SampleRate)
	if err != nil {
		logger.Error(err, "Failed to decode audio file")
		return nil, err
	}

	duration := time.Duration(float64(len(pcm)) / float64(metadata.SampleRate) * float64(time.Second))
	logger.Info("Audio loaded", logging.Fields{
		"duration_sec": duration.Seconds(),
		"sample_rate":  metadata.SampleRate,
	})

	return &AudioData{
		PCM:        pcm,
		SampleRate: metadata.SampleRate,
		Channels:   metadata.Channels,
		Duration:   duration,
	}, nil
}

// ffprobe JSON output shapes
type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

// probeFile extracts stream parameters with ffprobe
func (d *Decoder) probeFile(ctx context.Context, filename string) (*probedMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.config.FFprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		filename,
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffprobe: %v", ErrDecode, err)
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &probe); err != nil {
		return nil, fmt.Errorf("%w: parsing ffprobe output: %v", ErrDecode, err)
	}

	metadata := &probedMetadata{}
	for _, stream := range probe.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		metadata.Codec = stream.CodecName
		metadata.Channels = stream.Channels
		if rate, err := strconv.Atoi(stream.SampleRate); err == nil {
			metadata.SampleRate = rate
		}
		break
	}

	if metadata.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: no audio stream in %s", ErrDecode, filename)
	}

	if probe.Format.Duration != "" {
		if duration, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			metadata.Duration = duration
		}
	}

	return metadata, nil
}

// decodePCM runs ffmpeg and parses the raw f64le sample stream
func (d *Decoder) decodePCM(ctx context.Context, filename string, sampleRate int) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.config.FFmpegPath,
		"-v", "quiet",
		"-i", filename,
		"-f", "f64le",
		"-acodec", "pcm_f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v: %s", ErrDecode, err, stderr.String())
	}

	return parsePCMF64LE(stdout.Bytes())
}

// parsePCMF64LE converts raw little-endian float64 bytes to samples.
// Trailing partial samples are dropped; NaN/Inf samples become silence so a
// corrupt run cannot poison the analysis.
func parsePCMF64LE(data []byte) ([]float64, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty PCM stream", ErrDecode)
	}

	numSamples := len(data) / 8
	pcm := make([]float64, numSamples)

	for i := 0; i < numSamples; i++ {
		bits := binary.LittleEndian.Uint64(data[i*8:])
		sample := math.Float64frombits(bits)
		if math.IsNaN(sample) || math.IsInf(sample, 0) {
			sample = 0
		}
		pcm[i] = sample
	}

	return pcm, nil
}
