package convert

import (
	"context"

	"github.com/probeat/beatgrid/algorithms/harmonic"
	"github.com/probeat/beatgrid/algorithms/spectral"
	"github.com/probeat/beatgrid/algorithms/temporal"
	"github.com/probeat/beatgrid/logging"
	"github.com/probeat/beatgrid/pattern"
	"github.com/probeat/beatgrid/transcode"
)

// Detector produces per-pitch step activations from decoded audio. The
// built-in spectral pipeline and the external-model adapters all implement
// it, which keeps the pattern builder indifferent to the back-end.
type Detector interface {
	Detect(ctx context.Context, audio *transcode.AudioData, grid pattern.StepGrid) (*pattern.Detection, error)
}

// Converter runs the full conversion: decode, tempo, detection, build.
// Each call owns its buffers; a Converter is safe for concurrent use.
type Converter struct {
	config  *Config
	decoder *transcode.Decoder
	tempo   *temporal.TempoEstimator
	logger  logging.Logger
}

// NewConverter validates the configuration and creates a converter. The
// logger is the pipeline's diagnostics sink; nil selects the default
// colored logger.
func NewConverter(config *Config, logger logging.Logger) (*Converter, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger = logging.OrDefault(logger).WithFields(logging.Fields{
		"component": "converter",
		"method":    string(config.Method),
	})

	return &Converter{
		config:  config,
		decoder: transcode.NewDecoder(nil, logger),
		tempo:   temporal.NewTempoEstimator(),
		logger:  logger,
	}, nil
}

// ConvertFile converts an audio file into a pattern
func (c *Converter) ConvertFile(ctx context.Context, path string) (*pattern.Pattern, error) {
	c.logger.Info("Starting conversion", logging.Fields{"path": path})

	audio, err := c.decoder.DecodeFile(ctx, path)
	if err != nil {
		return nil, err
	}

	return c.ConvertAudio(ctx, audio)
}

// ConvertAudio converts already-decoded audio into a pattern
func (c *Converter) ConvertAudio(ctx context.Context, audio *transcode.AudioData) (*pattern.Pattern, error) {
	bpm := c.detectTempo(audio)

	grid := pattern.NewStepGrid(bpm, audio.DurationSeconds(), c.config.MaxSteps)
	c.logger.Debug("Step grid built", logging.Fields{
		"bpm":          grid.BPM,
		"total_steps":  grid.TotalSteps,
		"target_steps": grid.TargetSteps,
	})

	det, err := c.detector().Detect(ctx, audio, grid)
	if err != nil {
		return nil, err
	}

	result := pattern.Build(det)
	c.logger.Info("Conversion complete", logging.Fields{
		"bpm":            result.BPM,
		"step_count":     result.StepCount,
		"visible_tracks": result.VisibleTracks(),
	})
	return result, nil
}

// detectTempo returns the override when set, otherwise the estimate.
// Estimation never fails; degenerate signals fall back to the default BPM.
func (c *Converter) detectTempo(audio *transcode.AudioData) float64 {
	if c.config.BPMOverride > 0 {
		c.logger.Info("Using override BPM", logging.Fields{"bpm": c.config.BPMOverride})
		return c.config.BPMOverride
	}

	bpm := c.tempo.Estimate(audio.PCM, audio.SampleRate)
	c.logger.Info("Detected tempo", logging.Fields{"bpm": bpm})
	return bpm
}

// detector selects the configured detection back-end
func (c *Converter) detector() Detector {
	switch c.config.Method {
	case MethodNoteEvents:
		return &noteEventsDetector{
			path:            c.config.EventsPath,
			minNoteDuration: c.config.MinNoteDuration,
			thresholdDB:     c.config.ThresholdDB,
		}
	case MethodMIDI:
		return &midiEventsDetector{
			path:            c.config.EventsPath,
			minNoteDuration: c.config.MinNoteDuration,
			thresholdDB:     c.config.ThresholdDB,
		}
	default:
		return &spectralDetector{
			thresholdDB:         c.config.ThresholdDB,
			hopLength:           c.config.HopLength,
			harmonicEnhancement: c.config.HarmonicEnhancement,
			logger:              c.logger,
		}
	}
}

// spectralDetector is the built-in pipeline: constant-Q pitch energies,
// optional harmonic enhancement, then step quantization with peak picking.
type spectralDetector struct {
	thresholdDB         float64
	hopLength           int
	harmonicEnhancement bool
	logger              logging.Logger
}

func (d *spectralDetector) Detect(ctx context.Context, audio *transcode.AudioData, grid pattern.StepGrid) (*pattern.Detection, error) {
	cqt := spectral.NewPitchCQT(audio.SampleRate)
	magnitude, err := cqt.Compute(audio.PCM, d.hopLength)
	if err != nil {
		return nil, err
	}

	if d.harmonicEnhancement {
		d.logger.Debug("Applying harmonic enhancement")
		magnitude = harmonic.NewNNFilter().Apply(magnitude)
	}

	quantizer := pattern.NewStepQuantizer(d.thresholdDB)
	return quantizer.Quantize(magnitude, grid, audio.SampleRate, d.hopLength), nil
}
