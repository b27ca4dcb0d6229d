package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/probeat/beatgrid/convert"
	"github.com/probeat/beatgrid/pattern"
)

var (
	convertMethod        string
	convertEventsPath    string
	convertBPM           float64
	convertMaxSteps      int
	convertThresholdDB   float64
	convertMinNoteLength float64
	convertNoEnhancement bool
	convertOutput        string
	convertMIDIOutput    string
)

func init() {
	convertCmd.Flags().StringVarP(&convertMethod, "method", "m", string(convert.MethodSpectral),
		"detection method: spectral, note-events or midi")
	convertCmd.Flags().StringVar(&convertEventsPath, "events", "",
		"note-event file for the note-events and midi methods")
	convertCmd.Flags().Float64Var(&convertBPM, "bpm", 0,
		"override BPM instead of detecting it (0 = detect)")
	convertCmd.Flags().IntVar(&convertMaxSteps, "max-steps", 256,
		"maximum pattern length in steps")
	convertCmd.Flags().Float64Var(&convertThresholdDB, "threshold", 40,
		"accepted band below the spectral maximum, in dB")
	convertCmd.Flags().Float64Var(&convertMinNoteLength, "min-note-duration", 0.1,
		"drop external note events shorter than this, in seconds")
	convertCmd.Flags().BoolVar(&convertNoEnhancement, "no-harmonic-enhancement", false,
		"skip the nearest-neighbor median filter")
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "",
		"write the pattern JSON here instead of stdout")
	convertCmd.Flags().StringVar(&convertMIDIOutput, "midi-out", "",
		"additionally render the pattern as a MIDI file")

	rootCmd.AddCommand(convertCmd)
}

var convertCmd = &cobra.Command{
	Use:   "convert <audio-file>",
	Short: "Convert an audio file into a pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConvert(args[0])
	},
}

func runConvert(path string) error {
	cfg := convert.DefaultConfig()
	cfg.Method = convert.Method(convertMethod)
	cfg.BPMOverride = convertBPM
	cfg.MaxSteps = convertMaxSteps
	cfg.ThresholdDB = convertThresholdDB
	cfg.MinNoteDuration = convertMinNoteLength
	cfg.HarmonicEnhancement = !convertNoEnhancement
	cfg.EventsPath = convertEventsPath

	converter, err := convert.NewConverter(cfg, newLogger())
	if err != nil {
		return err
	}

	result, err := converter.ConvertFile(context.Background(), path)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding pattern: %w", err)
	}

	if convertOutput == "" {
		fmt.Println(string(data))
	} else {
		if dir := filepath.Dir(convertOutput); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}
		}
		if err := os.WriteFile(convertOutput, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", convertOutput, err)
		}
	}

	if convertMIDIOutput != "" {
		if err := pattern.WriteMIDIFile(result, convertMIDIOutput); err != nil {
			return err
		}
	}

	return nil
}
