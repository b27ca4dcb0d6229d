package spectral

import "math"

const (
	// aminAmplitude floors magnitudes before the log so silence does not
	// produce -Inf.
	aminAmplitude = 1e-5

	// topDB bounds how far below the reference the dB scale reaches.
	topDB = 80.0
)

// AmplitudeToDB converts a magnitude matrix to a dB scale relative to its
// own global maximum: the loudest cell maps to 0 dB and everything else is
// negative, floored at -topDB. The matrix shape is preserved; an all-zero
// matrix comes out flat (the reference clamps to the amplitude floor), which
// downstream peak picking treats as nothing detected.
func AmplitudeToDB(magnitude [][]float64) [][]float64 {
	ref := aminAmplitude
	for _, row := range magnitude {
		for _, v := range row {
			if v > ref {
				ref = v
			}
		}
	}
	refDB := 20.0 * math.Log10(ref)

	db := make([][]float64, len(magnitude))
	for i, row := range magnitude {
		db[i] = make([]float64, len(row))
		for j, v := range row {
			cell := 20.0*math.Log10(math.Max(v, aminAmplitude)) - refDB
			if cell < -topDB {
				cell = -topDB
			}
			db[i][j] = cell
		}
	}
	return db
}
