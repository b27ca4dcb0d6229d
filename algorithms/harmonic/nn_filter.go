package harmonic

import (
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/probeat/beatgrid/algorithms/common"
)

// NNFilter suppresses transient and percussive energy in a magnitude
// spectrogram by replacing each time frame with the element-wise median of
// its nearest neighbors, where neighbors are the other frames most similar
// to it under cosine similarity. A frame never counts as its own neighbor,
// so sustained harmonic content recurs across many frames and survives the
// median while one-off percussive frames have no similar neighbors to vote
// for them and get averaged away.
type NNFilter struct {
	numNeighbors int // 0 selects 2*ceil(sqrt(frames)) per input
}

// NewNNFilter creates a nearest-neighbor median filter with automatic
// neighborhood sizing.
func NewNNFilter() *NNFilter {
	return &NNFilter{}
}

// NewNNFilterK creates a filter with a fixed neighbor count
func NewNNFilterK(numNeighbors int) *NNFilter {
	return &NNFilter{numNeighbors: numNeighbors}
}

// Apply filters the matrix, which is indexed [bin][frame]. The output has
// exactly the input's shape; the input is not modified. Matrices with fewer
// than three frames pass through as a copy since no meaningful neighborhood
// exists.
func (nn *NNFilter) Apply(magnitude [][]float64) [][]float64 {
	numBins := len(magnitude)
	if numBins == 0 {
		return [][]float64{}
	}
	numFrames := len(magnitude[0])

	filtered := make([][]float64, numBins)
	for bin := range filtered {
		filtered[bin] = make([]float64, numFrames)
	}

	if numFrames < 3 {
		for bin := range magnitude {
			copy(filtered[bin], magnitude[bin])
		}
		return filtered
	}

	k := nn.numNeighbors
	if k <= 0 {
		k = 2 * int(math.Ceil(math.Sqrt(float64(numFrames))))
	}
	k = min(k, numFrames-1)

	// Frames as column vectors for the similarity computation
	frames := make([][]float64, numFrames)
	for t := 0; t < numFrames; t++ {
		frames[t] = make([]float64, numBins)
		for bin := 0; bin < numBins; bin++ {
			frames[t][bin] = magnitude[bin][t]
		}
	}

	numWorkers := min(runtime.NumCPU(), numFrames)
	jobs := make(chan int, numFrames)
	var wg sync.WaitGroup

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			similarities := make([]float64, numFrames)
			order := make([]int, 0, numFrames-1)
			neighborValues := make([]float64, k)

			for t := range jobs {
				order = order[:0]
				for u := 0; u < numFrames; u++ {
					if u == t {
						continue
					}
					similarities[u] = common.CosineSimilarity(frames[t], frames[u])
					order = append(order, u)
				}

				// Most similar first; ties broken by frame index so the
				// result is independent of scheduling
				sort.SliceStable(order, func(a, b int) bool {
					return similarities[order[a]] > similarities[order[b]]
				})

				for bin := 0; bin < numBins; bin++ {
					for n := 0; n < k; n++ {
						neighborValues[n] = magnitude[bin][order[n]]
					}
					filtered[bin][t] = common.Median(neighborValues)
				}
			}
		}()
	}

	for t := 0; t < numFrames; t++ {
		jobs <- t
	}
	close(jobs)
	wg.Wait()

	return filtered
}
