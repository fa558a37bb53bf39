// Package signature turns decoded photographs into compact, comparable
// fingerprints: three 64-bit perceptual hashes, a Lab color histogram, an
// edge-orientation histogram and a sharpness score.
package signature

import (
	"errors"
	"math/bits"
)

// Extraction constants.
const (
	WorkingSize   = 96 // bitmaps are resampled to WorkingSize x WorkingSize
	HistogramBins = 12 // 4 L + 4 a + 4 b
	EdgeBins      = 8
	DCTSize       = 32
	Epsilon       = 1e-6
)

// ErrDegenerateImage is returned when a bitmap cannot produce a usable buffer.
var ErrDegenerateImage = errors.New("degenerate image")

// Signature is the fingerprint of one photograph. It is a plain value and is
// never mutated after Extract returns it.
type Signature struct {
	AverageHash    uint64                 `json:"average_hash"`
	DifferenceHash uint64                 `json:"difference_hash"`
	PerceptualHash uint64                 `json:"perceptual_hash"`
	Sharpness      float64                `json:"sharpness"`
	LabHistogram   [HistogramBins]float64 `json:"lab_histogram"`
	LabMean        [3]float64             `json:"lab_mean"`
	EdgeHistogram  [EdgeBins]float64      `json:"edge_histogram"`
	EdgeDensity    float64                `json:"edge_density"`
	FaceCount      int                    `json:"face_count"`
}

// HammingDistance counts the differing bits of two 64-bit hashes.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// HistogramDistance is a symmetric chi-square style distance:
// 0.5 * sum((a_i-b_i)^2 / (a_i+b_i+eps)). Vectors of different length are
// compared over their common prefix.
func HistogramDistance(a, b []float64) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d / (a[i] + b[i] + Epsilon)
	}
	return 0.5 * sum
}

// LabDistance compares the Lab histograms of two signatures.
func LabDistance(a, b Signature) float64 {
	return HistogramDistance(a.LabHistogram[:], b.LabHistogram[:])
}

// EdgeDistance compares the edge-orientation histograms of two signatures.
func EdgeDistance(a, b Signature) float64 {
	return HistogramDistance(a.EdgeHistogram[:], b.EdgeHistogram[:])
}
