package similarity

import (
	"fmt"
	"strings"

	"github.com/lazypower/culler/internal/signature"
)

// Thresholds bounds every distance the evaluator checks. Soft limits are
// carried through tuning but never consulted by IsSimilar.
type Thresholds struct {
	SoftAverage    int `json:"soft_average"`
	HardAverage    int `json:"hard_average"`
	SoftDifference int `json:"soft_difference"`
	HardDifference int `json:"hard_difference"`
	SoftPerceptual int `json:"soft_perceptual"`
	HardPerceptual int `json:"hard_perceptual"`

	LabLimit         float64 `json:"lab_limit"`
	EdgeLimit        float64 `json:"edge_limit"`
	DensityTolerance float64 `json:"density_tolerance"`
}

var baseThresholds = [profileCount]Thresholds{
	Selfie: {
		SoftAverage: 6, HardAverage: 10,
		SoftDifference: 9, HardDifference: 14,
		SoftPerceptual: 12, HardPerceptual: 20,
		LabLimit: 0.24, EdgeLimit: 0.22, DensityTolerance: 0.18,
	},
	People: {
		SoftAverage: 8, HardAverage: 12,
		SoftDifference: 12, HardDifference: 18,
		SoftPerceptual: 16, HardPerceptual: 24,
		LabLimit: 0.30, EdgeLimit: 0.28, DensityTolerance: 0.22,
	},
	Food: {
		SoftAverage: 12, HardAverage: 18,
		SoftDifference: 16, HardDifference: 26,
		SoftPerceptual: 22, HardPerceptual: 32,
		LabLimit: 0.42, EdgeLimit: 0.36, DensityTolerance: 0.30,
	},
	Landscape: {
		SoftAverage: 12, HardAverage: 18,
		SoftDifference: 16, HardDifference: 26,
		SoftPerceptual: 22, HardPerceptual: 32,
		LabLimit: 0.40, EdgeLimit: 0.38, DensityTolerance: 0.32,
	},
	Generic: {
		SoftAverage: 10, HardAverage: 16,
		SoftDifference: 16, HardDifference: 24,
		SoftPerceptual: 20, HardPerceptual: 30,
		LabLimit: 0.36, EdgeLimit: 0.32, DensityTolerance: 0.26,
	},
}

// Base returns the untuned thresholds for a profile.
func Base(p Profile) Thresholds {
	if p < 0 || p >= profileCount {
		p = Generic
	}
	return baseThresholds[p]
}

// Comparison holds every distance between two signatures.
type Comparison struct {
	Average    int     `json:"average"`
	Difference int     `json:"difference"`
	Perceptual int     `json:"perceptual"`
	Lab        float64 `json:"lab"`
	Edge       float64 `json:"edge"`
	DensityGap float64 `json:"density_gap"`
}

// Compare computes all distances between a and b.
func Compare(a, b signature.Signature) Comparison {
	gap := a.EdgeDensity - b.EdgeDensity
	if gap < 0 {
		gap = -gap
	}
	return Comparison{
		Average:    signature.HammingDistance(a.AverageHash, b.AverageHash),
		Difference: signature.HammingDistance(a.DifferenceHash, b.DifferenceHash),
		Perceptual: signature.HammingDistance(a.PerceptualHash, b.PerceptualHash),
		Lab:        signature.LabDistance(a, b),
		Edge:       signature.EdgeDistance(a, b),
		DensityGap: gap,
	}
}

// Admits reports whether a precomputed comparison passes every hard limit.
func (t Thresholds) Admits(c Comparison) bool {
	return c.Average <= t.HardAverage &&
		c.Difference <= t.HardDifference &&
		c.Perceptual <= t.HardPerceptual &&
		c.Lab <= t.LabLimit &&
		c.Edge <= t.EdgeLimit &&
		c.DensityGap <= t.DensityTolerance
}

// IsSimilar checks the hard limits in order and stops at the first failure,
// so the histogram distances are only computed for hash-level matches.
func IsSimilar(a, b signature.Signature, t Thresholds) bool {
	if signature.HammingDistance(a.AverageHash, b.AverageHash) > t.HardAverage {
		return false
	}
	if signature.HammingDistance(a.DifferenceHash, b.DifferenceHash) > t.HardDifference {
		return false
	}
	if signature.HammingDistance(a.PerceptualHash, b.PerceptualHash) > t.HardPerceptual {
		return false
	}
	if signature.LabDistance(a, b) > t.LabLimit {
		return false
	}
	if signature.EdgeDistance(a, b) > t.EdgeLimit {
		return false
	}
	gap := a.EdgeDensity - b.EdgeDensity
	if gap < 0 {
		gap = -gap
	}
	return gap <= t.DensityTolerance
}

func (t Thresholds) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "avg<=%d diff<=%d perc<=%d", t.HardAverage, t.HardDifference, t.HardPerceptual)
	fmt.Fprintf(&b, " lab<=%.2f edge<=%.2f density<=%.2f", t.LabLimit, t.EdgeLimit, t.DensityTolerance)
	return b.String()
}
