package similarity

import (
	"fmt"
	"strings"
)

// Scale factor and scaled-limit bounds.
const (
	minScale = 0.3
	maxScale = 2.0
	minLimit = 0.05
	maxLimit = 1.0
)

// Tuning overlays the per-profile thresholds: integer offsets on the hash
// limits and multiplicative scales on the histogram, edge and density limits.
// A zero scale means "unchanged" to Normalize. User input goes through
// Validate first, which rejects it.
type Tuning struct {
	AverageOffset    int     `json:"average_offset" toml:"average_offset"`
	DifferenceOffset int     `json:"difference_offset" toml:"difference_offset"`
	PerceptualOffset int     `json:"perceptual_offset" toml:"perceptual_offset"`
	LabScale         float64 `json:"lab_scale" toml:"lab_scale"`
	EdgeScale        float64 `json:"edge_scale" toml:"edge_scale"`
	DensityScale     float64 `json:"density_scale" toml:"density_scale"`
}

// DefaultTuning leaves every threshold at its base value.
func DefaultTuning() Tuning {
	return Tuning{LabScale: 1, EdgeScale: 1, DensityScale: 1}
}

// Normalize fills unset scales and clamps the rest to [0.3, 2.0].
func (t Tuning) Normalize() Tuning {
	t.LabScale = clampScale(t.LabScale)
	t.EdgeScale = clampScale(t.EdgeScale)
	t.DensityScale = clampScale(t.DensityScale)
	return t
}

// Validate rejects scales that are not positive.
func (t Tuning) Validate() error {
	for _, s := range []struct {
		name  string
		value float64
	}{
		{"lab_scale", t.LabScale},
		{"edge_scale", t.EdgeScale},
		{"density_scale", t.DensityScale},
	} {
		if s.value <= 0 {
			return fmt.Errorf("%s must be positive, got %g", s.name, s.value)
		}
	}
	return nil
}

// Apply returns base adjusted by the tuning.
func (t Tuning) Apply(base Thresholds) Thresholds {
	t = t.Normalize()
	out := base
	out.SoftAverage, out.HardAverage = offsetPair(base.SoftAverage, base.HardAverage, t.AverageOffset)
	out.SoftDifference, out.HardDifference = offsetPair(base.SoftDifference, base.HardDifference, t.DifferenceOffset)
	out.SoftPerceptual, out.HardPerceptual = offsetPair(base.SoftPerceptual, base.HardPerceptual, t.PerceptualOffset)
	out.LabLimit = clampLimit(base.LabLimit * t.LabScale)
	out.EdgeLimit = clampLimit(base.EdgeLimit * t.EdgeScale)
	out.DensityTolerance = clampLimit(base.DensityTolerance * t.DensityScale)
	return out
}

func offsetPair(soft, hard, offset int) (int, int) {
	soft = max(0, soft+offset)
	hard = max(0, hard+offset)
	if hard < soft {
		hard = soft
	}
	return soft, hard
}

func clampScale(s float64) float64 {
	if s == 0 {
		return 1
	}
	return min(max(s, minScale), maxScale)
}

func clampLimit(v float64) float64 {
	return min(max(v, minLimit), maxLimit)
}

// Preset names a fixed tuning.
type Preset string

const (
	PresetStandard    Preset = "standard"
	PresetStrict      Preset = "strict"
	PresetExtraStrict Preset = "extra-strict"
	PresetLoose       Preset = "loose"
	PresetExtraLoose  Preset = "extra-loose"
)

// Presets lists every preset from strictest to loosest.
var Presets = []Preset{PresetExtraStrict, PresetStrict, PresetStandard, PresetLoose, PresetExtraLoose}

// ParsePreset accepts a preset name, case-insensitively. Underscores are
// treated as hyphens.
func ParsePreset(s string) (Preset, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	for _, p := range Presets {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown preset %q", s)
}

// Tuning returns the fixed tuning for the preset. Unknown presets map to the
// standard tuning.
func (p Preset) Tuning() Tuning {
	switch p {
	case PresetStrict:
		return Tuning{AverageOffset: -2, DifferenceOffset: -3, PerceptualOffset: -4, LabScale: 0.85, EdgeScale: 0.85, DensityScale: 0.85}
	case PresetExtraStrict:
		return Tuning{AverageOffset: -4, DifferenceOffset: -6, PerceptualOffset: -8, LabScale: 0.7, EdgeScale: 0.7, DensityScale: 0.7}
	case PresetLoose:
		return Tuning{AverageOffset: 2, DifferenceOffset: 3, PerceptualOffset: 4, LabScale: 1.15, EdgeScale: 1.15, DensityScale: 1.15}
	case PresetExtraLoose:
		return Tuning{AverageOffset: 4, DifferenceOffset: 6, PerceptualOffset: 8, LabScale: 1.3, EdgeScale: 1.3, DensityScale: 1.3}
	default:
		return DefaultTuning()
	}
}

// Table holds tuned thresholds for every profile.
type Table [profileCount]Thresholds

// NewTable applies t to every base profile.
func NewTable(t Tuning) Table {
	var tb Table
	for p := Profile(0); p < profileCount; p++ {
		tb[p] = t.Apply(baseThresholds[p])
	}
	return tb
}

// For returns the thresholds governing a pair of profiles.
func (tb Table) For(a, b Profile) Thresholds {
	p := Resolve(a, b)
	if p < 0 || p >= profileCount {
		p = Generic
	}
	return tb[p]
}
