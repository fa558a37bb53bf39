// Package similarity decides whether two photo signatures show the same
// real-world shot. Thresholds depend on a coarse scene profile and on a
// user-selectable tuning overlay.
package similarity

import (
	"github.com/lazypower/culler/internal/signature"
)

// Profile is a coarse scene classification. Lower values take priority when
// two photos of a pair classify differently.
type Profile int

const (
	Selfie Profile = iota
	People
	Food
	Landscape
	Generic

	profileCount
)

var profileNames = [profileCount]string{"selfie", "people", "food", "landscape", "generic"}

func (p Profile) String() string {
	if p < 0 || p >= profileCount {
		return "unknown"
	}
	return profileNames[p]
}

// Classification cut-offs.
const (
	selfieMinAspect   = 1.3       // long side / short side
	selfieMaxPixels   = 8_000_000 // front cameras stay under ~8 MP
	foodMinA          = 14.0
	foodMinB          = 12.0
	landscapeMaxB     = -8.0
	landscapeMinEdges = 0.35
)

// Classify assigns a scene profile from a signature and the pixel size of the
// original asset.
func Classify(sig signature.Signature, width, height int) Profile {
	if sig.FaceCount > 0 {
		if narrowAspect(width, height) && lowResolution(width, height) {
			return Selfie
		}
		return People
	}
	a, b := sig.LabMean[1], sig.LabMean[2]
	if a > foodMinA && b > foodMinB {
		return Food
	}
	if b < landscapeMaxB || sig.EdgeDensity > landscapeMinEdges {
		return Landscape
	}
	return Generic
}

// Resolve picks the profile that governs a pair.
func Resolve(a, b Profile) Profile {
	return min(a, b)
}

func narrowAspect(w, h int) bool {
	if w <= 0 || h <= 0 {
		return false
	}
	long, short := max(w, h), min(w, h)
	return float64(long)/float64(short) >= selfieMinAspect
}

func lowResolution(w, h int) bool {
	return w > 0 && h > 0 && w*h <= selfieMaxPixels
}
