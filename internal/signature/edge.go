package signature

import "math"

// edgeHistogram builds a magnitude-weighted histogram of gradient
// orientations folded into [0, pi). The border row and column are skipped.
// Density is the mean gradient magnitude over the interior.
func edgeHistogram(lum plane) ([EdgeBins]float64, float64, error) {
	var hist [EdgeBins]float64
	if !lum.valid() || lum.w < 3 || lum.h < 3 {
		return hist, 0, ErrDegenerateImage
	}

	var total float64
	count := 0
	for y := 1; y < lum.h-1; y++ {
		for x := 1; x < lum.w-1; x++ {
			gx := lum.at(x+1, y) - lum.at(x-1, y)
			gy := lum.at(x, y+1) - lum.at(x, y-1)
			mag := math.Sqrt(gx*gx + gy*gy)
			count++
			if mag == 0 {
				continue
			}

			theta := math.Atan2(gy, gx)
			for theta < 0 {
				theta += math.Pi
			}
			for theta >= math.Pi {
				theta -= math.Pi
			}
			bin := int(theta / math.Pi * EdgeBins)
			if bin >= EdgeBins {
				bin = EdgeBins - 1
			}
			hist[bin] += mag
			total += mag
		}
	}

	for i := range hist {
		hist[i] /= total + Epsilon
	}
	return hist, total / float64(count), nil
}

// sharpness is the mean squared horizontal plus vertical finite difference
// of the luminance buffer. Higher means more high-frequency detail.
func sharpness(lum plane) (float64, error) {
	if !lum.valid() || lum.w < 2 || lum.h < 2 {
		return 0, ErrDegenerateImage
	}
	var sum float64
	for y := 0; y < lum.h; y++ {
		for x := 0; x < lum.w; x++ {
			v := lum.at(x, y)
			if x+1 < lum.w {
				d := lum.at(x+1, y) - v
				sum += d * d
			}
			if y+1 < lum.h {
				d := lum.at(x, y+1) - v
				sum += d * d
			}
		}
	}
	return sum / float64(lum.w*lum.h), nil
}
