package signature

import (
	"image"
	"math"
)

// D65 reference white.
const (
	whiteX = 0.95047
	whiteY = 1.0
	whiteZ = 1.08883
)

const (
	labBinsPerChannel = 4
	chromaMin         = -80.0
	chromaMax         = 80.0
)

// labHistogram bins every pixel's CIE-Lab color into three concatenated
// 4-bin histograms (L over [0,100], a and b over [-80,80]), each normalized by
// pixel count, and returns the mean Lab vector alongside.
func labHistogram(img *image.RGBA) ([HistogramBins]float64, [3]float64, error) {
	var hist [HistogramBins]float64
	var mean [3]float64

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 1 || h < 1 {
		return hist, mean, ErrDegenerateImage
	}

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			l, a, bb := srgbToLab(row[x*4], row[x*4+1], row[x*4+2])
			hist[binIndex(l, 0, 100)]++
			hist[labBinsPerChannel+binIndex(a, chromaMin, chromaMax)]++
			hist[2*labBinsPerChannel+binIndex(bb, chromaMin, chromaMax)]++
			mean[0] += l
			mean[1] += a
			mean[2] += bb
		}
	}

	n := float64(w * h)
	for i := range hist {
		hist[i] /= n
	}
	for i := range mean {
		mean[i] /= n
	}
	return hist, mean, nil
}

func binIndex(v, lo, hi float64) int {
	i := int(math.Floor((v - lo) / (hi - lo) * labBinsPerChannel))
	if i < 0 {
		return 0
	}
	if i >= labBinsPerChannel {
		return labBinsPerChannel - 1
	}
	return i
}

func srgbToLab(r8, g8, b8 uint8) (float64, float64, float64) {
	r := linearize(float64(r8) / 255)
	g := linearize(float64(g8) / 255)
	b := linearize(float64(b8) / 255)

	x := 0.4124564*r + 0.3575761*g + 0.1804375*b
	y := 0.2126729*r + 0.7151522*g + 0.0721750*b
	z := 0.0193339*r + 0.1191920*g + 0.9503041*b

	fx := labF(x / whiteX)
	fy := labF(y / whiteY)
	fz := labF(z / whiteZ)

	return 116*fy - 16, 500 * (fx - fy), 200 * (fy - fz)
}

func linearize(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func labF(t float64) float64 {
	const delta = 6.0 / 29.0
	if t > delta*delta*delta {
		return math.Cbrt(t)
	}
	return t/(3*delta*delta) + 4.0/29.0
}
