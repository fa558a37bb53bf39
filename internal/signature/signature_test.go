package signature

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(w, h int, f func(x, y int) uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := f(x, y)
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func pattern(x, y int) uint8 {
	return uint8(125 + 60*math.Sin(float64(x)/9)*math.Cos(float64(y)/13))
}

type stubFaces struct {
	n   int
	err error
}

func (s stubFaces) CountFaces(ctx context.Context, img image.Image) (int, error) {
	return s.n, s.err
}

func TestHammingDistance(t *testing.T) {
	values := []uint64{0, 1, 0xdeadbeef, ^uint64(0), 0x8000000000000001}
	for _, a := range values {
		assert.Equal(t, 0, HammingDistance(a, a))
		for _, b := range values {
			assert.Equal(t, HammingDistance(a, b), HammingDistance(b, a))
		}
	}
	assert.Equal(t, 64, HammingDistance(0, ^uint64(0)))
	assert.Equal(t, 2, HammingDistance(0, 0b101))
}

func TestHistogramDistance(t *testing.T) {
	hists := [][]float64{
		{0, 0, 0, 0},
		{1, 0, 0, 0},
		{0.25, 0.25, 0.25, 0.25},
		{0.1, 0.7, 0.2, 0},
	}
	for _, h := range hists {
		assert.Zero(t, HistogramDistance(h, h))
		for _, o := range hists {
			assert.InDelta(t, HistogramDistance(h, o), HistogramDistance(o, h), 1e-12)
		}
	}
	assert.InDelta(t, 1.0, HistogramDistance([]float64{1, 0}, []float64{0, 1}), 1e-5)
	assert.Greater(t, HistogramDistance(hists[1], hists[2]), 0.0)
}

func TestExtractRejectsDegenerateImages(t *testing.T) {
	ex := NewExtractor(nil, nil)

	_, err := ex.Extract(context.Background(), image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.True(t, errors.Is(err, ErrDegenerateImage))

	_, err = ex.Extract(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrDegenerateImage))
}

func TestExtractIsDeterministic(t *testing.T) {
	ex := NewExtractor(nil, nil)
	img := fill(160, 120, pattern)

	a, err := ex.Extract(context.Background(), img)
	require.NoError(t, err)
	b, err := ex.Extract(context.Background(), img)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Zero(t, LabDistance(a, b))
	assert.Zero(t, EdgeDistance(a, b))
}

func TestDifferenceHashFollowsGradient(t *testing.T) {
	ex := NewExtractor(nil, nil)

	rising := fill(192, 128, func(x, y int) uint8 { return uint8(x * 255 / 191) })
	sig, err := ex.Extract(context.Background(), rising)
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), sig.DifferenceHash)

	falling := fill(192, 128, func(x, y int) uint8 { return uint8(255 - x*255/191) })
	sig, err = ex.Extract(context.Background(), falling)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), sig.DifferenceHash)
}

func TestAverageHashOfBlackFrame(t *testing.T) {
	sig, err := NewExtractor(nil, nil).Extract(context.Background(), fill(64, 64, func(x, y int) uint8 { return 0 }))
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), sig.AverageHash)
	assert.Zero(t, sig.Sharpness)
	assert.Zero(t, sig.EdgeDensity)
}

func TestPerceptualHashTopBitUnset(t *testing.T) {
	ex := NewExtractor(nil, nil)
	for _, img := range []image.Image{
		fill(96, 96, pattern),
		fill(120, 80, func(x, y int) uint8 { return uint8((x * y) % 256) }),
		fill(50, 90, func(x, y int) uint8 { return uint8(255 - y) }),
	} {
		sig, err := ex.Extract(context.Background(), img)
		require.NoError(t, err)
		assert.Zero(t, sig.PerceptualHash>>63)
	}
}

func TestBrightnessShiftKeepsHashesClose(t *testing.T) {
	ex := NewExtractor(nil, nil)
	a, err := ex.Extract(context.Background(), fill(160, 120, pattern))
	require.NoError(t, err)
	b, err := ex.Extract(context.Background(), fill(160, 120, func(x, y int) uint8 { return pattern(x, y) + 10 }))
	require.NoError(t, err)

	assert.LessOrEqual(t, HammingDistance(a.AverageHash, b.AverageHash), 2)
	assert.LessOrEqual(t, HammingDistance(a.DifferenceHash, b.DifferenceHash), 2)
	assert.LessOrEqual(t, HammingDistance(a.PerceptualHash, b.PerceptualHash), 2)
}

func TestDCTOfConstantBlock(t *testing.T) {
	in := make([]float64, DCTSize*DCTSize)
	for i := range in {
		in[i] = 1
	}
	out := dct32.transform2D(in)
	assert.InDelta(t, float64(DCTSize), out[0], 1e-9)
	for i := 1; i < len(out); i++ {
		assert.InDelta(t, 0, out[i], 1e-9)
	}
}

func TestLabHistogram(t *testing.T) {
	ex := NewExtractor(nil, nil)

	black, err := ex.Extract(context.Background(), fill(32, 32, func(x, y int) uint8 { return 0 }))
	require.NoError(t, err)
	assert.InDelta(t, 1, black.LabHistogram[0], 1e-9)
	assert.InDelta(t, 1, black.LabHistogram[4+2], 1e-9)
	assert.InDelta(t, 1, black.LabHistogram[8+2], 1e-9)
	assert.InDelta(t, 0, black.LabMean[0], 1e-6)

	white, err := ex.Extract(context.Background(), fill(32, 32, func(x, y int) uint8 { return 255 }))
	require.NoError(t, err)
	assert.InDelta(t, 1, white.LabHistogram[3], 1e-9)
	assert.InDelta(t, 100, white.LabMean[0], 0.01)

	for _, sig := range []Signature{black, white} {
		for c := 0; c < 3; c++ {
			var sum float64
			for _, v := range sig.LabHistogram[c*4 : c*4+4] {
				sum += v
			}
			assert.InDelta(t, 1, sum, 1e-9)
		}
	}
}

func TestEdgeHistogramOrientation(t *testing.T) {
	ex := NewExtractor(nil, nil)
	stripe := func(i int) uint8 {
		if (i/4)%2 == 0 {
			return 0
		}
		return 255
	}

	vertical, err := ex.Extract(context.Background(), fill(96, 96, func(x, y int) uint8 { return stripe(x) }))
	require.NoError(t, err)
	assert.InDelta(t, 1, vertical.EdgeHistogram[0], 1e-3)
	assert.Greater(t, vertical.EdgeDensity, 0.0)

	horizontal, err := ex.Extract(context.Background(), fill(96, 96, func(x, y int) uint8 { return stripe(y) }))
	require.NoError(t, err)
	assert.InDelta(t, 1, horizontal.EdgeHistogram[4], 1e-3)
}

func TestSharpnessOrdering(t *testing.T) {
	ex := NewExtractor(nil, nil)
	checker, err := ex.Extract(context.Background(), fill(96, 96, func(x, y int) uint8 {
		if (x/8+y/8)%2 == 0 {
			return 0
		}
		return 255
	}))
	require.NoError(t, err)
	smooth, err := ex.Extract(context.Background(), fill(96, 96, func(x, y int) uint8 { return uint8(x * 2) }))
	require.NoError(t, err)

	assert.Greater(t, checker.Sharpness, smooth.Sharpness)
	assert.Greater(t, smooth.Sharpness, 0.0)
}

func TestFaceCountDelegation(t *testing.T) {
	img := fill(48, 48, pattern)

	sig, err := NewExtractor(stubFaces{n: 3}, nil).Extract(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, 3, sig.FaceCount)

	sig, err = NewExtractor(stubFaces{err: errors.New("detector offline")}, nil).Extract(context.Background(), img)
	require.NoError(t, err)
	assert.Zero(t, sig.FaceCount)
}
