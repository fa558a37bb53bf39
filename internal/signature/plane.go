package signature

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// plane is a single-channel float buffer in row-major order.
type plane struct {
	w, h int
	px   []float64
}

func newPlane(w, h int) plane {
	return plane{w: w, h: h, px: make([]float64, w*h)}
}

func (p plane) at(x, y int) float64 {
	return p.px[y*p.w+x]
}

func (p plane) valid() bool {
	return p.w > 0 && p.h > 0 && len(p.px) == p.w*p.h
}

// prepare resamples img to the working resolution with bilinear filtering.
func prepare(img image.Image) (*image.RGBA, error) {
	if img == nil {
		return nil, ErrDegenerateImage
	}
	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return nil, ErrDegenerateImage
	}
	dst := image.NewRGBA(image.Rect(0, 0, WorkingSize, WorkingSize))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}

// luminance converts an RGBA raster to Rec.601 luma in [0,1].
func luminance(img *image.RGBA) plane {
	b := img.Bounds()
	p := newPlane(b.Dx(), b.Dy())
	for y := 0; y < p.h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < p.w; x++ {
			r := float64(row[x*4]) / 255
			g := float64(row[x*4+1]) / 255
			bl := float64(row[x*4+2]) / 255
			p.px[y*p.w+x] = 0.299*r + 0.587*g + 0.114*bl
		}
	}
	return p
}

// resample scales the plane to w x h with bilinear interpolation, sampling at
// pixel centers.
func (p plane) resample(w, h int) (plane, error) {
	if !p.valid() || w < 1 || h < 1 {
		return plane{}, ErrDegenerateImage
	}
	out := newPlane(w, h)
	sx := float64(p.w) / float64(w)
	sy := float64(p.h) / float64(h)
	for y := 0; y < h; y++ {
		y0, y1, ty := sampleCoords(float64(y), sy, p.h)
		for x := 0; x < w; x++ {
			x0, x1, tx := sampleCoords(float64(x), sx, p.w)
			top := p.at(x0, y0)*(1-tx) + p.at(x1, y0)*tx
			bottom := p.at(x0, y1)*(1-tx) + p.at(x1, y1)*tx
			out.px[y*w+x] = top*(1-ty) + bottom*ty
		}
	}
	return out, nil
}

func sampleCoords(dst, scale float64, n int) (int, int, float64) {
	f := (dst+0.5)*scale - 0.5
	if f < 0 {
		f = 0
	}
	if limit := float64(n - 1); f > limit {
		f = limit
	}
	i0 := int(math.Floor(f))
	i1 := min(i0+1, n-1)
	return i0, i1, f - float64(i0)
}

func (p plane) mean() float64 {
	if len(p.px) == 0 {
		return 0
	}
	var sum float64
	for _, v := range p.px {
		sum += v
	}
	return sum / float64(len(p.px))
}
