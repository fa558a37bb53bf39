package signature

import "math"

// dct is an orthonormal type-II discrete cosine transform of a fixed size.
type dct struct {
	n     int
	basis []float64 // basis[k*n+i] = alpha(k) * cos(pi*(2i+1)k / 2n)
}

var dct32 = newDCT(DCTSize)

func newDCT(n int) *dct {
	d := &dct{n: n, basis: make([]float64, n*n)}
	for k := 0; k < n; k++ {
		alpha := math.Sqrt(2 / float64(n))
		if k == 0 {
			alpha = math.Sqrt(1 / float64(n))
		}
		for i := 0; i < n; i++ {
			d.basis[k*n+i] = alpha * math.Cos(math.Pi*float64(2*i+1)*float64(k)/float64(2*n))
		}
	}
	return d
}

// transform1D writes the DCT of n samples read with the given stride into out.
func (d *dct) transform1D(in []float64, offset, stride int, out []float64) {
	for k := 0; k < d.n; k++ {
		row := d.basis[k*d.n : (k+1)*d.n]
		var sum float64
		for i, b := range row {
			sum += in[offset+i*stride] * b
		}
		out[k] = sum
	}
}

// transform2D applies the transform to every row, then every column, of an
// n x n row-major block.
func (d *dct) transform2D(in []float64) []float64 {
	n := d.n
	rows := make([]float64, n*n)
	for r := 0; r < n; r++ {
		d.transform1D(in, r*n, 1, rows[r*n:(r+1)*n])
	}

	out := make([]float64, n*n)
	col := make([]float64, n)
	for c := 0; c < n; c++ {
		d.transform1D(rows, c, n, col)
		for k := 0; k < n; k++ {
			out[k*n+c] = col[k]
		}
	}
	return out
}
