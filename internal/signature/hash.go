package signature

// averageHash samples the luminance at 8x8 and sets bit i (most significant
// first) when the sample is at or above the block mean.
func averageHash(lum plane) (uint64, error) {
	small, err := lum.resample(8, 8)
	if err != nil {
		return 0, err
	}
	mean := small.mean()
	var hash uint64
	for i, v := range small.px {
		if v >= mean {
			hash |= 1 << uint(63-i)
		}
	}
	return hash, nil
}

// differenceHash samples the luminance at 9x8 and sets one bit per
// horizontal neighbour pair that gets brighter left to right.
func differenceHash(lum plane) (uint64, error) {
	small, err := lum.resample(9, 8)
	if err != nil {
		return 0, err
	}
	var hash uint64
	bit := 63
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if small.at(x, y) < small.at(x+1, y) {
				hash |= 1 << uint(bit)
			}
			bit--
		}
	}
	return hash, nil
}

// perceptualHash thresholds the 63 lowest non-DC DCT coefficients of a 32x32
// downsample against their mean. Coefficient k (row-major in the 8x8 block)
// maps to bit k-1, so the top bit is always clear.
func perceptualHash(lum plane) (uint64, error) {
	small, err := lum.resample(DCTSize, DCTSize)
	if err != nil {
		return 0, err
	}
	coeffs := dct32.transform2D(small.px)

	var block [64]float64
	for u := 0; u < 8; u++ {
		for v := 0; v < 8; v++ {
			block[u*8+v] = coeffs[u*DCTSize+v]
		}
	}

	var sum float64
	for _, c := range block[1:] {
		sum += c
	}
	mean := sum / 63

	var hash uint64
	for k := 1; k < 64; k++ {
		if block[k] >= mean {
			hash |= 1 << uint(k-1)
		}
	}
	return hash, nil
}
