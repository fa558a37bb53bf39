package signature

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"
)

// FaceDetector counts faces in a decoded image.
type FaceDetector interface {
	CountFaces(ctx context.Context, img image.Image) (int, error)
}

// Extractor computes signatures. It holds no per-image state and is safe for
// concurrent use when its FaceDetector is.
type Extractor struct {
	faces  FaceDetector
	logger *zap.Logger
}

// NewExtractor creates an Extractor. A nil detector reports zero faces.
func NewExtractor(faces FaceDetector, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{faces: faces, logger: logger}
}

// Extract fingerprints an upright bitmap. Any stage that cannot produce a
// valid buffer fails the whole signature; face detection never does.
func (e *Extractor) Extract(ctx context.Context, img image.Image) (Signature, error) {
	var sig Signature

	rgba, err := prepare(img)
	if err != nil {
		return sig, err
	}
	lum := luminance(rgba)

	if sig.AverageHash, err = averageHash(lum); err != nil {
		return sig, fmt.Errorf("average hash: %w", err)
	}
	if sig.DifferenceHash, err = differenceHash(lum); err != nil {
		return sig, fmt.Errorf("difference hash: %w", err)
	}
	if sig.PerceptualHash, err = perceptualHash(lum); err != nil {
		return sig, fmt.Errorf("perceptual hash: %w", err)
	}
	if sig.LabHistogram, sig.LabMean, err = labHistogram(rgba); err != nil {
		return sig, fmt.Errorf("lab histogram: %w", err)
	}
	if sig.EdgeHistogram, sig.EdgeDensity, err = edgeHistogram(lum); err != nil {
		return sig, fmt.Errorf("edge histogram: %w", err)
	}
	if sig.Sharpness, err = sharpness(lum); err != nil {
		return sig, fmt.Errorf("sharpness: %w", err)
	}

	sig.FaceCount = e.countFaces(ctx, img)
	return sig, nil
}

func (e *Extractor) countFaces(ctx context.Context, img image.Image) int {
	if e.faces == nil {
		return 0
	}
	n, err := e.faces.CountFaces(ctx, img)
	if err != nil {
		e.logger.Debug("face detection failed", zap.Error(err))
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}
