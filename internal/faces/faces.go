// Package faces provides face detectors for signature extraction.
package faces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Noop never finds a face.
type Noop struct{}

func (Noop) CountFaces(ctx context.Context, img image.Image) (int, error) {
	return 0, nil
}

// noFaceCode is the service's error code for "no face in the image".
const noFaceCode = 28

// HTTPConfig configures an HTTPDetector.
type HTTPConfig struct {
	URL               string
	APIKey            string
	Threshold         float64       // minimum detection probability
	RequestsPerSecond float64       // 0 means unlimited
	Timeout           time.Duration // per request
}

// HTTPDetector counts faces by posting a JPEG to a CompreFace-style
// detection endpoint.
type HTTPDetector struct {
	endpoint string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewHTTPDetector creates a detector for the service at cfg.URL.
func NewHTTPDetector(cfg HTTPConfig, logger *zap.Logger) (*HTTPDetector, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("face detector url is empty")
	}
	u, err := url.Parse(strings.TrimRight(cfg.URL, "/") + "/api/v1/detection/detect")
	if err != nil {
		return nil, fmt.Errorf("parse face detector url: %w", err)
	}
	if cfg.Threshold > 0 {
		q := u.Query()
		q.Set("det_prob_threshold", strconv.FormatFloat(cfg.Threshold, 'f', -1, 64))
		u.RawQuery = q.Encode()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &HTTPDetector{
		endpoint: u.String(),
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: cfg.Timeout},
		limiter:  limiter,
		logger:   logger,
	}, nil
}

type detectResponse struct {
	Result []struct {
		Box struct {
			Probability float64 `json:"probability"`
		} `json:"box"`
	} `json:"result"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// CountFaces uploads img and returns the number of detected faces.
func (d *HTTPDetector) CountFaces(ctx context.Context, img image.Image) (int, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "image.jpg")
	if err != nil {
		return 0, fmt.Errorf("create form file: %w", err)
	}
	if err := jpeg.Encode(part, img, &jpeg.Options{Quality: 85}); err != nil {
		return 0, fmt.Errorf("encode jpeg: %w", err)
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, &body)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if d.apiKey != "" {
		req.Header.Set("x-api-key", d.apiKey)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("POST %s: %w", d.endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	var out detectResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= 400 {
		if out.Code == noFaceCode {
			return 0, nil
		}
		return 0, fmt.Errorf("face detection: status %d: %s", resp.StatusCode, out.Message)
	}
	d.logger.Debug("faces detected", zap.Int("count", len(out.Result)))
	return len(out.Result), nil
}
