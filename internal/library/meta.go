package library

import (
	"fmt"
	"image"
	"io"
	"os"
	"time"

	// Decoders for image.DecodeConfig and image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/rwcarlsen/goexif/exif"
)

type meta struct {
	width, height int
	taken         time.Time
	orientation   int
}

// readMeta reads pixel size, capture time and EXIF orientation. Dimensions
// are reported upright, so 90 degree orientations swap them.
func readMeta(path string) (meta, error) {
	m := meta{orientation: 1}

	f, err := os.Open(path)
	if err != nil {
		return m, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return m, fmt.Errorf("decode config: %w", err)
	}
	m.width, m.height = cfg.Width, cfg.Height

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return m, err
	}
	if x, err := exif.Decode(f); err == nil {
		if t, err := x.DateTime(); err == nil {
			m.taken = t
		}
		if tag, err := x.Get(exif.Orientation); err == nil {
			if o, err := tag.Int(0); err == nil && o >= 1 && o <= 8 {
				m.orientation = o
			}
		}
	}

	if m.orientation >= 5 {
		m.width, m.height = m.height, m.width
	}
	return m, nil
}
