package engine

import (
	"context"
	"image"
	"sync"

	"github.com/lazypower/culler/internal/signature"
)

// AssetSource enumerates assets in a stable order. Deleted assets disappear
// and later offsets shift down accordingly.
type AssetSource interface {
	Count(ctx context.Context) (int, error)
	Assets(ctx context.Context, offset, limit int) ([]Asset, error)
}

// BitmapProvider decodes an asset to an upright raster no larger than size
// on its longest side.
type BitmapProvider interface {
	Bitmap(ctx context.Context, id string, size int) (image.Image, error)
}

// Extractor turns a bitmap into a Signature. *signature.Extractor satisfies it.
type Extractor interface {
	Extract(ctx context.Context, img image.Image) (signature.Signature, error)
}

// RetentionStore records assets the user explicitly kept.
type RetentionStore interface {
	IsRetained(id string) (bool, error)
	MarkRetained(ids []string, sigs []signature.Signature) error
	ClearRetained() error
}

// QuotaStore persists the daily advance counter.
type QuotaStore interface {
	LoadQuota() (day string, used int, err error)
	SaveQuota(day string, used int) error
}

// SignatureCache remembers signatures by asset ID.
type SignatureCache interface {
	Get(id string) (signature.Signature, bool)
	Put(id string, sig signature.Signature)
}

// Deleter removes assets. It is all-or-nothing: on error nothing was deleted.
type Deleter interface {
	Delete(ctx context.Context, ids []string) (int, error)
}

// memoryQuota is the QuotaStore used when none is configured.
type memoryQuota struct {
	mu   sync.Mutex
	day  string
	used int
}

func (m *memoryQuota) LoadQuota() (string, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.day, m.used, nil
}

func (m *memoryQuota) SaveQuota(day string, used int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.day, m.used = day, used
	return nil
}

type noCache struct{}

func (noCache) Get(string) (signature.Signature, bool) { return signature.Signature{}, false }
func (noCache) Put(string, signature.Signature)        {}
