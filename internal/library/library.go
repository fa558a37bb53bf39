// Package library serves a directory of photos as an asset source, bitmap
// provider and deleter for the grouping engine.
package library

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lazypower/culler/internal/engine"
)

// DefaultExtensions are the file types scanned when none are configured.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}

// TrashDirName is the default trash directory created under the root.
const TrashDirName = ".culler-trash"

// Options configures a Library.
type Options struct {
	Root            string
	Extensions      []string
	TrashDir        string // default: <Root>/.culler-trash
	ModTimeFallback bool   // date photos without EXIF by file modification time
	Logger          *zap.Logger
}

type entry struct {
	asset       engine.Asset
	path        string
	orientation int
}

// Library is a scanned photo directory. Listing order is newest first, then
// undated photos, ties broken by ID.
type Library struct {
	root     string
	trash    string
	exts     map[string]bool
	fallback bool
	logger   *zap.Logger

	mu      sync.RWMutex
	entries []*entry
	byID    map[string]*entry
}

// Open scans root and returns the library.
func Open(ctx context.Context, opts Options) (*Library, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve library root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat library root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library root %s is not a directory", root)
	}

	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	l := &Library{
		root:     root,
		trash:    opts.TrashDir,
		exts:     make(map[string]bool, len(exts)),
		fallback: opts.ModTimeFallback,
		logger:   opts.Logger,
	}
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		l.exts[ext] = true
	}
	if l.trash == "" {
		l.trash = filepath.Join(root, TrashDirName)
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	if err := l.Scan(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// Root returns the absolute library directory.
func (l *Library) Root() string {
	return l.root
}

// TrashDir returns where deleted photos are moved.
func (l *Library) TrashDir() string {
	return l.trash
}

// AssetID derives the stable ID of a photo from its path relative to the
// library root.
func AssetID(rel string) string {
	sum := sha256.Sum256([]byte(filepath.ToSlash(rel)))
	return hex.EncodeToString(sum[:8])
}

// Scan rebuilds the listing from disk. Hidden directories are skipped.
func (l *Library) Scan(ctx context.Context) error {
	start := time.Now()
	var entries []*entry
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.logger.Warn("walk", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != l.root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !l.exts[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		e, err := l.readEntry(path)
		if err != nil {
			l.logger.Warn("skipping unreadable photo", zap.String("path", path), zap.Error(err))
			return nil
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", l.root, err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].asset, entries[j].asset
		if a.HasTimestamp() != b.HasTimestamp() {
			return a.HasTimestamp()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	byID := make(map[string]*entry, len(entries))
	for _, e := range entries {
		byID[e.asset.ID] = e
	}

	l.mu.Lock()
	l.entries = entries
	l.byID = byID
	l.mu.Unlock()

	l.logger.Info("library scanned",
		zap.String("root", l.root),
		zap.Int("photos", len(entries)),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (l *Library) readEntry(path string) (*entry, error) {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return nil, err
	}
	m, err := readMeta(path)
	if err != nil {
		return nil, err
	}
	created := m.taken
	if created.IsZero() && l.fallback {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		created = info.ModTime()
	}
	return &entry{
		asset: engine.Asset{
			ID:        AssetID(rel),
			CreatedAt: created,
			Width:     m.width,
			Height:    m.height,
		},
		path:        path,
		orientation: m.orientation,
	}, nil
}

// Count implements engine.AssetSource.
func (l *Library) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}

// Assets implements engine.AssetSource.
func (l *Library) Assets(ctx context.Context, offset, limit int) ([]engine.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("invalid page offset=%d limit=%d", offset, limit)
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if offset >= len(l.entries) {
		return nil, nil
	}
	end := min(offset+limit, len(l.entries))
	out := make([]engine.Asset, 0, end-offset)
	for _, e := range l.entries[offset:end] {
		out = append(out, e.asset)
	}
	return out, nil
}

// Path returns the file behind an asset ID.
func (l *Library) Path(id string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.byID[id]
	if !ok {
		return "", false
	}
	return e.path, true
}

func (l *Library) lookup(id string) (*entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownAsset, id)
	}
	return e, nil
}
