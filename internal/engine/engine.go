// Package engine groups near-duplicate photos and drives the review session:
// incremental discovery, best-shot selection, quota-gated finalization,
// retention and deletion.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/lazypower/culler/internal/signature"
	"github.com/lazypower/culler/internal/similarity"
)

// Deps are the collaborators an Engine drives. Source, Bitmaps, Retention and
// Deleter are required.
type Deps struct {
	Source    AssetSource
	Bitmaps   BitmapProvider
	Retention RetentionStore
	Deleter   Deleter

	Extractor Extractor        // default: signature extractor without face detection
	Quota     QuotaStore       // default: in-memory
	Cache     SignatureCache   // default: none
	Logger    *zap.Logger      // default: no-op
	Clock     func() time.Time // default: time.Now
}

// Engine is the single writer over all session state. Every exported method
// is safe for concurrent use; reads return copies.
type Engine struct {
	cfg       Config
	source    AssetSource
	bitmaps   BitmapProvider
	retention RetentionStore
	deleter   Deleter
	extractor Extractor
	quota     QuotaStore
	cache     SignatureCache
	logger    *zap.Logger
	now       func() time.Time

	mu         sync.Mutex
	pool       map[string]*Thumbnail
	groups     []*Group
	groupOf    map[string]*Group
	shown      int // length of the discovered prefix of groups
	index      int
	cursor     int
	total      int
	exhausted  bool
	loading    bool
	generation uint64
	window     time.Duration
	tuning     similarity.Tuning
	table      similarity.Table
	quotaDay   string
	quotaUsed  int

	fetch   *semaphore.Weighted
	changes chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an Engine. Nothing is fetched until LoadAll.
func New(cfg Config, deps Deps) (*Engine, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("engine: asset source is required")
	case deps.Bitmaps == nil:
		return nil, errors.New("engine: bitmap provider is required")
	case deps.Retention == nil:
		return nil, errors.New("engine: retention store is required")
	case deps.Deleter == nil:
		return nil, errors.New("engine: deleter is required")
	}
	cfg = cfg.withDefaults()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	extractor := deps.Extractor
	if extractor == nil {
		extractor = signature.NewExtractor(nil, logger)
	}
	quota := deps.Quota
	if quota == nil {
		quota = &memoryQuota{}
	}
	cache := deps.Cache
	if cache == nil {
		cache = noCache{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:       cfg,
		source:    deps.Source,
		bitmaps:   deps.Bitmaps,
		retention: deps.Retention,
		deleter:   deps.Deleter,
		extractor: extractor,
		quota:     quota,
		cache:     cache,
		logger:    logger,
		now:       clock,
		pool:      make(map[string]*Thumbnail),
		groupOf:   make(map[string]*Group),
		window:    cfg.window(),
		tuning:    cfg.Tuning,
		table:     similarity.NewTable(cfg.Tuning),
		fetch:     semaphore.NewWeighted(1),
		changes:   make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
	}

	day, used, err := quota.LoadQuota()
	if err != nil {
		logger.Warn("load quota", zap.Error(err))
	} else if day == e.dayKey() {
		e.quotaDay, e.quotaUsed = day, used
	}
	return e, nil
}

// Changes delivers a value after state changes. Notifications coalesce: a
// slow reader sees one pending signal, then should take a fresh Snapshot.
func (e *Engine) Changes() <-chan struct{} {
	return e.changes
}

// Close stops background replenishment and waits for it to exit.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.cancel()
	e.mu.Unlock()
	e.wg.Wait()
	return nil
}

func (e *Engine) notify() {
	select {
	case e.changes <- struct{}{}:
	default:
	}
}

// SetWindowMinutes changes the clustering window and regroups.
func (e *Engine) SetWindowMinutes(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidWindow, n)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.window = time.Duration(n) * time.Minute
	e.refreshLocked()
	return nil
}

// SetTuning replaces the threshold overlay and regroups.
func (e *Engine) SetTuning(t similarity.Tuning) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tuning = t.Normalize()
	e.table = similarity.NewTable(e.tuning)
	e.refreshLocked()
}

// SetPreset applies a named tuning preset.
func (e *Engine) SetPreset(p similarity.Preset) {
	e.SetTuning(p.Tuning())
}

// ResetRetention forgets every kept asset so settled groups can surface again.
func (e *Engine) ResetRetention() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.retention.ClearRetained(); err != nil {
		e.logger.Warn("clear retention", zap.Error(err))
		return fmt.Errorf("clear retention: %w", err)
	}
	for _, t := range e.pool {
		t.Retained = false
	}
	e.refreshLocked()
	return nil
}

func (e *Engine) refreshLocked() {
	e.reclusterLocked()
	e.maybeReplenishLocked()
	e.notify()
}
