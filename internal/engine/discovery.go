package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lazypower/culler/internal/signature"
	"github.com/lazypower/culler/internal/similarity"
)

// LoadAll resets the session and fetches the first batch of assets. If the
// look-ahead is still short afterwards, a background pass keeps fetching.
func (e *Engine) LoadAll(ctx context.Context) error {
	if err := e.fetch.Acquire(ctx, 1); err != nil {
		return err
	}
	err := e.loadFirst(ctx)
	e.fetch.Release(1)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.maybeReplenishLocked()
	e.mu.Unlock()
	return nil
}

func (e *Engine) loadFirst(ctx context.Context) error {
	e.mu.Lock()
	e.generation++
	e.pool = make(map[string]*Thumbnail)
	e.groups = nil
	e.groupOf = make(map[string]*Group)
	e.shown, e.index, e.cursor = 0, 0, 0
	e.exhausted = false
	e.notify()
	e.mu.Unlock()

	total, err := e.source.Count(ctx)
	if err != nil {
		return fmt.Errorf("count assets: %w", err)
	}
	e.mu.Lock()
	e.total = total
	e.mu.Unlock()

	_, err = e.fetchBatch(ctx, e.cfg.FirstBatch)
	return err
}

// LoadRemaining fetches batches until the asset stream is exhausted or ctx
// is cancelled.
func (e *Engine) LoadRemaining(ctx context.Context) error {
	if err := e.fetch.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.fetch.Release(1)

	for {
		e.mu.Lock()
		done := e.exhausted
		e.mu.Unlock()
		if done || ctx.Err() != nil {
			return ctx.Err()
		}
		progressed, err := e.fetchBatch(ctx, e.cfg.NextBatch)
		if err != nil {
			return err
		}
		if !progressed {
			return ctx.Err()
		}
	}
}

// Wait blocks until no fetch pass is in flight.
func (e *Engine) Wait(ctx context.Context) error {
	if err := e.fetch.Acquire(ctx, 1); err != nil {
		return err
	}
	e.fetch.Release(1)
	return nil
}

// fetchBatch reads up to limit assets at the cursor, extracts their
// signatures without holding the lock and commits them unless a reset or
// deletion happened meanwhile. The caller holds e.fetch.
func (e *Engine) fetchBatch(ctx context.Context, limit int) (bool, error) {
	e.mu.Lock()
	offset, gen := e.cursor, e.generation
	e.loading = true
	e.mu.Unlock()

	assets, err := e.source.Assets(ctx, offset, limit)
	if err != nil {
		e.mu.Lock()
		e.loading = false
		e.mu.Unlock()
		return false, fmt.Errorf("fetch assets at %d: %w", offset, err)
	}

	thumbs, processed := e.extractBatch(ctx, assets)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading = false
	if gen != e.generation {
		e.logger.Debug("discarding stale batch", zap.Int("offset", offset))
		return true, nil
	}

	for _, t := range thumbs {
		if _, ok := e.pool[t.ID()]; ok {
			continue
		}
		t.Retained = e.isRetained(t.ID())
		e.pool[t.ID()] = t
	}
	e.cursor += processed
	if processed == len(assets) && len(assets) < limit {
		e.exhausted = true
	}
	e.logger.Debug("batch committed",
		zap.Int("offset", offset),
		zap.Int("assets", len(assets)),
		zap.Int("signed", len(thumbs)),
		zap.Int("pool", len(e.pool)),
	)
	e.refreshLocked()
	return processed > 0, nil
}

// extractBatch signs assets one at a time. It stops at cancellation and
// returns what it has, plus how many assets were fully handled. Assets that
// fail extraction count as handled and are skipped.
func (e *Engine) extractBatch(ctx context.Context, assets []Asset) ([]*Thumbnail, int) {
	out := make([]*Thumbnail, 0, len(assets))
	for i, a := range assets {
		if ctx.Err() != nil {
			return out, i
		}
		sig, err := e.signatureFor(ctx, a)
		if err != nil {
			if ctx.Err() != nil {
				return out, i
			}
			e.logger.Warn("skipping asset", zap.String("asset", a.ID), zap.Error(err))
			continue
		}
		out = append(out, &Thumbnail{
			Asset:     a,
			Signature: sig,
			Profile:   similarity.Classify(sig, a.Width, a.Height),
		})
	}
	return out, len(assets)
}

func (e *Engine) signatureFor(ctx context.Context, a Asset) (signature.Signature, error) {
	if sig, ok := e.cache.Get(a.ID); ok {
		return sig, nil
	}
	img, err := e.bitmaps.Bitmap(ctx, a.ID, e.cfg.BitmapSize)
	if err != nil {
		return signature.Signature{}, fmt.Errorf("bitmap %s: %w", a.ID, err)
	}
	sig, err := e.extractor.Extract(ctx, img)
	if err != nil {
		return signature.Signature{}, fmt.Errorf("extract %s: %w", a.ID, err)
	}
	// Face detection degrades to zero faces on error, so a cancelled
	// extraction can look successful. Keep it out of the cache.
	if err := ctx.Err(); err != nil {
		return signature.Signature{}, fmt.Errorf("extract %s: %w", a.ID, err)
	}
	e.cache.Put(a.ID, sig)
	return sig, nil
}

func (e *Engine) isRetained(id string) bool {
	ok, err := e.retention.IsRetained(id)
	if err != nil {
		e.logger.Warn("retention lookup", zap.String("asset", id), zap.Error(err))
		return false
	}
	return ok
}

// reclusterLocked regroups the whole pool and carries user state over from
// the previous grouping.
func (e *Engine) reclusterLocked() {
	var prevKey string
	if e.index < e.shown && e.index < len(e.groups) {
		prevKey = e.groups[e.index].Key()
	}
	processed := make(map[string]bool)
	for _, g := range e.groups {
		if g.Processed {
			processed[g.Key()] = true
		}
	}

	items := make([]*Thumbnail, 0, len(e.pool))
	for _, t := range e.pool {
		t.Best = false
		items = append(items, t)
	}
	groups := Cluster(items, e.window, e.table)

	groupOf := make(map[string]*Group, len(items))
	next := -1
	for i, g := range groups {
		g.Processed = processed[g.Key()]
		selectBest(g)
		applyDefaults(g)
		for _, m := range g.Members {
			groupOf[m.ID()] = g
		}
		if next < 0 && prevKey != "" && g.Key() == prevKey {
			next = i
		}
	}
	if next < 0 {
		next = min(e.index, max(len(groups)-1, 0))
	}

	e.groups = groups
	e.groupOf = groupOf
	e.index = next
	e.shown = min(max(e.shown, e.index+1), len(groups))
	e.promoteLocked()
}

// promoteLocked moves queued groups into the discovered prefix until
// LookAhead undisplayed groups sit ahead of the index.
func (e *Engine) promoteLocked() {
	target := min(len(e.groups), e.index+1+e.cfg.LookAhead)
	if e.shown < target {
		e.shown = target
	}
}

func (e *Engine) lookAheadLocked() int {
	return max(e.shown-e.index-1, 0)
}

// maybeReplenishLocked starts a background fetch pass when the look-ahead
// runs low. Only one pass runs at a time; a request made while one is in
// flight is dropped, since the running pass rechecks the buffer each round.
func (e *Engine) maybeReplenishLocked() {
	if e.exhausted || e.lookAheadLocked() >= e.cfg.ReplenishBelow || e.ctx.Err() != nil {
		return
	}
	if !e.fetch.TryAcquire(1) {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.fetch.Release(1)
		e.replenish(e.ctx)
	}()
}

func (e *Engine) replenish(ctx context.Context) {
	for ctx.Err() == nil {
		e.mu.Lock()
		need := !e.exhausted && e.lookAheadLocked() < e.cfg.ReplenishBelow
		e.mu.Unlock()
		if !need {
			return
		}
		progressed, err := e.fetchBatch(ctx, e.cfg.NextBatch)
		if err != nil {
			e.logger.Warn("replenish", zap.Error(err))
			return
		}
		if !progressed {
			return
		}
	}
}
