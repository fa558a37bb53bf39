package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Bucket lists the assets queued for deletion across finalized groups.
func (e *Engine) Bucket() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bucketLocked()
}

func (e *Engine) bucketLocked() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, g := range e.groups {
		if !g.Processed {
			continue
		}
		for _, m := range g.Members {
			if m.InBucket && !seen[m.ID()] {
				seen[m.ID()] = true
				ids = append(ids, m.ID())
			}
		}
	}
	return ids
}

// DeleteBucket deletes every bucketed asset in one call to the Deleter. On
// failure nothing in the session changes.
func (e *Engine) DeleteBucket(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := e.bucketLocked()
	if len(ids) == 0 {
		return 0, ErrEmptyBucket
	}

	n, err := e.deleter.Delete(ctx, ids)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return 0, fmt.Errorf("delete %d assets: %w", len(ids), err)
		}
		return 0, &ChangesFailedError{Cause: err}
	}

	for _, id := range ids {
		delete(e.pool, id)
		delete(e.groupOf, id)
	}
	e.cursor = max(e.cursor-len(ids), 0)
	e.total = max(e.total-len(ids), 0)
	e.generation++
	e.logger.Info("deleted bucket", zap.Int("assets", n))
	e.refreshLocked()
	return n, nil
}
