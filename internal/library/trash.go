package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lazypower/culler/internal/engine"
)

type move struct {
	id       string
	from, to string
}

// Delete implements engine.Deleter by moving photos into the trash
// directory. Either every photo is moved or none is.
func (l *Library) Delete(ctx context.Context, ids []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	entries := make([]*entry, 0, len(ids))
	for _, id := range ids {
		e, err := l.lookup(id)
		if err != nil {
			return 0, err
		}
		entries = append(entries, e)
	}

	if err := os.MkdirAll(l.trash, 0o755); err != nil {
		return 0, classify(fmt.Errorf("create trash: %w", err))
	}

	moved := make([]move, 0, len(entries))
	for _, e := range entries {
		m := move{
			id:   e.asset.ID,
			from: e.path,
			to:   filepath.Join(l.trash, e.asset.ID+"-"+filepath.Base(e.path)),
		}
		if err := os.Rename(m.from, m.to); err != nil {
			l.rollback(moved)
			return 0, classify(fmt.Errorf("move %s to trash: %w", m.from, err))
		}
		moved = append(moved, m)
	}

	l.forget(ids)
	l.logger.Info("moved photos to trash", zap.Int("count", len(moved)), zap.String("trash", l.trash))
	return len(moved), nil
}

func (l *Library) rollback(moved []move) {
	for i := len(moved) - 1; i >= 0; i-- {
		m := moved[i]
		if err := os.Rename(m.to, m.from); err != nil {
			l.logger.Error("restore from trash failed",
				zap.String("id", m.id),
				zap.String("path", m.from),
				zap.Error(err),
			)
		}
	}
}

func (l *Library) forget(ids []string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0:0]
	for _, e := range l.entries {
		if drop[e.asset.ID] {
			delete(l.byID, e.asset.ID)
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
}

// classify maps permission failures onto the engine's authorization error.
func classify(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %v", engine.ErrUnauthorized, err)
	}
	return err
}
