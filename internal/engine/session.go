package engine

import (
	"go.uber.org/zap"

	"github.com/lazypower/culler/internal/signature"
)

const quotaDayLayout = "2006-01-02"

// Advance finalizes the displayed group and moves to the next discovered one.
// It returns false when there is no further group yet. With the day's quota
// spent it returns ErrQuotaExceeded and changes nothing.
//
// Every successful call consumes one unit of quota, including one that
// passes over a group finalized earlier. Such a group is not finalized again.
func (e *Engine) Advance() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rolloverLocked()
	if e.quotaUsed >= e.cfg.DailyQuota {
		return false, ErrQuotaExceeded
	}
	if e.index >= e.shown || e.index >= len(e.groups) {
		return false, nil
	}

	g := e.groups[e.index]
	if !g.Processed {
		e.finalizeLocked(g)
	}
	e.quotaUsed++
	if err := e.quota.SaveQuota(e.quotaDay, e.quotaUsed); err != nil {
		e.logger.Warn("save quota", zap.Error(err))
	}

	e.promoteLocked()
	moved := false
	if e.index+1 < e.shown {
		e.index++
		moved = true
		e.promoteLocked()
	}
	e.maybeReplenishLocked()
	e.notify()
	return moved, nil
}

func (e *Engine) finalizeLocked(g *Group) {
	var ids []string
	var sigs []signature.Signature
	for _, m := range g.Members {
		if m.Checked {
			ids = append(ids, m.ID())
			sigs = append(sigs, m.Signature)
		}
	}
	if len(ids) > 0 {
		if err := e.retention.MarkRetained(ids, sigs); err != nil {
			e.logger.Warn("mark retained", zap.Strings("assets", ids), zap.Error(err))
		}
	}
	for _, m := range g.Members {
		if m.Checked {
			m.Retained = true
		}
		m.InBucket = !m.Checked
	}
	g.Processed = true
	e.logger.Debug("group finalized", zap.String("group", g.Key()), zap.Int("kept", len(ids)))
}

// ToggleCheck flips the keep mark of an asset.
func (e *Engine) ToggleCheck(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.pool[id]
	if !ok {
		return ErrUnknownAsset
	}
	e.setCheckLocked(t, !t.Checked)
	return nil
}

// SetCheck sets the keep mark of an asset.
func (e *Engine) SetCheck(id string, checked bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.pool[id]
	if !ok {
		return ErrUnknownAsset
	}
	e.setCheckLocked(t, checked)
	return nil
}

func (e *Engine) setCheckLocked(t *Thumbnail, checked bool) {
	t.Checked = checked
	if g := e.groupOf[t.ID()]; g != nil && g.Processed {
		t.InBucket = !checked
	}
	e.notify()
}

// rolloverLocked resets the quota on the first call of a new calendar day.
func (e *Engine) rolloverLocked() {
	if day := e.dayKey(); day != e.quotaDay {
		e.quotaDay = day
		e.quotaUsed = 0
	}
}

func (e *Engine) dayKey() string {
	return e.now().Local().Format(quotaDayLayout)
}
