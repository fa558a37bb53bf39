package engine

import (
	"time"

	"github.com/lazypower/culler/internal/similarity"
)

// ThumbnailView is a read-only copy of a group member.
type ThumbnailView struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Profile   string    `json:"profile"`
	Sharpness float64   `json:"sharpness"`
	FaceCount int       `json:"face_count"`
	Checked   bool      `json:"checked"`
	InBucket  bool      `json:"in_bucket"`
	Best      bool      `json:"best"`
	Retained  bool      `json:"retained"`
}

// GroupView is a read-only copy of a group.
type GroupView struct {
	Key        string          `json:"key"`
	Index      int             `json:"index"`
	Processed  bool            `json:"processed"`
	Discovered bool            `json:"discovered"`
	Members    []ThumbnailView `json:"members"`
}

// Snapshot is the observable session state at one instant.
type Snapshot struct {
	Current        *GroupView        `json:"current,omitempty"`
	Index          int               `json:"index"`
	Discovered     int               `json:"discovered"`
	Queued         int               `json:"queued"`
	Pool           int               `json:"pool"`
	Scanned        int               `json:"scanned"`
	Total          int               `json:"total"`
	Bucket         int               `json:"bucket"`
	Loading        bool              `json:"loading"`
	Exhausted      bool              `json:"exhausted"`
	QuotaUsed      int               `json:"quota_used"`
	QuotaRemaining int               `json:"quota_remaining"`
	DailyQuota     int               `json:"daily_quota"`
	WindowMinutes  int               `json:"window_minutes"`
	Tuning         similarity.Tuning `json:"tuning"`
}

// Snapshot returns the current session state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rolloverLocked()

	s := Snapshot{
		Index:          e.index,
		Discovered:     e.shown,
		Queued:         len(e.groups) - e.shown,
		Pool:           len(e.pool),
		Scanned:        e.cursor,
		Total:          e.total,
		Bucket:         len(e.bucketLocked()),
		Loading:        e.loading,
		Exhausted:      e.exhausted,
		QuotaUsed:      e.quotaUsed,
		QuotaRemaining: max(e.cfg.DailyQuota-e.quotaUsed, 0),
		DailyQuota:     e.cfg.DailyQuota,
		WindowMinutes:  int(e.window / time.Minute),
		Tuning:         e.tuning,
	}
	if e.index < e.shown {
		v := e.viewLocked(e.index)
		s.Current = &v
	}
	return s
}

// Groups returns every clustered group, discovered ones first.
func (e *Engine) Groups() []GroupView {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]GroupView, len(e.groups))
	for i := range e.groups {
		out[i] = e.viewLocked(i)
	}
	return out
}

func (e *Engine) viewLocked(i int) GroupView {
	g := e.groups[i]
	v := GroupView{
		Key:        g.Key(),
		Index:      i,
		Processed:  g.Processed,
		Discovered: i < e.shown,
		Members:    make([]ThumbnailView, len(g.Members)),
	}
	for j, m := range g.Members {
		v.Members[j] = ThumbnailView{
			ID:        m.ID(),
			CreatedAt: m.Asset.CreatedAt,
			Width:     m.Asset.Width,
			Height:    m.Asset.Height,
			Profile:   m.Profile.String(),
			Sharpness: m.Signature.Sharpness,
			FaceCount: m.Signature.FaceCount,
			Checked:   m.Checked,
			InBucket:  m.InBucket,
			Best:      m.Best,
			Retained:  m.Retained,
		}
	}
	return v
}
