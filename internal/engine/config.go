package engine

import (
	"time"

	"github.com/lazypower/culler/internal/similarity"
)

// Config tunes discovery, quota and grouping.
type Config struct {
	WindowMinutes  int               // clustering time window
	FirstBatch     int               // assets fetched by LoadAll
	NextBatch      int               // assets fetched per replenishment pass
	LookAhead      int               // undisplayed groups kept ahead of the index
	ReplenishBelow int               // look-ahead level that triggers a background fetch
	DailyQuota     int               // groups that may be finalized per calendar day
	BitmapSize     int               // longest side requested from the BitmapProvider
	Tuning         similarity.Tuning // threshold overlay
}

// DefaultConfig returns the stock engine settings.
func DefaultConfig() Config {
	return Config{
		WindowMinutes:  10,
		FirstBatch:     80,
		NextBatch:      40,
		LookAhead:      10,
		ReplenishBelow: 7,
		DailyQuota:     20,
		BitmapSize:     256,
		Tuning:         similarity.DefaultTuning(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.WindowMinutes <= 0 {
		c.WindowMinutes = d.WindowMinutes
	}
	if c.FirstBatch <= 0 {
		c.FirstBatch = d.FirstBatch
	}
	if c.NextBatch <= 0 {
		c.NextBatch = d.NextBatch
	}
	if c.LookAhead <= 0 {
		c.LookAhead = d.LookAhead
	}
	if c.ReplenishBelow <= 0 {
		c.ReplenishBelow = d.ReplenishBelow
	}
	if c.ReplenishBelow > c.LookAhead {
		c.ReplenishBelow = c.LookAhead
	}
	if c.DailyQuota <= 0 {
		c.DailyQuota = d.DailyQuota
	}
	if c.BitmapSize <= 0 {
		c.BitmapSize = d.BitmapSize
	}
	c.Tuning = c.Tuning.Normalize()
	return c
}

func (c Config) window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}
