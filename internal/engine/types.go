package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/lazypower/culler/internal/signature"
	"github.com/lazypower/culler/internal/similarity"
)

// Asset is one photo as reported by an AssetSource. A zero CreatedAt means
// the capture time is unknown; such assets are never clustered.
type Asset struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
}

// HasTimestamp reports whether the asset carries a capture time.
func (a Asset) HasTimestamp() bool {
	return !a.CreatedAt.IsZero()
}

// Thumbnail is a signed asset plus the review flags the user edits. Its
// identity is the asset ID; pixels are re-requested from the BitmapProvider.
type Thumbnail struct {
	Asset     Asset
	Signature signature.Signature
	Profile   similarity.Profile

	Checked  bool
	InBucket bool
	Best     bool
	Retained bool
}

// ID returns the asset ID.
func (t *Thumbnail) ID() string {
	return t.Asset.ID
}

// Group is a cluster of near-duplicates, newest member first.
type Group struct {
	Members   []*Thumbnail
	Processed bool

	key string
}

// Key identifies a group across reclustering by its sorted member IDs.
func (g *Group) Key() string {
	if g.key == "" {
		g.key = groupKey(g.Members)
	}
	return g.key
}

// Newest returns the capture time of the group's newest member.
func (g *Group) Newest() time.Time {
	if len(g.Members) == 0 {
		return time.Time{}
	}
	return g.Members[0].Asset.CreatedAt
}

// Best returns the member flagged as best, or nil.
func (g *Group) Best() *Thumbnail {
	for _, m := range g.Members {
		if m.Best {
			return m
		}
	}
	return nil
}

func groupKey(members []*Thumbnail) string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.Asset.ID
	}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}
