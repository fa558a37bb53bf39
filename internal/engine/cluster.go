package engine

import (
	"sort"
	"time"

	"github.com/lazypower/culler/internal/similarity"
)

// Cluster partitions items into near-duplicate groups.
//
// Items without a capture time are skipped. Starting from the newest unused
// item, a group grows by admitting any unused item that lies within window of
// and is similar to at least one current member, repeating until nothing else
// joins. Groups of one are dropped, as are groups whose members are all
// retained. The result is ordered newest group first, members newest first.
func Cluster(items []*Thumbnail, window time.Duration, table similarity.Table) []*Group {
	dated := make([]*Thumbnail, 0, len(items))
	for _, it := range items {
		if it.Asset.HasTimestamp() {
			dated = append(dated, it)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return newerThan(dated[i], dated[j])
	})

	used := make([]bool, len(dated))
	var groups []*Group
	for anchor := range dated {
		if used[anchor] {
			continue
		}
		used[anchor] = true
		members := []int{anchor}
		oldest := anchor

		for grew := true; grew; {
			grew = false
			for j := anchor + 1; j < len(dated); j++ {
				if used[j] {
					continue
				}
				if dated[oldest].Asset.CreatedAt.Sub(dated[j].Asset.CreatedAt) > window {
					break
				}
				if !admits(dated, members, j, window, table) {
					continue
				}
				used[j] = true
				members = append(members, j)
				oldest = max(oldest, j)
				grew = true
			}
		}

		if len(members) < 2 {
			continue
		}
		sort.Ints(members)
		g := &Group{Members: make([]*Thumbnail, len(members))}
		allRetained := true
		for i, idx := range members {
			g.Members[i] = dated[idx]
			allRetained = allRetained && dated[idx].Retained
		}
		if allRetained {
			continue
		}
		groups = append(groups, g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return newerThan(groups[i].Members[0], groups[j].Members[0])
	})
	return groups
}

func admits(dated []*Thumbnail, members []int, cand int, window time.Duration, table similarity.Table) bool {
	c := dated[cand]
	for _, idx := range members {
		m := dated[idx]
		gap := m.Asset.CreatedAt.Sub(c.Asset.CreatedAt)
		if gap < 0 {
			gap = -gap
		}
		if gap > window {
			continue
		}
		if similarity.IsSimilar(m.Signature, c.Signature, table.For(m.Profile, c.Profile)) {
			return true
		}
	}
	return false
}

func newerThan(a, b *Thumbnail) bool {
	if !a.Asset.CreatedAt.Equal(b.Asset.CreatedAt) {
		return a.Asset.CreatedAt.After(b.Asset.CreatedAt)
	}
	return a.Asset.ID < b.Asset.ID
}

// selectBest flags the sharpest member, the first one on ties.
func selectBest(g *Group) {
	var best *Thumbnail
	for _, m := range g.Members {
		m.Best = false
		if best == nil || m.Signature.Sharpness > best.Signature.Sharpness {
			best = m
		}
	}
	if best != nil {
		best.Best = true
	}
}

// applyDefaults checks the best member of a group nobody has checked yet and
// keeps bucket flags of finalized groups in step with the check marks.
func applyDefaults(g *Group) {
	anyChecked := false
	for _, m := range g.Members {
		if m.Checked {
			anyChecked = true
			break
		}
	}
	if !anyChecked {
		if b := g.Best(); b != nil {
			b.Checked = true
		}
	}
	if g.Processed {
		for _, m := range g.Members {
			m.InBucket = !m.Checked
		}
	}
}
