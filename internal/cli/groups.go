package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lazypower/culler/internal/engine"
)

// pathFunc resolves an asset ID to something printable. nil prints IDs.
type pathFunc func(id string) (string, bool)

func groupRows(groups []engine.GroupView, name pathFunc) [][]string {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		var best engine.ThumbnailView
		var newest time.Time
		queued := 0
		for _, m := range g.Members {
			if m.Best {
				best = m
			}
			if m.CreatedAt.After(newest) {
				newest = m.CreatedAt
			}
			if m.InBucket {
				queued++
			}
		}
		state := "pending"
		if g.Processed {
			state = "done"
		} else if !g.Discovered {
			state = "queued"
		}
		rows = append(rows, []string{
			strconv.Itoa(g.Index + 1),
			strconv.Itoa(len(g.Members)),
			label(best.ID, name),
			best.Profile,
			fmt.Sprintf("%.1f", best.Sharpness),
			formatTime(newest),
			state,
			strconv.Itoa(queued),
		})
	}
	return rows
}

var groupHeaders = []string{"#", "Photos", "Best", "Scene", "Sharpness", "Newest", "State", "Delete"}

var groupAligns = []columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight}

func memberRows(g engine.GroupView, name pathFunc) [][]string {
	rows := make([][]string, 0, len(g.Members))
	for _, m := range g.Members {
		var marks []string
		if m.Best {
			marks = append(marks, "best")
		}
		if m.Checked {
			marks = append(marks, "keep")
		}
		if m.InBucket {
			marks = append(marks, "delete")
		}
		rows = append(rows, []string{
			m.ID,
			label(m.ID, name),
			formatTime(m.CreatedAt),
			fmt.Sprintf("%dx%d", m.Width, m.Height),
			fmt.Sprintf("%.1f", m.Sharpness),
			strings.Join(marks, ","),
		})
	}
	return rows
}

var memberHeaders = []string{"ID", "File", "Taken", "Size", "Sharpness", "Marks"}

var memberAligns = []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}

func label(id string, name pathFunc) string {
	if name != nil {
		if p, ok := name(id); ok {
			return filepath.Base(p)
		}
	}
	return id
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func printSnapshot(w io.Writer, s engine.Snapshot) {
	fmt.Fprintf(w, "scanned %d/%d photos, %d groups discovered, %d queued\n", s.Scanned, s.Total, s.Discovered, s.Queued)
	fmt.Fprintf(w, "quota: %d/%d used today, window: %d min, bucket: %d\n", s.QuotaUsed, s.DailyQuota, s.WindowMinutes, s.Bucket)
	if s.Loading {
		fmt.Fprintln(w, "still loading...")
	}
	if s.Current == nil {
		fmt.Fprintln(w, "no group to review")
		return
	}
	fmt.Fprintf(w, "\ngroup %d of %d", s.Current.Index+1, s.Discovered)
	if s.Current.Processed {
		fmt.Fprint(w, " (done)")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderTable(w, memberHeaders, memberRows(*s.Current, nil), memberAligns))
}
