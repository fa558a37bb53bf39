package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/culler/internal/signature"
	"github.com/lazypower/culler/internal/similarity"
	"github.com/lazypower/culler/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeSource struct {
	mu     sync.Mutex
	assets []Asset
	calls  int
}

func (s *fakeSource) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.assets), nil
}

func (s *fakeSource) Assets(ctx context.Context, offset, limit int) ([]Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if offset >= len(s.assets) {
		return nil, nil
	}
	end := min(offset+limit, len(s.assets))
	return append([]Asset(nil), s.assets[offset:end]...), nil
}

func (s *fakeSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *fakeSource) remove(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.assets[:0]
	for _, a := range s.assets {
		if !drop[a.ID] {
			kept = append(kept, a)
		}
	}
	s.assets = kept
}

type fakeDeleter struct {
	src *fakeSource
	err error
}

func (d *fakeDeleter) Delete(ctx context.Context, ids []string) (int, error) {
	if d.err != nil {
		return 0, d.err
	}
	d.src.remove(ids)
	return len(ids), nil
}

// noBitmaps forces every signature to come from the cache.
type noBitmaps struct{}

func (noBitmaps) Bitmap(ctx context.Context, id string, size int) (image.Image, error) {
	return nil, errors.New("no pixels")
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]signature.Signature
}

func (c *mapCache) Get(id string) (signature.Signature, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.m[id]
	return s, ok
}

func (c *mapCache) Put(id string, s signature.Signature) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[id] = s
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Add(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type harness struct {
	*Engine
	src   *fakeSource
	db    *store.DB
	del   *fakeDeleter
	clock *fakeClock
}

func newHarness(t *testing.T, cfg Config, assets []Asset, sigs map[string]signature.Signature) *harness {
	t.Helper()
	db := testDB(t)
	src := &fakeSource{assets: assets}
	del := &fakeDeleter{src: src}
	clock := &fakeClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.Local)}
	e, err := New(cfg, Deps{
		Source:    src,
		Bitmaps:   noBitmaps{},
		Retention: db,
		Deleter:   del,
		Quota:     db,
		Cache:     &mapCache{m: sigs},
		Clock:     clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return &harness{Engine: e, src: src, db: db, del: del, clock: clock}
}

func (h *harness) load(t *testing.T) {
	t.Helper()
	require.NoError(t, h.LoadAll(context.Background()))
	require.NoError(t, h.Wait(context.Background()))
}

var base = time.Date(2026, 4, 30, 18, 0, 0, 0, time.UTC)

func sigWith(hash uint64, sharpness float64) signature.Signature {
	s := signature.Signature{
		AverageHash:    hash,
		DifferenceHash: hash,
		PerceptualHash: hash,
		Sharpness:      sharpness,
		EdgeDensity:    0.1,
	}
	for i := range s.LabHistogram {
		s.LabHistogram[i] = 0.25
	}
	for i := range s.EdgeHistogram {
		s.EdgeHistogram[i] = 0.125
	}
	return s
}

func asset(id string, at time.Time) Asset {
	return Asset{ID: id, CreatedAt: at, Width: 4000, Height: 3000}
}

// pairs builds n two-shot bursts two hours apart, newest first. The "a" shot
// of every burst is the sharper one.
func pairs(n int) ([]Asset, map[string]signature.Signature) {
	var assets []Asset
	sigs := make(map[string]signature.Signature)
	for i := 0; i < n; i++ {
		at := base.Add(-time.Duration(i) * 2 * time.Hour)
		a := asset(fmt.Sprintf("g%02d-a", i), at)
		b := asset(fmt.Sprintf("g%02d-b", i), at.Add(-time.Minute))
		h := uint64(i) * 0x0101010101010101
		sigs[a.ID] = sigWith(h, 2)
		sigs[b.ID] = sigWith(h, 1)
		assets = append(assets, a, b)
	}
	return assets, sigs
}

func keys(groups []GroupView) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = g.Key
	}
	return out
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{})
	assert.Error(t, err)
}

func TestMergeWithinWindow(t *testing.T) {
	x := sigWith(0, 3)
	y := x
	y.AverageHash ^= 0b11
	y.DifferenceHash ^= 0b111
	y.PerceptualHash ^= 0b1111
	y.EdgeDensity += 0.02
	y.LabHistogram[0] += 0.15
	y.LabHistogram[1] -= 0.15
	y.EdgeHistogram[0] += 0.1
	y.EdgeHistogram[1] -= 0.1
	require.InDelta(t, 0.05, signature.LabDistance(x, y), 0.005)
	require.InDelta(t, 0.05, signature.EdgeDistance(x, y), 0.005)

	h := newHarness(t, Config{WindowMinutes: 60},
		[]Asset{asset("x", base), asset("y", base.Add(-5*time.Minute))},
		map[string]signature.Signature{"x": x, "y": y})
	h.load(t)

	groups := h.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "x|y", groups[0].Key)
	assert.Equal(t, "x", groups[0].Members[0].ID)
	assert.Equal(t, "generic", groups[0].Members[0].Profile)
}

func TestTimeGatedRejection(t *testing.T) {
	s := sigWith(0, 3)
	h := newHarness(t, Config{WindowMinutes: 60},
		[]Asset{asset("x", base), asset("y", base.Add(-90*time.Minute))},
		map[string]signature.Signature{"x": s, "y": s})
	h.load(t)

	assert.Empty(t, h.Groups())
	snap := h.Snapshot()
	assert.Nil(t, snap.Current)
	assert.Equal(t, 2, snap.Pool)
}

func TestUndatedAssetsAreNotClustered(t *testing.T) {
	s := sigWith(0, 3)
	h := newHarness(t, DefaultConfig(),
		[]Asset{asset("x", base), {ID: "y", Width: 10, Height: 10}},
		map[string]signature.Signature{"x": s, "y": s})
	h.load(t)
	assert.Empty(t, h.Groups())
}

func TestQuotaBlocksAdvance(t *testing.T) {
	assets, sigs := pairs(4)
	h := newHarness(t, Config{DailyQuota: 3}, assets, sigs)
	h.load(t)

	for i := 0; i < 3; i++ {
		moved, err := h.Advance()
		require.NoError(t, err)
		assert.True(t, moved)
	}
	before := h.Snapshot()
	assert.Equal(t, 3, before.Index)
	assert.Zero(t, before.QuotaRemaining)

	moved, err := h.Advance()
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.False(t, moved)
	after := h.Snapshot()
	assert.Equal(t, before.Index, after.Index)
	assert.False(t, after.Current.Processed)

	day, used, err := h.db.LoadQuota()
	require.NoError(t, err)
	assert.Equal(t, "2026-05-01", day)
	assert.Equal(t, 3, used)

	h.clock.Add(24 * time.Hour)
	assert.Equal(t, 3, h.Snapshot().QuotaRemaining)
	moved, err = h.Advance()
	require.NoError(t, err)
	assert.False(t, moved, "last group has no successor")
	snap := h.Snapshot()
	assert.Equal(t, 1, snap.QuotaUsed)
	assert.True(t, snap.Current.Processed)
}

func TestQuotaSurvivesRestartSameDay(t *testing.T) {
	assets, sigs := pairs(2)
	h := newHarness(t, Config{DailyQuota: 1}, assets, sigs)
	require.NoError(t, h.db.SaveQuota("2026-05-01", 1))

	e, err := New(Config{DailyQuota: 1}, Deps{
		Source: h.src, Bitmaps: noBitmaps{}, Retention: h.db, Deleter: h.del,
		Quota: h.db, Cache: &mapCache{m: sigs}, Clock: h.clock.Now,
	})
	require.NoError(t, err)
	defer e.Close()
	require.NoError(t, e.LoadAll(context.Background()))

	_, err = e.Advance()
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestRetentionSuppression(t *testing.T) {
	assets, sigs := pairs(1)
	h := newHarness(t, DefaultConfig(), assets, sigs)
	require.NoError(t, h.db.MarkRetained([]string{"g00-b"}, []signature.Signature{sigs["g00-b"]}))
	h.load(t)

	groups := h.Groups()
	require.Len(t, groups, 1)
	assert.True(t, groups[0].Members[0].Checked)
	assert.False(t, groups[0].Members[1].Checked)
	assert.True(t, groups[0].Members[1].Retained)

	_, err := h.Advance()
	require.NoError(t, err)
	ok, err := h.db.IsRetained("g00-a")
	require.NoError(t, err)
	assert.True(t, ok)

	h.load(t)
	assert.Empty(t, h.Groups())

	require.NoError(t, h.ResetRetention())
	groups = h.Groups()
	require.Len(t, groups, 1)
	for _, m := range groups[0].Members {
		assert.False(t, m.Retained)
	}
}

func TestBestSelection(t *testing.T) {
	sigs := map[string]signature.Signature{
		"p1": sigWith(7, 1.0),
		"p2": sigWith(7, 3.5),
		"p3": sigWith(7, 2.0),
	}
	h := newHarness(t, DefaultConfig(), []Asset{
		asset("p1", base),
		asset("p2", base.Add(-time.Minute)),
		asset("p3", base.Add(-2*time.Minute)),
	}, sigs)
	h.load(t)

	groups := h.Groups()
	require.Len(t, groups, 1)
	m := groups[0].Members
	require.Len(t, m, 3)
	assert.Equal(t, []bool{false, true, false}, []bool{m[0].Best, m[1].Best, m[2].Best})
	assert.True(t, m[1].Checked)
	assert.False(t, m[0].Checked)
}

func TestSelectBestFirstOnTies(t *testing.T) {
	g := &Group{Members: []*Thumbnail{
		{Asset: Asset{ID: "a"}, Signature: sigWith(0, 2), Best: true},
		{Asset: Asset{ID: "b"}, Signature: sigWith(0, 5)},
		{Asset: Asset{ID: "c"}, Signature: sigWith(0, 5), Best: true},
	}}
	selectBest(g)
	assert.Equal(t, "b", g.Best().ID())
	assert.False(t, g.Members[0].Best)
	assert.False(t, g.Members[2].Best)
}

func TestClusterChainAdmission(t *testing.T) {
	// a~b and b~c but a and c are too far apart in hash space.
	a := sigWith(0, 1)
	b := sigWith(0x0fff, 1)
	c := sigWith(0x00ffffff, 1)
	table := similarity.NewTable(similarity.DefaultTuning())
	require.False(t, similarity.IsSimilar(a, c, table.For(similarity.Generic, similarity.Generic)))

	items := []*Thumbnail{
		{Asset: asset("a", base), Signature: a, Profile: similarity.Generic},
		{Asset: asset("b", base.Add(-time.Minute)), Signature: b, Profile: similarity.Generic},
		{Asset: asset("c", base.Add(-2*time.Minute)), Signature: c, Profile: similarity.Generic},
	}
	groups := Cluster(items, 10*time.Minute, table)
	require.Len(t, groups, 1)
	assert.Equal(t, "a|b|c", groups[0].Key())
}

func TestClusterIsIdempotent(t *testing.T) {
	assets, sigs := pairs(6)
	h := newHarness(t, DefaultConfig(), assets, sigs)
	h.load(t)

	first := keys(h.Groups())
	h.mu.Lock()
	h.reclusterLocked()
	h.mu.Unlock()
	assert.Equal(t, first, keys(h.Groups()))

	for _, g := range h.Groups() {
		assert.GreaterOrEqual(t, len(g.Members), 2)
		best := 0
		for _, m := range g.Members {
			if m.Best {
				best++
			}
		}
		assert.Equal(t, 1, best, g.Key)
	}
}

func TestToggleCheckUpdatesBucket(t *testing.T) {
	assets, sigs := pairs(1)
	h := newHarness(t, DefaultConfig(), assets, sigs)
	h.load(t)

	_, err := h.DeleteBucket(context.Background())
	assert.ErrorIs(t, err, ErrEmptyBucket)

	// Unprocessed groups leave bucket flags alone.
	require.NoError(t, h.ToggleCheck("g00-b"))
	assert.Empty(t, h.Bucket())
	require.NoError(t, h.SetCheck("g00-b", false))

	_, err = h.Advance()
	require.NoError(t, err)
	assert.Equal(t, []string{"g00-b"}, h.Bucket())

	require.NoError(t, h.ToggleCheck("g00-b"))
	assert.Empty(t, h.Bucket())
	require.NoError(t, h.SetCheck("g00-b", false))
	assert.Equal(t, []string{"g00-b"}, h.Bucket())

	assert.ErrorIs(t, h.ToggleCheck("nope"), ErrUnknownAsset)
	assert.ErrorIs(t, h.SetCheck("nope", true), ErrUnknownAsset)
}

func TestDeleteBucket(t *testing.T) {
	assets, sigs := pairs(2)
	h := newHarness(t, DefaultConfig(), assets, sigs)
	h.load(t)
	_, err := h.Advance()
	require.NoError(t, err)

	h.del.err = fmt.Errorf("trash: %w", ErrUnauthorized)
	_, err = h.DeleteBucket(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 4, h.Snapshot().Pool)

	h.del.err = errors.New("disk on fire")
	_, err = h.DeleteBucket(context.Background())
	var changes *ChangesFailedError
	require.ErrorAs(t, err, &changes)
	assert.EqualError(t, changes.Cause, "disk on fire")
	assert.Equal(t, 4, h.Snapshot().Pool)
	assert.Len(t, h.Groups(), 2)

	h.del.err = nil
	n, err := h.DeleteBucket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	snap := h.Snapshot()
	assert.Equal(t, 3, snap.Pool)
	assert.Equal(t, 3, snap.Scanned)
	groups := h.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "g01-a|g01-b", groups[0].Key)
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, "g01-a|g01-b", snap.Current.Key)
}

func TestSettingsKeepProcessedGroups(t *testing.T) {
	assets, sigs := pairs(2)
	h := newHarness(t, DefaultConfig(), assets, sigs)
	h.load(t)
	_, err := h.Advance()
	require.NoError(t, err)

	require.NoError(t, h.SetWindowMinutes(30))
	groups := h.Groups()
	require.Len(t, groups, 2)
	assert.True(t, groups[0].Processed)
	assert.False(t, groups[1].Processed)
	assert.Equal(t, 1, h.Snapshot().Index)
	assert.Equal(t, 30, h.Snapshot().WindowMinutes)

	assert.ErrorIs(t, h.SetWindowMinutes(0), ErrInvalidWindow)
}

func TestPresetChangesGrouping(t *testing.T) {
	x := sigWith(0, 2)
	y := x
	y.AverageHash = 0x3fff // 14 bits apart: generic allows 16, extra-strict 12
	h := newHarness(t, DefaultConfig(),
		[]Asset{asset("x", base), asset("y", base.Add(-time.Minute))},
		map[string]signature.Signature{"x": x, "y": y})
	h.load(t)
	require.Len(t, h.Groups(), 1)

	h.SetPreset(similarity.PresetExtraStrict)
	assert.Empty(t, h.Groups())
	assert.Equal(t, -4, h.Snapshot().Tuning.AverageOffset)

	h.SetTuning(similarity.Tuning{})
	assert.Len(t, h.Groups(), 1)
	assert.Equal(t, 1.0, h.Snapshot().Tuning.LabScale)
}

func TestDiscoveryBuffering(t *testing.T) {
	assets, sigs := pairs(30)
	h := newHarness(t, Config{FirstBatch: 20, NextBatch: 10, LookAhead: 3, ReplenishBelow: 2}, assets, sigs)
	h.load(t)

	snap := h.Snapshot()
	assert.Equal(t, 20, snap.Pool)
	assert.Equal(t, 4, snap.Discovered)
	assert.Equal(t, 6, snap.Queued)
	assert.False(t, snap.Exhausted)
	assert.Equal(t, 60, snap.Total)

	_, err := h.Advance()
	require.NoError(t, err)
	snap = h.Snapshot()
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, 5, snap.Discovered)

	discovered := 0
	for _, g := range h.Groups() {
		if g.Discovered {
			discovered++
		}
	}
	assert.Equal(t, 5, discovered)

	require.NoError(t, h.LoadRemaining(context.Background()))
	snap = h.Snapshot()
	assert.Equal(t, 60, snap.Pool)
	assert.True(t, snap.Exhausted)
	assert.Len(t, h.Groups(), 30)
}

func TestAdvanceKeepsLookAhead(t *testing.T) {
	assets, sigs := pairs(10)
	h := newHarness(t, Config{LookAhead: 3, ReplenishBelow: 1}, assets, sigs)
	h.load(t)
	require.Equal(t, 4, h.Snapshot().Discovered)

	for i := 1; i <= 6; i++ {
		moved, err := h.Advance()
		require.NoError(t, err)
		require.True(t, moved)
		snap := h.Snapshot()
		assert.Equal(t, i, snap.Index)
		assert.Equal(t, 3, snap.Discovered-snap.Index-1, "look-ahead after advance %d", i)
	}
}

func TestAdvanceCountsEveryCall(t *testing.T) {
	assets, sigs := pairs(2)
	h := newHarness(t, Config{DailyQuota: 5}, assets, sigs)
	h.load(t)

	moved, err := h.Advance()
	require.NoError(t, err)
	assert.True(t, moved)
	moved, err = h.Advance()
	require.NoError(t, err)
	assert.False(t, moved)
	retained, err := h.db.ListRetained()
	require.NoError(t, err)

	// The last group is already finalized; passing it again still costs quota.
	moved, err = h.Advance()
	require.NoError(t, err)
	assert.False(t, moved)
	snap := h.Snapshot()
	assert.Equal(t, 3, snap.QuotaUsed)
	assert.Equal(t, 2, snap.QuotaRemaining)
	assert.True(t, snap.Current.Processed)

	again, err := h.db.ListRetained()
	require.NoError(t, err)
	assert.Len(t, again, len(retained))

	_, used, err := h.db.LoadQuota()
	require.NoError(t, err)
	assert.Equal(t, 3, used)
}

func TestCloseStopsReplenish(t *testing.T) {
	assets, sigs := pairs(12)
	h := newHarness(t, Config{FirstBatch: 2, NextBatch: 2, LookAhead: 3, ReplenishBelow: 2}, assets, sigs)
	h.load(t)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			assert.NoError(t, h.SetWindowMinutes(10+i%2))
		}
	}()
	require.NoError(t, h.Close())
	wg.Wait()
	calls := h.src.Calls()

	h.mu.Lock()
	h.shown = h.index + 1
	h.maybeReplenishLocked()
	h.mu.Unlock()
	h.wg.Wait()

	assert.Equal(t, calls, h.src.Calls())
}

func TestBackgroundReplenish(t *testing.T) {
	assets, sigs := pairs(12)
	h := newHarness(t, Config{FirstBatch: 4, NextBatch: 4, LookAhead: 3, ReplenishBelow: 2}, assets, sigs)
	h.load(t)

	snap := h.Snapshot()
	assert.Equal(t, 8, snap.Pool)
	assert.Equal(t, 4, snap.Discovered)
	assert.Equal(t, 0, snap.Index)
	assert.Equal(t, 2, h.src.Calls())
}

func TestReplenishIsSingleFlight(t *testing.T) {
	assets, sigs := pairs(12)
	h := newHarness(t, Config{FirstBatch: 2, NextBatch: 2, LookAhead: 3, ReplenishBelow: 2}, assets, sigs)
	h.load(t)
	calls := h.src.Calls()

	require.True(t, h.fetch.TryAcquire(1))
	h.mu.Lock()
	h.shown = h.index + 1
	h.maybeReplenishLocked()
	h.mu.Unlock()
	h.fetch.Release(1)

	assert.Equal(t, calls, h.src.Calls())
}

type grayBitmaps struct {
	cancelAfter int
	cancel      context.CancelFunc
	mu          sync.Mutex
	calls       int
}

func (b *grayBitmaps) Bitmap(ctx context.Context, id string, size int) (image.Image, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.calls == b.cancelAfter {
		b.cancel()
	}
	if id == "bad" {
		return nil, errors.New("corrupt file")
	}
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	return img, nil
}

func TestCancellationKeepsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bitmaps := &grayBitmaps{cancelAfter: 4, cancel: cancel}

	src := &fakeSource{assets: []Asset{
		asset("one", base),
		asset("bad", base.Add(-time.Hour)),
		asset("two", base.Add(-2*time.Hour)),
		asset("three", base.Add(-3*time.Hour)),
	}}
	e, err := New(DefaultConfig(), Deps{
		Source: src, Bitmaps: bitmaps, Retention: testDB(t), Deleter: &fakeDeleter{src: src},
	})
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.fetch.Acquire(context.Background(), 1))
	progressed, err := e.fetchBatch(ctx, 10)
	require.NoError(t, err)
	assert.True(t, progressed)
	snap := e.Snapshot()
	e.fetch.Release(1)

	assert.Equal(t, 2, snap.Pool, "one and two were signed, bad was skipped, three was interrupted")
	assert.Equal(t, 3, snap.Scanned)
	assert.False(t, snap.Exhausted)
}

// cancellingDetector cancels the scan from inside its second call.
type cancellingDetector struct {
	cancel context.CancelFunc
	mu     sync.Mutex
	calls  int
}

func (d *cancellingDetector) CountFaces(ctx context.Context, img image.Image) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.calls == 2 {
		d.cancel()
		return 0, ctx.Err()
	}
	return 1, nil
}

func TestCancelledFaceDetectionIsNotCached(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &fakeSource{assets: []Asset{
		asset("one", base),
		asset("two", base.Add(-time.Hour)),
		asset("three", base.Add(-2*time.Hour)),
	}}
	cache := &mapCache{m: map[string]signature.Signature{}}
	e, err := New(DefaultConfig(), Deps{
		Source:    src,
		Bitmaps:   &grayBitmaps{},
		Retention: testDB(t),
		Deleter:   &fakeDeleter{src: src},
		Extractor: signature.NewExtractor(&cancellingDetector{cancel: cancel}, nil),
		Cache:     cache,
	})
	require.NoError(t, err)
	defer e.Close()

	require.NoError(t, e.fetch.Acquire(context.Background(), 1))
	progressed, err := e.fetchBatch(ctx, 10)
	require.NoError(t, err)
	assert.True(t, progressed)
	snap := e.Snapshot()
	e.fetch.Release(1)

	assert.Equal(t, 1, snap.Pool)
	assert.Equal(t, 1, snap.Scanned)

	one, ok := cache.Get("one")
	require.True(t, ok)
	assert.Equal(t, 1, one.FaceCount)
	_, ok = cache.Get("two")
	assert.False(t, ok, "interrupted signature must not be cached")
	_, ok = cache.Get("three")
	assert.False(t, ok)
}

func TestChangesNotify(t *testing.T) {
	assets, sigs := pairs(1)
	h := newHarness(t, DefaultConfig(), assets, sigs)
	h.load(t)

	// drain
	select {
	case <-h.Changes():
	default:
	}
	require.NoError(t, h.ToggleCheck("g00-b"))
	select {
	case <-h.Changes():
	case <-time.After(time.Second):
		t.Fatal("no change notification")
	}
}
