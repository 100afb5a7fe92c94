package listing

import (
	"context"
	"errors"
	"testing"
	"time"

	"mednotes/internal/apperr"
	"mednotes/internal/auth"
	"mednotes/internal/bookmark"
	"mednotes/internal/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newCatalog() *catalog.MemoryStore {
	s := catalog.NewMemoryStore(0)
	s.Seed([]catalog.Note{
		{ID: 1, Title: "Skull", Description: "Bones of the head", Subject: catalog.Anatomy, PageCount: 10, FreePages: 2, ViewCount: 50, CreatedAt: base},
		{ID: 2, Title: "Connective Tissue", Description: "Fibres and cells", Subject: catalog.Histology, PageCount: 10, FreePages: 2, ViewCount: 10, CreatedAt: base.Add(1 * time.Hour)},
		{ID: 3, Title: "Neural Tube", Description: "Neurulation", Subject: catalog.Embryology, PageCount: 10, FreePages: 2, ViewCount: 30, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 4, Title: "Thorax", Description: "Anatomy of the chest", Subject: catalog.Anatomy, PageCount: 10, FreePages: 2, ViewCount: 90, CreatedAt: base.Add(3 * time.Hour)},
	})
	return s
}

func ids(items []Item) []uint64 {
	out := make([]uint64, 0, len(items))
	for _, it := range items {
		out = append(out, it.Note.ID)
	}
	return out
}

type failingBookmarks struct {
	bookmark.Store
	calls int
}

func (f *failingBookmarks) ListForViewer(context.Context, uint64) ([]bookmark.Bookmark, error) {
	f.calls++
	return nil, errors.New("bookmark backend down")
}

type countingBookmarks struct {
	bookmark.Store
	calls int
}

func (c *countingBookmarks) ListForViewer(ctx context.Context, viewerID uint64) ([]bookmark.Bookmark, error) {
	c.calls++
	return c.Store.ListForViewer(ctx, viewerID)
}

type failingCatalog struct {
	catalog.Store
}

func (failingCatalog) List(context.Context) ([]catalog.Note, error) {
	return nil, errors.New("catalog down")
}

func TestParseSort(t *testing.T) {
	for in, want := range map[string]Sort{"": SortNewest, "newest": SortNewest, "POPULAR": SortPopular, " bookmarked ": SortBookmarked} {
		got, err := ParseSort(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSort("alphabetical")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestPipeline_Query(t *testing.T) {
	ctx := context.Background()
	viewer := &auth.User{ID: 7}

	marks := bookmark.NewMemoryStore(0)
	_, err := marks.Upsert(ctx, 7, 1, 3)
	require.NoError(t, err)
	_, err = marks.Upsert(ctx, 7, 3, 1)
	require.NoError(t, err)
	_, err = marks.Upsert(ctx, 8, 2, 1)
	require.NoError(t, err)

	p := &Pipeline{Catalog: newCatalog(), Bookmarks: marks}

	tests := []struct {
		name   string
		viewer *auth.User
		filter Filter
		want   []uint64
	}{
		{name: "newest", viewer: viewer, filter: Filter{Sort: SortNewest}, want: []uint64{4, 3, 2, 1}},
		{name: "popular", viewer: viewer, filter: Filter{Sort: SortPopular}, want: []uint64{4, 1, 3, 2}},
		{name: "bookmarked first then newest", viewer: viewer, filter: Filter{Sort: SortBookmarked}, want: []uint64{3, 1, 4, 2}},
		{name: "bookmarked anonymous is newest", viewer: nil, filter: Filter{Sort: SortBookmarked}, want: []uint64{4, 3, 2, 1}},
		{name: "subject filter", viewer: viewer, filter: Filter{Subject: catalog.Anatomy, Sort: SortNewest}, want: []uint64{4, 1}},
		{name: "all sentinel", viewer: viewer, filter: Filter{Subject: catalog.All, Sort: SortNewest}, want: []uint64{4, 3, 2, 1}},
		{name: "query wins over subject", viewer: viewer, filter: Filter{Subject: catalog.Histology, Query: "ANATOMY", Sort: SortNewest}, want: []uint64{4, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Query(ctx, tt.viewer, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	got, err := p.Query(ctx, viewer, Filter{Sort: SortNewest})
	require.NoError(t, err)
	for _, it := range got {
		assert.Equal(t, it.Note.ID == 1 || it.Note.ID == 3, it.Bookmarked, "note %d", it.Note.ID)
	}
}

func TestPipeline_OneBookmarkLookupPerQuery(t *testing.T) {
	counting := &countingBookmarks{Store: bookmark.NewMemoryStore(0)}
	p := &Pipeline{Catalog: newCatalog(), Bookmarks: counting}

	_, err := p.Query(context.Background(), &auth.User{ID: 1}, Filter{Sort: SortBookmarked})
	require.NoError(t, err)
	assert.Equal(t, 1, counting.calls)
}

func TestPipeline_BookmarkFailureFallsBackToNewest(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	failing := &failingBookmarks{}
	p := &Pipeline{Catalog: newCatalog(), Bookmarks: failing}

	got, err := p.Query(context.Background(), &auth.User{ID: 7}, Filter{Sort: SortBookmarked})
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 3, 2, 1}, ids(got))
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, logs.Len())
}

func TestPipeline_CatalogFailurePropagates(t *testing.T) {
	p := &Pipeline{Catalog: failingCatalog{}, Bookmarks: bookmark.NewMemoryStore(0)}

	_, err := p.Query(context.Background(), nil, Filter{Sort: SortNewest})
	assert.EqualError(t, err, "catalog down")
}

func TestPipeline_DoesNotReorderCatalog(t *testing.T) {
	ctx := context.Background()
	c := newCatalog()
	p := &Pipeline{Catalog: c, Bookmarks: bookmark.NewMemoryStore(0)}

	_, err := p.Query(ctx, nil, Filter{Sort: SortPopular})
	require.NoError(t, err)

	all, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3, 4}, func() []uint64 {
		out := []uint64{}
		for _, n := range all {
			out = append(out, n.ID)
		}
		return out
	}())
}
