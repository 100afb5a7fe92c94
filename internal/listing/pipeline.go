// Package listing composes catalog reads with the viewer's bookmarks into
// ordered note listings.
package listing

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"mednotes/internal/apperr"
	"mednotes/internal/auth"
	"mednotes/internal/bookmark"
	"mednotes/internal/catalog"

	"go.uber.org/zap"
)

type Sort string

const (
	SortNewest     Sort = "newest"
	SortPopular    Sort = "popular"
	SortBookmarked Sort = "bookmarked"
)

func ParseSort(s string) (Sort, error) {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortNewest:
		return SortNewest, nil
	case SortPopular:
		return SortPopular, nil
	case SortBookmarked:
		return SortBookmarked, nil
	}
	return "", apperr.NewValidation("sort", fmt.Sprintf("unknown sort %q", s))
}

type Filter struct {
	// Subject is a concrete subject name, or "" / catalog.All for every subject.
	Subject string
	// Query takes precedence over Subject when non-empty.
	Query string
	Sort  Sort
}

type Item struct {
	Note       catalog.Note
	Bookmarked bool
}

type Pipeline struct {
	Catalog   catalog.Store
	Bookmarks bookmark.Store
}

// Query lists notes for viewer. Catalog failures propagate; a failed bookmark
// lookup only downgrades a bookmarked sort to newest.
func (p *Pipeline) Query(ctx context.Context, viewer *auth.User, f Filter) ([]Item, error) {
	notes, err := p.candidates(ctx, f)
	if err != nil {
		return nil, err
	}

	marked := map[uint64]bool{}
	if viewer != nil {
		marked, err = p.bookmarked(ctx, viewer.ID)
		if err != nil {
			zap.L().Warn("bookmark lookup failed, listing without bookmarks",
				zap.Uint64("viewer_id", viewer.ID),
				zap.String("sort", string(f.Sort)),
				zap.Error(err),
			)
			marked = map[uint64]bool{}
			if f.Sort == SortBookmarked {
				f.Sort = SortNewest
			}
		}
	}

	items := make([]Item, len(notes))
	for i, n := range notes {
		items[i] = Item{Note: n, Bookmarked: marked[n.ID]}
	}
	order(items, f.Sort)
	return items, nil
}

func (p *Pipeline) candidates(ctx context.Context, f Filter) ([]catalog.Note, error) {
	if strings.TrimSpace(f.Query) != "" {
		return p.Catalog.Search(ctx, f.Query)
	}
	if f.Subject != "" && f.Subject != catalog.All {
		return p.Catalog.ListBySubject(ctx, f.Subject)
	}
	return p.Catalog.List(ctx)
}

// bookmarked fetches the viewer's bookmarks in one call.
func (p *Pipeline) bookmarked(ctx context.Context, viewerID uint64) (map[uint64]bool, error) {
	rows, err := p.Bookmarks.ListForViewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]bool, len(rows))
	for _, b := range rows {
		out[b.NoteID] = true
	}
	return out, nil
}

func newer(a, b catalog.Note) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func order(items []Item, s Sort) {
	switch s {
	case SortPopular:
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Note.ViewCount != items[j].Note.ViewCount {
				return items[i].Note.ViewCount > items[j].Note.ViewCount
			}
			return newer(items[i].Note, items[j].Note)
		})
	case SortBookmarked:
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Bookmarked != items[j].Bookmarked {
				return items[i].Bookmarked
			}
			return newer(items[i].Note, items[j].Note)
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			return newer(items[i].Note, items[j].Note)
		})
	}
}
