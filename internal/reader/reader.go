// Package reader opens notes page by page for a viewer, enforcing the
// paywall and recording reading progress.
package reader

import (
	"context"

	"mednotes/internal/access"
	"mednotes/internal/auth"
	"mednotes/internal/bookmark"
	"mednotes/internal/catalog"
	"mednotes/internal/progress"

	"go.uber.org/zap"
)

// ViewRecorder counts a note as viewed. Counting may happen asynchronously.
type ViewRecorder interface {
	RecordView(ctx context.Context, owner string, noteID uint64) error
}

// Visitor is whoever is reading: a signed-in viewer, an anonymous reader
// session, or neither.
type Visitor struct {
	Viewer    *auth.User
	SessionID string
}

// Owner keys progress and views. It is empty when nothing identifies the visitor.
func (v Visitor) Owner() string {
	if v.Viewer != nil {
		return progress.ViewerOwner(v.Viewer.ID)
	}
	if v.SessionID != "" {
		return progress.SessionOwner(v.SessionID)
	}
	return ""
}

type Page struct {
	Note     catalog.Note
	Page     int
	Allowed  bool
	Reason   access.Reason
	Preview  bool
	Progress *progress.Progress
	Bookmark *bookmark.Bookmark
}

type Reader struct {
	Catalog   catalog.Store
	Bookmarks bookmark.Store
	Progress  progress.Store
	Views     ViewRecorder
}

// Open starts reading a note. It counts a view and resumes at the visitor's
// last viewed page, or the first page for a new reader.
func (r *Reader) Open(ctx context.Context, v Visitor, noteID uint64) (Page, error) {
	note, err := r.Catalog.GetByID(ctx, noteID)
	if err != nil {
		return Page{}, err
	}

	owner := v.Owner()
	if r.Views != nil {
		if err := r.Views.RecordView(ctx, owner, noteID); err != nil {
			zap.L().Warn("record view failed", zap.Uint64("note_id", noteID), zap.Error(err))
		}
	}

	page := 1
	if owner != "" {
		if p := r.progressFor(ctx, owner, noteID); p != nil {
			page = p.LastViewedPage
		}
	}
	return r.turn(ctx, v, note, page)
}

// Turn moves to page, clamped into the note's range.
func (r *Reader) Turn(ctx context.Context, v Visitor, noteID uint64, page int) (Page, error) {
	note, err := r.Catalog.GetByID(ctx, noteID)
	if err != nil {
		return Page{}, err
	}
	return r.turn(ctx, v, note, page)
}

func (r *Reader) turn(ctx context.Context, v Visitor, note catalog.Note, page int) (Page, error) {
	page = access.ClampPage(note, page)
	d := access.Evaluate(note, page, v.Viewer)

	out := Page{
		Note:    note,
		Page:    page,
		Allowed: d.Allowed,
		Reason:  d.Reason,
		Preview: note.FreePages < note.PageCount && (v.Viewer == nil || !v.Viewer.IsPremium),
	}

	if owner := v.Owner(); owner != "" && d.Allowed {
		p, err := r.Progress.Upsert(ctx, owner, note.ID, progress.Percent(page, note.PageCount), page)
		if err != nil {
			return Page{}, err
		}
		out.Progress = &p
	}

	if v.Viewer != nil {
		out.Bookmark = r.bookmarkFor(ctx, v.Viewer.ID, note.ID)
	}
	return out, nil
}

func (r *Reader) progressFor(ctx context.Context, owner string, noteID uint64) *progress.Progress {
	rows, err := r.Progress.ListForViewer(ctx, owner)
	if err != nil {
		zap.L().Warn("load progress failed", zap.String("owner", owner), zap.Error(err))
		return nil
	}
	for _, p := range rows {
		if p.NoteID == noteID {
			return &p
		}
	}
	return nil
}

func (r *Reader) bookmarkFor(ctx context.Context, viewerID, noteID uint64) *bookmark.Bookmark {
	rows, err := r.Bookmarks.ListForViewer(ctx, viewerID)
	if err != nil {
		zap.L().Warn("load bookmarks failed", zap.Uint64("viewer_id", viewerID), zap.Error(err))
		return nil
	}
	for _, b := range rows {
		if b.NoteID == noteID {
			return &b
		}
	}
	return nil
}
