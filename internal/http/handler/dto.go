package handler

import (
	"time"

	"mednotes/internal/auth"
	"mednotes/internal/bookmark"
	"mednotes/internal/catalog"
	"mednotes/internal/listing"
	"mednotes/internal/progress"
	"mednotes/internal/reader"
)

type viewerResp struct {
	ID                uint64     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Kind              string     `json:"kind"`
	IsPremium         bool       `json:"isPremium"`
	PremiumUpgradedAt *time.Time `json:"premiumUpgradedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	LastLogin         *time.Time `json:"lastLogin,omitempty"`
}

func toViewer(u auth.User) viewerResp {
	return viewerResp{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Kind:              auth.KindOf(&u).String(),
		IsPremium:         u.IsPremium,
		PremiumUpgradedAt: u.PremiumUpgradedAt,
		CreatedAt:         u.CreatedAt,
		LastLogin:         u.LastLogin,
	}
}

type noteResp struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Subject     string    `json:"subject"`
	PageCount   int       `json:"pageCount"`
	FreePages   int       `json:"freePages"`
	FileURL     string    `json:"fileUrl"`
	ViewCount   int64     `json:"viewCount"`
	CreatedAt   time.Time `json:"createdAt"`
	Bookmarked  *bool     `json:"bookmarked,omitempty"`
}

func toNote(n catalog.Note) noteResp {
	return noteResp{
		ID:          n.ID,
		Title:       n.Title,
		Description: n.Description,
		Subject:     n.Subject,
		PageCount:   n.PageCount,
		FreePages:   n.FreePages,
		FileURL:     n.FileURL,
		ViewCount:   n.ViewCount,
		CreatedAt:   n.CreatedAt,
	}
}

func toListing(items []listing.Item, withBookmarks bool) []noteResp {
	out := make([]noteResp, 0, len(items))
	for _, it := range items {
		n := toNote(it.Note)
		if withBookmarks {
			b := it.Bookmarked
			n.Bookmarked = &b
		}
		out = append(out, n)
	}
	return out
}

type subjectResp struct {
	Name      string `json:"name"`
	NoteCount int    `json:"noteCount"`
}

type bookmarkResp struct {
	ID         uint64    `json:"id"`
	NoteID     uint64    `json:"noteId"`
	PageNumber int       `json:"pageNumber"`
	Timestamp  time.Time `json:"timestamp"`
}

func toBookmark(b bookmark.Bookmark) bookmarkResp {
	return bookmarkResp{ID: b.ID, NoteID: b.NoteID, PageNumber: b.PageNumber, Timestamp: b.Timestamp}
}

func toBookmarks(rows []bookmark.Bookmark) []bookmarkResp {
	out := make([]bookmarkResp, 0, len(rows))
	for _, b := range rows {
		out = append(out, toBookmark(b))
	}
	return out
}

type progressResp struct {
	NoteID            uint64    `json:"noteId"`
	CompletionPercent int       `json:"completionPercent"`
	LastViewedPage    int       `json:"lastViewedPage"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func toProgress(p progress.Progress) progressResp {
	return progressResp{
		NoteID:            p.NoteID,
		CompletionPercent: p.CompletionPercent,
		LastViewedPage:    p.LastViewedPage,
		UpdatedAt:         p.UpdatedAt,
	}
}

type pageResp struct {
	Note     noteResp      `json:"note"`
	Page     int           `json:"page"`
	Allowed  bool          `json:"allowed"`
	Reason   string        `json:"reason"`
	Preview  bool          `json:"preview"`
	Progress *progressResp `json:"progress,omitempty"`
	Bookmark *bookmarkResp `json:"bookmark,omitempty"`
}

func toPage(p reader.Page) pageResp {
	out := pageResp{
		Note:    toNote(p.Note),
		Page:    p.Page,
		Allowed: p.Allowed,
		Reason:  string(p.Reason),
		Preview: p.Preview,
	}
	if p.Progress != nil {
		pr := toProgress(*p.Progress)
		out.Progress = &pr
	}
	if p.Bookmark != nil {
		b := toBookmark(*p.Bookmark)
		out.Bookmark = &b
	}
	return out
}
