// Package fixtures ships the demo catalog, accounts and reading history.
package fixtures

import (
	"embed"
	"fmt"
	"time"

	"mednotes/internal/auth"
	"mednotes/internal/bookmark"
	"mednotes/internal/catalog"
	"mednotes/internal/progress"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var files embed.FS

type noteRow struct {
	ID          uint64    `yaml:"id"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Subject     string    `yaml:"subject"`
	PageCount   int       `yaml:"pageCount"`
	FreePages   int       `yaml:"freePages"`
	FileURL     string    `yaml:"fileUrl"`
	ViewCount   int64     `yaml:"viewCount"`
	CreatedAt   time.Time `yaml:"createdAt"`
}

type userRow struct {
	ID                uint64     `yaml:"id"`
	Name              string     `yaml:"name"`
	Email             string     `yaml:"email"`
	Password          string     `yaml:"password"`
	Role              string     `yaml:"role"`
	IsPremium         bool       `yaml:"isPremium"`
	PremiumUpgradedAt *time.Time `yaml:"premiumUpgradedAt"`
	CreatedAt         time.Time  `yaml:"createdAt"`
}

type bookmarkRow struct {
	ID         uint64    `yaml:"id"`
	ViewerID   uint64    `yaml:"viewerId"`
	NoteID     uint64    `yaml:"noteId"`
	PageNumber int       `yaml:"pageNumber"`
	Timestamp  time.Time `yaml:"timestamp"`
}

type progressRow struct {
	ID                uint64 `yaml:"id"`
	ViewerID          uint64 `yaml:"viewerId"`
	NoteID            uint64 `yaml:"noteId"`
	CompletionPercent int    `yaml:"completionPercent"`
	LastViewedPage    int    `yaml:"lastViewedPage"`
}

// Activity is one synthetic account in the analytics usage sample.
type Activity struct {
	ID         uint64    `yaml:"id"`
	Type       string    `yaml:"type"`
	LastActive time.Time `yaml:"lastActive"`
	NoteViews  int       `yaml:"noteViews"`
}

type WeeklyEngagement struct {
	Week  string `yaml:"week"`
	Views int    `yaml:"views"`
	Users int    `yaml:"users"`
}

func load(name string, out any) error {
	b, err := files.ReadFile("data/" + name)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func Notes() ([]catalog.Note, error) {
	var rows []noteRow
	if err := load("notes.yaml", &rows); err != nil {
		return nil, err
	}
	out := make([]catalog.Note, 0, len(rows))
	for _, r := range rows {
		out = append(out, catalog.Note{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			Subject:     r.Subject,
			PageCount:   r.PageCount,
			FreePages:   r.FreePages,
			FileURL:     r.FileURL,
			ViewCount:   r.ViewCount,
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.CreatedAt,
		})
	}
	return out, nil
}

// Users returns the demo accounts with their passwords hashed.
func Users() ([]auth.User, error) {
	var rows []userRow
	if err := load("users.yaml", &rows); err != nil {
		return nil, err
	}
	out := make([]auth.User, 0, len(rows))
	for _, r := range rows {
		hash, err := auth.HashPassword(r.Password)
		if err != nil {
			return nil, err
		}
		role := r.Role
		if role == "" {
			role = auth.RoleStandard
		}
		out = append(out, auth.User{
			ID:                r.ID,
			Name:              r.Name,
			Email:             r.Email,
			PasswordHash:      hash,
			Role:              role,
			IsPremium:         r.IsPremium,
			PremiumUpgradedAt: r.PremiumUpgradedAt,
			CreatedAt:         r.CreatedAt,
		})
	}
	return out, nil
}

func Bookmarks() ([]bookmark.Bookmark, error) {
	var rows []bookmarkRow
	if err := load("bookmarks.yaml", &rows); err != nil {
		return nil, err
	}
	out := make([]bookmark.Bookmark, 0, len(rows))
	for _, r := range rows {
		out = append(out, bookmark.Bookmark(r))
	}
	return out, nil
}

func Progress() ([]progress.Progress, error) {
	var rows []progressRow
	if err := load("progress.yaml", &rows); err != nil {
		return nil, err
	}
	out := make([]progress.Progress, 0, len(rows))
	for _, r := range rows {
		out = append(out, progress.Progress{
			ID:                r.ID,
			Owner:             progress.ViewerOwner(r.ViewerID),
			NoteID:            r.NoteID,
			CompletionPercent: r.CompletionPercent,
			LastViewedPage:    r.LastViewedPage,
		})
	}
	return out, nil
}

func ActivitySample() ([]Activity, error) {
	var rows []Activity
	if err := load("activity.yaml", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func EngagementTrend() ([]WeeklyEngagement, error) {
	var rows []WeeklyEngagement
	if err := load("trends.yaml", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
