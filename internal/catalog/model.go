package catalog

import "time"

// Subject names form a closed set. All is the listing sentinel, never a note's subject.
const (
	Anatomy    = "Anatomy"
	Histology  = "Histology"
	Embryology = "Embryology"

	All = "All"
)

// SubjectNames lists the concrete subjects in display order.
var SubjectNames = []string{Anatomy, Histology, Embryology}

func IsSubject(name string) bool {
	for _, s := range SubjectNames {
		if s == name {
			return true
		}
	}
	return false
}

// Note is a catalog entry for a paginated study document.
// CreatedAt and ViewCount are set once at creation; only recorded views move ViewCount.
type Note struct {
	ID          uint64    `gorm:"primaryKey"`
	Title       string    `gorm:"not null"`
	Description string    `gorm:"type:text;not null;default:''"`
	Subject     string    `gorm:"index;not null"`
	PageCount   int       `gorm:"not null"`
	FreePages   int       `gorm:"not null;default:0"`
	FileURL     string    `gorm:"type:text;not null;default:''"`
	ViewCount   int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"index;not null;default:now()"`
	UpdatedAt   time.Time `gorm:"not null;default:now()"`
}

// Subject is an aggregate recomputed from the catalog on every read.
type Subject struct {
	Name      string
	NoteCount int
}

type NoteDraft struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required"`
	Subject     string `json:"subject" validate:"required,oneof=Anatomy Histology Embryology"`
	PageCount   int    `json:"pageCount" validate:"gt=0"`
	FreePages   int    `json:"freePages" validate:"gte=0,ltefield=PageCount"`
	FileURL     string `json:"fileUrl"`
}

// NotePatch holds optional replacements; nil fields keep their current value.
type NotePatch struct {
	Title       *string
	Description *string
	Subject     *string
	PageCount   *int
	FreePages   *int
	FileURL     *string
}

func (n Note) draft() NoteDraft {
	return NoteDraft{
		Title:       n.Title,
		Description: n.Description,
		Subject:     n.Subject,
		PageCount:   n.PageCount,
		FreePages:   n.FreePages,
		FileURL:     n.FileURL,
	}
}

func (p NotePatch) apply(d NoteDraft) NoteDraft {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Subject != nil {
		d.Subject = *p.Subject
	}
	if p.PageCount != nil {
		d.PageCount = *p.PageCount
	}
	if p.FreePages != nil {
		d.FreePages = *p.FreePages
	}
	if p.FileURL != nil {
		d.FileURL = *p.FileURL
	}
	return d
}

func (d NoteDraft) assign(n *Note) {
	n.Title = d.Title
	n.Description = d.Description
	n.Subject = d.Subject
	n.PageCount = d.PageCount
	n.FreePages = d.FreePages
	n.FileURL = d.FileURL
}
