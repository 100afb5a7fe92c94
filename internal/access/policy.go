// Package access decides which pages of a note a viewer may read.
package access

import (
	"mednotes/internal/auth"
	"mednotes/internal/catalog"
)

type Reason string

const (
	ReasonFreePage  Reason = "free_page"
	ReasonPremium   Reason = "premium"
	ReasonAdmin     Reason = "admin"
	ReasonPaywalled Reason = "paywalled"
)

type Decision struct {
	Allowed bool
	Reason  Reason
}

// Evaluate assumes page is already clamped to [1, note.PageCount].
// It never mutates its inputs and holds no state between calls. Pages past
// the free range need premium; the admin role alone does not unlock them.
func Evaluate(note catalog.Note, page int, viewer *auth.User) Decision {
	if page <= note.FreePages {
		return Decision{Allowed: true, Reason: ReasonFreePage}
	}

	switch auth.KindOf(viewer) {
	case auth.Premium:
		return Decision{Allowed: true, Reason: ReasonPremium}
	case auth.Admin:
		if viewer.IsPremium {
			return Decision{Allowed: true, Reason: ReasonAdmin}
		}
		return Decision{Allowed: false, Reason: ReasonPaywalled}
	case auth.Anonymous, auth.Standard:
		return Decision{Allowed: false, Reason: ReasonPaywalled}
	}
	return Decision{Allowed: false, Reason: ReasonPaywalled}
}

func CanView(note catalog.Note, page int, viewer *auth.User) bool {
	return Evaluate(note, page, viewer).Allowed
}

// ClampPage pulls a requested page into [1, note.PageCount].
func ClampPage(note catalog.Note, page int) int {
	if page > note.PageCount {
		page = note.PageCount
	}
	if page < 1 {
		page = 1
	}
	return page
}
