package handler

import (
	"net/http"

	"mednotes/internal/apperr"
	"mednotes/internal/auth"
	"mednotes/internal/bookmark"
	"mednotes/internal/catalog"
)

type BookmarkHandler struct {
	Store   bookmark.Store
	Catalog catalog.Store
}

type upsertBookmarkReq struct {
	NoteID     uint64 `json:"noteId"`
	PageNumber int    `json:"pageNumber"`
}

func (h *BookmarkHandler) List(w http.ResponseWriter, r *http.Request) {
	viewer := auth.ViewerFromContext(r.Context())
	rows, err := h.Store.ListForViewer(r.Context(), viewer.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookmarks(rows))
}

// ForNote lists the viewer's own bookmarks in one note.
func (h *BookmarkHandler) ForNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	viewer := auth.ViewerFromContext(r.Context())

	rows, err := h.Store.ListForNote(r.Context(), noteID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	own := rows[:0]
	for _, b := range rows {
		if b.ViewerID == viewer.ID {
			own = append(own, b)
		}
	}
	writeJSON(w, http.StatusOK, toBookmarks(own))
}

func (h *BookmarkHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertBookmarkReq
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.Catalog.GetByID(r.Context(), req.NoteID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.PageNumber < 1 || req.PageNumber > note.PageCount {
		writeError(w, r, apperr.NewValidation("pageNumber", "pageNumber must be within the note's pages"))
		return
	}

	b, err := h.Store.Upsert(r.Context(), auth.ViewerFromContext(r.Context()).ID, note.ID, req.PageNumber)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookmark(b))
}

func (h *BookmarkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	b, err := h.Store.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if b.ViewerID != auth.ViewerFromContext(r.Context()).ID {
		forbidden(w)
		return
	}
	if _, err := h.Store.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
