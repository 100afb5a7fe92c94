package handler

import (
	"net/http"
	"strconv"

	"mednotes/internal/apperr"
	"mednotes/internal/auth"
	"mednotes/internal/catalog"
	"mednotes/internal/listing"
	"mednotes/internal/reader"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ReaderSessionHeader carries the anonymous reader session id. The server
// issues one when a reader arrives without it.
const ReaderSessionHeader = "X-Reader-Session"

type NotesHandler struct {
	Catalog  catalog.Store
	Pipeline *listing.Pipeline
	Reader   *reader.Reader
}

func (h *NotesHandler) Subjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := catalog.Subjects(r.Context(), h.Catalog)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]subjectResp, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, subjectResp{Name: s.Name, NoteCount: s.NoteCount})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *NotesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sort, err := listing.ParseSort(q.Get("sort"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	viewer := auth.ViewerFromContext(r.Context())
	items, err := h.Pipeline.Query(r.Context(), viewer, listing.Filter{
		Subject: q.Get("subject"),
		Query:   q.Get("q"),
		Sort:    sort,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListing(items, viewer != nil))
}

// Open returns the note at the visitor's resume page and counts a view.
func (h *NotesHandler) Open(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	p, err := h.Reader.Open(r.Context(), visitor(w, r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPage(p))
}

func (h *NotesHandler) Page(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		writeError(w, r, apperr.NewValidation("page", "invalid page"))
		return
	}

	p, err := h.Reader.Turn(r.Context(), visitor(w, r), id, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPage(p))
}

func visitor(w http.ResponseWriter, r *http.Request) reader.Visitor {
	v := reader.Visitor{Viewer: auth.ViewerFromContext(r.Context())}
	if v.Viewer != nil {
		return v
	}
	v.SessionID = r.Header.Get(ReaderSessionHeader)
	if _, err := uuid.Parse(v.SessionID); err != nil {
		v.SessionID = uuid.NewString()
	}
	w.Header().Set(ReaderSessionHeader, v.SessionID)
	return v
}
