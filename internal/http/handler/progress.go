package handler

import (
	"net/http"

	"mednotes/internal/progress"
)

type ProgressHandler struct {
	Store progress.Store
}

// List returns the reading progress of the signed-in viewer, or of the
// anonymous reader session named in the request header.
func (h *ProgressHandler) List(w http.ResponseWriter, r *http.Request) {
	v := visitor(w, r)
	rows, err := h.Store.ListForViewer(r.Context(), v.Owner())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]progressResp, 0, len(rows))
	for _, p := range rows {
		out = append(out, toProgress(p))
	}
	writeJSON(w, http.StatusOK, out)
}
