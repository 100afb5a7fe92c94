package handler

import (
	"net/http"

	"mednotes/internal/auth"
	"mednotes/internal/session"
)

type MeHandler struct {
	Sessions *session.Manager
}

func (h *MeHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toViewer(*auth.ViewerFromContext(r.Context())))
}

func (h *MeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req auth.ProfilePatch
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.session(r).UpdateProfile(r.Context(), auth.ViewerFromContext(r.Context()).ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toViewer(u))
}

func (h *MeHandler) Upgrade(w http.ResponseWriter, r *http.Request) {
	u, err := h.session(r).Upgrade(r.Context(), auth.ViewerFromContext(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toViewer(u))
}

func (h *MeHandler) session(r *http.Request) *session.Session {
	sid, _ := auth.SessionIDFromContext(r.Context())
	return h.Sessions.Get(sid)
}
