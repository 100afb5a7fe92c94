package handler

import (
	"net/http"

	"mednotes/internal/analytics"
	"mednotes/internal/catalog"
)

type AdminHandler struct {
	Catalog   catalog.Store
	Analytics *analytics.Service
}

type notePatchReq struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Subject     *string `json:"subject"`
	PageCount   *int    `json:"pageCount"`
	FreePages   *int    `json:"freePages"`
	FileURL     *string `json:"fileUrl"`
}

func (h *AdminHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req catalog.NoteDraft
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.Catalog.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNote(n))
}

func (h *AdminHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	var req notePatchReq
	if !decodeJSON(w, r, &req) {
		return
	}

	n, err := h.Catalog.Update(r.Context(), id, catalog.NotePatch(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNote(n))
}

func (h *AdminHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	n, err := h.Catalog.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNote(n))
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Analytics.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
