package handler

import (
	"net/http"

	"mednotes/internal/apperr"
	"mednotes/internal/auth"
	"mednotes/internal/session"
)

type AuthHandler struct {
	Sessions *session.Manager
	JWT      *auth.JWT
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	Token  string     `json:"token"`
	Viewer viewerResp `json:"viewer"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req auth.SignupDraft
	if !decodeJSON(w, r, &req) {
		return
	}

	sid, u, err := h.Sessions.Signup(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.issue(w, r, http.StatusCreated, sid, u)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		verr := &apperr.ValidationError{Fields: map[string]string{}}
		if req.Email == "" {
			verr.Fields["email"] = "email is required"
		}
		if req.Password == "" {
			verr.Fields["password"] = "password is required"
		}
		writeError(w, r, verr)
		return
	}

	sid, u, err := h.Sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.issue(w, r, http.StatusOK, sid, u)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sid, _ := auth.SessionIDFromContext(r.Context())
	if err := h.Sessions.End(r.Context(), sid); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, status int, sid string, u auth.User) {
	token, err := h.JWT.Sign(sid, u.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, authResp{Token: token, Viewer: toViewer(u)})
}
