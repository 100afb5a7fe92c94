package handler

import (
	"net/http"
	"time"

	"mednotes/internal/assistant"
)

type AssistantHandler struct {
	Responder assistant.Responder
}

type messageReq struct {
	Message string `json:"message"`
}

type messageResp struct {
	Text      string    `json:"text"`
	IsAI      bool      `json:"isAI"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *AssistantHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResp{Text: assistant.Welcome, IsAI: true, Timestamp: time.Now()})
}

func (h *AssistantHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req messageReq
	if !decodeJSON(w, r, &req) {
		return
	}
	reply, err := h.Responder.Reply(r.Context(), req.Message)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResp{Text: reply, IsAI: true, Timestamp: time.Now()})
}
