package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-booking/internal/identity"
	"github.com/hackgods/clinic-booking/internal/messaging"
)

func (h *Handlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req messaging.SendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	msg, err := h.messages.Send(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handlers) conversation(w http.ResponseWriter, r *http.Request) {
	list, err := h.messages.Conversation(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []messaging.Message{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) markRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.messages.MarkRead(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MarkReadResponse{Marked: n})
}

func (h *Handlers) unread(w http.ResponseWriter, r *http.Request) {
	u, err := h.messages.Unread(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) chatPartners(w http.ResponseWriter, r *http.Request) {
	list, err := h.messages.ChatPartners(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []identity.User{}
	}
	writeJSON(w, http.StatusOK, list)
}
