package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-booking/internal/queue"
)

func (h *Handlers) getQueue(w http.ResponseWriter, r *http.Request) {
	q, err := h.queue.Get(r.Context(), chi.URLParam(r, "clinicId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handlers) setQueue(w http.ResponseWriter, r *http.Request) {
	var in queue.QueueInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	q, err := h.queue.Set(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handlers) advanceQueue(w http.ResponseWriter, r *http.Request) {
	q, err := h.queue.Advance(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handlers) queueEstimates(w http.ResponseWriter, r *http.Request) {
	est, err := h.queue.Estimates(r.Context(), chi.URLParam(r, "clinicId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}
