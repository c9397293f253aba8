package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	defaultStartHour       = 9
	defaultEndHour         = 17
	defaultIntervalMinutes = 30
)

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func (h *Handlers) availableSlots(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	day, err := h.parseDay(raw)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	clinicID := chi.URLParam(r, "clinicId")
	slots, err := h.slots.AvailableSlots(r.Context(), clinicID, day)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailableSlotsResponse{ClinicID: clinicID, Date: raw, Slots: slots})
}

func (h *Handlers) listClinicSlots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := h.optionalDay(q.Get("from"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := h.optionalDay(q.Get("to"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.slots.ListClinicSlots(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) setSlots(w http.ResponseWriter, r *http.Request) {
	var req SetSlotsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	day, err := h.parseDay(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Slots == nil {
		req.Slots = []time.Time{}
	}
	ts, err := h.slots.SetSlots(r.Context(), day, req.Slots)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *Handlers) generateSlots(w http.ResponseWriter, r *http.Request) {
	var req GenerateSlotsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	day, err := h.parseDay(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ts, err := h.slots.GenerateDefault(r.Context(), day,
		intOr(req.StartHour, defaultStartHour),
		intOr(req.EndHour, defaultEndHour),
		intOr(req.IntervalMinutes, defaultIntervalMinutes),
	)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}
