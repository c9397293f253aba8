package api

import (
	"net/http"

	"github.com/hackgods/clinic-booking/internal/appointment"
)

func (h *Handlers) bookAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointment.BookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	appt, err := h.appointments.Book(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func (h *Handlers) listAppointments(w http.ResponseWriter, r *http.Request) {
	var status *appointment.AppointmentStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := appointment.AppointmentStatus(raw)
		status = &s
	}
	list, err := h.appointments.List(r.Context(), status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []appointment.Appointment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	appt, err := h.appointments.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handlers) updateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req StatusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	appt, err := h.appointments.UpdateStatus(r.Context(), id, req.Status, req.Notes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *Handlers) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	appt, err := h.appointments.Cancel(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}
