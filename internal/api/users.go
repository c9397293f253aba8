package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-booking/internal/identity"
)

func (h *Handlers) onboard(w http.ResponseWriter, r *http.Request) {
	var req OnboardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.users.Onboard(r.Context(), req.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handlers) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Me(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) listClinicsByStatus(w http.ResponseWriter, r *http.Request) {
	status := identity.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = identity.StatusPending
	}
	list, err := h.users.ListClinicsByStatus(r.Context(), status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) updateClinicStatus(w http.ResponseWriter, r *http.Request) {
	var req ClinicStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.users.UpdateClinicStatus(r.Context(), chi.URLParam(r, "userId"), req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handlers) deleteClinic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userId")
	if err := h.users.DeleteClinic(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{ID: id, Deleted: true})
}

func (h *Handlers) listPatients(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.ListPatients(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
