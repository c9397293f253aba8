package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/clinic-booking/internal/apperr"
	"github.com/hackgods/clinic-booking/internal/directory"
)

var errNameRequired = apperr.New(apperr.KindInvalid, "name is required")

// searchClinics serves both the plain listing and the filtered search;
// without q and specialization every approved clinic matches.
func (h *Handlers) searchClinics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.directory.SearchClinics(r.Context(), q.Get("q"), q.Get("specialization"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) nameAvailable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		h.fail(w, r, errNameRequired)
		return
	}
	ok, err := h.directory.IsNameUnique(r.Context(), name, q.Get("clinic_id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NameAvailableResponse{Name: name, Available: ok})
}

func (h *Handlers) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.directory.GetProfile(r.Context(), chi.URLParam(r, "clinicId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) createProfile(w http.ResponseWriter, r *http.Request) {
	var in directory.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.directory.CreateInitialProfile(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) upsertProfile(w http.ResponseWriter, r *http.Request) {
	var in directory.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.directory.UpsertProfile(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) updateAvailability(w http.ResponseWriter, r *http.Request) {
	var req AvailabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.directory.UpdateAvailability(r.Context(), req.IsAvailable, req.AvailabilityNote)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) listDoctors(w http.ResponseWriter, r *http.Request) {
	list, err := h.directory.ListDoctors(r.Context(), chi.URLParam(r, "clinicId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) addDoctor(w http.ResponseWriter, r *http.Request) {
	var in directory.DoctorInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.directory.AddDoctor(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handlers) updateDoctor(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var in directory.DoctorInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.directory.UpdateDoctor(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) deleteDoctor(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.directory.DeleteDoctor(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{ID: id.String(), Deleted: true})
}
