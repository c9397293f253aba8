package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-booking/internal/apperr"
)

const (
	dateLayout   = "2006-01-02"
	maxBodyBytes = 1 << 20
)

var (
	errInvalidBody = apperr.New(apperr.KindInvalid, "could not parse JSON body")
	errInvalidDate = apperr.New(apperr.KindInvalid, "date must be YYYY-MM-DD")
	errInvalidID   = apperr.New(apperr.KindInvalid, "id must be a valid UUID")
)

// Handlers adapts the domain services to HTTP.
type Handlers struct {
	users        UserService
	directory    DirectoryService
	slots        SlotService
	appointments AppointmentService
	queue        QueueService
	messages     MessageService
	loc          *time.Location
	log          *zap.Logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an ErrorResponse. Internal errors are logged and
// replaced with a generic message.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeError(w, statusFor(kind), kind.String(), err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errInvalidBody
	}
	return nil
}

func (h *Handlers) parseDay(raw string) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, raw, h.loc)
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	return day, nil
}

// optionalDay parses raw when present.
func (h *Handlers) optionalDay(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	day, err := h.parseDay(raw)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}
