package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"innotour.org/internal/audit"
	"innotour.org/internal/auth"
	"innotour.org/internal/scheduling"
)

// errorBody is the uniform error envelope: a stable machine-readable
// code plus a human-readable detail.
type errorBody struct {
	Error     string `json:"error"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, errCode, detail string) {
	writeJSON(w, code, errorBody{
		Error:     errCode,
		Detail:    detail,
		RequestID: audit.RequestIDFromContext(r.Context()),
	})
}

// writeDomainError maps domain sentinels to HTTP status and error code.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code, errCode, detail := classifyError(err)
	writeError(w, r, code, errCode, detail)
}

func classifyError(err error) (int, string, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "incorrect email or password"
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, "token_expired", "token has expired"
	case errors.Is(err, auth.ErrTokenWrongScope), errors.Is(err, auth.ErrTokenInvalid):
		return http.StatusUnauthorized, "token_invalid", "could not validate credentials"
	case errors.Is(err, auth.ErrCSRFInvalid):
		return http.StatusForbidden, "csrf_invalid", "CSRF token missing or mismatched"
	case errors.Is(err, auth.ErrPermissionRequired):
		return http.StatusForbidden, "permission_required", "not enough permissions"
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusBadRequest, "email_already_registered", "email already registered"
	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, "not_found", "resource not found"
	case errors.Is(err, auth.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input", err.Error()
	case errors.Is(err, scheduling.ErrAgencyExists):
		return http.StatusBadRequest, "agency_already_registered", "agency already registered"
	case errors.Is(err, scheduling.ErrAgencyNotFound):
		return http.StatusNotFound, "agency_not_found", "agency not found"
	case errors.Is(err, scheduling.ErrCategoryExists):
		return http.StatusBadRequest, "category_already_exists", "category already exists"
	case errors.Is(err, scheduling.ErrCategoryNotFound):
		return http.StatusNotFound, "category_not_found", "category not found"
	case errors.Is(err, scheduling.ErrNoTimeSlots):
		return http.StatusNotFound, "no_time_slots", "no time slots for requested day"
	case errors.Is(err, scheduling.ErrSlotNotFound):
		return http.StatusNotFound, "slot_not_found", "time slot not found"
	case errors.Is(err, scheduling.ErrSlotFull):
		return http.StatusConflict, "slot_full", "not enough capacity left in slot"
	case errors.Is(err, scheduling.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input", err.Error()
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}
