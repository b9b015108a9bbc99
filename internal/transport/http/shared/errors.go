package shared

import (
	"errors"
	"net/http"

	"evalhub/internal/domain/cycles"
	"evalhub/internal/domain/directory"
	"evalhub/internal/domain/evaluation"
	"evalhub/internal/transport/http/api"
)

// FailDomain maps domain errors onto the HTTP status taxonomy shared by
// every handler: missing (or cross-org) resources are 404, in-org access
// failures 403, illegal state transitions 409, rejected payloads 422.
func FailDomain(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, evaluation.ErrNotFound),
		errors.Is(err, directory.ErrNotFound),
		errors.Is(err, cycles.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", requestID)
	case errors.Is(err, evaluation.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrInvalidTransition),
		errors.Is(err, directory.ErrConflict),
		errors.Is(err, cycles.ErrCycleConflict):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), requestID)
	case errors.Is(err, evaluation.ErrValidation),
		errors.Is(err, directory.ErrValidation),
		errors.Is(err, cycles.ErrValidation),
		errors.Is(err, cycles.ErrNoActiveCycle):
		api.Fail(w, http.StatusUnprocessableEntity, "validation_error", err.Error(), requestID)
	default:
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}
