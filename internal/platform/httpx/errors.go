package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-fin/meridian-fin/internal/shared"
)

// RespondError maps the domain error taxonomy to RFC7807 responses.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidStateTransition):
		Problem(w, http.StatusConflict, "Invalid State Transition", err.Error())
	case errors.Is(err, shared.ErrUnbalancedEntry):
		Problem(w, http.StatusUnprocessableEntity, "Unbalanced Entry", err.Error())
	case errors.Is(err, shared.ErrConfiguration):
		Problem(w, http.StatusUnprocessableEntity, "Configuration Incomplete", err.Error())
	case errors.Is(err, shared.ErrAllocation), errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
