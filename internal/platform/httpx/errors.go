// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/roosthq/roost/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var verr *shared.ValidationError
	var cerr *shared.ConflictError
	var serr *shared.StateError
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &verr):
		ProblemWith(w, http.StatusUnprocessableEntity, "Validation Failed", verr.Error(), map[string]any{"invalid-params": verr.Errors})
	case errors.As(err, &cerr):
		ProblemWith(w, http.StatusConflict, "Conflict", cerr.Error(), map[string]any{
			"entityId":     cerr.EntityID,
			"reason":       cerr.Reason,
			"earliestDate": cerr.EarliestDate.Format("2006-01-02"),
		})
	case errors.As(err, &serr):
		ProblemWith(w, http.StatusConflict, "Invalid State", serr.Error(), map[string]any{"reason": serr.Code})
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
