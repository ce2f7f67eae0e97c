package httpx

import (
	"errors"
	"net/http"

	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// RespondError maps the shared error taxonomy to HTTP responses.
// Unauthenticated -> 401, Forbidden -> 403, NotFound -> 404,
// Conflict -> 409, BadRequest -> 400, anything else -> 500.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", `Basic realm="coursekeeper"`)
		Problem(w, http.StatusUnauthorized, "Unauthenticated", "valid credentials are required")
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "the operation is not permitted for this principal")
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", "the requested resource does not exist")
	case errors.Is(err, shared.ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrBadRequest):
		Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
