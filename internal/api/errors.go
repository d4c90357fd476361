package api

import (
	"errors"
	"net/http"

	"github.com/corvid-labs/rowgen/internal/rgerrors"
)

// statusForErr maps a typed rgerrors.Error to the HTTP status spec.md §7's
// error kinds imply: cycles (422), cancellation-of-unknown-session (404) and
// parse failures (400) are client errors, everything else on this boundary
// is a server error.
func statusForErr(err error) int {
	var rgErr *rgerrors.Error
	if !errors.As(err, &rgErr) {
		return http.StatusInternalServerError
	}

	switch rgErr.Kind {
	case rgerrors.KindCycle:
		return http.StatusUnprocessableEntity
	case rgerrors.KindCancelled:
		return http.StatusNotFound
	case rgerrors.KindParse:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
