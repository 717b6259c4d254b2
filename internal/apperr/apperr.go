package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel error kinds for the role and directory services. Handlers map
// these onto HTTP statuses; everything not wrapping one of them is treated
// as an internal failure.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrPermissionDenied = errors.New("permission-denied")
	ErrNotFound         = errors.New("not-found")
	ErrInvalidArgument  = errors.New("invalid-argument")
	ErrConflict         = errors.New("conflict")
)

// Wrap attaches a human-readable message to one of the sentinel kinds.
func Wrap(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{kind}, args...)...)
}

// Kind returns the sentinel the error wraps, or nil for plain errors.
func Kind(err error) error {
	for _, k := range []error{ErrUnauthenticated, ErrPermissionDenied, ErrNotFound, ErrInvalidArgument, ErrConflict} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// HTTPStatus maps an error to the HTTP status a web boundary should return.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
