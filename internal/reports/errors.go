package reports

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/agrogestion/pkg/storage"
)

// Domain errors for report operations.
var (
	ErrNotFound  = errors.New("report not found")
	ErrInvalidID = errors.New("invalid report id")
	ErrDuplicate = errors.New("report already exists")
	ErrEmpty     = errors.New("report payload is empty")
)

// MapHTTPStatus maps report domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrEmpty):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
