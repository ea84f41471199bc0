package bridge

import (
	"errors"
	"net/http"
)

var (
	// ErrUnknownChannel indicates a channel outside the registry was requested.
	ErrUnknownChannel = errors.New("channel not registered")
	// ErrNoHandler indicates a registered channel has no host handler bound to it.
	ErrNoHandler = errors.New("no handler for channel")
	// ErrUnavailable indicates no bridge surface is present in the running environment.
	ErrUnavailable = errors.New("bridge unavailable")
	// ErrInvalidArgs indicates channel arguments could not be decoded or validated.
	ErrInvalidArgs = errors.New("invalid channel arguments")
	// ErrPayloadTooLarge indicates a request body exceeded the host payload limit.
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")
	// ErrClosed indicates the transport connection has been closed.
	ErrClosed = errors.New("bridge connection closed")
)

// RemoteError carries the message of a failed envelope.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return "remote operation failed"
	}
	return e.Message
}

// MapHTTPStatus maps bridge errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnknownChannel):
		return http.StatusForbidden
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrInvalidArgs):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoHandler):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
