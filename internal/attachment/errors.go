package attachment

import (
	"errors"
	"net/http"
)

var (
	// ErrStorageIO is returned when the storage backend is unreachable or denies access.
	ErrStorageIO = errors.New("storage I/O failure")

	// ErrNotFound is returned when a read or delete target does not exist.
	ErrNotFound = errors.New("attachment content not found")

	// ErrNotScanned is returned while an attachment waits for its malware scan.
	// Callers may retry later.
	ErrNotScanned = errors.New("attachment not scanned yet")

	// ErrNotClean is returned for attachments that must never be disclosed.
	ErrNotClean = errors.New("attachment is not clean")

	// ErrUnsupportedMediaType is returned when a file name or mime type is rejected.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrUnsupported is returned by backends that cannot perform an operation,
	// such as restoring hard-deleted content.
	ErrUnsupported = errors.New("operation not supported by storage backend")

	// ErrInvalidTransition is returned when a scan status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// HTTPStatus maps an error from this layer to the HTTP status class the host
// should answer with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotScanned):
		return http.StatusConflict
	case errors.Is(err, ErrNotClean):
		return http.StatusMethodNotAllowed
	case errors.Is(err, ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may retry the same request later.
func Retryable(err error) bool {
	return errors.Is(err, ErrNotScanned)
}
