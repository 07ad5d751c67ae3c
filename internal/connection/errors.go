package connection

import "errors"

// Common errors returned by connections and connectors.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, connection.ErrNotFound) {
//	    // the remote record is gone
//	}
var (
	// ErrUnknownType is returned when no connection is registered for a type.
	ErrUnknownType = errors.New("unknown connection type")

	// ErrInvalidInfo is returned when connection info lacks required values.
	ErrInvalidInfo = errors.New("invalid connection info")

	// ErrNotFound is returned when Update or Remove targets a record the
	// remote system does not have.
	ErrNotFound = errors.New("remote record not found")

	// ErrUnavailable is returned when the remote system cannot be reached.
	ErrUnavailable = errors.New("remote system unavailable")

	// ErrClosed is returned when a closed context is used.
	ErrClosed = errors.New("connection context closed")
)

// IsRetryable returns true if the error is likely to succeed on retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUnavailable)
}

// IsConfiguration returns true if the error can only be fixed by changing
// the connection profile.
func IsConfiguration(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUnknownType) || errors.Is(err, ErrInvalidInfo)
}
