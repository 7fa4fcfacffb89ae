package api

import (
	"errors"
	"fmt"
)

// Kind separates failures that never reached the backend from ones it reported.
type Kind int

const (
	// KindNetwork means the request could not be sent or completed.
	KindNetwork Kind = iota + 1
	// KindServer means the backend answered with a non-2xx status.
	KindServer
	// KindDecode means the backend answered 2xx with a body the client
	// could not read.
	KindDecode
)

// NetworkMessage is shown for every KindNetwork failure.
const NetworkMessage = "network error, please retry"

// Error is returned by every Client call that fails.
type Error struct {
	Kind   Kind
	Status int
	// Message is the backend's error field, empty when it sent none.
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindNetwork:
		return fmt.Sprintf("%s: %v", NetworkMessage, e.Err)
	case e.Kind == KindDecode:
		return fmt.Sprintf("failed to decode %d response: %v", e.Status, e.Err)
	case e.Message != "":
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("server returned %d", e.Status)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the text to show a user for err. Network failures get
// NetworkMessage; server failures get the backend's message or fallback.
// Undecodable responses always get fallback.
// Errors from outside this package are shown as they are.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch apiErr.Kind {
	case KindNetwork:
		return NetworkMessage
	case KindDecode:
		return fallback
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsStatus reports whether err is a server error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindServer && apiErr.Status == status
}
