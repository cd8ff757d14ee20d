// Package protocol defines the wire types and error vocabulary shared by the
// relay server and the sync client: the WebSocket tagged-union messages,
// the HTTP JSON error envelope, and the Kind taxonomy that both halves use
// to classify failures.
package protocol

import (
	"errors"
	"net/http"
)

// Kind classifies an error into a small, closed vocabulary. HTTP handlers
// map a Kind to a fixed status code; the client logs DecryptFailed and
// Transient without surfacing them to the user as fatal.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthRequired
	KindAuthInvalid
	KindConflict
	KindNotFound
	KindGone
	KindBadRequest
	KindTransient
	KindDecryptFailed
)

// Error is the canonical error type passed between store, service, and
// transport layers. The human string becomes the HTTP body's "error" field.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an *Error of the given kind with a human message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind, chaining an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// AsError extracts a *protocol.Error from err, if any is present in its chain.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// StatusCode maps a Kind to its HTTP status. Kinds with no HTTP meaning
// (DecryptFailed is client-only) fall back to 500.
func (k Kind) StatusCode() int {
	switch k {
	case KindAuthRequired, KindAuthInvalid:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindGone:
		return http.StatusGone
	case KindBadRequest:
		return http.StatusBadRequest
	case KindTransient:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrDecryptFailed is a client-only KindDecryptFailed error value. The
// crypto envelope does not return it; it builds its own KindDecryptFailed
// errors when a ciphertext can't be authenticated or decoded.
var ErrDecryptFailed = New(KindDecryptFailed, "failed to decrypt value")
