// Package apperr is the error taxonomy shared by the product store, the asset
// storage service and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. A Kind is itself an error so callers can test
// with errors.Is(err, apperr.QueryFailed).
type Kind int

const (
	Other Kind = iota
	// ConnectionFailed: pool exhausted or connection broken. Transient.
	ConnectionFailed
	// QueryFailed: statement execution error or constraint violation.
	QueryFailed
	// MappingFailed: a row did not match the entity shape.
	MappingFailed
	// InvalidMimeType: uploaded part is not an accepted image type.
	InvalidMimeType
	// MultipartFieldMissing: the image part is absent from the body.
	MultipartFieldMissing
	// Io: filesystem fault.
	Io
	// Invalid: caller input rejected before reaching the store.
	Invalid
	// NotFound is only produced above the store; the store reports absence
	// as an empty result.
	NotFound
)

var kindNames = map[Kind]string{
	Other:                 "other",
	ConnectionFailed:      "connection failed",
	QueryFailed:           "query failed",
	MappingFailed:         "mapping failed",
	InvalidMimeType:       "invalid mime type",
	MultipartFieldMissing: "multipart field missing",
	Io:                    "i/o error",
	Invalid:               "invalid input",
	NotFound:              "not found",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) Error() string { return k.String() }

// Client reports whether the kind is caused by the caller's input.
func (k Kind) Client() bool {
	switch k {
	case InvalidMimeType, MultipartFieldMissing, Invalid, NotFound:
		return true
	}
	return false
}

// Error carries the operation, the kind and the underlying cause.
type Error struct {
	Op   string
	Kind Kind
	Err  error
	// Message is safe to show to clients. Only set for client kinds.
	Message string
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	} else if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a bare Kind target.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// E wraps err with op and kind. A nil err still yields an error so kinds
// without an underlying cause (e.g. MultipartFieldMissing) can be built.
func E(op string, kind Kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Client builds a client-facing error with a displayable message.
func Client(op string, kind Kind, format string, args ...any) error {
	return &Error{Op: op, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain, or Other.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}

// Message returns the text safe to send to a client for err. Server-side
// kinds never expose their cause.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) || !e.Kind.Client() {
		return "Internal Server Error"
	}
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case InvalidMimeType:
		return "Image must be a jpeg or png image."
	case MultipartFieldMissing:
		return "Invalid request: image field missing."
	case NotFound:
		return "Resource Not Found"
	}
	return "Invalid request"
}

// MappingError is the cause of a MappingFailed error.
type MappingError struct {
	Column string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("column %q: %s", e.Column, e.Reason)
}
