package musicfile

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidValue is returned when a value falls outside its closed set,
	// e.g. an unknown note name or an octave outside [1,7].
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidFormat is returned when an interchange document has a missing
	// or mismatching __type tag, or cannot be parsed at all.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrUnsupportedVersion is returned when a music file document carries a
	// __version that is not in SupportedVersions.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrNotFound is returned by lookups of tracks, items or indices that do
	// not exist.
	ErrNotFound = errors.New("not found")
)

// ValueError reports the field and the offending value of a failed
// validation. It matches ErrInvalidValue with errors.Is.
type ValueError struct {
	Field string
	Value any
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%v is not a valid %s", e.Value, e.Field)
}

func (e *ValueError) Unwrap() error { return ErrInvalidValue }

func invalid(field string, value any) error {
	return &ValueError{Field: field, Value: value}
}

func formatError(expected, got string) error {
	if got == "" {
		return fmt.Errorf("%w: missing __type, expected %q", ErrInvalidFormat, expected)
	}
	return fmt.Errorf("%w: __type %q, expected %q", ErrInvalidFormat, got, expected)
}

// decodeError wraps a syntax or type error of the JSON or YAML decoder.
type decodeError struct{ err error }

func (e *decodeError) Error() string   { return fmt.Sprintf("%v: %v", ErrInvalidFormat, e.err) }
func (e *decodeError) Unwrap() []error { return []error{ErrInvalidFormat, e.err} }
