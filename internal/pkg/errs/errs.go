package errs

import (
	"fmt"
	"strings"

	cr "github.com/cockroachdb/errors"
)

// Taxonomy markers. Package sentinels are marked with one of these so the
// HTTP boundary can classify failures without knowing every domain error.
var (
	ErrNotFound          = cr.New("not found")
	ErrUnavailable       = cr.New("unavailable")
	ErrCapacityExceeded  = cr.New("capacity exceeded")
	ErrInvalidTransition = cr.New("invalid transition")
	ErrAlreadyCanceled   = cr.New("already canceled")
	ErrConflict          = cr.New("conflict")
	ErrPartialFailure    = cr.New("partial failure")
	ErrInvalidInput      = cr.New("invalid input")
	ErrUnauthenticated   = cr.New("unauthenticated")
	ErrForbidden         = cr.New("forbidden")
)

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return cr.Wrap(err, msg)
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return cr.Wrapf(err, format, args...)
}

func New(msg string) error {
	return cr.New(msg)
}

func Mark(err error, markErr error) error {
	if err == nil {
		return markErr
	}
	return cr.Mark(err, markErr)
}

// Is reports whether err matches reference, either through the wrap chain
// or through a mark attached with Mark.
func Is(err, reference error) bool {
	return cr.Is(err, reference)
}

func ExtractStackLines(err error, maxLines int) []string {
	if err == nil {
		return nil
	}
	s := fmt.Sprintf("%+v", err)
	lines := strings.Split(s, "\n")
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

var kinds = []struct {
	name   string
	marker error
}{
	{"not_found", ErrNotFound},
	{"unavailable", ErrUnavailable},
	{"capacity_exceeded", ErrCapacityExceeded},
	{"invalid_transition", ErrInvalidTransition},
	{"already_canceled", ErrAlreadyCanceled},
	{"conflict", ErrConflict},
	{"partial_failure", ErrPartialFailure},
	{"invalid_input", ErrInvalidInput},
	{"unauthenticated", ErrUnauthenticated},
	{"forbidden", ErrForbidden},
}

// Kind names the taxonomy marker carried by err, or "" when unclassified.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if cr.Is(err, k.marker) {
			return k.name
		}
	}
	return ""
}

// FromKind rebuilds an error with msg marked by the named kind.
func FromKind(kind, msg string) error {
	err := cr.New(msg)
	for _, k := range kinds {
		if k.name == kind {
			return cr.Mark(err, k.marker)
		}
	}
	return err
}

func As(err error, target any) bool {
	return cr.As(err, target)
}
