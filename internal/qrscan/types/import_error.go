package types

import (
	"errors"
	"fmt"
)

// ImportErrorKind distinguishes unreadable files from readable files with
// the wrong shape.
type ImportErrorKind string

const (
	ImportParseFailure    ImportErrorKind = "parse_failure"
	ImportMalformedFormat ImportErrorKind = "malformed_format"
)

var (
	ErrParseFailure    = errors.New("import: file is not valid JSON")
	ErrMalformedFormat = errors.New("import: file is not a list of scan records")
)

// ImportError is returned by history import.  Index is the offending element
// for per-record failures and -1 otherwise.
type ImportError struct {
	Kind  ImportErrorKind
	Index int
	Err   error
}

func (e *ImportError) Error() string {
	base := ErrMalformedFormat.Error()
	if e.Kind == ImportParseFailure {
		base = ErrParseFailure.Error()
	}
	if e.Index >= 0 {
		base = fmt.Sprintf("%s (record %d)", base, e.Index)
	}
	if e.Err != nil {
		return base + ": " + e.Err.Error()
	}
	return base
}

func (e *ImportError) Unwrap() error { return e.Err }

// Is lets callers match on the kind with errors.Is(err, ErrParseFailure).
func (e *ImportError) Is(target error) bool {
	switch target {
	case ErrParseFailure:
		return e.Kind == ImportParseFailure
	case ErrMalformedFormat:
		return e.Kind == ImportMalformedFormat
	}
	return false
}
