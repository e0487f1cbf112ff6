package pak

import (
	"errors"
	"fmt"
)

// ErrKind classifies failures raised while reading or extracting an archive.
type ErrKind int

const (
	// KindFormat is a structural violation: bad header, unterminated
	// string, truncated record.
	KindFormat ErrKind = iota + 1
	// KindBounds means a computed offset or size exceeds an available buffer.
	KindBounds
	// KindDecompression is a corrupt or truncated compressed stream.
	KindDecompression
	// KindIO is a filesystem read or write failure.
	KindIO
)

func (k ErrKind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindBounds:
		return "bounds"
	case KindDecompression:
		return "decompression"
	case KindIO:
		return "io"
	case 0:
		return "other"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Sentinels for errors.Is matching against an *Error of the same kind.
var (
	ErrFormat        = &Error{Kind: KindFormat}
	ErrBounds        = &Error{Kind: KindBounds}
	ErrDecompression = &Error{Kind: KindDecompression}
	ErrIO            = &Error{Kind: KindIO}
)

// Error is the error type returned by the pak packages.
type Error struct {
	Kind   ErrKind
	Op     string // what was being read or written
	Offset int64  // cursor offset where it happened, -1 if unknown
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + " error"
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at offset %d", e.Offset)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// FormatError returns a KindFormat error.
func FormatError(op string, offset int64, err error) error {
	return &Error{Kind: KindFormat, Op: op, Offset: offset, Err: err}
}

// BoundsError returns a KindBounds error.
func BoundsError(op string, offset int64, err error) error {
	return &Error{Kind: KindBounds, Op: op, Offset: offset, Err: err}
}

// DecompressionError returns a KindDecompression error.
func DecompressionError(op string, err error) error {
	return &Error{Kind: KindDecompression, Op: op, Offset: -1, Err: err}
}

// IOError returns a KindIO error.
func IOError(op string, err error) error {
	return &Error{Kind: KindIO, Op: op, Offset: -1, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) ErrKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
