package parcel

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrInvalidArgument indicates a missing buffer or source, or a non-positive count.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnsupportedType indicates a tag the codec cannot handle.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrNotImplemented indicates a recognised kind with no wire encoding (floating point).
	ErrNotImplemented = fmt.Errorf("%w: not implemented", ErrUnsupportedType)

	// ErrUnknownType indicates an unrecognised tag.
	ErrUnknownType = fmt.Errorf("%w: bad parameter", ErrUnsupportedType)

	// ErrCapacity indicates the buffer could not grow to the required size.
	ErrCapacity = errors.New("buffer capacity exceeded")

	// ErrCorrupt indicates input bytes that cannot be a valid packed unit.
	ErrCorrupt = errors.New("corrupt input")

	// ErrTruncated indicates a decode would read past the end of the buffer.
	ErrTruncated = fmt.Errorf("%w: truncated", ErrCorrupt)

	// ErrTypeMismatch indicates the packed tag or Go type differs from the one requested.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrSizeMismatch indicates the bytes produced differ from the estimated size.
	ErrSizeMismatch = errors.New("internal size mismatch")

	// ErrDuplicateRecord indicates a record type or name is already registered.
	ErrDuplicateRecord = errors.New("record already registered")

	// ErrInvalidSchema indicates a struct cannot be described as a record.
	ErrInvalidSchema = errors.New("invalid record schema")
)

// CodecError represents a pack or unpack failure.
// It wraps a sentinel error with context about the type and field involved.
type CodecError struct {
	Err   error    // Underlying sentinel error (ErrTruncated, ErrTypeMismatch, etc.)
	Op    string   // Operation that failed (pack, unpack, size)
	Type  DataType // Type being processed when the failure occurred
	Field []string // Path of record fields leading to the failure
	Cause error    // Original error, when distinct from Err
}

func (e *CodecError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteByte(' ')
	b.WriteString(e.Type.String())
	if len(e.Field) > 0 {
		b.WriteByte('.')
		b.WriteString(strings.Join(e.Field, "."))
	}
	b.WriteString(": ")
	if e.Cause != nil {
		b.WriteString(e.Cause.Error())
	} else {
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *CodecError) Unwrap() error {
	return e.Err
}

// newCodecError creates a CodecError for a failure at the current level.
func newCodecError(sentinel error, op string, typ DataType, cause error) error {
	return &CodecError{
		Err:   sentinel,
		Op:    op,
		Type:  typ,
		Cause: cause,
	}
}

// withField prefixes the field path of err, wrapping plain errors first.
// The outermost record reports the full path to the failing field.
func withField(err error, op string, typ DataType, field string) error {
	var ce *CodecError
	if errors.As(err, &ce) {
		ce.Field = append([]string{field}, ce.Field...)
		ce.Type = typ
		return ce
	}
	return &CodecError{
		Err:   err,
		Op:    op,
		Type:  typ,
		Field: []string{field},
	}
}

// codecf builds a CodecError whose message carries formatted detail.
func codecf(sentinel error, op string, typ DataType, format string, args ...any) error {
	return newCodecError(sentinel, op, typ, fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...))
}
