package dna

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat indicates a malformed layout table: bad signature, trailing
	// bytes, an unparsable member name or a struct whose members do not add up
	// to its recorded size.
	ErrFormat = errors.New("dna: malformed layout table")

	// ErrTruncated indicates fewer bytes than a fixed-size field requires.
	ErrTruncated = errors.New("dna: truncated input")

	// ErrCorruptIndex indicates a type, name or struct index outside its table.
	ErrCorruptIndex = errors.New("dna: index out of range")

	// ErrUnsupportedPointerWidth indicates a pointer-size marker other than 4 or 8.
	ErrUnsupportedPointerWidth = errors.New("dna: unsupported pointer width")
)

// DecodeError records where decoding stopped. It unwraps to one of the
// package sentinels, so errors.Is(err, ErrTruncated) works on it.
type DecodeError struct {
	Op     string // table being decoded: "signature", "types", "names", "structs", ...
	Offset int    // byte offset into the blob
	Detail string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("dna: decode %s at offset %d: %s: %v", e.Op, e.Offset, e.Detail, e.Err)
	}
	return fmt.Sprintf("dna: decode %s at offset %d: %v", e.Op, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(op string, off int, err error, detail string, args ...any) error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &DecodeError{Op: op, Offset: off, Detail: detail, Err: err}
}
