package encoder

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrParse matches every *ParseError.
	ErrParse = errors.New("encoder: malformed input")

	// ErrUnsupportedValue is returned when a value has no representation in the
	// wire format, e.g. NaN.
	ErrUnsupportedValue = errors.New("encoder: unsupported value")

	// ErrInvalidTarget is returned by Unmarshal for a nil or non-pointer target.
	ErrInvalidTarget = errors.New("encoder: unmarshal target must be a non-nil pointer")
)

// ParseError reports structurally invalid wire data: text the format parser
// rejects, or a built-in payload that cannot be reconstructed.
type ParseError struct {
	Format string // Wire format name.
	Tag    string // Tag of the offending node, empty for syntax errors.
	Err    error
}

func (e *ParseError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("encoder: malformed %s payload in %s input: %v", e.Tag, e.Format, e.Err)
	}
	return fmt.Sprintf("encoder: malformed %s input: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }
