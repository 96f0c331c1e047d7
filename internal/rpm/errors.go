package rpm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies codec failures
type ErrorKind int

const (
	ErrBadMagic ErrorKind = iota
	ErrMissingTerminator
	ErrNameTooLong
	ErrMalformedString
	ErrUnknownTag
	ErrMissingDirectory
	ErrRequiredTagMissing
	ErrTagNotFound
	ErrInvalidValue
	ErrTruncated
	ErrFileBuilt
	ErrDigestMismatch
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case ErrBadMagic:
		return "BadMagic"
	case ErrMissingTerminator:
		return "MissingTerminator"
	case ErrNameTooLong:
		return "NameTooLong"
	case ErrMalformedString:
		return "MalformedString"
	case ErrUnknownTag:
		return "UnknownTag"
	case ErrMissingDirectory:
		return "MissingDirectory"
	case ErrRequiredTagMissing:
		return "RequiredTagMissing"
	case ErrTagNotFound:
		return "TagNotFound"
	case ErrInvalidValue:
		return "InvalidValue"
	case ErrTruncated:
		return "Truncated"
	case ErrFileBuilt:
		return "FileBuilt"
	case ErrDigestMismatch:
		return "DigestMismatch"
	default:
		return "Unknown"
	}
}

// CodecError is returned for every format violation detected while
// encoding or decoding a package.
type CodecError struct {
	Kind ErrorKind
	// Tag names the tag or field involved, when there is one.
	Tag string
	Err error
}

// Error implements the error interface
func (e *CodecError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Tag, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Kind, e.Err)
}

// Unwrap returns the wrapped error
func (e *CodecError) Unwrap() error {
	return e.Err
}

// IsKind reports whether any error in err's chain is a CodecError of kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

func newError(kind ErrorKind, tag string, format string, args ...interface{}) error {
	return &CodecError{Kind: kind, Tag: tag, Err: fmt.Errorf(format, args...)}
}
