package models

import "fmt"

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrManifest ErrorType = iota
	ErrBuild
	ErrPackageRead
	ErrVerify
	ErrSigning
	ErrFileOp
	ErrInvalidConfig
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrManifest:
		return "Manifest"
	case ErrBuild:
		return "Build"
	case ErrPackageRead:
		return "PackageRead"
	case ErrVerify:
		return "Verify"
	case ErrSigning:
		return "Signing"
	case ErrFileOp:
		return "FileOp"
	case ErrInvalidConfig:
		return "InvalidConfig"
	default:
		return "Unknown"
	}
}

// RpmKitError is returned by the command line operations
type RpmKitError struct {
	Type    ErrorType
	Package string
	Err     error
}

// Error implements the error interface
func (e *RpmKitError) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Package, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *RpmKitError) Unwrap() error {
	return e.Err
}

// Wrap returns nil when err is nil, otherwise err tagged with typ
func Wrap(typ ErrorType, pkg string, err error) error {
	if err == nil {
		return nil
	}
	return &RpmKitError{Type: typ, Package: pkg, Err: err}
}
