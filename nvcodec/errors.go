package nvcodec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLibraryNotFound matches a *LibraryNotFoundError.
	ErrLibraryNotFound = errors.New("nvcodec: library not found")
	// ErrSymbolNotFound matches a *SymbolNotFoundError.
	ErrSymbolNotFound = errors.New("nvcodec: symbol not found")
	// ErrUnsupportedVersion matches an *UnsupportedVersionError.
	ErrUnsupportedVersion = errors.New("nvcodec: unsupported API version")
	// ErrOperationUnavailable matches an *OperationUnavailableError.
	ErrOperationUnavailable = errors.New("nvcodec: operation unavailable")
	// ErrVendorCall matches a *VendorCallError.
	ErrVendorCall = errors.New("nvcodec: vendor call failed")
	// ErrLoaderClosed is returned by Get and by facade calls after Close.
	ErrLoaderClosed = errors.New("nvcodec: loader closed")
	// ErrUnknownStruct is returned for a struct name without a version tag
	// at the negotiated API version.
	ErrUnknownStruct = errors.New("nvcodec: no struct version tag")
)

// LibraryNotFoundError reports that no candidate shared library could be opened.
type LibraryNotFoundError struct {
	Kind      Kind
	Attempted []string
	Causes    []error
}

func (e *LibraryNotFoundError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "nvcodec: %s library not found", e.Kind)
	if len(e.Attempted) > 0 {
		fmt.Fprintf(&b, " (tried %s)", strings.Join(e.Attempted, ", "))
	}
	for _, cause := range e.Causes {
		if cause == nil {
			continue
		}
		fmt.Fprintf(&b, "; %v", cause)
	}
	return b.String()
}

func (e *LibraryNotFoundError) Is(target error) bool { return target == ErrLibraryNotFound }

func (e *LibraryNotFoundError) Unwrap() []error { return e.Causes }

// SymbolNotFoundError reports a required entry point missing from a library.
type SymbolNotFoundError struct {
	Kind  Kind
	Name  string
	Tried []string
	Err   error
}

func (e *SymbolNotFoundError) Error() string {
	msg := fmt.Sprintf("nvcodec: %s symbol %s not found", e.Kind, e.Name)
	if len(e.Tried) > 0 && (len(e.Tried) > 1 || e.Tried[0] != e.Name) {
		msg += fmt.Sprintf(" (tried %s)", strings.Join(e.Tried, ", "))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SymbolNotFoundError) Is(target error) bool { return target == ErrSymbolNotFound }

func (e *SymbolNotFoundError) Unwrap() error { return e.Err }

// UnsupportedVersionError reports a runtime version outside every known version.
type UnsupportedVersionError struct {
	Kind    Kind
	Runtime Version
	Oldest  Version
	Newest  Version
}

func (e *UnsupportedVersionError) Error() string {
	if e.Oldest.IsZero() && e.Newest.IsZero() {
		return fmt.Sprintf("nvcodec: %s runtime reports API %s and no versions are known", e.Kind, e.Runtime)
	}
	return fmt.Sprintf("nvcodec: %s runtime reports API %s, supported range is %s..%s with matching major version",
		e.Kind, e.Runtime, e.Oldest, e.Newest)
}

func (e *UnsupportedVersionError) Is(target error) bool { return target == ErrUnsupportedVersion }

// OperationUnavailableError reports an operation that is not resolved at the
// negotiated version.
type OperationUnavailableError struct {
	Kind    Kind
	Name    string
	Version Version
	Unknown bool
}

func (e *OperationUnavailableError) Error() string {
	if e.Unknown {
		return fmt.Sprintf("nvcodec: %s has no operation %s", e.Kind, e.Name)
	}
	return fmt.Sprintf("nvcodec: %s operation %s unavailable at API %s", e.Kind, e.Name, e.Version)
}

func (e *OperationUnavailableError) Is(target error) bool { return target == ErrOperationUnavailable }

// VendorCallError carries a failure code returned by a resolved vendor function.
// The code is passed through untouched; Name is the symbolic name when known.
type VendorCallError struct {
	Kind      Kind
	Operation string
	Code      int64
	Name      string
}

func (e *VendorCallError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("nvcodec: %s %s failed: %s (%d)", e.Kind, e.Operation, e.Name, e.Code)
	}
	return fmt.Sprintf("nvcodec: %s %s failed with code %d", e.Kind, e.Operation, e.Code)
}

func (e *VendorCallError) Is(target error) bool { return target == ErrVendorCall }
