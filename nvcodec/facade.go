package nvcodec

import (
	"fmt"
	"maps"
	"sync"
	"sync/atomic"
)

// Negotiated is the outcome of version negotiation for one library.
type Negotiated struct {
	// Runtime is the newest version the loaded library reported.
	Runtime Version
	// Version is the version this package drives the library at.
	Version Version

	structVersions map[string]uint32
}

// StructVersion returns the value a caller must store in the version/size
// field of the named vendor struct before passing it to the library. It is
// derived from the negotiated version, not from the newest layout known.
func (n Negotiated) StructVersion(name string) (uint32, error) {
	tag, ok := n.structVersions[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s at API %s", ErrUnknownStruct, name, n.Version)
	}
	return tag, nil
}

// StructVersions returns a copy of every struct-version tag.
func (n Negotiated) StructVersions() map[string]uint32 {
	return maps.Clone(n.structVersions)
}

// Facade is the loaded, version-negotiated view of one vendor library.
// A Facade never changes after it is published and is safe for concurrent use.
type Facade struct {
	kind       Kind
	path       string
	abi        abi
	handle     uintptr
	negotiated Negotiated
	table      *functionTable
	desc       *libraryDescription
	api        any

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Kind returns the library kind.
func (f *Facade) Kind() Kind { return f.kind }

// Path returns the name the library was opened with.
func (f *Facade) Path() string { return f.path }

// Version returns the negotiated API version.
func (f *Facade) Version() Version { return f.negotiated.Version }

// RuntimeVersion returns the newest API version the library reported.
func (f *Facade) RuntimeVersion() Version { return f.negotiated.Runtime }

// Negotiated returns the negotiation outcome, including struct-version tags.
func (f *Facade) Negotiated() Negotiated { return f.negotiated }

// StructVersion is shorthand for f.Negotiated().StructVersion(name).
func (f *Facade) StructVersion(name string) (uint32, error) {
	return f.negotiated.StructVersion(name)
}

// Has reports whether op resolved at the negotiated version.
func (f *Facade) Has(op string) bool {
	_, ok := f.table.lookup(op)
	return ok
}

// Operations returns the resolved operation names, sorted.
func (f *Facade) Operations() []string { return f.table.names() }

// Unavailable returns the operations of the interface that did not resolve at
// the negotiated version, sorted.
func (f *Facade) Unavailable() []string { return f.table.unavailableNames() }

// Export returns the exported spelling op was resolved from.
func (f *Facade) Export(op string) (string, bool) {
	entry, ok := f.table.entries[op]
	return entry.export, ok
}

// Proc returns the raw address of op.
func (f *Facade) Proc(op string) (uintptr, error) {
	if f.closed.Load() {
		return 0, ErrLoaderClosed
	}
	if addr, ok := f.table.lookup(op); ok {
		return addr, nil
	}
	return 0, &OperationUnavailableError{
		Kind:    f.kind,
		Name:    op,
		Version: f.negotiated.Version,
		Unknown: !f.table.isUnavailable(op),
	}
}

// CallRaw invokes op with word-sized arguments and returns its raw result.
// Pointer arguments must stay reachable and pinned until CallRaw returns.
func (f *Facade) CallRaw(op string, args ...uintptr) (uintptr, error) {
	addr, err := f.Proc(op)
	if err != nil {
		return 0, err
	}
	return f.abi.call(addr, args...), nil
}

// Call invokes a status-returning op and translates a non-success status into
// a *VendorCallError. The native code is passed through unchanged.
func (f *Facade) Call(op string, args ...uintptr) error {
	r, err := f.CallRaw(op, args...)
	if err != nil {
		return err
	}
	return f.check(op, f.status(r))
}

func (f *Facade) status(r uintptr) int64 {
	if f.desc != nil && f.desc.statusCode != nil {
		return f.desc.statusCode(r)
	}
	return int32Status(r)
}

// check converts a native status code into an error. Zero is success for
// every library this package binds.
func (f *Facade) check(op string, code int64) error {
	if code == 0 {
		return nil
	}
	callErr := &VendorCallError{Kind: f.kind, Operation: op, Code: code}
	if f.desc != nil && f.desc.codeName != nil {
		callErr.Name = f.desc.codeName(code)
	}
	return callErr
}

// close releases the library handle once. Typed function values obtained from
// the facade must not be called afterwards.
func (f *Facade) close() error {
	f.closeOnce.Do(func() {
		f.closed.Store(true)
		if err := f.abi.close(f.handle); err != nil {
			f.closeErr = fmt.Errorf("failed to close %s library %s: %w", f.kind, f.path, err)
		}
	})
	return f.closeErr
}
