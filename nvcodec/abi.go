package nvcodec

import "github.com/ebitengine/purego"

// abi is the dynamic-loading surface the loader drives. nativeABI talks to
// the host OS; tests substitute a fake backed by Go functions.
type abi interface {
	open(name string) (uintptr, error)
	symbol(handle uintptr, name string) (uintptr, error)
	close(handle uintptr) error
	// call invokes fn with word-sized arguments and returns the first result register.
	call(fn uintptr, args ...uintptr) uintptr
	// bind points the function variable fptr at fn.
	bind(fptr any, fn uintptr)
}

type nativeABI struct{}

func (nativeABI) open(name string) (uintptr, error) { return loadLibrary(name) }

func (nativeABI) symbol(handle uintptr, name string) (uintptr, error) {
	return getSymbol(handle, name)
}

func (nativeABI) close(handle uintptr) error { return closeLibrary(handle) }

func (nativeABI) call(fn uintptr, args ...uintptr) uintptr {
	r1, _, _ := purego.SyscallN(fn, args...)
	return r1
}

func (nativeABI) bind(fptr any, fn uintptr) {
	purego.RegisterFunc(fptr, fn)
}
