package nvcodec

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"unsafe"
)

// fakeFunc stands in for a native entry point.
type fakeFunc func(args ...fakeArg) fakeArg

// fakeArg is one argument or result of a fake entry point. Pointers keep
// their unsafe.Pointer type end to end so checkptr accepts every
// dereference under -race; word holds the raw machine word.
type fakeArg struct {
	word uintptr
	ptr  unsafe.Pointer
}

// fakeWordArg wraps a non-pointer argument or result.
func fakeWordArg(w uintptr) fakeArg {
	return fakeArg{word: w}
}

func (a fakeArg) raw() uintptr {
	if a.ptr != nil {
		return uintptr(a.ptr)
	}
	return a.word
}

type fakeLibrary struct {
	symbols map[string]fakeFunc
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{symbols: make(map[string]fakeFunc)}
}

func (l *fakeLibrary) set(name string, fn fakeFunc) *fakeLibrary {
	l.symbols[name] = fn
	return l
}

func (l *fakeLibrary) drop(names ...string) *fakeLibrary {
	for _, name := range names {
		delete(l.symbols, name)
	}
	return l
}

// fakeABI is an in-memory dynamic loader. Libraries are registered by the
// exact name the resolver hands to open.
type fakeABI struct {
	mu        sync.Mutex
	libraries map[string]*fakeLibrary
	handles   map[uintptr]*fakeLibrary
	funcs     map[uintptr]fakeFunc
	addrs     map[*fakeLibrary]map[string]uintptr
	next      uintptr

	attempts []string
	opened   map[uintptr]string
	closes   map[uintptr]int
	calls    map[string]int
}

func newFakeABI() *fakeABI {
	return &fakeABI{
		libraries: make(map[string]*fakeLibrary),
		handles:   make(map[uintptr]*fakeLibrary),
		funcs:     make(map[uintptr]fakeFunc),
		addrs:     make(map[*fakeLibrary]map[string]uintptr),
		next:      0x1000,
		opened:    make(map[uintptr]string),
		closes:    make(map[uintptr]int),
		calls:     make(map[string]int),
	}
}

func (f *fakeABI) add(name string, lib *fakeLibrary) *fakeABI {
	f.libraries[name] = lib
	return f
}

func (f *fakeABI) open(name string) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, name)
	lib, ok := f.libraries[name]
	if !ok {
		return 0, fmt.Errorf("%s: cannot open shared object file: No such file or directory", name)
	}
	f.next += 0x10
	f.handles[f.next] = lib
	f.opened[f.next] = name
	return f.next, nil
}

func (f *fakeABI) symbol(handle uintptr, name string) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lib, ok := f.handles[handle]
	if !ok {
		return 0, fmt.Errorf("invalid handle 0x%x", handle)
	}
	fn, ok := lib.symbols[name]
	if !ok {
		return 0, fmt.Errorf("undefined symbol: %s", name)
	}
	if addr, ok := f.addrs[lib][name]; ok {
		return addr, nil
	}
	addr := f.registerLocked(name, fn)
	if f.addrs[lib] == nil {
		f.addrs[lib] = make(map[string]uintptr)
	}
	f.addrs[lib][name] = addr
	return addr, nil
}

// register gives fn an address that call and bind dispatch to. It is how
// fake NVENC fills its function list.
func (f *fakeABI) register(name string, fn fakeFunc) uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registerLocked(name, fn)
}

func (f *fakeABI) registerLocked(name string, fn fakeFunc) uintptr {
	f.next += 0x10
	addr := f.next
	f.funcs[addr] = func(args ...fakeArg) fakeArg {
		f.mu.Lock()
		f.calls[name]++
		f.mu.Unlock()
		return fn(args...)
	}
	return addr
}

func (f *fakeABI) close(handle uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.handles[handle]; !ok {
		return fmt.Errorf("invalid handle 0x%x", handle)
	}
	f.closes[handle]++
	if f.closes[handle] > 1 {
		return fmt.Errorf("handle 0x%x closed twice", handle)
	}
	return nil
}

func (f *fakeABI) dispatch(fn uintptr, args []fakeArg) fakeArg {
	f.mu.Lock()
	impl, ok := f.funcs[fn]
	f.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("call to unknown address 0x%x", fn))
	}
	return impl(args...)
}

// call serves raw word calls; pointer arguments arrive as plain words here.
func (f *fakeABI) call(fn uintptr, args ...uintptr) uintptr {
	in := make([]fakeArg, len(args))
	for i, a := range args {
		in[i] = fakeWordArg(a)
	}
	return f.dispatch(fn, in).raw()
}

// bind builds a function of fptr's type that forwards its arguments to the
// fake at fn, the way purego.RegisterFunc would.
func (f *fakeABI) bind(fptr any, fn uintptr) {
	target := reflect.ValueOf(fptr).Elem()
	typ := target.Type()
	target.Set(reflect.MakeFunc(typ, func(in []reflect.Value) []reflect.Value {
		args := make([]fakeArg, len(in))
		for i, v := range in {
			args[i] = fakeArgOf(v)
		}
		r := f.dispatch(fn, args)
		if typ.NumOut() == 0 {
			return nil
		}
		return []reflect.Value{fakeResult(typ.Out(0), r)}
	}))
}

func fakeArgOf(v reflect.Value) fakeArg {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fakeWordArg(uintptr(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return fakeWordArg(uintptr(v.Uint()))
	case reflect.Pointer, reflect.UnsafePointer:
		return fakeArg{word: v.Pointer(), ptr: v.UnsafePointer()}
	case reflect.Bool:
		if v.Bool() {
			return fakeWordArg(1)
		}
		return fakeWordArg(0)
	}
	panic(fmt.Sprintf("unsupported fake argument type %s", v.Type()))
}

func fakeResult(typ reflect.Type, r fakeArg) reflect.Value {
	out := reflect.New(typ).Elem()
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out.SetInt(int64(r.word))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		out.SetUint(uint64(r.word))
	case reflect.Pointer:
		return reflect.NewAt(typ.Elem(), r.ptr)
	case reflect.UnsafePointer:
		out.SetPointer(r.ptr)
	default:
		panic(fmt.Sprintf("unsupported fake result type %s", typ))
	}
	return out
}

func (f *fakeABI) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

func (f *fakeABI) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// closeCount returns how often the handle opened from name was closed.
func (f *fakeABI) closeCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for handle, opened := range f.opened {
		if opened == name {
			total += f.closes[handle]
		}
	}
	return total
}

func (f *fakeABI) openCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, opened := range f.opened {
		if opened == name {
			total++
		}
	}
	return total
}

func storeInt32(a fakeArg, v int32)     { *(*int32)(a.ptr) = v }
func storeUint32(a fakeArg, v uint32)   { *(*uint32)(a.ptr) = v }
func storeUintptr(a fakeArg, v uintptr) { *(*uintptr)(a.ptr) = v }

func storeCString(a fakeArg, s []byte) { *(**byte)(a.ptr) = &s[0] }

func succeed(...fakeArg) fakeArg { return fakeArg{} }

var (
	fakeErrorName   = []byte("CUDA_ERROR_NOT_INITIALIZED\x00")
	fakeErrorString = []byte("initialization error\x00")
	fakeLastError   = []byte("invalid preset\x00")
)

// fakeCUDALibrary exports every entry point of the CUDA description and
// reports driverVersion from cuDriverGetVersion.
func fakeCUDALibrary(driverVersion int32) *fakeLibrary {
	lib := newFakeLibrary()
	for _, sym := range cudaDescription().symbols {
		names := []string{sym.name}
		for _, e := range sym.exports {
			names = append(names, e.name)
		}
		for _, name := range names {
			lib.set(name, succeed)
		}
	}
	lib.set("cuDriverGetVersion", func(args ...fakeArg) fakeArg {
		storeInt32(args[0], driverVersion)
		return fakeArg{}
	})
	lib.set("cuDeviceGetCount", func(args ...fakeArg) fakeArg {
		storeInt32(args[0], 2)
		return fakeArg{}
	})
	lib.set("cuGetErrorName", func(args ...fakeArg) fakeArg {
		if Result(args[0].word) != CUDAErrorNotInitialized {
			return fakeWordArg(uintptr(CUDAErrorInvalidValue))
		}
		storeCString(args[1], fakeErrorName)
		return fakeArg{}
	})
	lib.set("cuGetErrorString", func(args ...fakeArg) fakeArg {
		storeCString(args[1], fakeErrorString)
		return fakeArg{}
	})
	return lib
}

// fakeNVENC builds an encoder library whose NvEncodeAPICreateInstance fills
// every function list slot except those named in empty.
type fakeNVENC struct {
	maxVersion   uint32
	createStatus Status
	empty        map[string]bool

	mu      sync.Mutex
	listTag uint32
}

func (n *fakeNVENC) library(f *fakeABI) *fakeLibrary {
	lib := newFakeLibrary()
	lib.set("NvEncodeAPIGetMaxSupportedVersion", func(args ...fakeArg) fakeArg {
		storeUint32(args[0], n.maxVersion)
		return fakeArg{}
	})
	lib.set("NvEncodeAPICreateInstance", func(args ...fakeArg) fakeArg {
		list := (*nvEncodeAPIFunctionList)(args[0].ptr)
		n.mu.Lock()
		n.listTag = list.Version
		n.mu.Unlock()
		if n.createStatus != NVEncSuccess {
			return fakeWordArg(uintptr(n.createStatus))
		}
		for i, name := range nvencFunctionListSlots {
			if name == "" || n.empty[name] {
				continue
			}
			list.Functions[i] = f.register(name, n.slot(name))
		}
		return fakeArg{}
	})
	return lib
}

func (n *fakeNVENC) slot(name string) fakeFunc {
	switch name {
	case "nvEncOpenEncodeSessionEx":
		return func(args ...fakeArg) fakeArg {
			params := (*OpenEncodeSessionExParams)(args[0].ptr)
			if params.Version>>28 != 0x7 || params.APIVersion == 0 {
				return fakeWordArg(uintptr(NVEncErrInvalidVersion))
			}
			if params.DeviceType != DeviceTypeCUDA {
				return fakeWordArg(uintptr(NVEncErrUnsupportedDevice))
			}
			storeUintptr(args[1], 0xE0C0)
			return fakeArg{}
		}
	case "nvEncGetEncodeGUIDCount":
		return func(args ...fakeArg) fakeArg {
			storeUint32(args[1], 2)
			return fakeArg{}
		}
	case "nvEncGetEncodeGUIDs":
		return func(args ...fakeArg) fakeArg {
			guids := unsafe.Slice((*GUID)(args[1].ptr), int(args[2].word))
			guids[0] = CodecH264GUID
			guids[1] = CodecHEVCGUID
			storeUint32(args[3], 2)
			return fakeArg{}
		}
	case "nvEncGetLastErrorString":
		return func(...fakeArg) fakeArg {
			return fakeArg{ptr: unsafe.Pointer(&fakeLastError[0])}
		}
	case "nvEncInitializeEncoder":
		return func(...fakeArg) fakeArg {
			return fakeWordArg(uintptr(NVEncErrInvalidParam))
		}
	}
	return succeed
}

func (n *fakeNVENC) tag() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.listTag
}

// fakeCUVIDLibrary exports the decoder entry points present at level.
func fakeCUVIDLibrary(level Version) *fakeLibrary {
	lib := newFakeLibrary()
	for _, sym := range cuvidSymbols(int(unsafe.Sizeof(uintptr(0))) * 8) {
		if !sym.appliesTo(level) {
			continue
		}
		for _, name := range sym.spellings(level) {
			lib.set(name, succeed)
		}
	}
	if sym := "cuvidGetDecoderCaps"; lib.symbols[sym] != nil {
		lib.set(sym, func(args ...fakeArg) fakeArg {
			caps := (*DecodeCaps)(args[0].ptr)
			if caps.CodecType != VideoCodecH264 {
				return fakeWordArg(uintptr(CUDAErrorNotSupported))
			}
			caps.IsSupported = 1
			caps.MaxWidth = 4096
			caps.MaxHeight = 4096
			return fakeArg{}
		})
	}
	return lib
}

var linuxAMD64 = platform{goos: "linux", goarch: "amd64"}

func clearLoaderEnv(t *testing.T) {
	t.Helper()
	for _, kind := range Kinds() {
		t.Setenv(envLibraryPath(kind), "")
		t.Setenv(envMaxVersion(kind), "")
	}
	t.Setenv(envLibDirs, "")
	t.Setenv(envDebug, "")
}

// newTestLoader returns a Loader on a Linux platform backed by f.
func newTestLoader(t *testing.T, f *fakeABI, opts ...Option) *Loader {
	t.Helper()
	clearLoaderEnv(t)
	opts = append([]Option{withABI(f), withPlatform(linuxAMD64)}, opts...)
	l, err := NewLoader(opts...)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}
