package nvcodec

import "unsafe"

// CstringToGo copies the NUL-terminated string at ptr into a Go string.
// A zero ptr yields "".
func CstringToGo(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	// Reinterpret the word in place; converting the uintptr value directly
	// fails checkptr when ptr addresses Go memory.
	return GoString(*(**byte)(unsafe.Pointer(&ptr)))
}

// GoString copies the NUL-terminated string at p into a Go string, as
// returned through a const char* result or out-parameter. A nil p yields "".
func GoString(p *byte) string {
	return bytePtrToString(p)
}

// CBytesToGo returns the text of a fixed-size C char buffer up to its first
// NUL, as filled by cuDeviceGetName.
func CBytesToGo(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

// GoToCstring returns a NUL-terminated copy of s and the address of its first
// byte. The caller must keep the slice alive while native code can read it:
//
//	name, ptr := GoToCstring("cuInit")
//	_, err := facade.CallRaw("...", ptr)
//	runtime.KeepAlive(name)
func GoToCstring(s string) ([]byte, uintptr) {
	b := append([]byte(s), 0)
	return b, uintptr(unsafe.Pointer(&b[0]))
}
