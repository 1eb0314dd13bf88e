package nvcodec

import (
	"fmt"
	"strings"
)

// Kind identifies one of the vendor libraries managed by a Loader.
type Kind int

const (
	// KindCUDA is the CUDA driver API (libcuda / nvcuda.dll).
	KindCUDA Kind = iota
	// KindNVENC is the hardware encoder API (libnvidia-encode / nvEncodeAPI64.dll).
	KindNVENC
	// KindCUVID is the hardware decoder API (libnvcuvid / nvcuvid.dll).
	KindCUVID

	kindCount
)

// Kinds returns every library kind in load order.
func Kinds() []Kind {
	return []Kind{KindCUDA, KindNVENC, KindCUVID}
}

func (k Kind) String() string {
	switch k {
	case KindCUDA:
		return "cuda"
	case KindNVENC:
		return "nvenc"
	case KindCUVID:
		return "cuvid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) valid() bool {
	return k >= 0 && k < kindCount
}

// ParseKind parses a library kind name such as "nvenc".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cuda":
		return KindCUDA, nil
	case "nvenc":
		return KindNVENC, nil
	case "cuvid", "nvdec":
		return KindCUVID, nil
	}
	return 0, fmt.Errorf("unknown library kind %q (expected cuda, nvenc or cuvid)", s)
}

// State is the initialization state of a library kind within a Loader.
type State int32

const (
	// StateUninitialized means Get has not been called for the kind.
	StateUninitialized State = iota
	// StateInitializing means the first Get is loading the library.
	StateInitializing
	// StateReady means the facade is published and usable.
	StateReady
	// StateFailed means initialization failed or the Loader was closed
	// first; Get returns the cached error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}
