package nvcodec

import (
	"fmt"
	"unsafe"
)

// Result is a CUDA driver API status code (CUresult). CUVID functions return
// the same type.
type Result int32

const (
	CUDASuccess                         Result = 0
	CUDAErrorInvalidValue               Result = 1
	CUDAErrorOutOfMemory                Result = 2
	CUDAErrorNotInitialized             Result = 3
	CUDAErrorDeinitialized              Result = 4
	CUDAErrorProfilerDisabled           Result = 5
	CUDAErrorStubLibrary                Result = 34
	CUDAErrorDeviceUnavailable          Result = 46
	CUDAErrorNoDevice                   Result = 100
	CUDAErrorInvalidDevice              Result = 101
	CUDAErrorDeviceNotLicensed          Result = 102
	CUDAErrorInvalidImage               Result = 200
	CUDAErrorInvalidContext             Result = 201
	CUDAErrorContextAlreadyCurrent      Result = 202
	CUDAErrorMapFailed                  Result = 205
	CUDAErrorUnmapFailed                Result = 206
	CUDAErrorNoBinaryForGPU             Result = 209
	CUDAErrorAlreadyAcquired            Result = 210
	CUDAErrorNotMapped                  Result = 211
	CUDAErrorECCUncorrectable           Result = 214
	CUDAErrorUnsupportedLimit           Result = 215
	CUDAErrorContextAlreadyInUse        Result = 216
	CUDAErrorInvalidSource              Result = 300
	CUDAErrorFileNotFound               Result = 301
	CUDAErrorInvalidHandle              Result = 400
	CUDAErrorIllegalState               Result = 401
	CUDAErrorNotFound                   Result = 500
	CUDAErrorNotReady                   Result = 600
	CUDAErrorIllegalAddress             Result = 700
	CUDAErrorLaunchFailed               Result = 719
	CUDAErrorNotPermitted               Result = 800
	CUDAErrorNotSupported               Result = 801
	CUDAErrorSystemNotReady             Result = 802
	CUDAErrorSystemDriverMismatch       Result = 803
	CUDAErrorCompatNotSupportedOnDevice Result = 804
	CUDAErrorUnknown                    Result = 999
)

var resultNames = map[Result]string{
	CUDASuccess:                         "CUDA_SUCCESS",
	CUDAErrorInvalidValue:               "CUDA_ERROR_INVALID_VALUE",
	CUDAErrorOutOfMemory:                "CUDA_ERROR_OUT_OF_MEMORY",
	CUDAErrorNotInitialized:             "CUDA_ERROR_NOT_INITIALIZED",
	CUDAErrorDeinitialized:              "CUDA_ERROR_DEINITIALIZED",
	CUDAErrorProfilerDisabled:           "CUDA_ERROR_PROFILER_DISABLED",
	CUDAErrorStubLibrary:                "CUDA_ERROR_STUB_LIBRARY",
	CUDAErrorDeviceUnavailable:          "CUDA_ERROR_DEVICE_UNAVAILABLE",
	CUDAErrorNoDevice:                   "CUDA_ERROR_NO_DEVICE",
	CUDAErrorInvalidDevice:              "CUDA_ERROR_INVALID_DEVICE",
	CUDAErrorDeviceNotLicensed:          "CUDA_ERROR_DEVICE_NOT_LICENSED",
	CUDAErrorInvalidImage:               "CUDA_ERROR_INVALID_IMAGE",
	CUDAErrorInvalidContext:             "CUDA_ERROR_INVALID_CONTEXT",
	CUDAErrorContextAlreadyCurrent:      "CUDA_ERROR_CONTEXT_ALREADY_CURRENT",
	CUDAErrorMapFailed:                  "CUDA_ERROR_MAP_FAILED",
	CUDAErrorUnmapFailed:                "CUDA_ERROR_UNMAP_FAILED",
	CUDAErrorNoBinaryForGPU:             "CUDA_ERROR_NO_BINARY_FOR_GPU",
	CUDAErrorAlreadyAcquired:            "CUDA_ERROR_ALREADY_ACQUIRED",
	CUDAErrorNotMapped:                  "CUDA_ERROR_NOT_MAPPED",
	CUDAErrorECCUncorrectable:           "CUDA_ERROR_ECC_UNCORRECTABLE",
	CUDAErrorUnsupportedLimit:           "CUDA_ERROR_UNSUPPORTED_LIMIT",
	CUDAErrorContextAlreadyInUse:        "CUDA_ERROR_CONTEXT_ALREADY_IN_USE",
	CUDAErrorInvalidSource:              "CUDA_ERROR_INVALID_SOURCE",
	CUDAErrorFileNotFound:               "CUDA_ERROR_FILE_NOT_FOUND",
	CUDAErrorInvalidHandle:              "CUDA_ERROR_INVALID_HANDLE",
	CUDAErrorIllegalState:               "CUDA_ERROR_ILLEGAL_STATE",
	CUDAErrorNotFound:                   "CUDA_ERROR_NOT_FOUND",
	CUDAErrorNotReady:                   "CUDA_ERROR_NOT_READY",
	CUDAErrorIllegalAddress:             "CUDA_ERROR_ILLEGAL_ADDRESS",
	CUDAErrorLaunchFailed:               "CUDA_ERROR_LAUNCH_FAILED",
	CUDAErrorNotPermitted:               "CUDA_ERROR_NOT_PERMITTED",
	CUDAErrorNotSupported:               "CUDA_ERROR_NOT_SUPPORTED",
	CUDAErrorSystemNotReady:             "CUDA_ERROR_SYSTEM_NOT_READY",
	CUDAErrorSystemDriverMismatch:       "CUDA_ERROR_SYSTEM_DRIVER_MISMATCH",
	CUDAErrorCompatNotSupportedOnDevice: "CUDA_ERROR_COMPAT_NOT_SUPPORTED_ON_DEVICE",
	CUDAErrorUnknown:                    "CUDA_ERROR_UNKNOWN",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("CUresult(%d)", int32(r))
}

func resultCodeName(code int64) string {
	if name, ok := resultNames[Result(code)]; ok {
		return name
	}
	return ""
}

// CUDA driver handle types.
type (
	Device    int32
	Context   uintptr
	Stream    uintptr
	DevicePtr uintptr
)

// Memcpy2D mirrors CUDA_MEMCPY2D; Go's field alignment matches the C layout.
type Memcpy2D struct {
	SrcXInBytes   uintptr
	SrcY          uintptr
	SrcMemoryType uint32
	SrcHost       unsafe.Pointer
	SrcDevice     DevicePtr
	SrcArray      uintptr
	SrcPitch      uintptr

	DstXInBytes   uintptr
	DstY          uintptr
	DstMemoryType uint32
	DstHost       unsafe.Pointer
	DstDevice     DevicePtr
	DstArray      uintptr
	DstPitch      uintptr

	WidthInBytes uintptr
	Height       uintptr
}

// CUmemorytype values for Memcpy2D.
const (
	MemoryTypeHost   uint32 = 0x01
	MemoryTypeDevice uint32 = 0x02
	MemoryTypeArray  uint32 = 0x03
)

// CUDA is the typed view of the CUDA driver API. Function fields are nil when
// the entry point is unavailable at the negotiated version.
type CUDA struct {
	*Facade

	Init               func(flags uint32) Result
	DriverGetVersion   func(version *int32) Result
	DeviceGet          func(device *Device, ordinal int32) Result
	DeviceGetCount     func(count *int32) Result
	DeviceGetName      func(name *byte, length int32, device Device) Result
	DeviceGetAttribute func(value *int32, attribute int32, device Device) Result
	DeviceTotalMem     func(bytes *uintptr, device Device) Result
	DeviceGetUuid      func(uuid *[16]byte, device Device) Result

	DevicePrimaryCtxRetain  func(ctx *Context, device Device) Result
	DevicePrimaryCtxRelease func(device Device) Result

	CtxCreate      func(ctx *Context, flags uint32, device Device) Result
	CtxDestroy     func(ctx Context) Result
	CtxPushCurrent func(ctx Context) Result
	CtxPopCurrent  func(ctx *Context) Result
	CtxGetCurrent  func(ctx *Context) Result
	CtxSetCurrent  func(ctx Context) Result
	CtxSynchronize func() Result

	MemAlloc      func(ptr *DevicePtr, size uintptr) Result
	MemAllocPitch func(ptr *DevicePtr, pitch *uintptr, widthInBytes, height uintptr, elementSize uint32) Result
	MemFree       func(ptr DevicePtr) Result
	MemcpyHtoD    func(dst DevicePtr, src unsafe.Pointer, size uintptr) Result
	MemcpyDtoH    func(dst unsafe.Pointer, src DevicePtr, size uintptr) Result
	Memcpy2D      func(params *Memcpy2D) Result
	Memcpy2DAsync func(params *Memcpy2D, stream Stream) Result

	StreamCreate      func(stream *Stream, flags uint32) Result
	StreamDestroy     func(stream Stream) Result
	StreamSynchronize func(stream Stream) Result

	GetErrorName   func(code Result, name **byte) Result
	GetErrorString func(code Result, str **byte) Result
}

// Check converts a CUresult into an error carrying the driver's own name
// for the code.
func (c *CUDA) Check(op string, code Result) error {
	if code == CUDASuccess {
		return nil
	}
	return &VendorCallError{Kind: KindCUDA, Operation: op, Code: int64(code), Name: c.ErrorName(code)}
}

// ErrorName asks the driver for the symbolic name of code.
func (c *CUDA) ErrorName(code Result) string {
	if c.GetErrorName != nil {
		var name *byte
		if c.GetErrorName(code, &name) == CUDASuccess && name != nil {
			return GoString(name)
		}
	}
	return code.String()
}

// ErrorString asks the driver for the description of code.
func (c *CUDA) ErrorString(code Result) string {
	if c.GetErrorString != nil {
		var str *byte
		if c.GetErrorString(code, &str) == CUDASuccess && str != nil {
			return GoString(str)
		}
	}
	return code.String()
}

func (c *CUDA) bindings() []binding {
	return []binding{
		{"cuInit", &c.Init},
		{"cuDriverGetVersion", &c.DriverGetVersion},
		{"cuDeviceGet", &c.DeviceGet},
		{"cuDeviceGetCount", &c.DeviceGetCount},
		{"cuDeviceGetName", &c.DeviceGetName},
		{"cuDeviceGetAttribute", &c.DeviceGetAttribute},
		{"cuDeviceTotalMem", &c.DeviceTotalMem},
		{"cuDeviceGetUuid", &c.DeviceGetUuid},
		{"cuDevicePrimaryCtxRetain", &c.DevicePrimaryCtxRetain},
		{"cuDevicePrimaryCtxRelease", &c.DevicePrimaryCtxRelease},
		{"cuCtxCreate", &c.CtxCreate},
		{"cuCtxDestroy", &c.CtxDestroy},
		{"cuCtxPushCurrent", &c.CtxPushCurrent},
		{"cuCtxPopCurrent", &c.CtxPopCurrent},
		{"cuCtxGetCurrent", &c.CtxGetCurrent},
		{"cuCtxSetCurrent", &c.CtxSetCurrent},
		{"cuCtxSynchronize", &c.CtxSynchronize},
		{"cuMemAlloc", &c.MemAlloc},
		{"cuMemAllocPitch", &c.MemAllocPitch},
		{"cuMemFree", &c.MemFree},
		{"cuMemcpyHtoD", &c.MemcpyHtoD},
		{"cuMemcpyDtoH", &c.MemcpyDtoH},
		{"cuMemcpy2D", &c.Memcpy2D},
		{"cuMemcpy2DAsync", &c.Memcpy2DAsync},
		{"cuStreamCreate", &c.StreamCreate},
		{"cuStreamDestroy", &c.StreamDestroy},
		{"cuStreamSynchronize", &c.StreamSynchronize},
		{"cuGetErrorName", &c.GetErrorName},
		{"cuGetErrorString", &c.GetErrorString},
	}
}

// cudaVersion decodes the integer reported by cuDriverGetVersion
// (1000*major + 10*minor).
func cudaVersion(v int32) Version {
	if v < 0 {
		return Version{}
	}
	return Version{Major: uint32(v / 1000), Minor: uint32(v%1000) / 10}
}

// v2 returns the export list of an entry point whose _v2 spelling predates
// every version known here.
func v2(name string) []export {
	return []export{{name: name + "_v2"}}
}

func cudaDescription() *libraryDescription {
	return &libraryDescription{
		kind: KindCUDA,
		known: []Version{
			V(11, 0, 0), V(11, 4, 0),
			V(12, 0, 0),
			V(13, 0, 0),
		},
		bootstrap: []symbol{
			{name: "cuDriverGetVersion"},
		},
		symbols: []symbol{
			{name: "cuInit"},
			{name: "cuDeviceGet"},
			{name: "cuDeviceGetCount"},
			{name: "cuDeviceGetName"},
			{name: "cuDeviceGetAttribute"},
			{name: "cuDeviceTotalMem", exports: v2("cuDeviceTotalMem")},
			{name: "cuDeviceGetUuid", exports: []export{
				{name: "cuDeviceGetUuid_v2", since: V(11, 4, 0)},
				{name: "cuDeviceGetUuid", until: V(11, 4, 0)},
			}},
			{name: "cuDevicePrimaryCtxRetain"},
			{name: "cuDevicePrimaryCtxRelease", exports: v2("cuDevicePrimaryCtxRelease")},
			{name: "cuCtxCreate", exports: v2("cuCtxCreate")},
			{name: "cuCtxDestroy", exports: v2("cuCtxDestroy")},
			{name: "cuCtxPushCurrent", exports: v2("cuCtxPushCurrent")},
			{name: "cuCtxPopCurrent", exports: v2("cuCtxPopCurrent")},
			{name: "cuCtxGetCurrent"},
			{name: "cuCtxSetCurrent"},
			{name: "cuCtxSynchronize"},
			{name: "cuMemAlloc", exports: v2("cuMemAlloc")},
			{name: "cuMemAllocPitch", exports: v2("cuMemAllocPitch")},
			{name: "cuMemFree", exports: v2("cuMemFree")},
			{name: "cuMemcpyHtoD", exports: v2("cuMemcpyHtoD")},
			{name: "cuMemcpyDtoH", exports: v2("cuMemcpyDtoH")},
			{name: "cuMemcpy2D", exports: v2("cuMemcpy2D")},
			{name: "cuMemcpy2DAsync", exports: v2("cuMemcpy2DAsync")},
			{name: "cuStreamCreate"},
			{name: "cuStreamDestroy", exports: v2("cuStreamDestroy")},
			{name: "cuStreamSynchronize"},
			{name: "cuGetErrorName", optional: true},
			{name: "cuGetErrorString", optional: true},
		},
		query: func(b *bootstrap) (Version, error) {
			var driverGetVersion func(version *int32) Result
			if err := b.bind("cuDriverGetVersion", &driverGetVersion); err != nil {
				return Version{}, err
			}
			var v int32
			if res := driverGetVersion(&v); res != CUDASuccess {
				return Version{}, &VendorCallError{
					Kind:      KindCUDA,
					Operation: "cuDriverGetVersion",
					Code:      int64(res),
					Name:      res.String(),
				}
			}
			return cudaVersion(v), nil
		},
		bind: func(f *Facade) any {
			c := &CUDA{Facade: f}
			f.bindAll(c.bindings())
			return c
		},
		codeName:   resultCodeName,
		statusCode: int32Status,
	}
}

// CUDA returns the typed CUDA driver API view, loading it on first use.
func (l *Loader) CUDA() (*CUDA, error) {
	f, err := l.Get(KindCUDA)
	if err != nil {
		return nil, err
	}
	return f.api.(*CUDA), nil
}

// LoadCUDA returns the typed CUDA driver API view from the process-wide Loader.
func LoadCUDA() (*CUDA, error) {
	l, err := Default()
	if err != nil {
		return nil, err
	}
	return l.CUDA()
}
