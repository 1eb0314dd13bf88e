package nvcodec

import (
	"fmt"
	"runtime"
	"unsafe"
)

// Status is an NVENC status code (NVENCSTATUS).
type Status int32

const (
	NVEncSuccess                   Status = 0
	NVEncErrNoEncodeDevice         Status = 1
	NVEncErrUnsupportedDevice      Status = 2
	NVEncErrInvalidEncoderDevice   Status = 3
	NVEncErrInvalidDevice          Status = 4
	NVEncErrDeviceNotExist         Status = 5
	NVEncErrInvalidPtr             Status = 6
	NVEncErrInvalidEvent           Status = 7
	NVEncErrInvalidParam           Status = 8
	NVEncErrInvalidCall            Status = 9
	NVEncErrOutOfMemory            Status = 10
	NVEncErrEncoderNotInitialized  Status = 11
	NVEncErrUnsupportedParam       Status = 12
	NVEncErrLockBusy               Status = 13
	NVEncErrNotEnoughBuffer        Status = 14
	NVEncErrInvalidVersion         Status = 15
	NVEncErrMapFailed              Status = 16
	NVEncErrNeedMoreInput          Status = 17
	NVEncErrEncoderBusy            Status = 18
	NVEncErrEventNotRegistered     Status = 19
	NVEncErrGeneric                Status = 20
	NVEncErrIncompatibleClientKey  Status = 21
	NVEncErrUnimplemented          Status = 22
	NVEncErrResourceRegisterFailed Status = 23
	NVEncErrResourceNotRegistered  Status = 24
	NVEncErrResourceNotMapped      Status = 25
	NVEncErrNeedMoreOutput         Status = 26
)

var statusNames = [...]string{
	NVEncSuccess:                   "NV_ENC_SUCCESS",
	NVEncErrNoEncodeDevice:         "NV_ENC_ERR_NO_ENCODE_DEVICE",
	NVEncErrUnsupportedDevice:      "NV_ENC_ERR_UNSUPPORTED_DEVICE",
	NVEncErrInvalidEncoderDevice:   "NV_ENC_ERR_INVALID_ENCODERDEVICE",
	NVEncErrInvalidDevice:          "NV_ENC_ERR_INVALID_DEVICE",
	NVEncErrDeviceNotExist:         "NV_ENC_ERR_DEVICE_NOT_EXIST",
	NVEncErrInvalidPtr:             "NV_ENC_ERR_INVALID_PTR",
	NVEncErrInvalidEvent:           "NV_ENC_ERR_INVALID_EVENT",
	NVEncErrInvalidParam:           "NV_ENC_ERR_INVALID_PARAM",
	NVEncErrInvalidCall:            "NV_ENC_ERR_INVALID_CALL",
	NVEncErrOutOfMemory:            "NV_ENC_ERR_OUT_OF_MEMORY",
	NVEncErrEncoderNotInitialized:  "NV_ENC_ERR_ENCODER_NOT_INITIALIZED",
	NVEncErrUnsupportedParam:       "NV_ENC_ERR_UNSUPPORTED_PARAM",
	NVEncErrLockBusy:               "NV_ENC_ERR_LOCK_BUSY",
	NVEncErrNotEnoughBuffer:        "NV_ENC_ERR_NOT_ENOUGH_BUFFER",
	NVEncErrInvalidVersion:         "NV_ENC_ERR_INVALID_VERSION",
	NVEncErrMapFailed:              "NV_ENC_ERR_MAP_FAILED",
	NVEncErrNeedMoreInput:          "NV_ENC_ERR_NEED_MORE_INPUT",
	NVEncErrEncoderBusy:            "NV_ENC_ERR_ENCODER_BUSY",
	NVEncErrEventNotRegistered:     "NV_ENC_ERR_EVENT_NOT_REGISTERD",
	NVEncErrGeneric:                "NV_ENC_ERR_GENERIC",
	NVEncErrIncompatibleClientKey:  "NV_ENC_ERR_INCOMPATIBLE_CLIENT_KEY",
	NVEncErrUnimplemented:          "NV_ENC_ERR_UNIMPLEMENTED",
	NVEncErrResourceRegisterFailed: "NV_ENC_ERR_RESOURCE_REGISTER_FAILED",
	NVEncErrResourceNotRegistered:  "NV_ENC_ERR_RESOURCE_NOT_REGISTERED",
	NVEncErrResourceNotMapped:      "NV_ENC_ERR_RESOURCE_NOT_MAPPED",
	NVEncErrNeedMoreOutput:         "NV_ENC_ERR_NEED_MORE_OUTPUT",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("NVENCSTATUS(%d)", int32(s))
}

func statusCodeName(code int64) string {
	if code >= 0 && code < int64(len(statusNames)) {
		return statusNames[code]
	}
	return ""
}

// Encoder is an opaque NVENC encoder session handle.
type Encoder uintptr

// NV_ENC_DEVICE_TYPE values.
const (
	DeviceTypeDirectX uint32 = 0
	DeviceTypeCUDA    uint32 = 1
	DeviceTypeOpenGL  uint32 = 2
)

// GUID mirrors the Windows GUID layout NVENC uses for codecs, profiles and
// presets.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// Codec GUIDs accepted by nvEncGetEncodeGUIDs and NV_ENC_INITIALIZE_PARAMS.
var (
	CodecH264GUID = GUID{0x6bc82762, 0x4e63, 0x4ca4, [8]byte{0xaa, 0x85, 0x1e, 0x50, 0xf3, 0x21, 0xf6, 0xbf}}
	CodecHEVCGUID = GUID{0x790cdc88, 0x4522, 0x4d7b, [8]byte{0x94, 0x25, 0xbd, 0xa9, 0x97, 0x5f, 0x76, 0x03}}
)

func (g GUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		g.Data1, g.Data2, g.Data3,
		g.Data4[0], g.Data4[1], g.Data4[2], g.Data4[3],
		g.Data4[4], g.Data4[5], g.Data4[6], g.Data4[7])
}

// Args returns g the way a by-value GUID parameter is passed to a raw call.
// 64-bit Windows passes it by hidden reference, and the caller must keep g
// alive until the call returns. System V and AAPCS64 pass it in two integer
// registers. 32-bit targets copy the 16 bytes as four words.
func (g *GUID) Args() []uintptr {
	return guidArgs(g, runtime.GOOS, unsafe.Sizeof(uintptr(0)))
}

func guidArgs(g *GUID, goos string, wordSize uintptr) []uintptr {
	switch {
	case wordSize == 4:
		words := (*[4]uint32)(unsafe.Pointer(g))
		return []uintptr{uintptr(words[0]), uintptr(words[1]), uintptr(words[2]), uintptr(words[3])}
	case goos == "windows":
		return []uintptr{uintptr(unsafe.Pointer(g))}
	default:
		words := (*[2]uint64)(unsafe.Pointer(g))
		return []uintptr{uintptr(words[0]), uintptr(words[1])}
	}
}

// OpenEncodeSessionExParams mirrors NV_ENC_OPEN_ENCODE_SESSION_EX_PARAMS.
type OpenEncodeSessionExParams struct {
	Version    uint32
	DeviceType uint32
	Device     uintptr
	Reserved   uintptr
	APIVersion uint32
	Reserved1  [253]uint32
	Reserved2  [64]uintptr
}

// nvencAPIVersion encodes v as NVENCAPI_VERSION.
func nvencAPIVersion(v Version) uint32 {
	return v.Major | v.Minor<<24
}

// nvencStructVersion encodes NVENCAPI_STRUCT_VERSION(rev) at v.
func nvencStructVersion(v Version, rev uint32) uint32 {
	return nvencAPIVersion(v) | rev<<16 | 0x7<<28
}

// nvencStructRevision is the revision a struct carries from since onwards.
// Structs that embed other versioned structs also set bit 31.
type nvencStructRevision struct {
	since Version
	rev   uint32
	bit31 bool
}

// nvencStructRevisions holds the *_VER definitions of nvEncodeAPI.h per C
// type name, oldest first. The first entry applies to every older version.
var nvencStructRevisions = map[string][]nvencStructRevision{
	"NV_ENCODE_API_FUNCTION_LIST":          {{rev: 2}},
	"NV_ENC_OPEN_ENCODE_SESSION_EX_PARAMS": {{rev: 1}},
	"NV_ENC_CAPS_PARAM":                    {{rev: 1}},
	"NV_ENC_CREATE_INPUT_BUFFER":           {{rev: 1}},
	"NV_ENC_CREATE_BITSTREAM_BUFFER":       {{rev: 1}},
	"NV_ENC_CREATE_MV_BUFFER":              {{rev: 1}},
	"NV_ENC_LOCK_INPUT_BUFFER":             {{rev: 1}},
	"NV_ENC_MAP_INPUT_RESOURCE":            {{rev: 4}},
	"NV_ENC_SEQUENCE_PARAM_PAYLOAD":        {{rev: 1}},
	"NV_ENC_EVENT_PARAMS":                  {{rev: 1}},
	"NV_ENC_STAT":                          {{rev: 1}},
	"NV_ENC_MEONLY_PARAMS":                 {{rev: 3}},
	"NV_ENC_CONFIG": {
		{rev: 6, bit31: true},
		{since: V(9, 0, 0), rev: 7, bit31: true},
		{since: V(12, 0, 0), rev: 8, bit31: true},
		{since: V(12, 2, 0), rev: 9, bit31: true},
	},
	"NV_ENC_INITIALIZE_PARAMS": {
		{rev: 5, bit31: true},
		{since: V(12, 1, 0), rev: 6, bit31: true},
		{since: V(12, 2, 0), rev: 7, bit31: true},
	},
	"NV_ENC_RECONFIGURE_PARAMS": {
		{rev: 1, bit31: true},
		{since: V(12, 2, 0), rev: 2, bit31: true},
	},
	"NV_ENC_PRESET_CONFIG": {
		{rev: 4, bit31: true},
		{since: V(12, 2, 0), rev: 5, bit31: true},
	},
	"NV_ENC_PIC_PARAMS": {
		{rev: 4, bit31: true},
		{since: V(12, 0, 0), rev: 6, bit31: true},
		{since: V(12, 2, 0), rev: 7, bit31: true},
	},
	"NV_ENC_LOCK_BITSTREAM": {
		{rev: 1},
		{since: V(12, 0, 0), rev: 2},
		{since: V(12, 1, 0), rev: 2, bit31: true},
	},
	"NV_ENC_REGISTER_RESOURCE": {
		{rev: 3},
		{since: V(12, 0, 0), rev: 4},
		{since: V(12, 2, 0), rev: 5},
	},
}

// nvencStructTag returns the version tag of the struct name at v.
func nvencStructTag(name string, v Version) (uint32, bool) {
	revs, ok := nvencStructRevisions[name]
	if !ok {
		return 0, false
	}
	var cur nvencStructRevision
	for i, r := range revs {
		if i > 0 && v.Less(r.since) {
			break
		}
		cur = r
	}
	tag := nvencStructVersion(v, cur.rev)
	if cur.bit31 {
		tag |= 1 << 31
	}
	return tag, true
}

func nvencStructVersions(v Version) map[string]uint32 {
	tags := make(map[string]uint32, len(nvencStructRevisions)+1)
	tags["NVENCAPI_VERSION"] = nvencAPIVersion(v)
	for name := range nvencStructRevisions {
		tags[name], _ = nvencStructTag(name, v)
	}
	return tags
}

// nvencMaxVersion decodes NvEncodeAPIGetMaxSupportedVersion's
// (major << 4) | minor.
func nvencMaxVersion(v uint32) Version {
	return Version{Major: v >> 4, Minor: v & 0xf}
}

// NVENC is the typed view of the NVENC API. Entry points taking a GUID by
// value have no typed field; drive them through Call with GUID.Args.
type NVENC struct {
	*Facade

	OpenEncodeSessionEx func(params *OpenEncodeSessionExParams, encoder *Encoder) Status
	GetEncodeGUIDCount  func(encoder Encoder, count *uint32) Status
	GetEncodeGUIDs      func(encoder Encoder, guids *GUID, size uint32, count *uint32) Status
	InitializeEncoder   func(encoder Encoder, params unsafe.Pointer) Status
	ReconfigureEncoder  func(encoder Encoder, params unsafe.Pointer) Status
	DestroyEncoder      func(encoder Encoder) Status

	CreateInputBuffer      func(encoder Encoder, params unsafe.Pointer) Status
	DestroyInputBuffer     func(encoder Encoder, buffer uintptr) Status
	LockInputBuffer        func(encoder Encoder, params unsafe.Pointer) Status
	UnlockInputBuffer      func(encoder Encoder, buffer uintptr) Status
	CreateBitstreamBuffer  func(encoder Encoder, params unsafe.Pointer) Status
	DestroyBitstreamBuffer func(encoder Encoder, buffer uintptr) Status
	LockBitstream          func(encoder Encoder, params unsafe.Pointer) Status
	UnlockBitstream        func(encoder Encoder, buffer uintptr) Status

	RegisterResource   func(encoder Encoder, params unsafe.Pointer) Status
	UnregisterResource func(encoder Encoder, resource uintptr) Status
	MapInputResource   func(encoder Encoder, params unsafe.Pointer) Status
	UnmapInputResource func(encoder Encoder, mapped uintptr) Status

	EncodePicture        func(encoder Encoder, params unsafe.Pointer) Status
	GetEncodeStats       func(encoder Encoder, stats unsafe.Pointer) Status
	GetSequenceParams    func(encoder Encoder, payload unsafe.Pointer) Status
	InvalidateRefFrames  func(encoder Encoder, timestamp uint64) Status
	RegisterAsyncEvent   func(encoder Encoder, params unsafe.Pointer) Status
	UnregisterAsyncEvent func(encoder Encoder, params unsafe.Pointer) Status

	CreateMVBuffer          func(encoder Encoder, params unsafe.Pointer) Status
	DestroyMVBuffer         func(encoder Encoder, buffer uintptr) Status
	RunMotionEstimationOnly func(encoder Encoder, params unsafe.Pointer) Status

	GetLastErrorString  func(encoder Encoder) *byte
	SetIOCudaStreams    func(encoder Encoder, input, output *Stream) Status
	GetSequenceParamEx  func(encoder Encoder, init unsafe.Pointer, payload unsafe.Pointer) Status
	RestoreEncoderState func(encoder Encoder, params unsafe.Pointer) Status
	LookaheadPicture    func(encoder Encoder, params unsafe.Pointer) Status
}

// Check converts an NVENCSTATUS into an error. When encoder is non-zero the
// driver's last-error text for the session is attached to the name.
func (n *NVENC) Check(op string, encoder Encoder, status Status) error {
	if status == NVEncSuccess {
		return nil
	}
	name := status.String()
	if msg := n.LastError(encoder); msg != "" {
		name += ": " + msg
	}
	return &VendorCallError{Kind: KindNVENC, Operation: op, Code: int64(status), Name: name}
}

// LastError returns the driver's description of the last failure on encoder.
func (n *NVENC) LastError(encoder Encoder) string {
	if encoder == 0 || n.GetLastErrorString == nil {
		return ""
	}
	return GoString(n.GetLastErrorString(encoder))
}

// OpenSession opens an encode session on device, tagging the request with
// the negotiated API and struct versions.
func (n *NVENC) OpenSession(deviceType uint32, device uintptr) (Encoder, error) {
	if n.OpenEncodeSessionEx == nil {
		return 0, &OperationUnavailableError{Kind: KindNVENC, Name: "nvEncOpenEncodeSessionEx", Version: n.Version()}
	}
	tag, err := n.StructVersion("NV_ENC_OPEN_ENCODE_SESSION_EX_PARAMS")
	if err != nil {
		return 0, err
	}
	params := &OpenEncodeSessionExParams{
		Version:    tag,
		DeviceType: deviceType,
		Device:     device,
		APIVersion: nvencAPIVersion(n.Version()),
	}
	var encoder Encoder
	if status := n.OpenEncodeSessionEx(params, &encoder); status != NVEncSuccess {
		// The session handle is not valid on failure, so there is no last error.
		return 0, n.Check("nvEncOpenEncodeSessionEx", 0, status)
	}
	return encoder, nil
}

// EncodeGUIDs lists the codecs encoder supports.
func (n *NVENC) EncodeGUIDs(encoder Encoder) ([]GUID, error) {
	if n.GetEncodeGUIDCount == nil || n.GetEncodeGUIDs == nil {
		return nil, &OperationUnavailableError{Kind: KindNVENC, Name: "nvEncGetEncodeGUIDs", Version: n.Version()}
	}
	var count uint32
	if err := n.Check("nvEncGetEncodeGUIDCount", encoder, n.GetEncodeGUIDCount(encoder, &count)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	guids := make([]GUID, count)
	var filled uint32
	if err := n.Check("nvEncGetEncodeGUIDs", encoder, n.GetEncodeGUIDs(encoder, &guids[0], count, &filled)); err != nil {
		return nil, err
	}
	return guids[:min(filled, count)], nil
}

func (n *NVENC) bindings() []binding {
	return []binding{
		{"nvEncOpenEncodeSessionEx", &n.OpenEncodeSessionEx},
		{"nvEncGetEncodeGUIDCount", &n.GetEncodeGUIDCount},
		{"nvEncGetEncodeGUIDs", &n.GetEncodeGUIDs},
		{"nvEncInitializeEncoder", &n.InitializeEncoder},
		{"nvEncReconfigureEncoder", &n.ReconfigureEncoder},
		{"nvEncDestroyEncoder", &n.DestroyEncoder},
		{"nvEncCreateInputBuffer", &n.CreateInputBuffer},
		{"nvEncDestroyInputBuffer", &n.DestroyInputBuffer},
		{"nvEncLockInputBuffer", &n.LockInputBuffer},
		{"nvEncUnlockInputBuffer", &n.UnlockInputBuffer},
		{"nvEncCreateBitstreamBuffer", &n.CreateBitstreamBuffer},
		{"nvEncDestroyBitstreamBuffer", &n.DestroyBitstreamBuffer},
		{"nvEncLockBitstream", &n.LockBitstream},
		{"nvEncUnlockBitstream", &n.UnlockBitstream},
		{"nvEncRegisterResource", &n.RegisterResource},
		{"nvEncUnregisterResource", &n.UnregisterResource},
		{"nvEncMapInputResource", &n.MapInputResource},
		{"nvEncUnmapInputResource", &n.UnmapInputResource},
		{"nvEncEncodePicture", &n.EncodePicture},
		{"nvEncGetEncodeStats", &n.GetEncodeStats},
		{"nvEncGetSequenceParams", &n.GetSequenceParams},
		{"nvEncInvalidateRefFrames", &n.InvalidateRefFrames},
		{"nvEncRegisterAsyncEvent", &n.RegisterAsyncEvent},
		{"nvEncUnregisterAsyncEvent", &n.UnregisterAsyncEvent},
		{"nvEncCreateMVBuffer", &n.CreateMVBuffer},
		{"nvEncDestroyMVBuffer", &n.DestroyMVBuffer},
		{"nvEncRunMotionEstimationOnly", &n.RunMotionEstimationOnly},
		{"nvEncGetLastErrorString", &n.GetLastErrorString},
		{"nvEncSetIOCudaStreams", &n.SetIOCudaStreams},
		{"nvEncGetSequenceParamEx", &n.GetSequenceParamEx},
		{"nvEncRestoreEncoderState", &n.RestoreEncoderState},
		{"nvEncLookaheadPicture", &n.LookaheadPicture},
	}
}

// nvencSince records the SDK that appended each late function list slot.
var nvencSince = map[string]Version{
	"nvEncSetIOCudaStreams":        V(9, 0, 0),
	"nvEncGetEncodePresetConfigEx": V(10, 0, 0),
	"nvEncGetSequenceParamEx":      V(10, 0, 0),
	"nvEncRestoreEncoderState":     V(12, 1, 0),
	"nvEncLookaheadPicture":        V(12, 1, 0),
}

// nvencOptional names slots drivers may leave empty: the pre-Ex session
// opener and the preset queries superseded in SDK 10.
var nvencOptional = map[string]bool{
	"nvEncOpenEncodeSession":     true,
	"nvEncGetEncodePresetCount":  true,
	"nvEncGetEncodePresetGUIDs":  true,
	"nvEncGetEncodePresetConfig": true,
}

func nvencSymbols() []symbol {
	syms := make([]symbol, 0, len(nvencFunctionListSlots))
	for _, name := range nvencFunctionListSlots {
		if name == "" {
			continue
		}
		syms = append(syms, symbol{name: name, since: nvencSince[name], optional: nvencOptional[name]})
	}
	return syms
}

// functionListLookup resolves names against a filled function list.
func functionListLookup(list *nvEncodeAPIFunctionList) lookupFunc {
	slots := make(map[string]uintptr, len(nvencFunctionListSlots))
	for i, name := range nvencFunctionListSlots {
		if name != "" {
			slots[name] = list.Functions[i]
		}
	}
	return func(name string) (uintptr, error) {
		addr, ok := slots[name]
		if !ok {
			return 0, fmt.Errorf("no function list slot named %s", name)
		}
		if addr == 0 {
			return 0, errNotExported
		}
		return addr, nil
	}
}

func nvencDescription() *libraryDescription {
	return &libraryDescription{
		kind: KindNVENC,
		known: []Version{
			V(8, 0, 0), V(8, 1, 0), V(8, 2, 0),
			V(9, 0, 0), V(9, 1, 0),
			V(10, 0, 0),
			V(11, 0, 0), V(11, 1, 0),
			V(12, 0, 0), V(12, 1, 0), V(12, 2, 0),
			V(13, 0, 0),
		},
		bootstrap: []symbol{
			{name: "NvEncodeAPIGetMaxSupportedVersion"},
			{name: "NvEncodeAPICreateInstance"},
		},
		symbols: nvencSymbols(),
		query: func(b *bootstrap) (Version, error) {
			var getMaxSupportedVersion func(version *uint32) Status
			if err := b.bind("NvEncodeAPIGetMaxSupportedVersion", &getMaxSupportedVersion); err != nil {
				return Version{}, err
			}
			var v uint32
			if status := getMaxSupportedVersion(&v); status != NVEncSuccess {
				return Version{}, &VendorCallError{
					Kind:      KindNVENC,
					Operation: "NvEncodeAPIGetMaxSupportedVersion",
					Code:      int64(status),
					Name:      status.String(),
				}
			}
			return nvencMaxVersion(v), nil
		},
		exports: func(b *bootstrap, v Version) (lookupFunc, error) {
			var createInstance func(list *nvEncodeAPIFunctionList) Status
			if err := b.bind("NvEncodeAPICreateInstance", &createInstance); err != nil {
				return nil, err
			}
			tag, _ := nvencStructTag("NV_ENCODE_API_FUNCTION_LIST", v)
			list := &nvEncodeAPIFunctionList{Version: tag}
			if status := createInstance(list); status != NVEncSuccess {
				return nil, fmt.Errorf("function list version 0x%08x: %w", list.Version, &VendorCallError{
					Kind:      KindNVENC,
					Operation: "NvEncodeAPICreateInstance",
					Code:      int64(status),
					Name:      status.String(),
				})
			}
			return functionListLookup(list), nil
		},
		structVersions: nvencStructVersions,
		bind: func(f *Facade) any {
			n := &NVENC{Facade: f}
			f.bindAll(n.bindings())
			return n
		},
		codeName:   statusCodeName,
		statusCode: int32Status,
	}
}

// NVENC returns the typed NVENC view, loading it on first use.
func (l *Loader) NVENC() (*NVENC, error) {
	f, err := l.Get(KindNVENC)
	if err != nil {
		return nil, err
	}
	return f.api.(*NVENC), nil
}

// LoadNVENC returns the typed NVENC view from the process-wide Loader.
func LoadNVENC() (*NVENC, error) {
	l, err := Default()
	if err != nil {
		return nil, err
	}
	return l.NVENC()
}
