package nvcodec

import "unsafe"

// CUVID handle types.
type (
	Decoder     uintptr
	VideoParser uintptr
	ContextLock uintptr
)

// VideoCodec is a cudaVideoCodec value.
type VideoCodec int32

const (
	VideoCodecMPEG1 VideoCodec = 0
	VideoCodecMPEG2 VideoCodec = 1
	VideoCodecMPEG4 VideoCodec = 2
	VideoCodecVC1   VideoCodec = 3
	VideoCodecH264  VideoCodec = 4
	VideoCodecJPEG  VideoCodec = 5
	VideoCodecHEVC  VideoCodec = 8
	VideoCodecVP8   VideoCodec = 9
	VideoCodecVP9   VideoCodec = 10
	VideoCodecAV1   VideoCodec = 11
)

// ChromaFormat is a cudaVideoChromaFormat value.
type ChromaFormat int32

const (
	ChromaFormatMonochrome ChromaFormat = 0
	ChromaFormat420        ChromaFormat = 1
	ChromaFormat422        ChromaFormat = 2
	ChromaFormat444        ChromaFormat = 3
)

// DecodeCaps mirrors CUVIDDECODECAPS. The caller fills CodecType,
// ChromaFormat and BitDepthMinus8; the driver fills the rest.
type DecodeCaps struct {
	CodecType      VideoCodec
	ChromaFormat   ChromaFormat
	BitDepthMinus8 uint32
	Reserved1      [3]uint32

	IsSupported      uint8
	NumNVDECs        uint8
	OutputFormatMask uint16
	MaxWidth         uint32
	MaxHeight        uint32
	MaxMBCount       uint32
	MinWidth         uint16
	MinHeight        uint16

	IsHistogramSupported uint8
	CounterBitDepth      uint8
	MaxHistogramBins     uint16
	Reserved3            [10]uint32
}

// CUVID is the typed view of the NVDEC video decoder API. Function fields
// are nil when the entry point is unavailable at the negotiated version.
type CUVID struct {
	*Facade

	GetDecoderCaps     func(caps *DecodeCaps) Result
	CreateDecoder      func(decoder *Decoder, params unsafe.Pointer) Result
	DestroyDecoder     func(decoder Decoder) Result
	DecodePicture      func(decoder Decoder, params unsafe.Pointer) Result
	GetDecodeStatus    func(decoder Decoder, picture int32, status unsafe.Pointer) Result
	ReconfigureDecoder func(decoder Decoder, params unsafe.Pointer) Result

	// MapVideoFrame and UnmapVideoFrame are bound to the 64-bit entry points
	// on 64-bit hosts.
	MapVideoFrame   func(decoder Decoder, picture int32, frame *DevicePtr, pitch *uint32, params unsafe.Pointer) Result
	UnmapVideoFrame func(decoder Decoder, frame DevicePtr) Result

	CtxLockCreate  func(lock *ContextLock, ctx Context) Result
	CtxLockDestroy func(lock ContextLock) Result
	CtxLock        func(lock ContextLock, flags uint32) Result
	CtxUnlock      func(lock ContextLock, flags uint32) Result

	CreateVideoParser  func(parser *VideoParser, params unsafe.Pointer) Result
	ParseVideoData     func(parser VideoParser, packet unsafe.Pointer) Result
	DestroyVideoParser func(parser VideoParser) Result
}

// Check converts a CUresult returned by a CUVID entry point into an error.
func (c *CUVID) Check(op string, code Result) error {
	if code == CUDASuccess {
		return nil
	}
	return &VendorCallError{Kind: KindCUVID, Operation: op, Code: int64(code), Name: code.String()}
}

// DecoderCaps asks the decoder hardware of the current CUDA context what it
// supports for codec at the given chroma format and bit depth.
func (c *CUVID) DecoderCaps(codec VideoCodec, chroma ChromaFormat, bitDepth uint32) (DecodeCaps, error) {
	if c.GetDecoderCaps == nil {
		return DecodeCaps{}, &OperationUnavailableError{Kind: KindCUVID, Name: "cuvidGetDecoderCaps", Version: c.Version()}
	}
	if bitDepth < 8 {
		bitDepth = 8
	}
	caps := DecodeCaps{CodecType: codec, ChromaFormat: chroma, BitDepthMinus8: bitDepth - 8}
	if err := c.Check("cuvidGetDecoderCaps", c.GetDecoderCaps(&caps)); err != nil {
		return DecodeCaps{}, err
	}
	return caps, nil
}

func (c *CUVID) bindings() []binding {
	return []binding{
		{"cuvidGetDecoderCaps", &c.GetDecoderCaps},
		{"cuvidCreateDecoder", &c.CreateDecoder},
		{"cuvidDestroyDecoder", &c.DestroyDecoder},
		{"cuvidDecodePicture", &c.DecodePicture},
		{"cuvidGetDecodeStatus", &c.GetDecodeStatus},
		{"cuvidReconfigureDecoder", &c.ReconfigureDecoder},
		{"cuvidMapVideoFrame", &c.MapVideoFrame},
		{"cuvidUnmapVideoFrame", &c.UnmapVideoFrame},
		{"cuvidCtxLockCreate", &c.CtxLockCreate},
		{"cuvidCtxLockDestroy", &c.CtxLockDestroy},
		{"cuvidCtxLock", &c.CtxLock},
		{"cuvidCtxUnlock", &c.CtxUnlock},
		{"cuvidCreateVideoParser", &c.CreateVideoParser},
		{"cuvidParseVideoData", &c.ParseVideoData},
		{"cuvidDestroyVideoParser", &c.DestroyVideoParser},
	}
}

// frameExports returns the admissible spellings of a frame mapping entry
// point. A 64-bit host must use the 64 suffixed export, which takes a 64-bit
// device pointer; the plain export truncates it.
func frameExports(name string, pointerBits int) []export {
	if pointerBits == 64 {
		return []export{{name: name + "64"}}
	}
	return []export{{name: name}}
}

// cuvidFeatureVersion infers the decoder API version from the exports that
// each release introduced, since the library reports no version of its own.
func cuvidFeatureVersion(exported func(name string) bool) Version {
	switch {
	case exported("cuvidGetDecodeStatus") && exported("cuvidReconfigureDecoder"):
		return V(9, 0, 0)
	case exported("cuvidGetDecoderCaps"):
		return V(8, 1, 0)
	default:
		return V(8, 0, 0)
	}
}

func cuvidSymbols(pointerBits int) []symbol {
	return []symbol{
		{name: "cuvidGetDecoderCaps", since: V(8, 1, 0)},
		{name: "cuvidCreateDecoder"},
		{name: "cuvidDestroyDecoder"},
		{name: "cuvidDecodePicture"},
		{name: "cuvidGetDecodeStatus", since: V(9, 0, 0)},
		{name: "cuvidReconfigureDecoder", since: V(9, 0, 0)},
		{name: "cuvidMapVideoFrame", exports: frameExports("cuvidMapVideoFrame", pointerBits)},
		{name: "cuvidUnmapVideoFrame", exports: frameExports("cuvidUnmapVideoFrame", pointerBits)},
		{name: "cuvidCtxLockCreate"},
		{name: "cuvidCtxLockDestroy"},
		{name: "cuvidCtxLock"},
		{name: "cuvidCtxUnlock"},
		{name: "cuvidCreateVideoParser"},
		{name: "cuvidParseVideoData"},
		{name: "cuvidDestroyVideoParser"},
	}
}

func cuvidDescription() *libraryDescription {
	return &libraryDescription{
		kind:  KindCUVID,
		known: []Version{V(8, 0, 0), V(8, 1, 0), V(9, 0, 0)},
		bootstrap: []symbol{
			{name: "cuvidCreateDecoder"},
		},
		symbols: cuvidSymbols(int(unsafe.Sizeof(uintptr(0))) * 8),
		query: func(b *bootstrap) (Version, error) {
			return cuvidFeatureVersion(b.exported), nil
		},
		bind: func(f *Facade) any {
			c := &CUVID{Facade: f}
			f.bindAll(c.bindings())
			return c
		},
		codeName:   resultCodeName,
		statusCode: int32Status,
	}
}

// CUVID returns the typed decoder view, loading it on first use.
func (l *Loader) CUVID() (*CUVID, error) {
	f, err := l.Get(KindCUVID)
	if err != nil {
		return nil, err
	}
	return f.api.(*CUVID), nil
}

// LoadCUVID returns the typed decoder view from the process-wide Loader.
func LoadCUVID() (*CUVID, error) {
	l, err := Default()
	if err != nil {
		return nil, err
	}
	return l.CUVID()
}
