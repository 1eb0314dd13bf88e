package nvcodec

// Auto-generated from: nv-codec-headers/include/ffnvcodec/nvEncodeAPI.h
// Generated on: 2026-09-28T14:02:11Z
// Generator: tools/gen_nvencapi.go
// Found NV_ENCODE_API_FUNCTION_LIST at line 5236
// Parsed 43 function pointer slots
//
// DO NOT EDIT MANUALLY - regenerate using tools/gen_nvencapi.go

// nvencFunctionListSlots names the function pointer slots of
// NV_ENCODE_API_FUNCTION_LIST in declaration order. Reserved slots are empty.
var nvencFunctionListSlots = [...]string{
	"nvEncOpenEncodeSession",         // Slot 1
	"nvEncGetEncodeGUIDCount",        // Slot 2
	"nvEncGetEncodeProfileGUIDCount", // Slot 3
	"nvEncGetEncodeProfileGUIDs",     // Slot 4
	"nvEncGetEncodeGUIDs",            // Slot 5
	"nvEncGetInputFormatCount",       // Slot 6
	"nvEncGetInputFormats",           // Slot 7
	"nvEncGetEncodeCaps",             // Slot 8
	"nvEncGetEncodePresetCount",      // Slot 9
	"nvEncGetEncodePresetGUIDs",      // Slot 10
	"nvEncGetEncodePresetConfig",     // Slot 11
	"nvEncInitializeEncoder",         // Slot 12
	"nvEncCreateInputBuffer",         // Slot 13
	"nvEncDestroyInputBuffer",        // Slot 14
	"nvEncCreateBitstreamBuffer",     // Slot 15
	"nvEncDestroyBitstreamBuffer",    // Slot 16
	"nvEncEncodePicture",             // Slot 17
	"nvEncLockBitstream",             // Slot 18
	"nvEncUnlockBitstream",           // Slot 19
	"nvEncLockInputBuffer",           // Slot 20
	"nvEncUnlockInputBuffer",         // Slot 21
	"nvEncGetEncodeStats",            // Slot 22
	"nvEncGetSequenceParams",         // Slot 23
	"nvEncRegisterAsyncEvent",        // Slot 24
	"nvEncUnregisterAsyncEvent",      // Slot 25
	"nvEncMapInputResource",          // Slot 26
	"nvEncUnmapInputResource",        // Slot 27
	"nvEncDestroyEncoder",            // Slot 28
	"nvEncInvalidateRefFrames",       // Slot 29
	"nvEncOpenEncodeSessionEx",       // Slot 30
	"nvEncRegisterResource",          // Slot 31
	"nvEncUnregisterResource",        // Slot 32
	"nvEncReconfigureEncoder",        // Slot 33
	"",                               // Slot 34 (reserved1)
	"nvEncCreateMVBuffer",            // Slot 35
	"nvEncDestroyMVBuffer",           // Slot 36
	"nvEncRunMotionEstimationOnly",   // Slot 37
	"nvEncGetLastErrorString",        // Slot 38
	"nvEncSetIOCudaStreams",          // Slot 39
	"nvEncGetEncodePresetConfigEx",   // Slot 40
	"nvEncGetSequenceParamEx",        // Slot 41
	"nvEncRestoreEncoderState",       // Slot 42
	"nvEncLookaheadPicture",          // Slot 43
}

// nvEncodeAPIFunctionList mirrors NV_ENCODE_API_FUNCTION_LIST.
type nvEncodeAPIFunctionList struct {
	Version   uint32
	Reserved  uint32
	Functions [len(nvencFunctionListSlots)]uintptr
	Reserved2 [275]uintptr
}
