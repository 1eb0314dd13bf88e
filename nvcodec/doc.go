// Package nvcodec loads the NVIDIA CUDA driver, NVENC and NVDEC (CUVID)
// runtime libraries at run time without CGO.
//
// Each library is located with the host's dynamic loader, its entry points
// are resolved into a function table, and the API version it reports is
// negotiated against the versions whose layouts this package knows. The
// result is published once per library kind as a Facade, with a typed view
// (CUDA, NVENC, CUVID) whose function fields are bound a single time:
//
//	cuda, err := nvcodec.LoadCUDA()
//	if err != nil {
//		return err
//	}
//	if err := cuda.Check("cuInit", cuda.Init(0)); err != nil {
//		return err
//	}
//
// Initialization is lazy and happens at most once per kind for the life of a
// Loader. A failure is cached and returned unchanged to every later caller;
// inspect it with errors.Is against ErrLibraryNotFound, ErrSymbolNotFound
// or ErrUnsupportedVersion. Runtime versions newer than every known version
// of the same major are driven at the newest known layout; a different major
// version is refused.
//
// Library locations can be overridden with WithLibraryPath and
// WithSearchDirs, or with the NVCODEC_<KIND>_LIB_PATH and NVCODEC_LIB_DIRS
// environment variables. NVCODEC_DEBUG=1 logs load outcomes to stderr.
package nvcodec
