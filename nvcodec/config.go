package nvcodec

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

const (
	envLibDirs = "NVCODEC_LIB_DIRS"
	envDebug   = "NVCODEC_DEBUG"
)

// Option configures a Loader.
type Option func(*loaderConfig) error

type loaderConfig struct {
	libraryPaths [kindCount]string
	searchDirs   []string
	maxVersions  [kindCount]Version
	logger       *log.Logger
	platform     platform

	abi          abi
	descriptions [kindCount]*libraryDescription
}

// WithLibraryPath makes the loader open kind from path and nothing else.
func WithLibraryPath(kind Kind, path string) Option {
	return func(cfg *loaderConfig) error {
		if !kind.valid() {
			return fmt.Errorf("library path: unknown library kind %d", int(kind))
		}
		path = strings.TrimSpace(path)
		if path == "" {
			return fmt.Errorf("%s library path cannot be empty", kind)
		}
		cfg.libraryPaths[kind] = path
		return nil
	}
}

// WithSearchDirs adds directories probed before the OS library search path.
func WithSearchDirs(dirs ...string) Option {
	return func(cfg *loaderConfig) error {
		for _, dir := range dirs {
			dir = strings.TrimSpace(dir)
			if dir == "" {
				return fmt.Errorf("search directory cannot be empty")
			}
			cfg.searchDirs = append(cfg.searchDirs, dir)
		}
		return nil
	}
}

// WithMaxVersion caps the versions negotiated for kind at limit, pinning an
// application to the struct layouts it was written against.
func WithMaxVersion(kind Kind, limit Version) Option {
	return func(cfg *loaderConfig) error {
		if !kind.valid() {
			return fmt.Errorf("max version: unknown library kind %d", int(kind))
		}
		if limit.IsZero() {
			return fmt.Errorf("%s max version cannot be zero", kind)
		}
		cfg.maxVersions[kind] = limit
		return nil
	}
}

// WithLogger sets the logger used for load and teardown diagnostics.
// A nil logger silences them.
func WithLogger(logger *log.Logger) Option {
	return func(cfg *loaderConfig) error {
		cfg.logger = logger
		return nil
	}
}

func withABI(a abi) Option {
	return func(cfg *loaderConfig) error {
		if a == nil {
			return fmt.Errorf("abi cannot be nil")
		}
		cfg.abi = a
		return nil
	}
}

func withPlatform(p platform) Option {
	return func(cfg *loaderConfig) error {
		cfg.platform = p
		return nil
	}
}

func withDescription(desc *libraryDescription) Option {
	return func(cfg *loaderConfig) error {
		if desc == nil || !desc.kind.valid() {
			return fmt.Errorf("invalid library description")
		}
		cfg.descriptions[desc.kind] = desc
		return nil
	}
}

func envLibraryPath(kind Kind) string {
	return "NVCODEC_" + strings.ToUpper(kind.String()) + "_LIB_PATH"
}

func envMaxVersion(kind Kind) string {
	return "NVCODEC_" + strings.ToUpper(kind.String()) + "_MAX_VERSION"
}

func resolveLoaderConfig(opts ...Option) (loaderConfig, error) {
	debug, err := parseBoolEnv(envDebug)
	if err != nil {
		return loaderConfig{}, err
	}

	cfg := loaderConfig{
		platform: platform{
			goos:   runtime.GOOS,
			goarch: runtime.GOARCH,
			wsl:    detectWSL(),
		},
		abi: nativeABI{},
		descriptions: [kindCount]*libraryDescription{
			KindCUDA:  cudaDescription(),
			KindNVENC: nvencDescription(),
			KindCUVID: cuvidDescription(),
		},
	}
	if debug {
		cfg.logger = log.New(os.Stderr, "nvcodec: ", log.LstdFlags)
	}

	for _, kind := range Kinds() {
		cfg.libraryPaths[kind] = strings.TrimSpace(os.Getenv(envLibraryPath(kind)))

		raw := strings.TrimSpace(os.Getenv(envMaxVersion(kind)))
		if raw == "" {
			continue
		}
		limit, err := ParseVersion(raw)
		if err != nil {
			return loaderConfig{}, fmt.Errorf("invalid %s: %w", envMaxVersion(kind), err)
		}
		cfg.maxVersions[kind] = limit
	}

	for _, dir := range filepath.SplitList(os.Getenv(envLibDirs)) {
		if dir = strings.TrimSpace(dir); dir != "" {
			cfg.searchDirs = append(cfg.searchDirs, dir)
		}
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return loaderConfig{}, err
		}
	}

	if cfg.abi == nil {
		return loaderConfig{}, fmt.Errorf("abi cannot be nil")
	}
	for _, kind := range Kinds() {
		if cfg.descriptions[kind] == nil {
			return loaderConfig{}, fmt.Errorf("no interface description for %s", kind)
		}
	}

	return cfg, nil
}

func (cfg *loaderConfig) logf(format string, args ...any) {
	if cfg.logger == nil {
		return
	}
	cfg.logger.Printf(format, args...)
}

func parseBoolEnv(name string) (bool, error) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return false, nil
	}

	parsed, err := strconv.ParseBool(value)
	if err == nil {
		return parsed, nil
	}

	switch strings.ToLower(value) {
	case "1", "yes", "y", "on":
		return true, nil
	case "0", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value for %s: %q (expected true/false, 1/0, yes/no, on/off)", name, value)
	}
}
