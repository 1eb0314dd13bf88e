package nvcodec

import (
	"fmt"
	"path"
	"strings"
)

const wslLibraryDir = "/usr/lib/wsl/lib"

// platform describes the host the resolver builds candidate names for.
type platform struct {
	goos   string
	goarch string
	wsl    bool
}

// libraryNames returns the conventional file names of kind on p, most
// specific first.
func libraryNames(kind Kind, p platform) ([]string, error) {
	switch p.goos {
	case "linux":
		var soname string
		switch kind {
		case KindCUDA:
			soname = "libcuda.so"
		case KindNVENC:
			soname = "libnvidia-encode.so"
		case KindCUVID:
			soname = "libnvcuvid.so"
		default:
			return nil, fmt.Errorf("unknown library kind %d", int(kind))
		}
		return []string{soname + ".1", soname}, nil
	case "windows":
		switch kind {
		case KindCUDA:
			return []string{"nvcuda.dll"}, nil
		case KindNVENC:
			if p.goarch == "386" {
				return []string{"nvEncodeAPI.dll"}, nil
			}
			return []string{"nvEncodeAPI64.dll"}, nil
		case KindCUVID:
			return []string{"nvcuvid.dll"}, nil
		default:
			return nil, fmt.Errorf("unknown library kind %d", int(kind))
		}
	}
	return nil, fmt.Errorf("%s libraries are not distributed for GOOS=%s GOARCH=%s", kind, p.goos, p.goarch)
}

// candidateLibraries builds the ordered list of names handed to the OS loader.
// An explicit path is used on its own. Search directories come before the
// bare names so the OS search path is consulted last and unmodified.
func candidateLibraries(kind Kind, p platform, explicitPath string, searchDirs []string) ([]string, error) {
	if explicitPath != "" {
		return []string{explicitPath}, nil
	}

	names, err := libraryNames(kind, p)
	if err != nil {
		return nil, err
	}

	dirs := searchDirs
	if p.wsl {
		dirs = append([]string{wslLibraryDir}, dirs...)
	}

	candidates := make([]string, 0, len(names)*(len(dirs)+1))
	seen := make(map[string]struct{}, cap(candidates))
	add := func(candidate string) {
		if _, ok := seen[candidate]; ok {
			return
		}
		seen[candidate] = struct{}{}
		candidates = append(candidates, candidate)
	}
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		for _, name := range names {
			if p.goos == "windows" {
				add(strings.TrimRight(dir, `\/`) + `\` + name)
				continue
			}
			add(path.Join(dir, name))
		}
	}
	for _, name := range names {
		add(name)
	}
	return candidates, nil
}

// openLibrary opens the first candidate of kind that the OS loader accepts.
func openLibrary(a abi, kind Kind, p platform, explicitPath string, searchDirs []string) (uintptr, string, error) {
	candidates, err := candidateLibraries(kind, p, explicitPath, searchDirs)
	if err != nil {
		return 0, "", &LibraryNotFoundError{Kind: kind, Causes: []error{err}}
	}

	var causes []error
	for _, candidate := range candidates {
		handle, err := a.open(candidate)
		if err == nil && handle != 0 {
			return handle, candidate, nil
		}
		if err == nil {
			err = fmt.Errorf("loader returned a nil handle")
		}
		causes = append(causes, fmt.Errorf("%s: %w", candidate, err))
	}
	return 0, "", &LibraryNotFoundError{Kind: kind, Attempted: candidates, Causes: causes}
}
