package nvcodec

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is an API version triple. Versions order by major, then minor,
// then build.
type Version struct {
	Major uint32
	Minor uint32
	Build uint32
}

// V is shorthand for Version{major, minor, build}.
func V(major, minor, build uint32) Version {
	return Version{Major: major, Minor: minor, Build: build}
}

// ParseVersion parses "12", "12.1" or "v12.1.0". Pre-release and build
// metadata suffixes are rejected.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("version is empty")
	}
	parsed, err := semver.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	if parsed.Prerelease() != "" || parsed.Metadata() != "" {
		return Version{}, fmt.Errorf("invalid version %q: pre-release and metadata suffixes are not supported", s)
	}
	if parsed.Major() > math.MaxUint32 || parsed.Minor() > math.MaxUint32 || parsed.Patch() > math.MaxUint32 {
		return Version{}, fmt.Errorf("invalid version %q: component out of range", s)
	}
	return Version{
		Major: uint32(parsed.Major()),
		Minor: uint32(parsed.Minor()),
		Build: uint32(parsed.Patch()),
	}, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
}

// IsZero reports whether v is the zero version.
func (v Version) IsZero() bool {
	return v == Version{}
}

// Compare returns -1, 0 or +1 depending on whether v sorts before, equal to
// or after o.
func (v Version) Compare(o Version) int {
	if c := cmp.Compare(v.Major, o.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, o.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Build, o.Build)
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

// Compatible reports whether a caller requiring v can drive a runtime that
// reports runtime: v must not be newer and the major versions must match.
func (v Version) Compatible(runtime Version) bool {
	return v.Major == runtime.Major && v.Compare(runtime) <= 0
}

// VersionQuery reports the newest API version a loaded runtime supports.
type VersionQuery func() (Version, error)

// Negotiate queries the runtime version and returns the greatest known
// version compatible with it.
func Negotiate(query VersionQuery, known []Version) (Version, error) {
	if query == nil {
		return Version{}, fmt.Errorf("version query is nil")
	}
	runtime, err := query()
	if err != nil {
		return Version{}, err
	}
	return negotiateWith(runtime, known)
}

func negotiateWith(runtime Version, known []Version) (Version, error) {
	var (
		best  Version
		found bool
	)
	for _, candidate := range known {
		if !candidate.Compatible(runtime) {
			continue
		}
		if !found || best.Less(candidate) {
			best = candidate
			found = true
		}
	}
	if found {
		return best, nil
	}

	unsupported := &UnsupportedVersionError{Runtime: runtime}
	if len(known) > 0 {
		unsupported.Oldest = slices.MinFunc(known, Version.Compare)
		unsupported.Newest = slices.MaxFunc(known, Version.Compare)
	}
	return Version{}, unsupported
}

// capVersions drops every known version newer than limit. A zero limit keeps all.
func capVersions(known []Version, limit Version) []Version {
	if limit.IsZero() {
		return known
	}
	capped := make([]Version, 0, len(known))
	for _, v := range known {
		if v.Compare(limit) <= 0 {
			capped = append(capped, v)
		}
	}
	return capped
}
