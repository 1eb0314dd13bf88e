//go:build linux

package nvcodec

import (
	"strings"

	"golang.org/x/sys/unix"
)

// detectWSL reports whether the process runs under Windows Subsystem for
// Linux, where the driver exposes its libraries under /usr/lib/wsl/lib.
func detectWSL() bool {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return false
	}
	release := strings.ToLower(unix.ByteSliceToString(uts.Release[:]))
	return strings.Contains(release, "microsoft")
}
