package nvcodec

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func TestLibraryNames(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		p       platform
		want    []string
		wantErr bool
	}{
		{name: "linux cuda", kind: KindCUDA, p: linuxAMD64, want: []string{"libcuda.so.1", "libcuda.so"}},
		{name: "linux nvenc", kind: KindNVENC, p: linuxAMD64, want: []string{"libnvidia-encode.so.1", "libnvidia-encode.so"}},
		{name: "linux cuvid", kind: KindCUVID, p: platform{goos: "linux", goarch: "arm64"}, want: []string{"libnvcuvid.so.1", "libnvcuvid.so"}},
		{name: "windows cuda", kind: KindCUDA, p: platform{goos: "windows", goarch: "amd64"}, want: []string{"nvcuda.dll"}},
		{name: "windows nvenc amd64", kind: KindNVENC, p: platform{goos: "windows", goarch: "amd64"}, want: []string{"nvEncodeAPI64.dll"}},
		{name: "windows nvenc 386", kind: KindNVENC, p: platform{goos: "windows", goarch: "386"}, want: []string{"nvEncodeAPI.dll"}},
		{name: "windows cuvid", kind: KindCUVID, p: platform{goos: "windows", goarch: "amd64"}, want: []string{"nvcuvid.dll"}},
		{name: "darwin", kind: KindCUDA, p: platform{goos: "darwin", goarch: "arm64"}, wantErr: true},
		{name: "unknown kind", kind: kindCount, p: linuxAMD64, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := libraryNames(tc.kind, tc.p)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tc.want) {
				t.Fatalf("libraryNames = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCandidateLibraries(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		p        platform
		explicit string
		dirs     []string
		want     []string
	}{
		{
			name: "bare names only",
			kind: KindCUDA,
			p:    linuxAMD64,
			want: []string{"libcuda.so.1", "libcuda.so"},
		},
		{
			name:     "explicit path is exclusive",
			kind:     KindCUDA,
			p:        platform{goos: "linux", goarch: "amd64", wsl: true},
			explicit: "/opt/driver/libcuda.so.550",
			dirs:     []string{"/opt/lib"},
			want:     []string{"/opt/driver/libcuda.so.550"},
		},
		{
			name: "search dirs precede bare names",
			kind: KindNVENC,
			p:    linuxAMD64,
			dirs: []string{"/opt/nvidia/lib", "  ", "/opt/nvidia/lib/"},
			want: []string{
				"/opt/nvidia/lib/libnvidia-encode.so.1",
				"/opt/nvidia/lib/libnvidia-encode.so",
				"libnvidia-encode.so.1",
				"libnvidia-encode.so",
			},
		},
		{
			name: "wsl directory first",
			kind: KindCUDA,
			p:    platform{goos: "linux", goarch: "amd64", wsl: true},
			dirs: []string{"/opt/lib"},
			want: []string{
				"/usr/lib/wsl/lib/libcuda.so.1",
				"/usr/lib/wsl/lib/libcuda.so",
				"/opt/lib/libcuda.so.1",
				"/opt/lib/libcuda.so",
				"libcuda.so.1",
				"libcuda.so",
			},
		},
		{
			name: "windows directory join",
			kind: KindCUVID,
			p:    platform{goos: "windows", goarch: "amd64"},
			dirs: []string{`C:\Windows\System32\`, `D:\drivers`},
			want: []string{
				`C:\Windows\System32\nvcuvid.dll`,
				`D:\drivers\nvcuvid.dll`,
				"nvcuvid.dll",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := candidateLibraries(tc.kind, tc.p, tc.explicit, tc.dirs)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tc.want) {
				t.Fatalf("candidateLibraries =\n%v\nwant\n%v", got, tc.want)
			}
		})
	}
}

func TestOpenLibraryReturnsFirstLoadable(t *testing.T) {
	fake := newFakeABI().add("libcuda.so", newFakeLibrary())

	handle, path, err := openLibrary(fake, KindCUDA, linuxAMD64, "", []string{"/opt/lib"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle == 0 || path != "libcuda.so" {
		t.Fatalf("opened %q (handle 0x%x), want libcuda.so", path, handle)
	}
	want := []string{"/opt/lib/libcuda.so.1", "/opt/lib/libcuda.so", "libcuda.so.1", "libcuda.so"}
	if !slices.Equal(fake.attempts, want) {
		t.Fatalf("attempts = %v, want %v", fake.attempts, want)
	}
}

func TestOpenLibraryNotFound(t *testing.T) {
	fake := newFakeABI()

	_, _, err := openLibrary(fake, KindNVENC, linuxAMD64, "", nil)
	if !errors.Is(err, ErrLibraryNotFound) {
		t.Fatalf("expected ErrLibraryNotFound, got %v", err)
	}
	var notFound *LibraryNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *LibraryNotFoundError, got %T", err)
	}
	if !slices.Equal(notFound.Attempted, []string{"libnvidia-encode.so.1", "libnvidia-encode.so"}) {
		t.Fatalf("attempted = %v", notFound.Attempted)
	}
	if len(notFound.Causes) != 2 {
		t.Fatalf("expected one cause per attempt, got %d", len(notFound.Causes))
	}
	if !strings.Contains(err.Error(), "cannot open shared object file") {
		t.Fatalf("loader message missing from error: %v", err)
	}
}

func TestOpenLibraryUnsupportedPlatform(t *testing.T) {
	fake := newFakeABI()

	_, _, err := openLibrary(fake, KindCUDA, platform{goos: "darwin", goarch: "arm64"}, "", nil)
	var notFound *LibraryNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *LibraryNotFoundError, got %v", err)
	}
	if len(notFound.Attempted) != 0 || fake.attemptCount() != 0 {
		t.Fatalf("no library should be attempted on an unsupported platform")
	}
	if !strings.Contains(err.Error(), "darwin") {
		t.Fatalf("expected platform in error, got %v", err)
	}
}
