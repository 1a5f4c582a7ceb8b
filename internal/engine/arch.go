// Completion: 100% - Utility module complete
package engine

import (
	"fmt"
	"runtime"
	"strings"
)

// Architecture type
type Arch int

const (
	ArchUnknown Arch = iota
	ArchX86_64
	ArchARM64
)

func (a Arch) String() string {
	switch a {
	case ArchX86_64:
		return "x86_64"
	case ArchARM64:
		return "aarch64"
	default:
		return "unknown"
	}
}

// GoName returns the GOARCH spelling ("amd64", "arm64")
func (a Arch) GoName() string {
	switch a {
	case ArchX86_64:
		return "amd64"
	case ArchARM64:
		return "arm64"
	default:
		return "unknown"
	}
}

// ParseArch parses an architecture string (like GOARCH values)
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x86_64", "amd64", "x86-64":
		return ArchX86_64, nil
	case "aarch64", "arm64":
		return ArchARM64, nil
	default:
		return ArchUnknown, fmt.Errorf("unsupported architecture: %s (supported: amd64, arm64)", s)
	}
}

// OS type
type OS int

const (
	OSUnknown OS = iota
	OSLinux
	OSDarwin
	OSFreeBSD
)

func (o OS) String() string {
	switch o {
	case OSLinux:
		return "linux"
	case OSDarwin:
		return "darwin"
	case OSFreeBSD:
		return "freebsd"
	default:
		return "unknown"
	}
}

// ParseOS parses an OS string (like GOOS values)
func ParseOS(s string) (OS, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linux":
		return OSLinux, nil
	case "darwin", "macos":
		return OSDarwin, nil
	case "freebsd":
		return OSFreeBSD, nil
	default:
		return OSUnknown, fmt.Errorf("unsupported OS: %s (supported: linux, darwin, freebsd)", s)
	}
}

// Platform represents a target platform (architecture + OS)
type Platform struct {
	Arch Arch
	OS   OS
}

// String returns a human-readable platform string
func (p Platform) String() string {
	return fmt.Sprintf("%s-%s", p.Arch.GoName(), p.OS)
}

// FullString returns a detailed platform string
func (p Platform) FullString() string {
	return fmt.Sprintf("%s on %s", p.Arch, p.OS)
}

// CanExecute reports whether code generated for arch can run on this platform
func (p Platform) CanExecute(arch Arch) bool {
	return p.Arch == arch && p.Arch != ArchUnknown && p.OS != OSUnknown
}

// Host returns the platform the process is running on.
// Unsupported architectures map to ArchUnknown so callers can still
// cross-compile but never try to execute.
func Host() Platform {
	arch, err := ParseArch(runtime.GOARCH)
	if err != nil {
		arch = ArchUnknown
	}
	os, err := ParseOS(runtime.GOOS)
	if err != nil {
		os = OSUnknown
	}
	return Platform{Arch: arch, OS: os}
}
