// Completion: 100% - Platform-specific module complete
//go:build !unix

package execmem

import "unsafe"

// PageSize returns a nominal page size on platforms without mmap support
func PageSize() int {
	return 4096
}

// Allocate always fails on platforms without mmap/mprotect
func Allocate(size int) (*Page, error) {
	return nil, ErrUnsupportedPlatform
}

func protect(mem []byte, to State) error {
	return ErrUnsupportedPlatform
}

func unmap(mem []byte) error {
	return nil
}

func addrOf(mem []byte) uintptr {
	return uintptr(unsafe.Pointer(&mem[0]))
}
