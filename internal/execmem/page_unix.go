// Completion: 100% - Platform-specific module complete
//go:build unix

package execmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// PageSize returns the host page size
func PageSize() int {
	return unix.Getpagesize()
}

// Allocate maps size bytes (rounded up to whole pages) of private,
// anonymous, read-write memory.
func Allocate(size int) (*Page, error) {
	n := roundUp(size, unix.Getpagesize())
	mem, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %v", ErrOutOfMemory, n, err)
	}
	return &Page{mem: mem, state: Writable}, nil
}

func protect(mem []byte, to State) error {
	prot := unix.PROT_READ
	if to == Executable {
		prot |= unix.PROT_EXEC
	}
	return unix.Mprotect(mem, prot)
}

func unmap(mem []byte) error {
	return unix.Munmap(mem)
}

func addrOf(mem []byte) uintptr {
	return uintptr(unsafe.Pointer(&mem[0]))
}
