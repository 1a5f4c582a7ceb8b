// Package execmem manages the pages that hold generated machine code and
// the constants it references.
//
// A page starts writable, is filled, and is then flipped to either
// read+execute (code) or read-only (data). A page is never writable and
// executable at the same time. Release unmaps it.
package execmem

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfMemory         = errors.New("out of memory")
	ErrProtection          = errors.New("protection change failed")
	ErrReleased            = errors.New("page already released")
	ErrUnsupportedPlatform = errors.New("executable memory is not supported on this platform")
)

// State is the protection state of a page
type State int

const (
	Writable State = iota
	Executable
	ReadOnly
	Released
)

func (s State) String() string {
	switch s {
	case Writable:
		return "rw-"
	case Executable:
		return "r-x"
	case ReadOnly:
		return "r--"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// Page is one mapping of anonymous private memory
type Page struct {
	mem   []byte
	state State
}

// Addr returns the absolute address of the first byte of the page.
// Pages are never moved, so the address is stable until Release.
func (p *Page) Addr() uintptr {
	if p.state == Released || len(p.mem) == 0 {
		return 0
	}
	return addrOf(p.mem)
}

// Size returns the mapped size in bytes (a multiple of the host page size)
func (p *Page) Size() int {
	if p.state == Released {
		return 0
	}
	return len(p.mem)
}

// State returns the current protection state
func (p *Page) State() State {
	return p.state
}

// Bytes returns the page contents for writing. Only valid while writable.
func (p *Page) Bytes() ([]byte, error) {
	if p.state != Writable {
		return nil, fmt.Errorf("execmem: page is %s, not writable", p.state)
	}
	return p.mem, nil
}

// Snapshot copies the first n bytes of the page. Valid in every state but Released.
func (p *Page) Snapshot(n int) ([]byte, error) {
	if p.state == Released {
		return nil, ErrReleased
	}
	if n > len(p.mem) {
		n = len(p.mem)
	}
	out := make([]byte, n)
	copy(out, p.mem[:n])
	return out, nil
}

// MakeExecutable flips the page to read+execute, dropping write permission
func (p *Page) MakeExecutable() error {
	return p.transition(Executable)
}

// MakeReadOnly flips the page to read-only
func (p *Page) MakeReadOnly() error {
	return p.transition(ReadOnly)
}

func (p *Page) transition(to State) error {
	switch p.state {
	case Released:
		return ErrReleased
	case to:
		return nil
	}
	if p.state != Writable {
		// r-x and r-- pages are final, they are never made writable again
		return fmt.Errorf("%w: %s -> %s", ErrProtection, p.state, to)
	}
	if err := protect(p.mem, to); err != nil {
		return fmt.Errorf("%w: %s -> %s: %v", ErrProtection, p.state, to, err)
	}
	p.state = to
	return nil
}

// Release unmaps the page. Releasing twice is a no-op.
func (p *Page) Release() error {
	if p.state == Released {
		return nil
	}
	if err := unmap(p.mem); err != nil {
		return fmt.Errorf("execmem: munmap: %w", err)
	}
	p.mem = nil
	p.state = Released
	return nil
}

// roundUp rounds size up to a multiple of pageSize (a power of two)
func roundUp(size, pageSize int) int {
	if size <= 0 {
		size = 1
	}
	return (size + pageSize - 1) &^ (pageSize - 1)
}
