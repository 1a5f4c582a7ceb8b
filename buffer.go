// Completion: 100% - Module complete
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/xyproto/jitexpr/internal/execmem"
)

// Buffer is a bounds-checked, append-only cursor into a page.
//
// Errors are sticky: the first failure (overflow or an invalid operand
// reported through Fail) is recorded, every later write is dropped, and Err
// reports it. Writing after Commit is a programming error and panics.
type Buffer struct {
	name      string // For debugging
	mem       []byte
	base      uint64 // Absolute address of mem[0]
	off       int
	err       error
	committed bool
}

// NewBuffer wraps a writable page. The page is rounded up to whole OS
// pages; limit caps the buffer at the size that was asked for.
func NewBuffer(name string, page *execmem.Page, limit int) (*Buffer, error) {
	mem, err := page.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%s buffer: %w", name, err)
	}
	if limit > 0 && limit < len(mem) {
		mem = mem[:limit]
	}
	return NewBufferAt(name, mem, uint64(page.Addr())), nil
}

// NewBufferAt wraps a plain byte slice that pretends to live at base.
// Used for cross-compilation and encoder tests, where nothing is executed.
func NewBufferAt(name string, mem []byte, base uint64) *Buffer {
	return &Buffer{name: name, mem: mem, base: base}
}

func (b *Buffer) mustNotBeCommitted() {
	if b.committed {
		panic(fmt.Sprintf("Buffer(%s): Cannot write to committed buffer", b.name))
	}
}

// reserve checks that n more bytes fit and returns the slice to fill
func (b *Buffer) reserve(n int) []byte {
	b.mustNotBeCommitted()
	if b.err != nil {
		return nil
	}
	if n > len(b.mem)-b.off {
		b.err = fmt.Errorf("%w: %s buffer needs %d bytes, page holds %d", ErrBufferOverflow, b.name, b.off+n, len(b.mem))
		if VerboseMode {
			fmt.Fprintf(os.Stderr, "Buffer(%s): overflow at offset %d (+%d)\n", b.name, b.off, n)
		}
		return nil
	}
	p := b.mem[b.off : b.off+n]
	b.off += n
	return p
}

// Write appends p. It implements io.Writer; the returned error is the sticky one.
func (b *Buffer) Write(p []byte) (int, error) {
	dst := b.reserve(len(p))
	if dst == nil && len(p) > 0 {
		return 0, b.err
	}
	copy(dst, p)
	return len(p), nil
}

// WriteByte appends a single byte
func (b *Buffer) WriteByte(c byte) error {
	if dst := b.reserve(1); dst != nil {
		dst[0] = c
	}
	return b.err
}

// WriteUint32 appends v in little-endian order
func (b *Buffer) WriteUint32(v uint32) {
	if dst := b.reserve(4); dst != nil {
		binary.LittleEndian.PutUint32(dst, v)
	}
}

// WriteUint64 appends v in little-endian order
func (b *Buffer) WriteUint64(v uint64) {
	if dst := b.reserve(8); dst != nil {
		binary.LittleEndian.PutUint64(dst, v)
	}
}

// Align pads with zero bytes up to the next multiple of n
func (b *Buffer) Align(n int) {
	pad := (n - b.off%n) % n
	if dst := b.reserve(pad); dst != nil {
		clear(dst)
	}
}

// Fail records err as the sticky error unless one is already recorded
func (b *Buffer) Fail(err error) {
	if b.err == nil && err != nil {
		b.err = fmt.Errorf("%s buffer: %w", b.name, err)
	}
}

// Err returns the first error recorded by the buffer
func (b *Buffer) Err() error {
	return b.err
}

// Addr returns the absolute address of the cursor
func (b *Buffer) Addr() uint64 {
	return b.base + uint64(b.off)
}

// Base returns the absolute address of the first byte
func (b *Buffer) Base() uint64 {
	return b.base
}

// Offset returns the number of bytes written so far
func (b *Buffer) Offset() int {
	return b.off
}

// Cap returns the capacity of the underlying page
func (b *Buffer) Cap() int {
	return len(b.mem)
}

// Bytes returns the bytes written so far. Safe to call after commit.
func (b *Buffer) Bytes() []byte {
	return b.mem[:b.off]
}

// PatchByte rewrites an already emitted byte (rel8 branch fixups)
func (b *Buffer) PatchByte(off int, v byte) {
	b.mustNotBeCommitted()
	if b.err != nil {
		return
	}
	if off < 0 || off >= b.off {
		b.Fail(fmt.Errorf("patch at %d outside emitted range [0,%d)", off, b.off))
		return
	}
	b.mem[off] = v
}

// PatchUint32 rewrites an already emitted little-endian word (ARM64 branch fixups)
func (b *Buffer) PatchUint32(off int, v uint32) {
	b.mustNotBeCommitted()
	if b.err != nil {
		return
	}
	if off < 0 || off+4 > b.off {
		b.Fail(fmt.Errorf("patch at %d outside emitted range [0,%d)", off, b.off))
		return
	}
	binary.LittleEndian.PutUint32(b.mem[off:], v)
}

// ReadUint32 reads back an emitted little-endian word
func (b *Buffer) ReadUint32(off int) uint32 {
	if off < 0 || off+4 > b.off {
		return 0
	}
	return binary.LittleEndian.Uint32(b.mem[off:])
}

// Commit marks the buffer as complete. After this, no more writes are allowed.
func (b *Buffer) Commit() {
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "Buffer(%s): Committed with %d bytes\n", b.name, b.off)
	}
	b.committed = true
}

// IsCommitted returns true if the buffer has been committed
func (b *Buffer) IsCommitted() bool {
	return b.committed
}
