package main

import (
	"bytes"
	"errors"
	"testing"
)

func TestBufferBasicUsage(t *testing.T) {
	b := NewBufferAt("test", make([]byte, 32), 0x1000)

	b.Write([]byte("hello"))
	if b.Offset() != 5 {
		t.Errorf("Expected offset 5, got %d", b.Offset())
	}
	if b.Addr() != 0x1005 {
		t.Errorf("Expected address 0x1005, got %#x", b.Addr())
	}
	b.WriteUint32(0xDEADBEEF)
	if !bytes.Equal(b.Bytes()[5:], []byte{0xEF, 0xBE, 0xAD, 0xDE}) {
		t.Errorf("WriteUint32 is not little endian: % X", b.Bytes()[5:])
	}

	b.Commit()

	// Reading is safe after commit
	if string(b.Bytes()[:5]) != "hello" {
		t.Errorf("Expected 'hello', got '%s'", string(b.Bytes()[:5]))
	}
}

func TestBufferAlign(t *testing.T) {
	b := NewBufferAt("test", make([]byte, 32), 0)
	b.WriteByte(1)
	b.Align(8)
	if b.Offset() != 8 {
		t.Errorf("Expected offset 8 after Align, got %d", b.Offset())
	}
	b.Align(8)
	if b.Offset() != 8 {
		t.Errorf("Align on a boundary must not pad, got %d", b.Offset())
	}
}

func TestBufferOverflowIsSticky(t *testing.T) {
	mem := make([]byte, 8+4)
	b := NewBufferAt("test", mem[:8], 0)

	b.WriteUint64(1)
	if b.Err() != nil {
		t.Fatalf("exact fit must succeed: %v", b.Err())
	}
	b.WriteUint32(0xFFFFFFFF)
	if !errors.Is(b.Err(), ErrBufferOverflow) {
		t.Fatalf("Expected ErrBufferOverflow, got %v", b.Err())
	}
	// Adjacent memory is untouched
	if !bytes.Equal(mem[8:], []byte{0, 0, 0, 0}) {
		t.Errorf("overflow wrote past the page: % X", mem[8:])
	}
	// Later writes are dropped, the first error stays
	first := b.Err()
	b.Fail(errors.New("second"))
	b.WriteByte(1)
	if b.Err() != first || b.Offset() != 8 {
		t.Errorf("sticky error lost: %v at %d", b.Err(), b.Offset())
	}
}

func TestBufferPatch(t *testing.T) {
	b := NewBufferAt("test", make([]byte, 16), 0)
	b.Write([]byte{0x74, 0x00})
	b.WriteUint32(0)
	b.PatchByte(1, 0x10)
	b.PatchUint32(2, 0x01020304)
	if !bytes.Equal(b.Bytes(), []byte{0x74, 0x10, 0x04, 0x03, 0x02, 0x01}) {
		t.Errorf("patched bytes = % X", b.Bytes())
	}
	if b.ReadUint32(2) != 0x01020304 {
		t.Errorf("ReadUint32 = %#x", b.ReadUint32(2))
	}

	// Patching beyond what was emitted fails
	b.PatchUint32(4, 0)
	if b.Err() == nil {
		t.Error("Expected error for patch outside the emitted range")
	}
}

func TestBufferPreventsWriteAfterCommit(t *testing.T) {
	b := NewBufferAt("test", make([]byte, 16), 0)
	b.Write([]byte("data"))
	b.Commit()
	if !b.IsCommitted() {
		t.Fatal("buffer not committed")
	}

	// This should panic
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when writing to committed buffer")
		}
	}()

	b.Write([]byte("more"))
}
