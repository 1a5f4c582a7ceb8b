package main

import (
	"encoding/binary"
	"slices"
	"testing"
)

// emitARM64 runs emit against a fresh ARM64 backend and returns the instruction words
func emitARM64(t *testing.T, emit func(b Backend)) []uint32 {
	t.Helper()
	code := NewBufferAt("code", make([]byte, 256), 0x1000)
	emit(NewARM64Backend(code))
	if err := code.Err(); err != nil {
		t.Fatalf("emission failed: %v", err)
	}
	raw := code.Bytes()
	if len(raw)%4 != 0 {
		t.Fatalf("%d bytes is not a whole number of instructions", len(raw))
	}
	words := make([]uint32, len(raw)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return words
}

func TestARM64Encoding(t *testing.T) {
	tests := []struct {
		name string
		emit func(b Backend)
		want []uint32
	}{
		{"prologue", func(b Backend) { b.Prologue() }, []uint32{0xA9BF7BFD, 0x910003FD}},
		{"epilogue", func(b Backend) { b.Epilogue() }, []uint32{0x910003BF, 0xA8C17BFD, 0xD65F03C0}},
		{"movz small", func(b Backend) { b.LoadImmediate("x0", 42) }, []uint32{0xD2800540}},
		{"movz zero", func(b Backend) { b.LoadImmediate("x0", 0) }, []uint32{0xD2800000}},
		{"movz + movk skips zero chunks", func(b Backend) { b.LoadImmediate("x0", 0x1234_0000_5678_9ABC) },
			[]uint32{0xD2935780, 0xF2AACF00, 0xF2E24680}},
		{"push x0", func(b Backend) { b.Push("x0") }, []uint32{0xF81F0FE0}},
		{"pop x1", func(b Backend) { b.Pop("x1") }, []uint32{0xF84107E1}},
		{"push d0", func(b Backend) { b.PushFloat("d0") }, []uint32{0xFC1F0FE0}},
		{"pop d1", func(b Backend) { b.PopFloat("d1") }, []uint32{0xFC4107E1}},
		{"load float", func(b Backend) { b.LoadFloat("d0", 0x2000) }, []uint32{0xD2840010, 0xFD400200}},
		{"call absolute", func(b Backend) { b.CallAbsolute(0x1234) }, []uint32{0xD2824690, 0xD63F0200}},
		{"mov x0, x17", func(b Backend) { b.MoveReg("x0", "x17") }, []uint32{0xAA1103E0}},
		{"mov x0, x0 is elided", func(b Backend) { b.MoveReg("x0", "x0") }, []uint32{}},
		{"fmov d0, d1", func(b Backend) { b.MoveFloat("d0", "d1") }, []uint32{0x1E604020}},
		{"scvtf d1, x1", func(b Backend) { b.IntToFloat("d1", "x1") }, []uint32{0x9E620021}},
		{"fcvtzs x0, d0", func(b Backend) { b.FloatToInt("x0", "d0") }, []uint32{0x9E780000}},
		{"add", func(b Backend) { b.IntBinary(OpAdd, "x0", "x1") }, []uint32{0x8B010000}},
		{"sub", func(b Backend) { b.IntBinary(OpSub, "x0", "x1") }, []uint32{0xCB010000}},
		{"mul", func(b Backend) { b.IntBinary(OpMul, "x0", "x1") }, []uint32{0x9B017C00}},
		{"sdiv", func(b Backend) { b.IntBinary(OpDiv, "x0", "x1") }, []uint32{0x9AC10C00}},
		{"modulo", func(b Backend) { b.IntBinary(OpMod, "x0", "x1") }, []uint32{
			0x9AC10C10, // sdiv x16, x0, x1
			0x9B018200, // msub x0, x16, x1, x0
			0xF100003F, // cmp x1, #0
			0x9A8003E0, // csel x0, xzr, x0, eq
		}},
		{"integer power", func(b Backend) { b.IntBinary(OpPow, "x0", "x1") }, []uint32{
			0xD2800031, // movz x17, #1
			0xF100003F, // cmp x1, #0
			0x540000EB, // b.lt neg
			0xB40000E1, // loop: cbz x1, done
			0x36000041, // tbz x1, #0, skip
			0x9B007E31, // mul x17, x17, x0
			0x9B007C00, // skip: mul x0, x0, x0
			0x9341FC21, // asr x1, x1, #1
			0x17FFFFFB, // b loop
			0xD2800011, // neg: movz x17, #0
			0xAA1103E0, // done: mov x0, x17
		}},
		{"fadd", func(b Backend) { b.FloatBinary(OpAdd, "d0", "d1") }, []uint32{0x1E612800}},
		{"fsub", func(b Backend) { b.FloatBinary(OpSub, "d0", "d1") }, []uint32{0x1E613800}},
		{"fmul", func(b Backend) { b.FloatBinary(OpMul, "d0", "d1") }, []uint32{0x1E610800}},
		{"fdiv", func(b Backend) { b.FloatBinary(OpDiv, "d0", "d1") }, []uint32{0x1E611800}},
		{"neg", func(b Backend) { b.IntNegate("x0") }, []uint32{0xCB0003E0}},
		{"fneg", func(b Backend) { b.FloatNegate("d0") }, []uint32{0x1E614000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := emitARM64(t, tt.emit)
			if !slices.Equal(got, tt.want) {
				t.Errorf("got  %08X\nwant %08X", got, tt.want)
			}
		})
	}
}

func TestARM64InvalidRegister(t *testing.T) {
	code := NewBufferAt("code", make([]byte, 64), 0)
	b := NewARM64Backend(code)
	b.Push("rax")
	if code.Err() == nil {
		t.Fatal("x86 register name accepted by the ARM64 backend")
	}
}

func TestARM64PowerNeedsDistinctRegisters(t *testing.T) {
	code := NewBufferAt("code", make([]byte, 64), 0)
	NewARM64Backend(code).IntBinary(OpPow, "x0", "x0")
	if code.Err() == nil {
		t.Error("x0 ** x0 in place must be rejected")
	}
}

func TestARM64PatchBranchRejectsNonBranch(t *testing.T) {
	code := NewBufferAt("code", make([]byte, 64), 0)
	a := &ARM64Out{code: code}
	a.Neg64("x0", "x0")
	a.PatchBranch(0)
	if code.Err() == nil {
		t.Error("patching a neg instruction must fail")
	}
}
