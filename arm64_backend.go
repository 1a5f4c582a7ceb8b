// Completion: 100% - ARM64 backend complete
package main

import (
	"fmt"

	"github.com/xyproto/jitexpr/internal/engine"
)

// AAPCS64 register roles. x16/x17 (IP0/IP1) are the intra-procedure scratch
// registers; neither is used for arguments.
var arm64RegisterSet = RegisterSet{
	Acc:     "x0",
	Arg:     "x1",
	FAcc:    "d0",
	FArg:    "d1",
	IntArgs: [2]string{"x0", "x1"},
	Result:  "x0",
	FResult: "d0",
	Scratch: "x16",
}

const arm64Scratch2 = "x17"

// ARM64Backend implements the Backend interface for ARM64
type ARM64Backend struct {
	out *ARM64Out
}

// NewARM64Backend creates a new ARM64 backend
func NewARM64Backend(code *Buffer) *ARM64Backend {
	return &ARM64Backend{out: &ARM64Out{code: code}}
}

func (b *ARM64Backend) Arch() engine.Arch      { return engine.ArchARM64 }
func (b *ARM64Backend) Registers() RegisterSet { return arm64RegisterSet }
func (b *ARM64Backend) Code() *Buffer          { return b.out.code }

// Prologue: stp x29, x30, [sp, #-16]!; mov x29, sp
func (b *ARM64Backend) Prologue() {
	b.out.StpFrame()
	b.out.MovFPFromSP()
}

// Epilogue: mov sp, x29; ldp x29, x30, [sp], #16; ret
func (b *ARM64Backend) Epilogue() {
	b.out.MovSPFromFP()
	b.out.LdpFrame()
	b.out.Return()
}

func (b *ARM64Backend) LoadImmediate(reg string, value uint64) {
	b.out.MovImm64(reg, value)
}

func (b *ARM64Backend) LoadFloat(freg string, addr uint64) {
	b.out.MovImm64(arm64RegisterSet.Scratch, addr)
	b.out.LdrDReg(freg, arm64RegisterSet.Scratch)
}

func (b *ARM64Backend) Push(reg string)       { b.out.StrPreSP(reg) }
func (b *ARM64Backend) Pop(reg string)        { b.out.LdrPostSP(reg) }
func (b *ARM64Backend) PushFloat(freg string) { b.out.StrDPreSP(freg) }
func (b *ARM64Backend) PopFloat(freg string)  { b.out.LdrDPostSP(freg) }

func (b *ARM64Backend) MoveReg(dst, src string) {
	if dst != src {
		b.out.MovReg64(dst, src)
	}
}

func (b *ARM64Backend) MoveFloat(dst, src string) {
	if dst != src {
		b.out.FmovReg(dst, src)
	}
}

// CallAbsolute: materialize addr in x16; blr x16
func (b *ARM64Backend) CallAbsolute(addr uint64) {
	b.out.MovImm64(arm64RegisterSet.Scratch, addr)
	b.out.Blr(arm64RegisterSet.Scratch)
}

func (b *ARM64Backend) IntToFloat(freg, reg string) {
	b.out.Scvtf(freg, reg)
}

// FloatToInt: fcvtzs saturates out-of-range values and maps NaN to 0
func (b *ARM64Backend) FloatToInt(reg, freg string) {
	b.out.Fcvtzs(reg, freg)
}

func (b *ARM64Backend) IntBinary(op Op, dst, src string) {
	switch op {
	case OpAdd:
		b.out.AddReg64(dst, dst, src)
	case OpSub:
		b.out.SubReg64(dst, dst, src)
	case OpMul:
		b.out.MulReg64(dst, dst, src)
	case OpDiv:
		// sdiv already yields 0 for a zero divisor and wraps MinInt64 / -1
		b.out.SDiv(dst, dst, src)
	case OpMod:
		b.modulo(dst, src)
	case OpPow:
		b.power(dst, src)
	default:
		b.out.code.Fail(fmt.Errorf("arm64: unsupported integer operator %s", op))
	}
}

// modulo: dst - (dst / src) * src, forced to 0 when src is 0
//
//	sdiv x16, dst, src
//	msub dst, x16, src, dst
//	cmp src, #0
//	csel dst, xzr, dst, eq
func (b *ARM64Backend) modulo(dst, src string) {
	scratch := arm64RegisterSet.Scratch
	b.out.SDiv(scratch, dst, src)
	b.out.Msub(dst, scratch, src, dst)
	b.out.CmpZero(src)
	b.out.Csel(dst, "xzr", dst, condEQ)
}

// power emits exponentiation by squaring with x17 as the accumulator.
// A negative exponent yields 0; overflow wraps.
//
//	movz x17, #1 ; cmp src, #0 ; b.lt neg
//	loop: cbz src, done
//	      tbz src, #0, skip ; mul x17, x17, dst
//	skip: mul dst, dst, dst ; asr src, src, #1 ; b loop
//	neg:  movz x17, #0
//	done: mov dst, x17
func (b *ARM64Backend) power(dst, src string) {
	if dst == arm64Scratch2 || src == arm64Scratch2 || dst == src {
		b.out.code.Fail(fmt.Errorf("arm64: ** needs distinct registers outside x17, got %s, %s", dst, src))
		return
	}
	o := b.out
	o.Movz(arm64Scratch2, 1, 0)
	o.CmpZero(src)
	toNeg := o.BCond(condLT)

	loop := o.code.Offset()
	toDone := o.Cbz(src)
	toSkip := o.TbzBit0(src)
	o.MulReg64(arm64Scratch2, arm64Scratch2, dst)
	o.PatchBranch(toSkip)
	o.MulReg64(dst, dst, dst)
	o.AsrOne(src, src)
	o.BTo(loop)

	o.PatchBranch(toNeg)
	o.Movz(arm64Scratch2, 0, 0)

	o.PatchBranch(toDone)
	o.MovReg64(dst, arm64Scratch2)
}

func (b *ARM64Backend) FloatBinary(op Op, dst, src string) {
	switch op {
	case OpAdd:
		b.out.Fadd(dst, dst, src)
	case OpSub:
		b.out.Fsub(dst, dst, src)
	case OpMul:
		b.out.Fmul(dst, dst, src)
	case OpDiv:
		b.out.Fdiv(dst, dst, src)
	default:
		b.out.code.Fail(fmt.Errorf("arm64: %s on floats goes through the runtime", op))
	}
}

func (b *ARM64Backend) IntNegate(reg string) {
	b.out.Neg64(reg, reg)
}

func (b *ARM64Backend) FloatNegate(freg string) {
	b.out.Fneg(freg, freg)
}
