// Completion: 100% - x86_64 backend complete
package main

import (
	"fmt"

	"github.com/xyproto/jitexpr/internal/engine"
)

// x86_64 System V register roles. r11 and xmm15 are scratch: r11 is not an
// argument register and neither is used for values on the virtual stack.
var x86_64RegisterSet = RegisterSet{
	Acc:     "rax",
	Arg:     "rcx",
	FAcc:    "xmm0",
	FArg:    "xmm1",
	IntArgs: [2]string{"rdi", "rsi"},
	Result:  "rax",
	FResult: "xmm0",
	Scratch: "r11",
}

const x86_64FloatScratch = "xmm15"

// X86_64Backend implements the Backend interface for x86_64
type X86_64Backend struct {
	out *X86Out
}

// NewX86_64Backend creates a new x86_64 backend
func NewX86_64Backend(code *Buffer) *X86_64Backend {
	return &X86_64Backend{out: &X86Out{code: code}}
}

func (b *X86_64Backend) Arch() engine.Arch      { return engine.ArchX86_64 }
func (b *X86_64Backend) Registers() RegisterSet { return x86_64RegisterSet }
func (b *X86_64Backend) Code() *Buffer          { return b.out.code }

// Prologue: push rbp; mov rbp, rsp. On entry rsp is 8 mod 16, so after the
// push every 16-byte slot keeps it aligned for calls.
func (b *X86_64Backend) Prologue() {
	b.out.PushRbp()
	b.out.MovRbpRsp()
}

// Epilogue: mov rsp, rbp; pop rbp; ret
func (b *X86_64Backend) Epilogue() {
	b.out.MovRspRbp()
	b.out.PopRbp()
	b.out.Ret()
}

func (b *X86_64Backend) LoadImmediate(reg string, value uint64) {
	b.out.MovRegImm64(reg, value)
}

func (b *X86_64Backend) LoadFloat(freg string, addr uint64) {
	b.out.MovRegImm64(x86_64RegisterSet.Scratch, addr)
	b.out.MovsdXmmMemReg(freg, x86_64RegisterSet.Scratch)
}

func (b *X86_64Backend) Push(reg string) {
	b.out.SubRspImm8(StackSlotSize)
	b.out.MovMemRspReg(reg)
}

func (b *X86_64Backend) Pop(reg string) {
	b.out.MovRegMemRsp(reg)
	b.out.AddRspImm8(StackSlotSize)
}

func (b *X86_64Backend) PushFloat(freg string) {
	b.out.SubRspImm8(StackSlotSize)
	b.out.MovsdMemRspXmm(freg)
}

func (b *X86_64Backend) PopFloat(freg string) {
	b.out.MovsdXmmMemRsp(freg)
	b.out.AddRspImm8(StackSlotSize)
}

func (b *X86_64Backend) MoveReg(dst, src string) {
	if dst != src {
		b.out.MovRegReg(dst, src)
	}
}

func (b *X86_64Backend) MoveFloat(dst, src string) {
	if dst != src {
		b.out.MovsdXmm(dst, src)
	}
}

// CallAbsolute: mov r11, addr; call r11
func (b *X86_64Backend) CallAbsolute(addr uint64) {
	b.out.MovRegImm64(x86_64RegisterSet.Scratch, addr)
	b.out.CallReg(x86_64RegisterSet.Scratch)
}

func (b *X86_64Backend) IntToFloat(freg, reg string) {
	b.out.Cvtsi2sd(freg, reg)
}

// FloatToInt saturates like fcvtzs: cvttsd2si yields 1<<63 for NaN and
// anything out of range, so that one value is inspected again.
//
//	cvttsd2si reg, freg ; cmp reg, 1 ; jno done
//	ucomisd freg, freg ; jp nan
//	xorpd xmm15, xmm15 ; ucomisd freg, xmm15 ; jbe done
//	not reg ; jmp done
//	nan:  xor reg, reg
//	done:
func (b *X86_64Backend) FloatToInt(reg, freg string) {
	o := b.out
	o.Cvttsd2si(reg, freg)
	// Only MinInt64 - 1 overflows
	o.CmpRegImm8(reg, 1)
	toDone1 := o.JumpShort(jccJNO, "jno done")
	o.Ucomisd(freg, freg)
	toNaN := o.JumpShort(jccJP, "jp nan")
	o.XorpdXmm(x86_64FloatScratch, x86_64FloatScratch)
	o.Ucomisd(freg, x86_64FloatScratch)
	toDone2 := o.JumpShort(jccJBE, "jbe done")
	o.NotReg(reg)
	toDone3 := o.JumpShort(jmpRel, "jmp done")

	o.PatchRel8(toNaN)
	o.XorReg32(reg)

	o.PatchRel8(toDone1)
	o.PatchRel8(toDone2)
	o.PatchRel8(toDone3)
}

func (b *X86_64Backend) IntBinary(op Op, dst, src string) {
	switch op {
	case OpAdd:
		b.out.AddRegReg(dst, src)
	case OpSub:
		b.out.SubRegReg(dst, src)
	case OpMul:
		b.out.ImulRegReg(dst, src)
	case OpDiv, OpMod:
		b.divide(op, dst, src)
	case OpPow:
		b.power(dst, src)
	default:
		b.out.code.Fail(fmt.Errorf("x86_64: unsupported integer operator %s", op))
	}
}

// divide emits a guarded idiv. Division by zero yields 0, and so does
// MinInt64 % -1; MinInt64 / -1 wraps to MinInt64. idiv would trap on all three.
//
//	test src, src ; jz zero
//	cmp src, -1   ; jz negone
//	cqo ; idiv src ; [mov rax, rdx] ; jmp done
//	negone: neg rax | xor eax, eax ; jmp done
//	zero:   xor eax, eax
//	done:
func (b *X86_64Backend) divide(op Op, dst, src string) {
	if dst != "rax" || src == "rax" || src == "rdx" {
		b.out.code.Fail(fmt.Errorf("x86_64: %s needs dst=rax and src outside rax/rdx, got %s, %s", op, dst, src))
		return
	}
	o := b.out
	o.TestRegReg(src, src)
	toZero := o.JumpShort(jccJZ, "jz zero")
	o.CmpRegImm8(src, -1)
	toNegOne := o.JumpShort(jccJZ, "jz negone")
	o.Cqo()
	o.IdivReg(src)
	if op == OpMod {
		o.MovRegReg("rax", "rdx")
	}
	done1 := o.JumpShort(jmpRel, "jmp done")

	o.PatchRel8(toNegOne)
	if op == OpDiv {
		o.NegReg("rax")
	} else {
		o.XorReg32("rax")
	}
	done2 := o.JumpShort(jmpRel, "jmp done")

	o.PatchRel8(toZero)
	o.XorReg32("rax")

	o.PatchRel8(done1)
	o.PatchRel8(done2)
}

// power emits exponentiation by squaring with rdx as the accumulator.
// A negative exponent yields 0; overflow wraps.
//
//	mov edx, 1 ; test src, src ; js neg
//	loop: test src, src ; jz done
//	      test src, 1 ; jz skip ; imul rdx, dst
//	skip: imul dst, dst ; sar src, 1 ; jmp loop
//	neg:  xor edx, edx
//	done: mov dst, rdx
func (b *X86_64Backend) power(dst, src string) {
	if dst == "rdx" || src == "rdx" || dst == src {
		b.out.code.Fail(fmt.Errorf("x86_64: ** needs distinct registers outside rdx, got %s, %s", dst, src))
		return
	}
	o := b.out
	o.MovEdxImm32(1)
	o.TestRegReg(src, src)
	toNeg := o.JumpShort(jccJS, "js neg")

	loop := o.code.Offset()
	o.TestRegReg(src, src)
	toDone := o.JumpShort(jccJZ, "jz done")
	o.TestRegImm32(src, 1)
	toSkip := o.JumpShort(jccJZ, "jz skip")
	o.ImulRegReg("rdx", dst)
	o.PatchRel8(toSkip)
	o.ImulRegReg(dst, dst)
	o.SarRegOne(src)
	o.JumpShortTo(jmpRel, "jmp loop", loop)

	o.PatchRel8(toNeg)
	o.XorReg32("rdx")

	o.PatchRel8(toDone)
	o.MovRegReg(dst, "rdx")
}

func (b *X86_64Backend) FloatBinary(op Op, dst, src string) {
	switch op {
	case OpAdd:
		b.out.AddsdXmm(dst, src)
	case OpSub:
		b.out.SubsdXmm(dst, src)
	case OpMul:
		b.out.MulsdXmm(dst, src)
	case OpDiv:
		b.out.DivsdXmm(dst, src)
	default:
		b.out.code.Fail(fmt.Errorf("x86_64: %s on floats goes through the runtime", op))
	}
}

func (b *X86_64Backend) IntNegate(reg string) {
	b.out.NegReg(reg)
}

// FloatNegate flips the sign bit: mov r11, 1<<63; movq xmm15, r11; xorpd freg, xmm15
func (b *X86_64Backend) FloatNegate(freg string) {
	b.out.MovRegImm64(x86_64RegisterSet.Scratch, 1<<63)
	b.out.MovqXmmReg(x86_64FloatScratch, x86_64RegisterSet.Scratch)
	b.out.XorpdXmm(freg, x86_64FloatScratch)
}
