// Completion: 100% - Instruction implementation complete
package main

import (
	"fmt"
	"os"
)

// x86-64 instruction encoding.
// Only the 64-bit general purpose and SSE2 scalar double forms that the
// expression compiler needs are implemented.

// X86Out emits x86-64 instructions into a code buffer
type X86Out struct {
	code *Buffer
}

func (x *X86Out) trace(format string, args ...any) {
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "%06x: ", x.code.Offset())
		fmt.Fprintf(os.Stderr, format, args...)
		fmt.Fprintln(os.Stderr)
	}
}

func (x *X86Out) write(bs ...byte) {
	x.code.Write(bs)
}

// gp returns the encoding of a general purpose register
func (x *X86Out) gp(name string) uint8 {
	reg, ok := x86_64Registers[name]
	if !ok || reg.Float {
		x.code.Fail(fmt.Errorf("invalid x86_64 general purpose register: %s", name))
		return 0
	}
	return reg.Encoding
}

// xmm returns the encoding of an SSE register
func (x *X86Out) xmm(name string) uint8 {
	reg, ok := x86_64Registers[name]
	if !ok || !reg.Float {
		x.code.Fail(fmt.Errorf("invalid x86_64 SSE register: %s", name))
		return 0
	}
	return reg.Encoding
}

// rex builds a REX prefix. r extends ModRM.reg, b extends ModRM.rm.
func rex(w bool, r, b uint8) uint8 {
	prefix := uint8(0x40)
	if w {
		prefix |= 0x08
	}
	if r >= 8 {
		prefix |= 0x04
	}
	if b >= 8 {
		prefix |= 0x01
	}
	return prefix
}

// modrm builds a ModRM byte
func modrm(mod, reg, rm uint8) uint8 {
	return mod<<6 | (reg&7)<<3 | rm&7
}

// regReg emits [prefix] [REX] opcode... ModRM(11, reg, rm).
// The REX byte is omitted when it would be a plain 0x40.
func (x *X86Out) regReg(prefix uint8, w bool, opcode []byte, reg, rm uint8) {
	if prefix != 0 {
		x.write(prefix)
	}
	if r := rex(w, reg, rm); r != 0x40 {
		x.write(r)
	}
	x.write(opcode...)
	x.write(modrm(3, reg, rm))
}

// PushRbp / MovRbpRsp form the standard prologue
func (x *X86Out) PushRbp() {
	x.trace("push rbp")
	x.write(0x55)
}

func (x *X86Out) PopRbp() {
	x.trace("pop rbp")
	x.write(0x5D)
}

func (x *X86Out) MovRbpRsp() {
	x.trace("mov rbp, rsp")
	x.write(0x48, 0x89, 0xE5)
}

func (x *X86Out) MovRspRbp() {
	x.trace("mov rsp, rbp")
	x.write(0x48, 0x89, 0xEC)
}

func (x *X86Out) Ret() {
	x.trace("ret")
	x.write(0xC3)
}

// SubRspImm8 / AddRspImm8 adjust the stack pointer by a small constant
func (x *X86Out) SubRspImm8(n uint8) {
	x.trace("sub rsp, %d", n)
	x.write(0x48, 0x83, 0xEC, n)
}

func (x *X86Out) AddRspImm8(n uint8) {
	x.trace("add rsp, %d", n)
	x.write(0x48, 0x83, 0xC4, n)
}

// MovMemRspReg: mov [rsp], reg
func (x *X86Out) MovMemRspReg(reg string) {
	r := x.gp(reg)
	x.trace("mov [rsp], %s", reg)
	x.write(rex(true, r, 0), 0x89, modrm(0, r, 4), 0x24)
}

// MovRegMemRsp: mov reg, [rsp]
func (x *X86Out) MovRegMemRsp(reg string) {
	r := x.gp(reg)
	x.trace("mov %s, [rsp]", reg)
	x.write(rex(true, r, 0), 0x8B, modrm(0, r, 4), 0x24)
}

// MovsdMemRspXmm: movsd [rsp], xmm
func (x *X86Out) MovsdMemRspXmm(freg string) {
	r := x.xmm(freg)
	x.trace("movsd [rsp], %s", freg)
	x.write(0xF2)
	if r >= 8 {
		x.write(rex(false, r, 0))
	}
	x.write(0x0F, 0x11, modrm(0, r, 4), 0x24)
}

// MovsdXmmMemRsp: movsd xmm, [rsp]
func (x *X86Out) MovsdXmmMemRsp(freg string) {
	r := x.xmm(freg)
	x.trace("movsd %s, [rsp]", freg)
	x.write(0xF2)
	if r >= 8 {
		x.write(rex(false, r, 0))
	}
	x.write(0x0F, 0x10, modrm(0, r, 4), 0x24)
}

// MovsdXmmMemReg: movsd xmm, [base]. base must not be rsp/rbp/r12/r13,
// which need a SIB byte or displacement.
func (x *X86Out) MovsdXmmMemReg(freg, base string) {
	r := x.xmm(freg)
	b := x.gp(base)
	if b&7 == 4 || b&7 == 5 {
		x.code.Fail(fmt.Errorf("movsd: unsupported base register %s", base))
		return
	}
	x.trace("movsd %s, [%s]", freg, base)
	x.write(0xF2)
	if p := rex(false, r, b); p != 0x40 {
		x.write(p)
	}
	x.write(0x0F, 0x10, modrm(0, r, b))
}

// MovRegImm64: mov r64, imm64 (always the 10-byte form)
func (x *X86Out) MovRegImm64(reg string, imm uint64) {
	r := x.gp(reg)
	x.trace("mov %s, 0x%x", reg, imm)
	x.write(rex(true, 0, r), 0xB8+r&7)
	x.code.WriteUint64(imm)
}

// MovEdxImm32: mov edx, imm32 (zero-extends into rdx)
func (x *X86Out) MovEdxImm32(imm uint32) {
	x.trace("mov edx, %d", imm)
	x.write(0xBA)
	x.code.WriteUint32(imm)
}

// MovRegReg: mov dst, src
func (x *X86Out) MovRegReg(dst, src string) {
	d, s := x.gp(dst), x.gp(src)
	x.trace("mov %s, %s", dst, src)
	x.regReg(0, true, []byte{0x89}, s, d)
}

// XorReg32: xor r32, r32 (zeroes the full 64-bit register)
func (x *X86Out) XorReg32(reg string) {
	r := x.gp(reg)
	x.trace("xor %s, %s (32-bit)", reg, reg)
	x.regReg(0, false, []byte{0x31}, r, r)
}

// CallReg: call reg
func (x *X86Out) CallReg(reg string) {
	r := x.gp(reg)
	x.trace("call %s", reg)
	if r >= 8 {
		x.write(0x41)
	}
	x.write(0xFF, modrm(3, 2, r))
}

// AddRegReg: add dst, src
func (x *X86Out) AddRegReg(dst, src string) {
	d, s := x.gp(dst), x.gp(src)
	x.trace("add %s, %s", dst, src)
	x.regReg(0, true, []byte{0x01}, s, d)
}

// SubRegReg: sub dst, src
func (x *X86Out) SubRegReg(dst, src string) {
	d, s := x.gp(dst), x.gp(src)
	x.trace("sub %s, %s", dst, src)
	x.regReg(0, true, []byte{0x29}, s, d)
}

// ImulRegReg: imul dst, src
func (x *X86Out) ImulRegReg(dst, src string) {
	d, s := x.gp(dst), x.gp(src)
	x.trace("imul %s, %s", dst, src)
	x.regReg(0, true, []byte{0x0F, 0xAF}, d, s)
}

// Cqo sign-extends rax into rdx:rax
func (x *X86Out) Cqo() {
	x.trace("cqo")
	x.write(0x48, 0x99)
}

// IdivReg: idiv src (rdx:rax / src -> rax, remainder rdx)
func (x *X86Out) IdivReg(src string) {
	s := x.gp(src)
	x.trace("idiv %s", src)
	x.regReg(0, true, []byte{0xF7}, 7, s)
}

// NegReg: neg reg
func (x *X86Out) NegReg(reg string) {
	r := x.gp(reg)
	x.trace("neg %s", reg)
	x.regReg(0, true, []byte{0xF7}, 3, r)
}

// SarRegOne: sar reg, 1
func (x *X86Out) SarRegOne(reg string) {
	r := x.gp(reg)
	x.trace("sar %s, 1", reg)
	x.regReg(0, true, []byte{0xD1}, 7, r)
}

// TestRegReg: test a, b
func (x *X86Out) TestRegReg(a, b string) {
	ra, rb := x.gp(a), x.gp(b)
	x.trace("test %s, %s", a, b)
	x.regReg(0, true, []byte{0x85}, rb, ra)
}

// TestRegImm32: test reg, imm32
func (x *X86Out) TestRegImm32(reg string, imm uint32) {
	r := x.gp(reg)
	x.trace("test %s, %d", reg, imm)
	x.regReg(0, true, []byte{0xF7}, 0, r)
	x.code.WriteUint32(imm)
}

// NotReg: not reg
func (x *X86Out) NotReg(reg string) {
	r := x.gp(reg)
	x.trace("not %s", reg)
	x.regReg(0, true, []byte{0xF7}, 2, r)
}

// CmpRegImm8: cmp reg, imm8 (sign-extended)
func (x *X86Out) CmpRegImm8(reg string, imm int8) {
	r := x.gp(reg)
	x.trace("cmp %s, %d", reg, imm)
	x.regReg(0, true, []byte{0x83}, 7, r)
	x.write(uint8(imm))
}

// Short jumps. Each returns the offset of its rel8 byte for PatchRel8.
const (
	jccJNO = 0x71
	jccJZ  = 0x74
	jccJBE = 0x76
	jccJS  = 0x78
	jccJP  = 0x7A
	jmpRel = 0xEB
)

func (x *X86Out) JumpShort(opcode uint8, name string) int {
	x.trace("%s <fixup>", name)
	x.write(opcode, 0)
	return x.code.Offset() - 1
}

// JumpShortTo emits a short jump to an already emitted offset
func (x *X86Out) JumpShortTo(opcode uint8, name string, target int) {
	rel := target - (x.code.Offset() + 2)
	if rel < -128 || rel > 127 {
		x.code.Fail(fmt.Errorf("%s: branch distance %d out of rel8 range", name, rel))
		return
	}
	x.trace("%s %+d", name, rel)
	x.write(opcode, uint8(int8(rel)))
}

// PatchRel8 points the jump whose rel8 byte is at `at` to the current offset
func (x *X86Out) PatchRel8(at int) {
	rel := x.code.Offset() - (at + 1)
	if rel < -128 || rel > 127 {
		x.code.Fail(fmt.Errorf("branch distance %d out of rel8 range", rel))
		return
	}
	x.code.PatchByte(at, uint8(int8(rel)))
}

// SSE2 scalar double instructions: F2 [REX] 0F op ModRM(11, dst, src)
func (x *X86Out) sseScalar(mnemonic string, op uint8, dst, src string) {
	d, s := x.xmm(dst), x.xmm(src)
	x.trace("%s %s, %s", mnemonic, dst, src)
	x.regReg(0xF2, false, []byte{0x0F, op}, d, s)
}

func (x *X86Out) AddsdXmm(dst, src string) { x.sseScalar("addsd", 0x58, dst, src) }
func (x *X86Out) MulsdXmm(dst, src string) { x.sseScalar("mulsd", 0x59, dst, src) }
func (x *X86Out) SubsdXmm(dst, src string) { x.sseScalar("subsd", 0x5C, dst, src) }
func (x *X86Out) DivsdXmm(dst, src string) { x.sseScalar("divsd", 0x5E, dst, src) }
func (x *X86Out) MovsdXmm(dst, src string) { x.sseScalar("movsd", 0x10, dst, src) }

// XorpdXmm: xorpd dst, src
func (x *X86Out) XorpdXmm(dst, src string) {
	d, s := x.xmm(dst), x.xmm(src)
	x.trace("xorpd %s, %s", dst, src)
	x.regReg(0x66, false, []byte{0x0F, 0x57}, d, s)
}

// Ucomisd: ucomisd a, b (unordered sets ZF, PF and CF)
func (x *X86Out) Ucomisd(a, b string) {
	ra, rb := x.xmm(a), x.xmm(b)
	x.trace("ucomisd %s, %s", a, b)
	x.regReg(0x66, false, []byte{0x0F, 0x2E}, ra, rb)
}

// MovqXmmReg: movq xmm, r64
func (x *X86Out) MovqXmmReg(dst, src string) {
	d, s := x.xmm(dst), x.gp(src)
	x.trace("movq %s, %s", dst, src)
	x.regReg(0x66, true, []byte{0x0F, 0x6E}, d, s)
}

// Cvtsi2sd: cvtsi2sd xmm, r64
func (x *X86Out) Cvtsi2sd(dst, src string) {
	d, s := x.xmm(dst), x.gp(src)
	x.trace("cvtsi2sd %s, %s", dst, src)
	x.regReg(0xF2, true, []byte{0x0F, 0x2A}, d, s)
}

// Cvttsd2si: cvttsd2si r64, xmm (truncating)
func (x *X86Out) Cvttsd2si(dst, src string) {
	d, s := x.gp(dst), x.xmm(src)
	x.trace("cvttsd2si %s, %s", dst, src)
	x.regReg(0xF2, true, []byte{0x0F, 0x2C}, d, s)
}
