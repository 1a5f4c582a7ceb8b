// Completion: 100% - ARM64 instructions complete
package main

import (
	"fmt"
	"os"
)

// ARM64 instruction encoding
// ARM64 uses fixed 32-bit little-endian instructions

// ARM64 condition codes
const (
	condEQ uint32 = 0x0
	condLT uint32 = 0xB
)

// ARM64Out emits ARM64 instructions into a code buffer
type ARM64Out struct {
	code *Buffer
}

// encodeInstr writes a 32-bit ARM64 instruction in little-endian format
func (a *ARM64Out) encodeInstr(instr uint32) {
	a.code.WriteUint32(instr)
}

func (a *ARM64Out) trace(format string, args ...any) {
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "%06x: ", a.code.Offset())
		fmt.Fprintf(os.Stderr, format, args...)
		fmt.Fprintln(os.Stderr)
	}
}

// gp returns the number of a general purpose register (xzr is 31)
func (a *ARM64Out) gp(name string) uint32 {
	reg, ok := arm64Registers[name]
	if !ok || reg.Float {
		a.code.Fail(fmt.Errorf("invalid ARM64 register: %s", name))
		return 0
	}
	return uint32(reg.Encoding)
}

// fp returns the number of a D register
func (a *ARM64Out) fp(name string) uint32 {
	reg, ok := arm64Registers[name]
	if !ok || !reg.Float {
		a.code.Fail(fmt.Errorf("invalid ARM64 FP register: %s", name))
		return 0
	}
	return uint32(reg.Encoding)
}

// STP x29, x30, [sp, #-16]!
func (a *ARM64Out) StpFrame() {
	a.trace("stp x29, x30, [sp, #-16]!")
	a.encodeInstr(0xA9BF7BFD)
}

// LDP x29, x30, [sp], #16
func (a *ARM64Out) LdpFrame() {
	a.trace("ldp x29, x30, [sp], #16")
	a.encodeInstr(0xA8C17BFD)
}

// MOV x29, sp (ADD x29, sp, #0)
func (a *ARM64Out) MovFPFromSP() {
	a.trace("mov x29, sp")
	a.encodeInstr(0x910003FD)
}

// MOV sp, x29 (ADD sp, x29, #0)
func (a *ARM64Out) MovSPFromFP() {
	a.trace("mov sp, x29")
	a.encodeInstr(0x910003BF)
}

// RET (x30)
func (a *ARM64Out) Return() {
	a.trace("ret")
	a.encodeInstr(0xD65F03C0)
}

// STR Xt, [sp, #-16]!
func (a *ARM64Out) StrPreSP(reg string) {
	rt := a.gp(reg)
	a.trace("str %s, [sp, #-16]!", reg)
	a.encodeInstr(0xF81F0FE0 | rt)
}

// LDR Xt, [sp], #16
func (a *ARM64Out) LdrPostSP(reg string) {
	rt := a.gp(reg)
	a.trace("ldr %s, [sp], #16", reg)
	a.encodeInstr(0xF84107E0 | rt)
}

// STR Dt, [sp, #-16]!
func (a *ARM64Out) StrDPreSP(freg string) {
	rt := a.fp(freg)
	a.trace("str %s, [sp, #-16]!", freg)
	a.encodeInstr(0xFC1F0FE0 | rt)
}

// LDR Dt, [sp], #16
func (a *ARM64Out) LdrDPostSP(freg string) {
	rt := a.fp(freg)
	a.trace("ldr %s, [sp], #16", freg)
	a.encodeInstr(0xFC4107E0 | rt)
}

// LDR Dt, [Xn]
func (a *ARM64Out) LdrDReg(freg, base string) {
	rt, rn := a.fp(freg), a.gp(base)
	a.trace("ldr %s, [%s]", freg, base)
	a.encodeInstr(0xFD400000 | rn<<5 | rt)
}

// MOVZ Xd, #imm16, LSL #(hw*16)
func (a *ARM64Out) Movz(dest string, imm16 uint16, hw uint32) {
	rd := a.gp(dest)
	a.trace("movz %s, #0x%x, lsl #%d", dest, imm16, hw*16)
	a.encodeInstr(0xD2800000 | hw<<21 | uint32(imm16)<<5 | rd)
}

// MOVK Xd, #imm16, LSL #(hw*16)
func (a *ARM64Out) Movk(dest string, imm16 uint16, hw uint32) {
	rd := a.gp(dest)
	a.trace("movk %s, #0x%x, lsl #%d", dest, imm16, hw*16)
	a.encodeInstr(0xF2800000 | hw<<21 | uint32(imm16)<<5 | rd)
}

// MovImm64 materializes any 64-bit value: MOVZ for the low chunk and a
// MOVK for every nonzero upper chunk
func (a *ARM64Out) MovImm64(dest string, imm uint64) {
	a.Movz(dest, uint16(imm), 0)
	for hw := uint32(1); hw < 4; hw++ {
		if chunk := uint16(imm >> (hw * 16)); chunk != 0 {
			a.Movk(dest, chunk, hw)
		}
	}
}

// MOV Xd, Xm (ORR Xd, XZR, Xm)
func (a *ARM64Out) MovReg64(dest, src string) {
	rd, rm := a.gp(dest), a.gp(src)
	a.trace("mov %s, %s", dest, src)
	a.encodeInstr(0xAA0003E0 | rm<<16 | rd)
}

// FMOV Dd, Dn
func (a *ARM64Out) FmovReg(dest, src string) {
	rd, rn := a.fp(dest), a.fp(src)
	a.trace("fmov %s, %s", dest, src)
	a.encodeInstr(0x1E604000 | rn<<5 | rd)
}

// BLR Xn
func (a *ARM64Out) Blr(reg string) {
	rn := a.gp(reg)
	a.trace("blr %s", reg)
	a.encodeInstr(0xD63F0000 | rn<<5)
}

// Three-register data processing: Xd = Xn op Xm
func (a *ARM64Out) threeReg(mnemonic string, base uint32, dest, src1, src2 string) {
	rd, rn, rm := a.gp(dest), a.gp(src1), a.gp(src2)
	a.trace("%s %s, %s, %s", mnemonic, dest, src1, src2)
	a.encodeInstr(base | rm<<16 | rn<<5 | rd)
}

func (a *ARM64Out) AddReg64(dest, src1, src2 string) { a.threeReg("add", 0x8B000000, dest, src1, src2) }
func (a *ARM64Out) SubReg64(dest, src1, src2 string) { a.threeReg("sub", 0xCB000000, dest, src1, src2) }
func (a *ARM64Out) MulReg64(dest, src1, src2 string) { a.threeReg("mul", 0x9B007C00, dest, src1, src2) }
func (a *ARM64Out) SDiv(dest, src1, src2 string)     { a.threeReg("sdiv", 0x9AC00C00, dest, src1, src2) }

// MSUB Xd, Xn, Xm, Xa: Xd = Xa - Xn*Xm
func (a *ARM64Out) Msub(dest, src1, src2, addend string) {
	rd, rn, rm, ra := a.gp(dest), a.gp(src1), a.gp(src2), a.gp(addend)
	a.trace("msub %s, %s, %s, %s", dest, src1, src2, addend)
	a.encodeInstr(0x9B008000 | rm<<16 | ra<<10 | rn<<5 | rd)
}

// NEG Xd, Xm (SUB Xd, XZR, Xm)
func (a *ARM64Out) Neg64(dest, src string) {
	rd, rm := a.gp(dest), a.gp(src)
	a.trace("neg %s, %s", dest, src)
	a.encodeInstr(0xCB0003E0 | rm<<16 | rd)
}

// ASR Xd, Xn, #1 (SBFM Xd, Xn, #1, #63)
func (a *ARM64Out) AsrOne(dest, src string) {
	rd, rn := a.gp(dest), a.gp(src)
	a.trace("asr %s, %s, #1", dest, src)
	a.encodeInstr(0x9341FC00 | rn<<5 | rd)
}

// CMP Xn, #0 (SUBS XZR, Xn, #0)
func (a *ARM64Out) CmpZero(reg string) {
	rn := a.gp(reg)
	a.trace("cmp %s, #0", reg)
	a.encodeInstr(0xF100001F | rn<<5)
}

// CSEL Xd, Xn, Xm, cond
func (a *ARM64Out) Csel(dest, src1, src2 string, cond uint32) {
	rd, rn, rm := a.gp(dest), a.gp(src1), a.gp(src2)
	a.trace("csel %s, %s, %s, %d", dest, src1, src2, cond)
	a.encodeInstr(0x9A800000 | rm<<16 | cond<<12 | rn<<5 | rd)
}

// SCVTF Dd, Xn
func (a *ARM64Out) Scvtf(dest, src string) {
	rd, rn := a.fp(dest), a.gp(src)
	a.trace("scvtf %s, %s", dest, src)
	a.encodeInstr(0x9E620000 | rn<<5 | rd)
}

// FCVTZS Xd, Dn
func (a *ARM64Out) Fcvtzs(dest, src string) {
	rd, rn := a.gp(dest), a.fp(src)
	a.trace("fcvtzs %s, %s", dest, src)
	a.encodeInstr(0x9E780000 | rn<<5 | rd)
}

// Floating-point data processing: Dd = Dn op Dm
func (a *ARM64Out) fpThreeReg(mnemonic string, base uint32, dest, src1, src2 string) {
	rd, rn, rm := a.fp(dest), a.fp(src1), a.fp(src2)
	a.trace("%s %s, %s, %s", mnemonic, dest, src1, src2)
	a.encodeInstr(base | rm<<16 | rn<<5 | rd)
}

func (a *ARM64Out) Fadd(dest, src1, src2 string) { a.fpThreeReg("fadd", 0x1E602800, dest, src1, src2) }
func (a *ARM64Out) Fsub(dest, src1, src2 string) { a.fpThreeReg("fsub", 0x1E603800, dest, src1, src2) }
func (a *ARM64Out) Fmul(dest, src1, src2 string) { a.fpThreeReg("fmul", 0x1E600800, dest, src1, src2) }
func (a *ARM64Out) Fdiv(dest, src1, src2 string) { a.fpThreeReg("fdiv", 0x1E601800, dest, src1, src2) }

// FNEG Dd, Dn
func (a *ARM64Out) Fneg(dest, src string) {
	rd, rn := a.fp(dest), a.fp(src)
	a.trace("fneg %s, %s", dest, src)
	a.encodeInstr(0x1E614000 | rn<<5 | rd)
}

// Branches. The forward forms emit the instruction with a zero offset and
// return its position for PatchBranch.

// BTo emits B to an already emitted offset
func (a *ARM64Out) BTo(target int) {
	delta := int32(target-a.code.Offset()) / 4
	a.trace("b %+d", delta)
	a.encodeInstr(0x14000000 | uint32(delta)&0x03FFFFFF)
}

// B.cond label
func (a *ARM64Out) BCond(cond uint32) int {
	a.trace("b.%d <fixup>", cond)
	a.encodeInstr(0x54000000 | cond)
	return a.code.Offset() - 4
}

// CBZ Xt, label
func (a *ARM64Out) Cbz(reg string) int {
	rt := a.gp(reg)
	a.trace("cbz %s, <fixup>", reg)
	a.encodeInstr(0xB4000000 | rt)
	return a.code.Offset() - 4
}

// TBZ Xt, #0, label
func (a *ARM64Out) TbzBit0(reg string) int {
	rt := a.gp(reg)
	a.trace("tbz %s, #0, <fixup>", reg)
	a.encodeInstr(0x36000000 | rt)
	return a.code.Offset() - 4
}

// PatchBranch points the branch at `at` to the current offset, filling the
// immediate field that matches its encoding
func (a *ARM64Out) PatchBranch(at int) {
	instr := a.code.ReadUint32(at)
	delta := int32(a.code.Offset()-at) / 4
	switch {
	case instr&0xFC000000 == 0x14000000: // B: imm26
		instr |= uint32(delta) & 0x03FFFFFF
	case instr&0xFF000010 == 0x54000000, instr&0x7F000000 == 0x34000000: // B.cond, CBZ: imm19
		instr |= (uint32(delta) & 0x7FFFF) << 5
	case instr&0x7F000000 == 0x36000000: // TBZ: imm14
		instr |= (uint32(delta) & 0x3FFF) << 5
	default:
		a.code.Fail(fmt.Errorf("patch at %d: 0x%08x is not a branch", at, instr))
		return
	}
	a.code.PatchUint32(at, instr)
}
