// Completion: 100% - Utility module complete
package main

import (
	"fmt"

	"github.com/xyproto/jitexpr/internal/engine"
)

// RegisterSet names the physical registers a backend uses for each logical role
type RegisterSet struct {
	Acc  string // integer accumulator (left operand, result)
	Arg  string // integer operand (right operand)
	FAcc string // float accumulator, also the first float argument
	FArg string // float operand, also the second float argument

	IntArgs [2]string // first two integer argument registers
	Result  string    // integer / pointer return register
	FResult string    // float return register
	Scratch string    // call target / address scratch, never an argument register
}

// Backend is the interface that both architecture encoders implement.
// Methods do not return errors: the first failure is recorded in the code
// buffer and reported once compilation ends.
type Backend interface {
	Arch() engine.Arch
	Registers() RegisterSet
	Code() *Buffer

	Prologue()
	Epilogue()

	LoadImmediate(reg string, value uint64)
	LoadFloat(freg string, addr uint64)

	// Stack slots are 16 bytes to keep sp aligned for runtime calls
	Push(reg string)
	Pop(reg string)
	PushFloat(freg string)
	PopFloat(freg string)

	MoveReg(dst, src string)
	MoveFloat(dst, src string)

	CallAbsolute(addr uint64)

	IntToFloat(freg, reg string)
	FloatToInt(reg, freg string) // truncates toward zero, saturating; NaN becomes 0

	// IntBinary computes dst = dst op src. src may be clobbered.
	IntBinary(op Op, dst, src string)
	// FloatBinary computes dst = dst op src for + - * /
	FloatBinary(op Op, dst, src string)
	IntNegate(reg string)
	FloatNegate(freg string)
}

// NewBackend creates a backend for the given architecture that emits into code
func NewBackend(arch engine.Arch, code *Buffer) (Backend, error) {
	switch arch {
	case engine.ArchX86_64:
		return NewX86_64Backend(code), nil
	case engine.ArchARM64:
		return NewARM64Backend(code), nil
	default:
		return nil, fmt.Errorf("no backend for architecture %q", arch)
	}
}
