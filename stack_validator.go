// stack_validator.go - Track the virtual operand stack to detect imbalance
package main

import (
	"fmt"
	"os"
	"strings"
)

// StackSlotSize is the number of bytes one pushed value occupies on the
// native stack. Only 8 bytes are meaningful; the rest keeps sp 16-byte aligned.
const StackSlotSize = 16

// VirtualStack mirrors every push/pop the compiler emits, together with the
// static type of each slot, so that imbalances are caught at compile time
type VirtualStack struct {
	slots    []ValueType
	maxDepth int
	history  [stackHistorySize]stackOp // ring of the latest operations
	count    int                       // total operations recorded
}

// stackHistorySize bounds how many operations an imbalance report shows
const stackHistorySize = 20

type stackOp struct {
	pop   bool
	typ   ValueType
	reg   string
	depth int
}

func (op stackOp) String() string {
	verb := "push"
	if op.pop {
		verb = "pop"
	}
	return fmt.Sprintf("%s %s %s (depth=%d)", verb, op.typ, op.reg, op.depth)
}

func NewVirtualStack() *VirtualStack {
	return &VirtualStack{}
}

func (vs *VirtualStack) record(op stackOp) {
	vs.history[vs.count%stackHistorySize] = op
	vs.count++
}

// Depth returns the number of slots currently pushed
func (vs *VirtualStack) Depth() int {
	return len(vs.slots)
}

// MaxDepth returns the deepest the stack has been
func (vs *VirtualStack) MaxDepth() int {
	return vs.maxDepth
}

// Top returns the type of the topmost slot
func (vs *VirtualStack) Top() (ValueType, bool) {
	if len(vs.slots) == 0 {
		return TypeNull, false
	}
	return vs.slots[len(vs.slots)-1], true
}

func (vs *VirtualStack) Push(t ValueType, reg string) {
	vs.slots = append(vs.slots, t)
	vs.maxDepth = max(vs.maxDepth, len(vs.slots))
	vs.record(stackOp{typ: t, reg: reg, depth: len(vs.slots)})
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "STACK: push %s (%s), depth now %d\n", reg, t, len(vs.slots))
	}
}

// Pop removes the topmost slot and returns its type
func (vs *VirtualStack) Pop(reg string) (ValueType, error) {
	if len(vs.slots) == 0 {
		return TypeNull, fmt.Errorf("%w: pop %s with empty stack\nrecent operations:\n%s", ErrStackBalance, reg, vs.recent(10))
	}
	t := vs.slots[len(vs.slots)-1]
	vs.slots = vs.slots[:len(vs.slots)-1]
	vs.record(stackOp{pop: true, typ: t, reg: reg, depth: len(vs.slots)})
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "STACK: pop %s (%s), depth now %d\n", reg, t, len(vs.slots))
	}
	return t, nil
}

// Validate checks that the stack is at the expected depth
func (vs *VirtualStack) Validate(want int, label string) error {
	if len(vs.slots) != want {
		return fmt.Errorf("%w at %s: expected depth %d, got %d\nrecent operations:\n%s",
			ErrStackBalance, label, want, len(vs.slots), vs.recent(20))
	}
	return nil
}

// recent formats the last n operations, oldest first
func (vs *VirtualStack) recent(n int) string {
	n = min(n, vs.count, stackHistorySize)
	var sb strings.Builder
	for i := vs.count - n; i < vs.count; i++ {
		sb.WriteString("  ")
		sb.WriteString(vs.history[i%stackHistorySize].String())
		sb.WriteString("\n")
	}
	return sb.String()
}
