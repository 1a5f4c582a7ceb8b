//go:build !cgo || !unix

package main

// Without cgo there is no way to call into generated code. Compilation and
// dumps still work; Call reports ErrNoCgo.

const cgoEnabled = false

func runtimeSymbols() RuntimeSymbols {
	return RuntimeSymbols{}
}

func callInt(addr uintptr) int64 {
	panic("jitexpr: callInt without cgo")
}

func callFloat(addr uintptr) float64 {
	panic("jitexpr: callFloat without cgo")
}

func callString(addr uintptr) string {
	panic("jitexpr: callString without cgo")
}

func flushInstructionCache(addr uintptr, n int) {}
