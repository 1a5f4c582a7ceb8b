//go:build cgo && unix

package main

/*
#cgo LDFLAGS: -lm
#include <math.h>
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

// Trampolines: cast the code address to the function type selected by the
// result type and call it. Taking uintptr_t avoids unsafe.Pointer on the Go side.
static int64_t jitexpr_call_int(uintptr_t fn) {
	return ((int64_t (*)(void))fn)();
}

static double jitexpr_call_float(uintptr_t fn) {
	return ((double (*)(void))fn)();
}

static const char *jitexpr_call_str(uintptr_t fn) {
	return ((const char *(*)(void))fn)();
}

// String concatenation called from generated code. The result is malloc'ed
// and never freed. NULL operands, left by an earlier failed malloc, read as "".
static char *jitexpr_concat(const char *a, const char *b) {
	if (a == NULL) {
		a = "";
	}
	if (b == NULL) {
		b = "";
	}
	size_t la = strlen(a);
	size_t lb = strlen(b);
	char *out = malloc(la + lb + 1);
	if (out == NULL) {
		return NULL;
	}
	memcpy(out, a, la);
	memcpy(out + la, b, lb + 1);
	return out;
}

static uintptr_t jitexpr_pow_addr(void) { return (uintptr_t)&pow; }
static uintptr_t jitexpr_fmod_addr(void) { return (uintptr_t)&fmod; }
static uintptr_t jitexpr_concat_addr(void) { return (uintptr_t)&jitexpr_concat; }

static void jitexpr_clear_cache(uintptr_t start, size_t n) {
	__builtin___clear_cache((char *)start, (char *)start + n);
}
*/
import "C"

const cgoEnabled = true

// runtimeSymbols resolves the routines generated code may call
func runtimeSymbols() RuntimeSymbols {
	return RuntimeSymbols{
		Pow:    uint64(C.jitexpr_pow_addr()),
		Fmod:   uint64(C.jitexpr_fmod_addr()),
		Concat: uint64(C.jitexpr_concat_addr()),
	}
}

func callInt(addr uintptr) int64 {
	return int64(C.jitexpr_call_int(C.uintptr_t(addr)))
}

func callFloat(addr uintptr) float64 {
	return float64(C.jitexpr_call_float(C.uintptr_t(addr)))
}

func callString(addr uintptr) string {
	p := C.jitexpr_call_str(C.uintptr_t(addr))
	if p == nil {
		return ""
	}
	return C.GoString(p)
}

// flushInstructionCache makes freshly written code visible to instruction
// fetch. It is a no-op on x86_64.
func flushInstructionCache(addr uintptr, n int) {
	if n > 0 {
		C.jitexpr_clear_cache(C.uintptr_t(addr), C.size_t(n))
	}
}
