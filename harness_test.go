package main

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/xyproto/jitexpr/internal/engine"
	"github.com/xyproto/jitexpr/internal/execmem"
)

// requireHost skips tests that execute generated code where that is impossible
func requireHost(t *testing.T) {
	t.Helper()
	if !cgoEnabled {
		t.Skip("executing generated code requires cgo")
	}
	host := engine.Host()
	if !host.CanExecute(host.Arch) {
		t.Skipf("no backend for %s", host.FullString())
	}
}

func mustEval(t *testing.T, source string) Value {
	t.Helper()
	v, err := Eval(source, DefaultConfig())
	if err != nil {
		t.Fatalf("%q: %v", source, err)
	}
	return v
}

func TestEvalIntegers(t *testing.T) {
	requireHost(t)

	tests := []struct {
		source string
		want   int64
	}{
		{"0", 0},
		{"42", 42},
		{"1 + 2", 3},
		{"(10 - 2) * 5", 40},
		{"10 - 2 * 5", 0},
		{"2 ** 10", 1024},
		{"2 ** 0", 1},
		{"2 ** -1", 0},
		{"(0 - 3) ** 3", -27},
		{"7 / 2", 3},
		{"-7 / 2", -3},
		{"7 % 3", 1},
		{"-7 % 3", -1},
		{"1 / 0", 0},
		{"1 % 0", 0},
		{"9223372036854775807 + 1", math.MinInt64},
		{"(0 - 9223372036854775807 - 1) / -1", math.MinInt64},
		{"(0 - 9223372036854775807 - 1) % -1", 0},
		{"-(3)", -3},
		{"--3", 3},
		{"+2.9", 2},
		{"+(0 - 2.9)", -2},
		{"0xFF + 0b1", 256},
		{"1 + 2 * 3 ** 2 - 8 / 4 % 3", 35},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			v := mustEval(t, tt.source)
			if v.Type != TypeInt {
				t.Fatalf("type %s, want int", v.Type)
			}
			if v.Int != tt.want {
				t.Errorf("got %d, want %d", v.Int, tt.want)
			}
		})
	}
}

func TestEvalIntegerPairs(t *testing.T) {
	requireHost(t)

	values := []int64{0, 1, -1, 7, -13, 255, 1 << 31, -(1 << 33), 0x1234_5678_9ABC, math.MaxInt64, -math.MaxInt64}
	ops := []struct {
		sym string
		fn  func(a, b int64) int64
	}{
		{"+", func(a, b int64) int64 { return a + b }},
		{"-", func(a, b int64) int64 { return a - b }},
		{"*", func(a, b int64) int64 { return a * b }},
		{"/", func(a, b int64) int64 { return a / b }},
		{"%", func(a, b int64) int64 { return a % b }},
	}

	for _, op := range ops {
		for _, a := range values {
			for _, b := range values {
				if b == 0 && (op.sym == "/" || op.sym == "%") {
					continue
				}
				source := fmt.Sprintf("(%d) %s (%d)", a, op.sym, b)
				if v := mustEval(t, source); v.Int != op.fn(a, b) {
					t.Errorf("%s = %d, want %d", source, v.Int, op.fn(a, b))
				}
			}
		}
	}
}

func TestEvalFloats(t *testing.T) {
	requireHost(t)

	tests := []struct {
		source string
		want   float64
	}{
		{"1.5", 1.5},
		{"1 + 2.5", 3.5},
		{"2.5 + 1", 3.5},
		{"10 / 4.0", 2.5},
		{"-2.5 * 2", -5},
		{"1e3 - 1", 999},
		{"7.5 % 2", 1.5},
		{"2.0 ** 0.5", math.Sqrt2},
		{"2 ** 3.0", 8},
		{"1 - 0.25 * (2 + 2.0)", 0},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			v := mustEval(t, tt.source)
			if v.Type != TypeFloat {
				t.Fatalf("type %s, want float", v.Type)
			}
			if math.Abs(v.Float-tt.want) > 1e-12 {
				t.Errorf("got %v, want %v", v.Float, tt.want)
			}
		})
	}

	if v := mustEval(t, "1.0 / 0"); !math.IsInf(v.Float, 1) {
		t.Errorf("1.0 / 0 = %v, want +Inf", v.Float)
	}
	if v := mustEval(t, "-0.0"); !math.Signbit(v.Float) {
		t.Errorf("-0.0 lost its sign: %v", v.Float)
	}
}

func TestEvalFloatToIntSaturates(t *testing.T) {
	requireHost(t)

	tests := []struct {
		source string
		want   int64
	}{
		{"+1e300", math.MaxInt64},
		{"+(-1e300)", math.MinInt64},
		{"+(0.0 / 0.0)", 0},
		{"+(1.0 / 0)", math.MaxInt64},
		{"+(-1.0 / 0)", math.MinInt64},
		{"+(0 - 9223372036854775807.0 - 1025.0)", math.MinInt64},
		{"+(-1.5)", -1},
	}
	for _, tt := range tests {
		if v := mustEval(t, tt.source); v.Type != TypeInt || v.Int != tt.want {
			t.Errorf("%s = %s %d, want %d", tt.source, v.Type, v.Int, tt.want)
		}
	}
}

func TestEvalOtherTypes(t *testing.T) {
	requireHost(t)

	tests := []struct {
		source string
		want   Value
	}{
		{"null", Value{Type: TypeNull}},
		{"true", Value{Type: TypeBool, Int: 1}},
		{"false", Value{Type: TypeBool}},
		{"'foo' + 'bar'", Value{Type: TypeString, Str: "foobar"}},
		{"'a' + ('b' + 'c') + ''", Value{Type: TypeString, Str: "abc"}},
		{`"tab\there"`, Value{Type: TypeString, Str: "tab\there"}},
		{"''", Value{Type: TypeString}},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			if v := mustEval(t, tt.source); v != tt.want {
				t.Errorf("got %#v, want %#v", v, tt.want)
			}
		})
	}
}

// callConcat runs generated code that passes a and b straight to the
// concatenation routine. A zero address is passed as a NULL pointer.
func callConcat(t *testing.T, a, b uint64) string {
	t.Helper()
	code, err := execmem.Allocate(256)
	if err != nil {
		t.Fatal(err)
	}
	defer code.Release()
	buf, err := NewBuffer("code", code, 0)
	if err != nil {
		t.Fatal(err)
	}
	backend, err := NewBackend(engine.Host().Arch, buf)
	if err != nil {
		t.Fatal(err)
	}
	regs := backend.Registers()
	backend.Prologue()
	backend.LoadImmediate(regs.IntArgs[0], a)
	backend.LoadImmediate(regs.IntArgs[1], b)
	backend.CallAbsolute(runtimeSymbols().Concat)
	backend.Epilogue()
	if err := buf.Err(); err != nil {
		t.Fatal(err)
	}
	buf.Commit()
	if err := code.MakeExecutable(); err != nil {
		t.Fatal(err)
	}
	flushInstructionCache(code.Addr(), buf.Offset())
	return callString(code.Addr())
}

func TestConcatNullOperands(t *testing.T) {
	requireHost(t)

	data, err := execmem.Allocate(16)
	if err != nil {
		t.Fatal(err)
	}
	defer data.Release()
	mem, err := data.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	copy(mem, "ab\x00")
	ab := uint64(data.Addr())

	tests := []struct {
		name string
		a, b uint64
		want string
	}{
		{"both", ab, ab, "abab"},
		{"null left", 0, ab, "ab"},
		{"null right", ab, 0, "ab"},
		{"null both", 0, 0, ""},
	}
	for _, tt := range tests {
		if got := callConcat(t, tt.a, tt.b); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFunctionLifecycle(t *testing.T) {
	requireHost(t)

	f, err := Compile("6 * 7")
	if err != nil {
		t.Fatal(err)
	}
	if f.ResultType() != TypeInt || f.Source() != "6 * 7" || f.Arch() != engine.Host().Arch {
		t.Errorf("metadata: %s %q %s", f.ResultType(), f.Source(), f.Arch())
	}
	code, err := f.Code()
	if err != nil || len(code) == 0 {
		t.Fatalf("Code() = %d bytes, %v", len(code), err)
	}

	// Repeated calls return the same value
	for i := 0; i < 3; i++ {
		v, err := f.Call()
		if err != nil || v.Int != 42 {
			t.Fatalf("Call() = %v, %v", v, err)
		}
	}

	if err := f.Release(); err != nil {
		t.Fatal(err)
	}
	if !f.Released() {
		t.Error("Released() = false after Release")
	}
	if _, err := f.Call(); !errors.Is(err, ErrReleased) {
		t.Errorf("Call after Release: err = %v, want ErrReleased", err)
	}
	if _, err := f.Data(); !errors.Is(err, ErrReleased) {
		t.Errorf("Data after Release: err = %v, want ErrReleased", err)
	}
	if err := f.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
}

func TestFunctionConcurrentCalls(t *testing.T) {
	requireHost(t)

	f, err := Compile("(1.5 + 2) * 2")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Release()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v, err := f.Call()
				if err != nil {
					errs <- err
					return
				}
				if v.Float != 7 {
					errs <- errors.New(v.String())
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestCompileFailureReturnsNoFunction(t *testing.T) {
	requireHost(t)

	for _, source := range []string{"1 +", "'a' * 2", "nope"} {
		f, err := Compile(source)
		if err == nil || f != nil {
			t.Errorf("%q: got %v, %v", source, f, err)
		}
	}

	cfg := DefaultConfig()
	cfg.CodeSize = 64
	if _, err := CompileWith("1 + 2 + 3 + 4 + 5", cfg); !errors.Is(err, ErrBufferOverflow) {
		t.Errorf("err = %v, want ErrBufferOverflow", err)
	}
}

func TestCompileForeignArch(t *testing.T) {
	host := engine.Host()
	cfg := DefaultConfig()
	cfg.Arch = engine.ArchARM64
	if host.Arch == engine.ArchARM64 {
		cfg.Arch = engine.ArchX86_64
	}
	if _, err := CompileWith("1", cfg); !errors.Is(err, ErrNotExecutable) {
		t.Errorf("err = %v, want ErrNotExecutable", err)
	}
}
