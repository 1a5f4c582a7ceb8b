// Completion: 100% - Invocation harness complete
package main

import (
	"errors"
	"fmt"
	"sync"

	units "github.com/docker/go-units"
	"github.com/tliron/commonlog"
	"github.com/xyproto/jitexpr/internal/engine"
	"github.com/xyproto/jitexpr/internal/execmem"
)

var logger = commonlog.GetLogger("jitexpr")

// Function is a compiled expression: an executable code page, a read-only
// data page with the constants it references, and the static result type.
// Call may be used from any goroutine; it never overlaps Release.
type Function struct {
	mu      sync.RWMutex
	code    *execmem.Page
	data    *execmem.Page
	codeLen int
	dataLen int
	result  ValueType
	arch    engine.Arch
	source  string
}

// Compile compiles source for the host with the default configuration
func Compile(source string) (*Function, error) {
	return CompileWith(source, DefaultConfig())
}

// CompileWith compiles source for the host using the page sizes in cfg.
// On error no Function is returned and every page allocated for the
// attempt has been released.
func CompileWith(source string, cfg *Config) (*Function, error) {
	host := engine.Host()
	if !host.CanExecute(cfg.Arch) {
		return nil, fmt.Errorf("%w: %s code on %s", ErrNotExecutable, cfg.Arch, host.FullString())
	}

	code, err := execmem.Allocate(cfg.CodeSize)
	if err != nil {
		return nil, err
	}
	data, err := execmem.Allocate(cfg.DataSize)
	if err != nil {
		code.Release()
		return nil, err
	}
	logger.Debugf("allocated code page %#x (%s), data page %#x (%s)",
		code.Addr(), units.BytesSize(float64(code.Size())), data.Addr(), units.BytesSize(float64(data.Size())))

	f, err := compileInto(source, cfg, code, data)
	if err != nil {
		code.Release()
		data.Release()
		logger.Debugf("compile failed, pages released: %s", err)
		return nil, err
	}
	return f, nil
}

func compileInto(source string, cfg *Config, code, data *execmem.Page) (*Function, error) {
	codeBuf, err := NewBuffer("code", code, cfg.CodeSize)
	if err != nil {
		return nil, err
	}
	dataBuf, err := NewBuffer("data", data, cfg.DataSize)
	if err != nil {
		return nil, err
	}
	backend, err := NewBackend(cfg.Arch, codeBuf)
	if err != nil {
		return nil, err
	}

	result, err := CompileTokens(Tokenize(source), backend, dataBuf, runtimeSymbols())
	if err != nil {
		var cerr *CompilerError
		if errors.As(err, &cerr) {
			cerr.withSource(source)
		}
		return nil, err
	}
	codeBuf.Commit()
	dataBuf.Commit()

	// W^X: neither page is ever writable and executable at the same time
	if err := data.MakeReadOnly(); err != nil {
		return nil, err
	}
	if err := code.MakeExecutable(); err != nil {
		return nil, err
	}
	flushInstructionCache(code.Addr(), codeBuf.Offset())

	logger.Debugf("compiled %q: %d code bytes, %d data bytes, result %s", source, codeBuf.Offset(), dataBuf.Offset(), result)
	return &Function{
		code:    code,
		data:    data,
		codeLen: codeBuf.Offset(),
		dataLen: dataBuf.Offset(),
		result:  result,
		arch:    cfg.Arch,
		source:  source,
	}, nil
}

// Call invokes the compiled code through the trampoline that matches its
// result type. Strings are copied into Go memory.
func (f *Function) Call() (Value, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.code == nil || f.code.State() != execmem.Executable {
		return Value{}, ErrReleased
	}
	if !cgoEnabled {
		return Value{}, ErrNoCgo
	}
	addr := f.code.Addr()
	switch f.result {
	case TypeFloat:
		return Value{Type: TypeFloat, Float: callFloat(addr)}, nil
	case TypeString:
		return Value{Type: TypeString, Str: callString(addr)}, nil
	default:
		return Value{Type: f.result, Int: callInt(addr)}, nil
	}
}

// Release unmaps both pages. It waits for running calls; calling it
// again is a no-op.
func (f *Function) Release() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.code == nil {
		return nil
	}
	err := errors.Join(f.code.Release(), f.data.Release())
	logger.Debugf("released %q", f.source)
	f.code, f.data = nil, nil
	return err
}

// Released reports whether Release has been called
func (f *Function) Released() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.code == nil
}

// ResultType returns the static type of the value Call produces
func (f *Function) ResultType() ValueType {
	return f.result
}

// Arch returns the architecture the code was generated for
func (f *Function) Arch() engine.Arch {
	return f.arch
}

// Source returns the expression the function was compiled from
func (f *Function) Source() string {
	return f.source
}

// Code returns a copy of the emitted machine code
func (f *Function) Code() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.code == nil {
		return nil, ErrReleased
	}
	return f.code.Snapshot(f.codeLen)
}

// Data returns a copy of the constants the code references
func (f *Function) Data() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.data == nil {
		return nil, ErrReleased
	}
	return f.data.Snapshot(f.dataLen)
}

// Eval compiles, calls and releases in one go
func Eval(source string, cfg *Config) (Value, error) {
	f, err := CompileWith(source, cfg)
	if err != nil {
		return Value{}, err
	}
	defer f.Release()
	return f.Call()
}
