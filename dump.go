// Completion: 100% - Dump complete
package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	units "github.com/docker/go-units"
	"github.com/fxamacker/cbor/v2"
	"github.com/xyproto/jitexpr/internal/engine"
)

// Nominal load addresses for code that is dumped instead of executed
const (
	dumpCodeBase = 0x400000
	dumpPageSize = 0x1000
)

// placeholderSymbols stand in for runtime routines when the dumped code
// targets another architecture or cgo is unavailable
var placeholderSymbols = RuntimeSymbols{
	Pow:    0xFFFF_0000,
	Fmod:   0xFFFF_0010,
	Concat: 0xFFFF_0020,
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("jitexpr: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Artifact is compiled code that was not made executable: what a dump writes
type Artifact struct {
	Arch       string            `cbor:"arch"`
	ResultType string            `cbor:"result_type"`
	Source     string            `cbor:"source"`
	Code       []byte            `cbor:"code"`
	Data       []byte            `cbor:"data"`
	CodeBase   uint64            `cbor:"code_base"`
	DataBase   uint64            `cbor:"data_base"`
	Symbols    map[string]uint64 `cbor:"symbols"`
}

// CompileFor compiles source for any supported architecture without
// executing it. Addresses are laid out from a nominal base.
func CompileFor(arch engine.Arch, source string, cfg *Config) (*Artifact, error) {
	codeMem := make([]byte, cfg.CodeSize)
	dataBase := uint64(dumpCodeBase + (cfg.CodeSize+dumpPageSize-1)&^(dumpPageSize-1))
	dataMem := make([]byte, cfg.DataSize)

	code := NewBufferAt("code", codeMem, dumpCodeBase)
	data := NewBufferAt("data", dataMem, dataBase)
	backend, err := NewBackend(arch, code)
	if err != nil {
		return nil, err
	}

	symbols := placeholderSymbols
	if cgoEnabled && engine.Host().CanExecute(arch) {
		symbols = runtimeSymbols()
	}

	result, err := CompileTokens(Tokenize(source), backend, data, symbols)
	if err != nil {
		var cerr *CompilerError
		if errors.As(err, &cerr) {
			cerr.withSource(source)
		}
		return nil, err
	}
	code.Commit()
	data.Commit()

	return &Artifact{
		Arch:       arch.String(),
		ResultType: result.String(),
		Source:     source,
		Code:       code.Bytes(),
		Data:       data.Bytes(),
		CodeBase:   code.Base(),
		DataBase:   data.Base(),
		Symbols: map[string]uint64{
			"pow":            symbols.Pow,
			"fmod":           symbols.Fmod,
			"jitexpr_concat": symbols.Concat,
		},
	}, nil
}

// EncodeCBOR encodes the artifact in canonical CBOR, so equal artifacts
// produce equal bytes
func (a *Artifact) EncodeCBOR() ([]byte, error) {
	return cborEncMode.Marshal(a)
}

// DecodeArtifact reads an artifact written by EncodeCBOR
func DecodeArtifact(b []byte) (*Artifact, error) {
	var a Artifact
	if err := cbor.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("jitexpr: unmarshal artifact: %w", err)
	}
	return &a, nil
}

// WriteHex writes a hex listing of code and data
func (a *Artifact) WriteHex(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; %s\n", a.Source)
	fmt.Fprintf(&sb, "; arch %s, result %s, code %s, data %s\n", a.Arch, a.ResultType,
		units.BytesSize(float64(len(a.Code))), units.BytesSize(float64(len(a.Data))))
	sb.WriteString("\ncode:\n")
	hexLines(&sb, a.CodeBase, a.Code)
	if len(a.Data) > 0 {
		sb.WriteString("\ndata:\n")
		hexLines(&sb, a.DataBase, a.Data)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func hexLines(sb *strings.Builder, base uint64, b []byte) {
	for off := 0; off < len(b); off += 16 {
		end := min(off+16, len(b))
		fmt.Fprintf(sb, "%016x ", base+uint64(off))
		for _, c := range b[off:end] {
			fmt.Fprintf(sb, " %02x", c)
		}
		sb.WriteString("\n")
	}
}
