// Completion: 100% - Utility module complete
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// cli.go - Command-line interface for jitexpr
//
// Subcommands:
// - jitexpr <expr>            (shorthand for run)
// - jitexpr run <expr>        (compile and run immediately)
// - jitexpr repl              (interactive prompt)
// - jitexpr dump [flags] <expr> (machine code as hex or CBOR, any architecture)
// - jitexpr version

// CommandContext holds the execution context for a CLI command
type CommandContext struct {
	Args   []string
	Config *Config
	Stdout io.Writer
	Stderr io.Writer
}

// RunCLI is the main entry point for the CLI.
// It determines which command to run based on arguments.
func RunCLI(ctx *CommandContext) error {
	args := ctx.Args

	// No arguments - interactive mode
	if len(args) == 0 {
		return Repl(ctx)
	}

	switch args[0] {
	case "run":
		if len(args) < 2 {
			return fmt.Errorf("usage: jitexpr run <expression>")
		}
		return cmdRun(ctx, args[1:])

	case "repl":
		return Repl(ctx)

	case "dump":
		return cmdDump(ctx, args[1:])

	case "help", "--help", "-h":
		return cmdHelp(ctx)

	case "version", "--version", "-V":
		fmt.Fprintln(ctx.Stdout, versionString)
		return nil

	default:
		return cmdRun(ctx, args)
	}
}

// cmdRun compiles the expression for the host and prints the result
func cmdRun(ctx *CommandContext, args []string) error {
	source := strings.Join(args, " ")
	v, err := Eval(source, ctx.Config)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Stdout, v)
	return nil
}

// cmdDump compiles without executing and writes hex or CBOR
func cmdDump(ctx *CommandContext, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.SetOutput(ctx.Stderr)
	archFlag := fs.String("arch", ctx.Config.Arch.GoName(), "target architecture (amd64, arm64)")
	outFlag := fs.String("out", "", "write a CBOR artifact to this file instead of a hex listing")
	formatFlag := fs.String("format", "", "output format: hex or cbor (default hex, or cbor with -out)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: jitexpr dump [-arch A] [-out FILE] [-format hex|cbor] <expression>")
	}

	cfg := *ctx.Config
	if err := cfg.SetArch(*archFlag); err != nil {
		return err
	}
	format := *formatFlag
	if format == "" {
		format = "hex"
		if *outFlag != "" {
			format = "cbor"
		}
	}

	a, err := CompileFor(cfg.Arch, strings.Join(fs.Args(), " "), &cfg)
	if err != nil {
		return err
	}

	var out []byte
	switch format {
	case "hex":
		var sb strings.Builder
		if err := a.WriteHex(&sb); err != nil {
			return err
		}
		out = []byte(sb.String())
	case "cbor":
		if out, err = a.EncodeCBOR(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown dump format %q (hex, cbor)", format)
	}

	if *outFlag == "" {
		_, err = ctx.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(*outFlag, out, 0o644); err != nil {
		return err
	}
	if VerboseMode {
		fmt.Fprintf(ctx.Stderr, "wrote %d bytes to %s\n", len(out), *outFlag)
	}
	return nil
}

// cmdHelp shows usage information
func cmdHelp(ctx *CommandContext) error {
	fmt.Fprintf(ctx.Stdout, `%s - compile expressions to native code and run them

Usage:
  jitexpr [flags] <expression>       compile and run
  jitexpr [flags] run <expression>   compile and run
  jitexpr [flags] repl               interactive prompt (also with no arguments)
  jitexpr [flags] dump [-arch A] [-out FILE] [-format hex|cbor] <expression>
  jitexpr version

Flags:
  -arch A          target architecture (amd64, arm64)
  -code-size SIZE  code page size, e.g. 64KiB
  -data-size SIZE  data page size
  -v, -verbose     trace emitted instructions
  -no-color        plain error output

Environment:
  JITEXPR_CONFIG, JITEXPR_ARCH, JITEXPR_CODE_SIZE, JITEXPR_DATA_SIZE,
  JITEXPR_VERBOSE, JITEXPR_HISTORY, NO_COLOR

Examples:
  jitexpr '(10 - 2) * 5'
  jitexpr "'foo' + 'bar'"
  jitexpr dump -arch arm64 '2 ** 10'
`, versionString)
	return nil
}

// reportError prints compiler errors with source context and everything else plainly
func (ctx *CommandContext) reportError(err error) {
	var cerr *CompilerError
	if errors.As(err, &cerr) {
		fmt.Fprint(ctx.Stderr, cerr.Format(ctx.Config.Color))
		return
	}
	fmt.Fprintf(ctx.Stderr, "Error: %v\n", err)
}
