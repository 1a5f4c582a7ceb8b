// Completion: 100% - CLI entry point complete
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

const versionString = "jitexpr 1.0.0"

// VerboseMode turns on instruction-level tracing to stderr
var VerboseMode bool

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// NOTE: Go's flag package stops parsing at the first non-flag argument
	// So flags must come BEFORE the expression: jitexpr -arch arm64 dump '1 + 2'
	var archFlag = flag.String("arch", cfg.Arch.GoName(), "target architecture (amd64, arm64)")
	var codeSizeFlag = flag.String("code-size", "", "code page size (e.g. 64KiB)")
	var dataSizeFlag = flag.String("data-size", "", "data page size (e.g. 16KiB)")
	var versionShort = flag.Bool("V", false, "print version information and exit")
	var version = flag.Bool("version", false, "print version information and exit")
	var verbose = flag.Bool("v", false, "verbose mode (trace emitted instructions)")
	var verboseLong = flag.Bool("verbose", false, "verbose mode (trace emitted instructions)")
	var noColor = flag.Bool("no-color", false, "disable colored error output")
	flag.Parse()

	if *version || *versionShort {
		fmt.Println(versionString)
		os.Exit(0)
	}

	// Flags only override the file and environment when given explicitly
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "arch":
			flagErr = errors.Join(flagErr, cfg.SetArch(*archFlag))
		case "code-size":
			flagErr = errors.Join(flagErr, cfg.SetCodeSize(*codeSizeFlag))
		case "data-size":
			flagErr = errors.Join(flagErr, cfg.SetDataSize(*dataSizeFlag))
		case "v", "verbose":
			cfg.Verbose = *verbose || *verboseLong
		case "no-color":
			cfg.Color = !*noColor
		}
	})
	if flagErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", flagErr)
		os.Exit(1)
	}

	setVerbose(cfg.Verbose)

	if VerboseMode {
		fmt.Fprintf(os.Stderr, "----=[ %s ]=----\n", versionString)
		fmt.Fprintf(os.Stderr, "config: %s\n", cfg)
	}

	ctx := &CommandContext{
		Args:   flag.Args(),
		Config: cfg,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	if err := RunCLI(ctx); err != nil {
		ctx.reportError(err)
		os.Exit(1)
	}
}

// setVerbose switches both the stderr trace and the commonlog level
func setVerbose(on bool) {
	VerboseMode = on
	verbosity := 0
	if on {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)
}
