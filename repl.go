// Completion: 100% - REPL complete
package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

const (
	newPrompt    = "\033[32m>\033[0m "
	contPrompt   = "\033[32m.\033[0m "
	resultPrompt = "\033[31m=\033[0m "
)

const replHelp = `Enter an expression to compile and run it, for example (1 + 2.5) * 2
  :help       show this text
  :code EXPR  show the machine code for EXPR
  :verbose    toggle instruction tracing
  :quit       leave (Ctrl-D works too)
`

// Repl reads expressions line by line, compiling each one into fresh pages
func Repl(ctx *CommandContext) error {
	prompt, cont, result := newPrompt, contPrompt, resultPrompt
	if !ctx.Config.Color {
		prompt, cont, result = "> ", ". ", "= "
	}
	l, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       ctx.Config.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		Stdout:            ctx.Stdout,
		Stderr:            ctx.Stderr,
	})
	if err != nil {
		return fmt.Errorf("repl: %w", err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	fmt.Fprintf(ctx.Stdout, "%s on %s. Type :help for help.\n", versionString, ctx.Config.Arch)

	pending := ""
	for {
		line, err := l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if pending == "" && len(line) == 0 {
				return nil
			}
			pending = ""
			l.SetPrompt(prompt)
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("repl: %w", err)
		}

		source := pending + line
		if strings.TrimSpace(source) == "" {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(source), ":") {
			if quit := replCommand(ctx, strings.TrimSpace(source)); quit {
				return nil
			}
			continue
		}
		if unclosedParens(source) {
			pending = source + "\n"
			l.SetPrompt(cont)
			continue
		}
		pending = ""
		l.SetPrompt(prompt)

		v, err := Eval(source, ctx.Config)
		if err != nil {
			ctx.reportError(err)
			continue
		}
		fmt.Fprintf(ctx.Stdout, "%s%s : %s\n", result, v.Quoted(), v.Type)
	}
}

// replCommand runs a :command and reports whether the REPL should stop
func replCommand(ctx *CommandContext, line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	switch name {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h":
		fmt.Fprint(ctx.Stdout, replHelp)
	case ":verbose", ":v":
		setVerbose(!VerboseMode)
		fmt.Fprintf(ctx.Stdout, "verbose %v\n", VerboseMode)
	case ":code", ":c":
		a, err := CompileFor(ctx.Config.Arch, arg, ctx.Config)
		if err != nil {
			ctx.reportError(err)
			break
		}
		a.WriteHex(ctx.Stdout)
	default:
		fmt.Fprintf(ctx.Stderr, "unknown command %s, try :help\n", name)
	}
	return false
}

// unclosedParens reports whether more input is needed to close every '('
func unclosedParens(source string) bool {
	depth := 0
	for _, tok := range Tokenize(source) {
		switch tok.Type {
		case TOKEN_LPAREN:
			depth++
		case TOKEN_RPAREN:
			depth--
		}
	}
	return depth > 0
}
