// Completion: 100% - Error handling complete, clear and helpful messages
package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sentinel errors. Every error returned by Compile wraps exactly one of these
// (or one of the execmem errors), so callers can use errors.Is.
var (
	ErrSyntax         = errors.New("syntax error")
	ErrType           = errors.New("type error")
	ErrBufferOverflow = errors.New("buffer overflow")
	ErrStackBalance   = errors.New("virtual stack imbalance")
	ErrReleased       = errors.New("function has been released")
	ErrNotExecutable  = errors.New("code cannot be executed on this host")
	ErrNoCgo          = errors.New("invoking generated code requires cgo")
)

// ErrorLevel indicates the severity of an error
type ErrorLevel int

const (
	LevelError ErrorLevel = iota
	LevelFatal
)

func (l ErrorLevel) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// ErrorCategory classifies the type of error
type ErrorCategory int

const (
	CategorySyntax ErrorCategory = iota
	CategoryType
	CategoryCodegen
	CategoryInternal
)

func (c ErrorCategory) String() string {
	switch c {
	case CategorySyntax:
		return "syntax"
	case CategoryType:
		return "type"
	case CategoryCodegen:
		return "codegen"
	case CategoryInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// SourceLocation represents a position in source code
type SourceLocation struct {
	Line   int
	Column int
	Length int // Length of the problematic token
}

func (loc SourceLocation) String() string {
	return fmt.Sprintf("%d:%d", loc.Line, loc.Column)
}

// ErrorContext provides additional context for an error
type ErrorContext struct {
	SourceLine string // The actual line of source code
	Suggestion string // "did you mean 'x'?"
	HelpText   string // Explanatory help text
}

// CompilerError represents a single compilation error
type CompilerError struct {
	Level    ErrorLevel
	Category ErrorCategory
	Message  string
	Location SourceLocation
	Context  ErrorContext
	Err      error // sentinel or underlying cause
}

// Error implements the error interface
func (e *CompilerError) Error() string {
	return fmt.Sprintf("%s: %s error: %s", e.Location, e.Category, e.Message)
}

// Unwrap exposes the sentinel for errors.Is
func (e *CompilerError) Unwrap() error {
	return e.Err
}

const (
	colorRed   = "\033[1;31m"
	colorBlue  = "\033[1;34m"
	colorGreen = "\033[1;32m"
	colorCyan  = "\033[1;36m"
	colorReset = "\033[0m"
)

// errorWriter writes optionally colored diagnostic text
type errorWriter struct {
	strings.Builder
	color bool
}

func (w *errorWriter) paint(color, text string) {
	if w.color {
		w.WriteString(color)
		w.WriteString(text)
		w.WriteString(colorReset)
		return
	}
	w.WriteString(text)
}

// Format renders the error the way the CLI prints it:
//
//	error: unknown identifier 'nul'
//	  --> 1:5
//	  |
//	1 | 1 + nul
//	  |     ^^^
//	   help: did you mean 'null'?
func (e *CompilerError) Format(useColor bool) string {
	w := &errorWriter{color: useColor}

	w.paint(colorRed, e.Level.String()+": ")
	w.WriteString(e.Message + "\n")
	w.paint(colorBlue, "  --> "+e.Location.String())
	w.WriteString("\n")

	if e.Context.SourceLine != "" {
		gutter := strconv.Itoa(e.Location.Line)
		blank := strings.Repeat(" ", len(gutter)+1) + "|"
		fmt.Fprintf(w, "%s\n%s | %s\n%s ", blank, gutter, e.Context.SourceLine, blank)
		if e.Location.Column > 0 {
			w.WriteString(strings.Repeat(" ", e.Location.Column-1))
			w.paint(colorRed, strings.Repeat("^", max(e.Location.Length, 1)))
		}
		w.WriteString("\n")
	}

	if e.Context.Suggestion != "" {
		w.paint(colorGreen, "   help: ")
		w.WriteString(e.Context.Suggestion + "\n")
	}
	if e.Context.HelpText != "" {
		w.paint(colorCyan, "   note: ")
		w.WriteString(e.Context.HelpText + "\n")
	}
	return w.String()
}

// withSource fills in the source line for the error location
func (e *CompilerError) withSource(source string) *CompilerError {
	if e.Context.SourceLine != "" || source == "" || e.Location.Line <= 0 {
		return e
	}
	lines := strings.Split(source, "\n")
	if e.Location.Line <= len(lines) {
		e.Context.SourceLine = lines[e.Location.Line-1]
	}
	return e
}

// Helper functions for creating common errors

// SyntaxError creates a syntax error
func SyntaxError(message string, loc SourceLocation) *CompilerError {
	return &CompilerError{
		Level:    LevelError,
		Category: CategorySyntax,
		Message:  message,
		Location: loc,
		Err:      ErrSyntax,
	}
}

// UnexpectedTokenError creates an error for unexpected tokens
func UnexpectedTokenError(expected string, got Token) *CompilerError {
	return SyntaxError(fmt.Sprintf("expected %s, got %s", expected, got.Describe()), got.Location())
}

// TypeMismatchError wraps an error from the operator table
func TypeMismatchError(cause error, loc SourceLocation) *CompilerError {
	return &CompilerError{
		Level:    LevelError,
		Category: CategoryType,
		Message:  strings.TrimPrefix(cause.Error(), ErrType.Error()+": "),
		Location: loc,
		Context: ErrorContext{
			HelpText: "'+' joins two strings or two numbers; '-', '*', '/', '%' and '**' need numbers",
		},
		Err: ErrType,
	}
}

// CodegenError reports a failure while emitting code (for instance a full page)
func CodegenError(cause error) *CompilerError {
	return &CompilerError{
		Level:    LevelFatal,
		Category: CategoryCodegen,
		Message:  cause.Error(),
		Context: ErrorContext{
			HelpText: "increase the code or data page size (-code-size, -data-size)",
		},
		Err: cause,
	}
}

// FatalError creates a fatal internal error
func FatalError(message string, cause error) *CompilerError {
	return &CompilerError{
		Level:    LevelFatal,
		Category: CategoryInternal,
		Message:  message,
		Context: ErrorContext{
			HelpText: "This is an internal compiler error. Please report this bug.",
		},
		Err: cause,
	}
}
