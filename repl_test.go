package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/tliron/commonlog"
)

func TestUnclosedParens(t *testing.T) {
	tests := map[string]bool{
		"1 + 2":       false,
		"(1 + 2":      true,
		"((1)":        true,
		"(1 + 2)":     false,
		"1 + 2)":      false,
		"'(' + 1":     false,
		"(1 +\n(2 * ": true,
	}
	for source, want := range tests {
		if got := unclosedParens(source); got != want {
			t.Errorf("unclosedParens(%q) = %v, want %v", source, got, want)
		}
	}
}

func TestReplCommands(t *testing.T) {
	var stdout, stderr bytes.Buffer
	ctx := &CommandContext{Config: DefaultConfig(), Stdout: &stdout, Stderr: &stderr}
	ctx.Config.Color = false

	for _, quit := range []string{":quit", ":q", ":exit"} {
		if !replCommand(ctx, quit) {
			t.Errorf("%s did not quit", quit)
		}
	}

	if replCommand(ctx, ":help") || !strings.Contains(stdout.String(), ":code EXPR") {
		t.Errorf(":help output %q", stdout.String())
	}

	stdout.Reset()
	replCommand(ctx, ":code 1 + 2")
	if !strings.Contains(stdout.String(), "; 1 + 2") || !strings.Contains(stdout.String(), "code:") {
		t.Errorf(":code output %q", stdout.String())
	}

	stdout.Reset()
	replCommand(ctx, ":code 1 +")
	if !strings.Contains(stderr.String(), "expected an operand") {
		t.Errorf(":code error %q", stderr.String())
	}

	stderr.Reset()
	replCommand(ctx, ":frobnicate")
	if !strings.Contains(stderr.String(), "unknown command :frobnicate") {
		t.Errorf("unknown command output %q", stderr.String())
	}

	before := VerboseMode
	replCommand(ctx, ":verbose")
	replCommand(ctx, ":verbose")
	if VerboseMode != before {
		t.Error(":verbose twice did not restore the mode")
	}
}

func TestReplVerboseConfiguresLogging(t *testing.T) {
	var stdout bytes.Buffer
	ctx := &CommandContext{Config: DefaultConfig(), Stdout: &stdout, Stderr: &stdout}
	setVerbose(false)
	defer setVerbose(false)

	if commonlog.AllowLevel(commonlog.Debug, "jitexpr") {
		t.Fatal("debug logging enabled while quiet")
	}
	replCommand(ctx, ":verbose")
	if !VerboseMode || !commonlog.AllowLevel(commonlog.Debug, "jitexpr") {
		t.Error(":verbose did not enable debug logging")
	}
	replCommand(ctx, ":v")
	if VerboseMode || commonlog.AllowLevel(commonlog.Debug, "jitexpr") {
		t.Error("second :verbose left debug logging on")
	}
}
