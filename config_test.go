package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xyproto/jitexpr/internal/engine"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jitexpr.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.CodeSize != 64*1024 || cfg.DataSize != 16*1024 {
		t.Errorf("sizes %d/%d", cfg.CodeSize, cfg.DataSize)
	}
	if cfg.Arch != engine.Host().Arch {
		t.Errorf("arch %s, want the host", cfg.Arch)
	}
	if !cfg.Color || cfg.Verbose {
		t.Errorf("color=%v verbose=%v", cfg.Color, cfg.Verbose)
	}
	if !strings.Contains(cfg.String(), "from defaults") {
		t.Errorf("String() = %q", cfg.String())
	}
}

func TestConfigFile(t *testing.T) {
	path := writeConfig(t, `
arch = "arm64"
code_size = "128KiB"
data_size = "4k"
verbose = true
color = false
history = "/tmp/hist"
`)
	cfg := DefaultConfig()
	if err := cfg.loadFile(path); err != nil {
		t.Fatal(err)
	}
	if cfg.Arch != engine.ArchARM64 {
		t.Errorf("arch %s", cfg.Arch)
	}
	if cfg.CodeSize != 128*1024 || cfg.DataSize != 4*1024 {
		t.Errorf("sizes %d/%d", cfg.CodeSize, cfg.DataSize)
	}
	if !cfg.Verbose || cfg.Color || cfg.HistoryFile != "/tmp/hist" {
		t.Errorf("verbose=%v color=%v history=%q", cfg.Verbose, cfg.Color, cfg.HistoryFile)
	}
	if cfg.Source != path {
		t.Errorf("source %q", cfg.Source)
	}
}

func TestConfigFilePartial(t *testing.T) {
	path := writeConfig(t, `data_size = "1MiB"`)
	cfg := DefaultConfig()
	if err := cfg.loadFile(path); err != nil {
		t.Fatal(err)
	}
	if cfg.DataSize != 1<<20 || cfg.CodeSize != defaultCodeSize || !cfg.Color {
		t.Errorf("unset keys must keep their defaults: %s", cfg)
	}
}

func TestConfigFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown key", `cache = true`, "unknown key"},
		{"bad arch", `arch = "mips"`, "unsupported architecture"},
		{"bad size", `code_size = "lots"`, "code size"},
		{"too small", `data_size = "8"`, "smaller than"},
		{"syntax", `arch = `, "config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DefaultConfig().loadFile(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	if err := DefaultConfig().loadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"64", 64, false},
		{"4k", 4096, false},
		{"64KiB", 65536, false},
		{"1m", 1 << 20, false},
		{"1GiB", 1 << 30, false},
		{"63", 0, true},
		{"2g", 0, true},
		{"", 0, true},
		{"-1k", 0, true},
	}

	for _, tt := range tests {
		got, err := parseSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSize(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSetArch(t *testing.T) {
	cfg := DefaultConfig()
	for in, want := range map[string]engine.Arch{
		"amd64":   engine.ArchX86_64,
		"x86_64":  engine.ArchX86_64,
		"arm64":   engine.ArchARM64,
		"AArch64": engine.ArchARM64,
	} {
		if err := cfg.SetArch(in); err != nil || cfg.Arch != want {
			t.Errorf("SetArch(%q) = %s, %v", in, cfg.Arch, err)
		}
	}
	if err := cfg.SetArch("riscv64"); err == nil {
		t.Error("riscv64 accepted")
	}
}
