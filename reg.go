// Completion: 100% - Utility module complete
package main

// Register definitions for the supported architectures

type Register struct {
	Name     string
	Size     int   // Size in bits
	Encoding uint8 // Encoding for instruction generation
	Float    bool  // XMM / D register
}

// x86_64 registers
var x86_64Registers = map[string]Register{
	// 64-bit general purpose registers
	"rax": {Name: "rax", Size: 64, Encoding: 0},
	"rcx": {Name: "rcx", Size: 64, Encoding: 1},
	"rdx": {Name: "rdx", Size: 64, Encoding: 2},
	"rbx": {Name: "rbx", Size: 64, Encoding: 3},
	"rsp": {Name: "rsp", Size: 64, Encoding: 4},
	"rbp": {Name: "rbp", Size: 64, Encoding: 5},
	"rsi": {Name: "rsi", Size: 64, Encoding: 6},
	"rdi": {Name: "rdi", Size: 64, Encoding: 7},
	"r8":  {Name: "r8", Size: 64, Encoding: 8},
	"r9":  {Name: "r9", Size: 64, Encoding: 9},
	"r10": {Name: "r10", Size: 64, Encoding: 10},
	"r11": {Name: "r11", Size: 64, Encoding: 11},
	"r12": {Name: "r12", Size: 64, Encoding: 12},
	"r13": {Name: "r13", Size: 64, Encoding: 13},
	"r14": {Name: "r14", Size: 64, Encoding: 14},
	"r15": {Name: "r15", Size: 64, Encoding: 15},

	// SSE registers (scalar double in the low 64 bits)
	"xmm0":  {Name: "xmm0", Size: 128, Encoding: 0, Float: true},
	"xmm1":  {Name: "xmm1", Size: 128, Encoding: 1, Float: true},
	"xmm2":  {Name: "xmm2", Size: 128, Encoding: 2, Float: true},
	"xmm3":  {Name: "xmm3", Size: 128, Encoding: 3, Float: true},
	"xmm4":  {Name: "xmm4", Size: 128, Encoding: 4, Float: true},
	"xmm5":  {Name: "xmm5", Size: 128, Encoding: 5, Float: true},
	"xmm6":  {Name: "xmm6", Size: 128, Encoding: 6, Float: true},
	"xmm7":  {Name: "xmm7", Size: 128, Encoding: 7, Float: true},
	"xmm8":  {Name: "xmm8", Size: 128, Encoding: 8, Float: true},
	"xmm9":  {Name: "xmm9", Size: 128, Encoding: 9, Float: true},
	"xmm10": {Name: "xmm10", Size: 128, Encoding: 10, Float: true},
	"xmm11": {Name: "xmm11", Size: 128, Encoding: 11, Float: true},
	"xmm12": {Name: "xmm12", Size: 128, Encoding: 12, Float: true},
	"xmm13": {Name: "xmm13", Size: 128, Encoding: 13, Float: true},
	"xmm14": {Name: "xmm14", Size: 128, Encoding: 14, Float: true},
	"xmm15": {Name: "xmm15", Size: 128, Encoding: 15, Float: true},
}

// arm64 registers
var arm64Registers = map[string]Register{
	"x0": {Name: "x0", Size: 64, Encoding: 0}, "x1": {Name: "x1", Size: 64, Encoding: 1},
	"x2": {Name: "x2", Size: 64, Encoding: 2}, "x3": {Name: "x3", Size: 64, Encoding: 3},
	"x4": {Name: "x4", Size: 64, Encoding: 4}, "x5": {Name: "x5", Size: 64, Encoding: 5},
	"x6": {Name: "x6", Size: 64, Encoding: 6}, "x7": {Name: "x7", Size: 64, Encoding: 7},
	"x8": {Name: "x8", Size: 64, Encoding: 8}, "x9": {Name: "x9", Size: 64, Encoding: 9},
	"x10": {Name: "x10", Size: 64, Encoding: 10}, "x11": {Name: "x11", Size: 64, Encoding: 11},
	"x12": {Name: "x12", Size: 64, Encoding: 12}, "x13": {Name: "x13", Size: 64, Encoding: 13},
	"x14": {Name: "x14", Size: 64, Encoding: 14}, "x15": {Name: "x15", Size: 64, Encoding: 15},
	"x16": {Name: "x16", Size: 64, Encoding: 16}, "x17": {Name: "x17", Size: 64, Encoding: 17},
	"x29": {Name: "x29", Size: 64, Encoding: 29}, "x30": {Name: "x30", Size: 64, Encoding: 30},
	"xzr": {Name: "xzr", Size: 64, Encoding: 31},

	"d0": {Name: "d0", Size: 64, Encoding: 0, Float: true}, "d1": {Name: "d1", Size: 64, Encoding: 1, Float: true},
	"d2": {Name: "d2", Size: 64, Encoding: 2, Float: true}, "d3": {Name: "d3", Size: 64, Encoding: 3, Float: true},
	"d4": {Name: "d4", Size: 64, Encoding: 4, Float: true}, "d5": {Name: "d5", Size: 64, Encoding: 5, Float: true},
	"d6": {Name: "d6", Size: 64, Encoding: 6, Float: true}, "d7": {Name: "d7", Size: 64, Encoding: 7, Float: true},
	"d16": {Name: "d16", Size: 64, Encoding: 16, Float: true}, "d17": {Name: "d17", Size: 64, Encoding: 17, Float: true},
	"d31": {Name: "d31", Size: 64, Encoding: 31, Float: true},
}
