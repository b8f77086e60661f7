// Package config holds the compilation target description and the options
// the driver threads through the pipeline.
package config

// Config describes one compile invocation. The backend is fixed: 64-bit
// x86 under the Windows x64 calling convention, NASM syntax.
type Config struct {
	// Target properties.
	WordSize       int      // bytes per stack slot
	StackAlignment int      // required rsp alignment at calls
	ShadowSpace    int      // fixed reservation before every call
	ParamRegs      []string // argument registers in declared order
	RuntimeExterns []string // symbols declared extern in the text section

	// Driver options.
	OutFile string
	DumpIR  bool
	DumpAsm bool
	AsmOnly bool
}

func NewConfig() *Config {
	return &Config{
		WordSize:       8,
		StackAlignment: 16,
		ShadowSpace:    32,
		ParamRegs:      []string{"rcx", "rdx", "r8", "r9"},
		RuntimeExterns: []string{"printf", "scanf", "exit"},
		OutFile:        "a",
	}
}
