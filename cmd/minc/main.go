package main

import (
	"fmt"
	"os"
	"os/exec"

	"minc/pkg/cli"
	"minc/pkg/codegen"
	"minc/pkg/config"
	"minc/pkg/ir"
	"minc/pkg/lexer"
	"minc/pkg/parser"
	"minc/pkg/util"
)

func main() {
	app := cli.NewApp("minc")
	app.Synopsis = "[options] <input.mc>"
	app.Description = "A compiler for a small procedural language, targeting x86-64 NASM under the Windows x64 calling convention."

	cfg := config.NewConfig()
	fs := app.FlagSet
	fs.String(&cfg.OutFile, "output", "o", cfg.OutFile, "name", "Place the output into <name>.exe (and <name>.asm).")
	fs.Bool(&cfg.DumpIR, "dump-ir", "", false, "Print the three-address code listing.")
	fs.Bool(&cfg.DumpAsm, "dump-asm", "", false, "Print the generated assembly.")
	fs.Bool(&cfg.AsmOnly, "asm-only", "", false, "Stop after writing the .asm file; do not assemble or link.")

	app.Action = func(inputFiles []string) error {
		if len(inputFiles) != 1 {
			fmt.Fprintln(os.Stderr, "minc: expected exactly one input file")
			os.Exit(1)
		}
		if err := compile(inputFiles[0], cfg); err != nil {
			os.Exit(1)
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// compile runs the pipeline: lex, parse+check, TAC, assembly, then the
// external assembler and linker. It stops at the first failing phase and
// renders its diagnostic.
func compile(path string, cfg *config.Config) error {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "minc: could not read '%s': %v\n", path, err)
		return err
	}
	src := &util.SourceFile{Name: path, Content: []rune(string(content))}

	fmt.Printf("Tokenizing '%s'...\n", path)
	tokens, err := lexer.NewLexer(src.Content).ScanAll()
	if err != nil {
		util.Render(os.Stderr, src, err)
		return err
	}

	fmt.Println("Parsing and checking...")
	prog, err := parser.NewParser(tokens).Parse()
	if err != nil {
		util.Render(os.Stderr, src, err)
		return err
	}

	fmt.Println("Generating three-address code...")
	tac, err := ir.NewGenerator().Generate(prog)
	if err != nil {
		util.Render(os.Stderr, src, err)
		return err
	}
	if cfg.DumpIR {
		fmt.Print(tac.Dump())
	}

	fmt.Println("Generating assembly...")
	asm, err := codegen.NewGenerator(cfg, tac).Generate()
	if err != nil {
		util.Render(os.Stderr, src, err)
		return err
	}
	if cfg.DumpAsm {
		fmt.Print(asm)
	}

	asmFile := cfg.OutFile + ".asm"
	if err := os.WriteFile(asmFile, []byte(asm), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "minc: could not write '%s': %v\n", asmFile, err)
		return err
	}
	fmt.Printf("Wrote '%s'.\n", asmFile)

	if cfg.AsmOnly {
		return nil
	}

	fmt.Printf("Assembling and linking '%s.exe'...\n", cfg.OutFile)
	if err := assembleAndLink(cfg.OutFile, asmFile); err != nil {
		fmt.Fprintf(os.Stderr, "minc: %v\n", err)
		return err
	}
	fmt.Println("Done!")
	return nil
}

func assembleAndLink(outFile, asmFile string) error {
	objFile := outFile + ".obj"

	nasm := exec.Command("nasm", "-f", "win64", asmFile, "-o", objFile)
	if output, err := nasm.CombinedOutput(); err != nil {
		return fmt.Errorf("nasm failed: %w\nOutput:\n%s", err, string(output))
	}

	gcc := exec.Command("gcc", objFile, "-o", outFile+".exe")
	if output, err := gcc.CombinedOutput(); err != nil {
		return fmt.Errorf("gcc failed: %w\nOutput:\n%s", err, string(output))
	}
	return nil
}
