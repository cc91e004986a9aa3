package main

import (
	"fmt"
	"os"
	"strings"

	"cminor.dev/compiler/pkg/check"
	"cminor.dev/compiler/pkg/lexer"
	"cminor.dev/compiler/pkg/parser"
	"cminor.dev/compiler/pkg/tac"
	"cminor.dev/compiler/pkg/tacvm"
	"cminor.dev/compiler/pkg/x86"

	"github.com/teris-io/cli"
)

var Description = strings.ReplaceAll(`
The C-minor compiler lexes, parses, type-checks and lowers a single C-minor
translation unit down to x86-64 (GNU assembler) text, or, with --emit tac,
down to the intermediate three-address-code form used to get there.
`, "\n", " ")

var Compiler = cli.New(Description).
	WithOption(cli.NewOption("input_file", "The source (.cm) file to compile").
		WithChar('i').WithType(cli.TypeString)).
	WithOption(cli.NewOption("output_file", "Where to write the compiled output").
		WithChar('o').WithType(cli.TypeString)).
	WithOption(cli.NewOption("emit", "What to emit: 'asm' (default) or 'tac'").
		WithType(cli.TypeString)).
	WithOption(cli.NewOption("run", "Interpret the program on the TAC VM instead of emitting a file").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	inputPath, ok := options["input_file"]
	if !ok {
		fmt.Printf("ERROR: -i/--input_file is required, use --help\n")
		return -1
	}

	source, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Printf("ERROR: Unable to open input file: %s\n", err)
		return -1
	}

	toks, err := lexer.New(string(source)).Tokenize()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lex' pass: %s\n", err)
		return -1
	}

	sourceFile, err := parser.New(toks, string(source)).Parse()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'parse' pass: %s\n", err)
		return -1
	}

	if err := check.New().Check(sourceFile); err != nil {
		fmt.Printf("ERROR: Unable to complete 'check' pass: %s\n", err)
		return -1
	}

	tacProgram, err := tac.Build(sourceFile)
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'tac' pass: %s\n", err)
		return -1
	}

	if _, enabled := options["run"]; enabled {
		vm := tacvm.New(tacProgram)
		if err := vm.Run(); err != nil {
			fmt.Printf("ERROR: Unable to complete 'run' pass: %s\n", err)
			return -1
		}
		fmt.Printf("%v\n", vm.Registers()["rt"])
		return 0
	}

	var compiled string
	switch options["emit"] {
	case "tac":
		compiled = tacProgram.Pretty()
	case "", "asm":
		x86Program, err := x86.Build(sourceFile, tacProgram)
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
			return -1
		}
		compiled = x86Program.Pretty()
	default:
		fmt.Printf("ERROR: Unknown --emit target %q, expected 'asm' or 'tac'\n", options["emit"])
		return -1
	}

	outputPath, ok := options["output_file"]
	if !ok {
		fmt.Print(compiled)
		return 0
	}

	output, err := os.Create(outputPath)
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	if _, err := output.WriteString(compiled); err != nil {
		fmt.Printf("ERROR: Unable to write output file: %s\n", err)
		return -1
	}

	return 0
}

func main() { os.Exit(Compiler.Run(os.Args, os.Stdout)) }
