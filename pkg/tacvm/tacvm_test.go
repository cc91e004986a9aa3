package tacvm_test

import (
	"testing"

	"cminor.dev/compiler/pkg/check"
	"cminor.dev/compiler/pkg/lexer"
	"cminor.dev/compiler/pkg/parser"
	"cminor.dev/compiler/pkg/tac"
	"cminor.dev/compiler/pkg/tacvm"
)

func run(t *testing.T, src string) *tacvm.VM {
	t.Helper()

	toks, err := lexer.New(src).Tokenize()
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	sourceFile, err := parser.New(toks, src).Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := check.New().Check(sourceFile); err != nil {
		t.Fatalf("check: %v", err)
	}
	program, err := tac.Build(sourceFile)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	vm := tacvm.New(program)
	if err := vm.Run(); err != nil {
		t.Fatalf("run:\n%s\n%v", program.Pretty(), err)
	}
	return vm
}

func TestSumLoopReturns55(t *testing.T) {
	vm := run(t, `
		int main() {
			int n = 10;
			int s = 0;
			while (n > 0) {
				s = s + n;
				n = n - 1;
			}
			return s;
		}
	`)

	got := vm.Registers()["rt"]
	if got != int64(55) {
		t.Fatalf("expected rt == 55, got %v", got)
	}
}

func TestRecursiveFactorialLikeCallReturns6(t *testing.T) {
	test := func(name, src string, want int64) {
		t.Run(name, func(t *testing.T) {
			vm := run(t, src)
			if got := vm.Registers()["rt"]; got != want {
				t.Fatalf("expected rt == %d, got %v", want, got)
			}
		})
	}

	test("f(3) via n*f(n-1)", `
		int f(int n) {
			if (n == 0) {
				return 1;
			}
			return n * f(n - 1);
		}
		int main() {
			return f(3);
		}
	`, 6)
}

func TestEightArgumentCallSpillsBeyondRegisters(t *testing.T) {
	vm := run(t, `
		int spill(int a, int b, int c, int d, int e, int f, int g, int h) {
			return g + h;
		}
		int main() {
			return spill(1, 2, 3, 4, 5, 6, 7, 8);
		}
	`)

	if got := vm.Registers()["rt"]; got != int64(15) {
		t.Fatalf("expected rt == 15 (7+8), got %v", got)
	}
}

func TestPointerRefDerefComposition(t *testing.T) {
	vm := run(t, `
		int main() {
			int a = 0;
			int *b = &a;
			int **c = &b;
			*&*c = (int*)1;
			return 0;
		}
	`)

	if got := vm.Registers()["rt"]; got != int64(0) {
		t.Fatalf("expected rt == 0, got %v", got)
	}
}

func TestImplicitIntToFloatReturnCast(t *testing.T) {
	vm := run(t, `
		float f() {
			return 1;
		}
		int main() {
			return 0;
		}
	`)

	if got := vm.Registers()["rt"]; got != int64(0) {
		t.Fatalf("expected rt == 0, got %v", got)
	}
}
