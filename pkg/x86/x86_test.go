package x86_test

import (
	"testing"

	"cminor.dev/compiler/pkg/check"
	"cminor.dev/compiler/pkg/lexer"
	"cminor.dev/compiler/pkg/parser"
	"cminor.dev/compiler/pkg/tac"
	"cminor.dev/compiler/pkg/x86"
)

func compile(t *testing.T, src string) *x86.Program {
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
	tacProgram, err := tac.Build(sourceFile)
	if err != nil {
		t.Fatalf("tac build: %v", err)
	}
	program, err := x86.Build(sourceFile, tacProgram)
	if err != nil {
		t.Fatalf("x86 build: %v", err)
	}
	return program
}

func TestWhileLoopUsesJeNeverJg(t *testing.T) {
	p := compile(t, `
		int main() {
			int a = 0;
			while (a < 3) {
				a = a + 1;
			}
			return a;
		}
	`)

	var pushRBP, leaves, rets, mainLabels, jes int
	for i, ins := range p.Code {
		switch v := ins.(type) {
		case *x86.Push:
			if reg, ok := v.Val.(x86.Reg); ok && reg.Name == "rbp" {
				pushRBP++
			}
		case *x86.Leave:
			leaves++
		case *x86.Ret:
			rets++
		case *x86.Je:
			jes++
		}
		for label, idx := range p.LabelToIndex {
			if idx == i && label == "main" {
				mainLabels++
			}
		}
	}
	if pushRBP != 1 {
		t.Fatalf("expected exactly one push rbp prologue, got %d:\n%s", pushRBP, p.Pretty())
	}
	if leaves != 1 || rets != 1 {
		t.Fatalf("expected exactly one leave and one ret, got %d/%d:\n%s", leaves, rets, p.Pretty())
	}
	if mainLabels != 1 {
		t.Fatalf("expected exactly one main label, got %d", mainLabels)
	}
	if jes == 0 {
		t.Fatalf("expected the redesigned while-loop test to branch on je, got:\n%s", p.Pretty())
	}
}

func TestEveryJumpTargetIsADefinedLabel(t *testing.T) {
	p := compile(t, `
		int f(int n) {
			if (n == 0) {
				return 1;
			}
			return n * f(n - 1);
		}
		int main() {
			return f(3);
		}
	`)

	for _, ins := range p.Code {
		var target string
		switch v := ins.(type) {
		case *x86.Jmp:
			target = v.Label
		case *x86.Je:
			target = v.Label
		case *x86.Jne:
			target = v.Label
		case *x86.Call:
			target = v.Target
		default:
			continue
		}
		if _, ok := p.LabelToIndex[target]; !ok {
			t.Fatalf("jump/call target %q has no recorded label:\n%s", target, p.Pretty())
		}
	}
}

func TestRecursiveCallEmitsCallAndImul(t *testing.T) {
	p := compile(t, `
		int f(int n) {
			if (n == 0) {
				return 1;
			}
			return n * f(n - 1);
		}
		int main() {
			return f(3);
		}
	`)

	var sawCallF, sawImul bool
	for _, ins := range p.Code {
		switch v := ins.(type) {
		case *x86.Call:
			if v.Target == "f" {
				sawCallF = true
			}
		case *x86.Arith:
			if v.Op == "imul" {
				sawImul = true
			}
		}
	}
	if !sawCallF {
		t.Fatalf("expected a recursive call f inside f's own body, got:\n%s", p.Pretty())
	}
	if !sawImul {
		t.Fatalf("expected an imul lowering n * f(n - 1), got:\n%s", p.Pretty())
	}
}

func TestNoMovHasTwoMemoryOperands(t *testing.T) {
	p := compile(t, `
		int readThroughPointer() {
			int a = 5;
			int *b = &a;
			int c = *b;
			return c;
		}
	`)

	for _, ins := range p.Code {
		mov, ok := ins.(*x86.Mov)
		if !ok {
			continue
		}
		_, destMem := mov.Dest.(*x86.Mem)
		_, srcMem := mov.Src.(*x86.Mem)
		if destMem && srcMem {
			t.Fatalf("mov must not have two memory operands: %s", mov)
		}
	}
}

func TestDivisionUsesCqoIdiv(t *testing.T) {
	p := compile(t, `
		int divide(int a, int b) {
			return a / b;
		}
	`)

	var sawCqo, sawIdiv bool
	for _, ins := range p.Code {
		switch ins.(type) {
		case *x86.Cqo:
			sawCqo = true
		case *x86.Idiv:
			sawIdiv = true
		}
	}
	if !sawCqo || !sawIdiv {
		t.Fatalf("expected division to lower through cqo+idiv, got:\n%s", p.Pretty())
	}
}

func TestFloatArithmeticIsRejected(t *testing.T) {
	toks, err := lexer.New(`
		float f() {
			return 1;
		}
	`).Tokenize()
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	sourceFile, err := parser.New(toks, "").Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := check.New().Check(sourceFile); err != nil {
		t.Fatalf("check: %v", err)
	}
	tacProgram, err := tac.Build(sourceFile)
	if err != nil {
		t.Fatalf("tac build: %v", err)
	}
	if _, err := x86.Build(sourceFile, tacProgram); err == nil {
		t.Fatalf("expected a CodegenError rejecting the float-returning function")
	}
}
