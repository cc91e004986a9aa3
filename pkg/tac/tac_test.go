package tac_test

import (
	"testing"

	"cminor.dev/compiler/pkg/check"
	"cminor.dev/compiler/pkg/lexer"
	"cminor.dev/compiler/pkg/parser"
	"cminor.dev/compiler/pkg/tac"
)

func compile(t *testing.T, src string) *tac.Program {
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
	return program
}

func TestWhileIsTestBeforeBody(t *testing.T) {
	test := func(name, src string, check func(t *testing.T, p *tac.Program)) {
		t.Run(name, func(t *testing.T) {
			check(t, compile(t, src))
		})
	}

	test("sum loop", `
		int sum() {
			int total = 0;
			int i = 0;
			while (i < 10) {
				total = total + i;
				i = i + 1;
			}
			return total;
		}
	`, func(t *testing.T, p *tac.Program) {
		var sawJumpIfNot, sawBody, sawJumpBack bool
		bodyStarted := false
		for _, ins := range p.Code {
			switch v := ins.(type) {
			case *tac.JumpIfNot:
				if !bodyStarted {
					sawJumpIfNot = true
				}
			case *tac.Arithmetic:
				if sawJumpIfNot && v.Op == "add" {
					sawBody = true
					bodyStarted = true
				}
			case *tac.Jump:
				if sawBody {
					sawJumpBack = true
				}
			}
		}
		if !sawJumpIfNot || !sawBody || !sawJumpBack {
			t.Fatalf("expected jump_ifnot before the loop body and an unconditional jump back to the test, got:\n%s", p.Pretty())
		}

		// After Params (Code[0]) and the two declarations (Code[1], Code[2]),
		// the next instruction must already be the condition test — not the
		// loop body — since the redesigned while tests before ever running
		// the body once.
		if _, ok := p.Code[3].(*tac.Arithmetic); !ok {
			t.Fatalf("expected the condition comparison to be evaluated immediately, before any loop body instruction, got %T as Code[3]:\n%s", p.Code[3], p.Pretty())
		}
	})
}

func TestIfElseBranchesToDistinctLabels(t *testing.T) {
	p := compile(t, `
		int pick(int a, int b) {
			if (a < b) {
				return a;
			} else {
				return b;
			}
			return 0;
		}
	`)

	var jumpIfNots, jumps int
	var elseLabel, endLabel string
	for _, ins := range p.Code {
		switch v := ins.(type) {
		case *tac.JumpIfNot:
			jumpIfNots++
			elseLabel = v.Label
		case *tac.Jump:
			jumps++
			endLabel = v.Label
		}
	}
	if jumpIfNots == 0 || jumps == 0 {
		t.Fatalf("expected both a conditional branch to the else block and an unconditional jump past it, got:\n%s", p.Pretty())
	}
	if elseLabel == endLabel {
		t.Fatalf("expected the else branch and the jump past it to target distinct labels, both got %q:\n%s", elseLabel, p.Pretty())
	}
}

func TestNegationDependsOnItsOperand(t *testing.T) {
	p := compile(t, `
		int negate(int x) {
			return -x;
		}
	`)

	var found bool
	for _, ins := range p.Code {
		arith, ok := ins.(*tac.Arithmetic)
		if !ok || arith.Op != "sub" {
			continue
		}
		found = true
		if arith.Right == arith.Dest {
			t.Fatalf("negation's right operand must be the evaluated value of x, not its own (unwritten) destination register: %s", arith)
		}
		if _, isZero := arith.Left.(tac.IntConst); !isZero || arith.Left != tac.IntConst(0) {
			t.Fatalf("negation must subtract from zero, got left operand %v", arith.Left)
		}
	}
	if !found {
		t.Fatalf("expected a sub instruction lowering the negation, got:\n%s", p.Pretty())
	}
}

func TestRefThenDerefRoundTrips(t *testing.T) {
	p := compile(t, `
		int readThroughPointer() {
			int a = 5;
			int *b = &a;
			int c = *b;
			return c;
		}
	`)

	var sawPush, sawMoveFromMem bool
	for _, ins := range p.Code {
		switch v := ins.(type) {
		case *tac.Push:
			sawPush = true
		case *tac.Move:
			if _, ok := v.Src.(*tac.Mem); ok {
				sawMoveFromMem = true
			}
		}
	}
	if !sawPush {
		t.Fatalf("expected &a to lower to a push spilling a onto a fresh stack slot, got:\n%s", p.Pretty())
	}
	if !sawMoveFromMem {
		t.Fatalf("expected *b to lower to a move reading through a memory operand, got:\n%s", p.Pretty())
	}
}

func TestImplicitReturnCastConvertsRepresentation(t *testing.T) {
	p := compile(t, `
		float f() {
			return 1;
		}
	`)

	var sawConvert bool
	for _, ins := range p.Code {
		if c, ok := ins.(*tac.Convert); ok {
			sawConvert = true
			if !c.ToFloat {
				t.Fatalf("expected the conversion to target the float domain, got %s", c)
			}
		}
	}
	if !sawConvert {
		t.Fatalf("expected the integer literal 1 promoted to float to lower to a Convert instruction, got:\n%s", p.Pretty())
	}
}

func TestParamsBindOneRegisterPerArgument(t *testing.T) {
	p := compile(t, `
		int add(int a, int b) {
			return a + b;
		}
	`)

	params, ok := p.Code[0].(*tac.Params)
	if !ok {
		t.Fatalf("expected the instruction right after a function's label to be Params, got %T", p.Code[0])
	}
	if len(params.Registers) != 2 {
		t.Fatalf("expected 2 bound parameter registers, got %d", len(params.Registers))
	}
}
