// Package tac implements the three-address-code intermediate
// representation: instruction set, a builder lowering the checked AST into
// it, and (in pkg/tacvm) a reference interpreter over it.
package tac

import "fmt"

// Operand is implemented by every value an instruction can read or write:
// a virtual register, a memory location, an address-of handle, or a
// literal constant.
type Operand interface {
	operand()
}

// Register is a virtual register, numbered "t0", "t1", … per program.
type Register struct {
	Name string
}

func (Register) operand() {}
func (r Register) String() string { return r.Name }

// Mem is a memory-location descriptor `[base + offset]`. Base is itself an
// Operand (typically a Register holding an address, sometimes an IntConst
// absolute address); it is resolved at interpretation/codegen time.
type Mem struct {
	Base   Operand
	Offset int
}

func (*Mem) operand() {}

func (m *Mem) String() string {
	switch {
	case m.Offset > 0:
		return fmt.Sprintf("[%s + %d]", m.Base, m.Offset)
	case m.Offset < 0:
		return fmt.Sprintf("[%s - %d]", m.Base, -m.Offset)
	default:
		return fmt.Sprintf("[%s]", m.Base)
	}
}

// AddressOf always resolves to the numeric address of Slot, never its
// stored value — the operand form `&x` lowers to. Unlike the reference
// implementation's UDVal wrapper (which only produced an address when it
// happened to be the source of a Move instruction, and silently read
// through to the pointee's value everywhere else), AddressOf is address-
// valued uniformly wherever it appears: as a Move source, an Arithmetic
// operand, or a call argument.
type AddressOf struct {
	Slot *Mem
}

func (AddressOf) operand() {}
func (a AddressOf) String() string { return fmt.Sprintf("&%s", a.Slot) }

// IntConst and FloatConst are literal operands.
type IntConst int64

func (IntConst) operand()      {}
func (c IntConst) String() string { return fmt.Sprintf("%d", int64(c)) }

type FloatConst float64

func (FloatConst) operand()        {}
func (c FloatConst) String() string { return fmt.Sprintf("%g", float64(c)) }

// Instruction is implemented by every TAC opcode.
type Instruction interface {
	instrNode()
	String() string
}

type Move struct{ Dest, Src Operand }

func (*Move) instrNode() {}
func (m *Move) String() string { return fmt.Sprintf("move %s, %s", m.Dest, m.Src) }

type Jump struct{ Label string }

func (*Jump) instrNode() {}
func (j *Jump) String() string { return fmt.Sprintf("jump %s", j.Label) }

type JumpIf struct {
	Label string
	Cond  Operand
}

func (*JumpIf) instrNode() {}
func (j *JumpIf) String() string { return fmt.Sprintf("jump_if %s, %s", j.Label, j.Cond) }

type JumpIfNot struct {
	Label string
	Cond  Operand
}

func (*JumpIfNot) instrNode() {}
func (j *JumpIfNot) String() string { return fmt.Sprintf("jump_ifnot %s, %s", j.Label, j.Cond) }

// Params binds the incoming call-argument queue to this function's
// parameter registers. Always the first instruction after a function's
// label.
type Params struct{ Registers []Register }

func (*Params) instrNode() {}
func (p *Params) String() string {
	s := "params"
	for i, r := range p.Registers {
		if i > 0 {
			s += ","
		}
		s += " " + r.String()
	}
	return s
}

type Call struct {
	Target string
	Out    Register
	Args   []Operand
}

func (*Call) instrNode() {}
func (c *Call) String() string {
	s := fmt.Sprintf("call %s, %s", c.Target, c.Out)
	for _, a := range c.Args {
		s += fmt.Sprintf(", %s", a)
	}
	return s
}

type Return struct{ Src Operand }

func (*Return) instrNode() {}
func (r *Return) String() string { return fmt.Sprintf("ret %s", r.Src) }

// Push spills Val to a fresh stack slot; it is how `&x` escapes a
// register-held value to memory. The VM fills Slot with a concrete address
// each time it executes the instruction; the x86 backend does not lay Slot
// out and instead resolves it to the pushed register's own stack slot.
type Push struct {
	Val  Operand
	Slot *Mem
}

func (*Push) instrNode() {}
func (p *Push) String() string { return fmt.Sprintf("push %s", p.Val) }

type Pop struct{ Dest Operand }

func (*Pop) instrNode() {}
func (p *Pop) String() string { return fmt.Sprintf("pop %s", p.Dest) }

// Arithmetic covers every binary opcode: add, sub, imul, div, and, or, eq,
// lt, lte, gt, gte.
type Arithmetic struct {
	Dest        Register
	Op          string
	Left, Right Operand
}

func (*Arithmetic) instrNode() {}
func (a *Arithmetic) String() string {
	return fmt.Sprintf("%s %s, %s, %s", a.Op, a.Dest, a.Left, a.Right)
}

// Convert changes an operand's runtime representation between the integer
// and floating-point domains. Every other promotion (char/short/int/long
// among themselves) shares representation and needs no instruction.
type Convert struct {
	Dest    Register
	Src     Operand
	ToFloat bool
}

func (*Convert) instrNode() {}
func (c *Convert) String() string {
	if c.ToFloat {
		return fmt.Sprintf("cvt_to_float %s, %s", c.Dest, c.Src)
	}
	return fmt.Sprintf("cvt_to_int %s, %s", c.Dest, c.Src)
}

// Program is the flat output of the builder: an instruction list, the
// label→index map recording every jump target, per-ir_name operand
// bindings, and each function's locals list (by ir_name), keyed by the
// function's label.
type Program struct {
	Code               []Instruction
	LabelToIndex       map[string]int
	VariableToLocation map[string]Operand
	FunLocals          map[string][]string
}

func newProgram() *Program {
	return &Program{
		LabelToIndex:       map[string]int{},
		VariableToLocation: map[string]Operand{},
		FunLocals:          map[string][]string{},
	}
}
