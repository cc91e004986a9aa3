package x86

import (
	"fmt"

	"cminor.dev/compiler/pkg/ast"
	"cminor.dev/compiler/pkg/tac"
)

var argRegs = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

var comparisonSetCC = map[string]string{
	"eq": "e", "lt": "l", "lte": "le", "gt": "g", "gte": "ge",
}

// funcCtx holds one function's stack-slot assignment and in-progress
// instruction stream.
type funcCtx struct {
	prog      *Program
	slots     map[string]*Mem
	slotOwner map[*tac.Mem]string // Push.Slot -> the register it snapshots, for AddressOf
}

func (ctx *funcCtx) emit(ins Instruction) { ctx.prog.Code = append(ctx.prog.Code, ins) }

func (ctx *funcCtx) slotOf(name string) *Mem {
	if m, ok := ctx.slots[name]; ok {
		return m
	}
	// Unreached if the pre-scan visited every operand; fail loud rather
	// than silently assigning [rbp].
	panic(fmt.Sprintf("x86: register %q has no assigned stack slot", name))
}

// stage ensures op is not a memory operand, loading it through rbx first
// when it is. Used wherever an instruction would otherwise need two
// memory operands.
func (ctx *funcCtx) stage(op Operand) Operand {
	if _, ok := op.(*Mem); ok {
		ctx.emit(&Mov{Dest: Reg{"rbx"}, Src: op})
		return Reg{"rbx"}
	}
	return op
}

// Build lowers prog's instructions, function by function, into x86 text.
// src supplies the function order (tac.Program has no notion of function
// boundaries beyond its label map).
func Build(src *ast.SourceFile, prog *tac.Program) (*Program, error) {
	out := newProgram()

	indexToLabels := map[int][]string{}
	for label, idx := range prog.LabelToIndex {
		indexToLabels[idx] = append(indexToLabels[idx], label)
	}

	for i, fd := range src.FunDefs {
		if fd.RetType == "float" || fd.RetType == "double" {
			return nil, &CodegenError{Message: fmt.Sprintf("function %q returns %s; floating-point values are not supported by the native x86 backend", fd.Name, fd.RetType)}
		}
		for _, v := range fd.Locals {
			if t := v.InferredType(); t == "float" || t == "double" {
				return nil, &CodegenError{Message: fmt.Sprintf("variable %q in function %q has type %s; floating-point values are not supported by the native x86 backend", v.Name, fd.Name, t)}
			}
		}
		start, ok := prog.LabelToIndex[fd.Name]
		if !ok {
			return nil, &CodegenError{Message: fmt.Sprintf("no TAC label recorded for function %q", fd.Name)}
		}
		end := len(prog.Code)
		if i+1 < len(src.FunDefs) {
			if next, ok := prog.LabelToIndex[src.FunDefs[i+1].Name]; ok {
				end = next
			}
		}
		if err := buildFunction(out, fd.Name, prog.Code[start:end], start, indexToLabels); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func buildFunction(out *Program, name string, body []tac.Instruction, start int, indexToLabels map[int][]string) error {
	if len(body) == 0 {
		return &CodegenError{Message: fmt.Sprintf("function %q has an empty TAC body", name)}
	}
	params, ok := body[0].(*tac.Params)
	if !ok {
		return &CodegenError{Message: fmt.Sprintf("function %q does not begin with a Params instruction", name)}
	}

	ctx := &funcCtx{prog: out, slots: map[string]*Mem{}, slotOwner: map[*tac.Mem]string{}}
	nextSlot := 1
	assign := func(r string) {
		if _, ok := ctx.slots[r]; ok {
			return
		}
		ctx.slots[r] = &Mem{Base: "rbp", Offset: -8*nextSlot - 8}
		nextSlot++
	}
	for _, r := range params.Registers {
		assign(r.Name)
	}
	for _, ins := range body {
		for _, r := range registersIn(ins) {
			assign(r.Name)
		}
		if p, ok := ins.(*tac.Push); ok {
			if r, ok := p.Val.(tac.Register); ok {
				ctx.slotOwner[p.Slot] = r.Name
			}
		}
	}
	localsCount := nextSlot - 1

	out.LabelToIndex[name] = len(out.Code)
	out.Code = append(out.Code, &Push{Val: Reg{"rbp"}})
	out.Code = append(out.Code, &Mov{Dest: Reg{"rbp"}, Src: Reg{"rsp"}})
	rbxSlot := &Mem{Base: "rbp", Offset: -8}
	out.Code = append(out.Code, &Mov{Dest: rbxSlot, Src: Reg{"rbx"}})
	out.Code = append(out.Code, &Arith{Op: "sub", Dest: Reg{"rsp"}, Src: Imm(16 * int64(localsCount))})

	for i, r := range params.Registers {
		dest := ctx.slots[r.Name]
		if i < len(argRegs) {
			out.Code = append(out.Code, &Mov{Dest: dest, Src: Reg{argRegs[i]}})
		} else {
			stackLoc := &Mem{Base: "rbp", Offset: (i-len(argRegs))*8 + 16}
			out.Code = append(out.Code, &Mov{Dest: Reg{"rbx"}, Src: stackLoc})
			out.Code = append(out.Code, &Mov{Dest: dest, Src: Reg{"rbx"}})
		}
	}

	for i, ins := range body {
		if i == 0 {
			continue // Params already accounted for in the prologue above
		}
		for _, label := range indexToLabels[start+i] {
			if label == name {
				continue
			}
			out.LabelToIndex[label] = len(out.Code)
		}
		if err := ctx.translate(ins); err != nil {
			return err
		}
	}
	for _, label := range indexToLabels[start+len(body)] {
		out.LabelToIndex[label] = len(out.Code)
	}

	out.Code = append(out.Code, &Mov{Dest: Reg{"rbx"}, Src: rbxSlot})
	out.Code = append(out.Code, &Leave{})
	out.Code = append(out.Code, &Ret{})
	return nil
}

// registersIn returns every virtual register an instruction reads or
// writes, including ones nested inside a Mem base, so every one of them
// can be assigned a stack slot before translation begins.
func registersIn(ins tac.Instruction) []tac.Register {
	var regs []tac.Register
	add := func(op tac.Operand) {
		switch o := op.(type) {
		case tac.Register:
			regs = append(regs, o)
		case *tac.Mem:
			if r, ok := o.Base.(tac.Register); ok {
				regs = append(regs, r)
			}
		}
	}
	switch v := ins.(type) {
	case *tac.Move:
		add(v.Dest)
		add(v.Src)
	case *tac.JumpIf:
		add(v.Cond)
	case *tac.JumpIfNot:
		add(v.Cond)
	case *tac.Params:
		for _, r := range v.Registers {
			regs = append(regs, r)
		}
	case *tac.Call:
		regs = append(regs, v.Out)
		for _, a := range v.Args {
			add(a)
		}
	case *tac.Return:
		add(v.Src)
	case *tac.Push:
		add(v.Val)
	case *tac.Pop:
		add(v.Dest)
	case *tac.Arithmetic:
		regs = append(regs, v.Dest)
		add(v.Left)
		add(v.Right)
	case *tac.Convert:
		regs = append(regs, v.Dest)
		add(v.Src)
	}
	return regs
}

func (ctx *funcCtx) resolveRead(op tac.Operand) (Operand, error) {
	switch o := op.(type) {
	case tac.IntConst:
		return Imm(o), nil
	case tac.FloatConst:
		return nil, &CodegenError{Message: "floating-point operand is not supported by the native x86 backend"}
	case tac.Register:
		return ctx.slotOf(o.Name), nil
	case *tac.Mem:
		addr, err := ctx.resolveRead(o.Base)
		if err != nil {
			return nil, err
		}
		reg := ctx.stage(addr)
		return &Mem{Base: reg.String(), Offset: o.Offset}, nil
	case tac.AddressOf:
		owner, ok := ctx.slotOwner[o.Slot]
		if !ok {
			return nil, &CodegenError{Message: "address-of operand has no resolvable owning register"}
		}
		ctx.emit(&Lea{Dest: Reg{"rbx"}, Src: ctx.slotOf(owner)})
		return Reg{"rbx"}, nil
	default:
		return nil, &CodegenError{Message: fmt.Sprintf("unhandled TAC operand %T", op)}
	}
}

func (ctx *funcCtx) translate(ins tac.Instruction) error {
	switch v := ins.(type) {
	case *tac.Move:
		return ctx.translateMove(v.Dest, v.Src)

	case *tac.Jump:
		ctx.emit(&Jmp{Label: v.Label})
		return nil

	case *tac.JumpIf:
		cond, err := ctx.resolveRead(v.Cond)
		if err != nil {
			return err
		}
		ctx.emit(&Arith{Op: "cmp", Dest: cond, Src: Imm(0)})
		ctx.emit(&Jne{Label: v.Label})
		return nil

	case *tac.JumpIfNot:
		cond, err := ctx.resolveRead(v.Cond)
		if err != nil {
			return err
		}
		ctx.emit(&Arith{Op: "cmp", Dest: cond, Src: Imm(0)})
		ctx.emit(&Je{Label: v.Label})
		return nil

	case *tac.Call:
		for i := len(v.Args) - 1; i >= 0; i-- {
			val, err := ctx.resolveRead(v.Args[i])
			if err != nil {
				return err
			}
			if i >= len(argRegs) {
				ctx.emit(&Push{Val: val})
			} else {
				ctx.emit(&Mov{Dest: Reg{argRegs[i]}, Src: val})
			}
		}
		ctx.emit(&Call{Target: v.Target})
		if extra := len(v.Args) - len(argRegs); extra > 0 {
			ctx.emit(&Arith{Op: "add", Dest: Reg{"rsp"}, Src: Imm(int64(8 * extra))})
		}
		ctx.emit(&Mov{Dest: ctx.slotOf(v.Out.Name), Src: Reg{"rax"}})
		return nil

	case *tac.Params:
		return &CodegenError{Message: "params reached mid-function — it must only be the function's first instruction"}

	case *tac.Return:
		src, err := ctx.resolveRead(v.Src)
		if err != nil {
			return err
		}
		ctx.emit(&Mov{Dest: Reg{"rax"}, Src: src})
		return nil

	case *tac.Push:
		// No-op: every TAC register already owns a permanent stack slot
		// (see buildFunction's pre-scan), so "address of" is resolved
		// lazily at the point of use — see resolveRead's AddressOf case —
		// rather than needing an actual runtime push here.
		return nil

	case *tac.Pop:
		return &CodegenError{Message: "pop reached the x86 backend — this builder never emits it"}

	case *tac.Arithmetic:
		return ctx.translateArithmetic(v)

	case *tac.Convert:
		return &CodegenError{Message: "floating-point conversion is not supported by the native x86 backend"}

	default:
		return &CodegenError{Message: fmt.Sprintf("unhandled TAC instruction %T", ins)}
	}
}

func (ctx *funcCtx) translateMove(destOp, srcOp tac.Operand) error {
	if memDest, ok := destOp.(*tac.Mem); ok {
		addr, err := ctx.resolveRead(memDest.Base)
		if err != nil {
			return err
		}
		ctx.emit(&Mov{Dest: Reg{"rax"}, Src: addr})
		dest := &Mem{Base: "rax", Offset: memDest.Offset}

		src, err := ctx.resolveRead(srcOp)
		if err != nil {
			return err
		}
		if _, isMem := src.(*Mem); isMem {
			ctx.emit(&Mov{Dest: Reg{"rbx"}, Src: src})
			src = Reg{"rbx"}
		}
		ctx.emit(&Mov{Dest: dest, Src: src})
		return nil
	}

	reg, ok := destOp.(tac.Register)
	if !ok {
		return &CodegenError{Message: fmt.Sprintf("operand %T is not a valid move destination", destOp)}
	}
	src, err := ctx.resolveRead(srcOp)
	if err != nil {
		return err
	}
	if _, isMem := src.(*Mem); isMem {
		ctx.emit(&Mov{Dest: Reg{"rbx"}, Src: src})
		src = Reg{"rbx"}
	}
	ctx.emit(&Mov{Dest: ctx.slotOf(reg.Name), Src: src})
	return nil
}

func (ctx *funcCtx) translateArithmetic(v *tac.Arithmetic) error {
	left, err := ctx.resolveRead(v.Left)
	if err != nil {
		return err
	}
	right, err := ctx.resolveRead(v.Right)
	if err != nil {
		return err
	}
	dest := ctx.slotOf(v.Dest.Name)

	if setCond, isCmp := comparisonSetCC[v.Op]; isCmp {
		if _, leftIsMem := left.(*Mem); leftIsMem {
			if _, rightIsMem := right.(*Mem); rightIsMem {
				left = ctx.stage(left)
			}
		}
		ctx.emit(&Arith{Op: "xor", Dest: Reg{"rax"}, Src: Reg{"rax"}})
		ctx.emit(&Arith{Op: "cmp", Dest: left, Src: right})
		ctx.emit(&SetCC{Cond: setCond, Dest: Reg{"al"}})
		ctx.emit(&Mov{Dest: dest, Src: Reg{"rax"}})
		return nil
	}

	if v.Op == "div" {
		ctx.emit(&Mov{Dest: Reg{"rax"}, Src: left})
		ctx.emit(&Cqo{})
		divisor := right
		if _, isImm := right.(Imm); isImm {
			// idiv has no immediate form.
			ctx.emit(&Mov{Dest: Reg{"rbx"}, Src: right})
			divisor = Reg{"rbx"}
		}
		ctx.emit(&Idiv{Src: divisor})
		ctx.emit(&Mov{Dest: dest, Src: Reg{"rax"}})
		return nil
	}

	ctx.emit(&Mov{Dest: Reg{"rbx"}, Src: left})
	ctx.emit(&Arith{Op: v.Op, Dest: Reg{"rbx"}, Src: right})
	ctx.emit(&Mov{Dest: dest, Src: Reg{"rbx"}})
	return nil
}
