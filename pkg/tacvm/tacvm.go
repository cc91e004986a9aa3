// Package tacvm implements a reference interpreter over pkg/tac's
// instruction set: the same register-file-plus-sparse-memory execution
// model the checked AST is expected to have, used to validate TAC
// lowering end-to-end without going through the x86 backend.
package tacvm

import (
	"fmt"

	"cminor.dev/compiler/pkg/tac"
)

// entrySentinel is the synthetic caller name seeded before execution so
// that main's own `ret` pops a real (if synthetic) frame instead of
// underflowing an empty caller stack.
const entrySentinel = "__entry__"

// VM interprets a tac.Program starting at its "main" label.
type VM struct {
	program *tac.Program
	pc      int

	memory map[int64]any
	regs   map[string]any

	currentFunction string
	callerStack     []string
	callArgVals     []any
	retRegisters    []tac.Register
}

// New returns a VM with sp=bp=0xFFFF, ra=0, rt=0 and empty memory, ready
// to Run over program.
func New(program *tac.Program) *VM {
	return &VM{
		program: program,
		memory:  map[int64]any{},
		regs: map[string]any{
			"sp": int64(0xFFFF),
			"bp": int64(0xFFFF),
			"ra": int64(0),
			"rt": int64(0),
		},
	}
}

// Registers exposes the live register file for inspection after Run.
func (vm *VM) Registers() map[string]any { return vm.regs }

// Memory exposes the live sparse memory map for inspection after Run.
func (vm *VM) Memory() map[int64]any { return vm.memory }

// Run executes from the "main" label until control returns past the end
// of the instruction stream, leaving main's return value in the "rt"
// register. A synthetic entry frame is seeded first: the reference
// interpreter this is grounded on (original_source/ir/ir_tacvm.py) has no
// such seeding, so `pop_stack_frame` underflows an empty caller-name stack
// the instant `main` reaches an explicit `ret` — which every nontrivial
// program does. Seeding `ra` to one-past-the-end of the code and a
// sentinel caller name makes main's `ret` terminate the run loop cleanly
// instead.
func (vm *VM) Run() error {
	entry, ok := vm.program.LabelToIndex["main"]
	if !ok {
		return fmt.Errorf("tacvm: no main function defined")
	}

	vm.program.FunLocals[entrySentinel] = nil
	vm.currentFunction = "main"
	vm.callerStack = []string{entrySentinel}
	vm.retRegisters = []tac.Register{{Name: "rt"}}
	vm.regs["ra"] = int64(len(vm.program.Code))
	vm.pc = entry

	for vm.pc >= 0 && vm.pc < len(vm.program.Code) {
		if err := vm.step(); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) setPCBefore(label string) error {
	idx, ok := vm.program.LabelToIndex[label]
	if !ok {
		return fmt.Errorf("tacvm: jump target %q has no recorded label", label)
	}
	// -1 to counter the unconditional pc++ every step ends with.
	vm.pc = idx - 1
	return nil
}

func (vm *VM) step() error {
	ins := vm.program.Code[vm.pc]

	switch in := ins.(type) {
	case *tac.Move:
		vm.storeVal(in.Dest, vm.getSrcVal(in.Src))

	case *tac.Jump:
		if err := vm.setPCBefore(in.Label); err != nil {
			return err
		}

	case *tac.JumpIf:
		if !isZero(vm.getSrcVal(in.Cond)) {
			if err := vm.setPCBefore(in.Label); err != nil {
				return err
			}
		}

	case *tac.JumpIfNot:
		if isZero(vm.getSrcVal(in.Cond)) {
			if err := vm.setPCBefore(in.Label); err != nil {
				return err
			}
		}

	case *tac.Call:
		vm.pushStackFrame()
		vm.currentFunction = in.Target
		vm.retRegisters = append(vm.retRegisters, in.Out)
		for _, arg := range in.Args {
			vm.callArgVals = append(vm.callArgVals, vm.getSrcVal(arg))
		}
		if err := vm.setPCBefore(in.Target); err != nil {
			return err
		}

	case *tac.Params:
		for i := len(in.Registers) - 1; i >= 0; i-- {
			n := len(vm.callArgVals)
			vm.regs[in.Registers[i].Name] = vm.callArgVals[n-1]
			vm.callArgVals = vm.callArgVals[:n-1]
		}

	case *tac.Return:
		if len(vm.retRegisters) > 0 {
			n := len(vm.retRegisters)
			dest := vm.retRegisters[n-1]
			vm.retRegisters = vm.retRegisters[:n-1]
			vm.regs[dest.Name] = vm.getSrcVal(in.Src)
		}
		vm.pc = vm.popStackFrame()

	case *tac.Push:
		addr := vm.regs["sp"].(int64)
		in.Slot.Base = tac.IntConst(addr)
		in.Slot.Offset = 0
		vm.memory[addr] = vm.getSrcVal(in.Val)
		vm.regs["sp"] = addr - 1

	case *tac.Pop:
		sp := vm.regs["sp"].(int64)
		vm.storeVal(in.Dest, vm.memory[sp])
		vm.regs["sp"] = sp + 1

	case *tac.Arithmetic:
		result, err := vm.runALU(in.Op, vm.getSrcVal(in.Left), vm.getSrcVal(in.Right))
		if err != nil {
			return err
		}
		vm.regs[in.Dest.Name] = result

	case *tac.Convert:
		val := toFloat(vm.getSrcVal(in.Src))
		if in.ToFloat {
			vm.regs[in.Dest.Name] = val
		} else {
			vm.regs[in.Dest.Name] = int64(val)
		}

	default:
		return fmt.Errorf("tacvm: unhandled instruction %T", ins)
	}

	vm.pc++
	return nil
}

// pushStackFrame saves the caller's bp/ra and any already-assigned local
// register values to successive stack slots, then points bp at the new
// frame.
func (vm *VM) pushStackFrame() {
	vm.callerStack = append(vm.callerStack, vm.currentFunction)

	oldBP := vm.regs["bp"].(int64)
	sp := vm.regs["sp"].(int64)
	vm.regs["bp"] = sp
	vm.memory[sp] = oldBP
	vm.regs["sp"] = vm.regs["sp"].(int64) - 1

	vm.memory[vm.regs["bp"].(int64)-1] = vm.regs["ra"]
	vm.regs["sp"] = vm.regs["sp"].(int64) - 1
	vm.regs["ra"] = int64(vm.pc)

	for i, irName := range vm.program.FunLocals[vm.currentFunction] {
		reg, ok := vm.program.VariableToLocation[irName].(tac.Register)
		if !ok {
			continue // escaped to the stack via &, nothing to save here
		}
		val, defined := vm.regs[reg.Name]
		if !defined {
			continue // not yet assigned in this invocation
		}
		bp := vm.regs["bp"].(int64)
		vm.memory[bp-int64(i)-2] = val
		vm.regs["sp"] = vm.regs["sp"].(int64) - 1
	}
}

// popStackFrame restores the caller's locals, ra, bp, and sp, and returns
// the instruction index execution should resume at.
func (vm *VM) popStackFrame() int {
	vm.currentFunction = vm.callerStack[len(vm.callerStack)-1]
	vm.callerStack = vm.callerStack[:len(vm.callerStack)-1]

	for i, irName := range vm.program.FunLocals[vm.currentFunction] {
		reg, ok := vm.program.VariableToLocation[irName].(tac.Register)
		if !ok {
			continue
		}
		if _, defined := vm.regs[reg.Name]; !defined {
			continue
		}
		bp := vm.regs["bp"].(int64)
		vm.regs[reg.Name] = vm.memory[bp-int64(i)-2]
	}

	bp := vm.regs["bp"].(int64)
	returnTo := vm.regs["ra"].(int64)
	vm.regs["ra"] = vm.memory[bp-1]
	vm.regs["bp"] = vm.memory[bp]
	vm.regs["sp"] = vm.regs["bp"]

	return int(returnTo)
}

func (vm *VM) getSrcVal(op tac.Operand) any {
	switch o := op.(type) {
	case nil:
		return nil
	case tac.IntConst:
		return int64(o)
	case tac.FloatConst:
		return float64(o)
	case tac.Register:
		return vm.regs[o.Name]
	case *tac.Mem:
		return vm.memory[vm.toInt(vm.getSrcVal(o.Base))+int64(o.Offset)]
	case tac.AddressOf:
		return vm.toInt(vm.getSrcVal(o.Slot.Base)) + int64(o.Slot.Offset)
	default:
		return nil
	}
}

func (vm *VM) storeVal(dest tac.Operand, value any) {
	switch d := dest.(type) {
	case tac.Register:
		vm.regs[d.Name] = value
	case *tac.Mem:
		vm.memory[vm.toInt(vm.getSrcVal(d.Base))+int64(d.Offset)] = value
	}
}

func (vm *VM) toInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// runALU dispatches arithmetic and comparison opcodes. div always performs
// true (floating-point) division regardless of operand domain — matching
// spec.md §4.5's explicit "div is true division" rather than truncating
// integer division, which is reserved for the x86 backend's `cqo`/`idiv`
// lowering.
func (vm *VM) runALU(op string, left, right any) (any, error) {
	if op == "div" {
		return toFloat(left) / toFloat(right), nil
	}

	lf, lIsFloat := left.(float64)
	rf, rIsFloat := right.(float64)
	if lIsFloat || rIsFloat {
		if !lIsFloat {
			lf = float64(left.(int64))
		}
		if !rIsFloat {
			rf = float64(right.(int64))
		}
		switch op {
		case "add":
			return lf + rf, nil
		case "sub":
			return lf - rf, nil
		case "imul":
			return lf * rf, nil
		case "eq":
			return boolInt(lf == rf), nil
		case "lt":
			return boolInt(lf < rf), nil
		case "lte":
			return boolInt(lf <= rf), nil
		case "gt":
			return boolInt(lf > rf), nil
		case "gte":
			return boolInt(lf >= rf), nil
		default:
			return nil, fmt.Errorf("tacvm: operator %q is not defined over floats", op)
		}
	}

	li, ri := left.(int64), right.(int64)
	switch op {
	case "add":
		return li + ri, nil
	case "sub":
		return li - ri, nil
	case "imul":
		return li * ri, nil
	case "eq":
		return boolInt(li == ri), nil
	case "lt":
		return boolInt(li < ri), nil
	case "lte":
		return boolInt(li <= ri), nil
	case "gt":
		return boolInt(li > ri), nil
	case "gte":
		return boolInt(li >= ri), nil
	case "and":
		return li & ri, nil
	case "or":
		return li | ri, nil
	default:
		return nil, fmt.Errorf("tacvm: unknown operator %q", op)
	}
}

func isZero(v any) bool {
	switch n := v.(type) {
	case int64:
		return n == 0
	case float64:
		return n == 0
	default:
		return true
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
