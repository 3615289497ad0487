package vm

import (
	"github.com/fraudproof/stepvm/external"
	"github.com/fraudproof/stepvm/statework"
	"github.com/fraudproof/stepvm/step"
)

// Advance runs one opcode-pipeline sub-step of s, dispatching on its
// exec_mode through the eight-stage micro-pipeline (§4.5): OpcodeLoad,
// ValidateStack, ReadOnlyCheck, ConstantGas, CalcMemorySize, DynamicGas,
// UpdateMemorySize, OpcodeRun. Each call performs exactly one stage and
// advances s.Control.ExecMode to the next; OpcodeRun executes the opcode's
// handler and either loops back to OpcodeLoad for the next instruction or
// leaves the frame (a frame error mode, or TxFeesPost on STOP/RETURN/
// SELFDESTRUCT; REVERT reaches TxFeesPost through ErrExecutionReverted).
// Advance also runs CallSetup/CreateSetup and the frame-error modes.
func Advance(s *step.Step, world *statework.World, ext external.ExternalSource) error {
	switch s.Control.ExecMode {
	case step.OpcodeLoad:
		return stageOpcodeLoad(s)
	case step.ValidateStack:
		return stageValidateStack(s)
	case step.ReadOnlyCheck:
		return stageReadOnlyCheck(s)
	case step.ConstantGas:
		return stageConstantGas(s)
	case step.CalcMemorySize:
		return stageCalcMemorySize(s)
	case step.DynamicGas:
		return stageDynamicGas(s, world)
	case step.UpdateMemorySize:
		return stageUpdateMemorySize(s)
	case step.OpcodeRun:
		return stageOpcodeRun(s, world, ext)
	case step.CallSetup:
		return stageCallSetup(s, world, ext)
	case step.CreateSetup:
		return stageCreateSetup(s, world, ext)
	case step.ErrExecutionReverted:
		return stageFrameHalt(s, false)
	case step.ErrOutOfGas, step.ErrStackUnderflow, step.ErrStackOverflow,
		step.ErrWriteProtection, step.ErrGasUintOverflow, step.ErrInvalidJump,
		step.ErrReturnDataOOB, step.ErrDepth, step.ErrInsufficientBalance:
		return stageFrameHalt(s, true)
	default:
		return errNotOpcodeMode
	}
}

// stageFrameHalt finalizes a top-level frame error into the block
// pipeline's TxFeesPost hand-off. Nested CALL/CREATE failures never reach
// here: runFrame (handlers_call_create.go) intercepts the same error modes
// synchronously and never lets them escape to the externally-stepped
// dispatch loop. consumeAllGas matches real-EVM semantics: OOG/stack/
// write-protection/jump errors forfeit all remaining gas, while REVERT
// (the only non-consumeAllGas case here) preserves it for TxFeesPost's
// refund math.
func stageFrameHalt(s *step.Step, consumeAllGas bool) error {
	if consumeAllGas {
		s.Contract.Gas = 0
	}
	s.Control.SubIndex = 1
	s.Control.ExecMode = step.TxFeesPost
	return nil
}

func stageOpcodeLoad(s *step.Step) error {
	c := &s.Contract
	if int(c.PC) >= len(c.Code) {
		c.Op = byte(STOP)
	} else {
		c.Op = c.Code[c.PC]
	}
	s.Control.ExecMode = step.ValidateStack
	return nil
}

func stageValidateStack(s *step.Step) error {
	op := OpCode(s.Contract.Op)
	info := opTable[op]
	depth := s.Contract.Stack.Len()
	if depth < info.minStack() {
		s.Control.ExecMode = step.ErrStackUnderflow
		return nil
	}
	if depth+info.stackDelta() > MaxStackDepth {
		s.Control.ExecMode = step.ErrStackOverflow
		return nil
	}
	s.Control.ExecMode = step.ReadOnlyCheck
	return nil
}

func stageReadOnlyCheck(s *step.Step) error {
	op := OpCode(s.Contract.Op)
	if s.Contract.ReadOnly && opTable[op].writesState {
		s.Control.ExecMode = step.ErrWriteProtection
		return nil
	}
	s.Control.ExecMode = step.ConstantGas
	return nil
}

func stageConstantGas(s *step.Step) error {
	op := OpCode(s.Contract.Op)
	cost := opTable[op].constGas
	if s.Contract.Gas < cost {
		s.Control.ExecMode = step.ErrOutOfGas
		return nil
	}
	s.Contract.Gas -= cost
	s.Control.ExecMode = step.CalcMemorySize
	return nil
}

func stageCalcMemorySize(s *step.Step) error {
	op := OpCode(s.Contract.Op)
	if fn := memSizeTable[op]; fn != nil {
		s.Contract.MemoryDesired = fn(&s.Contract.Stack)
	} else {
		s.Contract.MemoryDesired = uint64(s.Contract.Memory.Len())
	}
	s.Control.ExecMode = step.DynamicGas
	return nil
}

func stageUpdateMemorySize(s *step.Step) error {
	if s.Contract.MemoryDesired > uint64(s.Contract.Memory.Len()) {
		s.Contract.Memory.Resize(s.Contract.MemoryDesired)
	}
	s.Control.ExecMode = step.OpcodeRun
	return nil
}
