package vm

import (
	"github.com/fraudproof/stepvm/core/types"
	"github.com/fraudproof/stepvm/statework"
	"github.com/fraudproof/stepvm/step"
	"github.com/holiman/uint256"
)

var dynGasCalc = NewDefaultGasCalculator()

// stageDynamicGas charges the opcode-specific dynamic cost (memory
// expansion plus any op-specific surcharge) on top of the constant cost
// already charged by stageConstantGas.
//
// Simplification: EIP-2929 cold/warm access-list tracking is not wired
// (see design notes). BALANCE, EXTCODESIZE, EXTCODECOPY, EXTCODEHASH, the
// CALL family and SLOAD always pay the cold price, as constant gas from
// opTable; SSTORE and SELFDESTRUCT are priced here as warm. SSTORE passes
// the slot's pre-write value as both "current" and "original" (no
// per-transaction dirty tracking), so a write to a slot already changed
// earlier in the same transaction is priced as a clean-slot write
// (SstoreSetGas or SstoreResetGas instead of the warm-read cost), and the
// refund CalcSStoreGas returns is discarded.
//
// For EXP, KECCAK256, CREATE, CREATE2 and SELFDESTRUCT, the calculator's
// result includes the opcode's base cost, which stageConstantGas has already
// charged; dynamicOpGas subtracts it so only the surcharge is charged here.
func stageDynamicGas(s *step.Step, world *statework.World) error {
	op := OpCode(s.Contract.Op)
	c := &s.Contract

	memGas := MemoryExpansionGas(uint64(c.Memory.Len()), c.MemoryDesired)

	opGas, err := dynamicOpGas(s, world, op)
	if err != nil {
		s.Control.ExecMode = step.ErrGasUintOverflow
		return nil
	}

	total := memGas + opGas
	if total < memGas { // overflow
		s.Control.ExecMode = step.ErrGasUintOverflow
		return nil
	}
	if c.Gas < total {
		s.Control.ExecMode = step.ErrOutOfGas
		return nil
	}
	c.Gas -= total
	c.MemoryLastGas = memGas
	s.Control.ExecMode = step.UpdateMemorySize
	return nil
}

func dynamicOpGas(s *step.Step, world *statework.World, op OpCode) (uint64, error) {
	st := &s.Contract.Stack
	switch op {
	case EXP:
		exponent := st.Peek(1)
		gas, err := dynGasCalc.CalcExpGas(uint64(byteLen(exponent)))
		return gas - dynGasCalc.Rules.ExpBaseCost, err

	case KECCAK256:
		size := toU64Saturating(st.Peek(1))
		gas, err := dynGasCalc.CalcKeccak256Gas(size)
		return gas - dynGasCalc.Rules.Keccak256BaseCost, err

	case CALLDATACOPY, CODECOPY, RETURNDATACOPY:
		size := toU64Saturating(st.Peek(2))
		return dynGasCalc.CalcCopyGas(size)

	case EXTCODECOPY:
		size := toU64Saturating(st.Peek(3))
		return dynGasCalc.CalcCopyGas(size)

	case LOG0, LOG1, LOG2, LOG3, LOG4:
		topics := int(op - LOG0)
		size := toU64Saturating(st.Peek(1))
		return dynGasCalc.CalcLogGas(topics, size)

	case SSTORE:
		addr := s.Contract.SelfAddr
		slot := types.Hash(st.Peek(0).Bytes32())
		newVal := st.Peek(1).Bytes32()
		current, err := world.StorageRead(addr, slot)
		if err != nil {
			return 0, err
		}
		gas, _, err := dynGasCalc.CalcSStoreGas(current, current, newVal, false)
		if err != nil {
			return 0, err
		}
		return gas, nil

	case CREATE, CREATE2:
		size := toU64Saturating(st.Peek(2))
		gas, err := dynGasCalc.CalcCreateGas(size, op == CREATE2)
		return gas - dynGasCalc.Rules.CreateBaseCost, err

	case CALL, CALLCODE, DELEGATECALL, STATICCALL:
		return 0, nil // gas forwarding handled by the call FSM, not here

	case SELFDESTRUCT:
		gas, err := dynGasCalc.CalcSelfDestructGas(true, false, false)
		return gas - dynGasCalc.Rules.SelfDestructBaseCost, err

	default:
		return 0, nil
	}
}

func byteLen(v *uint256.Int) int {
	b := v.Bytes32()
	for i := 0; i < 32; i++ {
		if b[i] != 0 {
			return 32 - i
		}
	}
	return 0
}
