package vm

import (
	"math"

	"github.com/fraudproof/stepvm/step"
)

// memSizeTable maps an opcode to the function computing the memory size
// (in bytes) that opcode needs before it runs, given its operand stack.
// Opcodes absent from the table don't touch memory.
var memSizeTable [256]func(*step.Stack) uint64

func init() {
	memSizeTable[MLOAD] = memAt(0, 32)
	memSizeTable[MSTORE] = memAt(0, 32)
	memSizeTable[MSTORE8] = memAt(0, 1)
	memSizeTable[KECCAK256] = memRange(0, 1)
	memSizeTable[CALLDATACOPY] = memRange(0, 2)
	memSizeTable[CODECOPY] = memRange(0, 2)
	memSizeTable[RETURNDATACOPY] = memRange(0, 2)
	memSizeTable[EXTCODECOPY] = memRange(1, 3)
	memSizeTable[RETURN] = memRange(0, 1)
	memSizeTable[REVERT] = memRange(0, 1)
	memSizeTable[CREATE] = memRange(1, 2)
	memSizeTable[CREATE2] = memRange(1, 2)
	for i := 0; i < 5; i++ {
		memSizeTable[LOG0+OpCode(i)] = memRange(0, 1)
	}
	memSizeTable[CALL] = memCall(3, 4, 5, 6)
	memSizeTable[CALLCODE] = memCall(3, 4, 5, 6)
	memSizeTable[DELEGATECALL] = memCall(2, 3, 4, 5)
	memSizeTable[STATICCALL] = memCall(2, 3, 4, 5)
}

// memAt returns a function requiring [offset, offset+width) where offset is
// stack position offPos (0 = top).
func memAt(offPos int, width uint64) func(*step.Stack) uint64 {
	return func(s *step.Stack) uint64 {
		return addSat(toU64Saturating(s.Peek(offPos)), width)
	}
}

// memRange returns a function requiring [offset, offset+size) where offset
// and size are read from stack positions offPos and sizePos.
func memRange(offPos, sizePos int) func(*step.Stack) uint64 {
	return func(s *step.Stack) uint64 {
		size := toU64Saturating(s.Peek(sizePos))
		if size == 0 {
			return 0
		}
		return addSat(toU64Saturating(s.Peek(offPos)), size)
	}
}

// memCall returns a function requiring the larger of the CALL-family
// argument and return-data memory windows.
func memCall(argsOffPos, argsSizePos, retOffPos, retSizePos int) func(*step.Stack) uint64 {
	return func(s *step.Stack) uint64 {
		argsEnd := uint64(0)
		if argsSize := toU64Saturating(s.Peek(argsSizePos)); argsSize != 0 {
			argsEnd = addSat(toU64Saturating(s.Peek(argsOffPos)), argsSize)
		}
		retEnd := uint64(0)
		if retSize := toU64Saturating(s.Peek(retSizePos)); retSize != 0 {
			retEnd = addSat(toU64Saturating(s.Peek(retOffPos)), retSize)
		}
		if argsEnd > retEnd {
			return argsEnd
		}
		return retEnd
	}
}

func addSat(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return math.MaxUint64
	}
	return sum
}

func toU64Saturating(v interface{ Uint64() uint64 }) uint64 {
	type overflower interface{ IsUint64() bool }
	if ov, ok := v.(overflower); ok && !ov.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}
