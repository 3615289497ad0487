package vm

import (
	"github.com/fraudproof/stepvm/external"
	"github.com/fraudproof/stepvm/statework"
	"github.com/fraudproof/stepvm/step"
	"github.com/holiman/uint256"
)

func init() {
	runTable[STOP] = opStop
	runTable[POP] = opPop
	runTable[MLOAD] = opMload
	runTable[MSTORE] = opMstore
	runTable[MSTORE8] = opMstore8
	runTable[MSIZE] = opMsize
	runTable[PC] = opPC
	runTable[GAS] = opGas
	runTable[JUMP] = opJump
	runTable[JUMPI] = opJumpi
	runTable[JUMPDEST] = advanceOnly

	runTable[PUSH0] = opPush(0)
	for i := 0; i < 32; i++ {
		runTable[PUSH1+OpCode(i)] = opPush(i + 1)
	}
	for i := 0; i < 16; i++ {
		runTable[DUP1+OpCode(i)] = opDup(i)
		runTable[SWAP1+OpCode(i)] = opSwap(i + 1)
	}
}

func advanceOnly(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	return advance(s)
}

func opStop(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Control.SubIndex = 0
	return setFail(s, step.TxFeesPost)
}

func opPop(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Stack.Pop()
	return advance(s)
}

func opMload(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	offV := s.Contract.Stack.Pop()
	offset := toU64Saturating(&offV)
	b := readMemory(&s.Contract.Memory, offset, 32)
	var v [32]byte
	copy(v[:], b)
	s.Contract.Stack.Push(new(uint256.Int).SetBytes32(v[:]))
	return advance(s)
}

func opMstore(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	offV := s.Contract.Stack.Pop()
	offset := toU64Saturating(&offV)
	value := s.Contract.Stack.Pop()
	b := value.Bytes32()
	writeMemory(&s.Contract.Memory, offset, b[:])
	return advance(s)
}

func opMstore8(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	offV := s.Contract.Stack.Pop()
	offset := toU64Saturating(&offV)
	value := s.Contract.Stack.Pop()
	b := value.Bytes32()
	writeMemory(&s.Contract.Memory, offset, b[31:32])
	return advance(s)
}

func opMsize(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Stack.Push(uint256.NewInt(uint64(s.Contract.Memory.Len())))
	return advance(s)
}

func opPC(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Stack.Push(uint256.NewInt(s.Contract.PC))
	return advance(s)
}

func opGas(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Stack.Push(uint256.NewInt(s.Contract.Gas))
	return advance(s)
}

func opJump(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	dest := s.Contract.Stack.Pop()
	return jumpTo(s, &dest)
}

func opJumpi(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	dest, cond := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	if cond.IsZero() {
		return advance(s)
	}
	return jumpTo(s, &dest)
}

func jumpTo(s *step.Step, dest *uint256.Int) error {
	if !dest.IsUint64() {
		return setFail(s, step.ErrInvalidJump)
	}
	pc := dest.Uint64()
	if pc >= uint64(len(s.Contract.Code)) || OpCode(s.Contract.Code[pc]) != JUMPDEST {
		return setFail(s, step.ErrInvalidJump)
	}
	s.Contract.PC = pc
	s.Control.ExecMode = step.OpcodeLoad
	return nil
}

func opPush(n int) runHandler {
	return func(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
		c := &s.Contract
		start := c.PC + 1
		data := sliceWithZeroPad(c.Code, start, uint64(n))
		s.Contract.Stack.Push(new(uint256.Int).SetBytes(data))
		c.PC = start + uint64(n)
		s.Control.ExecMode = step.OpcodeLoad
		return nil
	}
}

func opDup(topOffset int) runHandler {
	return func(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
		v := *s.Contract.Stack.Peek(topOffset)
		s.Contract.Stack.Push(&v)
		return advance(s)
	}
}

func opSwap(depth int) runHandler {
	return func(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
		top := s.Contract.Stack.Peek(0)
		other := s.Contract.Stack.Peek(depth)
		*top, *other = *other, *top
		return advance(s)
	}
}
