package vm

import (
	"github.com/fraudproof/stepvm/external"
	"github.com/fraudproof/stepvm/statework"
	"github.com/fraudproof/stepvm/step"
	"github.com/holiman/uint256"
)

func init() {
	runTable[LT] = opLt
	runTable[GT] = opGt
	runTable[SLT] = opSlt
	runTable[SGT] = opSgt
	runTable[EQ] = opEq
	runTable[ISZERO] = opIsZero
	runTable[AND] = opAnd
	runTable[OR] = opOr
	runTable[XOR] = opXor
	runTable[NOT] = opNot
	runTable[BYTE] = opByte
	runTable[SHL] = opShl
	runTable[SHR] = opShr
	runTable[SAR] = opSar
}

func pushBool(s *step.Step, v bool) {
	if v {
		s.Contract.Stack.Push(uint256.NewInt(1))
	} else {
		s.Contract.Stack.Push(uint256.NewInt(0))
	}
}

func opLt(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	pushBool(s, x.Lt(&y))
	return advance(s)
}

func opGt(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	pushBool(s, x.Gt(&y))
	return advance(s)
}

func opSlt(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	pushBool(s, x.Slt(&y))
	return advance(s)
}

func opSgt(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	pushBool(s, x.Sgt(&y))
	return advance(s)
}

func opEq(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	pushBool(s, x.Eq(&y))
	return advance(s)
}

func opIsZero(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x := s.Contract.Stack.Pop()
	pushBool(s, x.IsZero())
	return advance(s)
}

func opAnd(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	z.And(&x, &y)
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opOr(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	z.Or(&x, &y)
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opXor(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	z.Xor(&x, &y)
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opNot(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x := s.Contract.Stack.Pop()
	var z uint256.Int
	z.Not(&x)
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opByte(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	n, val := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	s.Contract.Stack.Push(val.Byte(&n))
	return advance(s)
}

func opShl(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	shift, value := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	if shift.LtUint64(256) {
		z.Lsh(&value, uint(shift.Uint64()))
	}
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opShr(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	shift, value := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	if shift.LtUint64(256) {
		z.Rsh(&value, uint(shift.Uint64()))
	}
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opSar(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	shift, value := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	if shift.GtUint64(256) {
		if value.Sign() >= 0 {
			z.Clear()
		} else {
			z.SetAllOne()
		}
	} else {
		z.SRsh(&value, uint(shift.Uint64()))
	}
	s.Contract.Stack.Push(&z)
	return advance(s)
}
