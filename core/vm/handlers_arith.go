package vm

import (
	"github.com/fraudproof/stepvm/external"
	"github.com/fraudproof/stepvm/statework"
	"github.com/fraudproof/stepvm/step"
	"github.com/holiman/uint256"
)

func init() {
	runTable[ADD] = opAdd
	runTable[MUL] = opMul
	runTable[SUB] = opSub
	runTable[DIV] = opDiv
	runTable[SDIV] = opSDiv
	runTable[MOD] = opMod
	runTable[SMOD] = opSMod
	runTable[ADDMOD] = opAddMod
	runTable[MULMOD] = opMulMod
	runTable[EXP] = opExp
	runTable[SIGNEXTEND] = opSignExtend
}

func opAdd(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	z.Add(&x, &y)
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opMul(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	z.Mul(&x, &y)
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opSub(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	z.Sub(&x, &y)
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opDiv(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	z.Div(&x, &y)
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opSDiv(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	z.SDiv(&x, &y)
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opMod(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	z.Mod(&x, &y)
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opSMod(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	z.SMod(&x, &y)
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opAddMod(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y, m := s.Contract.Stack.Pop(), s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	z.AddMod(&x, &y, &m)
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opMulMod(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	x, y, m := s.Contract.Stack.Pop(), s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	z.MulMod(&x, &y, &m)
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opExp(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	base, exponent := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	z.Exp(&base, &exponent)
	s.Contract.Stack.Push(&z)
	return advance(s)
}

func opSignExtend(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	back, num := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	var z uint256.Int
	z.ExtendSign(&num, &back)
	s.Contract.Stack.Push(&z)
	return advance(s)
}
