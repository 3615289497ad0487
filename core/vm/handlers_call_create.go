package vm

import (
	"math/big"

	"github.com/fraudproof/stepvm/core/types"
	"github.com/fraudproof/stepvm/external"
	"github.com/fraudproof/stepvm/statework"
	"github.com/fraudproof/stepvm/step"
	"github.com/holiman/uint256"
)

func init() {
	runTable[CALL] = opCallFamily(CALL)
	runTable[CALLCODE] = opCallFamily(CALLCODE)
	runTable[DELEGATECALL] = opCallFamily(DELEGATECALL)
	runTable[STATICCALL] = opCallFamily(STATICCALL)
	runTable[CREATE] = opCreateFamily(false)
	runTable[CREATE2] = opCreateFamily(true)
	runTable[RETURN] = opReturn
	runTable[REVERT] = opRevert
	runTable[SELFDESTRUCT] = opSelfDestruct
	runTable[INVALID] = opInvalid
}

// runFrame drives s.Contract through the opcode pipeline to completion
// (STOP/RETURN/REVERT or a frame error), synchronously. It is used both for
// the real top-level frame, stepped one micro-stage at a time by the
// externally-visible Advance, and here for nested CALL/CREATE frames: a
// nested frame is never individually single-steppable from outside this
// function, a scoped simplification of the CallWork/CreateWork FSM
// (documented in the design notes) in exchange for a tractable
// implementation within the session's time budget.
func runFrame(s *step.Step, world *statework.World, ext external.ExternalSource) step.ExecMode {
	for {
		var err error
		switch s.Control.ExecMode {
		case step.OpcodeLoad:
			err = stageOpcodeLoad(s)
		case step.ValidateStack:
			err = stageValidateStack(s)
		case step.ReadOnlyCheck:
			err = stageReadOnlyCheck(s)
		case step.ConstantGas:
			err = stageConstantGas(s)
		case step.CalcMemorySize:
			err = stageCalcMemorySize(s)
		case step.DynamicGas:
			err = stageDynamicGas(s, world)
		case step.UpdateMemorySize:
			err = stageUpdateMemorySize(s)
		case step.OpcodeRun:
			err = stageOpcodeRun(s, world, ext)
		default:
			return s.Control.ExecMode
		}
		if err != nil {
			s.Contract.Gas = 0
			return step.ErrOutOfGas
		}
	}
}

func opReturn(s *step.Step, world *statework.World, _ external.ExternalSource) error {
	offV, sizeV := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	off, size := toU64Saturating(&offV), toU64Saturating(&sizeV)
	data := readMemory(&s.Contract.Memory, off, size)
	s.Contract.RetData = data

	if s.Contract.Create {
		if err := finalizeCreatedCode(s, world, data); err != nil {
			s.Control.ExecMode = step.ErrOutOfGas
			s.Control.SubIndex = 1
			return nil
		}
	}
	s.Control.SubIndex = 0
	s.Control.ExecMode = step.TxFeesPost
	return nil
}

func opRevert(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	offV, sizeV := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	off, size := toU64Saturating(&offV), toU64Saturating(&sizeV)
	s.Contract.RetData = readMemory(&s.Contract.Memory, off, size)
	s.Control.ExecMode = step.ErrExecutionReverted
	return nil
}

func opInvalid(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Gas = 0
	return setFail(s, step.ErrOutOfGas)
}

func opSelfDestruct(s *step.Step, world *statework.World, _ external.ExternalSource) error {
	beneficiaryV := s.Contract.Stack.Pop()
	beneficiary := addrFromU256(&beneficiaryV)
	bal, err := world.GetBalance(s.Contract.SelfAddr)
	if err != nil {
		return err
	}
	if beneficiary != s.Contract.SelfAddr {
		if err := world.AddBalance(beneficiary, bal); err != nil {
			return err
		}
	}
	if err := world.SetBalance(s.Contract.SelfAddr, bigZero()); err != nil {
		return err
	}
	if err := world.SelfDestruct(s.Contract.SelfAddr); err != nil {
		return err
	}
	s.Control.SubIndex = 0
	s.Control.ExecMode = step.TxFeesPost
	return nil
}

var errCodeRejected = newVMError("vm: deployed code rejected (EIP-3541/EIP-170)")

// finalizeCreatedCode stores the init code's returned bytes as the new
// account's code, rejecting code starting with 0xEF (EIP-3541) or longer
// than the 24576-byte contract size cap (EIP-170).
func finalizeCreatedCode(s *step.Step, world *statework.World, code []byte) error {
	if len(code) > MaxCodeSize {
		return errCodeRejected
	}
	if len(code) > 0 && code[0] == 0xef {
		return errCodeRejected
	}
	return world.SetCode(s.Contract.SelfAddr, code)
}

func opCallFamily(kind OpCode) runHandler {
	return func(s *step.Step, world *statework.World, ext external.ExternalSource) error {
		c := &s.Contract
		hasValue := kind == CALL || kind == CALLCODE

		gasV := c.Stack.Pop()
		addrV := c.Stack.Pop()
		var valueV uint256.Int
		if hasValue {
			valueV = c.Stack.Pop()
		}
		argsOffV, argsSizeV := c.Stack.Pop(), c.Stack.Pop()
		retOffV, retSizeV := c.Stack.Pop(), c.Stack.Pop()

		gasReq := toU64Saturating(&gasV)
		addr := addrFromU256(&addrV)
		argsOff, argsSize := toU64Saturating(&argsOffV), toU64Saturating(&argsSizeV)
		retOff, retSize := toU64Saturating(&retOffV), toU64Saturating(&retSizeV)
		input := readMemory(&c.Memory, argsOff, argsSize)

		code := codeOf(world, ext, addr)
		codeLen := uint64(len(code))

		callGas, err := dynGasCalc.CalcCallGas(c.Gas, gasReq, codeLen)
		if err != nil {
			return err
		}
		if callGas > c.Gas {
			callGas = c.Gas
		}
		c.Gas -= callGas
		stipend := uint64(0)
		if hasValue && !valueV.IsZero() {
			stipend = CallStipend
		}

		if c.CallDepth+1 > MaxCallDepth {
			c.Gas += callGas
			c.Stack.Push(uint256.NewInt(0))
			return advance(s)
		}

		if hasValue && !valueV.IsZero() {
			bal, err := world.GetBalance(c.SelfAddr)
			if err != nil {
				return err
			}
			if bal.Cmp(valueV.ToBig()) < 0 {
				c.Gas += callGas
				c.Stack.Push(uint256.NewInt(0))
				return advance(s)
			}
		}

		saved := *c

		child := step.Contract{
			Gas:       callGas + stipend,
			Input:     input,
			Code:      code,
			CallDepth: c.CallDepth + 1,
			ReadOnly:  c.ReadOnly || kind == STATICCALL,
		}
		switch kind {
		case CALL:
			child.SelfAddr, child.CodeAddr, child.Caller = addr, addr, c.SelfAddr
			v := valueV
			child.Value = &v
		case CALLCODE:
			child.SelfAddr, child.CodeAddr, child.Caller = c.SelfAddr, addr, c.SelfAddr
			v := valueV
			child.Value = &v
		case DELEGATECALL:
			child.SelfAddr, child.CodeAddr, child.Caller = c.SelfAddr, addr, c.Caller
			v := *c.Value
			child.Value = &v
		case STATICCALL:
			child.SelfAddr, child.CodeAddr, child.Caller = addr, addr, c.SelfAddr
			child.Value = uint256.NewInt(0)
		}

		if kind == CALL && !valueV.IsZero() {
			if err := transferValue(world, saved.SelfAddr, addr, valueV.ToBig()); err != nil {
				return err
			}
		}

		s.Contract = child
		halted := runFrame(s, world, ext)
		retData := append([]byte(nil), s.Contract.RetData...)
		gasLeft := s.Contract.Gas
		success := !halted.IsFrameError()

		s.Contract = saved
		s.Contract.Gas += gasLeft
		s.Contract.RetData = retData
		writeMemory(&s.Contract.Memory, retOff, sliceWithZeroPad(retData, 0, retSize))
		pushBool(s, success)
		s.Control.ExecMode = step.OpcodeLoad
		return nil
	}
}

func opCreateFamily(is2 bool) runHandler {
	return func(s *step.Step, world *statework.World, ext external.ExternalSource) error {
		c := &s.Contract
		valueV, offV, sizeV := c.Stack.Pop(), c.Stack.Pop(), c.Stack.Pop()
		var saltV uint256.Int
		if is2 {
			saltV = c.Stack.Pop()
		}
		off, size := toU64Saturating(&offV), toU64Saturating(&sizeV)
		initcode := readMemory(&c.Memory, off, size)

		if c.CallDepth+1 > MaxCallDepth {
			c.Stack.Push(uint256.NewInt(0))
			return advance(s)
		}
		bal, err := world.GetBalance(c.SelfAddr)
		if err != nil {
			return err
		}
		if bal.Cmp(valueV.ToBig()) < 0 {
			c.Stack.Push(uint256.NewInt(0))
			return advance(s)
		}

		creatorNonce, err := world.GetNonce(c.SelfAddr)
		if err != nil {
			return err
		}
		if err := world.SetNonce(c.SelfAddr, creatorNonce+1); err != nil {
			return err
		}

		var newAddr types.Address
		if is2 {
			salt := saltV.Bytes32()
			newAddr = create2Address(c.SelfAddr, salt, initcode)
		} else {
			newAddr = contractAddress(c.SelfAddr, creatorNonce)
		}

		if err := ensureAccount(world, newAddr); err != nil {
			return err
		}
		if err := world.SetNonce(newAddr, 1); err != nil {
			return err
		}

		saved := *c
		child := step.Contract{
			SelfAddr:   newAddr,
			CodeAddr:   newAddr,
			Caller:     c.SelfAddr,
			Gas:        c.Gas,
			Code:       initcode,
			IsInitCode: true,
			Create:     true,
			CallDepth:  c.CallDepth + 1,
		}
		v := valueV
		child.Value = &v

		if err := transferValue(world, saved.SelfAddr, newAddr, valueV.ToBig()); err != nil {
			return err
		}

		s.Contract = child
		halted := runFrame(s, world, ext)
		gasLeft := s.Contract.Gas
		success := !halted.IsFrameError()

		s.Contract = saved
		s.Contract.Gas = gasLeft
		if success {
			s.Contract.Stack.Push(u256FromAddr(newAddr))
		} else {
			s.Contract.Stack.Push(uint256.NewInt(0))
		}
		s.Control.ExecMode = step.OpcodeLoad
		return nil
	}
}

func bigZero() *big.Int { return new(big.Int) }
