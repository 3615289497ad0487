package vm

import (
	"github.com/fraudproof/stepvm/crypto"
	"github.com/fraudproof/stepvm/external"
	"github.com/fraudproof/stepvm/statework"
	"github.com/fraudproof/stepvm/step"
	"github.com/holiman/uint256"
)

func init() {
	runTable[ADDRESS] = opAddress
	runTable[BALANCE] = opBalance
	runTable[ORIGIN] = opOrigin
	runTable[CALLER] = opCaller
	runTable[CALLVALUE] = opCallValue
	runTable[CALLDATALOAD] = opCallDataLoad
	runTable[CALLDATASIZE] = opCallDataSize
	runTable[CALLDATACOPY] = opCallDataCopy
	runTable[CODESIZE] = opCodeSize
	runTable[CODECOPY] = opCodeCopy
	runTable[GASPRICE] = opGasPrice
	runTable[EXTCODESIZE] = opExtCodeSize
	runTable[EXTCODECOPY] = opExtCodeCopy
	runTable[RETURNDATASIZE] = opReturnDataSize
	runTable[RETURNDATACOPY] = opReturnDataCopy
	runTable[EXTCODEHASH] = opExtCodeHash
	runTable[BLOCKHASH] = opBlockHash
	runTable[COINBASE] = opCoinbase
	runTable[TIMESTAMP] = opTimestamp
	runTable[NUMBER] = opNumber
	runTable[PREVRANDAO] = opPrevrandao
	runTable[GASLIMIT] = opGasLimit
	runTable[CHAINID] = opChainID
	runTable[SELFBALANCE] = opSelfBalance
	runTable[BASEFEE] = opBaseFee
	runTable[KECCAK256] = opKeccak256
}

func opAddress(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Stack.Push(u256FromAddr(s.Contract.SelfAddr))
	return advance(s)
}

func opBalance(s *step.Step, world *statework.World, _ external.ExternalSource) error {
	top := s.Contract.Stack.Peek(0)
	addr := addrFromU256(top)
	bal, err := world.GetBalance(addr)
	if err != nil {
		return err
	}
	*top = *bigToU256(bal)
	return advance(s)
}

func opOrigin(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Stack.Push(u256FromAddr(s.Tx.CurrentTxNormalized.Signer))
	return advance(s)
}

func opCaller(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Stack.Push(u256FromAddr(s.Contract.Caller))
	return advance(s)
}

func opCallValue(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	v := *s.Contract.Value
	s.Contract.Stack.Push(&v)
	return advance(s)
}

func opCallDataLoad(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	top := s.Contract.Stack.Peek(0)
	offset := toU64Saturating(top)
	data := sliceWithZeroPad(s.Contract.Input, offset, 32)
	*top = *new(uint256.Int).SetBytes(data)
	return advance(s)
}

func opCallDataSize(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Stack.Push(uint256.NewInt(uint64(len(s.Contract.Input))))
	return advance(s)
}

func opCallDataCopy(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	destV, offV, sizeV := s.Contract.Stack.Pop(), s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	dest, off, size := toU64Saturating(&destV), toU64Saturating(&offV), toU64Saturating(&sizeV)
	data := sliceWithZeroPad(s.Contract.Input, off, size)
	writeMemory(&s.Contract.Memory, dest, data)
	return advance(s)
}

func opCodeSize(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Stack.Push(uint256.NewInt(uint64(len(s.Contract.Code))))
	return advance(s)
}

func opCodeCopy(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	destV, offV, sizeV := s.Contract.Stack.Pop(), s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	dest, off, size := toU64Saturating(&destV), toU64Saturating(&offV), toU64Saturating(&sizeV)
	data := sliceWithZeroPad(s.Contract.Code, off, size)
	writeMemory(&s.Contract.Memory, dest, data)
	return advance(s)
}

func opGasPrice(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	v := *s.Tx.CurrentTxNormalized.GasPrice
	s.Contract.Stack.Push(&v)
	return advance(s)
}

func opExtCodeSize(s *step.Step, world *statework.World, ext external.ExternalSource) error {
	top := s.Contract.Stack.Peek(0)
	addr := addrFromU256(top)
	code := codeOf(world, ext, addr)
	*top = *uint256.NewInt(uint64(len(code)))
	return advance(s)
}

func opExtCodeCopy(s *step.Step, world *statework.World, ext external.ExternalSource) error {
	addrV, destV, offV, sizeV := s.Contract.Stack.Pop(), s.Contract.Stack.Pop(), s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	addr := addrFromU256(&addrV)
	dest, off, size := toU64Saturating(&destV), toU64Saturating(&offV), toU64Saturating(&sizeV)
	code := codeOf(world, ext, addr)
	data := sliceWithZeroPad(code, off, size)
	writeMemory(&s.Contract.Memory, dest, data)
	return advance(s)
}

func opReturnDataSize(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Stack.Push(uint256.NewInt(uint64(len(s.Contract.RetData))))
	return advance(s)
}

func opReturnDataCopy(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	destV, offV, sizeV := s.Contract.Stack.Pop(), s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	dest, off, size := toU64Saturating(&destV), toU64Saturating(&offV), toU64Saturating(&sizeV)
	if off+size > uint64(len(s.Contract.RetData)) {
		return setFail(s, step.ErrReturnDataOOB)
	}
	writeMemory(&s.Contract.Memory, dest, s.Contract.RetData[off:off+size])
	return advance(s)
}

func opExtCodeHash(s *step.Step, world *statework.World, _ external.ExternalSource) error {
	top := s.Contract.Stack.Peek(0)
	addr := addrFromU256(top)
	exists, err := world.HasAccount(addr)
	if err != nil {
		return err
	}
	if !exists {
		*top = *uint256.NewInt(0)
		return advance(s)
	}
	hash, err := world.GetCodeHash(addr)
	if err != nil {
		return err
	}
	*top = *u256FromHash(hash)
	return advance(s)
}

func opBlockHash(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	top := s.Contract.Stack.Peek(0)
	num := toU64Saturating(top)
	current := s.Block.BlockNumber
	if num >= current || current-num > 256 {
		*top = *uint256.NewInt(0)
		return advance(s)
	}
	*top = *u256FromHash(s.History.BlockHashes[num%256])
	return advance(s)
}

func opCoinbase(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Stack.Push(u256FromAddr(s.Block.Coinbase))
	return advance(s)
}

func opTimestamp(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Stack.Push(uint256.NewInt(s.Block.Time))
	return advance(s)
}

func opNumber(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Stack.Push(uint256.NewInt(s.Block.BlockNumber))
	return advance(s)
}

func opPrevrandao(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	v := *s.Block.Difficulty
	s.Contract.Stack.Push(&v)
	return advance(s)
}

func opGasLimit(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Stack.Push(uint256.NewInt(s.Block.GasLimit))
	return advance(s)
}

func opChainID(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	s.Contract.Stack.Push(uint256.NewInt(s.Tx.CurrentTxNormalized.ChainID))
	return advance(s)
}

func opSelfBalance(s *step.Step, world *statework.World, _ external.ExternalSource) error {
	bal, err := world.GetBalance(s.Contract.SelfAddr)
	if err != nil {
		return err
	}
	s.Contract.Stack.Push(bigToU256(bal))
	return advance(s)
}

func opBaseFee(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	v := *s.Block.BaseFee
	s.Contract.Stack.Push(&v)
	return advance(s)
}

func opKeccak256(s *step.Step, _ *statework.World, _ external.ExternalSource) error {
	offV, sizeV := s.Contract.Stack.Pop(), s.Contract.Stack.Pop()
	off, size := toU64Saturating(&offV), toU64Saturating(&sizeV)
	data := readMemory(&s.Contract.Memory, off, size)
	h := crypto.Keccak256Hash(data)
	s.Contract.Stack.Push(u256FromHash(h))
	return advance(s)
}
