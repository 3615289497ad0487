package vm

import (
	"math/big"

	"github.com/fraudproof/stepvm/core/types"
	"github.com/fraudproof/stepvm/external"
	"github.com/fraudproof/stepvm/statework"
	"github.com/fraudproof/stepvm/step"
	"github.com/holiman/uint256"
)

// runHandler is the signature every OpcodeRun dispatch entry implements. It
// runs the opcode against the current frame and leaves s.Control.ExecMode
// set to whatever comes next: OpcodeLoad to continue the same frame (CALL-
// and CREATE-family handlers run the child frame to completion first), a
// frame-local error mode, or the TxFeesPost hand-off (STOP, RETURN,
// SELFDESTRUCT).
type runHandler func(s *step.Step, world *statework.World, ext external.ExternalSource) error

var runTable [256]runHandler

// advance moves to the next instruction in the current frame.
func advance(s *step.Step) error {
	s.Contract.PC++
	s.Control.ExecMode = step.OpcodeLoad
	return nil
}

func addrFromU256(v *uint256.Int) types.Address {
	b := v.Bytes32()
	var a types.Address
	copy(a[:], b[12:])
	return a
}

func u256FromAddr(a types.Address) *uint256.Int {
	return new(uint256.Int).SetBytes(a.Bytes())
}

func u256FromHash(h types.Hash) *uint256.Int {
	return new(uint256.Int).SetBytes(h.Bytes())
}

func bigToU256(v *big.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	u, _ := uint256.FromBig(v)
	return u
}

// readMemory returns the size bytes at offset, which UpdateMemorySize has
// already ensured are present.
func readMemory(mem *step.Memory, offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	end := offset + size
	if end > uint64(len(mem.Store)) {
		end = uint64(len(mem.Store))
	}
	if offset > end {
		return make([]byte, size)
	}
	out := make([]byte, size)
	copy(out, mem.Store[offset:end])
	return out
}

func writeMemory(mem *step.Memory, offset uint64, data []byte) {
	copy(mem.Store[offset:], data)
}

// sliceWithZeroPad returns data[offset:offset+size], zero-padding any part
// of the requested window that falls past the end of data.
func sliceWithZeroPad(data []byte, offset, size uint64) []byte {
	out := make([]byte, size)
	if offset >= uint64(len(data)) {
		return out
	}
	end := offset + size
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	copy(out, data[offset:end])
	return out
}

// codeOf resolves an account's bytecode via the world's code hash and the
// external source, returning nil for EOAs and not-found accounts.
func codeOf(world *statework.World, ext external.ExternalSource, addr types.Address) []byte {
	hash, err := world.GetCodeHash(addr)
	if err != nil {
		return nil
	}
	code, ok := ext.Code(hash)
	if !ok {
		return nil
	}
	return code
}

func setFail(s *step.Step, mode step.ExecMode) error {
	s.Control.ExecMode = mode
	return nil
}
