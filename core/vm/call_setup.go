package vm

import (
	"math/big"

	"github.com/fraudproof/stepvm/blockexec"
	"github.com/fraudproof/stepvm/core/types"
	"github.com/fraudproof/stepvm/crypto"
	"github.com/fraudproof/stepvm/external"
	"github.com/fraudproof/stepvm/rlp"
	"github.com/fraudproof/stepvm/statework"
	"github.com/fraudproof/stepvm/step"
)

// stageCallSetup builds the top-level call frame for a value-transfer or
// regular-call transaction and hands off to the opcode pipeline. Nested
// CALL/CALLCODE/DELEGATECALL/STATICCALL opcodes never revisit this mode:
// they run synchronously inside their OpcodeRun handler (see
// handlers_call_create.go), a documented simplification of the granular
// CallWork FSM in exchange for a tractable implementation.
func stageCallSetup(s *step.Step, world *statework.World, ext external.ExternalSource) error {
	nt := &s.Tx.CurrentTxNormalized
	c := &s.Contract

	c.SelfAddr = *nt.Destination
	c.Caller = nt.Signer
	c.CodeAddr = *nt.Destination
	v := *nt.Value
	c.Value = &v
	c.Input = append([]byte(nil), nt.Payload...)
	c.Gas = nt.Gas - blockexec.IntrinsicGas(nt)
	c.Code = codeOf(world, ext, c.SelfAddr)
	c.ReadOnly = false
	c.IsInitCode = false
	c.Create = false
	c.CallDepth = 0
	c.PC = 0
	c.Memory = step.Memory{}
	c.Stack = step.Stack{}
	c.RetData = nil

	if err := transferValue(world, c.Caller, c.SelfAddr, nt.Value.ToBig()); err != nil {
		return err
	}

	s.Control.ExecMode = step.OpcodeLoad
	return nil
}

// stageCreateSetup builds the top-level frame for a contract-creation
// transaction: its code is the transaction payload run as init code, and
// on a halting RETURN the returned bytes become the deployed account's
// code (see opReturn in handlers_call_create.go).
func stageCreateSetup(s *step.Step, world *statework.World, ext external.ExternalSource) error {
	nt := &s.Tx.CurrentTxNormalized
	c := &s.Contract

	addr := contractAddress(nt.Signer, nt.Nonce)
	if err := ensureAccount(world, addr); err != nil {
		return err
	}
	if err := world.SetNonce(addr, 1); err != nil {
		return err
	}

	c.SelfAddr = addr
	c.Caller = nt.Signer
	c.CodeAddr = addr
	v := *nt.Value
	c.Value = &v
	c.Input = nil
	c.Gas = nt.Gas - blockexec.IntrinsicGas(nt)
	c.Code = append([]byte(nil), nt.Payload...)
	c.ReadOnly = false
	c.IsInitCode = true
	c.Create = true
	c.CallDepth = 0
	c.PC = 0
	c.Memory = step.Memory{}
	c.Stack = step.Stack{}
	c.RetData = nil

	if err := transferValue(world, nt.Signer, addr, nt.Value.ToBig()); err != nil {
		return err
	}

	s.Control.ExecMode = step.OpcodeLoad
	return nil
}

func ensureAccount(world *statework.World, addr types.Address) error {
	exists, err := world.HasAccount(addr)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return world.CreateAccount(addr)
}

func transferValue(world *statework.World, from, to types.Address, value *big.Int) error {
	if value == nil || value.Sign() == 0 {
		return nil
	}
	if err := world.SubBalance(from, value); err != nil {
		return err
	}
	return world.AddBalance(to, value)
}

// contractAddress computes the CREATE address: the low 20 bytes of
// keccak256(rlp([sender, nonce])).
func contractAddress(sender types.Address, nonce uint64) types.Address {
	enc, err := rlp.EncodeToBytes([]interface{}{sender.Bytes(), nonce})
	if err != nil {
		return types.Address{}
	}
	h := crypto.Keccak256(enc)
	var addr types.Address
	copy(addr[:], h[12:])
	return addr
}

// create2Address computes the CREATE2 address: the low 20 bytes of
// keccak256(0xff ++ sender ++ salt ++ keccak256(initcode)).
func create2Address(sender types.Address, salt [32]byte, initcode []byte) types.Address {
	codeHash := crypto.Keccak256(initcode)
	buf := make([]byte, 0, 1+20+32+32)
	buf = append(buf, 0xff)
	buf = append(buf, sender.Bytes()...)
	buf = append(buf, salt[:]...)
	buf = append(buf, codeHash...)
	h := crypto.Keccak256(buf)
	var addr types.Address
	copy(addr[:], h[12:])
	return addr
}
