package blockexec

import (
	"math/big"

	"github.com/fraudproof/stepvm/core/types"
	"github.com/fraudproof/stepvm/statework"
	"github.com/fraudproof/stepvm/step"
	"github.com/holiman/uint256"
)

// Advance runs one block-pipeline sub-step of s, dispatching on its
// exec_mode (§4.8). payload supplies the data the pipeline is seeded with
// (not part of the Merkleized Step); world is the account/storage view the
// tx loop applies balance and nonce effects to. It returns
// errNotBlockPipelineMode if s.Control.ExecMode is outside the block
// pipeline's range (§4.5/§4.7 opcode and call/create modes are handled by
// the interpreter package instead).
//
// Unlike the opcode pipeline's per-field single-stepping, this
// implementation advances each block-pipeline mode to completion in one
// Advance call (e.g. BlockPre loads the whole payload, BlockHistoryLoad
// fills the whole ring) rather than one sub-field per call; this mirrors
// the scoped simplification already made for MPT writes, and is recorded
// in the design notes.
func Advance(s *step.Step, payload *Payload, world *statework.World) error {
	switch s.Control.ExecMode {
	case step.BlockPre:
		return advanceBlockPre(s, payload)
	case step.BlockPreStateLoad:
		return advanceBlockPreStateLoad(s, payload)
	case step.BlockHistoryLoad:
		return advanceBlockHistoryLoad(s, payload)
	case step.BlockCalcBaseFee:
		return advanceBlockCalcBaseFee(s, payload)
	case step.BlockTxLoop:
		return advanceBlockTxLoop(s, payload)
	case step.TxLoad:
		return advanceTxLoad(s, payload)
	case step.TxSig:
		return advanceTxSig(s, payload)
	case step.TxFeesPre:
		return advanceTxFeesPre(s, world)
	case step.TxFeesPost:
		return advanceTxFeesPost(s, world)
	case step.BlockTxReceipt:
		return advanceBlockTxReceipt(s)
	case step.BlockTxNext:
		return advanceBlockTxNext(s, payload)
	case step.BlockPost:
		s.Control.ExecMode = step.DONE
		return nil
	default:
		return errNotBlockPipelineMode
	}
}

func advanceBlockPre(s *step.Step, payload *Payload) error {
	s.Block.Coinbase = payload.Coinbase
	s.Block.GasLimit = payload.GasLimit
	s.Block.BlockNumber = payload.BlockNumber
	s.Block.Time = payload.Time
	s.Block.Difficulty = new(uint256.Int).SetBytes(payload.Difficulty[:])
	s.Control.ExecMode = step.BlockPreStateLoad
	return nil
}

// advanceBlockPreStateLoad moves the pipeline on to BlockHistoryLoad. It
// does not derive the pre-state root from the parent header and does not
// check anything against payload.ParentHash: s.Control.StateRoot is taken
// as already established.
func advanceBlockPreStateLoad(s *step.Step, payload *Payload) error {
	s.Control.ExecMode = step.BlockHistoryLoad
	return nil
}

// advanceBlockHistoryLoad fills the 256-entry ancestor ring, indexed by
// (blockNumber-1-i) % 256 for the i-th most recent ancestor (i=0 is the
// parent), matching how BLOCKHASH's ring lookup in the opcode pipeline reads
// it back by block_number % 256.
func advanceBlockHistoryLoad(s *step.Step, payload *Payload) error {
	var ring [256]types.Hash
	for i := 0; i < len(payload.AncestorHashes) && i < 256; i++ {
		ancestorNumber := payload.BlockNumber - 1 - uint64(i)
		ring[ancestorNumber%256] = payload.AncestorHashes[len(payload.AncestorHashes)-1-i]
	}
	s.History.BlockHashes = ring
	s.Control.ExecMode = step.BlockCalcBaseFee
	return nil
}

func advanceBlockCalcBaseFee(s *step.Step, payload *Payload) error {
	if payload.BlockNumber == 0 {
		s.Block.BaseFee = uint256.NewInt(InitialBaseFee)
	} else {
		fee := CalcBaseFee(payload.ParentGasLimit, payload.ParentGasUsed, payload.ParentBaseFee)
		s.Block.BaseFee = uint256.NewInt(fee)
	}
	s.Control.ExecMode = step.BlockTxLoop
	return nil
}

func advanceBlockTxLoop(s *step.Step, payload *Payload) error {
	if int(s.Tx.TxIndex) >= len(payload.Transactions) {
		s.Control.ExecMode = step.BlockPost
		return nil
	}
	s.Tx.CurrentTx = payload.Transactions[s.Tx.TxIndex]
	s.Tx.Mode = step.TxModeRunning
	s.Tx.Logs = nil
	s.Control.ExecMode = step.TxLoad
	return nil
}

func advanceTxLoad(s *step.Step, payload *Payload) error {
	nt, err := normalizeTx(s.Tx.CurrentTx, payload.ChainID)
	if err != nil {
		if err == errUnsupportedTxType {
			s.Control.ExecMode = step.ErrInvalidTransactionType
			return nil
		}
		if err == errChainIDMismatch {
			s.Control.ExecMode = step.ErrInvalidChainID
			return nil
		}
		return err
	}
	s.Tx.CurrentTxNormalized = nt
	s.Control.ExecMode = step.TxSig
	return nil
}

func advanceTxSig(s *step.Step, payload *Payload) error {
	addr, err := recoverSender(s.Tx.CurrentTx, payload.ChainID)
	if err != nil {
		s.Control.ExecMode = step.ErrInvalidTransactionSig
		return nil
	}
	s.Tx.CurrentTxNormalized.Signer = addr
	s.Control.ExecMode = step.TxFeesPre
	return nil
}

// advanceTxFeesPre performs the nonce, balance and intrinsic-gas checks
// EIP-1559 requires before any opcode runs, and (on success) debits the
// worst-case gas cost from the sender's balance.
func advanceTxFeesPre(s *step.Step, world *statework.World) error {
	nt := &s.Tx.CurrentTxNormalized

	nonce, err := world.GetNonce(nt.Signer)
	if err != nil {
		return err
	}
	if nonce != nt.Nonce {
		return rejectTx(s)
	}

	gasLimit := new(big.Int).SetUint64(nt.Gas)
	feeCap := u256ToBig(nt.GasFeeCap)
	maxCost := new(big.Int).Mul(gasLimit, feeCap)
	maxCost.Add(maxCost, u256ToBig(nt.Value))

	balance, err := world.GetBalance(nt.Signer)
	if err != nil {
		return err
	}
	if balance.Cmp(maxCost) < 0 {
		return rejectTx(s)
	}

	if nt.Gas < IntrinsicGas(nt) {
		return rejectTx(s)
	}

	effectiveFeeCap := new(big.Int).Add(u256ToBig(s.Block.BaseFee), u256ToBig(nt.GasTipCap))
	if effectiveFeeCap.Cmp(feeCap) > 0 {
		effectiveFeeCap = feeCap
	}
	upfront := new(big.Int).Mul(gasLimit, effectiveFeeCap)
	if err := world.SubBalance(nt.Signer, upfront); err != nil {
		return err
	}
	if err := world.SetNonce(nt.Signer, nonce+1); err != nil {
		return err
	}

	s.Control.ExecMode = step.CallSetup
	if nt.IsContractCreation {
		s.Control.ExecMode = step.CreateSetup
	}
	return nil
}

// rejectTx fails a transaction that never reaches the opcode pipeline at
// all (bad nonce, insufficient balance for the worst-case cost, or gas
// limit below the intrinsic floor). No gas was ever charged, so it skips
// straight to a zero-gas-used failing receipt rather than going through
// TxFeesPost's refund math.
func rejectTx(s *step.Step) error {
	s.Contract.Gas = s.Tx.CurrentTxNormalized.Gas
	s.Control.SubIndex = 1
	s.Control.ExecMode = step.BlockTxReceipt
	return nil
}

// advanceTxFeesPost refunds unused gas and pays the effective tip to the
// coinbase, once the call/create FSM and opcode pipeline have run to
// completion and left the remaining gas on s.Contract.Gas.
func advanceTxFeesPost(s *step.Step, world *statework.World) error {
	nt := &s.Tx.CurrentTxNormalized

	remaining := new(big.Int).SetUint64(s.Contract.Gas)
	feeCap := u256ToBig(nt.GasFeeCap)
	effectiveFeeCap := new(big.Int).Add(u256ToBig(s.Block.BaseFee), u256ToBig(nt.GasTipCap))
	if effectiveFeeCap.Cmp(feeCap) > 0 {
		effectiveFeeCap = feeCap
	}
	refund := new(big.Int).Mul(remaining, effectiveFeeCap)
	if err := world.AddBalance(nt.Signer, refund); err != nil {
		return err
	}

	gasUsed := nt.Gas - s.Contract.Gas
	tip := new(big.Int).Sub(effectiveFeeCap, u256ToBig(s.Block.BaseFee))
	if tip.Sign() < 0 {
		tip.SetInt64(0)
	}
	coinbaseFee := new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), tip)
	if err := world.AddBalance(s.Block.Coinbase, coinbaseFee); err != nil {
		return err
	}

	s.Control.ExecMode = step.BlockTxReceipt
	return nil
}

// advanceBlockTxReceipt derives the receipt status from Control.SubIndex,
// which the opcode pipeline leaves at 0 (STOP/RETURN) or 1 (any frame
// error, including REVERT) when it hands off to TxFeesPost; by the time
// this mode runs, Control.ExecMode itself has already been overwritten to
// TxFeesPost/BlockTxReceipt and can no longer carry that information.
func advanceBlockTxReceipt(s *step.Step) error {
	status := uint64(1)
	if s.Control.SubIndex == 1 {
		status = 0
	}
	var cumulative uint64
	if n := len(s.Block.Receipts); n > 0 {
		cumulative = s.Block.Receipts[n-1].CumulativeGasUsed
	}
	gasUsed := s.Tx.CurrentTxNormalized.Gas - s.Contract.Gas
	r := buildReceipt(status, cumulative+gasUsed, s.Tx.Logs)
	s.Block.Receipts = append(s.Block.Receipts, r)
	s.Control.ExecMode = step.BlockTxNext
	return nil
}

func advanceBlockTxNext(s *step.Step, payload *Payload) error {
	s.Tx.TxIndex++
	s.Tx.Mode = step.TxModeIdle
	s.Control.ExecMode = step.BlockTxLoop
	return nil
}

func u256ToBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}
