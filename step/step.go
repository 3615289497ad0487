package step

import "github.com/holiman/uint256"

// Step is the single Merkleized record that carries all execution state
// across a fraud-proof trace. next_step is a pure function Step -> Step,
// dispatched on Control.ExecMode.
type Step struct {
	Control    Control
	History    History
	Block      Block
	Tx         Tx
	Contract   Contract
	CallWork   CallWork
	CreateWork CreateWork
	StateWork  StateWork
	MPTWork    MPTWork
}

// New returns a zero-valued Step with BlockPre as its entry mode.
func New() *Step {
	s := &Step{}
	s.Control.ExecMode = BlockPre
	s.Control.ReturnToStep = NoReturn
	s.MPTWork.ParentNodeStep = NoReturn
	return s
}

// Copy returns a deep copy of s so handlers can build the next step from the
// previous one without aliasing shared slices. The spec's tree-of-tries
// structural sharing is not attempted here; see DESIGN.md for the tradeoff.
func Copy(s *Step) *Step {
	n := *s
	n.History.BlockHashes = s.History.BlockHashes

	n.Block.Receipts = append([]Receipt(nil), s.Block.Receipts...)
	n.Block.Difficulty = cloneU256(s.Block.Difficulty)
	n.Block.BaseFee = cloneU256(s.Block.BaseFee)

	n.Tx.CurrentTx = append([]byte(nil), s.Tx.CurrentTx...)
	n.Tx.CurrentTxNormalized = s.Tx.CurrentTxNormalized
	n.Tx.CurrentTxNormalized.GasFeeCap = cloneU256(s.Tx.CurrentTxNormalized.GasFeeCap)
	n.Tx.CurrentTxNormalized.GasTipCap = cloneU256(s.Tx.CurrentTxNormalized.GasTipCap)
	n.Tx.CurrentTxNormalized.GasPrice = cloneU256(s.Tx.CurrentTxNormalized.GasPrice)
	n.Tx.CurrentTxNormalized.Value = cloneU256(s.Tx.CurrentTxNormalized.Value)
	n.Tx.CurrentTxNormalized.Payload = append([]byte(nil), s.Tx.CurrentTxNormalized.Payload...)
	n.Tx.CurrentTxNormalized.AccessList = append([]AccessTuple(nil), s.Tx.CurrentTxNormalized.AccessList...)
	n.Tx.Logs = append([]Log(nil), s.Tx.Logs...)

	n.Contract.Memory = s.Contract.Memory.copy()
	n.Contract.Stack = s.Contract.Stack.copy()
	n.Contract.RetData = append([]byte(nil), s.Contract.RetData...)
	n.Contract.Code = append([]byte(nil), s.Contract.Code...)
	n.Contract.Input = append([]byte(nil), s.Contract.Input...)
	n.Contract.Value = cloneU256(s.Contract.Value)

	n.CallWork.Value = cloneU256(s.CallWork.Value)
	n.CreateWork.Value = cloneU256(s.CreateWork.Value)
	n.CreateWork.Salt = cloneU256(s.CreateWork.Salt)

	n.MPTWork.CurrentRoot = append([]byte(nil), s.MPTWork.CurrentRoot...)
	n.MPTWork.LookupKeyNibbles = append([]byte(nil), s.MPTWork.LookupKeyNibbles...)
	n.MPTWork.GraftKeySegment = append([]byte(nil), s.MPTWork.GraftKeySegment...)
	n.MPTWork.GraftKeyNibbles = append([]byte(nil), s.MPTWork.GraftKeyNibbles...)
	n.MPTWork.Value = append([]byte(nil), s.MPTWork.Value...)

	return &n
}

func cloneU256(v *uint256.Int) *uint256.Int {
	if v == nil {
		return nil
	}
	return new(uint256.Int).Set(v)
}
