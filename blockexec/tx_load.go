package blockexec

import (
	"errors"
	"math/big"

	"github.com/fraudproof/stepvm/core/types"
	"github.com/fraudproof/stepvm/step"
	"github.com/holiman/uint256"
)

// errUnsupportedTxType marks a decoded transaction whose type byte this
// engine does not recognize; callers dispatch it to ErrInvalidTransactionType.
var errUnsupportedTxType = errors.New("blockexec: unsupported transaction type")

// errChainIDMismatch marks a typed transaction whose chain ID doesn't match
// the block's; TxLoad maps this to ErrInvalidChainID (block-fatal).
var errChainIDMismatch = errors.New("blockexec: transaction chain ID mismatch")

// normalizeTx decodes raw (an opaque EIP-2718 envelope) and maps it onto the
// chain-agnostic NormalizedTx shape, per TxLoad (§4.8). It does not recover
// the sender; that is TxSig's job.
func normalizeTx(raw []byte, chainID uint64) (step.NormalizedTx, error) {
	tx, err := types.DecodeTxRLP(raw)
	if err != nil {
		return step.NormalizedTx{}, err
	}

	switch tx.Type() {
	case types.LegacyTxType, types.AccessListTxType, types.DynamicFeeTxType:
	default:
		return step.NormalizedTx{}, errUnsupportedTxType
	}

	txChainID := uint64(0)
	if id := tx.ChainId(); id != nil {
		txChainID = id.Uint64()
	}
	if tx.Type() != types.LegacyTxType && txChainID != chainID {
		return step.NormalizedTx{}, errChainIDMismatch
	}

	var dest *types.Address
	if to := tx.To(); to != nil {
		d := *to
		dest = &d
	}

	nt := step.NormalizedTx{
		Nonce:              tx.Nonce(),
		GasFeeCap:          bigToU256(tx.GasFeeCap()),
		GasTipCap:          bigToU256(tx.GasTipCap()),
		GasPrice:           bigToU256(tx.GasPrice()),
		Gas:                tx.Gas(),
		Destination:        dest,
		IsContractCreation: dest == nil,
		Value:              bigToU256(tx.Value()),
		Payload:            tx.Data(),
		ChainID:            txChainID,
		TxType:             tx.Type(),
	}
	for _, at := range tx.AccessList() {
		nt.AccessList = append(nt.AccessList, step.AccessTuple{
			Address:     at.Address,
			StorageKeys: at.StorageKeys,
		})
	}
	return nt, nil
}

// bigToU256 converts a possibly-nil *big.Int (legacy tx fields are nil when
// the corresponding 1559 field doesn't apply) into a uint256.Int, keeping
// only the low 256 bits on overflow, silently, since consensus-valid
// transactions never carry a value wider than 256 bits.
func bigToU256(v *big.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	u, _ := uint256.FromBig(v)
	return u
}
