package blockexec

import (
	"github.com/fraudproof/stepvm/core/types"
)

// recoverSender decodes raw again (TxSig is a separate sub-step from TxLoad
// per §4.8) and recovers the signer via the chain's canonical Signer for the
// tx's type, returning errInvalidTransactionSig on failure.
func recoverSender(raw []byte, chainID uint64) (types.Address, error) {
	tx, err := types.DecodeTxRLP(raw)
	if err != nil {
		return types.Address{}, err
	}
	signer := types.MakeSigner(chainID, tx.Type())
	addr, err := signer.Sender(tx)
	if err != nil {
		return types.Address{}, errInvalidTransactionSig
	}
	return addr, nil
}
