package blockexec

import "errors"

var (
	errInvalidTransactionSig = errors.New("blockexec: invalid transaction signature")
	errNonceMismatch         = errors.New("blockexec: transaction nonce does not match sender account")
	errInsufficientFunds     = errors.New("blockexec: sender balance insufficient for gas + value")
	errIntrinsicGas          = errors.New("blockexec: intrinsic gas exceeds transaction gas limit")
	errNotBlockPipelineMode  = errors.New("blockexec: step is not in a block-pipeline exec_mode")
	errNoPayload             = errors.New("blockexec: payload exhausted (no more transactions)")
)
