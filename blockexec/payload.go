// Package blockexec implements the block and transaction pipeline (§4.8):
// payload ingestion, ancestor-history population, EIP-1559 base-fee
// derivation, the per-tx loop, and per-tx normalization and signature
// recovery. It advances a step.Step one block-pipeline mode at a time.
package blockexec

import (
	"github.com/fraudproof/stepvm/core/types"
)

// Payload is the minimal execution payload a block-pipeline run is seeded
// with: the fields a sequencer or L1 inbox would hand the engine, plus the
// parent header fields needed to derive the new base fee and the pre-state
// root. It is not part of the Merkleized Step; it is held by the driver
// (e.g. cmd/stepvm) across the BlockPre.. sub-steps.
type Payload struct {
	ParentHash types.Hash

	Coinbase    types.Address
	GasLimit    uint64
	BlockNumber uint64
	Time        uint64
	Difficulty  [32]byte // post-merge `random`; zero for a PoW ancestor

	ParentGasLimit uint64
	ParentGasUsed  uint64
	ParentBaseFee  *uint64 // nil before London activation

	// AncestorHashes are the up-to-256 most recent ancestor block hashes,
	// ordered oldest-first, used to seed the History ring on BlockHistoryLoad.
	AncestorHashes []types.Hash

	ChainID uint64

	// Transactions are opaque EIP-2718 envelopes, in inclusion order.
	Transactions [][]byte
}
