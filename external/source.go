// Package external defines the ExternalSource boundary the trace generator
// uses to resolve node/code/header data it does not already hold locally
// (spec §6), plus a reference in-memory implementation (used by tests and
// by the CLI) and an on-disk pebble-backed implementation, PebbleSource,
// which nothing in this module opens.
package external

import "github.com/fraudproof/stepvm/core/types"

// ExternalSource resolves the external data a trace generator needs but
// does not itself produce: trie nodes by hash, contract code by hash, and
// historical block hashes by number (for the BLOCKHASH opcode and the
// history ring buffer).
type ExternalSource interface {
	// Node returns the RLP encoding of the trie node with the given hash.
	Node(hash [32]byte) ([]byte, bool)
	// Code returns the contract bytecode with the given Keccak-256 hash.
	Code(hash types.Hash) ([]byte, bool)
	// BlockHash returns the hash of the block at the given number, if
	// still within the 256-block lookback window.
	BlockHash(number uint64) (types.Hash, bool)
}

// MemorySource is an in-memory ExternalSource, used by tests and by the
// reference trace generator when run against a locally-held payload.
type MemorySource struct {
	nodes      map[[32]byte][]byte
	code       map[types.Hash][]byte
	blockHashes map[uint64]types.Hash
}

// NewMemorySource returns an empty in-memory external source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		nodes:       make(map[[32]byte][]byte),
		code:        make(map[types.Hash][]byte),
		blockHashes: make(map[uint64]types.Hash),
	}
}

// Node implements ExternalSource.
func (m *MemorySource) Node(hash [32]byte) ([]byte, bool) {
	enc, ok := m.nodes[hash]
	return enc, ok
}

// PutNode registers a node's RLP encoding under its hash, for test setup.
func (m *MemorySource) PutNode(hash [32]byte, enc []byte) { m.nodes[hash] = enc }

// Code implements ExternalSource.
func (m *MemorySource) Code(hash types.Hash) ([]byte, bool) {
	c, ok := m.code[hash]
	return c, ok
}

// PutCode registers code under its hash, for test setup.
func (m *MemorySource) PutCode(hash types.Hash, code []byte) { m.code[hash] = code }

// BlockHash implements ExternalSource.
func (m *MemorySource) BlockHash(number uint64) (types.Hash, bool) {
	h, ok := m.blockHashes[number]
	return h, ok
}

// PutBlockHash registers a historical block hash, for test setup.
func (m *MemorySource) PutBlockHash(number uint64, hash types.Hash) {
	m.blockHashes[number] = hash
}
