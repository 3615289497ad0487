// Package statework implements the account/storage state-work engine
// (spec §4.4): account and storage-slot operations expressed as requests
// against the world trie and per-account storage tries, each backed by the
// mpt package's hash-addressed Merkle-Patricia trie.
package statework

import (
	"math/big"

	"github.com/fraudproof/stepvm/core/types"
	"github.com/fraudproof/stepvm/rlp"
)

// Account is the RLP-encoded value stored at keccak256(address) in the
// world trie, matching go-ethereum's four-field account representation.
type Account struct {
	Nonce       uint64
	Balance     *big.Int
	StorageRoot types.Hash
	CodeHash    types.Hash
}

// EmptyAccount is the account value an address has before it is ever
// touched: zero nonce, zero balance, empty storage trie, empty code.
func EmptyAccount() Account {
	return Account{
		Nonce:       0,
		Balance:     new(big.Int),
		StorageRoot: emptyRoot,
		CodeHash:    emptyCodeHash,
	}
}

// IsEmpty reports whether the account matches the EIP-161 "empty" test:
// zero nonce, zero balance, no code.
func (a Account) IsEmpty() bool {
	return a.Nonce == 0 && a.Balance.Sign() == 0 && a.CodeHash == emptyCodeHash
}

// EncodeAccount RLP-encodes a into the four-field wire form stored in the
// world trie.
func EncodeAccount(a Account) ([]byte, error) {
	balance := a.Balance
	if balance == nil {
		balance = new(big.Int)
	}
	return rlp.EncodeToBytes([]interface{}{a.Nonce, balance, a.StorageRoot[:], a.CodeHash[:]})
}

// DecodeAccount parses the four-field RLP account value.
func DecodeAccount(enc []byte) (Account, error) {
	s := rlp.NewStream(byteReader(enc))
	if _, err := s.List(); err != nil {
		return Account{}, err
	}
	nonce, err := s.Uint64()
	if err != nil {
		return Account{}, err
	}
	balance, err := s.BigInt()
	if err != nil {
		return Account{}, err
	}
	storageRoot, err := s.Bytes()
	if err != nil {
		return Account{}, err
	}
	codeHash, err := s.Bytes()
	if err != nil {
		return Account{}, err
	}
	if err := s.ListEnd(); err != nil {
		return Account{}, err
	}
	var a Account
	a.Nonce = nonce
	a.Balance = balance
	copy(a.StorageRoot[:], storageRoot)
	copy(a.CodeHash[:], codeHash)
	return a, nil
}
