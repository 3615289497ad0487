package statework

import (
	"bytes"
	"errors"
	"io"
	"math/big"

	"github.com/fraudproof/stepvm/core/types"
	"github.com/fraudproof/stepvm/crypto"
	"github.com/fraudproof/stepvm/mpt"
)

var errCodeNotFound = errors.New("statework: code hash referenced by account but not found in code store")

func byteReader(b []byte) io.Reader { return bytes.NewReader(b) }

var (
	emptyRoot     = types.Hash(crypto.Keccak256Hash([]byte{0x80}))
	emptyCodeHash = types.Hash(crypto.Keccak256Hash(nil))
)

// CodeStore resolves and stores contract bytecode by its Keccak-256 hash,
// kept out of the world trie itself (the account only references CodeHash).
type CodeStore interface {
	GetCode(hash types.Hash) ([]byte, bool)
	PutCode(code []byte) types.Hash
}

// MemoryCodeStore is an in-memory CodeStore for tests and trace generation.
type MemoryCodeStore struct {
	byHash map[types.Hash][]byte
}

// NewMemoryCodeStore returns an empty in-memory code store.
func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{byHash: make(map[types.Hash][]byte)}
}

// GetCode implements CodeStore.
func (c *MemoryCodeStore) GetCode(hash types.Hash) ([]byte, bool) {
	code, ok := c.byHash[hash]
	return code, ok
}

// PutCode implements CodeStore.
func (c *MemoryCodeStore) PutCode(code []byte) types.Hash {
	h := crypto.Keccak256Hash(code)
	c.byHash[h] = append([]byte(nil), code...)
	return h
}

// World wraps the world trie and per-account storage tries behind the
// account/storage operations spec §4.4 names on mpt_work. It computes
// full new roots synchronously on writes (mpt.Put/mpt.Delete), rather than
// suspending across node boundaries; see DESIGN.md for the tradeoff this
// shares with the mpt package's Put/Delete.
type World struct {
	Store CodeStore
	trie  mpt.NodeStore
	root  []byte
}

// NewWorld returns an empty world state backed by trie for node storage.
func NewWorld(trie mpt.NodeStore, code CodeStore) *World {
	return &World{Store: code, trie: trie}
}

// Root returns the current world trie root hash (nil for an empty trie).
func (w *World) Root() []byte { return w.root }

// SetRoot overrides the current world root, e.g. when resuming from a
// previously committed block.
func (w *World) SetRoot(root []byte) { w.root = root }

func accountKey(addr types.Address) types.Hash {
	return crypto.Keccak256Hash(addr[:])
}

// HasAccount reports whether addr has ever been written to the world trie.
func (w *World) HasAccount(addr types.Address) (bool, error) {
	_, ok, err := w.getAccount(addr)
	return ok, err
}

func (w *World) getAccount(addr types.Address) (Account, bool, error) {
	key := accountKey(addr)
	enc, ok, err := mptGet(w.trie, w.root, key[:])
	if err != nil || !ok {
		return Account{}, ok, err
	}
	a, err := DecodeAccount(enc)
	return a, true, err
}

func (w *World) putAccount(addr types.Address, a Account) error {
	enc, err := EncodeAccount(a)
	if err != nil {
		return err
	}
	key := accountKey(addr)
	newRoot, err := mpt.Put(w.trie, w.root, key[:], enc)
	if err != nil {
		return err
	}
	w.root = newRoot
	return nil
}

// CreateAccount materializes an empty account at addr if one does not
// already exist; a no-op otherwise.
func (w *World) CreateAccount(addr types.Address) error {
	if ok, err := w.HasAccount(addr); err != nil || ok {
		return err
	}
	return w.putAccount(addr, EmptyAccount())
}

// GetBalance returns addr's balance, zero if the account does not exist.
func (w *World) GetBalance(addr types.Address) (*big.Int, error) {
	a, ok, err := w.getAccount(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return new(big.Int), nil
	}
	return a.Balance, nil
}

// SetBalance overwrites addr's balance, creating the account if needed.
func (w *World) SetBalance(addr types.Address, balance *big.Int) error {
	a, _, err := w.getAccount(addr)
	if err != nil {
		return err
	}
	if a.Balance == nil {
		a = EmptyAccount()
	}
	a.Balance = balance
	return w.putAccount(addr, a)
}

// AddBalance adds delta (which may be negative via SubBalance) to addr's balance.
func (w *World) AddBalance(addr types.Address, delta *big.Int) error {
	bal, err := w.GetBalance(addr)
	if err != nil {
		return err
	}
	return w.SetBalance(addr, new(big.Int).Add(bal, delta))
}

// SubBalance subtracts delta from addr's balance. Callers must have already
// checked sufficient balance (ErrInsufficientBalance is a frame-local
// concern handled by core/vm, not by statework).
func (w *World) SubBalance(addr types.Address, delta *big.Int) error {
	bal, err := w.GetBalance(addr)
	if err != nil {
		return err
	}
	return w.SetBalance(addr, new(big.Int).Sub(bal, delta))
}

// GetNonce returns addr's nonce, zero if the account does not exist.
func (w *World) GetNonce(addr types.Address) (uint64, error) {
	a, ok, err := w.getAccount(addr)
	if err != nil || !ok {
		return 0, err
	}
	return a.Nonce, nil
}

// SetNonce overwrites addr's nonce, creating the account if needed.
func (w *World) SetNonce(addr types.Address, nonce uint64) error {
	a, _, err := w.getAccount(addr)
	if err != nil {
		return err
	}
	if a.Balance == nil {
		a = EmptyAccount()
	}
	a.Nonce = nonce
	return w.putAccount(addr, a)
}

// GetCodeHash returns addr's code hash, the empty-code hash if the account
// does not exist or has no code.
func (w *World) GetCodeHash(addr types.Address) (types.Hash, error) {
	a, ok, err := w.getAccount(addr)
	if err != nil {
		return types.Hash{}, err
	}
	if !ok {
		return emptyCodeHash, nil
	}
	return a.CodeHash, nil
}

// GetCodeSize returns the length of addr's contract code.
func (w *World) GetCodeSize(addr types.Address) (int, error) {
	hash, err := w.GetCodeHash(addr)
	if err != nil || hash == emptyCodeHash {
		return 0, err
	}
	code, ok := w.Store.GetCode(hash)
	if !ok {
		return 0, errCodeNotFound
	}
	return len(code), nil
}

// SetCode stores code and updates addr's account to reference its hash.
func (w *World) SetCode(addr types.Address, code []byte) error {
	hash := w.Store.PutCode(code)
	a, _, err := w.getAccount(addr)
	if err != nil {
		return err
	}
	if a.Balance == nil {
		a = EmptyAccount()
	}
	a.CodeHash = hash
	return w.putAccount(addr, a)
}

// SelfDestruct removes addr's account entirely (post-Cancun EIP-6780
// semantics are a block-pipeline concern; statework always performs the
// unconditional removal spec §4.4 names).
func (w *World) SelfDestruct(addr types.Address) error {
	key := accountKey(addr)
	newRoot, err := mpt.Delete(w.trie, w.root, key[:])
	if err != nil {
		return err
	}
	w.root = newRoot
	return nil
}

// storageKey derives the trie key for slot within addr's storage trie:
// keccak256(slot), matching the world trie's keccak256(address) scheme.
func storageKey(slot types.Hash) types.Hash {
	return crypto.Keccak256Hash(slot[:])
}

// StorageRead returns the 32-byte value at slot in addr's storage trie,
// the zero value if unset.
func (w *World) StorageRead(addr types.Address, slot types.Hash) ([32]byte, error) {
	a, ok, err := w.getAccount(addr)
	if err != nil || !ok {
		return [32]byte{}, err
	}
	key := storageKey(slot)
	enc, found, err := mptGet(w.trie, a.StorageRoot[:], key[:])
	if err != nil || !found {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[32-len(enc):], enc)
	return out, nil
}

// StorageWrite sets the 32-byte value at slot in addr's storage trie,
// creating addr's account if necessary, and updates the account's
// storage_root to the new storage trie root.
func (w *World) StorageWrite(addr types.Address, slot types.Hash, value [32]byte) error {
	a, _, err := w.getAccount(addr)
	if err != nil {
		return err
	}
	if a.Balance == nil {
		a = EmptyAccount()
	}
	key := storageKey(slot)
	trimmed := trimLeadingZeros(value[:])
	var newStorageRoot []byte
	if len(trimmed) == 0 {
		newStorageRoot, err = mpt.Delete(w.trie, a.StorageRoot[:], key[:])
	} else {
		newStorageRoot, err = mpt.Put(w.trie, a.StorageRoot[:], key[:], trimmed)
	}
	if err != nil {
		return err
	}
	copy(a.StorageRoot[:], newStorageRoot)
	return w.putAccount(addr, a)
}

func trimLeadingZeros(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	return b[i:]
}

// mptGet performs a blocking (non-suspended) lookup against root, for use
// by the synchronous World accessors above.
func mptGet(store mpt.NodeSource, root []byte, key []byte) ([]byte, bool, error) {
	return mpt.Get(store, root, key)
}
