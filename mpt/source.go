package mpt

// NodeSource resolves a node by its Keccak-256 hash. The trie never keeps
// the whole tree in memory; every traversal step fetches exactly the one
// node it needs next, the same boundary the witness is built around.
type NodeSource interface {
	GetNode(hash [32]byte) ([]byte, bool)
}

// MemorySource is an in-memory NodeSource, used by tests and by the trace
// generator once it has resolved external data into a local cache.
type MemorySource struct {
	nodes map[[32]byte][]byte
}

// NewMemorySource returns an empty in-memory node store.
func NewMemorySource() *MemorySource {
	return &MemorySource{nodes: make(map[[32]byte][]byte)}
}

// GetNode implements NodeSource.
func (m *MemorySource) GetNode(hash [32]byte) ([]byte, bool) {
	enc, ok := m.nodes[hash]
	return enc, ok
}

// Put stores a node's RLP encoding keyed by its hash, as returned by
// HashNode, and returns that hash.
func (m *MemorySource) Put(enc []byte) [32]byte {
	n, err := DecodeNode(enc)
	if err != nil {
		panic(err) // programmer error: caller must pass a well-formed node
	}
	h, canonical, err := HashNode(n)
	if err != nil {
		panic(err)
	}
	m.nodes[h] = canonical
	return h
}
