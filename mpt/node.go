// Package mpt implements the hash-addressed Merkle-Patricia trie. Reads are
// single-stepped: each call to Advance resolves exactly one node of a
// READING mpt_work request, and the caller resumes at ModeOnFinish once the
// lookup is done, the same way core/vm suspends between opcodes. Writes and
// deletes (Put, Delete) rebuild the affected path in one call and are not
// suspended between nodes.
package mpt

import (
	"bytes"
	"errors"

	"github.com/fraudproof/stepvm/crypto"
	"github.com/fraudproof/stepvm/rlp"
)

var (
	errUnknownNodeKind = errors.New("mpt: unknown node kind")
	errMalformedNode   = errors.New("mpt: malformed node encoding")
)

// NodeKind distinguishes the three RLP node shapes the trie can hold.
type NodeKind byte

const (
	KindEmpty NodeKind = iota
	KindLeaf
	KindExtension
	KindBranch
)

// Node is the decoded form of one trie node, independent of how it is
// addressed.
type Node struct {
	Kind     NodeKind
	Key      []byte     // HP-encoded path segment (leaf/extension only)
	Value    []byte     // leaf value, or branch's 17th slot
	Child    []byte     // extension's single child reference (32-byte hash)
	Children [16][]byte // branch's 16 children, each a 32-byte hash or empty
}

// Reference is a 32-byte Keccak-256 node hash. Unlike go-ethereum's trie,
// this module always stores children by hash rather than inlining short
// child RLP; see DESIGN.md for the tradeoff.
type Reference []byte

// EncodeNode RLP-encodes n into its canonical wire form.
func EncodeNode(n *Node) ([]byte, error) {
	switch n.Kind {
	case KindEmpty:
		return []byte{0x80}, nil
	case KindLeaf:
		return rlp.EncodeToBytes([]interface{}{hexToCompact(n.Key), n.Value})
	case KindExtension:
		return rlp.EncodeToBytes([]interface{}{hexToCompact(n.Key), n.Child})
	case KindBranch:
		items := make([]interface{}, 17)
		for i := 0; i < 16; i++ {
			items[i] = emptyIfNil(n.Children[i])
		}
		items[16] = emptyIfNil(n.Value)
		return rlp.EncodeToBytes(items)
	}
	return nil, errUnknownNodeKind
}

func emptyIfNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// HashNode returns the Keccak-256 hash of a node's RLP encoding, the
// reference a parent node stores for it.
func HashNode(n *Node) ([32]byte, []byte, error) {
	enc, err := EncodeNode(n)
	if err != nil {
		return [32]byte{}, nil, err
	}
	return [32]byte(crypto.Keccak256Hash(enc)), enc, nil
}

// DecodeNode parses the RLP encoding of one trie node.
func DecodeNode(enc []byte) (*Node, error) {
	if len(enc) == 0 || (len(enc) == 1 && enc[0] == 0x80) {
		return &Node{Kind: KindEmpty}, nil
	}
	s := rlp.NewStream(bytes.NewReader(enc))
	size, err := s.List()
	if err != nil {
		return nil, err
	}
	_ = size

	var items [][]byte
	for {
		kind, _, kerr := s.Kind()
		if kerr != nil {
			break
		}
		if kind == rlp.List {
			return nil, errMalformedNode // inline nested nodes not supported, see DESIGN.md
		}
		b, berr := s.Bytes()
		if berr != nil {
			return nil, berr
		}
		items = append(items, b)
	}
	if err := s.ListEnd(); err != nil {
		return nil, err
	}

	switch len(items) {
	case 2:
		hexKey := compactToHex(items[0])
		if hasTerm(hexKey) {
			return &Node{Kind: KindLeaf, Key: hexKey, Value: items[1]}, nil
		}
		return &Node{Kind: KindExtension, Key: hexKey, Child: items[1]}, nil
	case 17:
		n := &Node{Kind: KindBranch}
		for i := 0; i < 16; i++ {
			if len(items[i]) > 0 {
				n.Children[i] = items[i]
			}
		}
		if len(items[16]) > 0 {
			n.Value = items[16]
		}
		return n, nil
	}
	return nil, errMalformedNode
}
