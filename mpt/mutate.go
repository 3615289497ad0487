package mpt

import "errors"

// NodeStore is a NodeSource that can also persist newly created nodes,
// used by Put/Delete to materialize the new trie after a write.
type NodeStore interface {
	NodeSource
	PutNode(enc []byte) [32]byte
}

// PutNode implements NodeStore for MemorySource.
func (m *MemorySource) PutNode(enc []byte) [32]byte {
	n, err := DecodeNode(enc)
	if err != nil {
		panic(err)
	}
	h, canonical, err := HashNode(n)
	if err != nil {
		panic(err)
	}
	m.nodes[h] = canonical
	return h
}

var errInsertIntoUnresolvedNode = errors.New("mpt: cannot insert, node hash not found in store")

// Put inserts key/value into the trie rooted at root (nil/empty for an
// empty trie) and returns the new root hash. Unlike Advance, Put computes
// the whole branch-split/graft rebuild in one call rather than suspending
// node-by-node; see DESIGN.md for why writes are not single-stepped in
// this implementation.
func Put(store NodeStore, root []byte, key, value []byte) ([]byte, error) {
	nibbles := KeyToNibbles(key)
	return insert(store, root, nibbles, value)
}

func storeNode(store NodeStore, n *Node) ([]byte, error) {
	enc, err := EncodeNode(n)
	if err != nil {
		return nil, err
	}
	h := store.PutNode(enc)
	return h[:], nil
}

func storeLeaf(store NodeStore, key, value []byte) ([]byte, error) {
	return storeNode(store, &Node{Kind: KindLeaf, Key: key, Value: value})
}

func insert(store NodeStore, ref []byte, key []byte, value []byte) ([]byte, error) {
	if len(ref) == 0 {
		return storeLeaf(store, key, value)
	}
	var hash [32]byte
	copy(hash[:], ref)
	enc, ok := store.GetNode(hash)
	if !ok {
		return nil, errInsertIntoUnresolvedNode
	}
	n, err := DecodeNode(enc)
	if err != nil {
		return nil, err
	}

	switch n.Kind {
	case KindLeaf:
		matchLen := prefixLen(key, n.Key)
		if matchLen == len(n.Key) && matchLen == len(key) {
			return storeLeaf(store, key, value)
		}
		branch := &Node{Kind: KindBranch}
		if matchLen < len(n.Key) {
			remKey := n.Key[matchLen+1:]
			childRef, err := storeLeaf(store, remKey, n.Value)
			if err != nil {
				return nil, err
			}
			branch.Children[n.Key[matchLen]] = childRef
		} else {
			branch.Value = n.Value
		}
		if matchLen < len(key) {
			remKey2 := key[matchLen+1:]
			childRef2, err := storeLeaf(store, remKey2, value)
			if err != nil {
				return nil, err
			}
			branch.Children[key[matchLen]] = childRef2
		} else {
			branch.Value = value
		}
		branchRef, err := storeNode(store, branch)
		if err != nil {
			return nil, err
		}
		if matchLen > 0 {
			return storeNode(store, &Node{Kind: KindExtension, Key: key[:matchLen], Child: branchRef})
		}
		return branchRef, nil

	case KindExtension:
		matchLen := prefixLen(key, n.Key)
		if matchLen == len(n.Key) {
			childRef, err := insert(store, n.Child, key[matchLen:], value)
			if err != nil {
				return nil, err
			}
			return storeNode(store, &Node{Kind: KindExtension, Key: n.Key, Child: childRef})
		}
		branch := &Node{Kind: KindBranch}
		if matchLen < len(n.Key) {
			remKey := n.Key[matchLen+1:]
			var childRef []byte
			if len(remKey) == 0 {
				childRef = n.Child
			} else {
				childRef, err = storeNode(store, &Node{Kind: KindExtension, Key: remKey, Child: n.Child})
				if err != nil {
					return nil, err
				}
			}
			branch.Children[n.Key[matchLen]] = childRef
		}
		if matchLen < len(key) {
			remKey2 := key[matchLen+1:]
			childRef2, err := storeLeaf(store, remKey2, value)
			if err != nil {
				return nil, err
			}
			branch.Children[key[matchLen]] = childRef2
		} else {
			branch.Value = value
		}
		branchRef, err := storeNode(store, branch)
		if err != nil {
			return nil, err
		}
		if matchLen > 0 {
			return storeNode(store, &Node{Kind: KindExtension, Key: key[:matchLen], Child: branchRef})
		}
		return branchRef, nil

	case KindBranch:
		if len(key) == 1 && key[0] == terminatorByte {
			n.Value = value
			return storeNode(store, n)
		}
		idx := key[0]
		childRef, err := insert(store, n.Children[idx], key[1:], value)
		if err != nil {
			return nil, err
		}
		n.Children[idx] = childRef
		return storeNode(store, n)
	}
	return nil, errUnknownNodeKind
}

// Delete removes key from the trie rooted at root and returns the new root
// hash (nil for an empty result). A no-op (returns root unchanged) if key
// is absent.
func Delete(store NodeStore, root []byte, key []byte) ([]byte, error) {
	nibbles := KeyToNibbles(key)
	return del(store, root, nibbles)
}

func del(store NodeStore, ref []byte, key []byte) ([]byte, error) {
	if len(ref) == 0 {
		return nil, nil
	}
	var hash [32]byte
	copy(hash[:], ref)
	enc, ok := store.GetNode(hash)
	if !ok {
		return nil, errInsertIntoUnresolvedNode
	}
	n, err := DecodeNode(enc)
	if err != nil {
		return nil, err
	}

	switch n.Kind {
	case KindLeaf:
		matchLen := prefixLen(key, n.Key)
		if matchLen < len(n.Key) {
			return ref, nil // key not present
		}
		return nil, nil

	case KindExtension:
		matchLen := prefixLen(key, n.Key)
		if matchLen < len(n.Key) {
			return ref, nil
		}
		childRef, err := del(store, n.Child, key[matchLen:])
		if err != nil {
			return nil, err
		}
		if len(childRef) == 0 {
			return nil, nil
		}
		childNode, err := decodeRef(store, childRef)
		if err != nil {
			return nil, err
		}
		if childNode.Kind == KindExtension || childNode.Kind == KindLeaf {
			merged := append(append([]byte{}, n.Key...), childNode.Key...)
			return storeNode(store, &Node{Kind: childNode.Kind, Key: merged, Value: childNode.Value, Child: childNode.Child})
		}
		return storeNode(store, &Node{Kind: KindExtension, Key: n.Key, Child: childRef})

	case KindBranch:
		if len(key) == 1 && key[0] == terminatorByte {
			n.Value = nil
		} else {
			idx := key[0]
			childRef, err := del(store, n.Children[idx], key[1:])
			if err != nil {
				return nil, err
			}
			n.Children[idx] = childRef
		}
		return collapseBranch(store, n)
	}
	return nil, errUnknownNodeKind
}

func decodeRef(store NodeStore, ref []byte) (*Node, error) {
	var hash [32]byte
	copy(hash[:], ref)
	enc, ok := store.GetNode(hash)
	if !ok {
		return nil, errInsertIntoUnresolvedNode
	}
	return DecodeNode(enc)
}

// collapseBranch rewrites a branch that may now have only one remaining
// child (or value) into a leaf/extension, per the Yellow Paper's graft
// rule for branch nodes left with a single occupant.
func collapseBranch(store NodeStore, n *Node) ([]byte, error) {
	remaining := -1
	for i := 0; i < 16; i++ {
		if len(n.Children[i]) > 0 {
			if remaining >= 0 {
				return storeNode(store, n)
			}
			remaining = i
		}
	}
	if remaining < 0 {
		if n.Value == nil {
			return nil, nil
		}
		return storeNode(store, &Node{Kind: KindLeaf, Key: []byte{terminatorByte}, Value: n.Value})
	}
	if n.Value != nil {
		return storeNode(store, n)
	}
	child, err := decodeRef(store, n.Children[remaining])
	if err != nil {
		return nil, err
	}
	switch child.Kind {
	case KindLeaf, KindExtension:
		merged := append([]byte{byte(remaining)}, child.Key...)
		return storeNode(store, &Node{Kind: child.Kind, Key: merged, Value: child.Value, Child: child.Child})
	default:
		return storeNode(store, &Node{Kind: KindExtension, Key: []byte{byte(remaining)}, Child: n.Children[remaining]})
	}
}
