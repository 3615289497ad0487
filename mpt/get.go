package mpt

// Get performs a blocking (non-suspended) lookup of key against the trie
// rooted at root, for callers that don't need the single-step suspension
// Advance provides (statework's synchronous account/storage accessors).
func Get(store NodeSource, root []byte, key []byte) ([]byte, bool, error) {
	if len(root) == 0 {
		return nil, false, nil
	}
	nibbles := KeyToNibbles(key)
	return get(store, root, nibbles)
}

func get(store NodeSource, ref []byte, key []byte) ([]byte, bool, error) {
	if len(ref) == 0 {
		return nil, false, nil
	}
	var hash [32]byte
	copy(hash[:], ref)
	enc, ok := store.GetNode(hash)
	if !ok {
		return nil, false, errInsertIntoUnresolvedNode
	}
	n, err := DecodeNode(enc)
	if err != nil {
		return nil, false, err
	}
	switch n.Kind {
	case KindLeaf:
		if nibblesEqual(n.Key, key) {
			return n.Value, true, nil
		}
		return nil, false, nil
	case KindExtension:
		if len(key) < len(n.Key) || prefixLen(n.Key, key) != len(n.Key) {
			return nil, false, nil
		}
		return get(store, n.Child, key[len(n.Key):])
	case KindBranch:
		if len(key) == 1 && key[0] == terminatorByte {
			if n.Value == nil {
				return nil, false, nil
			}
			return n.Value, true, nil
		}
		return get(store, n.Children[key[0]], key[1:])
	}
	return nil, false, errMalformedNode
}
