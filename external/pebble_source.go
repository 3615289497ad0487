package external

import (
	"github.com/VictoriaMetrics/fastcache"
	"github.com/cockroachdb/pebble"
	"github.com/fraudproof/stepvm/core/types"
)

// Key prefixes, following core/rawdb's single-byte-prefix schema so node,
// code, and block-hash entries never collide within one pebble instance.
const (
	prefixNode      byte = 'n'
	prefixCode      byte = 'c'
	prefixBlockHash byte = 'b'
)

// PebbleSource is an on-disk ExternalSource backed by a pebble KV store,
// fronted by an in-process fastcache to avoid repeated disk round-trips
// for nodes and code touched repeatedly within one trace (the world trie's
// root region is read on nearly every step).
type PebbleSource struct {
	db    *pebble.DB
	cache *fastcache.Cache
}

// OpenPebbleSource opens (creating if absent) a pebble database at dir,
// with an in-process cache of cacheSizeBytes.
func OpenPebbleSource(dir string, cacheSizeBytes int) (*PebbleSource, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleSource{db: db, cache: fastcache.New(cacheSizeBytes)}, nil
}

// Close releases the underlying pebble handle.
func (p *PebbleSource) Close() error { return p.db.Close() }

func prefixedKey(prefix byte, suffix []byte) []byte {
	k := make([]byte, 1+len(suffix))
	k[0] = prefix
	copy(k[1:], suffix)
	return k
}

// Node implements ExternalSource.
func (p *PebbleSource) Node(hash [32]byte) ([]byte, bool) {
	key := prefixedKey(prefixNode, hash[:])
	if v, ok := p.cache.HasGet(nil, key); ok {
		return v, true
	}
	v, closer, err := p.db.Get(key)
	if err != nil {
		return nil, false
	}
	out := append([]byte(nil), v...)
	closer.Close()
	p.cache.Set(key, out)
	return out, true
}

// PutNode persists a node's RLP encoding under its hash.
func (p *PebbleSource) PutNode(hash [32]byte, enc []byte) error {
	key := prefixedKey(prefixNode, hash[:])
	p.cache.Set(key, enc)
	return p.db.Set(key, enc, pebble.Sync)
}

// Code implements ExternalSource.
func (p *PebbleSource) Code(hash types.Hash) ([]byte, bool) {
	key := prefixedKey(prefixCode, hash[:])
	if v, ok := p.cache.HasGet(nil, key); ok {
		return v, true
	}
	v, closer, err := p.db.Get(key)
	if err != nil {
		return nil, false
	}
	out := append([]byte(nil), v...)
	closer.Close()
	p.cache.Set(key, out)
	return out, true
}

// PutCode persists contract bytecode under its hash.
func (p *PebbleSource) PutCode(hash types.Hash, code []byte) error {
	key := prefixedKey(prefixCode, hash[:])
	p.cache.Set(key, code)
	return p.db.Set(key, code, pebble.Sync)
}

// BlockHash implements ExternalSource.
func (p *PebbleSource) BlockHash(number uint64) (types.Hash, bool) {
	key := prefixedKey(prefixBlockHash, u64be(number))
	v, closer, err := p.db.Get(key)
	if err != nil {
		return types.Hash{}, false
	}
	var h types.Hash
	copy(h[:], v)
	closer.Close()
	return h, true
}

// PutBlockHash persists the hash of the block at number.
func (p *PebbleSource) PutBlockHash(number uint64, hash types.Hash) error {
	key := prefixedKey(prefixBlockHash, u64be(number))
	return p.db.Set(key, hash[:], pebble.Sync)
}

func u64be(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}
