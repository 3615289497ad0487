package step

import (
	"encoding/binary"
	"math/bits"

	"github.com/fraudproof/stepvm/crypto"
	"github.com/holiman/uint256"
)

// groupCount is the number of semantic groups Merkleized at the top level
// (control, history, block, tx, contract, call_work, create_work,
// state_work, mpt_work); padded up to topLeaves, a power of two, so the
// top-level tree has stable generalized indices regardless of how many
// groups are actually populated.
const groupCount = 9
const topDepth = 4
const topLeaves = 1 << topDepth // 16

// Group anchor positions (0-indexed leaf slot at the top level).
const (
	groupControl = iota
	groupHistory
	groupBlock
	groupTx
	groupContract
	groupCallWork
	groupCreateWork
	groupStateWork
	groupMPTWork
)

// chunk32 splits data into 32-byte leaves, zero-padding the final leaf.
func chunk32(data []byte) [][32]byte {
	if len(data) == 0 {
		return [][32]byte{{}}
	}
	n := (len(data) + 31) / 32
	out := make([][32]byte, n)
	for i := 0; i < n; i++ {
		copy(out[i][:], data[i*32:min(len(data), (i+1)*32)])
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func merkleize(chunks [][32]byte) [32]byte {
	leaves := make([][32]byte, len(chunks))
	copy(leaves, chunks)
	tree, _ := crypto.BuildMerkleTree(leaves)
	return tree[1]
}

// GroupAnchor returns the top-level generalized index for the given group
// slot (0..groupCount-1), i.e. the combined index to use as the anchor
// argument to Concat when addressing a position inside that group's subtree.
func GroupAnchor(group int) uint64 {
	return crypto.GeneralizedIndex(topDepth, uint64(group))
}

// Concat composes a generalized index `local` (within a subtree) with the
// generalized index `anchor` of that subtree's root position in its parent
// tree, producing the combined generalized index in the parent's address
// space. This mirrors the SSZ container-of-containers composition rule.
func Concat(anchor, local uint64) uint64 {
	d := bits.Len64(local) - 1
	return anchor<<uint(d) + (local - (uint64(1) << uint(d)))
}

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func u256bytes(v *uint256.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	b := v.Bytes32()
	return b[:]
}

func boolByte(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}

func (c *Control) serialize() []byte {
	out := append([]byte{}, c.StateRoot[:]...)
	out = append(out, byte(c.ExecMode))
	out = append(out, u64le(c.SubIndex)...)
	out = append(out, u64le(uint64(c.ReturnToStep))...)
	return out
}

func (h *History) serialize() []byte {
	out := make([]byte, 0, 256*32)
	for _, hh := range h.BlockHashes {
		out = append(out, hh[:]...)
	}
	return out
}

func (b *Block) serialize() []byte {
	out := append([]byte{}, b.Coinbase[:]...)
	out = append(out, u64le(b.GasLimit)...)
	out = append(out, u64le(b.BlockNumber)...)
	out = append(out, u64le(b.Time)...)
	out = append(out, u256bytes(b.Difficulty)...)
	out = append(out, u256bytes(b.BaseFee)...)
	out = append(out, u64le(uint64(len(b.Receipts)))...)
	for _, r := range b.Receipts {
		out = append(out, u64le(r.Status)...)
		out = append(out, u64le(r.CumulativeGasUsed)...)
		out = append(out, r.Bloom[:]...)
	}
	return out
}

func (t *Tx) serialize() []byte {
	out := u64le(t.TxIndex)
	out = append(out, u64le(uint64(len(t.CurrentTx)))...)
	out = append(out, t.CurrentTx...)
	out = append(out, byte(t.Mode))
	out = append(out, u64le(uint64(len(t.Logs)))...)
	for _, l := range t.Logs {
		out = append(out, l.Address[:]...)
		out = append(out, u64le(uint64(len(l.Data)))...)
		out = append(out, l.Data...)
	}
	return out
}

func (c *Contract) serialize() []byte {
	out := append([]byte{}, c.SelfAddr[:]...)
	out = append(out, boolByte(c.Create)...)
	out = append(out, u64le(uint64(c.CallDepth))...)
	out = append(out, c.Caller[:]...)
	out = append(out, u64le(uint64(c.Memory.Len()))...)
	out = append(out, c.Memory.Store...)
	out = append(out, u64le(c.MemoryLastGas)...)
	out = append(out, u64le(c.MemoryDesired)...)
	out = append(out, u64le(uint64(c.Stack.Len()))...)
	for i := range c.Stack.Data {
		b := c.Stack.Data[i].Bytes32()
		out = append(out, b[:]...)
	}
	out = append(out, c.RetData...)
	out = append(out, c.CodeHash[:]...)
	out = append(out, c.CodeAddr[:]...)
	out = append(out, c.Input...)
	out = append(out, u64le(c.Gas)...)
	out = append(out, u256bytes(c.Value)...)
	out = append(out, boolByte(c.ReadOnly)...)
	out = append(out, boolByte(c.IsInitCode)...)
	out = append(out, c.Op)
	out = append(out, u64le(c.PC)...)
	return out
}

func (w *CallWork) serialize() []byte {
	out := []byte{byte(w.Mode), byte(w.Kind)}
	out = append(out, w.Caller[:]...)
	out = append(out, w.CodeAddr[:]...)
	out = append(out, u64le(w.Gas)...)
	out = append(out, u256bytes(w.Value)...)
	out = append(out, u64le(w.InOffset)...)
	out = append(out, u64le(w.InSize)...)
	out = append(out, u64le(w.OutOffset)...)
	out = append(out, u64le(w.OutSize)...)
	out = append(out, boolByte(w.StaticCtx)...)
	return out
}

func (w *CreateWork) serialize() []byte {
	out := []byte{byte(w.Mode), boolByte(w.Is2)[0]}
	out = append(out, w.Caller[:]...)
	out = append(out, u256bytes(w.Value)...)
	out = append(out, u64le(w.InOffset)...)
	out = append(out, u64le(w.InSize)...)
	out = append(out, u256bytes(w.Salt)...)
	out = append(out, w.NewAddr[:]...)
	return out
}

func (w *StateWork) serialize() []byte {
	out := []byte{byte(w.Work.Kind)}
	out = append(out, w.Work.Address[:]...)
	out = append(out, w.Work.Slot[:]...)
	out = append(out, w.Work.Value[:]...)
	out = append(out, byte(w.Mode))
	out = append(out, byte(w.ModeOnFinish))
	return out
}

func (w *MPTWork) serialize() []byte {
	out := []byte{byte(w.TreeSource), byte(w.Mode)}
	out = append(out, w.WriteRoot[:]...)
	out = append(out, byte(w.ModeOnFinish))
	out = append(out, u64le(uint64(w.ParentNodeStep))...)
	out = append(out, u64le(uint64(len(w.CurrentRoot)))...)
	out = append(out, w.CurrentRoot...)
	out = append(out, u64le(uint64(w.FailLookup))...)
	out = append(out, w.LookupKey[:]...)
	out = append(out, u64le(uint64(w.LookupNibbleDepth))...)
	out = append(out, w.LookupKeyNibbles...)
	out = append(out, w.GraftKeySegment...)
	out = append(out, w.GraftKeyNibbles...)
	out = append(out, w.Value...)
	return out
}

// GroupRoots returns the 9 independently-Merkleized group roots of s,
// zero-padded to topLeaves, in top-level leaf order.
func GroupRoots(s *Step) [][32]byte {
	roots := make([][32]byte, topLeaves)
	roots[groupControl] = merkleize(chunk32(s.Control.serialize()))
	roots[groupHistory] = merkleize(chunk32(s.History.serialize()))
	roots[groupBlock] = merkleize(chunk32(s.Block.serialize()))
	roots[groupTx] = merkleize(chunk32(s.Tx.serialize()))
	roots[groupContract] = merkleize(chunk32(s.Contract.serialize()))
	roots[groupCallWork] = merkleize(chunk32(s.CallWork.serialize()))
	roots[groupCreateWork] = merkleize(chunk32(s.CreateWork.serialize()))
	roots[groupStateWork] = merkleize(chunk32(s.StateWork.serialize()))
	roots[groupMPTWork] = merkleize(chunk32(s.MPTWork.serialize()))
	return roots
}

// BuildTopTree returns the flat top-level Merkle tree over s's 9 group
// roots (zero-padded to topLeaves), suitable for crypto.GenerateMultiProof.
func BuildTopTree(s *Step) ([][32]byte, uint) {
	return crypto.BuildMerkleTree(GroupRoots(s))
}

// Root computes the combined generalized-index tree root of s: each of the
// 9 semantic groups is Merkleized independently, and the resulting 9 roots
// (zero-padded to 16) form the leaves of one top-level tree.
func Root(s *Step) [32]byte {
	top, _ := BuildTopTree(s)
	return top[1]
}
