// Package witness defines the JSON witness schema a challenger/defender
// exchanges during bisection (spec §6) and the step_witness reconstruction
// walk that checks a claimed step transition against it.
package witness

import (
	"encoding/hex"
	"encoding/json"

	"github.com/fraudproof/stepvm/crypto"
)

// Hex32 marshals a 32-byte hash as a 0x-prefixed hex string in JSON.
type Hex32 [32]byte

// MarshalJSON implements json.Marshaler.
func (h Hex32) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(h[:]))
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *Hex32) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = trimHexPrefix(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	copy(h[:], b)
	return nil
}

// MarshalText implements encoding.TextMarshaler, which encoding/json
// requires of a map key type beyond strings and integers; Witness's
// CodeByHash/MPTNodeByHash maps are keyed by Hex32.
func (h Hex32) MarshalText() ([]byte, error) {
	return []byte("0x" + hex.EncodeToString(h[:])), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, the map-key
// counterpart to MarshalText.
func (h *Hex32) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(trimHexPrefix(string(text)))
	if err != nil {
		return err
	}
	copy(h[:], b)
	return nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// HexBytes marshals a byte slice as a 0x-prefixed hex string in JSON.
type HexBytes []byte

// MarshalJSON implements json.Marshaler.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(b))
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	out, err := hex.DecodeString(trimHexPrefix(s))
	if err != nil {
		return err
	}
	*b = out
	return nil
}

// StepWitness is the witness for one step transition: the step's own tree
// root, the set of generalized indices the transition touched, and the
// external data (trie nodes, contract code) those positions resolved to.
type StepWitness struct {
	Root              Hex32    `json:"root"`
	AccessedGIndices  []uint64 `json:"accessed_gindices"`
	AccessedMPTNodes  []Hex32  `json:"accessed_mpt_node_hashes"`
	AccessedCodeHashes []Hex32 `json:"accessed_code_hashes"`
}

// Witness is the full bundle exchanged during bisection: a code database,
// an MPT node database, and the per-step witnesses for the disputed range.
type Witness struct {
	CodeByHash    map[Hex32]HexBytes `json:"code_by_hash"`
	MPTNodeByHash map[Hex32]HexBytes `json:"mpt_node_by_hash"`
	Steps         []StepWitness      `json:"steps"`
}

// New returns an empty witness bundle ready to be populated.
func New() *Witness {
	return &Witness{
		CodeByHash:    make(map[Hex32]HexBytes),
		MPTNodeByHash: make(map[Hex32]HexBytes),
	}
}

// AddNode records a trie node's RLP encoding under its Keccak-256 hash.
func (w *Witness) AddNode(enc []byte) Hex32 {
	h := Hex32(crypto.Keccak256Hash(enc))
	w.MPTNodeByHash[h] = append([]byte(nil), enc...)
	return h
}

// AddCode records contract bytecode under its Keccak-256 hash.
func (w *Witness) AddCode(code []byte) Hex32 {
	h := Hex32(crypto.Keccak256Hash(code))
	w.CodeByHash[h] = append([]byte(nil), code...)
	return h
}
