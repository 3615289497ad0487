package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fraudproof/stepvm/blockexec"
	"github.com/fraudproof/stepvm/core/types"
)

// hexHash and hexAddr give the input JSON schema 0x-prefixed hex fields
// instead of raw byte-array JSON, matching witness.Hex32/HexBytes's
// convention for the rest of the CLI's on-disk formats.
type hexHash types.Hash
type hexAddr types.Address
type hexBytes []byte

func trimHex(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}

func (h hexHash) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(h[:]))
}

func (h *hexHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(trimHex(s))
	if err != nil {
		return fmt.Errorf("hexHash: %w", err)
	}
	copy(h[:], b)
	return nil
}

func (a hexAddr) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(a[:]))
}

func (a *hexAddr) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	b, err := hex.DecodeString(trimHex(s))
	if err != nil {
		return fmt.Errorf("hexAddr: %w", err)
	}
	copy(a[:], b)
	return nil
}

func (b hexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal("0x" + hex.EncodeToString(b))
}

func (b *hexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	out, err := hex.DecodeString(trimHex(s))
	if err != nil {
		return fmt.Errorf("hexBytes: %w", err)
	}
	*b = out
	return nil
}

// payloadJSON is the on-disk schema for the `gen` command's input: the
// MinimalExecutionPayload (spec §6) plus the parent header fields
// blockexec.Payload needs to derive the base fee, with hex-string
// encodings for every byte field.
type payloadJSON struct {
	ParentHash     hexHash   `json:"parent_hash"`
	Coinbase       hexAddr   `json:"coinbase"`
	GasLimit       uint64    `json:"gas_limit"`
	BlockNumber    uint64    `json:"block_number"`
	Time           uint64    `json:"time"`
	Difficulty     hexHash   `json:"difficulty"`
	ParentGasLimit uint64    `json:"parent_gas_limit"`
	ParentGasUsed  uint64    `json:"parent_gas_used"`
	ParentBaseFee  *uint64   `json:"parent_base_fee,omitempty"`
	AncestorHashes []hexHash `json:"ancestor_hashes"`
	ChainID        uint64    `json:"chain_id"`
	Transactions   []hexBytes `json:"transactions"`
}

func (p *payloadJSON) toPayload() *blockexec.Payload {
	out := &blockexec.Payload{
		ParentHash:     types.Hash(p.ParentHash),
		Coinbase:       types.Address(p.Coinbase),
		GasLimit:       p.GasLimit,
		BlockNumber:    p.BlockNumber,
		Time:           p.Time,
		Difficulty:     [32]byte(p.Difficulty),
		ParentGasLimit: p.ParentGasLimit,
		ParentGasUsed:  p.ParentGasUsed,
		ParentBaseFee:  p.ParentBaseFee,
		ChainID:        p.ChainID,
	}
	for _, h := range p.AncestorHashes {
		out.AncestorHashes = append(out.AncestorHashes, types.Hash(h))
	}
	for _, tx := range p.Transactions {
		out.Transactions = append(out.Transactions, []byte(tx))
	}
	return out
}
