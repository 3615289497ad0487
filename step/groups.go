package step

import (
	"github.com/fraudproof/stepvm/core/types"
	"github.com/holiman/uint256"
)

// Control carries the dispatch state common to every step.
type Control struct {
	StateRoot    types.Hash // external commitment to the world MPT for downstream steps
	ExecMode     ExecMode
	SubIndex     uint64 // progress counter within a multi-step opcode
	ReturnToStep int64  // arena index of the frame to resume, -1 if none
}

// NoReturn is the sentinel ReturnToStep / ParentNodeStep value meaning "no frame".
const NoReturn int64 = -1

// History is the ring buffer of the most recent 256 block hashes.
type History struct {
	BlockHashes [256]types.Hash // indexed by block_number % 256
}

// Receipt is the per-transaction execution receipt.
type Receipt struct {
	Status            uint64
	CumulativeGasUsed uint64
	Logs              []Log
	Bloom             types.Bloom
}

// Block carries per-block environment fields.
type Block struct {
	Coinbase    types.Address
	GasLimit    uint64
	BlockNumber uint64
	Time        uint64
	Difficulty  *uint256.Int // post-merge: `random` from the payload
	BaseFee     *uint256.Int
	Receipts    []Receipt
}

// AccessTuple is one EIP-2930 access-list entry.
type AccessTuple struct {
	Address     types.Address
	StorageKeys []types.Hash
}

// NormalizedTx is the chain-agnostic view of a transaction produced by TxLoad.
type NormalizedTx struct {
	Signer             types.Address
	Nonce              uint64
	GasFeeCap          *uint256.Int
	GasTipCap          *uint256.Int
	GasPrice           *uint256.Int
	Gas                uint64
	Destination        *types.Address // nil for contract creation
	IsContractCreation bool
	Value              *uint256.Int
	Payload            []byte
	AccessList         []AccessTuple
	ChainID            uint64
	TxType             byte
}

// Log is one EVM LOG entry.
type Log struct {
	Address types.Address
	Topics  []types.Hash
	Data    []byte
}

// TxMode tracks where in per-tx processing the step is.
type TxMode byte

const (
	TxModeIdle TxMode = iota
	TxModeRunning
	TxModeDone
)

// Tx carries per-transaction loop state.
type Tx struct {
	TxIndex              uint64
	CurrentTx            []byte // opaque EIP-2718 envelope
	CurrentTxNormalized   NormalizedTx
	Logs                 []Log
	Mode                 TxMode
}

// Contract carries the current call frame's execution state.
type Contract struct {
	SelfAddr      types.Address
	Create        bool
	CallDepth     int
	Caller        types.Address
	Memory        Memory
	MemoryLastGas uint64
	MemoryDesired uint64
	Stack         Stack
	RetData       []byte
	Code          []byte
	CodeHash      types.Hash
	CodeAddr      types.Address
	Input         []byte
	Gas           uint64
	Value         *uint256.Int
	ReadOnly      bool
	IsInitCode    bool
	Op            byte
	PC            uint64
}

// CallWorkMode enumerates the CALL FSM states (§4.7).
type CallWorkMode byte

const (
	CallStart CallWorkMode = iota
	CallLoadScope
	CallResetInput
	CallLoadInput
	CallDepthCheck
	CallReadBalance
	CallCheckTransferValue
	CallCheckAccountExists
	CallCheckIfPrecompile
	CallCreateToAccount
	CallTransferValue
	CallLoadCode
	CallLoadPrecompile
	CallLoadRegularContractCodeHash
	CallLoadRegularContractCode
	CallCheckRunningEmptyCode
	CallRunContract
)

// CallWork is the scratch scope for one CALL/CALLCODE/DELEGATECALL/STATICCALL
// invocation as it moves through the call FSM.
type CallWork struct {
	Mode      CallWorkMode
	Kind      OpCode // CALL, CALLCODE, DELEGATECALL, or STATICCALL
	Caller    types.Address
	CodeAddr  types.Address
	Gas       uint64
	Value     *uint256.Int
	InOffset  uint64
	InSize    uint64
	OutOffset uint64
	OutSize   uint64
	StaticCtx bool
}

// CreateWorkMode enumerates the CREATE FSM states (§4.7).
type CreateWorkMode byte

const (
	CreateStart CreateWorkMode = iota
	CreateCheckDepthAndBalance
	CreateIncrementNonce
	CreateRunInitCode
	CreateCheckCodeSize
	CreateCheckCodePrefix
	CreateFinalizeCode
)

// CreateWork is the scratch scope for one CREATE/CREATE2 invocation.
type CreateWork struct {
	Mode     CreateWorkMode
	Is2      bool
	Caller   types.Address
	Value    *uint256.Int
	InOffset uint64
	InSize   uint64
	Salt     *uint256.Int
	NewAddr  types.Address
}

// OpCode aliases the opcode type from core/vm without importing it, avoiding
// a step<->vm import cycle; core/vm.OpCode has the same underlying type.
type OpCode = byte
