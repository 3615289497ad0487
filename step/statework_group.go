package step

import "github.com/fraudproof/stepvm/core/types"

// StateWorkKind tags which account/storage operation a StateWork request is
// performing (§4.4).
type StateWorkKind byte

const (
	SWHasAccount StateWorkKind = iota
	SWCreateAccount
	SWGetBalance
	SWSetBalance
	SWAddBalance
	SWSubBalance
	SWGetNonce
	SWSetNonce
	SWGetCodeHash
	SWSetCodeHash
	SWGetCodeSize
	SWContinueCodeLookup
	SWContinueCodeSizeLookup
	SWStorageRead
	SWStorageWrite
	SWSelfDestruct
)

// StateWorkRequest is the tagged-variant payload of one state_work entry;
// only the fields relevant to Kind are meaningful.
type StateWorkRequest struct {
	Kind    StateWorkKind
	Address types.Address
	Slot    types.Hash
	Value   [32]byte
}

// StateWorkMode tracks progress of a StateWork request through its MPT
// sub-requests (§4.4).
type StateWorkMode byte

const (
	SWModeIdle StateWorkMode = iota
	SWModeAwaitingAccountLookup
	SWModeAwaitingStorageLookup
	SWModeAwaitingCodeLookup
	SWModeAwaitingAccountWrite
	SWModeAwaitingStorageWrite
	SWModeDone
)

// StateWork is the state_work scratch group (§4.4).
type StateWork struct {
	Work         StateWorkRequest
	Mode         StateWorkMode
	ModeOnFinish ExecMode
}
