package blockexec

import (
	"testing"

	"github.com/fraudproof/stepvm/core/types"
	"github.com/fraudproof/stepvm/step"
)

func TestIntrinsicGasPlainTransfer(t *testing.T) {
	addr := types.Address{1}
	nt := &step.NormalizedTx{Destination: &addr}
	if got := IntrinsicGas(nt); got != txGas {
		t.Fatalf("got %d, want %d", got, txGas)
	}
}

func TestIntrinsicGasContractCreation(t *testing.T) {
	nt := &step.NormalizedTx{IsContractCreation: true}
	if got := IntrinsicGas(nt); got != txGasContractCreation {
		t.Fatalf("got %d, want %d", got, txGasContractCreation)
	}
}

func TestIntrinsicGasAccountsForCalldata(t *testing.T) {
	addr := types.Address{1}
	nt := &step.NormalizedTx{Destination: &addr, Payload: []byte{0x00, 0x00, 0x01}}
	want := uint64(txGas) + 2*txDataZeroGas + 1*txDataNonZeroGasIstanbul
	if got := IntrinsicGas(nt); got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestIntrinsicGasAccountsForAccessList(t *testing.T) {
	addr := types.Address{1}
	nt := &step.NormalizedTx{
		Destination: &addr,
		AccessList: []step.AccessTuple{
			{Address: types.Address{2}, StorageKeys: []types.Hash{{3}, {4}}},
		},
	}
	want := uint64(txGas) + txAccessListAddressGas + 2*txAccessListStorageGas
	if got := IntrinsicGas(nt); got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}
